package source

import "testing"

func TestFileSetResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("A.sdsl", []byte("shader A\r\n{\r\n  float x;\r\n}"))
	if id == NoFileID {
		t.Fatalf("expected non-zero file id")
	}
	f := fs.Get(id)
	if f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("expected CRLF normalization flag")
	}
	// "  float x;" starts on line 3
	off := uint32(len("shader A\n{\n  "))
	start, _ := fs.Resolve(Span{File: id, Start: off, End: off + 5})
	if start.Line != 3 || start.Col != 3 {
		t.Fatalf("unexpected position %+v", start)
	}
	if got := f.GetLine(3); got != "  float x;" {
		t.Fatalf("GetLine(3) = %q", got)
	}
	if got := f.GetLine(9); got != "" {
		t.Fatalf("GetLine(9) = %q, want empty", got)
	}
}

func TestFileSetLatestPath(t *testing.T) {
	fs := NewFileSet()
	first := fs.AddVirtual("dir/B.sdsl", []byte("a"))
	second := fs.AddVirtual("dir/./B.sdsl", []byte("b"))
	if first == second {
		t.Fatalf("expected distinct ids")
	}
	latest, ok := fs.GetLatest("dir/B.sdsl")
	if !ok || latest != second {
		t.Fatalf("GetLatest = %d,%v want %d", latest, ok, second)
	}
	if fs.Get(NoFileID) != nil {
		t.Fatalf("NoFileID must not resolve")
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 6}
	if got := a.Cover(b); got.Start != 2 || got.End != 8 {
		t.Fatalf("Cover = %v", got)
	}
	if got := (Span{}).Cover(b); got != b {
		t.Fatalf("invalid span must adopt other, got %v", got)
	}
}
