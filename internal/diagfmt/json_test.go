package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestJSONOutput(t *testing.T) {
	bag, fs := fixture()
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, IncludeNotes: true, PathMode: PathModeBasename}); err != nil {
		t.Fatal(err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 2 || out.Errors != 1 {
		t.Fatalf("count %d errors %d", out.Count, out.Errors)
	}
	first := out.Diagnostics[0]
	if first.Code != "GRA1001" || first.Severity != "ERROR" || first.Fragment != "A" {
		t.Fatalf("first diagnostic %+v", first)
	}
	loc := first.Location
	if loc.File != "A.sdsl" || loc.StartLine != 3 || loc.StartCol != 13 || loc.EndCol != 20 {
		t.Fatalf("location %+v", loc)
	}
	if len(first.Notes) != 1 || first.Notes[0].Location.StartLine != 1 {
		t.Fatalf("notes %+v", first.Notes)
	}
	if second := out.Diagnostics[1]; second.Location.File != "" || second.Title == "" {
		t.Fatalf("unlocated diagnostic %+v", second)
	}
}

func TestJSONMax(t *testing.T) {
	bag, fs := fixture()
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 1})
	if out.Count != 1 || out.Diagnostics[0].Location.StartLine != 0 {
		t.Fatalf("Max or positions ignored: %+v", out)
	}
}
