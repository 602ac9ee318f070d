package diag

import (
	"strings"
	"testing"

	"github.com/stride3d/stride-sub014/internal/source"
)

func TestCodeIDRanges(t *testing.T) {
	cases := map[Code]string{
		GraCyclicDependency:         "GRA1004",
		OvrMissingOverride:          "OVR2001",
		NamSemanticTypeConflict:     "NAM3004",
		LnkExternNotFound:           "LNK4001",
		StrMultidimCompositionArray: "STR5004",
		SynError:                    "SYN6001",
		IOLoadFailed:                "IO7001",
		UnknownCode:                 "E0000",
	}
	for code, want := range cases {
		if got := code.ID(); got != want {
			t.Fatalf("%d.ID() = %q, want %q", code, got, want)
		}
	}
	if !strings.Contains(OvrMissingOverride.String(), "Missing override") {
		t.Fatalf("unexpected String(): %s", OvrMissingOverride.String())
	}
}

func TestBagLimitSortDedup(t *testing.T) {
	bag := NewBag(3)
	r := BagReporter{Bag: bag, Fragment: "A"}
	Errorf(r, LnkExternNotFound, source.Span{File: 2, Start: 5, End: 6}, "missing %s", "x")
	Warnf(r, OvrStageAdded, source.Span{File: 1, Start: 9, End: 10}, "stage added")
	Errorf(r, LnkExternNotFound, source.Span{File: 2, Start: 5, End: 6}, "missing %s", "x")
	if bag.Add(NewError(SynError, source.Span{}, "over limit")) {
		t.Fatalf("expected limit to reject the fourth diagnostic")
	}
	bag.Sort()
	items := bag.Items()
	if items[0].Code != OvrStageAdded {
		t.Fatalf("expected file 1 first, got %v", items[0].Code)
	}
	if items[1].Fragment != "A" {
		t.Fatalf("fragment not stamped: %+v", items[1])
	}
	bag.Dedup()
	if bag.Len() != 2 {
		t.Fatalf("dedup left %d items", bag.Len())
	}
	if !bag.HasErrors() || !bag.HasWarnings() {
		t.Fatalf("expected both errors and warnings")
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	sp := source.Span{File: 1, Start: 1, End: 2}
	for range 3 {
		ReportError(r, LnkAbstractCall, sp, "abstract").WithNote(sp, "declared here").Emit()
	}
	if bag.Len() != 1 {
		t.Fatalf("expected a single diagnostic, got %d", bag.Len())
	}
	if len(bag.Items()[0].Notes) != 1 {
		t.Fatalf("note lost")
	}
}
