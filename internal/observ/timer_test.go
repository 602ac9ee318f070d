package observ

import (
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	a := tm.Begin("graph")
	b := tm.Begin("mix")
	tm.End(b, "3 occurrences")
	tm.End(a, "")
	tm.End(7, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Name != "graph" || r.Phases[1].Note != "3 occurrences" {
		t.Fatalf("report %+v", r)
	}
	if r.TotalMS < r.Phases[0].DurationMS {
		t.Fatalf("total %.3f below a phase %.3f", r.TotalMS, r.Phases[0].DurationMS)
	}
	s := tm.Summary()
	for _, want := range []string{"timings:", "graph", "mix", "// 3 occurrences", "total"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary misses %q:\n%s", want, s)
		}
	}
	if got := (&Timer{}).Report(); got.Phases != nil || got.TotalMS != 0 {
		t.Fatalf("empty timer report %+v", got)
	}
}
