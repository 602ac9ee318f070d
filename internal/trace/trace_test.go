package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestStartNestsSpans(t *testing.T) {
	ring := NewRingTracer(16, LevelDetail)
	ctx := WithTracer(context.Background(), ring)

	drv, ctx := Start(ctx, ScopeDriver, "compile:A")
	pass, pctx := Start(ctx, ScopePass, "mix")
	node, _ := Start(pctx, ScopeNode, "method")
	node.End("")
	pass.WithExtra("occurrences", "3").End("ok")
	drv.End("done")

	evs := ring.Snapshot()
	if len(evs) != 4 {
		t.Fatalf("expected driver and pass begin/end only, got %d events", len(evs))
	}
	if evs[0].Name != "compile:A" || evs[1].Name != "mix" || evs[1].ParentID != evs[0].SpanID {
		t.Fatalf("pass span not nested under the driver span: %+v", evs[:2])
	}
	end := evs[2]
	if end.Kind != KindSpanEnd || end.Detail != "ok" || end.Extra["occurrences"] != "3" {
		t.Fatalf("pass end event %+v", end)
	}
}

func TestNopWithoutTracer(t *testing.T) {
	span, ctx := Start(context.Background(), ScopePass, "graph")
	if span.ID() != 0 || CurrentSpan(ctx) != (SpanContext{}) {
		t.Fatal("no tracer must yield an inert span")
	}
	if span.End("x") != 0 {
		t.Fatal("inert span measured time")
	}
}

func TestStreamFormats(t *testing.T) {
	for _, c := range []struct {
		format Format
		want   string
	}{
		{FormatText, "[pass]"},
		{FormatNDJSON, `"scope":"pass"`},
	} {
		var buf bytes.Buffer
		tr := NewStreamTracer(&buf, LevelPhase, c.format)
		span, _ := Start(WithTracer(context.Background(), tr), ScopePass, "streams")
		span.End("2 stages")
		if err := tr.Flush(); err != nil {
			t.Fatal(err)
		}
		if out := buf.String(); !strings.Contains(out, c.want) || !strings.Contains(out, "streams") {
			t.Fatalf("format %d output:\n%s", c.format, out)
		}
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLevel("detail"); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
	if m, err := ParseMode("both"); err != nil || m != ModeBoth {
		t.Fatalf("ParseMode = %v, %v", m, err)
	}
	if f, err := ParseFormat("json"); err != nil || f != FormatNDJSON {
		t.Fatalf("ParseFormat = %v, %v", f, err)
	}
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("off tracer: %v %v", tr, err)
	}
}

func TestJobsAndRing(t *testing.T) {
	ring := NewRingTracer(3, LevelPhase)
	multi := NewMultiTracer(LevelPhase, NewStreamTracer(&bytes.Buffer{}, LevelPhase, FormatText), ring)
	if Ring(multi) != ring {
		t.Fatal("Ring did not find the buffer behind the fan-out")
	}
	ctx := WithJob(WithTracer(context.Background(), multi), 2)

	drv, ctx := Start(ctx, ScopeDriver, "compile:B")
	if Open(ScopeDriver) < 1 {
		t.Fatal("open driver span not counted")
	}
	pass, _ := Start(ctx, ScopePass, "graph")
	pass.End("")
	drv.End("ok")
	drv.End("twice")

	evs := ring.Snapshot()
	if len(evs) != 3 || ring.Dropped() != 1 {
		t.Fatalf("expected the last 3 of 4 events, got %d (dropped %d)", len(evs), ring.Dropped())
	}
	for _, ev := range evs {
		if ev.Job != 2 {
			t.Fatalf("event %s lost its job: %+v", ev.Name, ev)
		}
	}
	if last := evs[2]; last.Kind != KindSpanEnd || last.Detail != "ok" {
		t.Fatalf("last event %+v", last)
	}
}

func TestLevelScopes(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, true},
		{LevelError, ScopePass, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeFragment, false},
		{LevelDetail, ScopeFragment, true},
		{LevelDebug, ScopeNode, true},
	}
	for _, c := range cases {
		if got := c.level.ShouldEmit(c.scope); got != c.want {
			t.Errorf("%s.ShouldEmit(%s) = %v", c.level, c.scope, got)
		}
	}
}
