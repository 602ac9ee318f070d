package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stride3d/stride-sub014/internal/driver"
)

func TestProgressModelTracksEvents(t *testing.T) {
	events := make(chan driver.Event)
	m := NewProgressModel("batch", []string{"Basic", "Lit"}, events).(*progressModel)

	m.Update(eventMsg(driver.Event{Index: 0, Status: driver.StatusRunning}))
	m.Update(eventMsg(driver.Event{Index: 1, Status: driver.StatusFailed, Elapsed: 3 * time.Millisecond}))
	m.Update(eventMsg(driver.Event{Index: 9, Status: driver.StatusDone}))

	if m.items[0].status != driver.StatusRunning || m.items[1].status != driver.StatusFailed {
		t.Fatalf("items %+v", m.items)
	}
	if m.finished() != 1 {
		t.Fatalf("finished = %d", m.finished())
	}
	view := m.View()
	for _, want := range []string{"batch (1/2)", "running", "failed", "Lit", "3ms"} {
		if !strings.Contains(view, want) {
			t.Errorf("view misses %q:\n%s", want, view)
		}
	}

	_, cmd := m.Update(doneMsg{})
	if !m.done || cmd == nil {
		t.Fatal("doneMsg should finish the model")
	}
	if !strings.Contains(m.View(), "done: batch") {
		t.Fatalf("final view:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("ShaderBase", 20); got != "ShaderBase" {
		t.Fatalf("short name changed: %q", got)
	}
	if got := truncate("VeryLongEffectName", 10); got != "VeryLon..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("漢字漢字", 3); got != "漢" {
		t.Fatalf("wide truncate = %q", got)
	}
}
