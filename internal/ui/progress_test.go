package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"molten/internal/driver"
)

func TestProgressFollowsPhases(t *testing.T) {
	events := make(chan driver.PhaseEvent)
	m := NewProgressModel("building", []string{"main", "shapes"}, events).(*progressModel)

	m.applyEvent(driver.PhaseEvent{Unit: "main", Name: driver.PhaseBind, Status: driver.PhaseStart})
	if m.items[0].status != driver.PhaseBind || m.stageLabel != driver.PhaseBind {
		t.Fatalf("unexpected state %+v (%s)", m.items[0], m.stageLabel)
	}
	want := float64(driver.PhaseIndex(driver.PhaseBind)) / float64(len(driver.Phases)) / 2
	if got := m.percent(); got != want {
		t.Fatalf("percent = %v, want %v", got, want)
	}

	m.applyEvent(driver.PhaseEvent{Unit: "main", Name: driver.PhaseUnit, Status: driver.PhaseEnd})
	m.applyEvent(driver.PhaseEvent{Unit: "shapes", Name: driver.PhaseUnit, Status: driver.PhaseEnd, Err: errors.New("boom")})
	if m.items[0].status != statusDone || m.items[1].status != statusError {
		t.Fatalf("unexpected items %+v", m.items)
	}
	if got := m.percent(); got != 1 {
		t.Fatalf("percent = %v, want 1", got)
	}

	m.applyEvent(driver.PhaseEvent{Unit: "unknown", Name: driver.PhaseLower, Status: driver.PhaseStart})
	view := m.View()
	if !strings.Contains(view, "main") || !strings.Contains(view, "shapes") || !strings.Contains(view, "error") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
	got := truncate("a_rather_long_unit_name", 10)
	if !strings.HasPrefix(got, "a_r") || !strings.HasSuffix(got, "...") || runewidth.StringWidth(got) > 10 {
		t.Fatalf("truncate = %q", got)
	}
}
