package observ

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTimerRecordsPhasesOfUnit(t *testing.T) {
	tm := NewTimer("main")
	if _, err := tm.Time("bind", func() error { return nil }); err != nil {
		t.Fatalf("bind: %v", err)
	}
	bad := errors.New("no member len")
	if _, err := tm.Time("check", func() error {
		time.Sleep(time.Millisecond)
		return bad
	}); !errors.Is(err, bad) {
		t.Fatalf("check error %v", err)
	}

	rep := tm.Report()
	if rep.Unit != "main" || len(rep.Phases) != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.Phases[0].Failed || !rep.Phases[1].Failed {
		t.Fatalf("only check should be marked failed: %+v", rep.Phases)
	}
	if slowest, ok := rep.Slowest(); !ok || slowest.Name != "check" {
		t.Fatalf("slowest phase %+v", slowest)
	}
	sum := rep.Summary()
	for _, want := range []string{"timings main:", "bind", "check", "failed", "total", "%"} {
		if !strings.Contains(sum, want) {
			t.Fatalf("summary missing %q:\n%s", want, sum)
		}
	}
}

func TestEmptyReportKeepsUnit(t *testing.T) {
	rep := NewTimer("lib").Report()
	if rep.Unit != "lib" || rep.TotalMS != 0 {
		t.Fatalf("report %+v", rep)
	}
	if _, ok := rep.Slowest(); ok {
		t.Fatalf("empty report has no slowest phase")
	}
}
