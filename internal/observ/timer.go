// Package observ times the pipeline phases of compilation units.
package observ

import (
	"fmt"
	"strings"
	"time"
)

// Phase is one pipeline phase run over a compilation unit.
type Phase struct {
	Name    string
	Elapsed time.Duration
	Err     error
}

// Timer records the phases of one unit in the order they ran. A unit
// stops at its first failing phase, so only the last phase can carry an
// error.
type Timer struct {
	unit   string
	phases []Phase
}

func NewTimer(unit string) *Timer {
	return &Timer{unit: unit, phases: make([]Phase, 0, 8)}
}

// Time runs fn as the phase called name and records how long it took and
// whether it failed.
func (t *Timer) Time(name string, fn func() error) (time.Duration, error) {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	t.phases = append(t.phases, Phase{Name: name, Elapsed: elapsed, Err: err})
	return elapsed, err
}

func (t *Timer) Phases() []Phase { return t.phases }

// PhaseReport is the serialisable form of a phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Failed     bool    `json:"failed,omitempty"`
}

// Report is the timing of one unit's pipeline.
type Report struct {
	Unit    string        `json:"unit"`
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func (t *Timer) Report() Report {
	report := Report{Unit: t.unit}
	if len(t.phases) == 0 {
		return report
	}
	report.Phases = make([]PhaseReport, len(t.phases))
	var total time.Duration
	for i, phase := range t.phases {
		total += phase.Elapsed
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: millis(phase.Elapsed),
			Failed:     phase.Err != nil,
		}
	}
	report.TotalMS = millis(total)
	return report
}

// Slowest returns the phase that took longest.
func (r Report) Slowest() (PhaseReport, bool) {
	if len(r.Phases) == 0 {
		return PhaseReport{}, false
	}
	slowest := r.Phases[0]
	for _, p := range r.Phases[1:] {
		if p.DurationMS > slowest.DurationMS {
			slowest = p
		}
	}
	return slowest, true
}

// Summary renders the report as a table of phases with their share of the
// unit's total time.
func (r Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "timings %s:\n", r.Unit)
	for _, p := range r.Phases {
		share := 0.0
		if r.TotalMS > 0 {
			share = 100 * p.DurationMS / r.TotalMS
		}
		fmt.Fprintf(&sb, "  %-10s %8.3f ms %5.1f%%", p.Name, p.DurationMS, share)
		if p.Failed {
			sb.WriteString("  failed")
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "  %-10s %8.3f ms\n", "total", r.TotalMS)
	return sb.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
