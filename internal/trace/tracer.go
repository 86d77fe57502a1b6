package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Tracer receives the events of a compiler run. Units compile in
// parallel, so Emit must be safe for concurrent use.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	// Enabled reports whether Level is above LevelOff.
	Enabled() bool
}

// StorageMode selects where events go: written as they happen, kept in
// memory for a dump when a command fails, or both.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1
	ModeRing
	ModeBoth
)

func (m StorageMode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeRing:
		return "ring"
	case ModeBoth:
		return "both"
	default:
		return "unknown"
	}
}

// ParseMode converts a string to StorageMode.
func ParseMode(s string) (StorageMode, error) {
	switch strings.ToLower(s) {
	case "stream":
		return ModeStream, nil
	case "ring":
		return ModeRing, nil
	case "both":
		return ModeBoth, nil
	default:
		return ModeStream, fmt.Errorf("invalid storage mode: %q (expected: stream|ring|both)", s)
	}
}

// Config holds tracer configuration.
type Config struct {
	Level      Level
	Mode       StorageMode
	Format     Format
	Output     io.Writer // takes precedence over OutputPath
	OutputPath string    // "-" or "" for stderr
	RingSize   int       // default 4096
	// Units restricts unit events to the named compilation units. Driver
	// events outside any unit are always kept.
	Units []string
}

// New creates a Tracer based on Config.
func New(cfg Config) (Tracer, error) {
	t, err := newTracer(cfg)
	if err != nil || len(cfg.Units) == 0 || t == Nop {
		return t, err
	}
	return FilterUnits(t, cfg.Units...), nil
}

func newTracer(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = 4096
	}
	if cfg.Mode == 0 {
		cfg.Mode = ModeStream
	}
	if cfg.Format == FormatAuto {
		cfg.Format = FormatText
		if strings.HasSuffix(cfg.OutputPath, ".ndjson") {
			cfg.Format = FormatNDJSON
		}
	}

	switch cfg.Mode {
	case ModeStream:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		return NewStreamTracer(w, cfg.Level, cfg.Format), nil
	case ModeRing:
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	case ModeBoth:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		return NewMultiTracer(cfg.Level,
			NewStreamTracer(w, cfg.Level, cfg.Format),
			NewRingTracer(cfg.RingSize, cfg.Level)), nil
	default:
		return nil, fmt.Errorf("unknown storage mode: %v", cfg.Mode)
	}
}

func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return os.Stderr, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, nil
}

// UnitFilter drops the events of units it was not asked to trace.
type UnitFilter struct {
	Tracer
	units map[string]bool
}

// FilterUnits wraps t so that only events of the named units, and events
// outside any unit, reach it.
func FilterUnits(t Tracer, units ...string) *UnitFilter {
	set := make(map[string]bool, len(units))
	for _, u := range units {
		set[u] = true
	}
	return &UnitFilter{Tracer: t, units: set}
}

func (f *UnitFilter) Emit(ev *Event) {
	if ev.Unit != "" && !f.units[ev.Unit] {
		return
	}
	f.Tracer.Emit(ev)
}
