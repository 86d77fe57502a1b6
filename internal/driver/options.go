package driver

import (
	"time"

	"molten/internal/diag"
	"molten/internal/trace"
)

// DefaultMaxDiagnostics bounds the diagnostics kept per unit when Options
// leaves MaxDiagnostics unset.
const DefaultMaxDiagnostics = 100

// Options is the resolved configuration of a compilation, built from the
// manifest and the command line.
type Options struct {
	// Library omits the main entry point; only run.<name> is emitted.
	Library bool
	// NoGC allocates with malloc instead of GC_malloc.
	NoGC bool
	// CheckOnly stops after type checking and export collection.
	CheckOnly bool
	// Triple is the LLVM target triple; empty means the backend default.
	Triple string
	// ImportDirs are searched for .dec files; the unit's own directory
	// is searched first.
	ImportDirs []string

	MaxDiagnostics int
	Timings        bool
	Tracer         trace.Tracer
	Observer       PhaseObserver
}

func (o Options) maxDiagnostics() int {
	if o.MaxDiagnostics <= 0 {
		return DefaultMaxDiagnostics
	}
	return o.MaxDiagnostics
}

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	// PhaseStart indicates that a compilation phase has begun.
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// PhaseEvent describes a timing phase boundary.
type PhaseEvent struct {
	Unit    string
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
	Err     error
}

// PhaseObserver receives phase events emitted during Compile. It may be
// called from several goroutines when units are checked in parallel.
type PhaseObserver func(PhaseEvent)

// Pipeline phases, in order.
const (
	PhaseBuiltins = "builtins"
	PhaseRefine   = "refine"
	PhaseImports  = "imports"
	PhaseBind     = "bind"
	PhaseCheck    = "check"
	PhaseExports  = "exports"
	PhaseLower    = "lower"
	PhaseValidate = "validate"
)

// Phases lists every phase Compile may run.
var Phases = []string{
	PhaseBuiltins,
	PhaseRefine,
	PhaseImports,
	PhaseBind,
	PhaseCheck,
	PhaseExports,
	PhaseLower,
	PhaseValidate,
}

// PhaseIndex returns the position of name in Phases, or -1.
func PhaseIndex(name string) int {
	for i, p := range Phases {
		if p == name {
			return i
		}
	}
	return -1
}

// HasErrors reports whether any result carries an error diagnostic.
func HasErrors(results ...*Result) bool {
	for _, r := range results {
		if r != nil && r.Bag != nil && r.Bag.HasErrors() {
			return true
		}
	}
	return false
}

// Diagnostics merges the diagnostics of results into one sorted bag.
func Diagnostics(max int, results ...*Result) *diag.Bag {
	bag := diag.NewBag(max)
	for _, r := range results {
		if r != nil && r.Bag != nil {
			bag.Merge(r.Bag)
		}
	}
	bag.Sort()
	return bag
}
