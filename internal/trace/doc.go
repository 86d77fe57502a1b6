// Package trace is the compiler's structured event log.
//
// Passes do not print. They open spans on the tracer carried by their
// context and the driver decides where events go:
//
//	molten build --trace=- --trace-level=phase main.mast
//
// Implementations:
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes each event immediately (text or NDJSON)
//   - RingTracer: keeps the last N events in memory for post-mortem dumps
//   - MultiTracer: fans out to several tracers
//
// Levels gate scopes: phase shows driver and pass spans, detail adds
// per-unit events, debug adds per-node spans (classes, functions,
// closures, overload picks).
//
// The driver opens one unit span per compilation unit and one phase span
// per pipeline phase (bind, check, lower, ...). Spans opened below them
// carry the unit and phase, so --trace-unit can narrow a parallel build
// to the units of interest.
//
// Propagation:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	unit := trace.BeginUnit(trace.FromContext(ctx), "app", 0)
//	span := trace.BeginPhase(trace.FromContext(ctx), "app", "check", unit.ID())
//	err := check(trace.WithSpan(ctx, span))
//	span.Finish(err)
package trace
