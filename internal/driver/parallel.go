package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"molten/internal/trace"
)

// PhaseUnit is the name of the event sent when a unit has finished all
// its phases. Err is set when the unit failed.
const PhaseUnit = "unit"

// CompileUnits compiles independent units in parallel, each in its own
// session. Unit errors are kept in the results; only cancellation of ctx
// is returned. jobs <= 0 means GOMAXPROCS.
func CompileUnits(ctx context.Context, units []*Unit, opts Options, jobs int) ([]*Result, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	opts.Tracer = tracer
	span := trace.Begin(tracer, trace.ScopeDriver, "compile_units", trace.CurrentSpan(ctx))
	defer span.End("")
	ctx = trace.WithSpan(ctx, span)

	results := make([]*Result, len(units))
	if len(units) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(units)))
	for i, u := range units {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			// indices are unique per goroutine
			res, err := Compile(gctx, u, opts)
			results[i] = res
			if opts.Observer != nil {
				opts.Observer(PhaseEvent{Unit: u.Name, Name: PhaseUnit, Status: PhaseEnd, Err: err})
			}
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// CheckUnits type checks independent units in parallel without lowering.
func CheckUnits(ctx context.Context, units []*Unit, opts Options, jobs int) ([]*Result, error) {
	opts.CheckOnly = true
	return CompileUnits(ctx, units, opts, jobs)
}
