// Package driver runs the compilation pipeline over units and hands the
// lowered modules to a backend.
package driver

import (
	"context"
	"path/filepath"
	"strconv"

	"molten/internal/ast"
	"molten/internal/builtins"
	"molten/internal/diag"
	"molten/internal/exports"
	"molten/internal/mir"
	"molten/internal/observ"
	"molten/internal/refine"
	"molten/internal/sema"
	"molten/internal/session"
	"molten/internal/trace"
)

// Result is everything Compile produced for a unit. Fields after the
// phase that failed are nil.
type Result struct {
	Unit     *Unit
	Session  *session.Session
	Registry *builtins.Registry
	Code     []ast.Node
	Exports  *exports.File
	Module   *mir.Module
	Bag      *diag.Bag
	Timing   observ.Report
}

// Failed reports whether the unit produced an error.
func (r *Result) Failed() bool { return r.Bag.HasErrors() }

type pipeline struct {
	ctx    context.Context
	opts   Options
	tracer trace.Tracer
	timer  *observ.Timer
	res    *Result
}

// Compile runs refine, import loading, binding, checking, export
// collection and lowering over unit. The first error stops the pipeline;
// it is returned and also recorded in the result's bag.
func Compile(ctx context.Context, unit *Unit, opts Options) (*Result, error) {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	ctx = trace.WithTracer(ctx, tracer)
	span := trace.BeginUnit(tracer, unit.Name, trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, span)

	sess := session.New(unit.Name)
	sess.Tracer = tracer
	sess.Reserve(unit.Code)

	p := &pipeline{
		ctx:    ctx,
		opts:   opts,
		tracer: tracer,
		timer:  observ.NewTimer(unit.Name),
		res:    &Result{Unit: unit, Session: sess, Bag: diag.NewBag(opts.maxDiagnostics())},
	}
	err := p.run()
	span.WithExtra("phases", strconv.Itoa(len(p.timer.Phases())))
	if err != nil {
		span.End("failed")
	} else {
		span.End("ok")
	}
	p.res.Timing = p.timer.Report()
	if opts.Timings {
		reportTimings(p.res.Bag, unit, opts, p.res.Timing)
	}
	return p.res, err
}

func (p *pipeline) run() error {
	sess := p.res.Session
	unit := p.res.Unit

	if err := p.phase(PhaseBuiltins, func() error {
		reg, err := builtins.Declare(sess, sess.Scopes.Primitive, sess.Fresh)
		p.res.Registry = reg
		return err
	}); err != nil {
		return err
	}
	if err := p.phase(PhaseRefine, func() error {
		code, err := refine.Refine(sess.Build, unit.Code)
		p.res.Code = code
		return err
	}); err != nil {
		return err
	}
	if err := p.phase(PhaseImports, func() error {
		loader := exports.NewLoader(sess.Build, p.importDirs()...)
		loader.Tracer = p.tracer
		return loader.Resolve(p.res.Code)
	}); err != nil {
		return err
	}
	if err := p.phase(PhaseBind, func() error {
		return sema.Bind(p.ctx, sess, p.res.Code)
	}); err != nil {
		return err
	}
	if err := p.phase(PhaseCheck, func() error {
		return sema.Check(p.ctx, sess, p.res.Code)
	}); err != nil {
		return err
	}
	if err := p.phase(PhaseExports, func() error {
		f, err := exports.Collect(sess, unit.Name, p.res.Code)
		if err != nil {
			return diag.Wrap(diag.InternalInvariant, unit.pos(), err)
		}
		p.res.Exports = f
		return nil
	}); err != nil {
		return err
	}
	if p.opts.CheckOnly {
		return nil
	}
	if err := p.phase(PhaseLower, func() error {
		m, err := mir.Lower(p.ctx, sess, p.res.Registry, p.res.Code, mir.Options{Library: p.opts.Library})
		p.res.Module = m
		return err
	}); err != nil {
		return err
	}
	return p.phase(PhaseValidate, func() error {
		if err := mir.Validate(p.res.Module); err != nil {
			return diag.Wrap(diag.InternalInvariant, unit.pos(), err)
		}
		return nil
	})
}

// phase runs fn inside a phase span, times it, reports it to the observer
// and records its error.
func (p *pipeline) phase(name string, fn func() error) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	p.notify(PhaseEvent{Name: name, Status: PhaseStart})
	outer := p.ctx
	span := trace.BeginPhase(p.tracer, p.res.Unit.Name, name, trace.CurrentSpan(outer))
	p.ctx = trace.WithSpan(outer, span)
	elapsed, err := p.timer.Time(name, fn)
	p.ctx = outer
	span.Finish(err)
	p.notify(PhaseEvent{Name: name, Status: PhaseEnd, Elapsed: elapsed, Err: err})
	if err != nil {
		diag.Report(diag.BagReporter{Bag: p.res.Bag}, err)
	}
	return err
}

func (p *pipeline) notify(ev PhaseEvent) {
	if p.opts.Observer == nil {
		return
	}
	ev.Unit = p.res.Unit.Name
	p.opts.Observer(ev)
}

func (p *pipeline) importDirs() []string {
	dirs := make([]string, 0, len(p.opts.ImportDirs)+1)
	if dir := p.res.Unit.Dir(); dir != "" {
		dirs = append(dirs, dir)
	}
	return append(dirs, p.opts.ImportDirs...)
}

// DecPath is where the exports of res are written inside dir.
func DecPath(dir string, res *Result) string {
	return filepath.Join(dir, res.Unit.Name+exports.Ext)
}
