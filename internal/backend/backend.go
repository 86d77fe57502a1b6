// Package backend defines the contract between the lowering pass and the
// code generators that consume its output.
package backend

import (
	"context"
	"fmt"

	"molten/internal/mir"
	"molten/internal/trace"
)

// Service receives a module one declaration at a time. Types, globals and
// function signatures are declared before any body is defined, so bodies
// may refer to anything in the module. Function bodies arrive as a
// DefineFunc, one EmitExpr per top-level expression and a FinishFunc; the
// value of the last expression is the function's result.
type Service interface {
	BeginModule(name string) error
	DeclareType(s *mir.Struct) error
	DeclareGlobal(g *mir.Global) error
	DeclareExtern(e *mir.Extern) error
	DeclareFunc(f *mir.Func) error
	DefineFunc(f *mir.Func) error
	EmitExpr(e mir.Expr) error
	FinishFunc() error
	FinalizeModule(m *mir.Module) error
}

// Emit feeds m to svc in declaration order.
func Emit(ctx context.Context, svc Service, m *mir.Module) error {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "emit", trace.CurrentSpan(ctx))
	defer span.End(m.Name)

	if err := svc.BeginModule(m.Name); err != nil {
		return err
	}
	for _, s := range m.Structs {
		if err := svc.DeclareType(s); err != nil {
			return fmt.Errorf("struct %%%s: %w", s.Name, err)
		}
	}
	for _, g := range m.Globals {
		if err := svc.DeclareGlobal(g); err != nil {
			return fmt.Errorf("global @%s: %w", g.Name, err)
		}
	}
	for _, e := range m.Externs {
		if err := svc.DeclareExtern(e); err != nil {
			return fmt.Errorf("extern @%s: %w", e.Name, err)
		}
	}
	for _, f := range m.Funcs {
		if err := svc.DeclareFunc(f); err != nil {
			return fmt.Errorf("fn @%s: %w", f.Name, err)
		}
	}
	for _, f := range m.Funcs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := defineFunc(svc, f); err != nil {
			return fmt.Errorf("fn @%s: %w", f.Name, err)
		}
	}
	return svc.FinalizeModule(m)
}

func defineFunc(svc Service, f *mir.Func) error {
	if err := svc.DefineFunc(f); err != nil {
		return err
	}
	for _, e := range f.Body {
		if err := svc.EmitExpr(e); err != nil {
			return err
		}
	}
	return svc.FinishFunc()
}
