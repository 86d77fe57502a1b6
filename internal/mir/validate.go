package mir

import (
	"errors"
	"fmt"

	"molten/internal/ids"
)

// Validate checks that every reference in m resolves: values to
// parameters, bindings or functions of the module, locals to declarations
// and globals to module globals. Struct constructions must supply one
// item per field of their named struct.
func Validate(m *Module) error {
	var errs []error
	for _, f := range m.Funcs {
		v := &validator{m: m, fn: f, values: make(map[ids.NodeID]bool), locals: make(map[ids.NodeID]bool)}
		for _, p := range f.Params {
			v.values[p.ID] = true
		}
		if len(f.Params) != len(f.Type.Items) {
			v.errorf("has %d params for type %s", len(f.Params), f.Type)
		}
		// bindings are collected first: sequences may refer to values set
		// in an earlier branch of an escape point
		for _, e := range f.Body {
			Walk(e, v.collect)
		}
		for _, e := range f.Body {
			Walk(e, v.check)
		}
		errs = append(errs, v.errs...)
	}
	for _, s := range m.Structs {
		for i, t := range s.Fields {
			if t == nil {
				errs = append(errs, fmt.Errorf("struct %%%s: field %d has no type", s.Name, i))
			}
		}
	}
	return errors.Join(errs...)
}

type validator struct {
	m      *Module
	fn     *Func
	values map[ids.NodeID]bool
	locals map[ids.NodeID]bool
	errs   []error
}

func (v *validator) errorf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf("fn @%s: %s", v.fn.Name, fmt.Sprintf(format, args...)))
}

func (v *validator) collect(e Expr) {
	switch e := e.(type) {
	case *SetValue:
		v.values[e.ID] = true
	case *Escape:
		v.values[e.ID] = true
	case *DefLocal:
		v.locals[e.ID] = true
	}
}

func (v *validator) check(e Expr) {
	switch e := e.(type) {
	case *GetValue:
		if v.values[e.ID] {
			return
		}
		if _, err := v.m.FuncType(e.ID); err != nil {
			v.errorf("undefined value %s", e.ID)
		}
	case *GetLocal:
		if !v.locals[e.ID] {
			v.errorf("undefined local %s", e.ID)
		}
	case *SetLocal:
		if !v.locals[e.ID] {
			v.errorf("assignment to undefined local %s", e.ID)
		}
	case *GetGlobal:
		if _, ok := v.m.Global(e.ID); !ok {
			v.errorf("undefined global %s", e.ID)
		}
	case *SetGlobal:
		if g, ok := v.m.Global(e.ID); !ok {
			v.errorf("assignment to undefined global %s", e.ID)
		} else if g.External {
			v.errorf("assignment to external global @%s", g.Name)
		}
	case *Phi:
		if len(e.Conds) != len(e.Blocks) {
			v.errorf("phi with %d conditions and %d blocks", len(e.Conds), len(e.Blocks))
		}
	case *MakeStruct:
		if s, ok := v.namedStruct(e.Type); ok && len(s.Fields) != len(e.Items) {
			v.errorf("%%%s built with %d of %d fields", s.Name, len(e.Items), len(s.Fields))
		}
	case *AccessRef:
		if e.Field < 0 {
			v.errorf("negative field index %d", e.Field)
		}
	}
}

func (v *validator) namedStruct(t *Type) (*Struct, bool) {
	if t.Kind == TypePtr {
		t = t.Elem
	}
	if t.Kind != TypeNamed {
		return nil, false
	}
	return v.m.Struct(t.ID)
}
