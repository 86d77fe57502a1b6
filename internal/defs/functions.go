package defs

import (
	"molten/internal/ast"
	"molten/internal/ids"
	"molten/internal/symbols"
	"molten/internal/types"
)

// FuncSpec describes a function or declaration being registered.
type FuncSpec struct {
	ID      ids.NodeID
	Name    string
	ABI     types.ABI
	Vis     ast.Visibility
	Forward bool
	Type    types.Type
}

// DefineFunc registers a function in scope. A second function of the same
// name turns the binding into an overload; a body for a forward
// declaration of the same arity completes it instead. Defining a function
// over any other kind of binding is an error.
func DefineFunc(sess Session, scope *symbols.Scope, spec FuncSpec) (Def, error) {
	target := scope.Target()
	d := newFunc(sess, target, spec)
	sess.SetDef(spec.ID, d)
	if spec.Type != nil {
		sess.SetType(spec.ID, spec.Type)
	}
	if spec.Name == "" {
		return d, nil
	}

	sym, ok := target.Local(spec.Name)
	if !ok {
		if _, err := target.Define(spec.Name, spec.ID, false); err != nil {
			return nil, err
		}
		return d, nil
	}
	prev, err := sess.Def(sym.Def)
	if err != nil {
		return nil, err
	}

	switch p := prev.(type) {
	case *Overload:
		for i, v := range p.Variants {
			vd, err := sess.Def(v)
			if err == nil && completes(sess, vd, spec) {
				p.Variants[i] = spec.ID
				sess.SetDef(v, d)
				return d, nil
			}
		}
		p.Variants = append(p.Variants, spec.ID)
		return d, nil
	default:
		if !IsFunction(prev) {
			return nil, &symbols.DuplicateError{Name: spec.Name, Scope: target.Context.String()}
		}
		if completes(sess, prev, spec) {
			sess.SetDef(prev.DefID(), d)
			return d, target.Rebind(spec.Name, spec.ID)
		}
		ov := &Overload{ID: sess.NextID(), Name: spec.Name, Variants: []ids.NodeID{prev.DefID(), spec.ID}}
		sess.SetDef(ov.ID, ov)
		return d, target.Rebind(spec.Name, ov.ID)
	}
}

// completes reports whether spec supplies the body of the forward
// declaration prev.
func completes(sess Session, prev Def, spec FuncSpec) bool {
	if spec.Forward || !IsForward(prev) {
		return false
	}
	pt, _ := sess.Type(prev.DefID())
	return arity(sess, pt) == arity(sess, spec.Type)
}

func arity(env types.Env, t types.Type) int {
	if f, ok := types.Prune(env, t).(*types.Function); ok {
		return len(f.Args)
	}
	return -1
}

func newFunc(sess Session, target *symbols.Scope, spec FuncSpec) Def {
	var fn Def
	switch {
	case spec.ABI == types.ABIC && spec.Forward:
		fn = &CFunc{ID: spec.ID, Name: spec.Name}
	case spec.ABI.IsClosure():
		cl := NewClosure(sess, spec.ID, spec.Name, spec.ABI)
		cl.Vis = spec.Vis
		cl.Forward = spec.Forward
		if spec.Name != "" && (target.Context == symbols.ContextGlobal || target.Context == symbols.ContextClass) {
			cl.GlobalID = sess.NextID()
		}
		fn = cl
	default:
		fn = &Func{ID: spec.ID, Name: spec.Name, ABI: spec.ABI, Vis: spec.Vis, Forward: spec.Forward}
	}
	if target.Context == symbols.ContextClass {
		return &Method{ID: spec.ID, Name: spec.Name, Class: target.ID, Impl: fn}
	}
	return fn
}

// Variants returns the definition ids callable under d: the variants of
// an overload or d itself.
func Variants(d Def) []ids.NodeID {
	if ov, ok := d.(*Overload); ok {
		return ov.Variants
	}
	return []ids.NodeID{d.DefID()}
}
