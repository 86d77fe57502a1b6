// Package builtins declares the primitive classes, the C functions the
// runtime links against and the operators implemented by the backends.
package builtins

import (
	"fmt"

	"molten/internal/ast"
	"molten/internal/defs"
	"molten/internal/ids"
	"molten/internal/symbols"
	"molten/internal/types"
)

// Func is a builtin function declared in a session.
type Func struct {
	Entry
	ID   ids.NodeID
	Type *types.Function
}

// External reports whether the function is linked by its C name rather
// than generated by the backend.
func (f *Func) External() bool { return f.Op == OpExternal }

// Registry holds the builtins declared for one session.
type Registry struct {
	Classes map[string]*defs.ClassDef
	Funcs   []*Func
	byID    map[ids.NodeID]*Func
}

// Declare defines every primitive class and builtin function in prim.
func Declare(sess defs.Session, prim *symbols.Scope, fresh func(string) *types.Variable) (*Registry, error) {
	r := &Registry{
		Classes: make(map[string]*defs.ClassDef, len(classes)),
		byID:    make(map[ids.NodeID]*Func, len(entries)+len(members)),
	}
	for _, c := range classes {
		id := sess.NextID()
		params := make([]types.Type, len(c.Params))
		for i, p := range c.Params {
			v := fresh(p)
			v.Generic = true
			params[i] = v
		}
		typ := types.NewObject(c.Name, id, params...)
		cls := defs.NewClass(id, typ, nil, nil, prim)
		cls.Primitive = true
		sess.SetDef(id, cls)
		sess.SetType(id, typ)
		if _, err := prim.DefineType(c.Name, id, nil); err != nil {
			return nil, err
		}
		r.Classes[c.Name] = cls
	}

	for _, e := range entries {
		if err := r.define(sess, prim, e, fresh); err != nil {
			return nil, err
		}
	}
	for _, m := range members {
		cls, ok := r.Classes[m.Class]
		if !ok {
			return nil, fmt.Errorf("builtin %s: no primitive class %s", m.Name, m.Class)
		}
		if err := r.define(sess, cls.Vars, m.Entry, fresh); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) define(sess defs.Session, scope *symbols.Scope, e Entry, fresh func(string) *types.Variable) error {
	t, err := types.ParseWith(e.Sig, fresh)
	if err != nil {
		return fmt.Errorf("builtin %s: %w", e.Name, err)
	}
	ft, ok := r.bindNames(t).(*types.Function)
	if !ok {
		return fmt.Errorf("builtin %s: %s is not a function type", e.Name, e.Sig)
	}
	id := sess.NextID()
	spec := defs.FuncSpec{
		ID:      id,
		Name:    e.Name,
		ABI:     ft.ABI,
		Vis:     ast.Public,
		Forward: e.Op == OpExternal,
		Type:    ft,
	}
	if _, err := defs.DefineFunc(sess, scope, spec); err != nil {
		return fmt.Errorf("builtin %s: %w", e.Name, err)
	}
	f := &Func{Entry: e, ID: id, Type: ft}
	r.Funcs = append(r.Funcs, f)
	r.byID[id] = f
	return nil
}

// Lookup returns the builtin function defined as id.
func (r *Registry) Lookup(id ids.NodeID) (*Func, bool) {
	if r == nil {
		return nil, false
	}
	f, ok := r.byID[id]
	return f, ok
}

// Class returns the primitive class called name.
func (r *Registry) Class(name string) (*defs.ClassDef, bool) {
	c, ok := r.Classes[name]
	return c, ok
}

func (r *Registry) bindNames(t types.Type) types.Type {
	var bind func(types.Type) types.Type
	bind = func(sub types.Type) types.Type {
		o, ok := sub.(*types.Object)
		if !ok {
			return nil
		}
		id := o.ID
		if cls, ok := r.Classes[o.Name]; ok {
			id = cls.ID
		}
		params := make([]types.Type, len(o.Params))
		for i, p := range o.Params {
			params[i] = types.Map(p, bind)
		}
		return types.NewObject(o.Name, id, params...)
	}
	return types.Map(t, bind)
}
