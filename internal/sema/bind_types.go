package sema

import (
	"molten/internal/session"
	"molten/internal/symbols"
	"molten/internal/types"
)

// Names the binder and checker resolve implicitly.
const (
	selfName = "self"
	eqName   = "=="
)

// typeVars scopes the type variables written in annotations. Variables of
// class parameters and forward declarations are generic; those of function
// annotations are plain and get generalised after checking.
type typeVars struct {
	parent  *typeVars
	generic bool
	names   map[string]*types.Variable
}

func newTypeVars(parent *typeVars, generic bool) *typeVars {
	return &typeVars{parent: parent, generic: generic, names: make(map[string]*types.Variable)}
}

func (tv *typeVars) lookup(name string) (*types.Variable, bool) {
	for cur := tv; cur != nil; cur = cur.parent {
		if v, ok := cur.names[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (tv *typeVars) get(sess *session.Session, name string) *types.Variable {
	if v, ok := tv.lookup(name); ok {
		return v
	}
	v := sess.Fresh(name)
	v.Generic = tv.generic
	tv.names[name] = v
	return v
}

// bindType resolves the class names of an annotation to their definitions,
// expands aliases and maps type variables to session variables.
func (b *binder) bindType(scope *symbols.Scope, t types.Type) (types.Type, error) {
	if b.vars == nil {
		b.vars = newTypeVars(nil, false)
	}
	var firstErr error
	var bind func(types.Type) types.Type
	bind = func(sub types.Type) types.Type {
		switch st := sub.(type) {
		case *types.Variable:
			if st.ID.IsValid() {
				return st
			}
			return b.vars.get(b.sess, st.Name)
		case *types.Object:
			sym, err := scope.LookupType(st.Name)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return st
			}
			if sym.Alias != nil {
				return sym.Alias
			}
			params := make([]types.Type, len(st.Params))
			for i, p := range st.Params {
				params[i] = types.Map(p, bind)
			}
			return types.NewObject(st.Name, sym.Def, params...)
		}
		return nil
	}
	out := types.Map(t, bind)
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
