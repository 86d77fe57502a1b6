package mir

import (
	"molten/internal/ast"
	"molten/internal/defs"
	"molten/internal/ids"
	"molten/internal/types"
)

// lowerType maps a checked type to its runtime representation. Objects of
// classes and vtables are pointers to their named structs; tuples and
// records are pointers to anonymous structs; type variables travel in the
// generic slot.
func (l *lowerer) lowerType(t types.Type) *Type {
	if t == nil {
		return Any
	}
	switch t := types.Resolve(l.sess, t).(type) {
	case *types.Object:
		return l.objectType(t)
	case *types.Function:
		sig := l.funcSig(t)
		if t.ABI.IsClosure() {
			return ClosureOf(sig)
		}
		return PtrTo(sig)
	case *types.Tuple:
		items := make([]*Type, len(t.Items))
		for i, it := range t.Items {
			items[i] = l.lowerType(it)
		}
		return PtrTo(StructOf(items...))
	case *types.Record:
		items := make([]*Type, len(t.Fields))
		for i, f := range t.Fields {
			items[i] = l.lowerType(f.Type)
		}
		return PtrTo(StructOf(items...))
	case *types.Ref:
		return PtrTo(l.lowerType(t.Elem))
	}
	return Any
}

func (l *lowerer) objectType(o *types.Object) *Type {
	switch o.Name {
	case types.UnitName:
		return Unit
	case types.NilName:
		return Any
	case types.BoolName:
		return Bool
	case types.ByteName:
		return Byte
	case types.CharName:
		return Char
	case types.IntName:
		return Int
	case types.RealName:
		return Real
	case types.StringName:
		return Str
	case types.BufferName:
		return PtrTo(Any)
	}
	if nt, ok := l.named[o.ID]; ok {
		return PtrTo(nt)
	}
	if cls, err := l.sess.ClassOf(o); err == nil {
		if nt, ok := l.named[cls.ID]; ok {
			return PtrTo(nt)
		}
	}
	return Any
}

// funcSig is the lowered signature of a function of type ft, including
// the hidden parameters of its calling convention.
func (l *lowerer) funcSig(ft *types.Function) *Type {
	args := make([]*Type, 0, len(ft.Args)+2)
	for _, a := range ft.Args {
		args = append(args, l.lowerType(a))
	}
	switch {
	case ft.ABI == types.ABIMoltenFunc:
		args = append(args, EscapeType)
	case ft.ABI.IsClosure():
		args = append(args, Any, EscapeType)
	}
	return FuncOf(args, l.lowerType(ft.Ret))
}

// typeOf is the lowered type of the value node n evaluates to.
func (l *lowerer) typeOf(n ast.Node) *Type {
	switch n.(type) {
	case *ast.Class, *ast.TypeAlias, *ast.Declare, *ast.Import:
		return Unit
	}
	return l.defType(n.ID())
}

func (l *lowerer) defType(id ids.NodeID) *Type {
	t, ok := l.sess.Type(id)
	if !ok {
		return Any
	}
	return l.lowerType(t)
}

// declareClasses registers the named structs of every class, including
// imported ones, and their vtable globals. Field types may refer to any
// class, so all names are known before the first layout is lowered.
func (l *lowerer) declareClasses(code []ast.Node) error {
	var classes []*defs.ClassDef
	var visit func(nodes []ast.Node, imported bool) error
	visit = func(nodes []ast.Node, imported bool) error {
		var err error
		for _, root := range nodes {
			ast.Walk(root, func(n ast.Node) bool {
				if err != nil {
					return false
				}
				switch n := n.(type) {
				case *ast.Import:
					err = visit(n.Decls, true)
					return false
				case *ast.Class:
					var cls *defs.ClassDef
					if cls, err = l.classOf(n); err != nil {
						return false
					}
					if !cls.Built() {
						err = structural(n.Pos(), "class %s was not laid out", cls.Name)
						return false
					}
					l.named[cls.ID] = NamedOf(cls.ID, cls.Name)
					if cls.Vtable.Len() > 0 {
						l.named[cls.Vtable.ID] = NamedOf(cls.Vtable.ID, cls.Vtable.Name)
					}
					l.imported[cls.ID] = imported
					for _, b := range n.Body {
						if d, derr := l.sess.Def(b.ID()); derr == nil {
							if m, ok := d.(*defs.Method); ok {
								l.methods[m.ID] = m
							}
						}
					}
					classes = append(classes, cls)
				}
				return true
			})
			if err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(code, false); err != nil {
		return err
	}

	for _, cls := range classes {
		fields := make([]*Type, len(cls.Struct.Fields))
		for i, f := range cls.Struct.Fields {
			fields[i] = l.lowerType(f.Type)
		}
		l.mod.AddStruct(&Struct{ID: cls.ID, Name: cls.Name, Fields: fields})
		if cls.Vtable.Len() == 0 {
			continue
		}
		slots := make([]*Type, len(cls.Vtable.Entries))
		for i, e := range cls.Vtable.Entries {
			slots[i] = l.lowerType(e.Type)
		}
		vt := l.named[cls.Vtable.ID]
		l.mod.AddStruct(&Struct{ID: vt.ID, Name: vt.Name, Fields: slots})
		l.mod.AddGlobal(&Global{
			ID:       cls.Vtable.ID,
			Name:     "__" + cls.Name + "_vtable",
			Type:     PtrTo(vt),
			External: l.imported[cls.ID],
		})
	}
	return nil
}

func (l *lowerer) classOf(n ast.Node) (*defs.ClassDef, error) {
	d, err := l.sess.Def(n.ID())
	if err != nil {
		return nil, structural(n.Pos(), "%v", err)
	}
	cls, err := defs.AsClass(d)
	if err != nil {
		return nil, structural(n.Pos(), "%v", err)
	}
	return cls, nil
}
