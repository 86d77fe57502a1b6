package mir

import (
	"strconv"

	"molten/internal/ast"
	"molten/internal/defs"
	"molten/internal/ids"
	"molten/internal/trace"
	"molten/internal/types"
)

func (l *lowerer) accessor(n *ast.Accessor) (Expr, error) {
	if _, ok := l.accessedObject(n); ok {
		d, err := l.refDef(n)
		if err != nil {
			return nil, err
		}
		if _, ok := d.(*defs.Field); !ok {
			obj, err := l.expr(n.Object)
			if err != nil {
				return nil, err
			}
			l.discard(obj)
			v, t, err := l.valueOf(n.Pos(), d)
			if err != nil {
				return nil, err
			}
			return coerce(v, t, l.typeOf(n)), nil
		}
	}
	ref, t, err := l.slot(n)
	if err != nil {
		return nil, err
	}
	return coerce(&LoadRef{Ref: ref}, t, l.typeOf(n)), nil
}

func (l *lowerer) accessedObject(n *ast.Accessor) (*types.Object, bool) {
	t, ok := l.sess.ResolvedType(n.OID)
	if !ok {
		return nil, false
	}
	o, ok := t.(*types.Object)
	return o, ok
}

// slot returns a pointer to the field of an object, record or tuple that
// n accesses, and the field's lowered type.
func (l *lowerer) slot(n *ast.Accessor) (Expr, *Type, error) {
	obj, err := l.expr(n.Object)
	if err != nil {
		return nil, nil, err
	}
	obj = l.spill(obj)
	objT := l.typeOf(n.Object)

	if o, ok := l.accessedObject(n); ok {
		d, err := l.refDef(n)
		if err != nil {
			return nil, nil, err
		}
		f, err := defs.AsField(d)
		if err != nil {
			return nil, nil, structural(n.Pos(), "%v", err)
		}
		cls, err := l.sess.ClassOf(o)
		if err != nil {
			return nil, nil, structural(n.Pos(), "%v", err)
		}
		nt, ok := l.named[cls.ID]
		if !ok {
			return nil, nil, structural(n.Pos(), "class %s has no layout", cls.Name)
		}
		idx := cls.Struct.IndexByID(f.ID)
		if idx < 0 {
			idx = cls.Struct.Index(f.Name)
		}
		if idx < 0 {
			return nil, nil, structural(n.Pos(), "%s has no field %s", cls.Name, f.Name)
		}
		return &AccessRef{Ref: coerce(obj, objT, PtrTo(nt)), Field: idx}, l.defType(f.ID), nil
	}

	idx := -1
	switch t := l.resolved(n.OID).(type) {
	case *types.Record:
		for i, f := range t.Fields {
			if f.Name == n.Field {
				idx = i
			}
		}
	case *types.Tuple:
		if i, err := strconv.Atoi(n.Field); err == nil && i < len(t.Items) {
			idx = i
		}
	}
	if idx < 0 || objT.Kind != TypePtr || objT.Elem.Kind != TypeStruct || idx >= len(objT.Elem.Items) {
		return nil, nil, structural(n.Pos(), "no field %s in %s", n.Field, objT)
	}
	return &AccessRef{Ref: obj, Field: idx}, objT.Elem.Items[idx], nil
}

func (l *lowerer) resolved(id ids.NodeID) types.Type {
	t, _ := l.sess.ResolvedType(id)
	return t
}

func (l *lowerer) assignment(n *ast.Assignment) (Expr, error) {
	var (
		result Expr
		t      *Type
	)
	switch left := n.Left.(type) {
	case *ast.Identifier:
		d, err := l.refDef(left)
		if err != nil {
			return nil, err
		}
		if l.fr.locals[d.DefID()] {
			t = l.defType(d.DefID())
			v, err := l.valueAs(n.Right, t)
			if err != nil {
				return nil, err
			}
			result = &SetLocal{ID: d.DefID(), Value: v}
			break
		}
		ref, rt, err := l.captureRef(left.Pos(), d)
		if err != nil {
			return nil, err
		}
		v, err := l.valueAs(n.Right, rt)
		if err != nil {
			return nil, err
		}
		result, t = &StoreRef{Ref: ref, Value: v}, rt

	case *ast.Accessor:
		ref, rt, err := l.slot(left)
		if err != nil {
			return nil, err
		}
		ref = l.spill(ref)
		v, err := l.valueAs(n.Right, rt)
		if err != nil {
			return nil, err
		}
		result, t = &StoreRef{Ref: ref, Value: v}, rt

	case *ast.Deref:
		ref, err := l.expr(left.Value)
		if err != nil {
			return nil, err
		}
		ref = l.spill(ref)
		t = Any
		if rt := l.typeOf(left.Value); rt.Kind == TypePtr {
			t = rt.Elem
		}
		v, err := l.valueAs(n.Right, t)
		if err != nil {
			return nil, err
		}
		result = &StoreRef{Ref: ref, Value: v}

	default:
		return nil, structural(n.Pos(), "cannot assign to %s", n.Left.Kind())
	}
	return coerce(result, t, l.typeOf(n)), nil
}

// newObject allocates an instance of a class and points it at the class
// vtable. Fields are zeroed; __init__ sets them.
func (l *lowerer) newObject(n *ast.New) (Expr, error) {
	d, err := l.sess.RefDef(n.ID())
	if err != nil {
		return nil, structural(n.Pos(), "%v", err)
	}
	cls, err := defs.AsClass(d)
	if err != nil {
		return nil, structural(n.Pos(), "%v", err)
	}
	nt, ok := l.named[cls.ID]
	if !ok {
		return nil, structural(n.Pos(), "class %s has no layout", cls.Name)
	}
	var obj Expr = &AllocRef{Type: nt}
	if field := cls.Struct.Index(defs.VtableField); field >= 0 {
		obj = l.spill(obj)
		l.emit(&StoreRef{Ref: &AccessRef{Ref: obj, Field: field}, Value: &GetGlobal{ID: cls.Vtable.ID}})
	}
	return coerce(obj, PtrTo(nt), l.typeOf(n)), nil
}

// class lowers the methods of a class and, for classes defined in this
// unit, fills the vtable global with the implementation of every slot.
func (l *lowerer) class(n *ast.Class) (Expr, error) {
	span := trace.Begin(l.tracer, trace.ScopeNode, "lower_class", l.span)
	defer span.End(n.Spec.Name)

	cls, err := l.classOf(n)
	if err != nil {
		return nil, err
	}
	for _, b := range n.Body {
		if _, ok := b.(*ast.Function); !ok {
			continue
		}
		v, err := l.expr(b)
		if err != nil {
			return nil, err
		}
		l.discard(v)
	}
	if cls.Vtable.Len() == 0 || l.imported[cls.ID] {
		return UnitLit(), nil
	}

	vt, ok := l.named[cls.Vtable.ID]
	if !ok {
		return nil, structural(n.Pos(), "vtable of %s was not declared", cls.Name)
	}
	table := l.spill(&AllocRef{Type: vt})
	for i, e := range cls.Vtable.Entries {
		d, err := l.sess.Def(e.ID)
		if err != nil {
			return nil, structural(n.Pos(), "%v", err)
		}
		v, t, err := l.valueOf(n.Pos(), d)
		if err != nil {
			return nil, err
		}
		l.emit(&StoreRef{Ref: &AccessRef{Ref: table, Field: i}, Value: coerce(v, t, l.lowerType(e.Type))})
	}
	l.emit(&SetGlobal{ID: cls.Vtable.ID, Value: table})
	return UnitLit(), nil
}

// importUnit runs the initialiser of an imported unit and declares what
// it exports.
func (l *lowerer) importUnit(n *ast.Import) (Expr, error) {
	name := RunName(n.Name)
	e, ok := l.mod.ExternByName(name)
	if !ok {
		e = &Extern{ID: l.sess.NextID(), Name: name, Type: FuncOf([]*Type{EscapeType}, Int)}
		l.mod.AddExtern(e)
	}
	exc, err := l.exception(n)
	if err != nil {
		return nil, err
	}
	l.emit(&Call{Func: &GetValue{ID: e.ID}, Args: []Expr{exc}})
	for _, d := range n.Decls {
		v, err := l.expr(d)
		if err != nil {
			return nil, err
		}
		l.discard(v)
	}
	return UnitLit(), nil
}
