package sema

import (
	"strconv"

	"molten/internal/ast"
	"molten/internal/defs"
	"molten/internal/diag"
	"molten/internal/ids"
	"molten/internal/session"
	"molten/internal/types"
)

func (c *checker) invoke(n *ast.Invoke) (types.Type, error) {
	args, err := c.checkAll(n.Args)
	if err != nil {
		return nil, err
	}
	ft, err := c.check(n.Func)
	if err != nil {
		return nil, err
	}
	argNodes := n.Args
	if acc, ok := n.Func.(*ast.Accessor); ok && IsMethodCall(c.sess, acc) {
		self, _ := c.sess.Type(acc.OID)
		args = append([]types.Type{self}, args...)
		argNodes = append([]ast.Node{acc.Object}, argNodes...)
	}

	switch t := types.Prune(c.sess, ft).(type) {
	case *types.Overload:
		d, err := c.sess.RefDef(n.Func.ID())
		if err != nil {
			return nil, wrap(n.Pos(), err)
		}
		ov, err := defs.AsOverload(d)
		if err != nil {
			return nil, wrap(n.Pos(), err)
		}
		idx, f, err := types.FindVariant(c.sess, ov.Name, t.Variants, args, nil)
		if err != nil {
			return nil, wrap(n.Pos(), err)
		}
		c.sess.SetRef(n.Func.ID(), ov.Variants[idx])
		c.sess.SetType(n.Func.ID(), f)
		return f.Ret, nil

	case *types.Function:
		if len(t.Args) != len(args) {
			want := types.NewFunction(args, c.sess.Fresh(""), types.ABIUnknown)
			return nil, wrap(n.Pos(), &types.MismatchError{Expected: t, Actual: want})
		}
		for i := range args {
			if _, err := c.expect(argNodes[i], t.Args[i], args[i], false); err != nil {
				return nil, err
			}
		}
		return t.Ret, nil

	case *types.Variable:
		ret := c.sess.Fresh("")
		if _, err := c.expect(n.Func, t, types.NewFunction(args, ret, types.ABIUnknown), false); err != nil {
			return nil, err
		}
		return ret, nil
	}
	want := types.NewFunction(args, c.sess.Fresh(""), types.ABIUnknown)
	return nil, wrap(n.Pos(), &types.MismatchError{Expected: want, Actual: types.Resolve(c.sess, ft)})
}

// IsMethodCall reports whether calling acc passes its object as the
// first argument: the accessor names a method of a class instance.
func IsMethodCall(sess *session.Session, acc *ast.Accessor) bool {
	ref, ok := sess.Ref(acc.ID())
	if !ok {
		return false
	}
	d, err := sess.Def(ref)
	if err != nil {
		return false
	}
	if ov, ok := d.(*defs.Overload); ok {
		if len(ov.Variants) == 0 {
			return false
		}
		if d, err = sess.Def(ov.Variants[0]); err != nil {
			return false
		}
	}
	_, ok = d.(*defs.Method)
	return ok
}

func (c *checker) accessor(n *ast.Accessor) (types.Type, error) {
	ot, err := c.check(n.Object)
	if err != nil {
		return nil, err
	}
	c.sess.SetType(n.OID, ot)

	switch t := types.Prune(c.sess, ot).(type) {
	case *types.Object:
		cls, err := c.sess.ClassOf(t)
		if err != nil {
			return nil, wrap(n.Pos(), err)
		}
		sym, err := cls.Vars.LookupMember(n.Field)
		if err != nil {
			return nil, wrap(n.Pos(), &MemberError{Field: n.Field, Type: types.Resolve(c.sess, t)})
		}
		c.sess.SetRef(n.ID(), sym.Def)
		d, err := c.sess.Def(sym.Def)
		if err != nil {
			return nil, wrap(n.Pos(), err)
		}
		if f, ok := d.(*defs.Field); ok {
			return c.fieldType(n, f, t)
		}
		return c.defType(n, d)

	case *types.Record:
		for _, f := range t.Fields {
			if f.Name == n.Field {
				return f.Type, nil
			}
		}
	case *types.Tuple:
		if i, err := strconv.Atoi(n.Field); err == nil && i >= 0 && i < len(t.Items) {
			return t.Items[i], nil
		}
	}
	return nil, wrap(n.Pos(), &MemberError{Field: n.Field, Type: types.Resolve(c.sess, ot)})
}

// fieldType returns the type of field f read from an object of type obj,
// with the owning class's parameters taken from obj.
func (c *checker) fieldType(n ast.Node, f *defs.Field, obj *types.Object) (types.Type, error) {
	ft, ok := c.sess.Type(f.ID)
	if !ok {
		return nil, diag.Errorf(diag.InternalInvariant, n.Pos(), "field %q has no type", f.Name)
	}
	owner, err := c.sess.Def(f.Class)
	if err != nil {
		return nil, wrap(n.Pos(), err)
	}
	cls, err := defs.AsClass(owner)
	if err != nil {
		return nil, wrap(n.Pos(), err)
	}
	proj := c.sess.Instantiate(types.NewFunction([]types.Type{cls.Type}, ft, types.ABIUnknown)).(*types.Function)
	if _, err := c.expect(n, proj.Args[0], obj, false); err != nil {
		return nil, err
	}
	return proj.Ret, nil
}

func (c *checker) resolver(n *ast.Resolver) (types.Type, error) {
	d, err := c.sess.RefDef(n.OID)
	if err != nil {
		return nil, wrap(n.Pos(), err)
	}
	cls, err := defs.AsClass(d)
	if err != nil {
		return nil, wrap(n.Pos(), err)
	}
	ref, ok := c.sess.Ref(n.ID())
	if !ok {
		sym, err := cls.Vars.LookupMember(n.Field)
		if err != nil {
			return nil, wrap(n.Pos(), &MemberError{Field: n.Field, Type: cls.Type})
		}
		ref = sym.Def
		c.sess.SetRef(n.ID(), ref)
	}
	md, err := c.sess.Def(ref)
	if err != nil {
		return nil, wrap(n.Pos(), err)
	}
	if _, ok := md.(*defs.Field); ok {
		return nil, wrap(n.Pos(), &defs.KindError{Want: defs.KindMethod, Got: defs.KindField, Name: n.Field})
	}
	return c.defType(n, md)
}

func (c *checker) assignment(n *ast.Assignment) (types.Type, error) {
	rt, err := c.check(n.Right)
	if err != nil {
		return nil, err
	}
	lt, err := c.check(n.Left)
	if err != nil {
		return nil, err
	}
	if acc, ok := n.Left.(*ast.Accessor); ok {
		if ref, ok := c.sess.Ref(acc.ID()); ok {
			d, err := c.sess.Def(ref)
			if err != nil {
				return nil, wrap(n.Pos(), err)
			}
			if _, err := defs.AsField(d); err != nil {
				return nil, wrap(n.Pos(), err)
			}
		}
	}
	if _, err := c.expect(n, lt, rt, false); err != nil {
		return nil, err
	}
	return lt, nil
}

// comparison selects the "==" variant a literal pattern is tested with
// and narrows the match's comparison reference to it.
func (c *checker) comparison(p *ast.Pattern, compID ids.NodeID, ct, vt types.Type) error {
	d, err := c.sess.RefDef(compID)
	if err != nil {
		return wrap(p.Pos(), err)
	}
	variants := defs.Variants(d)
	vts := make([]types.Type, len(variants))
	for i, v := range variants {
		t, ok := c.sess.Type(v)
		if !ok {
			return diag.Errorf(diag.InternalInvariant, p.Pos(), "comparison variant %s has no type", v)
		}
		vts[i] = c.sess.Instantiate(t)
	}
	idx, f, err := types.FindVariant(c.sess, eqName, vts, []types.Type{ct, vt}, nil)
	if err != nil {
		return wrap(p.Pos(), err)
	}
	c.sess.SetRef(compID, variants[idx])
	c.sess.SetType(compID, f)
	return nil
}
