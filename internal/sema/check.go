package sema

import (
	"context"

	"molten/internal/ast"
	"molten/internal/defs"
	"molten/internal/diag"
	"molten/internal/ids"
	"molten/internal/session"
	"molten/internal/trace"
	"molten/internal/types"
)

type checker struct {
	sess   *session.Session
	tracer trace.Tracer
	span   uint64
	prims  map[string]*types.Object
}

// Check infers the type of every node in code, which must have been bound
// in sess. Types are recorded in the session by node id; overloaded calls
// have their reference narrowed to the selected variant. Classes are laid
// out once their bodies are checked.
func Check(ctx context.Context, sess *session.Session, code []ast.Node) error {
	span := trace.Begin(sess.Tracer, trace.ScopePass, "check", trace.CurrentSpan(ctx))
	defer span.End("")

	c := &checker{sess: sess, tracer: sess.Tracer, span: span.ID(), prims: make(map[string]*types.Object)}
	for _, n := range code {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.check(n); err != nil {
			return err
		}
	}
	return nil
}

// prim returns the object type of a builtin class.
func (c *checker) prim(name string) (*types.Object, error) {
	if o, ok := c.prims[name]; ok {
		return o, nil
	}
	sym, err := c.sess.Scopes.Global.LookupType(name)
	if err != nil {
		return nil, err
	}
	o := types.NewObject(name, sym.Def)
	c.prims[name] = o
	return o, nil
}

func (c *checker) unit() types.Type {
	if o, err := c.prim(types.UnitName); err == nil {
		return o
	}
	return types.Unit()
}

func (c *checker) checkAll(code []ast.Node) ([]types.Type, error) {
	out := make([]types.Type, len(code))
	for i, n := range code {
		t, err := c.check(n)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// expect unifies a binding site with the value flowing into it.
func (c *checker) expect(pos ast.Node, expected, actual types.Type, widen bool) (types.Type, error) {
	t, err := types.Check(c.sess, expected, actual, types.ModeDef, widen)
	if err != nil {
		return nil, wrap(pos.Pos(), err)
	}
	return t, nil
}

func (c *checker) check(n ast.Node) (types.Type, error) {
	t, err := c.node(n)
	if err != nil {
		return nil, err
	}
	switch n.(type) {
	case *ast.Function, *ast.Definition, *ast.Declare, *ast.Class, *ast.TypeAlias:
		// their ids key the definition's own type
	default:
		c.sess.SetType(n.ID(), t)
	}
	return t, nil
}

func (c *checker) node(n ast.Node) (types.Type, error) {
	switch n := n.(type) {
	case *ast.Literal:
		t, err := c.prim(ast.LiteralType(n))
		if err != nil {
			return nil, wrap(n.Pos(), err)
		}
		return t, nil

	case *ast.Nil:
		return c.sess.Fresh(""), nil

	case *ast.Identifier:
		return c.identifier(n)

	case *ast.Block:
		ts, err := c.checkAll(n.Body)
		if err != nil {
			return nil, err
		}
		if len(ts) == 0 {
			return c.unit(), nil
		}
		return ts[len(ts)-1], nil

	case *ast.Definition:
		return c.definition(n)

	case *ast.Declare:
		t, _ := c.sess.Type(n.ID())
		return t, nil

	case *ast.Function:
		return c.function(n)

	case *ast.Invoke:
		return c.invoke(n)

	case *ast.SideEffect:
		boolT, err := c.prim(types.BoolName)
		if err != nil {
			return nil, wrap(n.Pos(), err)
		}
		for _, a := range n.Args {
			at, err := c.check(a)
			if err != nil {
				return nil, err
			}
			if _, err := c.expect(a, boolT, at, false); err != nil {
				return nil, err
			}
		}
		return boolT, nil

	case *ast.If:
		return c.ifExpr(n)

	case *ast.Match:
		ct, err := c.check(n.Cond)
		if err != nil {
			return nil, err
		}
		return c.cases(n.CompID, ct, nil, n.Cases)

	case *ast.Try:
		bt, err := c.check(n.Body)
		if err != nil {
			return nil, err
		}
		intT, err := c.prim(types.IntName)
		if err != nil {
			return nil, wrap(n.Pos(), err)
		}
		return c.cases(n.CompID, intT, bt, n.Cases)

	case *ast.Raise:
		vt, err := c.check(n.Value)
		if err != nil {
			return nil, err
		}
		intT, err := c.prim(types.IntName)
		if err != nil {
			return nil, wrap(n.Pos(), err)
		}
		if _, err := c.expect(n.Value, intT, vt, false); err != nil {
			return nil, err
		}
		return c.sess.Fresh(""), nil

	case *ast.While:
		boolT, err := c.prim(types.BoolName)
		if err != nil {
			return nil, wrap(n.Pos(), err)
		}
		ct, err := c.check(n.Cond)
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(n.Cond, boolT, ct, false); err != nil {
			return nil, err
		}
		if _, err := c.check(n.Body); err != nil {
			return nil, err
		}
		return c.unit(), nil

	case *ast.Ref:
		vt, err := c.check(n.Value)
		if err != nil {
			return nil, err
		}
		return types.NewRef(vt), nil

	case *ast.Deref:
		vt, err := c.check(n.Value)
		if err != nil {
			return nil, err
		}
		elem := c.sess.Fresh("")
		if _, err := c.expect(n, types.NewRef(elem), vt, false); err != nil {
			return nil, err
		}
		return elem, nil

	case *ast.Tuple:
		items, err := c.checkAll(n.Items)
		if err != nil {
			return nil, err
		}
		return types.NewTuple(items...), nil

	case *ast.Record:
		rec := &types.Record{Fields: make([]types.Field, len(n.Fields))}
		for i, f := range n.Fields {
			ft, err := c.check(f.Value)
			if err != nil {
				return nil, err
			}
			rec.Fields[i] = types.Field{Name: f.Name, Type: ft}
		}
		return rec, nil

	case *ast.Accessor:
		return c.accessor(n)

	case *ast.Resolver:
		return c.resolver(n)

	case *ast.Assignment:
		return c.assignment(n)

	case *ast.New:
		d, err := c.sess.RefDef(n.ID())
		if err != nil {
			return nil, wrap(n.Pos(), err)
		}
		cls, err := defs.AsClass(d)
		if err != nil {
			return nil, wrap(n.Pos(), err)
		}
		return c.sess.Instantiate(cls.Type), nil

	case *ast.Class:
		return c.class(n)

	case *ast.TypeAlias:
		return c.unit(), nil

	case *ast.Import:
		if _, err := c.checkAll(n.Decls); err != nil {
			return nil, err
		}
		return c.unit(), nil
	}
	return nil, diag.Errorf(diag.InternalInvariant, n.Pos(), "check: unexpected %s node", n.Kind())
}

func (c *checker) identifier(n *ast.Identifier) (types.Type, error) {
	d, err := c.sess.RefDef(n.ID())
	if err != nil {
		return nil, wrap(n.Pos(), err)
	}
	switch d.(type) {
	case *defs.Field:
		return nil, wrap(n.Pos(), &defs.KindError{Want: defs.KindVar, Got: defs.KindField, Name: n.Name})
	case *defs.ClassDef, *defs.StructDef:
		return nil, wrap(n.Pos(), &defs.KindError{Want: defs.KindVar, Got: d.DefKind(), Name: n.Name})
	}
	return c.defType(n, d)
}

// defType returns the type a reference to d sees: an instance of the
// definition's type, or the overload set of its variants.
func (c *checker) defType(n ast.Node, d defs.Def) (types.Type, error) {
	if ov, ok := d.(*defs.Overload); ok {
		set := &types.Overload{Variants: make([]types.Type, len(ov.Variants))}
		for i, v := range ov.Variants {
			vd, err := c.sess.Def(v)
			if err != nil {
				return nil, wrap(n.Pos(), err)
			}
			t, ok := c.sess.Type(vd.DefID())
			if !ok {
				return nil, diag.Errorf(diag.InternalInvariant, n.Pos(), "variant %s of %s has no type", v, ov.Name)
			}
			set.Variants[i] = c.sess.Instantiate(t)
		}
		return set, nil
	}
	t, ok := c.sess.Type(d.DefID())
	if !ok {
		return nil, diag.Errorf(diag.InternalInvariant, n.Pos(), "%s %q has no type", d.DefKind(), d.DefName())
	}
	return c.sess.Instantiate(t), nil
}

func (c *checker) definition(n *ast.Definition) (types.Type, error) {
	declared, ok := c.sess.Type(n.ID())
	if !ok {
		return nil, diag.Errorf(diag.InternalInvariant, n.Pos(), "definition %q was not bound", n.Name)
	}
	if n.Value == nil {
		return declared, nil
	}
	vt, err := c.check(n.Value)
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(n, declared, vt, n.Type != nil); err != nil {
		return nil, err
	}
	return declared, nil
}

func (c *checker) function(n *ast.Function) (types.Type, error) {
	span := trace.Begin(c.tracer, trace.ScopeNode, "check_fn", c.span)
	defer span.End(n.Name)

	t, ok := c.sess.Type(n.ID())
	if !ok {
		return nil, diag.Errorf(diag.InternalInvariant, n.Pos(), "function %q was not bound", n.Name)
	}
	ft, ok := types.Prune(c.sess, t).(*types.Function)
	if !ok {
		return nil, diag.Errorf(diag.InternalInvariant, n.Pos(), "function %q has type %s", n.Name, t)
	}
	for i, a := range n.Args {
		if a.Default == nil {
			continue
		}
		dt, err := c.check(a.Default)
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(a.Default, ft.Args[i], dt, true); err != nil {
			return nil, err
		}
	}
	bt, err := c.check(n.Body)
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(n.Body, ft.Ret, bt, false); err != nil {
		return nil, err
	}

	d, err := c.sess.Def(n.ID())
	if err != nil {
		return nil, wrap(n.Pos(), err)
	}
	if n.Name != "" && defs.IsGloballyAccessible(d) {
		t = generalize(c.sess, ft)
		c.sess.SetType(n.ID(), t)
	}
	return t, nil
}

// generalize turns the unbound variables of a resolved top-level function
// type into generic ones, keeping their ids, so that every reference
// instantiates its own copy.
func generalize(sess *session.Session, ft *types.Function) types.Type {
	return types.Map(sess.Resolve(ft), func(sub types.Type) types.Type {
		v, ok := sub.(*types.Variable)
		if !ok || v.Generic {
			return nil
		}
		return &types.Variable{Name: v.Name, ID: v.ID, Generic: true}
	})
}

func (c *checker) ifExpr(n *ast.If) (types.Type, error) {
	boolT, err := c.prim(types.BoolName)
	if err != nil {
		return nil, wrap(n.Pos(), err)
	}
	ct, err := c.check(n.Cond)
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(n.Cond, boolT, ct, false); err != nil {
		return nil, err
	}
	tt, err := c.check(n.Then)
	if err != nil {
		return nil, err
	}
	et, err := c.check(n.Else)
	if err != nil {
		return nil, err
	}
	t, err := types.Check(c.sess, tt, et, types.ModeList, false)
	if err != nil {
		// an if used as a statement discards both values
		if isUnit(c.sess, tt) || isUnit(c.sess, et) {
			return c.unit(), nil
		}
		return nil, wrap(n.Pos(), err)
	}
	return t, nil
}

// cases checks the patterns of a match or try against ct and unifies the
// case bodies with each other and with first, when set.
func (c *checker) cases(compID ids.NodeID, ct, first types.Type, cases []*ast.Case) (types.Type, error) {
	result := first
	for _, cs := range cases {
		p := cs.Pattern
		switch p.Pat {
		case ast.PatLiteral:
			vt, err := c.check(p.Value)
			if err != nil {
				return nil, err
			}
			if err := c.comparison(p, compID, ct, vt); err != nil {
				return nil, err
			}
		case ast.PatBinding:
			bt, _ := c.sess.Type(p.ID())
			if _, err := c.expect(p, bt, ct, false); err != nil {
				return nil, err
			}
		}
		bt, err := c.check(cs.Body)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = bt
			continue
		}
		t, err := types.Check(c.sess, result, bt, types.ModeList, false)
		if err != nil {
			return nil, wrap(cs.Body.Pos(), err)
		}
		result = t
	}
	if result == nil {
		return c.unit(), nil
	}
	return result, nil
}

func (c *checker) class(n *ast.Class) (types.Type, error) {
	span := trace.Begin(c.tracer, trace.ScopeNode, "check_class", c.span)
	defer span.End(n.Spec.Name)

	if _, err := c.checkAll(n.Body); err != nil {
		return nil, err
	}
	d, err := c.sess.Def(n.ID())
	if err != nil {
		return nil, wrap(n.Pos(), err)
	}
	cls, err := defs.AsClass(d)
	if err != nil {
		return nil, wrap(n.Pos(), err)
	}
	if err := defs.BuildClass(c.sess, cls); err != nil {
		return nil, wrap(n.Pos(), err)
	}
	return c.unit(), nil
}

func isUnit(env types.Env, t types.Type) bool {
	return types.IsObject(types.Prune(env, t), types.UnitName)
}
