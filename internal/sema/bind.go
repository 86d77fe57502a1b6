// Package sema resolves names and checks types over the refined tree.
//
// Bind walks the tree once, opening a scope for every scoped block,
// function, case and class body, defining each binding and recording for
// every identifier the definition it refers to. Check then infers a type
// for every node by unification and selects overload variants. Both phases
// stop at the first error, returned as a *diag.Error carrying the position
// of the offending node.
package sema

import (
	"context"

	"molten/internal/ast"
	"molten/internal/defs"
	"molten/internal/diag"
	"molten/internal/ids"
	"molten/internal/session"
	"molten/internal/symbols"
	"molten/internal/trace"
	"molten/internal/types"
)

type binder struct {
	ctx    context.Context
	sess   *session.Session
	tracer trace.Tracer
	span   uint64
	// vars maps type-variable names written in annotations.
	vars *typeVars
}

// Bind resolves every name in code against the global scope of sess.
func Bind(ctx context.Context, sess *session.Session, code []ast.Node) error {
	span := trace.Begin(sess.Tracer, trace.ScopePass, "bind", trace.CurrentSpan(ctx))
	defer span.End("")

	b := &binder{ctx: ctx, sess: sess, tracer: sess.Tracer, span: span.ID()}
	scope := sess.Scopes.Global
	for _, n := range code {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.node(scope, n); err != nil {
			return err
		}
	}
	return nil
}

func (b *binder) nodes(scope *symbols.Scope, code []ast.Node) error {
	for _, n := range code {
		if err := b.node(scope, n); err != nil {
			return err
		}
	}
	return nil
}

func (b *binder) opt(scope *symbols.Scope, n ast.Node) error {
	if n == nil {
		return nil
	}
	return b.node(scope, n)
}

func (b *binder) node(scope *symbols.Scope, n ast.Node) error {
	switch n := n.(type) {
	case *ast.Literal, *ast.Nil:
		return nil

	case *ast.Identifier:
		sym, _, err := scope.Lookup(n.Name)
		if err != nil {
			return wrap(n.Pos(), err)
		}
		b.sess.SetRef(n.ID(), sym.Def)
		return nil

	case *ast.Block:
		if n.Scoped {
			scope = b.sess.Scopes.Add(n.ID(), symbols.Lexical(scope), symbols.ContextBlock)
		}
		return b.nodes(scope, n.Body)

	case *ast.Definition:
		return b.definition(scope, n)

	case *ast.Declare:
		return b.declare(scope, n)

	case *ast.Function:
		return b.function(scope, n)

	case *ast.Invoke:
		if err := b.node(scope, n.Func); err != nil {
			return err
		}
		return b.nodes(scope, n.Args)

	case *ast.SideEffect:
		return b.nodes(scope, n.Args)

	case *ast.If:
		return b.nodes(scope, []ast.Node{n.Cond, n.Then, n.Else})

	case *ast.Match:
		if err := b.node(scope, n.Cond); err != nil {
			return err
		}
		return b.cases(scope, n.CompID, n.Cases)

	case *ast.Try:
		if err := b.node(scope, n.Body); err != nil {
			return err
		}
		return b.cases(scope, n.CompID, n.Cases)

	case *ast.Raise:
		return b.node(scope, n.Value)

	case *ast.While:
		return b.nodes(scope, []ast.Node{n.Cond, n.Body})

	case *ast.Ref:
		return b.node(scope, n.Value)

	case *ast.Deref:
		return b.node(scope, n.Value)

	case *ast.Tuple:
		return b.nodes(scope, n.Items)

	case *ast.Record:
		for _, f := range n.Fields {
			if err := b.node(scope, f.Value); err != nil {
				return err
			}
		}
		return nil

	case *ast.Accessor:
		return b.node(scope, n.Object)

	case *ast.Resolver:
		return b.resolver(scope, n)

	case *ast.Assignment:
		return b.assignment(scope, n)

	case *ast.New:
		cls, err := b.lookupClass(scope, n.Class.Name)
		if err != nil {
			return wrap(n.Pos(), err)
		}
		b.sess.SetRef(n.ID(), cls.ID)
		return nil

	case *ast.Class:
		return b.class(scope, n)

	case *ast.TypeAlias:
		t, err := b.bindType(scope, n.Type)
		if err != nil {
			return wrap(n.Pos(), err)
		}
		if _, err := scope.DefineType(n.Spec.Name, n.ID(), t); err != nil {
			return wrap(n.Pos(), err)
		}
		return nil

	case *ast.Import:
		return b.nodes(scope, n.Decls)
	}
	return diag.Errorf(diag.InternalInvariant, n.Pos(), "bind: unexpected %s node", n.Kind())
}

func (b *binder) definition(scope *symbols.Scope, n *ast.Definition) error {
	if err := b.opt(scope, n.Value); err != nil {
		return err
	}
	var t types.Type
	if n.Type != nil {
		bound, err := b.bindType(scope, n.Type)
		if err != nil {
			return wrap(n.Pos(), err)
		}
		t = bound
	} else {
		t = b.sess.Fresh("")
	}

	target := scope.Target()
	mutable := n.Mut == ast.Mutable
	var d defs.Def = &defs.Var{ID: n.ID(), Name: n.Name, Mutable: mutable}
	if target.Context == symbols.ContextClass {
		d = &defs.Field{ID: n.ID(), Name: n.Name, Class: target.ID, Mutable: true}
		mutable = true
	}
	if _, err := scope.Define(n.Name, n.ID(), mutable); err != nil {
		return wrap(n.Pos(), err)
	}
	b.sess.SetDef(n.ID(), d)
	b.sess.SetType(n.ID(), t)
	return nil
}

func (b *binder) declare(scope *symbols.Scope, n *ast.Declare) error {
	saved := b.vars
	b.vars = newTypeVars(b.vars, true)
	defer func() { b.vars = saved }()

	t, err := b.bindType(scope, n.Type)
	if err != nil {
		return wrap(n.Pos(), err)
	}
	ft, ok := t.(*types.Function)
	if !ok {
		return wrap(n.Pos(), &types.MismatchError{Expected: types.NewFunction(nil, b.sess.Fresh(""), types.ABIUnknown), Actual: t})
	}
	spec := defs.FuncSpec{ID: n.ID(), Name: n.Name, ABI: ft.ABI, Vis: n.Vis, Forward: true, Type: ft}
	if _, err := defs.DefineFunc(b.sess, scope, spec); err != nil {
		return wrap(n.Pos(), err)
	}
	return nil
}

func (b *binder) function(scope *symbols.Scope, n *ast.Function) error {
	span := trace.Begin(b.tracer, trace.ScopeNode, "bind_fn", b.span)
	defer span.End(n.Name)

	saved := b.vars
	b.vars = newTypeVars(b.vars, false)
	defer func() { b.vars = saved }()

	for _, a := range n.Args {
		if err := b.opt(scope, a.Default); err != nil {
			return err
		}
	}

	cls := b.enclosingClass(scope)
	args := make([]types.Type, len(n.Args))
	for i, a := range n.Args {
		switch {
		case a.Type != nil:
			t, err := b.bindType(scope, a.Type)
			if err != nil {
				return wrap(a.Pos(), err)
			}
			args[i] = t
		case a.Name == selfName && cls != nil:
			args[i] = cls.Type
		default:
			args[i] = b.sess.Fresh("")
		}
	}
	var ret types.Type
	if n.Ret != nil {
		t, err := b.bindType(scope, n.Ret)
		if err != nil {
			return wrap(n.Pos(), err)
		}
		ret = t
	} else {
		ret = b.sess.Fresh("")
	}
	ft := types.NewFunction(args, ret, n.ABI)

	prev := b.forwardOf(scope, n)
	spec := defs.FuncSpec{ID: n.ID(), Name: n.Name, ABI: n.ABI, Vis: n.Vis, Type: ft}
	if _, err := defs.DefineFunc(b.sess, scope, spec); err != nil {
		return wrap(n.Pos(), err)
	}
	if prev.IsValid() {
		if err := b.completeForward(n, prev, ft); err != nil {
			return err
		}
	}

	fscope := b.sess.Scopes.Add(n.ID(), symbols.Lexical(scope), symbols.ContextFunc)
	fscope.Basename = n.Name
	for i, a := range n.Args {
		if _, err := fscope.Define(a.Name, a.ID(), false); err != nil {
			return wrap(a.Pos(), err)
		}
		b.sess.SetDef(a.ID(), &defs.Arg{ID: a.ID(), Name: a.Name})
		b.sess.SetType(a.ID(), args[i])
	}
	return b.node(fscope, n.Body)
}

// forwardOf returns the forward declaration n will complete, if any.
func (b *binder) forwardOf(scope *symbols.Scope, n *ast.Function) ids.NodeID {
	if n.Name == "" {
		return ids.NoID
	}
	sym, ok := scope.Target().Local(n.Name)
	if !ok {
		return ids.NoID
	}
	d, err := b.sess.Def(sym.Def)
	if err != nil {
		return ids.NoID
	}
	for _, v := range defs.Variants(d) {
		vd, err := b.sess.Def(v)
		if err != nil || !defs.IsForward(vd) {
			continue
		}
		if t, ok := b.sess.Type(v); ok && arity(b.sess, t) == len(n.Args) {
			return v
		}
	}
	return ids.NoID
}

// completeForward unifies a definition with the signature its forward
// declaration promised.
func (b *binder) completeForward(n *ast.Function, prev ids.NodeID, ft *types.Function) error {
	declared, ok := b.sess.Type(prev)
	if !ok {
		return nil
	}
	if _, err := types.Expect(b.sess, b.sess.Instantiate(declared), ft, types.ModeDef); err != nil {
		return wrap(n.Pos(), err)
	}
	return nil
}

func (b *binder) cases(scope *symbols.Scope, compID ids.NodeID, cases []*ast.Case) error {
	for _, c := range cases {
		p := c.Pattern
		cscope := b.sess.Scopes.Add(p.ID(), symbols.Lexical(scope), symbols.ContextBlock)
		switch p.Pat {
		case ast.PatLiteral:
			if err := b.node(scope, p.Value); err != nil {
				return err
			}
			sym, _, err := scope.Lookup(eqName)
			if err != nil {
				return wrap(p.Pos(), err)
			}
			b.sess.SetRef(compID, sym.Def)
		case ast.PatBinding:
			if _, err := cscope.Define(p.Name, p.ID(), false); err != nil {
				return wrap(p.Pos(), err)
			}
			b.sess.SetDef(p.ID(), &defs.Var{ID: p.ID(), Name: p.Name})
			b.sess.SetType(p.ID(), b.sess.Fresh(""))
		}
		if err := b.node(cscope, c.Body); err != nil {
			return err
		}
	}
	return nil
}

func (b *binder) resolver(scope *symbols.Scope, n *ast.Resolver) error {
	path, ok := n.Path.(*ast.Identifier)
	if !ok {
		return diag.Errorf(diag.SynInvalidResolver, n.Pos(), "left-hand side of :: must name a class")
	}
	cls, err := b.lookupClass(scope, path.Name)
	if err != nil {
		return wrap(n.Pos(), err)
	}
	b.sess.SetRef(n.OID, cls.ID)
	// members of classes defined further down are resolved by the checker
	if sym, err := cls.Vars.LookupMember(n.Field); err == nil {
		b.sess.SetRef(n.ID(), sym.Def)
	}
	return nil
}

func (b *binder) assignment(scope *symbols.Scope, n *ast.Assignment) error {
	if err := b.node(scope, n.Right); err != nil {
		return err
	}
	if err := b.node(scope, n.Left); err != nil {
		return err
	}
	id, ok := n.Left.(*ast.Identifier)
	if !ok {
		return nil
	}
	sym, _, err := scope.Lookup(id.Name)
	if err != nil {
		return wrap(id.Pos(), err)
	}
	if !sym.Mutable {
		return wrap(n.Pos(), &ImmutableError{Name: id.Name})
	}
	return nil
}

func (b *binder) class(scope *symbols.Scope, n *ast.Class) error {
	span := trace.Begin(b.tracer, trace.ScopeNode, "bind_class", b.span)
	defer span.End(n.Spec.Name)

	saved := b.vars
	b.vars = newTypeVars(b.vars, true)
	defer func() { b.vars = saved }()

	params := make([]types.Type, len(n.Spec.Params))
	for i, p := range n.Spec.Params {
		v, ok := p.(*types.Variable)
		if !ok {
			return diag.Errorf(diag.SemaTypeMismatch, n.Pos(), "class parameter %s of %s is not a type variable", p, n.Spec.Name)
		}
		params[i] = b.vars.get(b.sess, v.Name)
	}
	typ := types.NewObject(n.Spec.Name, n.ID(), params...)

	var (
		parent     *defs.ClassDef
		parentType *types.Object
	)
	if n.Parent != nil {
		cls, err := b.lookupClass(scope, n.Parent.Name)
		if err != nil {
			return wrap(n.Parent.At, err)
		}
		pt, err := b.bindType(scope, n.Parent.Type())
		if err != nil {
			return wrap(n.Parent.At, err)
		}
		parent, parentType = cls, pt.(*types.Object)
	}

	if _, err := scope.DefineType(n.Spec.Name, n.ID(), nil); err != nil {
		return wrap(n.Pos(), err)
	}
	cls := defs.NewClass(n.ID(), typ, parentType, parent, scope)
	b.sess.SetDef(n.ID(), cls)
	b.sess.SetType(n.ID(), typ)

	body := b.sess.Scopes.Add(n.ID(), symbols.Redirect(cls.Vars), symbols.ContextBlock)
	cls.Scope = body
	cls.Body = n.Body
	return b.nodes(body, n.Body)
}

// enclosingClass returns the class whose body scope directly holds scope.
func (b *binder) enclosingClass(scope *symbols.Scope) *defs.ClassDef {
	target := scope.Target()
	if target.Context != symbols.ContextClass {
		return nil
	}
	d, err := b.sess.Def(target.ID)
	if err != nil {
		return nil
	}
	cls, _ := defs.AsClass(d)
	return cls
}

func (b *binder) lookupClass(scope *symbols.Scope, name string) (*defs.ClassDef, error) {
	sym, err := scope.LookupType(name)
	if err != nil {
		return nil, err
	}
	if sym.Alias != nil {
		if o, ok := sym.Alias.(*types.Object); ok && o.ID.IsValid() {
			d, err := b.sess.Def(o.ID)
			if err != nil {
				return nil, err
			}
			return defs.AsClass(d)
		}
		return nil, &AliasError{Name: name, Alias: sym.Alias}
	}
	d, err := b.sess.Def(sym.Def)
	if err != nil {
		return nil, err
	}
	return defs.AsClass(d)
}

func arity(env types.Env, t types.Type) int {
	if f, ok := types.Prune(env, t).(*types.Function); ok {
		return len(f.Args)
	}
	return -1
}
