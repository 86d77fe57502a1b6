package mir

import (
	"strconv"

	"golang.org/x/text/unicode/norm"

	"molten/internal/ast"
	"molten/internal/builtins"
	"molten/internal/defs"
	"molten/internal/ids"
	"molten/internal/source"
	"molten/internal/symbols"
	"molten/internal/types"
)

func (l *lowerer) expr(n ast.Node) (Expr, error) {
	switch n := n.(type) {
	case *ast.Literal:
		return literal(n), nil

	case *ast.Nil:
		return ZeroLit(l.typeOf(n)), nil

	case *ast.Identifier:
		d, err := l.refDef(n)
		if err != nil {
			return nil, err
		}
		v, t, err := l.valueOf(n.Pos(), d)
		if err != nil {
			return nil, err
		}
		return coerce(v, t, l.typeOf(n)), nil

	case *ast.Block:
		var scope *symbols.Scope
		if n.Scoped {
			scope = l.sess.Scopes.Get(n.ID())
		}
		return l.inScope(scope, func() (Expr, error) { return l.block(n.Body) })

	case *ast.Definition:
		return l.definition(n)

	case *ast.Declare, *ast.TypeAlias:
		return UnitLit(), nil

	case *ast.Function:
		return l.function(n)

	case *ast.Invoke:
		return l.invoke(n)

	case *ast.SideEffect:
		if len(n.Args) == 0 {
			return BoolLit(n.Op == "and"), nil
		}
		return l.chain(n.Op, n.Args)

	case *ast.If:
		return l.ifExpr(n)

	case *ast.Match:
		return l.match(n)

	case *ast.Try:
		return l.try(n)

	case *ast.Raise:
		return l.raise(n)

	case *ast.While:
		cond, err := l.seq(func() (Expr, error) { return l.valueAs(n.Cond, Bool) })
		if err != nil {
			return nil, err
		}
		body, err := l.seq(func() (Expr, error) {
			v, err := l.expr(n.Body)
			if err != nil {
				return nil, err
			}
			l.discard(v)
			return UnitLit(), nil
		})
		if err != nil {
			return nil, err
		}
		return &Loop{Cond: cond, Body: body}, nil

	case *ast.Ref:
		v, err := l.expr(n.Value)
		if err != nil {
			return nil, err
		}
		vt := l.typeOf(n.Value)
		elem := vt
		if t := l.typeOf(n); t.Kind == TypePtr {
			elem = t.Elem
		}
		return &AllocRef{Type: elem, Value: coerce(v, vt, elem)}, nil

	case *ast.Deref:
		v, err := l.expr(n.Value)
		if err != nil {
			return nil, err
		}
		elem := Any
		if t := l.typeOf(n.Value); t.Kind == TypePtr {
			elem = t.Elem
		}
		return coerce(&LoadRef{Ref: v}, elem, l.typeOf(n)), nil

	case *ast.Tuple:
		return l.aggregate(n, n.Items)

	case *ast.Record:
		items := make([]ast.Node, len(n.Fields))
		for i, f := range n.Fields {
			items[i] = f.Value
		}
		return l.aggregate(n, items)

	case *ast.Accessor:
		return l.accessor(n)

	case *ast.Resolver:
		d, err := l.refDef(n)
		if err != nil {
			return nil, err
		}
		v, t, err := l.valueOf(n.Pos(), d)
		if err != nil {
			return nil, err
		}
		return coerce(v, t, l.typeOf(n)), nil

	case *ast.Assignment:
		return l.assignment(n)

	case *ast.New:
		return l.newObject(n)

	case *ast.Class:
		return l.class(n)

	case *ast.Import:
		return l.importUnit(n)

	case *ast.For, *ast.List, *ast.Index:
		return nil, structural(n.Pos(), "unrefined %s node", n.Kind())
	}
	return nil, structural(n.Pos(), "unexpected %s node", n.Kind())
}

func literal(n *ast.Literal) *Lit {
	switch n.Lit {
	case ast.LitBool:
		return BoolLit(n.Bool)
	case ast.LitInt:
		return IntLit(n.Int)
	case ast.LitReal:
		return &Lit{Kind: LitReal, Real: n.Real}
	case ast.LitString:
		return StrLit(norm.NFC.String(n.Str))
	case ast.LitChar:
		return &Lit{Kind: LitChar, Int: n.Int}
	}
	return UnitLit()
}

// valueAs lowers n and converts its value to t.
func (l *lowerer) valueAs(n ast.Node, t *Type) (Expr, error) {
	v, err := l.expr(n)
	if err != nil {
		return nil, err
	}
	return coerce(v, l.typeOf(n), t), nil
}

// block lowers a sequence, keeping only the value of the last node.
func (l *lowerer) block(body []ast.Node) (Expr, error) {
	if len(body) == 0 {
		return UnitLit(), nil
	}
	for _, n := range body[:len(body)-1] {
		v, err := l.expr(n)
		if err != nil {
			return nil, err
		}
		l.discard(v)
	}
	return l.expr(body[len(body)-1])
}

// branch lowers n into its own sequence yielding a value of type t. A unit
// branch drops whatever n produced.
func (l *lowerer) branch(n ast.Node, t *Type) ([]Expr, error) {
	return l.seq(func() (Expr, error) { return l.valueOrUnit(n, t) })
}

func (l *lowerer) valueOrUnit(n ast.Node, t *Type) (Expr, error) {
	if t.Kind != TypeUnit {
		return l.valueAs(n, t)
	}
	v, err := l.expr(n)
	if err != nil {
		return nil, err
	}
	l.discard(v)
	return UnitLit(), nil
}

func (l *lowerer) definition(n *ast.Definition) (Expr, error) {
	d, err := l.sess.Def(n.ID())
	if err != nil {
		return nil, structural(n.Pos(), "%v", err)
	}
	if _, ok := d.(*defs.Field); ok {
		return UnitLit(), nil
	}
	t := l.defType(n.ID())
	var v Expr = ZeroLit(t)
	if n.Value != nil {
		if v, err = l.valueAs(n.Value, t); err != nil {
			return nil, err
		}
	}
	l.emit(&DefLocal{ID: n.ID(), Name: n.Name, Type: t, Value: v})
	l.fr.locals[n.ID()] = true
	return &GetLocal{ID: n.ID()}, nil
}

// chain lowers a short-circuit "and" or "or" over args.
func (l *lowerer) chain(op string, args []ast.Node) (Expr, error) {
	first, err := l.valueAs(args[0], Bool)
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		return first, nil
	}
	rest, err := l.seq(func() (Expr, error) { return l.chain(op, args[1:]) })
	if err != nil {
		return nil, err
	}
	conds := [][]Expr{{first}, {BoolLit(true)}}
	if op == "or" {
		return &Phi{Type: Bool, Conds: conds, Blocks: [][]Expr{{BoolLit(true)}, rest}}, nil
	}
	return &Phi{Type: Bool, Conds: conds, Blocks: [][]Expr{rest, {BoolLit(false)}}}, nil
}

func (l *lowerer) ifExpr(n *ast.If) (Expr, error) {
	cond, err := l.valueAs(n.Cond, Bool)
	if err != nil {
		return nil, err
	}
	t := l.typeOf(n)
	then, err := l.branch(n.Then, t)
	if err != nil {
		return nil, err
	}
	els, err := l.branch(n.Else, t)
	if err != nil {
		return nil, err
	}
	return &Phi{
		Type:   t,
		Conds:  [][]Expr{{cond}, {BoolLit(true)}},
		Blocks: [][]Expr{then, els},
	}, nil
}

// aggregate builds the anonymous struct of a tuple or record. Every item
// but the last is spilled so items are evaluated left to right.
func (l *lowerer) aggregate(n ast.Node, items []ast.Node) (Expr, error) {
	t := l.typeOf(n)
	var slots []*Type
	if t.Kind == TypePtr && t.Elem.Kind == TypeStruct && len(t.Elem.Items) == len(items) {
		slots = t.Elem.Items
	} else {
		slots = make([]*Type, len(items))
		for i, it := range items {
			slots[i] = l.typeOf(it)
		}
	}
	vals := make([]Expr, len(items))
	for i, it := range items {
		v, err := l.valueAs(it, slots[i])
		if err != nil {
			return nil, err
		}
		if i < len(items)-1 {
			v = l.spill(v)
		}
		vals[i] = v
	}
	return &MakeStruct{Type: StructOf(slots...), Items: vals}, nil
}

// refDef returns the definition n refers to. References to an overload
// that the checker did not narrow take the first variant matching the
// type of n.
func (l *lowerer) refDef(n ast.Node) (defs.Def, error) {
	d, err := l.sess.RefDef(n.ID())
	if err != nil {
		return nil, structural(n.Pos(), "%v", err)
	}
	ov, ok := d.(*defs.Overload)
	if !ok {
		return d, nil
	}
	want, _ := l.sess.ResolvedType(n.ID())
	if _, ok := want.(*types.Overload); ok {
		want = nil
	}
	for _, v := range ov.Variants {
		vt, ok := l.sess.Type(v)
		if !ok {
			continue
		}
		if want != nil {
			if _, err := types.Check(types.NewLayer(l.sess), want, l.sess.Instantiate(vt), types.ModeDef, false); err != nil {
				continue
			}
		}
		vd, err := l.sess.Def(v)
		if err != nil {
			return nil, structural(n.Pos(), "%v", err)
		}
		return vd, nil
	}
	return nil, structural(n.Pos(), "no variant of %s matches", ov.Name)
}

// valueOf returns the value of definition d as seen from the current
// function, with its lowered type.
func (l *lowerer) valueOf(pos source.Pos, d defs.Def) (Expr, *Type, error) {
	switch d := d.(type) {
	case *defs.Var:
		if l.fr.locals[d.ID] {
			return &GetLocal{ID: d.ID}, l.defType(d.ID), nil
		}
		return l.captured(pos, d)

	case *defs.Arg:
		if t, ok := l.fr.params[d.ID]; ok {
			return &GetValue{ID: d.ID}, t, nil
		}
		return l.captured(pos, d)

	case *defs.Func:
		ft, ok := l.resolvedFunc(d.ID)
		if !ok {
			return nil, nil, structural(pos, "function %s has no type", d.Name)
		}
		t := PtrTo(l.funcSig(ft))
		if bf, ok := l.reg.Lookup(d.ID); ok && !bf.External() {
			return &GetValue{ID: l.wrapper(bf)}, t, nil
		}
		if d.Forward {
			return l.externFunc(d), t, nil
		}
		return &GetValue{ID: d.ID}, t, nil

	case *defs.CFunc:
		ft, ok := l.resolvedFunc(d.ID)
		if !ok {
			return nil, nil, structural(pos, "function %s has no type", d.Name)
		}
		return l.externFunc(d), PtrTo(l.funcSig(ft)), nil

	case *defs.Closure:
		t := l.defType(d.ID)
		switch {
		case l.fr.closure != nil && l.fr.closure.ID == d.ID:
			return &Cast{Type: t, Value: &GetValue{ID: d.ContextArgID}}, t, nil
		case d.GlobalID.IsValid():
			l.closureGlobal(d)
			return &GetGlobal{ID: d.GlobalID}, t, nil
		case l.fr.locals[d.ID]:
			return &GetLocal{ID: d.ID}, t, nil
		}
		return l.captured(pos, d)

	case *defs.Method:
		return l.valueOf(pos, d.Impl)
	}
	return nil, nil, structural(pos, "%s %q is not a value", d.DefKind(), d.DefName())
}

// captureRef returns a pointer to the context slot of the current closure
// that holds d, adding the slot on first use.
func (l *lowerer) captureRef(pos source.Pos, d defs.Def) (Expr, *Type, error) {
	cl := l.fr.closure
	if cl == nil {
		return nil, nil, structural(pos, "%s is not reachable from this function", d.DefName())
	}
	t, _ := l.sess.Type(d.DefID())
	idx := cl.FindOrAddField(l.sess, d.DefID(), d.DefName(), t)
	ctx := &Cast{
		Type:  PtrTo(NamedOf(cl.ContextTypeID, defs.ContextTypeName(cl.ID))),
		Value: &GetValue{ID: cl.ContextArgID},
	}
	return &AccessRef{Ref: ctx, Field: idx}, l.lowerType(t), nil
}

func (l *lowerer) captured(pos source.Pos, d defs.Def) (Expr, *Type, error) {
	ref, t, err := l.captureRef(pos, d)
	if err != nil {
		return nil, nil, err
	}
	return &LoadRef{Ref: ref}, t, nil
}

// externFunc declares a function defined outside the module.
func (l *lowerer) externFunc(d defs.Def) Expr {
	id := d.DefID()
	if _, ok := l.mod.Extern(id); !ok {
		sig := FuncOf(nil, Unit)
		if ft, ok := l.resolvedFunc(id); ok {
			sig = l.funcSig(ft)
		}
		l.mod.AddExtern(&Extern{ID: id, Name: l.funcName(d, l.sess.Scopes.Global), Type: sig})
	}
	return &GetValue{ID: id}
}

// closureGlobal declares the global holding the value of a closure
// defined at module or class level.
func (l *lowerer) closureGlobal(cl *defs.Closure) *Global {
	if g, ok := l.mod.Global(cl.GlobalID); ok {
		return g
	}
	g := &Global{
		ID:       cl.GlobalID,
		Name:     l.funcName(cl, l.sess.Scopes.Global),
		Type:     l.defType(cl.ID),
		External: cl.Forward,
	}
	l.mod.AddGlobal(g)
	return g
}

// wrapper returns a function implementing the builtin bf, for builtins
// used as values rather than called.
func (l *lowerer) wrapper(bf *builtins.Func) ids.NodeID {
	if id, ok := l.wrappers[bf.ID]; ok {
		return id
	}
	sig := l.funcSig(bf.Type)
	fn := &Func{ID: l.sess.NextID(), Name: "builtin." + string(bf.Op), Type: sig}
	args := make([]Expr, 0, len(sig.Items))
	for i, t := range sig.Items {
		p := Param{ID: l.sess.NextID(), Name: "a" + strconv.Itoa(i), Type: t}
		if t.Kind == TypeEscape {
			p.Name = defs.ExceptionArg
		} else {
			args = append(args, &GetValue{ID: p.ID})
		}
		fn.Params = append(fn.Params, p)
	}
	fn.Body = []Expr{&Builtin{Op: bf.Op, Args: args}}
	l.mod.AddFunc(fn)
	l.wrappers[bf.ID] = fn.ID
	return fn.ID
}
