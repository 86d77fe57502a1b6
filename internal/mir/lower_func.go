package mir

import (
	"molten/internal/ast"
	"molten/internal/defs"
	"molten/internal/ids"
	"molten/internal/sema"
	"molten/internal/symbols"
	"molten/internal/trace"
	"molten/internal/types"
)

// function lowers a function definition and yields its value: the
// function itself for the C and MoltenFunc conventions, a freshly built
// closure otherwise.
func (l *lowerer) function(n *ast.Function) (Expr, error) {
	span := trace.Begin(l.tracer, trace.ScopeNode, "lower_fn", l.span)
	defer span.End(n.Name)

	d, err := l.sess.Def(n.ID())
	if err != nil {
		return nil, structural(n.Pos(), "%v", err)
	}
	if m, ok := d.(*defs.Method); ok {
		d = m.Impl
	}
	ft, ok := l.resolvedFunc(n.ID())
	if !ok {
		return nil, structural(n.Pos(), "function %s has no function type", n.Name)
	}
	scope := l.sess.Scopes.Get(n.ID())
	if scope == nil {
		return nil, structural(n.Pos(), "function %s has no scope", n.Name)
	}
	switch d := d.(type) {
	case *defs.Func:
		return l.plainFunc(n, d, ft, scope)
	case *defs.Closure:
		return l.closure(n, d, ft, scope)
	}
	return nil, structural(n.Pos(), "function %s is defined as %s", n.Name, d.DefKind())
}

func (l *lowerer) plainFunc(n *ast.Function, d *defs.Func, ft *types.Function, scope *symbols.Scope) (Expr, error) {
	sig := l.funcSig(ft)
	fn := &Func{ID: d.ID, Name: l.funcName(d, l.scope), Public: d.Vis == ast.Public, Type: sig}
	l.mod.AddFunc(fn)

	fr := newFrame(nil, ids.NoID)
	fn.Params = l.params(fr, n.Args, sig)
	if ft.ABI == types.ABIMoltenFunc {
		expID := l.sess.NextID()
		fn.Params = append(fn.Params, Param{ID: expID, Name: defs.ExceptionArg, Type: EscapeType})
		fr.expoints = []ids.NodeID{expID}
	}
	body, err := l.inFrame(fr, scope, func() (Expr, error) { return l.valueAs(n.Body, sig.Ret) })
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return &GetValue{ID: d.ID}, nil
}

// closure lowers the body of cl into a raw function taking the context
// and exception arguments last, then builds the context that pairs the
// raw function with the captured values. Closures defined at module or
// class level are stored in their global.
func (l *lowerer) closure(n *ast.Function, cl *defs.Closure, ft *types.Function, scope *symbols.Scope) (Expr, error) {
	sig := l.funcSig(ft)
	base := l.funcName(cl, l.scope)
	if cl.GlobalID.IsValid() {
		base = l.closureGlobal(cl).Name
	}
	raw := &Func{ID: l.sess.NextID(), Name: base + "_func", Public: cl.Vis == ast.Public, Type: sig}
	l.mod.AddFunc(raw)
	if cl.Context.Len() == 0 {
		cl.Context.SetField(l.sess, raw.ID, defs.FuncField, ft)
	}

	expID := l.sess.NextID()
	fr := newFrame(cl, expID)
	raw.Params = append(l.params(fr, n.Args, sig),
		Param{ID: cl.ContextArgID, Name: defs.ContextArg, Type: Any},
		Param{ID: expID, Name: defs.ExceptionArg, Type: EscapeType},
	)
	body, err := l.inFrame(fr, scope, func() (Expr, error) { return l.valueAs(n.Body, sig.Ret) })
	if err != nil {
		return nil, err
	}
	raw.Body = body

	caps := cl.Captures()
	fields := make([]*Type, 0, len(caps)+1)
	items := make([]Expr, 0, len(caps)+1)
	fields = append(fields, PtrTo(sig))
	items = append(items, &GetValue{ID: raw.ID})
	for _, c := range caps {
		d, err := l.sess.Def(c.ID)
		if err != nil {
			return nil, structural(n.Pos(), "%v", err)
		}
		v, vt, err := l.valueOf(n.Pos(), d)
		if err != nil {
			return nil, err
		}
		ct := l.lowerType(c.Type)
		fields = append(fields, ct)
		items = append(items, coerce(v, vt, ct))
	}
	ctxName := defs.ContextTypeName(cl.ID)
	l.mod.AddStruct(&Struct{ID: cl.ContextTypeID, Name: ctxName, Fields: fields})

	t := ClosureOf(sig)
	value := &Cast{Type: t, Value: &MakeStruct{Type: NamedOf(cl.ContextTypeID, ctxName), Items: items}}
	switch {
	case cl.GlobalID.IsValid():
		l.emit(&SetGlobal{ID: cl.GlobalID, Value: value})
		return &GetGlobal{ID: cl.GlobalID}, nil
	case n.Name != "":
		l.emit(&DefLocal{ID: cl.ID, Name: n.Name, Type: t, Value: value})
		l.fr.locals[cl.ID] = true
		return &GetLocal{ID: cl.ID}, nil
	}
	return value, nil
}

// params declares the explicit parameters of a function in fr.
func (l *lowerer) params(fr *frame, args []*ast.Argument, sig *Type) []Param {
	out := make([]Param, 0, len(args)+2)
	for i, a := range args {
		out = append(out, Param{ID: a.ID(), Name: a.Name, Type: sig.Items[i]})
		fr.params[a.ID()] = sig.Items[i]
	}
	return out
}

func (l *lowerer) invoke(n *ast.Invoke) (Expr, error) {
	if acc, ok := n.Func.(*ast.Accessor); ok && sema.IsMethodCall(l.sess, acc) {
		return l.methodCall(n, acc)
	}
	switch n.Func.(type) {
	case *ast.Identifier, *ast.Resolver:
		d, err := l.refDef(n.Func)
		if err != nil {
			return nil, err
		}
		if defs.IsFunction(d) {
			return l.directCall(n, d)
		}
	}
	fv, err := l.expr(n.Func)
	if err != nil {
		return nil, err
	}
	ft, ok := l.resolvedFunc(n.Func.ID())
	if !ok {
		return nil, structural(n.Pos(), "callee is not a function")
	}
	return l.call(n, fv, ft, nil)
}

// directCall calls a function definition through its declared signature.
// Builtins implemented by the backend become Builtin operations.
func (l *lowerer) directCall(n *ast.Invoke, d defs.Def) (Expr, error) {
	ft, ok := l.resolvedFunc(d.DefID())
	if !ok {
		return nil, structural(n.Pos(), "function %s has no type", d.DefName())
	}
	if bf, ok := l.reg.Lookup(d.DefID()); ok && !bf.External() {
		sig := l.funcSig(ft)
		args, err := l.args(n, n.Args, sig.Items[:len(ft.Args)])
		if err != nil {
			return nil, err
		}
		return coerce(&Builtin{Op: bf.Op, Args: args}, sig.Ret, l.typeOf(n)), nil
	}
	fv, _, err := l.valueOf(n.Pos(), d)
	if err != nil {
		return nil, err
	}
	return l.call(n, fv, ft, nil)
}

// methodCall passes the accessed object as the first argument. Methods
// with a vtable slot in the object's static class are dispatched through
// the vtable of the object; builtin members become Builtin operations.
func (l *lowerer) methodCall(n *ast.Invoke, acc *ast.Accessor) (Expr, error) {
	d, err := l.refDef(acc)
	if err != nil {
		return nil, err
	}
	m, err := defs.AsMethod(d)
	if err != nil {
		return nil, structural(acc.Pos(), "%v", err)
	}
	ot, _ := l.sess.Type(acc.OID)
	cls, err := l.sess.ClassOf(ot)
	if err != nil {
		return nil, structural(acc.Pos(), "%v", err)
	}
	ft, ok := l.resolvedFunc(m.ID)
	if !ok {
		return nil, structural(acc.Pos(), "method %s has no type", m.Name)
	}

	obj, err := l.expr(acc.Object)
	if err != nil {
		return nil, err
	}
	obj = l.spill(obj)
	objT := l.typeOf(acc.Object)

	if bf, ok := l.reg.Lookup(m.ID); ok && !bf.External() {
		sig := l.funcSig(ft)
		if len(ft.Args) == 0 {
			return nil, structural(acc.Pos(), "method %s takes no self argument", m.Name)
		}
		args, err := l.args(n, n.Args, sig.Items[1:len(ft.Args)])
		if err != nil {
			return nil, err
		}
		self := coerce(obj, objT, sig.Items[0])
		return coerce(&Builtin{Op: bf.Op, Args: append([]Expr{self}, args...)}, sig.Ret, l.typeOf(n)), nil
	}

	var fv Expr
	slot, field := cls.Vtable.IndexByID(m.ID), cls.Struct.Index(defs.VtableField)
	if slot >= 0 && field >= 0 {
		eft, ok := types.Resolve(l.sess, cls.Vtable.Entries[slot].Type).(*types.Function)
		if !ok {
			return nil, structural(acc.Pos(), "vtable slot %s.%s is not a function", cls.Name, m.Name)
		}
		ft = eft
		self := coerce(obj, objT, PtrTo(l.named[cls.ID]))
		table := &LoadRef{Ref: &AccessRef{Ref: self, Field: field}}
		fv = &LoadRef{Ref: &AccessRef{Ref: table, Field: slot}}
	} else if fv, _, err = l.valueOf(acc.Pos(), m); err != nil {
		return nil, err
	}
	if len(ft.Args) == 0 {
		return nil, structural(acc.Pos(), "method %s takes no self argument", m.Name)
	}
	self := coerce(obj, objT, l.lowerType(ft.Args[0]))
	return l.call(n, fv, ft, []Expr{self})
}

// call applies the function value fv of type ft to the arguments of n,
// after the already lowered leading arguments in pre.
func (l *lowerer) call(n *ast.Invoke, fv Expr, ft *types.Function, pre []Expr) (Expr, error) {
	sig := l.funcSig(ft)
	if len(n.Args) > 0 {
		fv = l.spill(fv)
	}
	if len(ft.Args) < len(pre) {
		return nil, structural(n.Pos(), "call with %d leading arguments to %s", len(pre), ft)
	}
	args, err := l.args(n, n.Args, sig.Items[len(pre):len(ft.Args)])
	if err != nil {
		return nil, err
	}
	v, err := l.apply(n, fv, ft, append(pre, args...))
	if err != nil {
		return nil, err
	}
	return coerce(v, sig.Ret, l.typeOf(n)), nil
}

// args lowers call arguments to the parameter types; all but the last are
// spilled to keep left-to-right evaluation.
func (l *lowerer) args(n ast.Node, nodes []ast.Node, params []*Type) ([]Expr, error) {
	if len(nodes) != len(params) {
		return nil, structural(n.Pos(), "call with %d arguments to a function of %d", len(nodes), len(params))
	}
	out := make([]Expr, len(nodes))
	for i, a := range nodes {
		v, err := l.valueAs(a, params[i])
		if err != nil {
			return nil, err
		}
		if i < len(nodes)-1 {
			v = l.spill(v)
		}
		out[i] = v
	}
	return out, nil
}

// apply emits the call of fv according to the convention of ft: C
// functions take the arguments only, MoltenFunc functions add the current
// escape point and closures add their context before it.
func (l *lowerer) apply(n ast.Node, fv Expr, ft *types.Function, args []Expr) (Expr, error) {
	if ft.ABI == types.ABIC {
		return &Call{Func: fv, Args: args}, nil
	}
	exc, err := l.exception(n)
	if err != nil {
		return nil, err
	}
	if ft.ABI == types.ABIMoltenFunc {
		return &Call{Func: fv, Args: append(args, exc)}, nil
	}
	fv = l.spill(fv)
	raw := &LoadRef{Ref: &AccessRef{Ref: fv, Field: 0}}
	return &Call{Func: raw, Args: append(args, &Cast{Type: Any, Value: fv}, exc)}, nil
}
