package llvm

import (
	"fmt"

	"fortio.org/safecast"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"molten/internal/mir"
)

func (fe *funcEmitter) expr(e mir.Expr) (value.Value, error) {
	switch e := e.(type) {
	case *mir.Lit:
		return fe.emitter.literal(e)

	case *mir.GetValue:
		return fe.lookup(e.ID)

	case *mir.SetValue:
		v, err := fe.expr(e.Value)
		if err != nil {
			return nil, err
		}
		if err := fe.bind(e.ID, v); err != nil {
			return nil, err
		}
		return v, nil

	case *mir.DefLocal:
		return fe.defLocal(e)

	case *mir.GetLocal:
		s, ok := fe.locals[e.ID]
		if !ok {
			return nil, fmt.Errorf("local %s is not defined", e.ID)
		}
		return fe.cur.NewLoad(s.typ, s.ptr), nil

	case *mir.SetLocal:
		s, ok := fe.locals[e.ID]
		if !ok {
			return nil, fmt.Errorf("local %s is not defined", e.ID)
		}
		return fe.store(s.ptr, s.typ, e.Value)

	case *mir.GetGlobal:
		g, ok := fe.emitter.globals[e.ID]
		if !ok {
			return nil, fmt.Errorf("global %s is not declared", e.ID)
		}
		return fe.cur.NewLoad(g.ContentType, g), nil

	case *mir.SetGlobal:
		g, ok := fe.emitter.globals[e.ID]
		if !ok {
			return nil, fmt.Errorf("global %s is not declared", e.ID)
		}
		return fe.store(g, g.ContentType, e.Value)

	case *mir.Call:
		return fe.call(e)

	case *mir.Builtin:
		args, err := fe.exprs(e.Args)
		if err != nil {
			return nil, err
		}
		return fe.builtin(e.Op, args)

	case *mir.Cast:
		v, err := fe.expr(e.Value)
		if err != nil {
			return nil, err
		}
		t, err := fe.emitter.llvmType(e.Type)
		if err != nil {
			return nil, err
		}
		return fe.convert(v, t)

	case *mir.Cmp:
		return fe.cmp(e)

	case *mir.Phi:
		return fe.phi(e)

	case *mir.Loop:
		return fe.loop(e)

	case *mir.AllocRef:
		t, err := fe.emitter.llvmType(e.Type)
		if err != nil {
			return nil, err
		}
		ref := fe.alloc(t)
		if e.Value == nil {
			fe.cur.NewStore(zeroValue(t), ref)
			return ref, nil
		}
		if _, err := fe.store(ref, t, e.Value); err != nil {
			return nil, err
		}
		return ref, nil

	case *mir.MakeStruct:
		return fe.makeStruct(e)

	case *mir.AccessRef:
		ref, err := fe.expr(e.Ref)
		if err != nil {
			return nil, err
		}
		return fe.field(ref, e.Field)

	case *mir.LoadRef:
		ref, err := fe.expr(e.Ref)
		if err != nil {
			return nil, err
		}
		pt, ok := ref.Type().(*types.PointerType)
		if !ok {
			return nil, fmt.Errorf("load through %s", ref.Type())
		}
		return fe.cur.NewLoad(pt.ElemType, ref), nil

	case *mir.StoreRef:
		ref, err := fe.expr(e.Ref)
		if err != nil {
			return nil, err
		}
		pt, ok := ref.Type().(*types.PointerType)
		if !ok {
			return nil, fmt.Errorf("store through %s", ref.Type())
		}
		return fe.store(ref, pt.ElemType, e.Value)

	case *mir.Escape:
		return fe.escape(e)

	case *mir.Jump:
		return fe.jump(e)
	}
	return nil, fmt.Errorf("unsupported expression %T", e)
}

func (e *Emitter) literal(l *mir.Lit) (value.Value, error) {
	switch l.Kind {
	case mir.LitUnit:
		return constant.False, nil
	case mir.LitBool:
		if l.Bool {
			return constant.True, nil
		}
		return constant.False, nil
	case mir.LitByte:
		return constant.NewInt(types.I8, l.Int), nil
	case mir.LitChar:
		return constant.NewInt(types.I32, l.Int), nil
	case mir.LitInt:
		return i64(l.Int), nil
	case mir.LitReal:
		return constant.NewFloat(types.Double, l.Real), nil
	case mir.LitStr:
		return e.stringConst(l.Str), nil
	case mir.LitNull:
		t, err := e.llvmType(l.Type)
		if err != nil {
			return nil, err
		}
		return zeroValue(t), nil
	}
	return nil, fmt.Errorf("unknown literal kind %d", l.Kind)
}

func (fe *funcEmitter) defLocal(e *mir.DefLocal) (value.Value, error) {
	t, err := fe.emitter.llvmType(e.Type)
	if err != nil {
		return nil, err
	}
	s := fe.alloca(t)
	if e.Name != "" {
		fe.blocks++
		s.ptr.SetName(fmt.Sprintf("%s.%d", e.Name, fe.blocks))
	}
	fe.locals[e.ID] = s
	if e.Value == nil {
		fe.cur.NewStore(zeroValue(t), s.ptr)
		return zeroValue(t), nil
	}
	return fe.store(s.ptr, t, e.Value)
}

// store evaluates x, converts it to t and writes it through ptr.
func (fe *funcEmitter) store(ptr value.Value, t types.Type, x mir.Expr) (value.Value, error) {
	v, err := fe.expr(x)
	if err != nil {
		return nil, err
	}
	cv, err := fe.convert(v, t)
	if err != nil {
		return nil, err
	}
	fe.cur.NewStore(cv, ptr)
	return cv, nil
}

// call converts the arguments to the parameter types of the callee. A
// callee that is not a function pointer is reinterpreted with the types of
// the arguments and a generic result.
func (fe *funcEmitter) call(e *mir.Call) (value.Value, error) {
	fn, err := fe.expr(e.Func)
	if err != nil {
		return nil, err
	}
	args, err := fe.exprs(e.Args)
	if err != nil {
		return nil, err
	}
	sig, ok := funcSigOf(fn.Type())
	if !ok {
		params := make([]types.Type, len(args))
		for i, a := range args {
			params[i] = a.Type()
		}
		sig = types.NewFunc(types.I8Ptr, params...)
		if fn, err = fe.convert(fn, types.NewPointer(sig)); err != nil {
			return nil, err
		}
	}
	if len(args) < len(sig.Params) || (len(args) > len(sig.Params) && !sig.Variadic) {
		return nil, fmt.Errorf("call with %d arguments to %s", len(args), sig)
	}
	for i, pt := range sig.Params {
		if args[i], err = fe.convert(args[i], pt); err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
	}
	call := fe.cur.NewCall(fn, args...)
	if types.IsVoid(sig.RetType) {
		return constant.False, nil
	}
	return call, nil
}

// cmp compares two integers, widening the narrower one. Pointers compare
// by address and reals by value.
func (fe *funcEmitter) cmp(e *mir.Cmp) (value.Value, error) {
	left, err := fe.expr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := fe.expr(e.Right)
	if err != nil {
		return nil, err
	}
	if isFloat(left.Type()) || isFloat(right.Type()) {
		if left, err = fe.convert(left, types.Double); err != nil {
			return nil, err
		}
		if right, err = fe.convert(right, types.Double); err != nil {
			return nil, err
		}
		pred := enum.FPredOEQ
		if e.Op == mir.CmpNe {
			pred = enum.FPredONE
		}
		return fe.cur.NewFCmp(pred, left, right), nil
	}
	lb, lok := intBits(left.Type())
	rb, rok := intBits(right.Type())
	t := types.Type(types.I64)
	if lok && rok && lb == rb {
		t = left.Type()
	}
	if left, err = fe.convert(left, t); err != nil {
		return nil, err
	}
	if right, err = fe.convert(right, t); err != nil {
		return nil, err
	}
	pred := enum.IPredEQ
	if e.Op == mir.CmpNe {
		pred = enum.IPredNE
	}
	return fe.cur.NewICmp(pred, left, right), nil
}

// phi lowers a chain of conditions. Each condition is tested in its own
// block; the result is stored in a stack cell read after the join.
func (fe *funcEmitter) phi(e *mir.Phi) (value.Value, error) {
	t, err := fe.emitter.llvmType(e.Type)
	if err != nil {
		return nil, err
	}
	if len(e.Conds) != len(e.Blocks) {
		return nil, fmt.Errorf("phi with %d conditions and %d blocks", len(e.Conds), len(e.Blocks))
	}
	res := fe.alloca(t)
	end := fe.newBlock("phi.end")
	for i := range e.Conds {
		c, err := fe.seq(e.Conds[i])
		if err != nil {
			return nil, err
		}
		if c, err = fe.convert(c, types.I1); err != nil {
			return nil, err
		}
		then, next := fe.newBlock("phi.then"), fe.newBlock("phi.next")
		fe.cur.NewCondBr(c, then, next)

		fe.cur = then
		v, err := fe.seq(e.Blocks[i])
		if err != nil {
			return nil, err
		}
		if v, err = fe.convert(v, t); err != nil {
			return nil, err
		}
		fe.cur.NewStore(v, res.ptr)
		fe.cur.NewBr(end)
		fe.cur = next
	}
	fe.cur.NewStore(zeroValue(t), res.ptr)
	fe.cur.NewBr(end)
	fe.cur = end
	return fe.cur.NewLoad(t, res.ptr), nil
}

func (fe *funcEmitter) loop(e *mir.Loop) (value.Value, error) {
	head, body, end := fe.newBlock("loop.cond"), fe.newBlock("loop.body"), fe.newBlock("loop.end")
	fe.cur.NewBr(head)

	fe.cur = head
	c, err := fe.seq(e.Cond)
	if err != nil {
		return nil, err
	}
	if c, err = fe.convert(c, types.I1); err != nil {
		return nil, err
	}
	fe.cur.NewCondBr(c, body, end)

	fe.cur = body
	if _, err := fe.seq(e.Body); err != nil {
		return nil, err
	}
	fe.cur.NewBr(head)

	fe.cur = end
	return constant.False, nil
}

func (fe *funcEmitter) makeStruct(e *mir.MakeStruct) (value.Value, error) {
	t, err := fe.emitter.llvmType(e.Type)
	if err != nil {
		return nil, err
	}
	st, ok := t.(*types.StructType)
	if !ok {
		return nil, fmt.Errorf("make of non-struct %s", t)
	}
	if len(st.Fields) != len(e.Items) {
		return nil, fmt.Errorf("struct %s has %d fields, got %d items", st, len(st.Fields), len(e.Items))
	}
	items, err := fe.exprs(e.Items)
	if err != nil {
		return nil, err
	}
	ref := fe.alloc(st)
	for i, it := range items {
		p, err := fe.field(ref, i)
		if err != nil {
			return nil, err
		}
		v, err := fe.convert(it, st.Fields[i])
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		fe.cur.NewStore(v, p)
	}
	return ref, nil
}

// field yields the address of field i of the struct ref points to.
func (fe *funcEmitter) field(ref value.Value, i int) (value.Value, error) {
	pt, ok := ref.Type().(*types.PointerType)
	if !ok {
		return nil, fmt.Errorf("field access through %s", ref.Type())
	}
	st, ok := pt.ElemType.(*types.StructType)
	if !ok {
		return nil, fmt.Errorf("field access through %s", ref.Type())
	}
	idx, err := safecast.Conv[int32](i)
	if err != nil || i >= len(st.Fields) {
		return nil, fmt.Errorf("field %d out of range for %s", i, st)
	}
	return fe.cur.NewGetElementPtr(st, ref, i32(0), i32(int64(idx))), nil
}
