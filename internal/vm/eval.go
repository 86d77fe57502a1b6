package vm

import (
	"fmt"

	"molten/internal/mir"
)

// eval evaluates one expression in fr.
func (vm *VM) eval(fr *Frame, e mir.Expr) (Value, *VMError) {
	switch e := e.(type) {
	case *mir.Lit:
		return literal(e), nil

	case *mir.GetValue:
		if v, ok := fr.values[e.ID]; ok {
			return v, nil
		}
		mod := fr.module()
		if c, ok := mod.funcs[e.ID]; ok {
			return Value{Kind: VKFunc, Fn: c}, nil
		}
		c, vmErr := vm.linkExtern(mod, e.ID)
		if vmErr != nil {
			return Value{}, vmErr
		}
		return Value{Kind: VKFunc, Fn: c}, nil

	case *mir.SetValue:
		v, vmErr := vm.eval(fr, e.Value)
		if vmErr != nil {
			return Value{}, vmErr
		}
		fr.values[e.ID] = v
		return v, nil

	case *mir.DefLocal:
		v := zeroOf(e.Type)
		if e.Value != nil {
			var vmErr *VMError
			if v, vmErr = vm.eval(fr, e.Value); vmErr != nil {
				return Value{}, vmErr
			}
		}
		fr.locals[e.ID] = v
		return v, nil

	case *mir.GetLocal:
		v, ok := fr.locals[e.ID]
		if !ok {
			return Value{}, vm.eb.useBeforeInit("local " + e.ID.String())
		}
		return v, nil

	case *mir.SetLocal:
		v, vmErr := vm.eval(fr, e.Value)
		if vmErr != nil {
			return Value{}, vmErr
		}
		fr.locals[e.ID] = v
		return v, nil

	case *mir.GetGlobal:
		cell, ok := fr.module().globals[e.ID]
		if !ok {
			return Value{}, vm.eb.unresolved("global", e.ID.String())
		}
		return *cell, nil

	case *mir.SetGlobal:
		cell, ok := fr.module().globals[e.ID]
		if !ok {
			return Value{}, vm.eb.unresolved("global", e.ID.String())
		}
		v, vmErr := vm.eval(fr, e.Value)
		if vmErr != nil {
			return Value{}, vmErr
		}
		*cell = v
		return v, nil

	case *mir.Call:
		fn, vmErr := vm.eval(fr, e.Func)
		if vmErr != nil {
			return Value{}, vmErr
		}
		args, vmErr := vm.evalAll(fr, e.Args)
		if vmErr != nil {
			return Value{}, vmErr
		}
		return vm.call(fn, args)

	case *mir.Builtin:
		args, vmErr := vm.evalAll(fr, e.Args)
		if vmErr != nil {
			return Value{}, vmErr
		}
		return vm.builtin(e.Op, args)

	case *mir.Cast:
		v, vmErr := vm.eval(fr, e.Value)
		if vmErr != nil {
			return Value{}, vmErr
		}
		return vm.cast(v, e.Type)

	case *mir.Cmp:
		left, vmErr := vm.eval(fr, e.Left)
		if vmErr != nil {
			return Value{}, vmErr
		}
		right, vmErr := vm.eval(fr, e.Right)
		if vmErr != nil {
			return Value{}, vmErr
		}
		eq := equal(left, right)
		if e.Op == mir.CmpNe {
			eq = !eq
		}
		return MakeBool(eq), nil

	case *mir.Phi:
		for i, cond := range e.Conds {
			c, vmErr := vm.execSeq(fr, cond)
			if vmErr != nil {
				return Value{}, vmErr
			}
			if c.Truthy() {
				return vm.execSeq(fr, e.Blocks[i])
			}
		}
		return zeroOf(e.Type), nil

	case *mir.Loop:
		for {
			if err := vm.ctx.Err(); err != nil {
				return Value{}, vm.eb.interrupted(err)
			}
			c, vmErr := vm.execSeq(fr, e.Cond)
			if vmErr != nil {
				return Value{}, vmErr
			}
			if !c.Truthy() {
				return MakeUnit(), nil
			}
			if _, vmErr := vm.execSeq(fr, e.Body); vmErr != nil {
				return Value{}, vmErr
			}
		}

	case *mir.AllocRef:
		p, vmErr := vm.allocType(fr.module(), e.Type)
		if vmErr != nil {
			return Value{}, vmErr
		}
		if e.Value != nil {
			v, vmErr := vm.eval(fr, e.Value)
			if vmErr != nil {
				return Value{}, vmErr
			}
			p.Obj.Cells[0] = v
		}
		return MakePtr(p), nil

	case *mir.MakeStruct:
		items, vmErr := vm.evalAll(fr, e.Items)
		if vmErr != nil {
			return Value{}, vmErr
		}
		return MakePtr(Pointer{Obj: vm.Heap.alloc(items)}), nil

	case *mir.AccessRef:
		ref, vmErr := vm.eval(fr, e.Ref)
		if vmErr != nil {
			return Value{}, vmErr
		}
		return vm.offset(ref, int64(e.Field))

	case *mir.LoadRef:
		ref, vmErr := vm.eval(fr, e.Ref)
		if vmErr != nil {
			return Value{}, vmErr
		}
		c, vmErr := vm.cell(ref)
		if vmErr != nil {
			return Value{}, vmErr
		}
		return *c, nil

	case *mir.StoreRef:
		ref, vmErr := vm.eval(fr, e.Ref)
		if vmErr != nil {
			return Value{}, vmErr
		}
		v, vmErr := vm.eval(fr, e.Value)
		if vmErr != nil {
			return Value{}, vmErr
		}
		c, vmErr := vm.cell(ref)
		if vmErr != nil {
			return Value{}, vmErr
		}
		*c = v
		return v, nil

	case *mir.Escape:
		return vm.escape(fr, e.ID), nil

	case *mir.Jump:
		point, vmErr := vm.eval(fr, e.Point)
		if vmErr != nil {
			return Value{}, vmErr
		}
		v, vmErr := vm.eval(fr, e.Value)
		if vmErr != nil {
			return Value{}, vmErr
		}
		return Value{}, vm.jump(point, v.Int)
	}
	return Value{}, vm.eb.unimplemented(fmt.Sprintf("%T", e))
}

func (vm *VM) evalAll(fr *Frame, es []mir.Expr) ([]Value, *VMError) {
	out := make([]Value, len(es))
	for i, e := range es {
		v, vmErr := vm.eval(fr, e)
		if vmErr != nil {
			return nil, vmErr
		}
		out[i] = v
	}
	return out, nil
}

// call applies a function value to args.
func (vm *VM) call(fn Value, args []Value) (Value, *VMError) {
	switch fn.Kind {
	case VKFunc:
	case VKNull:
		return Value{}, vm.eb.nullDeref()
	default:
		return Value{}, vm.eb.typeMismatch("func", fn.Kind.String())
	}
	if fn.Fn.ext != nil {
		return fn.Fn.ext(vm, args)
	}
	return vm.invoke(fn.Fn, args)
}

// cast converts v to t. Scalars convert between each other; pointer and
// generic slots keep the value as is.
func (vm *VM) cast(v Value, t *mir.Type) (Value, *VMError) {
	if !t.IsScalar() || v.Kind == VKInvalid {
		return v, nil
	}
	if v.Kind == VKNull {
		return zeroOf(t), nil
	}
	if t.Kind == mir.TypeUnit {
		return MakeUnit(), nil
	}
	var n int64
	switch v.Kind {
	case VKUnit:
	case VKBool, VKByte, VKChar, VKInt:
		n = v.Int
	case VKReal:
		if t.Kind == mir.TypeReal {
			return v, nil
		}
		n = int64(v.Real)
	default:
		return Value{}, vm.eb.typeMismatch(t.String(), v.Kind.String())
	}
	switch t.Kind {
	case mir.TypeBool:
		return MakeBool(n != 0), nil
	case mir.TypeByte:
		return Value{Kind: VKByte, Int: n & 0xff}, nil
	case mir.TypeChar:
		return Value{Kind: VKChar, Int: n}, nil
	case mir.TypeReal:
		return MakeReal(float64(n)), nil
	}
	return MakeInt(n), nil
}

// equal compares two values of the same lowered type.
func equal(a, b Value) bool {
	switch a.Kind {
	case VKUnit:
		return b.Kind == VKUnit
	case VKBool, VKByte, VKChar, VKInt:
		return isInteger(b.Kind) && a.Int == b.Int
	case VKReal:
		return b.Kind == VKReal && a.Real == b.Real
	case VKStr:
		return b.Kind == VKStr && a.Str == b.Str
	case VKPtr:
		return b.Kind == VKPtr && a.Ptr == b.Ptr
	case VKNull:
		return b.Kind == VKNull
	case VKFunc:
		return b.Kind == VKFunc && a.Fn == b.Fn
	case VKEscape:
		return b.Kind == VKEscape && a.Esc == b.Esc
	}
	return false
}

func isInteger(k ValueKind) bool {
	switch k {
	case VKBool, VKByte, VKChar, VKInt:
		return true
	}
	return false
}
