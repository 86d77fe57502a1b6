package vm

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"molten/internal/builtins"
)

// builtin applies a backend-supplied operator.
func (vm *VM) builtin(op builtins.Op, args []Value) (Value, *VMError) {
	switch op {
	case builtins.OpInit:
		return MakeUnit(), nil
	case builtins.OpTrue:
		return MakeBool(true), nil
	case builtins.OpFalse:
		return MakeBool(false), nil
	}

	if len(args) == 1 {
		return vm.unaryOp(op, args[0])
	}
	if len(args) == 2 {
		if v, ok, vmErr := vm.binaryOp(op, args[0], args[1]); ok || vmErr != nil {
			return v, vmErr
		}
	}
	return vm.memoryOp(op, args)
}

func (vm *VM) unaryOp(op builtins.Op, a Value) (Value, *VMError) {
	switch op {
	case builtins.OpNotBool:
		return MakeBool(!a.Truthy()), nil
	case builtins.OpComInt:
		return MakeInt(^a.Int), nil
	case builtins.OpNotInt:
		return MakeBool(a.Int == 0), nil
	case builtins.OpCharOfInt:
		return MakeChar(rune(a.Int)), nil
	case builtins.OpIntOfChar:
		return MakeInt(a.Int), nil
	case builtins.OpIntOfReal:
		return MakeInt(int64(a.Real)), nil
	case builtins.OpRealOfInt:
		return MakeReal(float64(a.Int)), nil
	case builtins.OpStrOfInt:
		return MakeStr(strconv.FormatInt(a.Int, 10)), nil
	case builtins.OpStrOfReal:
		return MakeStr(strconv.FormatFloat(a.Real, 'f', 6, 64)), nil
	case builtins.OpPrint, builtins.OpPrintln:
		s, vmErr := vm.str(a)
		if vmErr != nil {
			return Value{}, vmErr
		}
		w := vm.RT.Stdout()
		if op == builtins.OpPrintln {
			_, _ = io.WriteString(w, s+"\n")
		} else {
			_, _ = io.WriteString(w, s)
		}
		return MakeUnit(), nil
	}
	return vm.memoryOp(op, []Value{a})
}

// binaryOp applies an arithmetic or comparison operator; ok is false for
// operators of another family.
func (vm *VM) binaryOp(op builtins.Op, a, b Value) (v Value, ok bool, vmErr *VMError) {
	x, y := a.Int, b.Int
	switch op {
	case builtins.OpEqBool, builtins.OpEqInt, builtins.OpEqChar:
		return MakeBool(x == y), true, nil
	case builtins.OpNeBool, builtins.OpNeInt, builtins.OpNeChar:
		return MakeBool(x != y), true, nil
	case builtins.OpAddInt:
		return MakeInt(x + y), true, nil
	case builtins.OpSubInt:
		return MakeInt(x - y), true, nil
	case builtins.OpMulInt:
		return MakeInt(x * y), true, nil
	case builtins.OpDivInt:
		if y == 0 {
			return Value{}, true, vm.eb.divByZero()
		}
		return MakeInt(x / y), true, nil
	case builtins.OpModInt:
		if y == 0 {
			return Value{}, true, vm.eb.divByZero()
		}
		return MakeInt(x % y), true, nil
	case builtins.OpAndInt:
		return MakeInt(x & y), true, nil
	case builtins.OpOrInt:
		return MakeInt(x | y), true, nil
	case builtins.OpLtInt, builtins.OpLtChar:
		return MakeBool(x < y), true, nil
	case builtins.OpGtInt, builtins.OpGtChar:
		return MakeBool(x > y), true, nil
	case builtins.OpLeInt, builtins.OpLeChar:
		return MakeBool(x <= y), true, nil
	case builtins.OpGeInt, builtins.OpGeChar:
		return MakeBool(x >= y), true, nil
	}

	f, g := a.Real, b.Real
	switch op {
	case builtins.OpAddReal:
		return MakeReal(f + g), true, nil
	case builtins.OpSubReal:
		return MakeReal(f - g), true, nil
	case builtins.OpMulReal:
		return MakeReal(f * g), true, nil
	case builtins.OpDivReal:
		return MakeReal(f / g), true, nil
	case builtins.OpModReal:
		return MakeReal(math.Mod(f, g)), true, nil
	case builtins.OpPowReal:
		return MakeReal(math.Pow(f, g)), true, nil
	case builtins.OpLtReal:
		return MakeBool(f < g), true, nil
	case builtins.OpGtReal:
		return MakeBool(f > g), true, nil
	case builtins.OpLeReal:
		return MakeBool(f <= g), true, nil
	case builtins.OpGeReal:
		return MakeBool(f >= g), true, nil
	case builtins.OpEqReal:
		return MakeBool(f == g), true, nil
	case builtins.OpNeReal:
		return MakeBool(f != g), true, nil
	}
	return Value{}, false, nil
}

// memoryOp implements allocation, buffers, strings and input.
func (vm *VM) memoryOp(op builtins.Op, args []Value) (Value, *VMError) {
	arg := func(i int) Value {
		if i < len(args) {
			return args[i]
		}
		return MakeNull()
	}
	switch op {
	case builtins.OpMalloc:
		p, vmErr := vm.allocCells(arg(0).Int)
		if vmErr != nil {
			return Value{}, vmErr
		}
		return MakePtr(p), nil
	case builtins.OpRealloc:
		return vm.resize(arg(0), arg(1).Int)
	case builtins.OpFree:
		if p := arg(0); p.Kind == VKPtr {
			vm.Heap.free(p.Ptr.Obj)
		}
		return MakeUnit(), nil
	case builtins.OpSizeof:
		return MakeInt(8), nil
	case builtins.OpBufAlloc:
		if n := arg(0).Int; n < 0 {
			return Value{}, vm.eb.badSize(n)
		}
		p, vmErr := vm.allocCells(arg(0).Int + 1)
		if vmErr != nil {
			return Value{}, vmErr
		}
		p.Obj.Cells[0] = MakeInt(arg(0).Int)
		return MakePtr(p), nil
	case builtins.OpBufResize:
		if n := arg(1).Int; n < 0 {
			return Value{}, vm.eb.badSize(n)
		}
		p, vmErr := vm.resize(arg(0), arg(1).Int+1)
		if vmErr != nil {
			return Value{}, vmErr
		}
		p.Ptr.Obj.Cells[0] = MakeInt(arg(1).Int)
		return p, nil
	case builtins.OpBufLen:
		c, vmErr := vm.cell(arg(0))
		if vmErr != nil {
			return Value{}, vmErr
		}
		return MakeInt(c.Int), nil
	case builtins.OpBufGet:
		c, vmErr := vm.bufferItem(arg(0), arg(1).Int)
		if vmErr != nil {
			return Value{}, vmErr
		}
		return *c, nil
	case builtins.OpBufSet:
		c, vmErr := vm.bufferItem(arg(0), arg(1).Int)
		if vmErr != nil {
			return Value{}, vmErr
		}
		*c = arg(2)
		return MakeUnit(), nil
	case builtins.OpStrGet:
		s, vmErr := vm.str(arg(0))
		if vmErr != nil {
			return Value{}, vmErr
		}
		i, err := safecast.Conv[int](arg(1).Int)
		if err != nil || i < 0 || i >= len(s) {
			return Value{}, vm.eb.outOfBounds(int(arg(1).Int), len(s))
		}
		return MakeChar(rune(s[i])), nil
	case builtins.OpReadline:
		line, err := vm.stdin.ReadString('\n')
		if err != nil && line == "" {
			return MakeStr(""), nil
		}
		return MakeStr(strings.TrimRight(line, "\r\n")), nil
	}
	return Value{}, vm.eb.unimplemented(fmt.Sprintf("builtin %s", op))
}

// bufferItem returns the cell of item i of buffer p. Cell 0 of a buffer
// holds its length and item i lives in cell i+1.
func (vm *VM) bufferItem(p Value, i int64) (*Value, *VMError) {
	head, vmErr := vm.cell(p)
	if vmErr != nil {
		return nil, vmErr
	}
	if i < 0 || i >= head.Int {
		return nil, vm.eb.outOfBounds(int(i), int(head.Int))
	}
	q, vmErr := vm.offset(p, i+1)
	if vmErr != nil {
		return nil, vmErr
	}
	return vm.cell(q)
}

// str reads a string argument.
func (vm *VM) str(v Value) (string, *VMError) {
	switch v.Kind {
	case VKStr:
		return v.Str, nil
	case VKNull:
		return "", vm.eb.nullDeref()
	}
	return "", vm.eb.typeMismatch("str", v.Kind.String())
}
