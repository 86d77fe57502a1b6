package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"molten/internal/builtins"
)

// rtFunc is a C function the generated code relies on.
type rtFunc uint8

const (
	rtSetjmp rtFunc = iota
	rtLongjmp
	rtGCInit
	rtMalloc
	rtRealloc
	rtFree
	rtPuts
	rtFputs
	rtFgets
	rtStrlen
	rtSprintf
	rtPow
)

// readlineSize is the buffer readline reads into.
const readlineSize = 2048

// runtime declares f on first use.
func (e *Emitter) runtime(f rtFunc) value.Value {
	var name string
	var sig *types.FuncType
	switch f {
	case rtSetjmp:
		name, sig = "setjmp", types.NewFunc(types.I32, types.I8Ptr)
	case rtLongjmp:
		name, sig = "longjmp", types.NewFunc(types.Void, types.I8Ptr, types.I32)
	case rtGCInit:
		name, sig = "GC_init", types.NewFunc(types.Void)
	case rtMalloc:
		name, sig = e.allocator("malloc"), types.NewFunc(types.I8Ptr, types.I64)
	case rtRealloc:
		name, sig = e.allocator("realloc"), types.NewFunc(types.I8Ptr, types.I8Ptr, types.I64)
	case rtFree:
		name, sig = e.allocator("free"), types.NewFunc(types.Void, types.I8Ptr)
	case rtPuts:
		name, sig = "puts", types.NewFunc(types.I32, types.I8Ptr)
	case rtFputs:
		name, sig = "fputs", types.NewFunc(types.I32, types.I8Ptr, types.I8Ptr)
	case rtFgets:
		name, sig = "fgets", types.NewFunc(types.I8Ptr, types.I8Ptr, types.I32, types.I8Ptr)
	case rtStrlen:
		name, sig = "strlen", types.NewFunc(types.I64, types.I8Ptr)
	case rtSprintf:
		name, sig = "sprintf", types.NewFunc(types.I32, types.I8Ptr, types.I8Ptr)
		sig.Variadic = true
	case rtPow:
		name, sig = "llvm.pow.f64", types.NewFunc(types.Double, types.Double, types.Double)
	}
	v := e.cfunc(name, sig)
	if fn, ok := v.(*ir.Func); ok && len(fn.FuncAttrs) == 0 {
		switch f {
		case rtSetjmp:
			fn.FuncAttrs = append(fn.FuncAttrs, enum.FuncAttrReturnsTwice)
		case rtLongjmp:
			fn.FuncAttrs = append(fn.FuncAttrs, enum.FuncAttrNoReturn)
		}
	}
	return v
}

// allocator names the collector's version of a C allocation function
// unless the module is built without a collector.
func (e *Emitter) allocator(name string) string {
	if e.opts.NoGC {
		return name
	}
	return "GC_" + name
}

func (fe *funcEmitter) malloc(size value.Value) value.Value {
	return fe.cur.NewCall(fe.emitter.runtime(rtMalloc), size)
}

// operands converts args to ts.
func (fe *funcEmitter) operands(op builtins.Op, args []value.Value, ts ...types.Type) ([]value.Value, error) {
	if len(args) != len(ts) {
		return nil, fmt.Errorf("builtin %s takes %d arguments, got %d", op, len(ts), len(args))
	}
	out := make([]value.Value, len(args))
	for i, a := range args {
		v, err := fe.convert(a, ts[i])
		if err != nil {
			return nil, fmt.Errorf("builtin %s argument %d: %w", op, i, err)
		}
		out[i] = v
	}
	return out, nil
}

var intPreds = map[builtins.Op]enum.IPred{
	builtins.OpLtInt: enum.IPredSLT, builtins.OpGtInt: enum.IPredSGT,
	builtins.OpLeInt: enum.IPredSLE, builtins.OpGeInt: enum.IPredSGE,
	builtins.OpEqInt: enum.IPredEQ, builtins.OpNeInt: enum.IPredNE,
}

var charPreds = map[builtins.Op]enum.IPred{
	builtins.OpLtChar: enum.IPredSLT, builtins.OpGtChar: enum.IPredSGT,
	builtins.OpLeChar: enum.IPredSLE, builtins.OpGeChar: enum.IPredSGE,
	builtins.OpEqChar: enum.IPredEQ, builtins.OpNeChar: enum.IPredNE,
}

var realPreds = map[builtins.Op]enum.FPred{
	builtins.OpLtReal: enum.FPredOLT, builtins.OpGtReal: enum.FPredOGT,
	builtins.OpLeReal: enum.FPredOLE, builtins.OpGeReal: enum.FPredOGE,
	builtins.OpEqReal: enum.FPredOEQ, builtins.OpNeReal: enum.FPredONE,
}

// builtin emits the body of a backend-supplied operator.
func (fe *funcEmitter) builtin(op builtins.Op, args []value.Value) (value.Value, error) {
	switch op {
	case builtins.OpInit:
		if !fe.emitter.opts.NoGC {
			fe.cur.NewCall(fe.emitter.runtime(rtGCInit))
		}
		return constant.False, nil
	case builtins.OpTrue:
		return constant.True, nil
	case builtins.OpFalse:
		return constant.False, nil
	}
	if pred, ok := intPreds[op]; ok {
		return fe.icmp(op, pred, types.I64, args)
	}
	if pred, ok := charPreds[op]; ok {
		return fe.icmp(op, pred, types.I32, args)
	}
	if pred, ok := realPreds[op]; ok {
		xs, err := fe.operands(op, args, types.Double, types.Double)
		if err != nil {
			return nil, err
		}
		return fe.cur.NewFCmp(pred, xs[0], xs[1]), nil
	}
	switch op {
	case builtins.OpEqBool:
		return fe.icmp(op, enum.IPredEQ, types.I1, args)
	case builtins.OpNeBool:
		return fe.icmp(op, enum.IPredNE, types.I1, args)
	case builtins.OpAddInt, builtins.OpSubInt, builtins.OpMulInt, builtins.OpDivInt,
		builtins.OpModInt, builtins.OpAndInt, builtins.OpOrInt:
		return fe.intArith(op, args)
	case builtins.OpAddReal, builtins.OpSubReal, builtins.OpMulReal, builtins.OpDivReal,
		builtins.OpModReal, builtins.OpPowReal:
		return fe.realArith(op, args)
	}
	return fe.builtinUnary(op, args)
}

func (fe *funcEmitter) icmp(op builtins.Op, pred enum.IPred, t types.Type, args []value.Value) (value.Value, error) {
	xs, err := fe.operands(op, args, t, t)
	if err != nil {
		return nil, err
	}
	return fe.cur.NewICmp(pred, xs[0], xs[1]), nil
}

func (fe *funcEmitter) intArith(op builtins.Op, args []value.Value) (value.Value, error) {
	xs, err := fe.operands(op, args, types.I64, types.I64)
	if err != nil {
		return nil, err
	}
	x, y, b := xs[0], xs[1], fe.cur
	switch op {
	case builtins.OpAddInt:
		return b.NewAdd(x, y), nil
	case builtins.OpSubInt:
		return b.NewSub(x, y), nil
	case builtins.OpMulInt:
		return b.NewMul(x, y), nil
	case builtins.OpDivInt:
		return b.NewSDiv(x, y), nil
	case builtins.OpModInt:
		return b.NewSRem(x, y), nil
	case builtins.OpAndInt:
		return b.NewAnd(x, y), nil
	}
	return b.NewOr(x, y), nil
}

func (fe *funcEmitter) realArith(op builtins.Op, args []value.Value) (value.Value, error) {
	xs, err := fe.operands(op, args, types.Double, types.Double)
	if err != nil {
		return nil, err
	}
	x, y, b := xs[0], xs[1], fe.cur
	switch op {
	case builtins.OpAddReal:
		return b.NewFAdd(x, y), nil
	case builtins.OpSubReal:
		return b.NewFSub(x, y), nil
	case builtins.OpMulReal:
		return b.NewFMul(x, y), nil
	case builtins.OpDivReal:
		return b.NewFDiv(x, y), nil
	case builtins.OpModReal:
		return b.NewFRem(x, y), nil
	}
	return b.NewCall(fe.emitter.runtime(rtPow), x, y), nil
}

// builtinUnary emits conversions, input and output, and memory operators.
func (fe *funcEmitter) builtinUnary(op builtins.Op, args []value.Value) (value.Value, error) {
	b := fe.cur
	switch op {
	case builtins.OpNotBool:
		xs, err := fe.operands(op, args, types.I1)
		if err != nil {
			return nil, err
		}
		return b.NewXor(xs[0], constant.True), nil
	case builtins.OpComInt:
		xs, err := fe.operands(op, args, types.I64)
		if err != nil {
			return nil, err
		}
		return b.NewXor(xs[0], i64(-1)), nil
	case builtins.OpNotInt:
		xs, err := fe.operands(op, args, types.I64)
		if err != nil {
			return nil, err
		}
		return b.NewICmp(enum.IPredEQ, xs[0], i64(0)), nil

	case builtins.OpCharOfInt:
		return fe.convertOp(op, args, types.I64, types.I32)
	case builtins.OpIntOfChar:
		return fe.convertOp(op, args, types.I32, types.I64)
	case builtins.OpIntOfReal:
		return fe.convertOp(op, args, types.Double, types.I64)
	case builtins.OpRealOfInt:
		return fe.convertOp(op, args, types.I64, types.Double)
	case builtins.OpStrOfInt:
		return fe.format(op, args, types.I64, "%ld")
	case builtins.OpStrOfReal:
		return fe.format(op, args, types.Double, "%f")

	case builtins.OpPrint:
		xs, err := fe.operands(op, args, types.I8Ptr)
		if err != nil {
			return nil, err
		}
		stdout := b.NewLoad(types.I8Ptr, fe.emitter.cglobal("stdout", types.I8Ptr))
		b.NewCall(fe.emitter.runtime(rtFputs), xs[0], stdout)
		return constant.False, nil
	case builtins.OpPrintln:
		xs, err := fe.operands(op, args, types.I8Ptr)
		if err != nil {
			return nil, err
		}
		b.NewCall(fe.emitter.runtime(rtPuts), xs[0])
		return constant.False, nil
	case builtins.OpReadline:
		if len(args) != 0 {
			return nil, fmt.Errorf("builtin %s takes no arguments", op)
		}
		return fe.readline(), nil
	}
	return fe.memoryOp(op, args)
}

func (fe *funcEmitter) convertOp(op builtins.Op, args []value.Value, from, to types.Type) (value.Value, error) {
	xs, err := fe.operands(op, args, from)
	if err != nil {
		return nil, err
	}
	return fe.convert(xs[0], to)
}

// format prints one value into a fresh buffer with sprintf.
func (fe *funcEmitter) format(op builtins.Op, args []value.Value, t types.Type, verb string) (value.Value, error) {
	xs, err := fe.operands(op, args, t)
	if err != nil {
		return nil, err
	}
	buf := fe.malloc(i64(64))
	fe.cur.NewCall(fe.emitter.runtime(rtSprintf), buf, fe.emitter.stringConst(verb), xs[0])
	return buf, nil
}

// readline reads one line from stdin and drops its newline.
func (fe *funcEmitter) readline() value.Value {
	b := fe.cur
	buf := fe.malloc(i64(readlineSize))
	stdin := b.NewLoad(types.I8Ptr, fe.emitter.cglobal("stdin", types.I8Ptr))
	b.NewCall(fe.emitter.runtime(rtFgets), buf, i32(readlineSize), stdin)
	n := b.NewCall(fe.emitter.runtime(rtStrlen), buf)
	nonEmpty := b.NewICmp(enum.IPredSGT, n, i64(0))
	idx := b.NewSelect(nonEmpty, b.NewSub(n, i64(1)), i64(0))
	last := b.NewGetElementPtr(types.I8, buf, idx)
	c := b.NewLoad(types.I8, last)
	isNewline := b.NewICmp(enum.IPredEQ, c, constant.NewInt(types.I8, '\n'))
	b.NewStore(b.NewSelect(isNewline, constant.NewInt(types.I8, 0), c), last)
	return buf
}

// bufferItem addresses item i of buf. Slot 0 of a buffer holds its
// length; items follow it.
func (fe *funcEmitter) bufferItem(buf, i value.Value) value.Value {
	return fe.cur.NewGetElementPtr(types.I8Ptr, buf, fe.cur.NewAdd(i, i64(1)))
}

// memoryOp emits allocation, buffer and string indexing operators. Buffer
// items are pointer-sized generic slots.
func (fe *funcEmitter) memoryOp(op builtins.Op, args []value.Value) (value.Value, error) {
	b := fe.cur
	slots := types.NewPointer(types.I8Ptr)
	switch op {
	case builtins.OpMalloc:
		xs, err := fe.operands(op, args, types.I64)
		if err != nil {
			return nil, err
		}
		return fe.malloc(xs[0]), nil
	case builtins.OpRealloc:
		xs, err := fe.operands(op, args, types.I8Ptr, types.I64)
		if err != nil {
			return nil, err
		}
		return b.NewCall(fe.emitter.runtime(rtRealloc), xs[0], xs[1]), nil
	case builtins.OpFree:
		xs, err := fe.operands(op, args, types.I8Ptr)
		if err != nil {
			return nil, err
		}
		b.NewCall(fe.emitter.runtime(rtFree), xs[0])
		return constant.False, nil
	case builtins.OpSizeof:
		if len(args) != 1 {
			return nil, fmt.Errorf("builtin %s takes 1 argument, got %d", op, len(args))
		}
		return sizeOf(args[0].Type()), nil
	case builtins.OpStrGet:
		xs, err := fe.operands(op, args, types.I8Ptr, types.I64)
		if err != nil {
			return nil, err
		}
		c := b.NewLoad(types.I8, b.NewGetElementPtr(types.I8, xs[0], xs[1]))
		return b.NewZExt(c, types.I32), nil
	case builtins.OpBufAlloc:
		xs, err := fe.operands(op, args, types.I64)
		if err != nil {
			return nil, err
		}
		mem := fe.malloc(b.NewMul(b.NewAdd(xs[0], i64(1)), sizeOf(types.I8Ptr)))
		buf := b.NewBitCast(mem, slots)
		b.NewStore(b.NewIntToPtr(xs[0], types.I8Ptr), buf)
		return buf, nil
	case builtins.OpBufResize:
		xs, err := fe.operands(op, args, types.I8Ptr, types.I64)
		if err != nil {
			return nil, err
		}
		mem := b.NewCall(fe.emitter.runtime(rtRealloc), xs[0], b.NewMul(b.NewAdd(xs[1], i64(1)), sizeOf(types.I8Ptr)))
		buf := b.NewBitCast(mem, slots)
		b.NewStore(b.NewIntToPtr(xs[1], types.I8Ptr), buf)
		return buf, nil
	case builtins.OpBufLen:
		xs, err := fe.operands(op, args, slots)
		if err != nil {
			return nil, err
		}
		return b.NewPtrToInt(b.NewLoad(types.I8Ptr, xs[0]), types.I64), nil
	case builtins.OpBufGet:
		xs, err := fe.operands(op, args, slots, types.I64)
		if err != nil {
			return nil, err
		}
		return b.NewLoad(types.I8Ptr, fe.bufferItem(xs[0], xs[1])), nil
	case builtins.OpBufSet:
		xs, err := fe.operands(op, args, slots, types.I64, types.I8Ptr)
		if err != nil {
			return nil, err
		}
		b.NewStore(xs[2], fe.bufferItem(xs[0], xs[1]))
		return constant.False, nil
	}
	return nil, fmt.Errorf("unsupported builtin %s", op)
}
