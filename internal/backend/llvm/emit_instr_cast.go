package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// convert reinterprets v as type to. Integers below 32 bits widen unsigned
// and wider ones keep their sign; a non-zero integer is true. Reals convert
// numerically, and scalars travel in pointer slots by value.
func (fe *funcEmitter) convert(v value.Value, to types.Type) (value.Value, error) {
	from := v.Type()
	if from.Equal(to) {
		return v, nil
	}
	if types.IsVoid(from) {
		return zeroValue(to), nil
	}
	b := fe.cur
	fromBits, fromInt := intBits(from)
	toBits, toInt := intBits(to)
	_, fromPtr := from.(*types.PointerType)
	_, toPtr := to.(*types.PointerType)

	switch {
	case fromInt && toInt:
		switch {
		case toBits == 1:
			return b.NewICmp(enum.IPredNE, v, constant.NewInt(from.(*types.IntType), 0)), nil
		case fromBits < 32 && fromBits < toBits:
			return b.NewZExt(v, to), nil
		case fromBits < toBits:
			return b.NewSExt(v, to), nil
		}
		return b.NewTrunc(v, to), nil

	case fromInt && isFloat(to):
		if fromBits < 64 {
			return b.NewUIToFP(v, to), nil
		}
		return b.NewSIToFP(v, to), nil

	case isFloat(from) && toInt:
		n := b.NewFPToSI(v, types.I64)
		return fe.convert(n, to)

	case fromInt && toPtr:
		n, err := fe.convert(v, types.I64)
		if err != nil {
			return nil, err
		}
		return b.NewIntToPtr(n, to), nil

	case fromPtr && toInt:
		n := b.NewPtrToInt(v, types.I64)
		if toBits == 1 {
			return b.NewICmp(enum.IPredNE, n, i64(0)), nil
		}
		return fe.convert(n, to)

	case isFloat(from) && toPtr:
		n := b.NewBitCast(v, types.I64)
		return b.NewIntToPtr(n, to), nil

	case fromPtr && isFloat(to):
		n := b.NewPtrToInt(v, types.I64)
		return b.NewBitCast(n, to), nil

	case fromPtr && toPtr:
		return b.NewBitCast(v, to), nil
	}
	return nil, fmt.Errorf("cannot convert %s to %s", from, to)
}

// alloc allocates a heap cell of type t and yields a typed pointer to it.
func (fe *funcEmitter) alloc(t types.Type) value.Value {
	mem := fe.malloc(sizeOf(t))
	return fe.cur.NewBitCast(mem, types.NewPointer(t))
}
