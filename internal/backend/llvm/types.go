package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"molten/internal/ids"
	"molten/internal/mir"
)

// jmpBufSize is the size reserved for a jmp_buf; glibc on x86-64 needs 200.
const jmpBufSize = 256

var jmpBufType = types.NewArray(jmpBufSize, types.I8)

// llvmType maps a lowered type to its LLVM representation. Unit is an i1
// so that every expression has a value; generic slots, strings and escape
// points are i8*.
func (e *Emitter) llvmType(t *mir.Type) (types.Type, error) {
	if t == nil {
		return types.I1, nil
	}
	switch t.Kind {
	case mir.TypeUnit, mir.TypeBool:
		return types.I1, nil
	case mir.TypeByte:
		return types.I8, nil
	case mir.TypeChar:
		return types.I32, nil
	case mir.TypeInt:
		return types.I64, nil
	case mir.TypeReal:
		return types.Double, nil
	case mir.TypeStr, mir.TypeAny, mir.TypeEscape:
		return types.I8Ptr, nil
	case mir.TypePtr:
		elem, err := e.llvmType(t.Elem)
		if err != nil {
			return nil, err
		}
		return types.NewPointer(elem), nil
	case mir.TypeStruct:
		fields := make([]types.Type, len(t.Items))
		for i, it := range t.Items {
			ft, err := e.llvmType(it)
			if err != nil {
				return nil, err
			}
			fields[i] = ft
		}
		return types.NewStruct(fields...), nil
	case mir.TypeNamed:
		return e.namedStruct(t.ID, t.Name), nil
	case mir.TypeFunc:
		return e.funcType(t)
	}
	return nil, fmt.Errorf("unsupported type %s", t)
}

func (e *Emitter) funcType(t *mir.Type) (*types.FuncType, error) {
	if t == nil || t.Kind != mir.TypeFunc {
		return nil, fmt.Errorf("%s is not a function type", t)
	}
	params := make([]types.Type, len(t.Items))
	for i, it := range t.Items {
		pt, err := e.llvmType(it)
		if err != nil {
			return nil, err
		}
		params[i] = pt
	}
	ret, err := e.llvmType(t.Ret)
	if err != nil {
		return nil, err
	}
	return types.NewFunc(ret, params...), nil
}

// namedStruct returns the named struct id, creating an opaque placeholder
// until DeclareType gives it fields.
func (e *Emitter) namedStruct(id ids.NodeID, name string) *types.StructType {
	if st, ok := e.structs[id]; ok {
		return st
	}
	st := &types.StructType{Opaque: true}
	e.mod.NewTypeDef(name, st)
	e.structs[id] = st
	return st
}

// zeroValue is the zero constant of t.
func zeroValue(t types.Type) constant.Constant {
	switch t := t.(type) {
	case *types.IntType:
		return constant.NewInt(t, 0)
	case *types.FloatType:
		return constant.NewFloat(t, 0)
	case *types.PointerType:
		return constant.NewNull(t)
	}
	return constant.NewZeroInitializer(t)
}

// sizeOf is the allocation size of t as an i64 constant expression.
func sizeOf(t types.Type) constant.Constant {
	gep := constant.NewGetElementPtr(t, constant.NewNull(types.NewPointer(t)), constant.NewInt(types.I32, 1))
	return constant.NewPtrToInt(gep, types.I64)
}

func i32(n int64) *constant.Int { return constant.NewInt(types.I32, n) }

func i64(n int64) *constant.Int { return constant.NewInt(types.I64, n) }

func intBits(t types.Type) (uint64, bool) {
	it, ok := t.(*types.IntType)
	if !ok {
		return 0, false
	}
	return it.BitSize, true
}

func isFloat(t types.Type) bool {
	_, ok := t.(*types.FloatType)
	return ok
}

// funcSigOf returns the signature of a function pointer type.
func funcSigOf(t types.Type) (*types.FuncType, bool) {
	pt, ok := t.(*types.PointerType)
	if !ok {
		return nil, false
	}
	sig, ok := pt.ElemType.(*types.FuncType)
	return sig, ok
}
