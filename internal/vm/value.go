// Package vm implements a direct interpreter for lowered Molten modules.
package vm

import (
	"fmt"
	"strconv"

	"molten/internal/mir"
)

// ValueKind identifies the runtime type of a Value.
type ValueKind uint8

const (
	// VKInvalid represents an invalid value.
	VKInvalid ValueKind = iota
	VKUnit
	VKBool
	VKByte
	VKChar
	VKInt
	VKReal
	VKStr
	// VKPtr represents an address into a heap object.
	VKPtr
	// VKNull represents the null pointer of any pointer type.
	VKNull
	// VKFunc represents a function or extern of a loaded module.
	VKFunc
	// VKEscape represents a saved escape point.
	VKEscape
)

// String returns a human-readable name for the value kind.
func (k ValueKind) String() string {
	switch k {
	case VKInvalid:
		return "invalid"
	case VKUnit:
		return "unit"
	case VKBool:
		return "bool"
	case VKByte:
		return "byte"
	case VKChar:
		return "char"
	case VKInt:
		return "int"
	case VKReal:
		return "real"
	case VKStr:
		return "str"
	case VKPtr:
		return "ptr"
	case VKNull:
		return "null"
	case VKFunc:
		return "func"
	case VKEscape:
		return "escape"
	default:
		return fmt.Sprintf("ValueKind(%d)", k)
	}
}

// Value represents a runtime value in the VM. Values carry their own kind,
// so the generic slot needs no boxing.
type Value struct {
	Kind ValueKind
	Int  int64 // VKBool, VKByte, VKChar, VKInt
	Real float64
	Str  string
	Ptr  Pointer
	Fn   *callee
	Esc  *escapePoint
}

// IsZero returns true if this is a zero/invalid value.
func (v Value) IsZero() bool {
	return v.Kind == VKInvalid
}

// Truthy reports whether v is a true Bool or a non-zero integer.
func (v Value) Truthy() bool {
	switch v.Kind {
	case VKBool, VKByte, VKChar, VKInt:
		return v.Int != 0
	}
	return false
}

// String returns a human-readable representation of the value.
func (v Value) String() string {
	switch v.Kind {
	case VKInvalid:
		return "<invalid>"
	case VKUnit:
		return "()"
	case VKBool:
		return strconv.FormatBool(v.Int != 0)
	case VKByte, VKInt:
		return strconv.FormatInt(v.Int, 10)
	case VKChar:
		return strconv.QuoteRune(rune(v.Int))
	case VKReal:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case VKStr:
		return strconv.Quote(v.Str)
	case VKPtr:
		return v.Ptr.String()
	case VKNull:
		return "null"
	case VKFunc:
		return "@" + v.Fn.name
	case VKEscape:
		return "<escape>"
	default:
		return fmt.Sprintf("<unknown:%d>", v.Kind)
	}
}

func MakeUnit() Value          { return Value{Kind: VKUnit} }
func MakeInt(n int64) Value    { return Value{Kind: VKInt, Int: n} }
func MakeReal(f float64) Value { return Value{Kind: VKReal, Real: f} }
func MakeStr(s string) Value   { return Value{Kind: VKStr, Str: s} }
func MakeChar(r rune) Value    { return Value{Kind: VKChar, Int: int64(r)} }
func MakeNull() Value          { return Value{Kind: VKNull} }

func MakeBool(b bool) Value {
	if b {
		return Value{Kind: VKBool, Int: 1}
	}
	return Value{Kind: VKBool}
}

func MakePtr(p Pointer) Value { return Value{Kind: VKPtr, Ptr: p} }

// zeroOf returns the zero value of a lowered type. Pointers are null.
func zeroOf(t *mir.Type) Value {
	if t == nil {
		return MakeNull()
	}
	switch t.Kind {
	case mir.TypeUnit:
		return MakeUnit()
	case mir.TypeBool:
		return MakeBool(false)
	case mir.TypeByte:
		return Value{Kind: VKByte}
	case mir.TypeChar:
		return Value{Kind: VKChar}
	case mir.TypeInt:
		return MakeInt(0)
	case mir.TypeReal:
		return MakeReal(0)
	}
	return MakeNull()
}

// literal converts an IR literal into a value.
func literal(l *mir.Lit) Value {
	switch l.Kind {
	case mir.LitUnit:
		return MakeUnit()
	case mir.LitBool:
		return MakeBool(l.Bool)
	case mir.LitByte:
		return Value{Kind: VKByte, Int: l.Int}
	case mir.LitChar:
		return Value{Kind: VKChar, Int: l.Int}
	case mir.LitInt:
		return MakeInt(l.Int)
	case mir.LitReal:
		return MakeReal(l.Real)
	case mir.LitStr:
		return MakeStr(l.Str)
	}
	return MakeNull()
}
