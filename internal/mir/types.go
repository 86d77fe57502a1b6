package mir

import (
	"fmt"
	"strings"

	"molten/internal/ids"
)

// TypeKind enumerates the lowered value representations.
type TypeKind uint8

const (
	TypeUnit TypeKind = iota
	TypeBool
	TypeByte
	TypeChar
	TypeInt
	TypeReal
	TypeStr
	// TypeAny is the uniform pointer-sized slot generic values travel in.
	TypeAny
	TypePtr
	TypeStruct
	// TypeNamed refers to a module struct by id.
	TypeNamed
	TypeFunc
	// TypeEscape is an escape point saved by Escape and targeted by Jump.
	TypeEscape
)

var typeKindNames = [...]string{
	TypeUnit:   "unit",
	TypeBool:   "bool",
	TypeByte:   "byte",
	TypeChar:   "char",
	TypeInt:    "int",
	TypeReal:   "real",
	TypeStr:    "str",
	TypeAny:    "any",
	TypePtr:    "ptr",
	TypeStruct: "struct",
	TypeNamed:  "named",
	TypeFunc:   "func",
	TypeEscape: "escape",
}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return fmt.Sprintf("TypeKind(%d)", k)
}

// Type is a lowered type. Values of struct and function types are always
// handled through pointers.
type Type struct {
	Kind  TypeKind
	Elem  *Type
	Items []*Type
	Ret   *Type
	ID    ids.NodeID
	Name  string
}

var (
	Unit       = &Type{Kind: TypeUnit}
	Bool       = &Type{Kind: TypeBool}
	Byte       = &Type{Kind: TypeByte}
	Char       = &Type{Kind: TypeChar}
	Int        = &Type{Kind: TypeInt}
	Real       = &Type{Kind: TypeReal}
	Str        = &Type{Kind: TypeStr}
	Any        = &Type{Kind: TypeAny}
	EscapeType = &Type{Kind: TypeEscape}
)

func PtrTo(elem *Type) *Type { return &Type{Kind: TypePtr, Elem: elem} }

func StructOf(items ...*Type) *Type { return &Type{Kind: TypeStruct, Items: items} }

func NamedOf(id ids.NodeID, name string) *Type { return &Type{Kind: TypeNamed, ID: id, Name: name} }

func FuncOf(args []*Type, ret *Type) *Type { return &Type{Kind: TypeFunc, Items: args, Ret: ret} }

// ClosureOf is the value type of a closure whose raw function has type fn:
// a pointer to a struct whose first slot is the function pointer.
func ClosureOf(fn *Type) *Type { return PtrTo(StructOf(PtrTo(fn))) }

// IsPointer reports whether values of t are addresses.
func (t *Type) IsPointer() bool {
	switch t.Kind {
	case TypePtr, TypeStr, TypeAny:
		return true
	}
	return false
}

// IsScalar reports whether t is a number, boolean or character.
func (t *Type) IsScalar() bool {
	switch t.Kind {
	case TypeUnit, TypeBool, TypeByte, TypeChar, TypeInt, TypeReal:
		return true
	}
	return false
}

// Equal compares two types structurally; named structs compare by id.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TypePtr:
		return t.Elem.Equal(o.Elem)
	case TypeStruct:
		return equalTypes(t.Items, o.Items)
	case TypeNamed:
		return t.ID == o.ID
	case TypeFunc:
		return t.Ret.Equal(o.Ret) && equalTypes(t.Items, o.Items)
	}
	return true
}

func equalTypes(a, b []*Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func (t *Type) String() string {
	if t == nil {
		return "?"
	}
	switch t.Kind {
	case TypePtr:
		return t.Elem.String() + "*"
	case TypeStruct:
		return "{" + typeList(t.Items) + "}"
	case TypeNamed:
		return "%" + t.Name
	case TypeFunc:
		return "fn(" + typeList(t.Items) + ") " + t.Ret.String()
	}
	return t.Kind.String()
}

func typeList(ts []*Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
