// Package types holds the Molten type representation and the unification
// primitives used by the checker: Check/Expect, resolution of bound
// variables, generic instantiation, overload selection and name mangling.
package types

import (
	"fmt"
	"strings"

	"molten/internal/ids"
)

// Names of the builtin object types.
const (
	UnitName   = "()"
	NilName    = "Nil"
	BoolName   = "Bool"
	ByteName   = "Byte"
	CharName   = "Char"
	IntName    = "Int"
	RealName   = "Real"
	StringName = "String"
	BufferName = "Buffer"
)

// Kind enumerates the type variants.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindObject
	KindFunction
	KindTuple
	KindRecord
	KindVariable
	KindRef
	KindOverload
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	case KindTuple:
		return "tuple"
	case KindRecord:
		return "record"
	case KindVariable:
		return "variable"
	case KindRef:
		return "ref"
	case KindOverload:
		return "overload"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is the closed set of Molten types.
type Type interface {
	Kind() Kind
	String() string
	isType()
}

// Object is a nominal type; ID is the defining node (class or builtin) once bound.
type Object struct {
	Name   string
	ID     ids.NodeID
	Params []Type
}

// Function is a callable type tagged with its calling convention.
type Function struct {
	Args []Type
	Ret  Type
	ABI  ABI
}

type Tuple struct {
	Items []Type
}

// Field is one named slot of a record.
type Field struct {
	Name string
	Type Type
}

type Record struct {
	Fields []Field
}

// Variable is a unification variable. Generic variables come from
// signatures and are replaced by fresh ones at every use.
type Variable struct {
	Name    string
	ID      ids.NodeID
	Generic bool
}

type Ref struct {
	Elem Type
}

// Overload is an unresolved overload set, one Function per variant.
type Overload struct {
	Variants []Type
}

func (*Object) Kind() Kind   { return KindObject }
func (*Function) Kind() Kind { return KindFunction }
func (*Tuple) Kind() Kind    { return KindTuple }
func (*Record) Kind() Kind   { return KindRecord }
func (*Variable) Kind() Kind { return KindVariable }
func (*Ref) Kind() Kind      { return KindRef }
func (*Overload) Kind() Kind { return KindOverload }

func (*Object) isType()   {}
func (*Function) isType() {}
func (*Tuple) isType()    {}
func (*Record) isType()   {}
func (*Variable) isType() {}
func (*Ref) isType()      {}
func (*Overload) isType() {}

func NewObject(name string, id ids.NodeID, params ...Type) *Object {
	return &Object{Name: name, ID: id, Params: params}
}

func NewFunction(args []Type, ret Type, abi ABI) *Function {
	return &Function{Args: args, Ret: ret, ABI: abi}
}

func NewTuple(items ...Type) *Tuple { return &Tuple{Items: items} }

func NewRef(elem Type) *Ref { return &Ref{Elem: elem} }

// Unit returns the unit type.
func Unit() *Object { return NewObject(UnitName, ids.NoID) }

// IsObject reports whether t is the object type called name.
func IsObject(t Type, name string) bool {
	o, ok := t.(*Object)
	return ok && o.Name == name
}

// ABIOf returns the ABI of a function type, or ABIUnknown.
func ABIOf(t Type) ABI {
	if f, ok := t.(*Function); ok {
		return f.ABI
	}
	return ABIUnknown
}

func (o *Object) String() string {
	if len(o.Params) == 0 {
		return o.Name
	}
	return o.Name + "<" + joinTypes(o.Params) + ">"
}

func (f *Function) String() string {
	ret := str(f.Ret)
	if _, ok := f.Ret.(*Function); ok {
		ret = "(" + ret + ")"
	}
	s := "(" + joinTypes(f.Args) + ") -> " + ret
	if f.ABI != ABIUnknown {
		s += " / " + f.ABI.String()
	}
	return s
}

func (t *Tuple) String() string {
	if len(t.Items) == 1 {
		return "(" + str(t.Items[0]) + ",)"
	}
	return "(" + joinTypes(t.Items) + ")"
}

func (r *Record) String() string {
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = f.Name + ": " + str(f.Type)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (v *Variable) String() string { return "'" + v.Name }

func (r *Ref) String() string { return "ref " + str(r.Elem) }

func (o *Overload) String() string {
	parts := make([]string, len(o.Variants))
	for i, v := range o.Variants {
		parts[i] = str(v)
	}
	return "Overload[" + strings.Join(parts, " | ") + "]"
}

func str(t Type) string {
	if t == nil {
		return "?"
	}
	return t.String()
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = str(t)
	}
	return strings.Join(parts, ", ")
}

// Equal compares two types structurally without consulting any bindings.
// Object and Variable identity is by name and id respectively.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch at := a.(type) {
	case *Object:
		bt, ok := b.(*Object)
		return ok && at.Name == bt.Name && equalAll(at.Params, bt.Params)
	case *Function:
		bt, ok := b.(*Function)
		return ok && at.ABI == bt.ABI && equalAll(at.Args, bt.Args) && Equal(at.Ret, bt.Ret)
	case *Tuple:
		bt, ok := b.(*Tuple)
		return ok && equalAll(at.Items, bt.Items)
	case *Record:
		bt, ok := b.(*Record)
		if !ok || len(at.Fields) != len(bt.Fields) {
			return false
		}
		for i := range at.Fields {
			if at.Fields[i].Name != bt.Fields[i].Name || !Equal(at.Fields[i].Type, bt.Fields[i].Type) {
				return false
			}
		}
		return true
	case *Variable:
		bt, ok := b.(*Variable)
		return ok && at.ID == bt.ID && at.Name == bt.Name
	case *Ref:
		bt, ok := b.(*Ref)
		return ok && Equal(at.Elem, bt.Elem)
	case *Overload:
		bt, ok := b.(*Overload)
		return ok && equalAll(at.Variants, bt.Variants)
	}
	return false
}

func equalAll(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
