// Package defs holds the definition model: what a scope symbol refers to.
// Def is a closed set of kinds; the As* projections narrow it and fail
// with a KindError when the definition is of another kind.
package defs

import (
	"fmt"

	"molten/internal/ast"
	"molten/internal/ids"
	"molten/internal/types"
)

// Kind enumerates definition kinds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVar
	KindArg
	KindField
	KindClass
	KindStruct
	KindFunc
	KindOverload
	KindClosure
	KindMethod
	KindCFunc
)

var kindNames = [...]string{
	KindInvalid:  "invalid",
	KindVar:      "variable",
	KindArg:      "argument",
	KindField:    "field",
	KindClass:    "class",
	KindStruct:   "struct",
	KindFunc:     "function",
	KindOverload: "overload",
	KindClosure:  "closure",
	KindMethod:   "method",
	KindCFunc:    "C function",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Def is one definition. Defs are shared by every node and scope that
// refers to them and are owned by the session's definition table.
type Def interface {
	DefKind() Kind
	DefID() ids.NodeID
	DefName() string
}

type Var struct {
	ID      ids.NodeID
	Name    string
	Mutable bool
}

type Arg struct {
	ID   ids.NodeID
	Name string
}

// Field is a member variable of a class.
type Field struct {
	ID      ids.NodeID
	Name    string
	Class   ids.NodeID
	Mutable bool
}

// Func is a function compiled without a closure context: the C and the
// MoltenFunc conventions. Forward is set while only a declaration exists.
type Func struct {
	ID      ids.NodeID
	Name    string
	ABI     types.ABI
	Vis     ast.Visibility
	Forward bool
}

// CFunc is an external function reached by its plain C name.
type CFunc struct {
	ID   ids.NodeID
	Name string
}

// Method is a function defined in a class body. Impl is the Func or
// Closure that carries its code.
type Method struct {
	ID    ids.NodeID
	Name  string
	Class ids.NodeID
	Impl  Def
}

// Overload groups same-named functions; Variants are definition ids in
// registration order.
type Overload struct {
	ID       ids.NodeID
	Name     string
	Variants []ids.NodeID
}

func (*Var) DefKind() Kind      { return KindVar }
func (*Arg) DefKind() Kind      { return KindArg }
func (*Field) DefKind() Kind    { return KindField }
func (*Func) DefKind() Kind     { return KindFunc }
func (*CFunc) DefKind() Kind    { return KindCFunc }
func (*Method) DefKind() Kind   { return KindMethod }
func (*Overload) DefKind() Kind { return KindOverload }

func (d *Var) DefID() ids.NodeID      { return d.ID }
func (d *Arg) DefID() ids.NodeID      { return d.ID }
func (d *Field) DefID() ids.NodeID    { return d.ID }
func (d *Func) DefID() ids.NodeID     { return d.ID }
func (d *CFunc) DefID() ids.NodeID    { return d.ID }
func (d *Method) DefID() ids.NodeID   { return d.ID }
func (d *Overload) DefID() ids.NodeID { return d.ID }

func (d *Var) DefName() string      { return d.Name }
func (d *Arg) DefName() string      { return d.Name }
func (d *Field) DefName() string    { return d.Name }
func (d *Func) DefName() string     { return d.Name }
func (d *CFunc) DefName() string    { return d.Name }
func (d *Method) DefName() string   { return d.Name }
func (d *Overload) DefName() string { return d.Name }

// IsFunction reports whether d can be called and take part in overloading.
func IsFunction(d Def) bool {
	switch d.DefKind() {
	case KindFunc, KindCFunc, KindClosure, KindMethod:
		return true
	}
	return false
}

// IsGloballyAccessible reports whether every function body can reach d
// directly, without capturing it into a closure context.
func IsGloballyAccessible(d Def) bool {
	switch d := d.(type) {
	case *Func, *CFunc, *ClassDef, *StructDef, *Overload:
		return true
	case *Closure:
		return d.GlobalID.IsValid()
	case *Method:
		return IsGloballyAccessible(d.Impl)
	}
	return false
}

// ABIOf returns the calling convention of a function-like definition.
func ABIOf(d Def) types.ABI {
	switch d := d.(type) {
	case *Func:
		return d.ABI
	case *CFunc:
		return types.ABIC
	case *Closure:
		return d.ABI
	case *Method:
		return ABIOf(d.Impl)
	}
	return types.ABIUnknown
}

// IsForward reports whether d is a declaration still waiting for its body.
func IsForward(d Def) bool {
	switch d := d.(type) {
	case *Func:
		return d.Forward
	case *Closure:
		return d.Forward
	case *Method:
		return IsForward(d.Impl)
	}
	return false
}

func AsClass(d Def) (*ClassDef, error) {
	if c, ok := d.(*ClassDef); ok {
		return c, nil
	}
	return nil, kindError(KindClass, d)
}

// AsStruct returns the struct layout of a class or plain struct.
func AsStruct(d Def) (*StructDef, error) {
	switch d := d.(type) {
	case *ClassDef:
		return d.Struct, nil
	case *StructDef:
		return d, nil
	}
	return nil, kindError(KindStruct, d)
}

func AsOverload(d Def) (*Overload, error) {
	if o, ok := d.(*Overload); ok {
		return o, nil
	}
	return nil, kindError(KindOverload, d)
}

// AsClosure returns the closure of a closure definition or of a method
// implemented as one.
func AsClosure(d Def) (*Closure, error) {
	switch d := d.(type) {
	case *Closure:
		return d, nil
	case *Method:
		if cl, ok := d.Impl.(*Closure); ok {
			return cl, nil
		}
	}
	return nil, kindError(KindClosure, d)
}

func AsMethod(d Def) (*Method, error) {
	if m, ok := d.(*Method); ok {
		return m, nil
	}
	return nil, kindError(KindMethod, d)
}

func AsField(d Def) (*Field, error) {
	if f, ok := d.(*Field); ok {
		return f, nil
	}
	return nil, kindError(KindField, d)
}
