package ast

import (
	"molten/internal/source"
	"molten/internal/types"
)

// ClassSpec names a class type with its type parameters.
type ClassSpec struct {
	At     source.Pos
	Name   string
	Params []types.Type
}

// Type returns the unbound object type the spec describes.
func (c ClassSpec) Type() *types.Object {
	return &types.Object{Name: c.Name, Params: c.Params}
}

// Definition is a let binding. In a class body it declares a field.
type Definition struct {
	Base
	Mut   Mutability
	Name  string
	Type  types.Type
	Value Node
}

// Declare binds a function signature ahead of its definition, or names an
// external function.
type Declare struct {
	Base
	Vis  Visibility
	Name string
	Type types.Type
}

type Argument struct {
	Base
	Name    string
	Type    types.Type
	Default Node
}

// Function is a named or anonymous function. ABI selects the calling
// convention the body is compiled with.
type Function struct {
	Base
	Vis  Visibility
	Name string
	Args []*Argument
	Ret  types.Type
	Body Node
	ABI  types.ABI
}

// IsAnonymous reports whether the function has no name.
func (f *Function) IsAnonymous() bool { return f.Name == "" }

type Class struct {
	Base
	Spec   ClassSpec
	Parent *ClassSpec
	Body   []Node
}

type TypeAlias struct {
	Base
	Spec ClassSpec
	Type types.Type
}

// Import pulls in the declarations of another module. Decls is filled by
// the loader before binding.
type Import struct {
	Base
	Name  string
	Decls []Node
}

func (*Definition) Kind() Kind { return KindDefinition }
func (*Declare) Kind() Kind    { return KindDeclare }
func (*Function) Kind() Kind   { return KindFunction }
func (*Class) Kind() Kind      { return KindClass }
func (*TypeAlias) Kind() Kind  { return KindTypeAlias }
func (*Import) Kind() Kind     { return KindImport }
