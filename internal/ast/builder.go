package ast

import (
	"molten/internal/ids"
	"molten/internal/source"
	"molten/internal/types"
)

// Builder mints nodes with fresh ids. Refinement, lowering and tests use it
// to synthesise trees; the position of new nodes is set with At.
type Builder struct {
	IDs *ids.Generator
	pos source.Pos
}

func NewBuilder(gen *ids.Generator) *Builder {
	return &Builder{IDs: gen}
}

// At sets the position given to subsequently built nodes.
func (b *Builder) At(pos source.Pos) *Builder {
	b.pos = pos
	return b
}

func (b *Builder) base() Base {
	return Base{NodeID: b.IDs.Next(), At: b.pos}
}

func (b *Builder) Unit() *Literal { return &Literal{Base: b.base(), Lit: LitUnit} }

func (b *Builder) Bool(v bool) *Literal { return &Literal{Base: b.base(), Lit: LitBool, Bool: v} }

func (b *Builder) Int(v int64) *Literal { return &Literal{Base: b.base(), Lit: LitInt, Int: v} }

func (b *Builder) Real(v float64) *Literal { return &Literal{Base: b.base(), Lit: LitReal, Real: v} }

func (b *Builder) Str(s string) *Literal { return &Literal{Base: b.base(), Lit: LitString, Str: s} }

func (b *Builder) Char(r rune) *Literal { return &Literal{Base: b.base(), Lit: LitChar, Int: int64(r)} }

func (b *Builder) Nil() *Nil { return &Nil{Base: b.base()} }

func (b *Builder) Ident(name string) *Identifier {
	return &Identifier{Base: b.base(), Name: name}
}

func (b *Builder) Block(body ...Node) *Block {
	return &Block{Base: b.base(), Body: body}
}

// ScopedBlock is a block with its own lexical scope.
func (b *Builder) ScopedBlock(body ...Node) *Block {
	return &Block{Base: b.base(), Body: body, Scoped: true}
}

func (b *Builder) Let(name string, value Node) *Definition {
	return &Definition{Base: b.base(), Name: name, Value: value}
}

func (b *Builder) LetMut(name string, value Node) *Definition {
	return &Definition{Base: b.base(), Mut: Mutable, Name: name, Value: value}
}

// Field declares a class field with an optional type.
func (b *Builder) Field(name string, t types.Type, value Node) *Definition {
	return &Definition{Base: b.base(), Mut: Mutable, Name: name, Type: t, Value: value}
}

func (b *Builder) Call(fn Node, args ...Node) *Invoke {
	return &Invoke{Base: b.base(), Func: fn, Args: args}
}

// Op calls the function or operator bound to name.
func (b *Builder) Op(name string, args ...Node) *Invoke {
	return b.Call(b.Ident(name), args...)
}

// Method calls obj.name(args...).
func (b *Builder) Method(obj Node, name string, args ...Node) *Invoke {
	return b.Call(b.Access(obj, name), args...)
}

func (b *Builder) And(l, r Node) *SideEffect {
	return &SideEffect{Base: b.base(), Op: "and", Args: []Node{l, r}}
}

func (b *Builder) Or(l, r Node) *SideEffect {
	return &SideEffect{Base: b.base(), Op: "or", Args: []Node{l, r}}
}

func (b *Builder) If(cond, then, els Node) *If {
	return &If{Base: b.base(), Cond: cond, Then: then, Else: els}
}

func (b *Builder) While(cond, body Node) *While {
	return &While{Base: b.base(), Cond: cond, Body: body}
}

func (b *Builder) For(name string, list, body Node) *For {
	return &For{Base: b.base(), Name: name, List: list, Body: body}
}

func (b *Builder) Match(cond Node, cases ...*Case) *Match {
	return &Match{Base: b.base(), Cond: cond, Cases: cases, CompID: b.IDs.Next()}
}

func (b *Builder) Try(body Node, cases ...*Case) *Try {
	return &Try{Base: b.base(), Body: body, Cases: cases, CompID: b.IDs.Next()}
}

func (b *Builder) Wildcard(body Node) *Case {
	return &Case{Pattern: &Pattern{Base: b.base(), Pat: PatWildcard}, Body: body}
}

func (b *Builder) LitCase(value Node, body Node) *Case {
	return &Case{Pattern: &Pattern{Base: b.base(), Pat: PatLiteral, Value: value}, Body: body}
}

func (b *Builder) BindCase(name string, body Node) *Case {
	return &Case{Pattern: &Pattern{Base: b.base(), Pat: PatBinding, Name: name}, Body: body}
}

func (b *Builder) Raise(value Node) *Raise { return &Raise{Base: b.base(), Value: value} }

func (b *Builder) RefOf(value Node) *Ref { return &Ref{Base: b.base(), Value: value} }

func (b *Builder) Deref(value Node) *Deref { return &Deref{Base: b.base(), Value: value} }

func (b *Builder) Tuple(items ...Node) *Tuple { return &Tuple{Base: b.base(), Items: items} }

func (b *Builder) Record(fields ...RecordField) *Record {
	return &Record{Base: b.base(), Fields: fields}
}

func (b *Builder) List(items ...Node) *List { return &List{Base: b.base(), Items: items} }

func (b *Builder) Index(target, index Node) *Index {
	return &Index{Base: b.base(), Target: target, Index: index}
}

func (b *Builder) Access(obj Node, field string) *Accessor {
	return &Accessor{Base: b.base(), Object: obj, Field: field, OID: b.IDs.Next()}
}

// Resolve builds class::field.
func (b *Builder) Resolve(class string, field string) *Resolver {
	return &Resolver{Base: b.base(), Path: b.Ident(class), Field: field, OID: b.IDs.Next()}
}

func (b *Builder) Assign(left, right Node) *Assignment {
	return &Assignment{Base: b.base(), Left: left, Right: right}
}

func (b *Builder) Spec(name string, params ...types.Type) ClassSpec {
	return ClassSpec{At: b.pos, Name: name, Params: params}
}

func (b *Builder) New(spec ClassSpec) *New { return &New{Base: b.base(), Class: spec} }

func (b *Builder) Class(spec ClassSpec, parent *ClassSpec, body ...Node) *Class {
	return &Class{Base: b.base(), Spec: spec, Parent: parent, Body: body}
}

func (b *Builder) Arg(name string, t types.Type) *Argument {
	return &Argument{Base: b.base(), Name: name, Type: t}
}

// Func builds a function with an explicit ABI.
func (b *Builder) Func(abi types.ABI, name string, args []*Argument, ret types.Type, body Node) *Function {
	return &Function{Base: b.base(), Name: name, Args: args, Ret: ret, Body: body, ABI: abi}
}

// Fn builds a closure-convention function.
func (b *Builder) Fn(name string, args []*Argument, body Node) *Function {
	return b.Func(types.ABIMolten, name, args, nil, body)
}

func (b *Builder) Declare(name string, t types.Type) *Declare {
	return &Declare{Base: b.base(), Name: name, Type: t}
}

func (b *Builder) Alias(spec ClassSpec, t types.Type) *TypeAlias {
	return &TypeAlias{Base: b.base(), Spec: spec, Type: t}
}

func (b *Builder) Import(name string) *Import { return &Import{Base: b.base(), Name: name} }
