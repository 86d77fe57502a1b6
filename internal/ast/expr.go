package ast

import (
	"molten/internal/ids"
	"molten/internal/types"
)

// LitKind tags the payload of a Literal.
type LitKind uint8

const (
	LitUnit LitKind = iota
	LitBool
	LitInt
	LitReal
	LitString
	LitChar
)

type Literal struct {
	Base
	Lit  LitKind
	Bool bool
	Int  int64
	Real float64
	Str  string
}

// Nil is the null value of whatever type the context expects.
type Nil struct{ Base }

type Identifier struct {
	Base
	Name string
}

// Block evaluates to its last expression. A scoped block opens its own
// lexical scope; plain blocks share the enclosing one.
type Block struct {
	Base
	Body   []Node
	Scoped bool
}

type Invoke struct {
	Base
	Func Node
	Args []Node
}

// SideEffect is a short-circuiting operator: "and" or "or".
type SideEffect struct {
	Base
	Op   string
	Args []Node
}

type If struct {
	Base
	Cond Node
	Then Node
	Else Node
}

// Match dispatches on Cond. CompID names the synthetic reference to the
// "==" used by literal patterns.
type Match struct {
	Base
	Cond   Node
	Cases  []*Case
	CompID ids.NodeID
}

// Try evaluates Body and, when something is raised inside it, matches the
// raised value against Cases.
type Try struct {
	Base
	Body   Node
	Cases  []*Case
	CompID ids.NodeID
}

type Raise struct {
	Base
	Value Node
}

type While struct {
	Base
	Cond Node
	Body Node
}

// For iterates Name over List; it never survives refinement.
type For struct {
	Base
	Name string
	List Node
	Body Node
}

// Ref allocates a reference cell holding Value.
type Ref struct {
	Base
	Value Node
}

type Deref struct {
	Base
	Value Node
}

type Tuple struct {
	Base
	Items []Node
}

type RecordField struct {
	Name  string
	Value Node
}

type Record struct {
	Base
	Fields []RecordField
}

// List is a list literal; refinement turns it into buffer operations.
type List struct {
	Base
	Items []Node
}

type Index struct {
	Base
	Target Node
	Index  Node
}

// Accessor is obj.field. OID keys the recorded type of Object.
type Accessor struct {
	Base
	Object Node
	Field  string
	OID    ids.NodeID
}

// Resolver is Class::member. OID keys the reference to the class.
type Resolver struct {
	Base
	Path  Node
	Field string
	OID   ids.NodeID
}

type Assignment struct {
	Base
	Left  Node
	Right Node
}

// New allocates an uninitialised object of Class.
type New struct {
	Base
	Class ClassSpec
}

// PatternKind selects how a case pattern matches.
type PatternKind uint8

const (
	PatWildcard PatternKind = iota
	PatLiteral
	PatBinding
)

// Pattern is the left side of a match or try case. Binding patterns bind
// Name to the matched value and always match.
type Pattern struct {
	Base
	Pat   PatternKind
	Value Node
	Name  string
}

type Case struct {
	Pattern *Pattern
	Body    Node
}

func (*Literal) Kind() Kind    { return KindLiteral }
func (*Nil) Kind() Kind        { return KindNil }
func (*Identifier) Kind() Kind { return KindIdentifier }
func (*Block) Kind() Kind      { return KindBlock }
func (*Invoke) Kind() Kind     { return KindInvoke }
func (*SideEffect) Kind() Kind { return KindSideEffect }
func (*If) Kind() Kind         { return KindIf }
func (*Match) Kind() Kind      { return KindMatch }
func (*Try) Kind() Kind        { return KindTry }
func (*Raise) Kind() Kind      { return KindRaise }
func (*Pattern) Kind() Kind    { return KindPattern }
func (*While) Kind() Kind      { return KindWhile }
func (*For) Kind() Kind        { return KindFor }
func (*Ref) Kind() Kind        { return KindRef }
func (*Deref) Kind() Kind      { return KindDeref }
func (*Tuple) Kind() Kind      { return KindTuple }
func (*Record) Kind() Kind     { return KindRecord }
func (*List) Kind() Kind       { return KindList }
func (*Index) Kind() Kind      { return KindIndex }
func (*Accessor) Kind() Kind   { return KindAccessor }
func (*Resolver) Kind() Kind   { return KindResolver }
func (*Assignment) Kind() Kind { return KindAssignment }
func (*New) Kind() Kind        { return KindNew }

// LiteralType returns the builtin type name of a literal.
func LiteralType(l *Literal) string {
	switch l.Lit {
	case LitBool:
		return types.BoolName
	case LitInt:
		return types.IntName
	case LitReal:
		return types.RealName
	case LitString:
		return types.StringName
	case LitChar:
		return types.CharName
	}
	return types.UnitName
}
