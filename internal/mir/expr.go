package mir

import (
	"molten/internal/builtins"
	"molten/internal/ids"
)

// Expr is one lowered expression. A sequence of expressions evaluates to
// the value of its last element.
type Expr interface {
	exprNode()
}

// LitKind tags the payload of a Lit.
type LitKind uint8

const (
	LitUnit LitKind = iota
	LitBool
	LitByte
	LitChar
	LitInt
	LitReal
	LitStr
	// LitNull is the null value of Type.
	LitNull
)

type Lit struct {
	Kind LitKind
	Bool bool
	Int  int64
	Real float64
	Str  string
	Type *Type
}

// GetValue reads a value bound by id: a function, parameter, escape point
// or a SetValue.
type GetValue struct {
	ID ids.NodeID
}

// SetValue binds the value of Value to id and yields it.
type SetValue struct {
	ID    ids.NodeID
	Value Expr
}

// DefLocal declares a mutable local slot initialised with Value.
type DefLocal struct {
	ID    ids.NodeID
	Name  string
	Type  *Type
	Value Expr
}

type GetLocal struct {
	ID ids.NodeID
}

// SetLocal stores Value into a local slot and yields it.
type SetLocal struct {
	ID    ids.NodeID
	Value Expr
}

type GetGlobal struct {
	ID ids.NodeID
}

// SetGlobal stores Value into a module global and yields it.
type SetGlobal struct {
	ID    ids.NodeID
	Value Expr
}

// Call calls a function pointer with the C convention; the closure and
// exception arguments are already part of Args.
type Call struct {
	Func Expr
	Args []Expr
}

// Builtin applies a backend-supplied operator.
type Builtin struct {
	Op   builtins.Op
	Args []Expr
}

// Cast converts Value to Type: numeric widening, pointer reinterpretation,
// and boxing to or from the generic slot.
type Cast struct {
	Type  *Type
	Value Expr
}

type CmpOp uint8

const (
	CmpEq CmpOp = iota
	CmpNe
)

// Cmp compares two integers of the same type and yields a Bool.
type Cmp struct {
	Op    CmpOp
	Left  Expr
	Right Expr
}

// Phi evaluates Conds in order and yields the value of the Blocks entry
// matching the first one that is true, converted to Type. When no
// condition holds the result is the zero value of Type.
type Phi struct {
	Type   *Type
	Conds  [][]Expr
	Blocks [][]Expr
}

// Loop runs Body while Cond yields true, and yields unit.
type Loop struct {
	Cond []Expr
	Body []Expr
}

// AllocRef allocates a heap cell of Type, initialised with Value or
// zeroed, and yields its address.
type AllocRef struct {
	Type  *Type
	Value Expr
}

// MakeStruct allocates a struct of Type on the heap, fills it with Items
// and yields its address.
type MakeStruct struct {
	Type  *Type
	Items []Expr
}

// AccessRef yields the address of field Field of the struct Ref points to.
type AccessRef struct {
	Ref   Expr
	Field int
}

type LoadRef struct {
	Ref Expr
}

// StoreRef writes Value through Ref and yields Value.
type StoreRef struct {
	Ref   Expr
	Value Expr
}

// Escape saves a new escape point bound to ID. It yields 0 when first
// evaluated and the raised value each time a Jump returns to it.
type Escape struct {
	ID ids.NodeID
}

// Jump transfers control back to the escape point Point with Value. It
// never completes; Type is the type its context expects.
type Jump struct {
	Point Expr
	Value Expr
	Type  *Type
}

func (*Lit) exprNode()        {}
func (*GetValue) exprNode()   {}
func (*SetValue) exprNode()   {}
func (*DefLocal) exprNode()   {}
func (*GetLocal) exprNode()   {}
func (*SetLocal) exprNode()   {}
func (*GetGlobal) exprNode()  {}
func (*SetGlobal) exprNode()  {}
func (*Call) exprNode()       {}
func (*Builtin) exprNode()    {}
func (*Cast) exprNode()       {}
func (*Cmp) exprNode()        {}
func (*Phi) exprNode()        {}
func (*Loop) exprNode()       {}
func (*AllocRef) exprNode()   {}
func (*MakeStruct) exprNode() {}
func (*AccessRef) exprNode()  {}
func (*LoadRef) exprNode()    {}
func (*StoreRef) exprNode()   {}
func (*Escape) exprNode()     {}
func (*Jump) exprNode()       {}

func UnitLit() *Lit        { return &Lit{Kind: LitUnit} }
func BoolLit(v bool) *Lit  { return &Lit{Kind: LitBool, Bool: v} }
func IntLit(v int64) *Lit  { return &Lit{Kind: LitInt, Int: v} }
func StrLit(s string) *Lit { return &Lit{Kind: LitStr, Str: s} }
func NullLit(t *Type) *Lit { return &Lit{Kind: LitNull, Type: t} }

func ZeroLit(t *Type) *Lit {
	switch t.Kind {
	case TypeUnit:
		return UnitLit()
	case TypeBool:
		return BoolLit(false)
	case TypeByte:
		return &Lit{Kind: LitByte}
	case TypeChar:
		return &Lit{Kind: LitChar}
	case TypeInt:
		return IntLit(0)
	case TypeReal:
		return &Lit{Kind: LitReal}
	}
	return NullLit(t)
}

// IsPure reports whether evaluating e has no effect and may be repeated
// or dropped.
func IsPure(e Expr) bool {
	switch e.(type) {
	case *Lit, *GetValue, *GetLocal, *GetGlobal:
		return true
	}
	return false
}

// Walk calls fn for e and every expression nested in it, depth first.
func Walk(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch e := e.(type) {
	case *SetValue:
		Walk(e.Value, fn)
	case *DefLocal:
		Walk(e.Value, fn)
	case *SetLocal:
		Walk(e.Value, fn)
	case *SetGlobal:
		Walk(e.Value, fn)
	case *Call:
		Walk(e.Func, fn)
		walkAll(e.Args, fn)
	case *Builtin:
		walkAll(e.Args, fn)
	case *Cast:
		Walk(e.Value, fn)
	case *Cmp:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case *Phi:
		for i := range e.Conds {
			walkAll(e.Conds[i], fn)
		}
		for i := range e.Blocks {
			walkAll(e.Blocks[i], fn)
		}
	case *Loop:
		walkAll(e.Cond, fn)
		walkAll(e.Body, fn)
	case *AllocRef:
		Walk(e.Value, fn)
	case *MakeStruct:
		walkAll(e.Items, fn)
	case *AccessRef:
		Walk(e.Ref, fn)
	case *LoadRef:
		Walk(e.Ref, fn)
	case *StoreRef:
		Walk(e.Ref, fn)
		Walk(e.Value, fn)
	case *Jump:
		Walk(e.Point, fn)
		Walk(e.Value, fn)
	}
}

func walkAll(es []Expr, fn func(Expr)) {
	for _, e := range es {
		Walk(e, fn)
	}
}
