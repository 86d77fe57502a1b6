package defs

import (
	"fmt"

	"molten/internal/ast"
	"molten/internal/ids"
	"molten/internal/types"
)

// Names of the hidden closure parameters and context slots.
const (
	ContextArg   = "__context__"
	ExceptionArg = "__exception__"
	FuncField    = "__func__"
)

// Closure is a function using the closure convention. Context lists the
// values it captures; slot 0 always holds the raw function pointer once
// lowering has started.
type Closure struct {
	ID      ids.NodeID
	Name    string
	ABI     types.ABI
	Vis     ast.Visibility
	Forward bool

	ContextArgID  ids.NodeID
	ContextTypeID ids.NodeID
	Context       *StructDef
	// GlobalID names the global holding the closure value of a function
	// defined at module or class level; invalid for local closures.
	GlobalID ids.NodeID
}

func (*Closure) DefKind() Kind       { return KindClosure }
func (c *Closure) DefID() ids.NodeID { return c.ID }
func (c *Closure) DefName() string   { return c.Name }

func NewClosure(sess Session, id ids.NodeID, name string, abi types.ABI) *Closure {
	ctxType := sess.NextID()
	return &Closure{
		ID:            id,
		Name:          name,
		ABI:           abi,
		ContextArgID:  sess.NextID(),
		ContextTypeID: ctxType,
		Context:       NewStruct(ctxType, ContextTypeName(id), nil),
	}
}

// ContextTypeName is the type name of the context struct of closure id.
func ContextTypeName(id ids.NodeID) string {
	return fmt.Sprintf("__context_%d__", uint64(id))
}

// FindOrAddField returns the context slot capturing def, appending one on
// first use.
func (c *Closure) FindOrAddField(sess Session, def ids.NodeID, name string, t types.Type) int {
	if i := c.Context.IndexByID(def); i >= 0 {
		return i
	}
	return c.Context.SetField(sess, def, name, t)
}

// Captures returns the captured slots, without the function pointer.
func (c *Closure) Captures() []StructField {
	if len(c.Context.Fields) > 0 && c.Context.Fields[0].Name == FuncField {
		return c.Context.Fields[1:]
	}
	return c.Context.Fields
}
