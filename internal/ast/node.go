// Package ast defines the tree the middle-end consumes. Every node carries
// a NodeID; later phases keep their results in side tables keyed by it.
package ast

import (
	"fmt"

	"molten/internal/ids"
	"molten/internal/source"
)

// Kind enumerates node variants.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindLiteral
	KindNil
	KindIdentifier
	KindBlock
	KindDefinition
	KindDeclare
	KindFunction
	KindInvoke
	KindSideEffect
	KindIf
	KindMatch
	KindTry
	KindRaise
	KindWhile
	KindFor
	KindRef
	KindDeref
	KindTuple
	KindRecord
	KindList
	KindIndex
	KindAccessor
	KindResolver
	KindAssignment
	KindNew
	KindClass
	KindTypeAlias
	KindImport
	KindPattern
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindLiteral:    "literal",
	KindNil:        "nil",
	KindIdentifier: "identifier",
	KindBlock:      "block",
	KindDefinition: "definition",
	KindDeclare:    "declare",
	KindFunction:   "function",
	KindInvoke:     "invoke",
	KindSideEffect: "side-effect",
	KindIf:         "if",
	KindMatch:      "match",
	KindTry:        "try",
	KindRaise:      "raise",
	KindWhile:      "while",
	KindFor:        "for",
	KindRef:        "ref",
	KindDeref:      "deref",
	KindTuple:      "tuple",
	KindRecord:     "record",
	KindList:       "list",
	KindIndex:      "index",
	KindAccessor:   "accessor",
	KindResolver:   "resolver",
	KindAssignment: "assignment",
	KindNew:        "new",
	KindClass:      "class",
	KindTypeAlias:  "type-alias",
	KindImport:     "import",
	KindPattern:    "pattern",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Node is implemented by every tree node.
type Node interface {
	ID() ids.NodeID
	Pos() source.Pos
	Kind() Kind
}

// Base holds the identity shared by all nodes.
type Base struct {
	NodeID ids.NodeID
	At     source.Pos
}

func (b *Base) ID() ids.NodeID   { return b.NodeID }
func (b *Base) Pos() source.Pos { return b.At }

// Visibility controls whether a definition is exported from its module.
type Visibility uint8

const (
	Private Visibility = iota
	Public
)

func (v Visibility) String() string {
	if v == Public {
		return "pub"
	}
	return "priv"
}

// Mutability of a let binding.
type Mutability uint8

const (
	Immutable Mutability = iota
	Mutable
)
