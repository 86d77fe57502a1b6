package defs

import (
	"molten/internal/ids"
	"molten/internal/types"
)

// Session is the slice of the compilation session the definition model
// needs: id minting, the definition and type tables, and type
// unification state.
type Session interface {
	types.Env
	NextID() ids.NodeID
	Def(id ids.NodeID) (Def, error)
	SetDef(id ids.NodeID, d Def)
	Type(id ids.NodeID) (types.Type, bool)
	SetType(id ids.NodeID, t types.Type)
}
