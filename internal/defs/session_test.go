package defs

import (
	"fmt"

	"molten/internal/ids"
	"molten/internal/types"
)

type fakeSession struct {
	*types.MapEnv
	gen   *ids.Generator
	defs  map[ids.NodeID]Def
	types map[ids.NodeID]types.Type
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		MapEnv: types.NewMapEnv(),
		gen:    ids.NewGenerator(1000),
		defs:   make(map[ids.NodeID]Def),
		types:  make(map[ids.NodeID]types.Type),
	}
}

func (f *fakeSession) NextID() ids.NodeID { return f.gen.Next() }

func (f *fakeSession) Def(id ids.NodeID) (Def, error) {
	d, ok := f.defs[id]
	if !ok {
		return nil, fmt.Errorf("no definition for %s", id)
	}
	return d, nil
}

func (f *fakeSession) SetDef(id ids.NodeID, d Def) { f.defs[id] = d }

func (f *fakeSession) Type(id ids.NodeID) (types.Type, bool) {
	t, ok := f.types[id]
	return t, ok
}

func (f *fakeSession) SetType(id ids.NodeID, t types.Type) { f.types[id] = t }
