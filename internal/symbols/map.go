package symbols

import "molten/internal/ids"

// Map owns every scope of a unit, keyed by the node that opened it, plus
// the Primitive scope of builtins and the Global scope above it.
type Map struct {
	Primitive *Scope
	Global    *Scope
	scopes    map[ids.NodeID]*Scope
}

func NewMap() *Map {
	prim := newScope(ids.NoID, Link{}, ContextPrimitive)
	global := newScope(ids.NoID, Lexical(prim), ContextGlobal)
	return &Map{Primitive: prim, Global: global, scopes: make(map[ids.NodeID]*Scope)}
}

// Add creates and registers the scope of node id. An existing scope for id
// is replaced.
func (m *Map) Add(id ids.NodeID, link Link, ctx Context) *Scope {
	s := newScope(id, link, ctx)
	m.scopes[id] = s
	return s
}

// Get returns the scope opened by node id, or nil.
func (m *Map) Get(id ids.NodeID) *Scope { return m.scopes[id] }

// GetOrAdd returns the scope of id, creating it when missing.
func (m *Map) GetOrAdd(id ids.NodeID, link Link, ctx Context) *Scope {
	if s, ok := m.scopes[id]; ok {
		return s
	}
	return m.Add(id, link, ctx)
}

func (m *Map) Len() int { return len(m.scopes) }
