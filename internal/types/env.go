package types

import "molten/internal/ids"

// Env supplies what unification needs from the compilation session:
// variable bindings and the inheritance chain of class types.
type Env interface {
	Binding(id ids.NodeID) (Type, bool)
	Bind(id ids.NodeID, t Type)
	// Ancestors returns the parent chain of a class type, nearest first.
	Ancestors(o *Object) []*Object
}

// Layer records bindings on top of a base Env without touching it until
// Commit. Overload resolution tries each variant in its own Layer.
type Layer struct {
	base  Env
	local map[ids.NodeID]Type
}

func NewLayer(base Env) *Layer {
	return &Layer{base: base, local: make(map[ids.NodeID]Type)}
}

func (l *Layer) Binding(id ids.NodeID) (Type, bool) {
	if t, ok := l.local[id]; ok {
		return t, true
	}
	return l.base.Binding(id)
}

func (l *Layer) Bind(id ids.NodeID, t Type) { l.local[id] = t }

func (l *Layer) Ancestors(o *Object) []*Object { return l.base.Ancestors(o) }

// Commit copies the layer's bindings into the base environment.
func (l *Layer) Commit() {
	for id, t := range l.local {
		l.base.Bind(id, t)
	}
	clear(l.local)
}

// MapEnv is a standalone Env over a plain map with optional parent links,
// used where no session exists.
type MapEnv struct {
	Vars    map[ids.NodeID]Type
	Parents map[string]*Object
}

func NewMapEnv() *MapEnv {
	return &MapEnv{Vars: make(map[ids.NodeID]Type), Parents: make(map[string]*Object)}
}

func (m *MapEnv) Binding(id ids.NodeID) (Type, bool) {
	t, ok := m.Vars[id]
	return t, ok
}

func (m *MapEnv) Bind(id ids.NodeID, t Type) { m.Vars[id] = t }

func (m *MapEnv) Ancestors(o *Object) []*Object {
	var out []*Object
	seen := map[string]bool{o.Name: true}
	for p := m.Parents[o.Name]; p != nil && !seen[p.Name]; p = m.Parents[p.Name] {
		seen[p.Name] = true
		out = append(out, p)
	}
	return out
}
