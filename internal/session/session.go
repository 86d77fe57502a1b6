// Package session holds the state of one compilation unit: the id
// generator, the scope map and the side tables that join AST nodes to
// definitions, types and resolved references. A Session implements
// types.Env, so type variables are bound directly in it.
//
// A Session is not safe for concurrent use; independent units each get
// their own.
package session

import (
	"errors"
	"fmt"

	"molten/internal/ast"
	"molten/internal/defs"
	"molten/internal/ids"
	"molten/internal/symbols"
	"molten/internal/trace"
	"molten/internal/types"
)

// ErrNoDefinition is returned when an id has no definition recorded.
var ErrNoDefinition = errors.New("no definition")

type Session struct {
	Name   string
	IDs    *ids.Generator
	Scopes *symbols.Map
	Build  *ast.Builder
	Tracer trace.Tracer

	defs  map[ids.NodeID]defs.Def
	types map[ids.NodeID]types.Type
	refs  map[ids.NodeID]ids.NodeID
	vars  map[ids.NodeID]types.Type
}

// New creates the session of unit name.
func New(name string) *Session {
	gen := ids.NewGenerator(ids.NoID)
	return &Session{
		Name:   name,
		IDs:    gen,
		Scopes: symbols.NewMap(),
		Build:  ast.NewBuilder(gen),
		Tracer: trace.Nop,
		defs:   make(map[ids.NodeID]defs.Def),
		types:  make(map[ids.NodeID]types.Type),
		refs:   make(map[ids.NodeID]ids.NodeID),
		vars:   make(map[ids.NodeID]types.Type),
	}
}

// Reserve moves the generator past every id used by code.
func (s *Session) Reserve(code []ast.Node) {
	s.IDs.Reserve(ast.MaxID(code))
}

func (s *Session) NextID() ids.NodeID { return s.IDs.Next() }

func (s *Session) Def(id ids.NodeID) (defs.Def, error) {
	d, ok := s.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoDefinition, id)
	}
	return d, nil
}

func (s *Session) SetDef(id ids.NodeID, d defs.Def) { s.defs[id] = d }

func (s *Session) Type(id ids.NodeID) (types.Type, bool) {
	t, ok := s.types[id]
	return t, ok
}

func (s *Session) SetType(id ids.NodeID, t types.Type) { s.types[id] = t }

// ResolvedType returns the type of id with every bound variable replaced.
func (s *Session) ResolvedType(id ids.NodeID) (types.Type, bool) {
	t, ok := s.types[id]
	if !ok {
		return nil, false
	}
	return types.Resolve(s, t), true
}

// Ref returns the definition id that node id refers to.
func (s *Session) Ref(id ids.NodeID) (ids.NodeID, bool) {
	r, ok := s.refs[id]
	return r, ok
}

func (s *Session) SetRef(id, def ids.NodeID) { s.refs[id] = def }

// RefDef returns the definition node id refers to. A reference to a
// completed forward declaration yields the completing definition.
func (s *Session) RefDef(id ids.NodeID) (defs.Def, error) {
	r, ok := s.refs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a resolved reference", ErrNoDefinition, id)
	}
	return s.Def(r)
}

func (s *Session) Binding(id ids.NodeID) (types.Type, bool) {
	t, ok := s.vars[id]
	return t, ok
}

func (s *Session) Bind(id ids.NodeID, t types.Type) { s.vars[id] = t }

// Ancestors returns the parent chain of a class type, nearest first.
func (s *Session) Ancestors(o *types.Object) []*types.Object {
	cls, err := s.ClassOf(o)
	if err != nil {
		return nil
	}
	var out []*types.Object
	seen := map[ids.NodeID]bool{cls.ID: true}
	for cls.ParentType != nil {
		out = append(out, cls.ParentType)
		parent, err := s.ClassOf(cls.ParentType)
		if err != nil || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		cls = parent
	}
	return out
}

// ClassOf returns the class definition of an object type, found by id
// when the type is bound and by name through the global scope otherwise.
func (s *Session) ClassOf(t types.Type) (*defs.ClassDef, error) {
	o, ok := types.Prune(s, t).(*types.Object)
	if !ok {
		return nil, fmt.Errorf("%s is not a class type", types.Resolve(s, t))
	}
	if o.ID.IsValid() {
		if d, err := s.Def(o.ID); err == nil {
			return defs.AsClass(d)
		}
	}
	sym, err := s.Scopes.Global.LookupType(o.Name)
	if err != nil {
		return nil, err
	}
	d, err := s.Def(sym.Def)
	if err != nil {
		return nil, err
	}
	return defs.AsClass(d)
}

// Fresh returns a new unbound type variable.
func (s *Session) Fresh(name string) *types.Variable {
	id := s.NextID()
	if name == "" {
		name = fmt.Sprintf("t%d", uint64(id))
	}
	return &types.Variable{Name: name, ID: id}
}

// Instantiate replaces the generic variables of t with fresh ones.
func (s *Session) Instantiate(t types.Type) types.Type {
	return types.Instantiate(t, s.Fresh)
}

// Resolve replaces every bound variable in t.
func (s *Session) Resolve(t types.Type) types.Type { return types.Resolve(s, t) }

var (
	_ types.Env    = (*Session)(nil)
	_ defs.Session = (*Session)(nil)
)
