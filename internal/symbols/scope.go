package symbols

import (
	"slices"
	"strings"

	"molten/internal/ids"
	"molten/internal/types"
)

// Context tags what opened a scope.
type Context uint8

const (
	ContextBlock Context = iota
	ContextPrimitive
	ContextGlobal
	ContextFunc
	ContextClass
)

func (c Context) String() string {
	switch c {
	case ContextPrimitive:
		return "primitive"
	case ContextGlobal:
		return "global"
	case ContextFunc:
		return "function"
	case ContextClass:
		return "class"
	default:
		return "block"
	}
}

// LinkKind selects how lookups leave a scope.
type LinkKind uint8

const (
	// LinkNone ends the chain.
	LinkNone LinkKind = iota
	// LinkLexical continues the lookup in the enclosing scope.
	LinkLexical
	// LinkRedirect makes the scope transparent: definitions land in the
	// target and lookups continue there instead of in a lexical parent.
	LinkRedirect
)

// Link connects a scope to the next one in its lookup chain.
type Link struct {
	Kind  LinkKind
	Scope *Scope
}

func Lexical(parent *Scope) Link {
	if parent == nil {
		return Link{}
	}
	return Link{Kind: LinkLexical, Scope: parent}
}

func Redirect(target *Scope) Link { return Link{Kind: LinkRedirect, Scope: target} }

// Symbol binds a value name to the definition that introduced it. The type
// of the definition lives in the session, keyed by Def.
type Symbol struct {
	Name    string
	Def     ids.NodeID
	Mutable bool
}

// TypeSymbol binds a type name to a class definition or to an alias.
type TypeSymbol struct {
	Name  string
	Def   ids.NodeID
	Alias types.Type
}

// Scope is one level of the symbol hierarchy.
type Scope struct {
	ID       ids.NodeID
	Link     Link
	Context  Context
	Basename string

	values map[string]*Symbol
	order  []string
	types  map[string]*TypeSymbol
}

func newScope(id ids.NodeID, link Link, ctx Context) *Scope {
	return &Scope{
		ID:      id,
		Link:    link,
		Context: ctx,
		values:  make(map[string]*Symbol),
		types:   make(map[string]*TypeSymbol),
	}
}

// New returns a scope that is not registered in any Map.
func New(link Link, ctx Context) *Scope { return newScope(ids.NoID, link, ctx) }

// Next returns the scope lookups continue in, or nil.
func (s *Scope) Next() *Scope { return s.Link.Scope }

// Target is the scope definitions made in s are stored in.
func (s *Scope) Target() *Scope {
	for s.Link.Kind == LinkRedirect && s.Link.Scope != nil {
		s = s.Link.Scope
	}
	return s
}

// Define registers name in the target scope.
func (s *Scope) Define(name string, def ids.NodeID, mutable bool) (*Symbol, error) {
	t := s.Target()
	if _, exists := t.values[name]; exists {
		return nil, &DuplicateError{Name: name, Scope: t.describe()}
	}
	sym := &Symbol{Name: name, Def: def, Mutable: mutable}
	t.values[name] = sym
	t.order = append(t.order, name)
	return sym, nil
}

// Rebind points an existing local name at another definition, as overload
// promotion does.
func (s *Scope) Rebind(name string, def ids.NodeID) error {
	sym, ok := s.Target().values[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	sym.Def = def
	return nil
}

// DefineType registers a type name in the target scope.
func (s *Scope) DefineType(name string, def ids.NodeID, alias types.Type) (*TypeSymbol, error) {
	t := s.Target()
	if _, exists := t.types[name]; exists {
		return nil, &DuplicateError{Name: name, Scope: t.describe(), Type: true}
	}
	sym := &TypeSymbol{Name: name, Def: def, Alias: alias}
	t.types[name] = sym
	return sym, nil
}

// Local returns the symbol bound to name in this scope (or its redirect
// target) without walking outward.
func (s *Scope) Local(name string) (*Symbol, bool) {
	if sym, ok := s.values[name]; ok {
		return sym, true
	}
	if t := s.Target(); t != s {
		sym, ok := t.values[name]
		return sym, ok
	}
	return nil, false
}

// Lookup walks the chain outward and returns the nearest binding of name
// together with the scope holding it.
func (s *Scope) Lookup(name string) (*Symbol, *Scope, error) {
	for cur := s; cur != nil; cur = cur.Next() {
		if sym, ok := cur.values[name]; ok {
			return sym, cur, nil
		}
	}
	return nil, nil, &NotFoundError{Name: name}
}

// LookupType walks the chain outward for a type name.
func (s *Scope) LookupType(name string) (*TypeSymbol, error) {
	for cur := s; cur != nil; cur = cur.Next() {
		if sym, ok := cur.types[name]; ok {
			return sym, nil
		}
	}
	return nil, &NotFoundError{Name: name, Type: true}
}

// LookupMember searches class member scopes only: s and the member scopes
// of its ancestors.
func (s *Scope) LookupMember(name string) (*Symbol, error) {
	for cur := s; cur != nil && cur.Context == ContextClass; cur = cur.Next() {
		if sym, ok := cur.values[name]; ok {
			return sym, nil
		}
	}
	return nil, &NotFoundError{Name: name}
}

// ContainsLocal reports whether name is bound in this scope itself.
func (s *Scope) ContainsLocal(name string) bool {
	_, ok := s.Local(name)
	return ok
}

// Contains reports whether name is visible from s.
func (s *Scope) Contains(name string) bool {
	_, _, err := s.Lookup(name)
	return err == nil
}

// DefinedInFunction reports whether def is bound to name in s or in one of
// the block scopes between s and the innermost function scope, inclusive.
func (s *Scope) DefinedInFunction(name string, def ids.NodeID) bool {
	for cur := s; cur != nil; cur = cur.Next() {
		if sym, ok := cur.values[name]; ok && sym.Def == def {
			return true
		}
		if cur.Context != ContextBlock {
			return false
		}
	}
	return false
}

// Names lists local value names in definition order.
func (s *Scope) Names() []string { return slices.Clone(s.order) }

// IsPrimitive reports whether s is the builtin scope.
func (s *Scope) IsPrimitive() bool { return s.Context == ContextPrimitive }

// Global returns the outermost non-primitive scope of the chain.
func (s *Scope) Global() *Scope {
	cur := s
	for cur.Context != ContextGlobal {
		next := cur.Next()
		if next == nil || next.IsPrimitive() {
			return cur
		}
		cur = next
	}
	return cur
}

// FullName qualifies name with the basenames of the enclosing scopes.
// Anonymous functions are named after their id.
func (s *Scope) FullName(name string, id ids.NodeID) string {
	if name == "" {
		name = "anon" + strings.TrimPrefix(id.String(), "#")
	}
	var parts []string
	for cur := s; cur != nil; cur = cur.Next() {
		if cur.Basename != "" {
			parts = append(parts, cur.Basename)
		}
	}
	slices.Reverse(parts)
	return strings.Join(append(parts, name), ".")
}

func (s *Scope) describe() string {
	if s.Basename != "" {
		return s.Basename
	}
	return s.Context.String()
}
