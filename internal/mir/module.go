// Package mir holds the lowered form of a checked unit and the lowering
// pass that produces it.
//
// The IR is a tree of expressions grouped into functions. Closures are
// converted into a plain function plus a heap context struct whose first
// slot is the function pointer; exceptions become escape points saved by
// Escape and targeted by Jump; classes become named structs and vtable
// globals. Every function uses one calling convention: the closure context
// and the exception point are ordinary trailing parameters.
package mir

import (
	"fmt"
	"strconv"

	"molten/internal/ids"
)

// Struct is a named struct type.
type Struct struct {
	ID     ids.NodeID
	Name   string
	Fields []*Type
}

// Global is a module-level variable. External globals are defined by
// another module.
type Global struct {
	ID       ids.NodeID
	Name     string
	Type     *Type
	External bool
}

type Param struct {
	ID   ids.NodeID
	Name string
	Type *Type
}

// Func is a function definition. Type is always a TypeFunc whose items
// match Params.
type Func struct {
	ID     ids.NodeID
	Name   string
	Public bool
	Type   *Type
	Params []Param
	Body   []Expr
}

// Extern declares a function linked by name.
type Extern struct {
	ID   ids.NodeID
	Name string
	Type *Type
}

// Module is one lowered unit.
type Module struct {
	Name    string
	Structs []*Struct
	Globals []*Global
	Funcs   []*Func
	Externs []*Extern
	// Init is the id of the module initialiser run.<name>; Main is the
	// entry point, or NoID in library mode.
	Init ids.NodeID
	Main ids.NodeID

	names   map[string]int
	structs map[ids.NodeID]*Struct
	globals map[ids.NodeID]*Global
	funcs   map[ids.NodeID]*Func
	externs map[ids.NodeID]*Extern
}

func NewModule(name string) *Module {
	return &Module{
		Name:    name,
		names:   make(map[string]int),
		structs: make(map[ids.NodeID]*Struct),
		globals: make(map[ids.NodeID]*Global),
		funcs:   make(map[ids.NodeID]*Func),
		externs: make(map[ids.NodeID]*Extern),
	}
}

// uniqueName returns name, or name with a numeric suffix when a symbol of
// that name exists already.
func (m *Module) uniqueName(name string) string {
	n, ok := m.names[name]
	m.names[name] = n + 1
	if !ok {
		return name
	}
	for {
		cand := name + "." + strconv.Itoa(n)
		if _, taken := m.names[cand]; !taken {
			m.names[cand] = 1
			return cand
		}
		n++
	}
}

// reserve claims name exactly; externs and external globals must keep the
// names they are linked by.
func (m *Module) reserve(name string) {
	m.names[name]++
}

func (m *Module) AddStruct(s *Struct) {
	if _, ok := m.structs[s.ID]; ok {
		return
	}
	m.structs[s.ID] = s
	m.Structs = append(m.Structs, s)
}

func (m *Module) AddGlobal(g *Global) {
	if g.External {
		m.reserve(g.Name)
	} else {
		g.Name = m.uniqueName(g.Name)
	}
	m.globals[g.ID] = g
	m.Globals = append(m.Globals, g)
}

func (m *Module) AddFunc(f *Func) {
	f.Name = m.uniqueName(f.Name)
	m.funcs[f.ID] = f
	m.Funcs = append(m.Funcs, f)
}

func (m *Module) AddExtern(e *Extern) {
	m.reserve(e.Name)
	m.externs[e.ID] = e
	m.Externs = append(m.Externs, e)
}

func (m *Module) Struct(id ids.NodeID) (*Struct, bool) {
	s, ok := m.structs[id]
	return s, ok
}

func (m *Module) Global(id ids.NodeID) (*Global, bool) {
	g, ok := m.globals[id]
	return g, ok
}

func (m *Module) Func(id ids.NodeID) (*Func, bool) {
	f, ok := m.funcs[id]
	return f, ok
}

func (m *Module) Extern(id ids.NodeID) (*Extern, bool) {
	e, ok := m.externs[id]
	return e, ok
}

// FuncByName finds a defined function by its final name.
func (m *Module) FuncByName(name string) (*Func, bool) {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// ExternByName finds a declared external function by name.
func (m *Module) ExternByName(name string) (*Extern, bool) {
	for _, e := range m.Externs {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// FuncType returns the type of the function or extern id.
func (m *Module) FuncType(id ids.NodeID) (*Type, error) {
	if f, ok := m.funcs[id]; ok {
		return f.Type, nil
	}
	if e, ok := m.externs[id]; ok {
		return e.Type, nil
	}
	return nil, fmt.Errorf("no function %s", id)
}

// RunName is the name of the initialiser of module name.
func RunName(name string) string { return "run." + name }
