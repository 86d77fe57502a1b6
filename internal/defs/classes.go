package defs

import (
	"fmt"

	"molten/internal/ast"
	"molten/internal/ids"
	"molten/internal/symbols"
	"molten/internal/types"
)

// VtableField is the name of the struct slot holding a class's vtable.
const VtableField = "__vtable__"

// ClassDef is a class: its nominal type, its member scope and, once
// built, its struct layout and vtable.
type ClassDef struct {
	ID         ids.NodeID
	Name       string
	Type       *types.Object
	ParentType *types.Object
	// Scope is the class body scope; it redirects definitions into Vars.
	Scope     *symbols.Scope
	Vars      *symbols.Scope
	Body      []ast.Node
	Primitive bool

	Struct *StructDef
	Vtable *Vtable
	built  bool
}

func (*ClassDef) DefKind() Kind       { return KindClass }
func (c *ClassDef) DefID() ids.NodeID { return c.ID }
func (c *ClassDef) DefName() string   { return c.Name }

// NewClass creates an unbuilt class whose member scope links to outer,
// or to the parent's members when parent is set.
func NewClass(id ids.NodeID, typ, parentType *types.Object, parent *ClassDef, outer *symbols.Scope) *ClassDef {
	link := symbols.Lexical(outer)
	if parent != nil {
		link = symbols.Lexical(parent.Vars)
	}
	vars := symbols.New(link, symbols.ContextClass)
	vars.ID = id
	vars.Basename = typ.Name
	return &ClassDef{
		ID:         id,
		Name:       typ.Name,
		Type:       typ,
		ParentType: parentType,
		Vars:       vars,
		Struct:     NewStruct(id, typ.Name, vars),
		Vtable:     NewVtable(ids.NoID, typ.Name+"_vtable"),
	}
}

// Built reports whether BuildClass has run.
func (c *ClassDef) Built() bool { return c.built }

// Parent returns the parent class definition, or nil for a root class.
func (c *ClassDef) Parent(sess Session) (*ClassDef, error) {
	if c.ParentType == nil {
		return nil, nil
	}
	d, err := sess.Def(c.ParentType.ID)
	if err != nil {
		return nil, err
	}
	return AsClass(d)
}

// VtableType is the object type of the class's vtable struct.
func (c *ClassDef) VtableType() *types.Object {
	return types.NewObject(c.Vtable.Name, c.Vtable.ID)
}

// BuildClass lays out the struct and vtable of cls from its body, building
// the parent first so that the parent's layout is a prefix of the child's.
// Every named method gets a slot: an override reuses the parent's slot,
// anything else appends one. The layout depends only on the class and its
// ancestors, so separately compiled units agree on it. Building is
// idempotent.
func BuildClass(sess Session, cls *ClassDef) error {
	if cls.built {
		return nil
	}
	parent, err := cls.Parent(sess)
	if err != nil {
		return err
	}
	if parent != nil {
		if err := BuildClass(sess, parent); err != nil {
			return err
		}
		cls.Struct.Inherit(parent.Struct)
		cls.Vtable.Inherit(parent.Vtable)
	}
	if !cls.Vtable.ID.IsValid() {
		cls.Vtable.ID = sess.NextID()
	}

	for _, node := range cls.Body {
		var (
			id   ids.NodeID
			name string
		)
		switch n := node.(type) {
		case *ast.Function:
			id, name = n.ID(), n.Name
		case *ast.Declare:
			id, name = n.ID(), n.Name
		default:
			continue
		}
		if name == "" {
			continue
		}
		t, ok := sess.Type(id)
		if !ok {
			return fmt.Errorf("method %s.%s has no type", cls.Name, name)
		}
		if _, ok := types.Resolve(sess, t).(*types.Function); !ok {
			continue
		}
		cls.Vtable.AddEntry(sess, id, name, t)
	}

	if cls.Vtable.Len() > 0 {
		cls.Struct.SetField(sess, ids.NoID, VtableField, cls.VtableType())
	}
	for _, node := range cls.Body {
		if d, ok := node.(*ast.Definition); ok {
			t, ok := sess.Type(d.ID())
			if !ok {
				return fmt.Errorf("field %s.%s has no type", cls.Name, d.Name)
			}
			cls.Struct.SetField(sess, d.ID(), d.Name, t)
		}
	}
	cls.built = true
	return nil
}

// StructField is one slot of a struct layout. ID is the definition the
// slot stores: a field definition for classes, a captured definition for
// closure contexts.
type StructField struct {
	ID   ids.NodeID
	Name string
	Type types.Type
}

// StructDef is an ordered struct layout.
type StructDef struct {
	ID     ids.NodeID
	Name   string
	Vars   *symbols.Scope
	Fields []StructField
}

func (*StructDef) DefKind() Kind       { return KindStruct }
func (s *StructDef) DefID() ids.NodeID { return s.ID }
func (s *StructDef) DefName() string   { return s.Name }

func NewStruct(id ids.NodeID, name string, vars *symbols.Scope) *StructDef {
	return &StructDef{ID: id, Name: name, Vars: vars}
}

// Inherit copies the parent's fields as the prefix of s.
func (s *StructDef) Inherit(parent *StructDef) {
	s.Fields = append(append([]StructField(nil), parent.Fields...), s.Fields...)
}

// SetField retypes the field called name in place, or appends a new one.
// A new class field is registered in the struct's member scope unless a
// definition for it already exists there.
func (s *StructDef) SetField(sess Session, id ids.NodeID, name string, t types.Type) int {
	if i := s.Index(name); i >= 0 {
		s.Fields[i].Type = t
		return i
	}
	if s.Vars != nil {
		if sym, err := s.Vars.LookupMember(name); err == nil {
			id = sym.Def
		} else {
			if !id.IsValid() {
				id = sess.NextID()
			}
			if _, err := s.Vars.Define(name, id, true); err == nil {
				sess.SetDef(id, &Field{ID: id, Name: name, Class: s.ID, Mutable: true})
				sess.SetType(id, t)
			}
		}
	}
	s.Fields = append(s.Fields, StructField{ID: id, Name: name, Type: t})
	return len(s.Fields) - 1
}

// Index returns the slot of the field called name, or -1.
func (s *StructDef) Index(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// IndexByID returns the slot storing definition id, or -1.
func (s *StructDef) IndexByID(id ids.NodeID) int {
	for i, f := range s.Fields {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func (s *StructDef) Len() int { return len(s.Fields) }

// VtableEntry is one method slot.
type VtableEntry struct {
	ID   ids.NodeID
	Name string
	Type types.Type
}

// Vtable is the ordered list of dynamically dispatched methods of a class.
type Vtable struct {
	ID      ids.NodeID
	Name    string
	Entries []VtableEntry
}

func NewVtable(id ids.NodeID, name string) *Vtable {
	return &Vtable{ID: id, Name: name}
}

func (v *Vtable) Inherit(parent *Vtable) {
	v.Entries = append(append([]VtableEntry(nil), parent.Entries...), v.Entries...)
}

// AddEntry points an existing compatible slot of the same name at id, or
// appends a new slot.
func (v *Vtable) AddEntry(env types.Env, id ids.NodeID, name string, t types.Type) int {
	if i := v.Index(env, name, t); i >= 0 {
		v.Entries[i].ID = id
		return i
	}
	v.Entries = append(v.Entries, VtableEntry{ID: id, Name: name, Type: t})
	return len(v.Entries) - 1
}

// Index returns the first slot called name whose type accepts t, or -1.
// The comparison never binds variables in env.
func (v *Vtable) Index(env types.Env, name string, t types.Type) int {
	for i, e := range v.Entries {
		if e.Name != name {
			continue
		}
		if _, err := types.Check(types.NewLayer(env), e.Type, t, types.ModeDef, false); err == nil {
			return i
		}
	}
	return -1
}

// IndexByID returns the slot currently pointing at id, or -1.
func (v *Vtable) IndexByID(id ids.NodeID) int {
	for i, e := range v.Entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (v *Vtable) Len() int { return len(v.Entries) }
