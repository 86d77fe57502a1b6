// Package exports writes the public surface of a checked unit to a .dec
// file and turns it back into declarations at import sites.
package exports

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"molten/internal/ast"
	"molten/internal/ids"
	"molten/internal/types"
)

// Ext is the extension of declaration files.
const Ext = ".dec"

// Current schema version - increment when the File layout changes.
const schemaVersion uint16 = 1

// DeclKind selects which fields of a Decl are used.
type DeclKind uint8

const (
	DeclFunc DeclKind = iota + 1
	DeclField
	DeclClass
	DeclAlias
	DeclImport
)

func (k DeclKind) String() string {
	switch k {
	case DeclFunc:
		return "func"
	case DeclField:
		return "field"
	case DeclClass:
		return "class"
	case DeclAlias:
		return "alias"
	case DeclImport:
		return "import"
	}
	return fmt.Sprintf("DeclKind(%d)", uint8(k))
}

// File is the content of a .dec file.
type File struct {
	Schema uint16 `msgpack:"schema"`
	Module string `msgpack:"module"`
	Decls  []Decl `msgpack:"decls"`
}

// Spec is a class or alias name with its type parameters.
type Spec struct {
	Name   string   `msgpack:"n"`
	Params []string `msgpack:"p,omitempty"`
}

// Decl is one exported declaration. Types travel as signature text.
type Decl struct {
	Kind    DeclKind `msgpack:"k"`
	Name    string   `msgpack:"n,omitempty"`
	Type    string   `msgpack:"t,omitempty"`
	Spec    *Spec    `msgpack:"spec,omitempty"`
	Parent  *Spec    `msgpack:"parent,omitempty"`
	Members []Decl   `msgpack:"m,omitempty"`
}

// Session is the part of a checked session the collector reads.
type Session interface {
	ResolvedType(id ids.NodeID) (types.Type, bool)
}

// Collect gathers the public surface of code: public functions and
// forward declarations with their inferred types, every class with its
// fields and method signatures, type aliases, and the imports the
// surface depends on.
func Collect(sess Session, module string, code []ast.Node) (*File, error) {
	c := collector{sess: sess}
	if err := c.nodes(code); err != nil {
		return nil, err
	}
	return &File{Schema: schemaVersion, Module: module, Decls: c.decls}, nil
}

type collector struct {
	sess  Session
	decls []Decl
}

func (c *collector) nodes(code []ast.Node) error {
	for _, n := range code {
		if err := c.node(n); err != nil {
			return err
		}
	}
	return nil
}

func (c *collector) node(n ast.Node) error {
	switch n := n.(type) {
	case *ast.Block:
		return c.nodes(n.Body)
	case *ast.Import:
		c.decls = append(c.decls, Decl{Kind: DeclImport, Name: n.Name})
	case *ast.Function:
		if n.IsAnonymous() || n.Vis != ast.Public {
			return nil
		}
		d, err := c.signature(n.ID(), n.Name)
		if err != nil {
			return err
		}
		c.decls = append(c.decls, d)
	case *ast.Declare:
		if n.Vis != ast.Public {
			return nil
		}
		d, err := c.signature(n.ID(), n.Name)
		if err != nil {
			return err
		}
		c.decls = append(c.decls, d)
	case *ast.Class:
		d, err := c.class(n)
		if err != nil {
			return err
		}
		c.decls = append(c.decls, d)
	case *ast.TypeAlias:
		c.decls = append(c.decls, Decl{Kind: DeclAlias, Spec: specOf(n.Spec), Type: typeText(n.Type)})
	}
	return nil
}

func (c *collector) signature(id ids.NodeID, name string) (Decl, error) {
	t, ok := c.sess.ResolvedType(id)
	if !ok {
		return Decl{}, fmt.Errorf("%s has no type", name)
	}
	if _, ok := t.(*types.Function); !ok {
		return Decl{}, fmt.Errorf("%s is not a function: %s", name, t)
	}
	return Decl{Kind: DeclFunc, Name: name, Type: t.String()}, nil
}

func (c *collector) class(n *ast.Class) (Decl, error) {
	d := Decl{Kind: DeclClass, Spec: specOf(n.Spec)}
	if n.Parent != nil {
		d.Parent = specOf(*n.Parent)
	}
	for _, node := range n.Body {
		switch m := node.(type) {
		case *ast.Definition:
			t, ok := c.sess.ResolvedType(m.ID())
			if !ok {
				return Decl{}, fmt.Errorf("field %s.%s has no type", n.Spec.Name, m.Name)
			}
			d.Members = append(d.Members, Decl{Kind: DeclField, Name: m.Name, Type: t.String()})
		case *ast.Function:
			if m.IsAnonymous() {
				continue
			}
			sig, err := c.signature(m.ID(), n.Spec.Name+"."+m.Name)
			if err != nil {
				return Decl{}, err
			}
			sig.Name = m.Name
			d.Members = append(d.Members, sig)
		case *ast.Declare:
			sig, err := c.signature(m.ID(), n.Spec.Name+"."+m.Name)
			if err != nil {
				return Decl{}, err
			}
			sig.Name = m.Name
			d.Members = append(d.Members, sig)
		}
	}
	return d, nil
}

func specOf(s ast.ClassSpec) *Spec {
	out := &Spec{Name: s.Name}
	for _, p := range s.Params {
		out.Params = append(out.Params, p.String())
	}
	return out
}

func typeText(t types.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}

// Encode writes f as msgpack.
func Encode(w io.Writer, f *File) error {
	return msgpack.NewEncoder(w).Encode(f)
}

// Decode reads a File written by Encode.
func Decode(r io.Reader) (*File, error) {
	var f File
	if err := msgpack.NewDecoder(r).Decode(&f); err != nil {
		return nil, err
	}
	if f.Schema != schemaVersion {
		return nil, fmt.Errorf("unsupported declaration schema %d (want %d)", f.Schema, schemaVersion)
	}
	return &f, nil
}

// Write stores f at path, replacing any previous file atomically.
func Write(path string, f *File) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "tmp-*"+Ext)
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()
	if err = Encode(tmp, f); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Read loads the declaration file at path.
func Read(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
