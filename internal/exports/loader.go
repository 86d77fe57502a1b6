package exports

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"molten/internal/ast"
	"molten/internal/diag"
	"molten/internal/trace"
	"molten/internal/types"
)

// ErrNotFound is returned when no search directory holds the module.
var ErrNotFound = errors.New("declaration file not found")

// Loader fills the declarations of import nodes from .dec files.
// A module is loaded once per Loader; later imports of it stay empty.
type Loader struct {
	Dirs   []string
	Build  *ast.Builder
	Tracer trace.Tracer

	loaded map[string]bool
}

func NewLoader(b *ast.Builder, dirs ...string) *Loader {
	return &Loader{Dirs: dirs, Build: b, loaded: make(map[string]bool)}
}

// Find returns the path of the declaration file for module name. A dotted
// name a.b is looked up as a/b.dec and then as a.b.dec in each directory.
func (l *Loader) Find(name string) (string, error) {
	rel := filepath.Join(strings.Split(name, ".")...) + Ext
	for _, dir := range l.Dirs {
		for _, cand := range []string{filepath.Join(dir, rel), filepath.Join(dir, name+Ext)} {
			if st, err := os.Stat(cand); err == nil && !st.IsDir() {
				return cand, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Resolve loads every import of code that has no declarations yet.
func (l *Loader) Resolve(code []ast.Node) error {
	var err error
	for _, n := range code {
		ast.Walk(n, func(n ast.Node) bool {
			if err != nil {
				return false
			}
			imp, ok := n.(*ast.Import)
			if !ok {
				return true
			}
			if imp.Decls == nil {
				_, err = l.load(imp)
			}
			return false
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// load fills imp and reports whether the module was read, as opposed to
// already loaded.
func (l *Loader) load(imp *ast.Import) (bool, error) {
	if l.loaded == nil {
		l.loaded = make(map[string]bool)
	}
	if l.loaded[imp.Name] {
		return false, nil
	}
	l.loaded[imp.Name] = true

	span := trace.Begin(l.Tracer, trace.ScopeUnit, "import", 0)
	defer span.End(imp.Name)

	path, err := l.Find(imp.Name)
	if err != nil {
		return false, diag.Wrap(diag.IOLoadFileError, imp.Pos(), err)
	}
	f, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, diag.Wrap(diag.IOLoadFileError, imp.Pos(), err)
		}
		return false, diag.Wrap(diag.IODecodeError, imp.Pos(), err)
	}
	decls, err := l.nodes(imp, f.Decls)
	if err != nil {
		return false, diag.Wrap(diag.IODecodeError, imp.Pos(), fmt.Errorf("%s: %w", path, err))
	}
	imp.Decls = decls
	return true, nil
}

// nodes rebuilds decls as AST declarations positioned at the import.
// Nested imports are loaded in place and dropped when already present.
func (l *Loader) nodes(imp *ast.Import, decls []Decl) ([]ast.Node, error) {
	b := l.Build.At(imp.Pos())
	out := make([]ast.Node, 0, len(decls))
	for _, d := range decls {
		switch d.Kind {
		case DeclImport:
			dep := b.Import(d.Name)
			read, err := l.load(dep)
			if err != nil {
				return nil, err
			}
			if read {
				out = append(out, dep)
			}
		case DeclFunc:
			n, err := declare(b, d)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		case DeclAlias:
			spec, err := classSpec(d.Spec, imp)
			if err != nil {
				return nil, err
			}
			t, err := types.Parse(d.Type)
			if err != nil {
				return nil, err
			}
			out = append(out, b.Alias(spec, t))
		case DeclClass:
			n, err := class(b, d, imp)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		default:
			return nil, fmt.Errorf("unexpected %s declaration at module level", d.Kind)
		}
	}
	return out, nil
}

func declare(b *ast.Builder, d Decl) (*ast.Declare, error) {
	t, err := types.Parse(d.Type)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name, err)
	}
	n := b.Declare(d.Name, t)
	n.Vis = ast.Public
	return n, nil
}

func class(b *ast.Builder, d Decl, imp *ast.Import) (*ast.Class, error) {
	spec, err := classSpec(d.Spec, imp)
	if err != nil {
		return nil, err
	}
	var parent *ast.ClassSpec
	if d.Parent != nil {
		p, err := classSpec(d.Parent, imp)
		if err != nil {
			return nil, err
		}
		parent = &p
	}
	body := make([]ast.Node, 0, len(d.Members))
	for _, m := range d.Members {
		switch m.Kind {
		case DeclField:
			t, err := types.Parse(m.Type)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", spec.Name, m.Name, err)
			}
			body = append(body, b.Field(m.Name, t, nil))
		case DeclFunc:
			n, err := declare(b, m)
			if err != nil {
				return nil, err
			}
			body = append(body, n)
		default:
			return nil, fmt.Errorf("unexpected %s declaration in class %s", m.Kind, spec.Name)
		}
	}
	return b.Class(spec, parent, body...), nil
}

func classSpec(s *Spec, imp *ast.Import) (ast.ClassSpec, error) {
	if s == nil {
		return ast.ClassSpec{}, errors.New("declaration without a name")
	}
	spec := ast.ClassSpec{At: imp.Pos(), Name: s.Name}
	for _, p := range s.Params {
		t, err := types.Parse(p)
		if err != nil {
			return spec, err
		}
		spec.Params = append(spec.Params, t)
	}
	return spec, nil
}
