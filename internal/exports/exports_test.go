package exports

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"molten/internal/ast"
	"molten/internal/builtins"
	"molten/internal/diag"
	"molten/internal/mir"
	"molten/internal/refine"
	"molten/internal/sema"
	"molten/internal/session"
	"molten/internal/types"
)

type unit struct {
	sess *session.Session
	reg  *builtins.Registry
	code []ast.Node
}

func newUnit(t *testing.T, name string, build func(b *ast.Builder) []ast.Node) *unit {
	t.Helper()
	sess := session.New(name)
	reg, err := builtins.Declare(sess, sess.Scopes.Primitive, sess.Fresh)
	if err != nil {
		t.Fatalf("declare builtins: %v", err)
	}
	code, err := refine.Refine(sess.Build, build(sess.Build))
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	return &unit{sess: sess, reg: reg, code: code}
}

func (u *unit) check(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if err := sema.Bind(ctx, u.sess, u.code); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := sema.Check(ctx, u.sess, u.code); err != nil {
		t.Fatalf("check: %v", err)
	}
}

func shapes(b *ast.Builder) []ast.Node {
	intT := types.MustParse("Int")
	area := b.Fn("area", []*ast.Argument{b.Arg("w", intT), b.Arg("h", intT)}, b.Op("*", b.Ident("w"), b.Ident("h")))
	area.Vis = ast.Public
	hidden := b.Fn("hidden", []*ast.Argument{b.Arg("x", intT)}, b.Ident("x"))
	point := b.Class(b.Spec("Point"), nil,
		b.Field("x", intT, b.Int(0)),
		b.Fn("getX", []*ast.Argument{b.Arg("self", nil)}, b.Access(b.Ident("self"), "x")),
	)
	alias := b.Alias(b.Spec("Size"), intT)
	return []ast.Node{area, hidden, point, alias}
}

func writeShapes(t *testing.T, dir string) *File {
	t.Helper()
	u := newUnit(t, "shapes", shapes)
	u.check(t)
	f, err := Collect(u.sess, "shapes", u.code)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if err := Write(filepath.Join(dir, "shapes"+Ext), f); err != nil {
		t.Fatalf("write: %v", err)
	}
	return f
}

func TestCollectKeepsPublicSurface(t *testing.T) {
	f := writeShapes(t, t.TempDir())

	if f.Module != "shapes" || f.Schema != schemaVersion {
		t.Fatalf("unexpected header: %+v", f)
	}
	kinds := map[string]DeclKind{}
	var point *Decl
	for i, d := range f.Decls {
		switch d.Kind {
		case DeclFunc:
			kinds[d.Name] = d.Kind
		case DeclClass, DeclAlias:
			kinds[d.Spec.Name] = d.Kind
			if d.Spec.Name == "Point" {
				point = &f.Decls[i]
			}
		}
	}
	if kinds["area"] != DeclFunc {
		t.Fatalf("public function area not exported: %+v", f.Decls)
	}
	if _, ok := kinds["hidden"]; ok {
		t.Fatalf("private function exported: %+v", f.Decls)
	}
	if kinds["Size"] != DeclAlias {
		t.Fatalf("alias not exported: %+v", f.Decls)
	}
	if point == nil {
		t.Fatalf("class not exported: %+v", f.Decls)
	}

	members := map[string]Decl{}
	for _, m := range point.Members {
		members[m.Name] = m
	}
	if m := members["x"]; m.Kind != DeclField || m.Type != "Int" {
		t.Fatalf("field x exported as %+v", m)
	}
	for _, name := range []string{"getX", refine.InitName} {
		if m := members[name]; m.Kind != DeclFunc {
			t.Fatalf("method %s exported as %+v", name, m)
		}
	}
	for _, d := range f.Decls {
		if d.Kind == DeclFunc && d.Name == "area" {
			if _, err := types.Parse(d.Type); err != nil {
				t.Fatalf("area type %q does not parse: %v", d.Type, err)
			}
		}
	}
}

func TestImportBindsDeclarations(t *testing.T) {
	dir := t.TempDir()
	writeShapes(t, dir)

	var imp *ast.Import
	u := newUnit(t, "app", func(b *ast.Builder) []ast.Node {
		imp = b.Import("shapes")
		call := b.Op("println", b.Op("str", b.Op("area", b.Int(2), b.Int(3))))
		getX := b.Method(b.New(b.Spec("Point")), "getX")
		return []ast.Node{imp, call, getX}
	})
	if err := NewLoader(u.sess.Build, dir).Resolve(u.code); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(imp.Decls) == 0 {
		t.Fatalf("import has no declarations")
	}
	u.check(t)

	m, err := mir.Lower(context.Background(), u.sess, u.reg, u.code, mir.Options{})
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if _, ok := m.ExternByName(mir.RunName("shapes")); !ok {
		t.Fatalf("the initialiser of shapes is not declared")
	}
}

func TestMissingModuleIsALoadError(t *testing.T) {
	b := ast.NewBuilder(session.New("app").IDs)
	imp := b.Import("nowhere")
	err := NewLoader(b, t.TempDir()).Resolve([]ast.Node{imp})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var de *diag.Error
	if !errors.As(err, &de) || de.Code != diag.IOLoadFileError {
		t.Fatalf("expected an I/O load diagnostic, got %v", err)
	}
}

func TestNestedImportsLoadOnce(t *testing.T) {
	dir := t.TempDir()
	base := &File{Schema: schemaVersion, Module: "lib.base", Decls: []Decl{
		{Kind: DeclFunc, Name: "one", Type: "() -> Int / MF"},
	}}
	if err := Write(filepath.Join(dir, "lib", "base"+Ext), base); err != nil {
		t.Fatalf("write base: %v", err)
	}
	top := &File{Schema: schemaVersion, Module: "top", Decls: []Decl{
		{Kind: DeclImport, Name: "lib.base"},
		{Kind: DeclFunc, Name: "two", Type: "() -> Int / MF"},
	}}
	if err := Write(filepath.Join(dir, "top"+Ext), top); err != nil {
		t.Fatalf("write top: %v", err)
	}

	b := ast.NewBuilder(session.New("app").IDs)
	first, second := b.Import("top"), b.Import("lib.base")
	if err := NewLoader(b, dir).Resolve([]ast.Node{first, second}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(first.Decls) != 2 {
		t.Fatalf("top should carry its dependency and one function, got %d nodes", len(first.Decls))
	}
	dep, ok := first.Decls[0].(*ast.Import)
	if !ok || dep.Name != "lib.base" || len(dep.Decls) != 1 {
		t.Fatalf("nested import not loaded: %#v", first.Decls[0])
	}
	if second.Decls != nil {
		t.Fatalf("a module already loaded should not be bound twice")
	}
	if d, ok := first.Decls[1].(*ast.Declare); !ok || d.Name != "two" || d.Vis != ast.Public {
		t.Fatalf("unexpected declaration %#v", first.Decls[1])
	}
}

func TestDecodeRejectsOtherSchemas(t *testing.T) {
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(&File{Schema: schemaVersion + 1, Module: "x"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(&buf); err == nil {
		t.Fatalf("expected a schema error")
	}
}

func TestCorruptFileIsADecodeError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad"+Ext), []byte("not msgpack"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b := ast.NewBuilder(session.New("app").IDs)
	err := NewLoader(b, dir).Resolve([]ast.Node{b.Import("bad")})
	var de *diag.Error
	if !errors.As(err, &de) || de.Code != diag.IODecodeError {
		t.Fatalf("expected a decode diagnostic, got %v", err)
	}
}

func TestDumpListsDeclarations(t *testing.T) {
	f := &File{Schema: schemaVersion, Module: "geo", Decls: []Decl{
		{Kind: DeclImport, Name: "base"},
		{Kind: DeclFunc, Name: "area", Type: "(Int, Int) -> Int / M"},
		{Kind: DeclClass, Spec: &Spec{Name: "Box", Params: []string{"T"}}, Parent: &Spec{Name: "Shape"}, Members: []Decl{
			{Kind: DeclField, Name: "item", Type: "T"},
		}},
		{Kind: DeclAlias, Spec: &Spec{Name: "Size"}, Type: "Int"},
	}}
	var buf bytes.Buffer
	if err := Dump(&buf, f); err != nil {
		t.Fatalf("dump: %v", err)
	}
	want := "module geo\n" +
		"import base\n" +
		"func area: (Int, Int) -> Int / M\n" +
		"class Box<T> < Shape\n" +
		"  field item: T\n" +
		"alias Size = Int\n"
	if got := buf.String(); got != want {
		t.Fatalf("dump:\n%s\nwant:\n%s", got, want)
	}
}
