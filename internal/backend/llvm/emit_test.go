package llvm

import (
	"context"
	"strings"
	"testing"

	"molten/internal/ast"
	"molten/internal/builtins"
	"molten/internal/ids"
	"molten/internal/mir"
	"molten/internal/refine"
	"molten/internal/sema"
	"molten/internal/session"
	"molten/internal/types"
)

func lower(t *testing.T, opts mir.Options, build func(b *ast.Builder) []ast.Node) *mir.Module {
	t.Helper()
	ctx := context.Background()
	sess := session.New("test")
	reg, err := builtins.Declare(sess, sess.Scopes.Primitive, sess.Fresh)
	if err != nil {
		t.Fatalf("declare builtins: %v", err)
	}
	code, err := refine.Refine(sess.Build, build(sess.Build))
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if err := sema.Bind(ctx, sess, code); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := sema.Check(ctx, sess, code); err != nil {
		t.Fatalf("check: %v", err)
	}
	m, err := mir.Lower(ctx, sess, reg, code, opts)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	return m
}

func emit(t *testing.T, m *mir.Module, opts Options) string {
	t.Helper()
	out, err := EmitModule(context.Background(), m, opts)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	return out
}

func requireContains(t *testing.T, ir string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(ir, p) {
			t.Fatalf("IR does not contain %q:\n%s", p, ir)
		}
	}
}

func TestProgramSavesEscapePoints(t *testing.T) {
	m := lower(t, mir.Options{}, func(b *ast.Builder) []ast.Node {
		fn := b.Fn("f", nil, b.Raise(b.Int(42)))
		try := b.Try(b.Op("f"), b.BindCase("n", b.Op("+", b.Ident("n"), b.Int(1))))
		return []ast.Node{fn, b.Op("println", b.Op("str", try))}
	})
	out := emit(t, m, Options{})

	requireContains(t, out,
		"define i32 @main()",
		"@run.test(",
		"@setjmp(",
		"returns_twice",
		"@longjmp(",
		"unreachable",
		"@GC_init()",
		mir.UncaughtMessage,
		"target triple = \""+DefaultTriple+"\"",
	)
}

func TestNoGCAllocatesWithMalloc(t *testing.T) {
	build := func(b *ast.Builder) []ast.Node {
		y := b.Let("y", b.Int(10))
		fn := b.Fn("addY", []*ast.Argument{b.Arg("x", nil)}, b.Op("+", b.Ident("x"), b.Ident("y")))
		return []ast.Node{y, fn, b.Op("println", b.Op("str", b.Op("addY", b.Int(1))))}
	}

	gc := emit(t, lower(t, mir.Options{}, build), Options{})
	requireContains(t, gc, "@GC_malloc(")

	out := emit(t, lower(t, mir.Options{}, build), Options{NoGC: true})
	requireContains(t, out, "@malloc(")
	if strings.Contains(out, "GC_") {
		t.Fatalf("no-gc module refers to the collector:\n%s", out)
	}
}

func TestClassesDeclareNamedStructs(t *testing.T) {
	m := lower(t, mir.Options{}, func(b *ast.Builder) []ast.Node {
		intT := types.MustParse("Int")
		a := b.Class(b.Spec("A"), nil,
			b.Field("x", intT, b.Int(7)),
			b.Fn("get", []*ast.Argument{b.Arg("self", nil)}, b.Access(b.Ident("self"), "x")),
		)
		parent := b.Spec("A")
		bcls := b.Class(b.Spec("B"), &parent,
			b.Fn("get", []*ast.Argument{b.Arg("self", nil)}, b.Op("+", b.Access(b.Ident("self"), "x"), b.Int(100))),
		)
		show := b.Fn("show", []*ast.Argument{b.Arg("o", types.MustParse("A"))}, b.Method(b.Ident("o"), "get"))
		return []ast.Node{a, bcls, show, b.Op("show", b.New(b.Spec("B")))}
	})
	out := emit(t, m, Options{})

	requireContains(t, out, "%A = type {", "%B = type {", "getelementptr")
	if strings.Contains(out, "opaque") {
		t.Fatalf("a struct was left opaque:\n%s", out)
	}
}

func TestLibraryHasNoEntryPoint(t *testing.T) {
	m := lower(t, mir.Options{Library: true}, func(b *ast.Builder) []ast.Node {
		return []ast.Node{b.Op("println", b.Str("init"))}
	})
	out := emit(t, m, Options{})

	requireContains(t, out, "define i64 @run.test(i8*", "@puts(")
	if strings.Contains(out, "@main(") {
		t.Fatalf("library defines main:\n%s", out)
	}
	if strings.Contains(out, "GC_init") {
		t.Fatalf("library initialises the collector:\n%s", out)
	}
}

func TestGenericSlotsCarryScalars(t *testing.T) {
	m := mir.NewModule("raw")
	m.AddFunc(&mir.Func{
		ID:     ids.NodeID(1),
		Name:   "box",
		Public: true,
		Type:   mir.FuncOf([]*mir.Type{mir.Int}, mir.Any),
		Params: []mir.Param{{ID: ids.NodeID(2), Name: "n", Type: mir.Int}},
		Body:   []mir.Expr{&mir.Cast{Type: mir.Any, Value: &mir.GetValue{ID: ids.NodeID(2)}}},
	})
	m.AddFunc(&mir.Func{
		ID:     ids.NodeID(3),
		Name:   "unbox",
		Public: true,
		Type:   mir.FuncOf([]*mir.Type{mir.Any}, mir.Real),
		Params: []mir.Param{{ID: ids.NodeID(4), Name: "p", Type: mir.Any}},
		Body:   []mir.Expr{&mir.Cast{Type: mir.Real, Value: &mir.GetValue{ID: ids.NodeID(4)}}},
	})
	out := emit(t, m, Options{})

	requireContains(t, out, "inttoptr i64 %n to i8*", "ptrtoint i8* %p to i64", "bitcast i64")
}

func TestUndeclaredStructIsAnError(t *testing.T) {
	m := mir.NewModule("raw")
	ghost := mir.NamedOf(ids.NodeID(9), "ghost")
	m.AddGlobal(&mir.Global{ID: ids.NodeID(1), Name: "g", Type: mir.PtrTo(ghost)})
	if _, err := EmitModule(context.Background(), m, Options{}); err == nil {
		t.Fatalf("expected an error for a struct that is never declared")
	}
}

func TestEmitterWritesModuleText(t *testing.T) {
	m := mir.NewModule("raw")
	m.AddFunc(&mir.Func{
		ID:     ids.NodeID(1),
		Name:   "main",
		Public: true,
		Type:   mir.FuncOf(nil, mir.Int),
		Body:   []mir.Expr{mir.IntLit(3)},
	})
	m.Main = ids.NodeID(1)

	e := New(Options{NoGC: true, Triple: "aarch64-unknown-linux-gnu"})
	if err := e.BeginModule(m.Name); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := e.DeclareFunc(m.Funcs[0]); err != nil {
		t.Fatalf("declare: %v", err)
	}
	if err := e.EmitExpr(mir.IntLit(1)); err == nil {
		t.Fatalf("expected an error for an expression outside a function")
	}
	if err := e.DefineFunc(m.Funcs[0]); err != nil {
		t.Fatalf("define: %v", err)
	}
	for _, x := range m.Funcs[0].Body {
		if err := e.EmitExpr(x); err != nil {
			t.Fatalf("emit: %v", err)
		}
	}
	if err := e.FinishFunc(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := e.FinalizeModule(m); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	var sb strings.Builder
	if _, err := e.WriteTo(&sb); err != nil {
		t.Fatalf("write: %v", err)
	}
	requireContains(t, sb.String(), "aarch64-unknown-linux-gnu", "define i32 @main()", "trunc i64 3 to i32", "ret i32")
}
