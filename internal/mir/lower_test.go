package mir

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"molten/internal/ast"
	"molten/internal/builtins"
	"molten/internal/defs"
	"molten/internal/diag"
	"molten/internal/ids"
	"molten/internal/refine"
	"molten/internal/sema"
	"molten/internal/session"
	"molten/internal/types"
)

type fixture struct {
	sess *session.Session
	reg  *builtins.Registry
	b    *ast.Builder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sess := session.New("test")
	reg, err := builtins.Declare(sess, sess.Scopes.Primitive, sess.Fresh)
	if err != nil {
		t.Fatalf("declare builtins: %v", err)
	}
	return &fixture{sess: sess, reg: reg, b: sess.Build}
}

func (f *fixture) tryLower(opts Options, code ...ast.Node) (*Module, error) {
	code, err := refine.Refine(f.b, code)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	if err := sema.Bind(ctx, f.sess, code); err != nil {
		return nil, err
	}
	if err := sema.Check(ctx, f.sess, code); err != nil {
		return nil, err
	}
	return Lower(ctx, f.sess, f.reg, code, opts)
}

// lower compiles code and validates the module.
func (f *fixture) lower(t *testing.T, code ...ast.Node) *Module {
	t.Helper()
	m, err := f.tryLower(Options{}, code...)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if err := Validate(m); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return m
}

// collect returns every expression of fn's body accepted by keep.
func collect(fn *Func, keep func(Expr) bool) []Expr {
	var out []Expr
	for _, e := range fn.Body {
		Walk(e, func(e Expr) {
			if keep(e) {
				out = append(out, e)
			}
		})
	}
	return out
}

func runFunc(t *testing.T, m *Module) *Func {
	t.Helper()
	fn, ok := m.Func(m.Init)
	if !ok {
		t.Fatalf("module has no initialiser")
	}
	if fn.Name != RunName("test") {
		t.Fatalf("initialiser is called %s", fn.Name)
	}
	return fn
}

func TestClosureCapturesEachDefinitionOnce(t *testing.T) {
	f := newFixture(t)
	b := f.b
	y := b.Let("y", b.Int(10))
	fn := b.Fn("addY", []*ast.Argument{b.Arg("x", nil)},
		b.Op("+", b.Op("+", b.Ident("x"), b.Ident("y")), b.Ident("y")))
	m := f.lower(t, y, fn, b.Op("addY", b.Int(1)))

	d, err := f.sess.Def(fn.ID())
	if err != nil {
		t.Fatalf("no definition: %v", err)
	}
	cl := d.(*defs.Closure)
	ctx, ok := m.Struct(cl.ContextTypeID)
	if !ok {
		t.Fatalf("context struct of addY was not emitted")
	}
	if len(ctx.Fields) != 2 {
		t.Fatalf("context has %d fields, want the function and y", len(ctx.Fields))
	}
	if cl.Context.Fields[0].Name != defs.FuncField {
		t.Fatalf("slot 0 holds %s", cl.Context.Fields[0].Name)
	}
	if ctx.Fields[1].Kind != TypeInt {
		t.Fatalf("captured y has type %s", ctx.Fields[1])
	}
	if _, ok := m.Global(cl.GlobalID); !ok {
		t.Fatalf("top-level closure has no global")
	}
}

func TestLocalClosureIsStoredInLocal(t *testing.T) {
	f := newFixture(t)
	b := f.b
	inner := b.Fn("inc", []*ast.Argument{b.Arg("n", nil)}, b.Op("+", b.Ident("n"), b.Ident("k")))
	outer := b.Fn("outer", []*ast.Argument{b.Arg("k", nil)}, b.Block(inner, b.Op("inc", b.Int(1))))
	m := f.lower(t, outer, b.Op("outer", b.Int(2)))

	d, _ := f.sess.Def(inner.ID())
	cl := d.(*defs.Closure)
	if cl.GlobalID.IsValid() {
		t.Fatalf("nested closure got a global")
	}
	ctx, ok := m.Struct(cl.ContextTypeID)
	if !ok || len(ctx.Fields) != 2 {
		t.Fatalf("inc should capture k only, got %v", ctx)
	}
	var found bool
	for _, fn := range m.Funcs {
		for _, e := range collect(fn, func(e Expr) bool { _, ok := e.(*DefLocal); return ok }) {
			if e.(*DefLocal).ID == cl.ID {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("inc is not bound to a local")
	}
}

func TestVtablesAreFilledAtClassDefinition(t *testing.T) {
	f := newFixture(t)
	b := f.b
	intT := types.MustParse("Int")
	a := b.Class(b.Spec("A"), nil, b.Field("x", intT, b.Int(7)))
	parent := b.Spec("A")
	getX := b.Fn("getX", []*ast.Argument{b.Arg("self", nil)}, b.Access(b.Ident("self"), "x"))
	bcls := b.Class(b.Spec("B"), &parent, b.Field("y", intT, b.Int(1)), getX)
	obj := b.Let("obj", b.New(b.Spec("B")))
	m := f.lower(t, a, bcls, obj, b.Method(b.Ident("obj"), "getX"))

	run := runFunc(t, m)
	for _, n := range []*ast.Class{a, bcls} {
		d, _ := f.sess.Def(n.ID())
		cls := d.(*defs.ClassDef)
		if cls.Vtable.Len() == 0 {
			t.Fatalf("%s has no vtable", cls.Name)
		}
		g, ok := m.Global(cls.Vtable.ID)
		if !ok || g.Name != "__"+cls.Name+"_vtable" {
			t.Fatalf("vtable global of %s: %v", cls.Name, g)
		}
		sets := collect(run, func(e Expr) bool {
			s, ok := e.(*SetGlobal)
			return ok && s.ID == cls.Vtable.ID
		})
		if len(sets) != 1 {
			t.Fatalf("vtable of %s set %d times", cls.Name, len(sets))
		}
		vt, ok := m.Struct(cls.Vtable.ID)
		if !ok || len(vt.Fields) != cls.Vtable.Len() {
			t.Fatalf("vtable struct of %s does not match its slots", cls.Name)
		}
		layout, ok := m.Struct(cls.ID)
		if !ok || len(layout.Fields) != cls.Struct.Len() {
			t.Fatalf("struct of %s does not match its layout", cls.Name)
		}
	}
}

func TestMainReportsUncaughtExceptions(t *testing.T) {
	f := newFixture(t)
	m := f.lower(t, f.b.Raise(f.b.Int(3)))

	main, ok := m.Func(m.Main)
	if !ok || main.Name != "main" {
		t.Fatalf("no main function")
	}
	msgs := collect(main, func(e Expr) bool {
		l, ok := e.(*Lit)
		return ok && l.Kind == LitStr && l.Str == UncaughtMessage
	})
	if len(msgs) != 1 {
		t.Fatalf("main prints %d uncaught messages", len(msgs))
	}
	codes := collect(main, func(e Expr) bool {
		l, ok := e.(*Lit)
		return ok && l.Kind == LitInt && l.Int == -1
	})
	if len(codes) != 1 {
		t.Fatalf("main should return -1 on an uncaught exception")
	}
	if _, ok := m.ExternByName("puts"); !ok {
		t.Fatalf("puts is not declared")
	}
	jumps := collect(runFunc(t, m), func(e Expr) bool { _, ok := e.(*Jump); return ok })
	if len(jumps) != 1 {
		t.Fatalf("raise lowered to %d jumps", len(jumps))
	}
}

func TestTryInstallsEscapePoint(t *testing.T) {
	f := newFixture(t)
	b := f.b
	fn := b.Fn("f", nil, b.Raise(b.Int(42)))
	try := b.Try(b.Op("f"), b.BindCase("n", b.Op("+", b.Ident("n"), b.Int(1))))
	m := f.lower(t, fn, try)

	escapes := collect(runFunc(t, m), func(e Expr) bool { _, ok := e.(*Escape); return ok })
	if len(escapes) != 1 {
		t.Fatalf("try installed %d escape points", len(escapes))
	}
	raw, ok := m.FuncByName(m.Globals[0].Name + "_func")
	if !ok {
		t.Fatalf("no raw function for %s", m.Globals[0].Name)
	}
	last := raw.Params[len(raw.Params)-1]
	if last.Type.Kind != TypeEscape || last.Name != defs.ExceptionArg {
		t.Fatalf("raw function ends with %s: %s", last.Name, last.Type)
	}
	if jumps := collect(raw, func(e Expr) bool { _, ok := e.(*Jump); return ok }); len(jumps) != 1 {
		t.Fatalf("raise in f lowered to %d jumps", len(jumps))
	}
}

func TestFunctionNamesAreMangled(t *testing.T) {
	f := newFixture(t)
	b := f.b
	intT := types.MustParse("Int")
	fn := b.Fn("add", []*ast.Argument{b.Arg("a", intT), b.Arg("b", intT)}, b.Op("+", b.Ident("a"), b.Ident("b")))
	m := f.lower(t, fn)

	d, _ := f.sess.Def(fn.ID())
	g, ok := m.Global(d.(*defs.Closure).GlobalID)
	if !ok {
		t.Fatalf("add has no global")
	}
	if !strings.HasPrefix(g.Name, "3_add$") {
		t.Fatalf("global of add is called %s", g.Name)
	}
	if _, ok := m.FuncByName(g.Name + "_func"); !ok {
		t.Fatalf("raw function of add is missing")
	}
}

func TestLibraryModeOmitsMain(t *testing.T) {
	f := newFixture(t)
	m, err := f.tryLower(Options{Library: true}, f.b.Let("x", f.b.Int(1)))
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if m.Main != ids.NoID {
		t.Fatalf("library module has main %s", m.Main)
	}
	if _, ok := m.FuncByName("main"); ok {
		t.Fatalf("library module defines main")
	}
	if err := Validate(m); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestBuiltinOperatorsLowerToOperations(t *testing.T) {
	f := newFixture(t)
	b := f.b
	m := f.lower(t, b.Op("+", b.Int(1), b.Int(2)), b.Op("+", b.Real(1), b.Real(2)))

	ops := collect(runFunc(t, m), func(e Expr) bool { _, ok := e.(*Builtin); return ok })
	if len(ops) != 2 {
		t.Fatalf("got %d builtin operations", len(ops))
	}
	if ops[0].(*Builtin).Op != builtins.OpAddInt || ops[1].(*Builtin).Op != builtins.OpAddReal {
		t.Fatalf("overloads lowered to %s and %s", ops[0].(*Builtin).Op, ops[1].(*Builtin).Op)
	}
}

func TestRaiseOutsideEscapePointIsStructural(t *testing.T) {
	f := newFixture(t)
	b := f.b
	fn := b.Func(types.ABIC, "cfn", nil, types.MustParse("Int"), b.Raise(b.Int(1)))
	_, err := f.tryLower(Options{}, fn)
	var se *StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("expected a structural error, got %v", err)
	}
	var de *diag.Error
	if !errors.As(err, &de) || de.Code != diag.LowerStructural {
		t.Fatalf("structural error has the wrong code: %v", err)
	}
}

func TestDumpModule(t *testing.T) {
	f := newFixture(t)
	b := f.b
	m := f.lower(t, b.Let("s", b.Str("hi")), b.If(b.Bool(true), b.Int(1), b.Int(2)))

	var buf bytes.Buffer
	if err := DumpModule(&buf, m); err != nil {
		t.Fatalf("dump: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"module test", "pub fn @run.test(", "fn @main()", `"hi"`, "phi int"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump lacks %q:\n%s", want, out)
		}
	}
}
