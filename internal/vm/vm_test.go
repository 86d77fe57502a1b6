package vm

import (
	"context"
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

type program struct {
	sess *session.Session
	reg  *builtins.Registry
	b    *ast.Builder
}

func newProgram(t *testing.T) *program {
	t.Helper()
	sess := session.New("test")
	reg, err := builtins.Declare(sess, sess.Scopes.Primitive, sess.Fresh)
	if err != nil {
		t.Fatalf("declare builtins: %v", err)
	}
	return &program{sess: sess, reg: reg, b: sess.Build}
}

func (p *program) lower(t *testing.T, opts mir.Options, code ...ast.Node) *mir.Module {
	t.Helper()
	ctx := context.Background()
	code, err := refine.Refine(p.b, code)
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if err := sema.Bind(ctx, p.sess, code); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := sema.Check(ctx, p.sess, code); err != nil {
		t.Fatalf("check: %v", err)
	}
	m, err := mir.Lower(ctx, p.sess, p.reg, code, opts)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	return m
}

func load(t *testing.T, m *mir.Module) (*VM, *TestRuntime) {
	t.Helper()
	rt := NewTestRuntime("")
	vm := New(rt, Options{})
	if err := vm.Load(context.Background(), m); err != nil {
		t.Fatalf("load: %v", err)
	}
	return vm, rt
}

// execute compiles code as a program and runs its main.
func (p *program) execute(t *testing.T, code ...ast.Node) *TestRuntime {
	t.Helper()
	vm, rt := load(t, p.lower(t, mir.Options{}, code...))
	if vmErr := vm.Run(context.Background()); vmErr != nil {
		t.Fatalf("run: %s", vmErr.Pretty())
	}
	return rt
}

// show prints the Int or Real value of n on its own line.
func (p *program) show(n ast.Node) ast.Node {
	return p.b.Op("println", p.b.Op("str", n))
}

func TestRaiseIsCaughtByTry(t *testing.T) {
	p := newProgram(t)
	b := p.b
	fn := b.Fn("f", nil, b.Raise(b.Int(42)))
	try := b.Try(b.Op("f"), b.BindCase("n", b.Op("+", b.Ident("n"), b.Int(1))))
	rt := p.execute(t, fn, p.show(try))

	if got := rt.Output(); got != "43\n" {
		t.Fatalf("output %q", got)
	}
	if rt.ExitCode() != 0 {
		t.Fatalf("exit code %d", rt.ExitCode())
	}
}

func TestUncaughtRaiseTerminates(t *testing.T) {
	p := newProgram(t)
	b := p.b
	rt := p.execute(t, b.Op("println", b.Str("before")), b.Raise(b.Int(3)), b.Op("println", b.Str("after")))

	want := "before\n" + mir.UncaughtMessage + "\n"
	if got := rt.Output(); got != want {
		t.Fatalf("output %q, want %q", got, want)
	}
	if rt.ExitCode() != -1 {
		t.Fatalf("exit code %d, want -1", rt.ExitCode())
	}
}

func TestClosureReadsCapturedValue(t *testing.T) {
	p := newProgram(t)
	b := p.b
	y := b.Let("y", b.Int(10))
	fn := b.Fn("addY", []*ast.Argument{b.Arg("x", nil)}, b.Op("+", b.Ident("x"), b.Ident("y")))
	rt := p.execute(t, y, fn, p.show(b.Op("addY", b.Int(1))))

	if got := rt.Output(); got != "11\n" {
		t.Fatalf("output %q", got)
	}
}

func TestClosureCapturesValueAtCreation(t *testing.T) {
	p := newProgram(t)
	b := p.b
	outer := b.Fn("outer", nil, b.Block(
		b.LetMut("y", b.Int(10)),
		b.Let("h", b.Fn("", nil, b.Op("+", b.Ident("y"), b.Int(1)))),
		b.Assign(b.Ident("y"), b.Int(20)),
		b.Call(b.Ident("h")),
	))
	rt := p.execute(t, outer, p.show(b.Op("outer")))

	if got := rt.Output(); got != "11\n" {
		t.Fatalf("output %q", got)
	}
}

func TestNestedClosureCapturesParameter(t *testing.T) {
	p := newProgram(t)
	b := p.b
	inner := b.Fn("inc", []*ast.Argument{b.Arg("n", nil)}, b.Op("+", b.Ident("n"), b.Ident("k")))
	outer := b.Fn("outer", []*ast.Argument{b.Arg("k", nil)}, b.Block(inner, b.Op("inc", b.Int(1))))
	rt := p.execute(t, outer, p.show(b.Op("outer", b.Int(2))), p.show(b.Op("outer", b.Int(40))))

	if got := rt.Output(); got != "3\n41\n" {
		t.Fatalf("output %q", got)
	}
}

func TestVirtualDispatchSelectsOverride(t *testing.T) {
	p := newProgram(t)
	b := p.b
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
	rt := p.execute(t, a, bcls, show,
		p.show(b.Op("show", b.New(b.Spec("B")))),
		p.show(b.Op("show", b.New(b.Spec("A")))),
	)

	if got := rt.Output(); got != "107\n7\n" {
		t.Fatalf("output %q", got)
	}
}

func TestInheritedFieldsKeepTheirSlots(t *testing.T) {
	p := newProgram(t)
	b := p.b
	intT := types.MustParse("Int")
	a := b.Class(b.Spec("A"), nil, b.Field("x", intT, b.Int(7)))
	parent := b.Spec("A")
	getX := b.Fn("getX", []*ast.Argument{b.Arg("self", nil)}, b.Access(b.Ident("self"), "x"))
	bcls := b.Class(b.Spec("B"), &parent, b.Field("y", intT, b.Int(1)), getX)
	obj := b.Let("obj", b.New(b.Spec("B")))
	rt := p.execute(t, a, bcls, obj,
		p.show(b.Method(b.Ident("obj"), "getX")),
		p.show(b.Access(b.Ident("obj"), "y")),
	)

	if got := rt.Output(); got != "7\n1\n" {
		t.Fatalf("output %q", got)
	}
}

func TestOverloadedOperators(t *testing.T) {
	p := newProgram(t)
	b := p.b
	rt := p.execute(t,
		p.show(b.Op("+", b.Int(40), b.Int(2))),
		p.show(b.Op("+", b.Real(1.5), b.Real(2))),
		p.show(b.Op("*", b.Op("-", b.Int(10), b.Int(4)), b.Int(7))),
	)

	if got := rt.Output(); got != "42\n3.500000\n42\n" {
		t.Fatalf("output %q", got)
	}
}

func TestMatchComparesLiterals(t *testing.T) {
	p := newProgram(t)
	b := p.b
	intT := types.MustParse("Int")
	classify := b.Fn("classify", []*ast.Argument{b.Arg("n", intT)}, b.Match(b.Ident("n"),
		b.LitCase(b.Int(1), b.Str("one")),
		b.LitCase(b.Int(2), b.Str("two")),
		b.Wildcard(b.Str("many")),
	))
	rt := p.execute(t, classify,
		b.Op("println", b.Op("classify", b.Int(2))),
		b.Op("println", b.Op("classify", b.Int(1))),
		b.Op("println", b.Op("classify", b.Int(9))),
	)

	if got := rt.Output(); got != "two\none\nmany\n" {
		t.Fatalf("output %q", got)
	}
}

func TestWhileLoopUpdatesLocals(t *testing.T) {
	p := newProgram(t)
	b := p.b
	i, s := b.LetMut("i", b.Int(0)), b.LetMut("s", b.Int(0))
	loop := b.While(b.Op("<", b.Ident("i"), b.Int(5)), b.Block(
		b.Assign(b.Ident("s"), b.Op("+", b.Ident("s"), b.Ident("i"))),
		b.Assign(b.Ident("i"), b.Op("+", b.Ident("i"), b.Int(1))),
	))
	rt := p.execute(t, i, s, loop, p.show(b.Ident("s")))

	if got := rt.Output(); got != "10\n" {
		t.Fatalf("output %q", got)
	}
}

func TestForLoopWalksListLiteral(t *testing.T) {
	p := newProgram(t)
	b := p.b
	s := b.LetMut("s", b.Int(0))
	loop := b.For("x", b.List(b.Int(1), b.Int(2), b.Int(3)),
		b.Assign(b.Ident("s"), b.Op("+", b.Ident("s"), b.Ident("x"))))
	rt := p.execute(t, s, loop, p.show(b.Ident("s")))

	if got := rt.Output(); got != "6\n" {
		t.Fatalf("output %q", got)
	}
}

func TestIndexReadsAndWritesList(t *testing.T) {
	p := newProgram(t)
	b := p.b
	rt := p.execute(t,
		b.Let("l", b.List(b.Int(4), b.Int(5))),
		p.show(b.Index(b.Ident("l"), b.Int(1))),
		b.Assign(b.Index(b.Ident("l"), b.Int(0)), b.Int(9)),
		p.show(b.Op("+", b.Index(b.Ident("l"), b.Int(0)), b.Method(b.Ident("l"), "len"))),
	)

	if got := rt.Output(); got != "5\n11\n" {
		t.Fatalf("output %q", got)
	}
}

func TestIndexPastEndPanics(t *testing.T) {
	p := newProgram(t)
	b := p.b
	code := []ast.Node{
		b.Let("l", b.List(b.Int(4), b.Int(5))),
		p.show(b.Index(b.Ident("l"), b.Int(2))),
	}
	vm, _ := load(t, p.lower(t, mir.Options{}, code...))

	vmErr := vm.Run(context.Background())
	if vmErr == nil || vmErr.Code != PanicOutOfBounds {
		t.Fatalf("expected out of bounds, got %v", vmErr)
	}
}

func TestEscapePointsAreReentrant(t *testing.T) {
	p := newProgram(t)
	b := p.b
	intT := types.MustParse("Int")
	check := b.Fn("check", []*ast.Argument{b.Arg("x", intT)},
		b.If(b.Op(">", b.Ident("x"), b.Int(10)), b.Raise(b.Ident("x")), b.Ident("x")))
	guard := b.Fn("guard", []*ast.Argument{b.Arg("x", intT)},
		b.Try(b.Op("check", b.Ident("x")), b.BindCase("n", b.Op("*", b.Ident("n"), b.Int(2)))))
	rt := p.execute(t, check, guard,
		p.show(b.Op("guard", b.Int(3))),
		p.show(b.Op("guard", b.Int(20))),
		p.show(b.Op("guard", b.Int(4))),
	)

	if got := rt.Output(); got != "3\n40\n4\n" {
		t.Fatalf("output %q", got)
	}
}

func TestUnmatchedTryCaseRaisesAgain(t *testing.T) {
	p := newProgram(t)
	b := p.b
	inner := b.Try(b.Raise(b.Int(5)), b.LitCase(b.Int(1), b.Int(100)))
	outer := b.Try(inner, b.BindCase("n", b.Ident("n")))
	rt := p.execute(t, p.show(outer))

	if got := rt.Output(); got != "5\n" {
		t.Fatalf("output %q", got)
	}
}

func TestLibraryInitReportsUncaughtRaise(t *testing.T) {
	p := newProgram(t)
	b := p.b
	m := p.lower(t, mir.Options{Library: true}, b.Op("println", b.Str("init")), b.Raise(b.Int(9)))
	vm, rt := load(t, m)

	vmErr := vm.Init(context.Background(), "test")
	if vmErr == nil || vmErr.Code != PanicUncaught {
		t.Fatalf("expected an uncaught exception, got %v", vmErr)
	}
	if rt.Output() != "init\n" {
		t.Fatalf("output %q", rt.Output())
	}
	if vmErr := vm.Run(context.Background()); vmErr == nil || vmErr.Code != PanicUnresolved {
		t.Fatalf("library has no main, got %v", vmErr)
	}
}

func TestDivisionByZeroPanics(t *testing.T) {
	p := newProgram(t)
	b := p.b
	vm, _ := load(t, p.lower(t, mir.Options{}, p.show(b.Op("/", b.Int(1), b.Int(0)))))

	vmErr := vm.Run(context.Background())
	if vmErr == nil || vmErr.Code != PanicDivByZero {
		t.Fatalf("expected division by zero, got %v", vmErr)
	}
	if len(vmErr.Backtrace) == 0 || vmErr.Backtrace[0] != mir.RunName("test") {
		t.Fatalf("backtrace %v", vmErr.Backtrace)
	}
}

// A jump with value 0 must still be told apart from the first return of
// its escape point.
func TestZeroJumpResumesWithOne(t *testing.T) {
	m := mir.NewModule("raw")
	fID, fExc := ids.NodeID(1), ids.NodeID(2)
	mainID, exp, disc := ids.NodeID(3), ids.NodeID(4), ids.NodeID(5)
	m.AddFunc(&mir.Func{
		ID:     fID,
		Name:   "f",
		Type:   mir.FuncOf([]*mir.Type{mir.EscapeType}, mir.Int),
		Params: []mir.Param{{ID: fExc, Name: "exc", Type: mir.EscapeType}},
		Body:   []mir.Expr{&mir.Jump{Point: &mir.GetValue{ID: fExc}, Value: mir.IntLit(0), Type: mir.Int}},
	})
	normal := &mir.Cmp{Op: mir.CmpEq, Left: &mir.GetValue{ID: disc}, Right: mir.IntLit(0)}
	call := &mir.Call{Func: &mir.GetValue{ID: fID}, Args: []mir.Expr{&mir.GetValue{ID: exp}}}
	m.AddFunc(&mir.Func{
		ID:   mainID,
		Name: "main",
		Type: mir.FuncOf(nil, mir.Int),
		Body: []mir.Expr{
			&mir.SetValue{ID: disc, Value: &mir.Escape{ID: exp}},
			&mir.Phi{Type: mir.Int, Conds: [][]mir.Expr{{normal}, {mir.BoolLit(true)}}, Blocks: [][]mir.Expr{{call}, {&mir.GetValue{ID: disc}}}},
		},
	})
	m.Main = mainID
	if err := mir.Validate(m); err != nil {
		t.Fatalf("validate: %v", err)
	}
	vm, rt := load(t, m)
	if vmErr := vm.Run(context.Background()); vmErr != nil {
		t.Fatalf("run: %v", vmErr)
	}
	if rt.ExitCode() != 1 {
		t.Fatalf("main returned %d, want 1", rt.ExitCode())
	}
}
