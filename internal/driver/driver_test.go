package driver

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"molten/internal/ast"
	"molten/internal/diag"
	"molten/internal/ids"
	"molten/internal/mir"
	"molten/internal/source"
	"molten/internal/symbols"
	"molten/internal/trace"
	"molten/internal/types"
	"molten/internal/vm"
)

func newBuilder() *ast.Builder {
	return ast.NewBuilder(ids.NewGenerator(ids.NoID))
}

func show(b *ast.Builder, n ast.Node) ast.Node {
	return b.Op("println", b.Op("str", n))
}

func compile(t *testing.T, unit *Unit, opts Options) *Result {
	t.Helper()
	res, err := Compile(context.Background(), unit, opts)
	if err != nil {
		t.Fatalf("compile %s: %v", unit.Name, err)
	}
	return res
}

func run(t *testing.T, results ...*Result) *vm.TestRuntime {
	t.Helper()
	rt := vm.NewTestRuntime("")
	if _, err := Run(context.Background(), rt, vm.Options{}, results...); err != nil {
		t.Fatalf("run: %v", err)
	}
	return rt
}

func TestCompileAndRun(t *testing.T) {
	b := newBuilder()
	fn := b.Fn("double", []*ast.Argument{b.Arg("x", nil)}, b.Op("*", b.Ident("x"), b.Int(2)))
	res := compile(t, NewUnit("hello", []ast.Node{
		b.Op("println", b.Str("hello")),
		fn,
		show(b, b.Op("double", b.Int(21))),
	}), Options{})

	if res.Module == nil || res.Exports == nil {
		t.Fatalf("missing outputs: module=%v exports=%v", res.Module != nil, res.Exports != nil)
	}
	if len(res.Timing.Phases) != len(Phases) {
		t.Fatalf("timed %d phases, want %d", len(res.Timing.Phases), len(Phases))
	}
	rt := run(t, res)
	if got := rt.Output(); got != "hello\n42\n" {
		t.Fatalf("output %q", got)
	}
	if rt.ExitCode() != 0 {
		t.Fatalf("exit code %d", rt.ExitCode())
	}
}

func TestUncaughtExceptionExitsWithMinusOne(t *testing.T) {
	b := newBuilder()
	res := compile(t, NewUnit("boom", []ast.Node{b.Raise(b.Int(1))}), Options{})
	rt := vm.NewTestRuntime("")
	code, err := Run(context.Background(), rt, vm.Options{}, res)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if code != -1 || !strings.Contains(rt.Output(), mir.UncaughtMessage) {
		t.Fatalf("code %d, output %q", code, rt.Output())
	}
}

func TestSemanticErrorIsReported(t *testing.T) {
	b := newBuilder()
	res, err := Compile(context.Background(), NewUnit("bad", []ast.Node{show(b, b.Ident("missing"))}), Options{})
	if err == nil {
		t.Fatalf("expected an error")
	}
	var nf *symbols.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected an undefined reference, got %v", err)
	}
	if !res.Failed() || res.Module != nil {
		t.Fatalf("a failed unit must not be lowered")
	}
	items := res.Bag.Items()
	if len(items) != 1 || items[0].Code != diag.SemaUndefinedReference {
		t.Fatalf("unexpected diagnostics: %+v", items)
	}
}

func TestCheckOnlySkipsLowering(t *testing.T) {
	b := newBuilder()
	res := compile(t, NewUnit("checked", []ast.Node{show(b, b.Int(1))}), Options{CheckOnly: true})
	if res.Module != nil {
		t.Fatalf("check only lowered the unit")
	}
	if _, err := EmitLLVM(context.Background(), res, Options{}); !errors.Is(err, ErrNotLowered) {
		t.Fatalf("expected ErrNotLowered, got %v", err)
	}
}

func TestLibraryImportedByProgram(t *testing.T) {
	dir := t.TempDir()
	intT := types.MustParse("Int")

	lb := newBuilder()
	area := lb.Fn("area", []*ast.Argument{lb.Arg("w", intT), lb.Arg("h", intT)}, lb.Op("*", lb.Ident("w"), lb.Ident("h")))
	area.Vis = ast.Public
	lib := compile(t, NewUnit("shapes", []ast.Node{lb.Op("println", lb.Str("shapes ready")), area}), Options{Library: true})
	if lib.Module.Main.IsValid() {
		t.Fatalf("library has a main entry point")
	}
	if _, err := WriteExports(dir, lib); err != nil {
		t.Fatalf("write exports: %v", err)
	}

	ab := newBuilder()
	app := compile(t, NewUnit("app", []ast.Node{
		ab.Import("shapes"),
		show(ab, ab.Op("area", ab.Int(2), ab.Int(3))),
	}), Options{ImportDirs: []string{dir}})

	rt := run(t, lib, app)
	if got := rt.Output(); got != "shapes ready\n6\n" {
		t.Fatalf("output %q", got)
	}
}

func TestImportedClassDispatchesToOverride(t *testing.T) {
	dir := t.TempDir()
	intT := types.MustParse("Int")

	lb := newBuilder()
	a := lb.Class(lb.Spec("A"), nil,
		lb.Field("x", intT, lb.Int(7)),
		lb.Fn("get", []*ast.Argument{lb.Arg("self", nil)}, lb.Access(lb.Ident("self"), "x")),
	)
	showA := lb.Fn("showA", []*ast.Argument{lb.Arg("o", types.MustParse("A"))}, lb.Method(lb.Ident("o"), "get"))
	showA.Vis = ast.Public
	lib := compile(t, NewUnit("base", []ast.Node{a, showA}), Options{Library: true})
	if _, err := WriteExports(dir, lib); err != nil {
		t.Fatalf("write exports: %v", err)
	}

	ab := newBuilder()
	parent := ab.Spec("A")
	bcls := ab.Class(ab.Spec("B"), &parent,
		ab.Fn("get", []*ast.Argument{ab.Arg("self", nil)}, ab.Op("+", ab.Access(ab.Ident("self"), "x"), ab.Int(100))),
	)
	app := compile(t, NewUnit("app", []ast.Node{
		ab.Import("base"),
		bcls,
		show(ab, ab.Op("showA", ab.New(ab.Spec("B")))),
		show(ab, ab.Method(ab.New(ab.Spec("B")), "get")),
		show(ab, ab.Op("showA", ab.New(ab.Spec("A")))),
	}), Options{ImportDirs: []string{dir}})

	rt := run(t, lib, app)
	if got := rt.Output(); got != "107\n107\n7\n" {
		t.Fatalf("output %q", got)
	}
	if rt.ExitCode() != 0 {
		t.Fatalf("exit code %d", rt.ExitCode())
	}
}

func TestCompileUnitsKeepsFailuresPerUnit(t *testing.T) {
	var units []*Unit
	for _, name := range []string{"a", "b", "c"} {
		b := newBuilder()
		body := show(b, b.Int(1))
		if name == "b" {
			body = show(b, b.Ident("nope"))
		}
		units = append(units, NewUnit(name, []ast.Node{body}))
	}

	var (
		mu       sync.Mutex
		finished = map[string]error{}
	)
	opts := Options{Observer: func(ev PhaseEvent) {
		if ev.Name != PhaseUnit {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		finished[ev.Unit] = ev.Err
	}}
	results, err := CheckUnits(context.Background(), units, opts, 2)
	if err != nil {
		t.Fatalf("check units: %v", err)
	}
	if len(results) != 3 || len(finished) != 3 {
		t.Fatalf("got %d results and %d events", len(results), len(finished))
	}
	for i, res := range results {
		want := units[i].Name == "b"
		if res.Failed() != want || (finished[units[i].Name] != nil) != want {
			t.Fatalf("unit %s: failed=%v", units[i].Name, res.Failed())
		}
	}
	if !HasErrors(results...) {
		t.Fatalf("HasErrors missed the failing unit")
	}
	if bag := Diagnostics(10, results...); bag.Len() != 1 {
		t.Fatalf("merged %d diagnostics, want 1", bag.Len())
	}
}

func TestTimingsAreReported(t *testing.T) {
	b := newBuilder()
	res := compile(t, NewUnit("timed", []ast.Node{show(b, b.Int(1))}), Options{Timings: true})
	if res.Timing.Unit != "timed" {
		t.Fatalf("timing report belongs to %q", res.Timing.Unit)
	}
	for _, d := range res.Bag.Items() {
		if d.Code != diag.ObsTimings || d.Severity != diag.SevInfo || len(d.Notes) != 1 {
			continue
		}
		var payload unitTimings
		if err := json.Unmarshal([]byte(d.Notes[0].Msg), &payload); err != nil {
			t.Fatalf("timing note is not JSON: %v", err)
		}
		if payload.Unit != "timed" || !payload.Lowered || len(payload.Phases) != len(Phases) || payload.Slowest == "" {
			t.Fatalf("timing payload %+v", payload)
		}
		return
	}
	t.Fatalf("no timing diagnostic in %+v", res.Bag.Items())
}

func TestPhaseSpansCarryUnit(t *testing.T) {
	ring := trace.NewRingTracer(256, trace.LevelPhase)
	b := newBuilder()
	compile(t, NewUnit("traced", []ast.Node{show(b, b.Int(1))}), Options{Tracer: ring})

	seen := map[string]bool{}
	for _, ev := range ring.Snapshot() {
		if ev.Kind != trace.KindSpanBegin || ev.Phase == "" {
			continue
		}
		if ev.Unit != "traced" {
			t.Fatalf("phase %s traced for unit %q", ev.Phase, ev.Unit)
		}
		seen[ev.Phase] = true
	}
	for _, name := range Phases {
		if !seen[name] {
			t.Fatalf("no span for phase %s", name)
		}
	}
}

func TestUnitFilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := newBuilder()
	path := filepath.Join(dir, "prog"+ASTExt)
	if err := WriteUnit(path, "prog", []ast.Node{b.Op("println", b.Str("from disk"))}); err != nil {
		t.Fatalf("write unit: %v", err)
	}
	src := "println(\"from disk\")\n"
	if err := os.WriteFile(filepath.Join(dir, "prog"+SourceExt), []byte(src), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	files := source.NewFileSet()
	units, err := LoadUnits(files, []string{path})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	u := units[0]
	if u.Name != "prog" || u.Dir() != dir {
		t.Fatalf("unexpected unit %q in %q", u.Name, u.Dir())
	}
	if f := files.Get(u.File); f == nil || string(f.Content) != src {
		t.Fatalf("source text not registered")
	}

	rt := run(t, compile(t, u, Options{}))
	if got := rt.Output(); got != "from disk\n" {
		t.Fatalf("output %q", got)
	}
}

func TestMissingUnitIsALoadError(t *testing.T) {
	_, err := LoadUnit(source.NewFileSet(), filepath.Join(t.TempDir(), "none"+ASTExt))
	var de *diag.Error
	if !errors.As(err, &de) || de.Code != diag.IOLoadFileError {
		t.Fatalf("expected an I/O diagnostic, got %v", err)
	}
}

func TestEmitLLVMText(t *testing.T) {
	b := newBuilder()
	res := compile(t, NewUnit("native", []ast.Node{b.Op("println", b.Str("hi"))}), Options{})
	out, err := EmitLLVM(context.Background(), res, Options{NoGC: true})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	for _, want := range []string{"define i32 @main()", "@run.native(", "@puts("} {
		if !strings.Contains(out, want) {
			t.Fatalf("IR lacks %q:\n%s", want, out)
		}
	}
	var sb strings.Builder
	if err := WriteIR(&sb, res); err != nil {
		t.Fatalf("write ir: %v", err)
	}
	if !strings.Contains(sb.String(), "run.native") {
		t.Fatalf("IR dump lacks the initialiser:\n%s", sb.String())
	}
}
