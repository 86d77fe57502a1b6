package refine

import (
	"errors"
	"testing"

	"molten/internal/ast"
	"molten/internal/diag"
	"molten/internal/ids"
	"molten/internal/types"
)

func newBuilder() *ast.Builder { return ast.NewBuilder(ids.NewGenerator(0)) }

func refineOne(t *testing.T, b *ast.Builder, n ast.Node) ast.Node {
	t.Helper()
	out, err := Refine(b, []ast.Node{n})
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	return out[0]
}

func TestEmptyBlockGetsUnit(t *testing.T) {
	b := newBuilder()
	blk := refineOne(t, b, b.Block()).(*ast.Block)
	if len(blk.Body) != 1 {
		t.Fatalf("body has %d nodes", len(blk.Body))
	}
	lit, ok := blk.Body[0].(*ast.Literal)
	if !ok || lit.Lit != ast.LitUnit {
		t.Fatalf("expected unit literal, got %T", blk.Body[0])
	}
}

func TestForBecomesWhile(t *testing.T) {
	b := newBuilder()
	loop := b.For("x", b.Ident("xs"), b.Op("println", b.Ident("x")))
	blk, ok := refineOne(t, b, loop).(*ast.Block)
	if !ok || !blk.Scoped || len(blk.Body) != 3 {
		t.Fatalf("expected scoped block of three nodes, got %#v", blk)
	}
	w, ok := blk.Body[2].(*ast.While)
	if !ok {
		t.Fatalf("third node is %T, want while", blk.Body[2])
	}
	if w.ID() != loop.ID() {
		t.Fatalf("while should keep the loop id")
	}
	body := w.Body.(*ast.Block)
	item, ok := body.Body[0].(*ast.Definition)
	if !ok || item.Name != "x" {
		t.Fatalf("loop body should start by binding x, got %T", body.Body[0])
	}
	get := item.Value.(*ast.Invoke).Func.(*ast.Accessor)
	if get.Field != "get" {
		t.Fatalf("item comes from %q", get.Field)
	}
	if _, ok := body.Body[2].(*ast.Assignment); !ok {
		t.Fatalf("loop body should end with the index increment")
	}
}

func TestRecordFieldsSorted(t *testing.T) {
	b := newBuilder()
	rec := b.Record(
		ast.RecordField{Name: "z", Value: b.Int(1)},
		ast.RecordField{Name: "a", Value: b.Int(2)},
		ast.RecordField{Name: "m", Value: b.Int(3)},
	)
	out := refineOne(t, b, rec).(*ast.Record)
	for i, want := range []string{"a", "m", "z"} {
		if out.Fields[i].Name != want {
			t.Fatalf("field %d = %s, want %s", i, out.Fields[i].Name, want)
		}
	}
}

func TestIndexAndNewBecomeCalls(t *testing.T) {
	b := newBuilder()
	idx := refineOne(t, b, b.Index(b.Ident("xs"), b.Int(0))).(*ast.Invoke)
	acc, ok := idx.Func.(*ast.Accessor)
	if !ok || acc.Field != IndexName || len(idx.Args) != 1 {
		t.Fatalf("index not rewritten: %#v", idx)
	}

	set := refineOne(t, b, b.Assign(b.Index(b.Ident("xs"), b.Int(0)), b.Int(7))).(*ast.Invoke)
	if len(set.Args) != 2 {
		t.Fatalf("index assignment should pass index and value, got %d args", len(set.Args))
	}

	nw := refineOne(t, b, b.New(b.Spec("Point"))).(*ast.Invoke)
	res, ok := nw.Func.(*ast.Resolver)
	if !ok || res.Field != InitName || res.Path.(*ast.Identifier).Name != "Point" {
		t.Fatalf("new not rewritten to Point::__init__")
	}
	if _, ok := nw.Args[0].(*ast.New); !ok {
		t.Fatalf("initialiser should receive the allocation")
	}
}

func TestClassInitSynthesis(t *testing.T) {
	b := newBuilder()
	parent := b.Spec("A")
	cls := b.Class(b.Spec("B"), &parent,
		b.Field("y", types.NewObject(types.IntName, ids.NoID), b.Int(2)),
	)
	out := refineOne(t, b, cls).(*ast.Class)
	if len(out.Body) != 2 {
		t.Fatalf("class body has %d nodes", len(out.Body))
	}
	if out.Body[0].(*ast.Definition).Value != nil {
		t.Fatalf("field default should move into __init__")
	}
	init, ok := out.Body[1].(*ast.Function)
	if !ok || init.Name != InitName || len(init.Args) != 1 || init.Args[0].Name != SelfName {
		t.Fatalf("missing __init__(self)")
	}
	steps := init.Body.(*ast.Block).Body
	if len(steps) != 3 {
		t.Fatalf("__init__ has %d steps, want parent call, assignment, self", len(steps))
	}
	if _, ok := steps[0].(*ast.Invoke).Func.(*ast.Resolver); !ok {
		t.Fatalf("first step should call A::__init__")
	}
	if id, ok := steps[2].(*ast.Identifier); !ok || id.Name != SelfName {
		t.Fatalf("__init__ should return self")
	}
}

func TestDeclaredInitIsKept(t *testing.T) {
	b := newBuilder()
	cls := b.Class(b.Spec("C"), nil,
		b.Fn(InitName, []*ast.Argument{b.Arg(SelfName, nil)}, b.Ident(SelfName)),
	)
	out := refineOne(t, b, cls).(*ast.Class)
	if len(out.Body) != 1 {
		t.Fatalf("declared __init__ should not be duplicated")
	}
}

func TestInvalidAssignmentTarget(t *testing.T) {
	b := newBuilder()
	_, err := Refine(b, []ast.Node{b.Assign(b.Int(1), b.Int(2))})
	var de *diag.Error
	if !errors.As(err, &de) || de.Code != diag.SynInvalidTarget {
		t.Fatalf("expected invalid target error, got %v", err)
	}
}
