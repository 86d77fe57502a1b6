package sema

import (
	"context"
	"testing"

	"molten/internal/ast"
	"molten/internal/defs"
	"molten/internal/symbols"
)

func TestBindOpensScopes(t *testing.T) {
	f := newFixture(t)
	b := f.b
	inner := b.Ident("y")
	fn := b.Fn("outer", []*ast.Argument{b.Arg("y", nil)}, b.ScopedBlock(b.Let("z", inner), b.Ident("z")))
	if err := Bind(context.Background(), f.sess, []ast.Node{fn}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	fscope := f.sess.Scopes.Get(fn.ID())
	if fscope == nil || fscope.Context != symbols.ContextFunc || fscope.Basename != "outer" {
		t.Fatalf("function scope not registered: %+v", fscope)
	}
	blk := fn.Body.(*ast.Block)
	bscope := f.sess.Scopes.Get(blk.ID())
	if bscope == nil || !bscope.ContainsLocal("z") || bscope.Next() != fscope {
		t.Fatalf("block scope should hold z and link to the function scope")
	}
	ref, ok := f.sess.Ref(inner.ID())
	if !ok || ref != fn.Args[0].ID() {
		t.Fatalf("y should refer to the argument, got %s", ref)
	}
	if !bscope.DefinedInFunction("y", ref) {
		t.Fatalf("y is an argument of the enclosing function")
	}
}

func TestBindClassRedirectsMembers(t *testing.T) {
	f := newFixture(t)
	a, bcls, getX := classAB(f.b)
	if _, err := f.run(a, bcls); err != nil {
		t.Fatalf("compile: %v", err)
	}
	d, _ := f.sess.Def(bcls.ID())
	cls := d.(*defs.ClassDef)
	if cls.Scope.Target() != cls.Vars {
		t.Fatalf("class body should redirect into the member scope")
	}
	if !cls.Scope.ContainsLocal("y") || cls.Vars.ContainsLocal("x") {
		t.Fatalf("own fields live in the member scope; inherited ones stay in the parent's")
	}
	if _, err := cls.Vars.LookupMember("x"); err != nil {
		t.Fatalf("inherited field not visible as member: %v", err)
	}
	md, _ := f.sess.Def(getX.ID())
	m, err := defs.AsMethod(md)
	if err != nil || m.Class != cls.ID {
		t.Fatalf("getX should be a method of B: %v", err)
	}
	cl, err := defs.AsClosure(md)
	if err != nil || !cl.GlobalID.IsValid() {
		t.Fatalf("methods are globally reachable closures")
	}
	if init, ok := a.Body[len(a.Body)-1].(*ast.Function); !ok || init.Name != "__init__" {
		t.Fatalf("A should have a synthesised initialiser")
	}
}
