package symbols

import (
	"errors"
	"testing"

	"molten/internal/ids"
)

func TestDefineRejectsLocalDuplicatesOnly(t *testing.T) {
	m := NewMap()
	if _, err := m.Global.Define("x", 1, false); err != nil {
		t.Fatalf("define: %v", err)
	}
	_, err := m.Global.Define("x", 2, false)
	var dup *DuplicateError
	if !errors.As(err, &dup) || dup.Name != "x" {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	inner := m.Add(10, Lexical(m.Global), ContextBlock)
	if _, err := inner.Define("x", 3, true); err != nil {
		t.Fatalf("shadowing in a nested scope must be allowed: %v", err)
	}
	sym, where, err := inner.Lookup("x")
	if err != nil || sym.Def != 3 || where != inner {
		t.Fatalf("lookup should find the nearest binding, got %+v in %v (%v)", sym, where, err)
	}
}

func TestLookupWalksToPrimitive(t *testing.T) {
	m := NewMap()
	if _, err := m.Primitive.DefineType("Int", 5, nil); err != nil {
		t.Fatalf("define type: %v", err)
	}
	fn := m.Add(20, Lexical(m.Global), ContextFunc)
	blk := m.Add(21, Lexical(fn), ContextBlock)
	if ts, err := blk.LookupType("Int"); err != nil || ts.Def != 5 {
		t.Fatalf("type lookup: %+v %v", ts, err)
	}
	_, _, err := blk.Lookup("missing")
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Name != "missing" {
		t.Fatalf("expected not-found, got %v", err)
	}
	if blk.Global() != m.Global {
		t.Fatalf("Global() did not reach the global scope")
	}
}

func TestRedirectScopes(t *testing.T) {
	m := NewMap()
	vars := New(Lexical(m.Global), ContextClass)
	vars.Basename = "A"
	body := m.Add(30, Redirect(vars), ContextClass)

	if _, err := body.Define("x", 7, true); err != nil {
		t.Fatalf("define: %v", err)
	}
	if !vars.ContainsLocal("x") || !body.ContainsLocal("x") {
		t.Fatalf("definition should land in the redirect target")
	}
	if _, err := m.Global.Define("g", 8, false); err != nil {
		t.Fatalf("define global: %v", err)
	}
	if !body.Contains("g") {
		t.Fatalf("lookups must continue past the target's chain")
	}
	if _, err := vars.LookupMember("g"); err == nil {
		t.Fatalf("member lookup must not leave class scopes")
	}

	child := New(Lexical(vars), ContextClass)
	if sym, err := child.LookupMember("x"); err != nil || sym.Def != 7 {
		t.Fatalf("members should be inherited: %+v %v", sym, err)
	}
}

func TestDefinedInFunction(t *testing.T) {
	m := NewMap()
	outer := m.Add(40, Lexical(m.Global), ContextFunc)
	if _, err := outer.Define("y", 41, false); err != nil {
		t.Fatal(err)
	}
	inner := m.Add(42, Lexical(outer), ContextFunc)
	blk := m.Add(43, Lexical(inner), ContextBlock)
	if _, err := blk.Define("z", 44, false); err != nil {
		t.Fatal(err)
	}
	if !blk.DefinedInFunction("z", 44) {
		t.Fatalf("z is local to the inner function")
	}
	if blk.DefinedInFunction("y", 41) {
		t.Fatalf("y belongs to the enclosing function")
	}
	if _, err := blk.Define("y", 45, false); err != nil {
		t.Fatal(err)
	}
	if blk.DefinedInFunction("y", 41) {
		t.Fatalf("a shadowing binding must not hide the outer definition's identity")
	}
}

func TestFullName(t *testing.T) {
	m := NewMap()
	cls := m.Add(50, Lexical(m.Global), ContextClass)
	cls.Basename = "Point"
	if got := cls.FullName("norm", 51); got != "Point.norm" {
		t.Fatalf("got %q", got)
	}
	if got := m.Global.FullName("", ids.NodeID(52)); got != "anon52" {
		t.Fatalf("got %q", got)
	}
}
