package builtins

import (
	"testing"

	"molten/internal/defs"
	"molten/internal/session"
	"molten/internal/types"
)

func declare(t *testing.T) (*session.Session, *Registry) {
	t.Helper()
	sess := session.New("test")
	r, err := Declare(sess, sess.Scopes.Primitive, sess.Fresh)
	if err != nil {
		t.Fatalf("declare builtins: %v", err)
	}
	return sess, r
}

func TestPrimitiveClassesAreBound(t *testing.T) {
	sess, r := declare(t)
	for _, name := range []string{types.UnitName, types.IntName, types.StringName, types.BufferName} {
		sym, err := sess.Scopes.Global.LookupType(name)
		if err != nil {
			t.Fatalf("type %s not visible from the global scope: %v", name, err)
		}
		cls, ok := r.Class(name)
		if !ok || cls.ID != sym.Def || !cls.Primitive {
			t.Fatalf("class %s is not registered as primitive", name)
		}
	}
	buf, _ := r.Class(types.BufferName)
	if len(buf.Type.Params) != 1 {
		t.Fatalf("Buffer should take one parameter, has %d", len(buf.Type.Params))
	}
}

func TestOperatorsFormOverloads(t *testing.T) {
	sess, r := declare(t)
	sym, ok := sess.Scopes.Primitive.Local("+")
	if !ok {
		t.Fatalf("+ is not declared")
	}
	d, err := sess.Def(sym.Def)
	if err != nil {
		t.Fatal(err)
	}
	ov, err := defs.AsOverload(d)
	if err != nil {
		t.Fatalf("+ should be an overload: %v", err)
	}
	if len(ov.Variants) != 2 {
		t.Fatalf("+ has %d variants, want Int and Real", len(ov.Variants))
	}
	first, ok := r.Lookup(ov.Variants[0])
	if !ok || first.Op != OpAddInt {
		t.Fatalf("first + variant should be the Int one, got %+v", first)
	}
	intClass, _ := r.Class(types.IntName)
	arg := first.Type.Args[0].(*types.Object)
	if arg.ID != intClass.ID {
		t.Fatalf("signature object Int not bound to its class")
	}
}

func TestExternalsAreCFunctions(t *testing.T) {
	sess, r := declare(t)
	sym, _ := sess.Scopes.Primitive.Local("puts")
	d, _ := sess.Def(sym.Def)
	if d.DefKind() != defs.KindCFunc {
		t.Fatalf("puts is a %s", d.DefKind())
	}
	f, ok := r.Lookup(sym.Def)
	if !ok || !f.External() {
		t.Fatalf("puts should be external")
	}
	sym, _ = sess.Scopes.Primitive.Local("bufget")
	d, _ = sess.Def(sym.Def)
	if d.DefKind() != defs.KindFunc || defs.ABIOf(d) != types.ABIC {
		t.Fatalf("bufget should be a generated C function, got %s", d.DefKind())
	}
	f, _ = r.Lookup(sym.Def)
	if !types.HasGenerics(f.Type) {
		t.Fatalf("bufget signature should be generic: %s", f.Type)
	}
}

func TestBufferMembersAreMethods(t *testing.T) {
	sess, r := declare(t)
	buf, _ := r.Class(types.BufferName)

	sym, err := buf.Vars.LookupMember("len")
	if err != nil {
		t.Fatalf("Buffer has no len: %v", err)
	}
	d, _ := sess.Def(sym.Def)
	m, err := defs.AsMethod(d)
	if err != nil || m.Class != buf.ID {
		t.Fatalf("len should be a Buffer method, got %v", d.DefKind())
	}
	if f, ok := r.Lookup(m.ID); !ok || f.Op != OpBufLen {
		t.Fatalf("len is not the buffer length builtin")
	}

	sym, err = buf.Vars.LookupMember("[]")
	if err != nil {
		t.Fatalf("Buffer has no []: %v", err)
	}
	d, _ = sess.Def(sym.Def)
	ov, err := defs.AsOverload(d)
	if err != nil || len(ov.Variants) != 2 {
		t.Fatalf("[] should overload get and set: %v", err)
	}
	get, _ := r.Lookup(ov.Variants[0])
	set, _ := r.Lookup(ov.Variants[1])
	if get.Op != OpBufGet || set.Op != OpBufSet {
		t.Fatalf("[] variants are %s and %s", get.Op, set.Op)
	}
	if _, ok := sess.Scopes.Primitive.Local("len"); ok {
		t.Fatalf("buffer members leaked into the primitive scope")
	}
}
