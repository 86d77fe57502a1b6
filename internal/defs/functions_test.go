package defs

import (
	"errors"
	"testing"

	"molten/internal/ids"
	"molten/internal/symbols"
	"molten/internal/types"
)

func unary(arg, ret string) *types.Function {
	return types.NewFunction(
		[]types.Type{types.NewObject(arg, ids.NoID)},
		types.NewObject(ret, ids.NoID),
		types.ABIMoltenFunc,
	)
}

func TestDefineFuncPromotesToOverload(t *testing.T) {
	sess := newFakeSession()
	scope := symbols.NewMap().Global

	specs := []FuncSpec{
		{ID: 1, Name: "f", ABI: types.ABIMoltenFunc, Type: unary(types.IntName, types.IntName)},
		{ID: 2, Name: "f", ABI: types.ABIMoltenFunc, Type: unary(types.RealName, types.RealName)},
		{ID: 3, Name: "f", ABI: types.ABIMoltenFunc, Type: unary(types.StringName, types.IntName)},
	}
	for _, spec := range specs {
		if _, err := DefineFunc(sess, scope, spec); err != nil {
			t.Fatalf("define %s: %v", spec.ID, err)
		}
	}
	sym, ok := scope.Local("f")
	if !ok {
		t.Fatalf("f is not bound")
	}
	d, err := sess.Def(sym.Def)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	ov, err := AsOverload(d)
	if err != nil {
		t.Fatalf("expected an overload: %v", err)
	}
	want := []ids.NodeID{1, 2, 3}
	if len(ov.Variants) != len(want) {
		t.Fatalf("variants = %v", ov.Variants)
	}
	for i := range want {
		if ov.Variants[i] != want[i] {
			t.Fatalf("variants = %v, want registration order %v", ov.Variants, want)
		}
	}
}

func TestDefineFuncCompletesForwardDeclaration(t *testing.T) {
	sess := newFakeSession()
	scope := symbols.NewMap().Global

	if _, err := DefineFunc(sess, scope, FuncSpec{ID: 1, Name: "g", ABI: types.ABIMoltenFunc, Forward: true, Type: unary(types.IntName, types.IntName)}); err != nil {
		t.Fatalf("declare: %v", err)
	}
	if _, err := DefineFunc(sess, scope, FuncSpec{ID: 2, Name: "g", ABI: types.ABIMoltenFunc, Type: unary(types.IntName, types.IntName)}); err != nil {
		t.Fatalf("define: %v", err)
	}
	sym, _ := scope.Local("g")
	if sym.Def != 2 {
		t.Fatalf("g bound to %s, want the definition", sym.Def)
	}
	d, err := sess.Def(1)
	if err != nil || d.DefID() != 2 {
		t.Fatalf("declaration should resolve to the definition, got %v %v", d, err)
	}
	if IsForward(d) {
		t.Fatalf("completed function still marked forward")
	}
}

func TestDefineFuncOverloadsForwardOfOtherArity(t *testing.T) {
	sess := newFakeSession()
	scope := symbols.NewMap().Global

	binary := types.NewFunction([]types.Type{intType(), intType()}, intType(), types.ABIMoltenFunc)
	if _, err := DefineFunc(sess, scope, FuncSpec{ID: 1, Name: "h", ABI: types.ABIMoltenFunc, Forward: true, Type: binary}); err != nil {
		t.Fatalf("declare: %v", err)
	}
	if _, err := DefineFunc(sess, scope, FuncSpec{ID: 2, Name: "h", ABI: types.ABIMoltenFunc, Type: unary(types.IntName, types.IntName)}); err != nil {
		t.Fatalf("define: %v", err)
	}
	sym, _ := scope.Local("h")
	d, _ := sess.Def(sym.Def)
	if d.DefKind() != KindOverload {
		t.Fatalf("h is a %s, want overload", d.DefKind())
	}
}

func TestDefineFuncRejectsNonFunctionBinding(t *testing.T) {
	sess := newFakeSession()
	scope := symbols.NewMap().Global
	if _, err := scope.Define("x", 5, false); err != nil {
		t.Fatal(err)
	}
	sess.SetDef(5, &Var{ID: 5, Name: "x"})

	_, err := DefineFunc(sess, scope, FuncSpec{ID: 6, Name: "x", ABI: types.ABIMolten, Type: unary(types.IntName, types.IntName)})
	var dup *symbols.DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestDefineFuncChoosesDefinitionKind(t *testing.T) {
	sess := newFakeSession()
	m := symbols.NewMap()
	fn := m.Add(50, symbols.Lexical(m.Global), symbols.ContextFunc)

	global, _ := DefineFunc(sess, m.Global, FuncSpec{ID: 1, Name: "top", ABI: types.ABIMolten})
	local, _ := DefineFunc(sess, fn, FuncSpec{ID: 2, Name: "inner", ABI: types.ABIMolten})
	cfn, _ := DefineFunc(sess, m.Global, FuncSpec{ID: 3, Name: "puts", ABI: types.ABIC, Forward: true})
	mf, _ := DefineFunc(sess, m.Global, FuncSpec{ID: 4, Name: "twice", ABI: types.ABIMoltenFunc})

	top, err := AsClosure(global)
	if err != nil || !top.GlobalID.IsValid() {
		t.Fatalf("module-level closure should own a global: %v", err)
	}
	inner, err := AsClosure(local)
	if err != nil || inner.GlobalID.IsValid() {
		t.Fatalf("local closure must not own a global: %v", err)
	}
	if cfn.DefKind() != KindCFunc || mf.DefKind() != KindFunc {
		t.Fatalf("kinds = %s, %s", cfn.DefKind(), mf.DefKind())
	}
	if !IsGloballyAccessible(global) || IsGloballyAccessible(local) {
		t.Fatalf("global accessibility is wrong")
	}
	if _, err := AsClass(mf); err == nil {
		t.Fatalf("narrowing a function to a class should fail")
	}
}
