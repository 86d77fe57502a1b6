package types

import (
	"errors"
	"testing"

	"molten/internal/ids"
)

func obj(name string, params ...Type) *Object { return NewObject(name, ids.NoID, params...) }

func newVar(id ids.NodeID) *Variable { return &Variable{Name: "t", ID: id} }

func TestCheckConcreteSymmetry(t *testing.T) {
	concrete := []Type{
		obj(IntName),
		obj(RealName),
		obj(BufferName, obj(IntName)),
		NewTuple(obj(IntName), obj(StringName)),
		NewFunction([]Type{obj(IntName)}, obj(BoolName), ABIMoltenFunc),
		NewFunction([]Type{obj(IntName)}, obj(BoolName), ABIC),
		&Record{Fields: []Field{{Name: "a", Type: obj(IntName)}}},
		NewRef(obj(IntName)),
	}
	for _, a := range concrete {
		for _, b := range concrete {
			_, errAB := Check(NewMapEnv(), a, b, ModeDef, false)
			_, errBA := Check(NewMapEnv(), b, a, ModeDef, false)
			if (errAB == nil) != (errBA == nil) {
				t.Fatalf("asymmetric result for %s / %s: %v vs %v", a, b, errAB, errBA)
			}
			if Equal(a, b) != (errAB == nil) {
				t.Fatalf("check(%s, %s) = %v, structural equality %v", a, b, errAB, Equal(a, b))
			}
		}
	}
}

func TestCheckVariableBindingIsIdempotent(t *testing.T) {
	env := NewMapEnv()
	v := newVar(7)
	first, err := Check(env, v, obj(IntName), ModeDef, false)
	if err != nil {
		t.Fatalf("first bind: %v", err)
	}
	second, err := Check(env, v, obj(IntName), ModeDef, false)
	if err != nil {
		t.Fatalf("second bind: %v", err)
	}
	if !Equal(first, second) || !Equal(Resolve(env, v), obj(IntName)) {
		t.Fatalf("binding changed: %s then %s", first, second)
	}
	if _, err := Check(env, v, obj(RealName), ModeDef, false); err == nil {
		t.Fatalf("bound variable accepted a different type")
	}
}

func TestCheckBoundVariableUnifiesWithBinding(t *testing.T) {
	env := NewMapEnv()
	a, b := newVar(1), newVar(2)
	if _, err := Check(env, a, NewTuple(b, obj(IntName)), ModeDef, false); err != nil {
		t.Fatalf("bind a: %v", err)
	}
	if _, err := Check(env, a, NewTuple(obj(RealName), obj(IntName)), ModeDef, false); err != nil {
		t.Fatalf("re-check a: %v", err)
	}
	if got := Resolve(env, b); !Equal(got, obj(RealName)) {
		t.Fatalf("b should be bound through a's binding, got %s", got)
	}
}

func TestCheckOccurs(t *testing.T) {
	env := NewMapEnv()
	v := newVar(3)
	if _, err := Check(env, v, NewRef(v), ModeDef, false); err == nil {
		t.Fatalf("expected occurs-check failure")
	}
}

func TestCheckUpcast(t *testing.T) {
	env := NewMapEnv()
	env.Parents["B"] = obj("A")
	env.Parents["C"] = obj("B")

	got, err := Check(env, obj("A"), obj("C"), ModeDef, false)
	if err != nil || !IsObject(got, "A") {
		t.Fatalf("C should upcast to A: %v %v", got, err)
	}
	if _, err := Check(env, obj("C"), obj("A"), ModeDef, false); err == nil {
		t.Fatalf("A must not downcast to C at a binding site")
	}
	got, err = Check(env, obj("C"), obj("A"), ModeList, false)
	if err != nil || !IsObject(got, "A") {
		t.Fatalf("list mode should unify a class with its ancestor: %v %v", got, err)
	}
}

func TestCheckFunctionABI(t *testing.T) {
	env := NewMapEnv()
	known := NewFunction([]Type{obj(IntName)}, obj(IntName), ABIMolten)
	unknown := NewFunction([]Type{obj(IntName)}, obj(IntName), ABIUnknown)
	got, err := Check(env, unknown, known, ModeDef, false)
	if err != nil || ABIOf(got) != ABIMolten {
		t.Fatalf("unknown ABI should adopt the concrete one: %v %v", got, err)
	}
	cfn := NewFunction([]Type{obj(IntName)}, obj(IntName), ABIC)
	_, err = Check(env, cfn, known, ModeDef, false)
	var mm *MismatchError
	if !errors.As(err, &mm) {
		t.Fatalf("expected mismatch between C and Molten ABIs, got %v", err)
	}
}

func TestCheckWidening(t *testing.T) {
	env := NewMapEnv()
	if _, err := Check(env, obj(RealName), obj(IntName), ModeDef, true); err != nil {
		t.Fatalf("Int should widen to Real: %v", err)
	}
	if _, err := Check(env, obj(RealName), obj(IntName), ModeList, true); err == nil {
		t.Fatalf("list mode must not widen")
	}
	if _, err := Check(env, obj(IntName), obj(RealName), ModeDef, true); err == nil {
		t.Fatalf("Real must not narrow to Int")
	}
}

func TestExpectReportsOuterTypes(t *testing.T) {
	env := NewMapEnv()
	want := NewTuple(obj(IntName), obj(IntName))
	got := NewTuple(obj(IntName), obj(StringName))
	_, err := Expect(env, want, got, ModeDef)
	var mm *MismatchError
	if !errors.As(err, &mm) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if !Equal(mm.Expected, want) || !Equal(mm.Actual, got) {
		t.Fatalf("expected outer types, got %s / %s", mm.Expected, mm.Actual)
	}
}

func TestInstantiateFreshens(t *testing.T) {
	sig := MustParse("(Buffer<'item>, Int) -> 'item")
	next := ids.NodeID(100)
	fresh := func(name string) *Variable {
		next++
		return &Variable{Name: name, ID: next}
	}
	a := Instantiate(sig, fresh).(*Function)
	b := Instantiate(sig, fresh).(*Function)
	av := a.Ret.(*Variable)
	if av.Generic {
		t.Fatalf("instantiated variable must not be generic")
	}
	if a.Args[0].(*Object).Params[0].(*Variable).ID != av.ID {
		t.Fatalf("same name must map to the same fresh variable")
	}
	if b.Ret.(*Variable).ID == av.ID {
		t.Fatalf("each instantiation must mint new variables")
	}
}
