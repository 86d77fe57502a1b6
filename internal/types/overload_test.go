package types

import (
	"errors"
	"testing"
)

func TestFindVariantSelection(t *testing.T) {
	variants := []Type{
		MustParse("(Int, Int) -> Int / MF"),
		MustParse("(Real, Real) -> Real / MF"),
	}
	cases := []struct {
		args []Type
		want int
	}{
		{[]Type{obj(IntName), obj(IntName)}, 0},
		{[]Type{obj(RealName), obj(RealName)}, 1},
	}
	for _, tc := range cases {
		idx, f, err := FindVariant(NewMapEnv(), "+", variants, tc.args, nil)
		if err != nil || idx != tc.want {
			t.Fatalf("args %v: got variant %d (%v)", tc.args, idx, err)
		}
		if f.ABI != ABIMoltenFunc {
			t.Fatalf("selected variant lost its ABI: %s", f)
		}
	}

	_, _, err := FindVariant(NewMapEnv(), "+", variants, []Type{obj(IntName), obj(RealName)}, nil)
	var nm *NoMatchingOverloadError
	if !errors.As(err, &nm) || nm.Name != "+" || len(nm.Args) != 2 {
		t.Fatalf("expected NoMatchingOverload, got %v", err)
	}
}

func TestFindVariantFirstRegisteredWins(t *testing.T) {
	variants := []Type{
		MustParse("(Int) -> Int"),
		MustParse("('a) -> 'a"),
	}
	idx, _, err := FindVariant(NewMapEnv(), "id", variants, []Type{obj(IntName)}, nil)
	if err != nil || idx != 0 {
		t.Fatalf("expected first variant, got %d (%v)", idx, err)
	}
}

func TestFindVariantDoesNotLeakFailedBindings(t *testing.T) {
	env := NewMapEnv()
	v := newVar(9)
	variants := []Type{
		MustParse("(Int, String) -> Int"),
		MustParse("(Real, Real) -> Real"),
	}
	idx, _, err := FindVariant(env, "f", variants, []Type{v, obj(RealName)}, nil)
	if err != nil || idx != 1 {
		t.Fatalf("expected second variant, got %d (%v)", idx, err)
	}
	if got := Resolve(env, v); !IsObject(got, RealName) {
		t.Fatalf("variable bound by a failed attempt: %s", got)
	}
}
