package types

import "testing"

func TestMangleInjective(t *testing.T) {
	sigs := []struct {
		name string
		args []Type
	}{
		{"+", []Type{obj(IntName), obj(IntName)}},
		{"+", []Type{obj(RealName), obj(RealName)}},
		{"+", []Type{obj(IntName)}},
		{"+", nil},
		{"add", []Type{NewTuple(obj(IntName), obj(IntName))}},
		{"add", []Type{obj(IntName), obj(IntName)}},
		{"f", []Type{obj("A1")}},
		{"f", []Type{obj("A"), obj("1")}},
		{"f", []Type{obj(BufferName, obj(IntName))}},
		{"f", []Type{obj(BufferName), obj(IntName)}},
		{"g", []Type{NewFunction([]Type{obj(IntName)}, obj(IntName), ABIC)}},
		{"g", []Type{NewFunction([]Type{obj(IntName)}, obj(IntName), ABIMolten)}},
		{"h", []Type{&Record{Fields: []Field{{Name: "a", Type: obj(IntName)}}}}},
		{"h", []Type{&Record{Fields: []Field{{Name: "b", Type: obj(IntName)}}}}},
		{"k$1_O3_Int0_", []Type{obj(IntName)}},
		{"k", []Type{obj(IntName), obj(IntName)}},
		{"k$1_O3_Int0_", nil},
		{"k", []Type{obj(IntName)}},
		{"1_x", nil},
		{"x", nil},
	}
	seen := make(map[string]int)
	for i, s := range sigs {
		m := Mangle(s.name, s.args)
		if j, dup := seen[m]; dup {
			t.Fatalf("collision %q between #%d and #%d", m, i, j)
		}
		seen[m] = i
		if again := Mangle(s.name, s.args); again != m {
			t.Fatalf("mangling not deterministic: %q vs %q", m, again)
		}
	}
}

func TestMangleLengthPrefixesName(t *testing.T) {
	got := Mangle("add", []Type{obj(IntName)})
	if want := "3_add$1_O3_Int0_"; got != want {
		t.Fatalf("Mangle = %q, want %q", got, want)
	}
}
