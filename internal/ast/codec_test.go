package ast

import (
	"bytes"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"molten/internal/ids"
	"molten/internal/types"
)

func sampleProgram(b *Builder) []Node {
	intT := types.NewObject(types.IntName, ids.NoID)
	return []Node{
		b.Class(b.Spec("A"), nil,
			b.Field("x", intT, b.Int(1)),
		),
		b.Class(b.Spec("B"), &ClassSpec{Name: "A"},
			b.Field("y", nil, b.Int(2)),
			b.Fn("getX", []*Argument{b.Arg("self", nil)}, b.Access(b.Ident("self"), "x")),
		),
		b.Func(types.ABIMoltenFunc, "f", nil, nil, b.Block(b.Raise(b.Int(42)))),
		b.Try(b.Call(b.Ident("f")),
			b.BindCase("n", b.Op("+", b.Ident("n"), b.Int(1))),
			b.Wildcard(b.Int(0)),
		),
		b.Let("r", b.Record(RecordField{Name: "a", Value: b.Real(1.5)}, RecordField{Name: "b", Value: b.Str("s")})),
		b.Match(b.Bool(true), b.LitCase(b.Bool(false), b.Unit()), b.Wildcard(b.Nil())),
		b.Declare("puts", types.MustParse("(String) -> () / C")),
		b.For("i", b.List(b.Int(1), b.Int(2)), b.Index(b.Ident("xs"), b.Ident("i"))),
		b.Import("lib.util"),
	}
}

func encode(t *testing.T, code []Node) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, "demo", code); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestCodecRoundTrip(t *testing.T) {
	b := NewBuilder(ids.NewGenerator(0))
	code := sampleProgram(b)
	first := encode(t, code)

	name, decoded, err := Decode(bytes.NewReader(first), 1)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if name != "demo" || len(decoded) != len(code) {
		t.Fatalf("unexpected unit %q with %d nodes", name, len(decoded))
	}
	if second := encode(t, decoded); !bytes.Equal(first, second) {
		t.Fatalf("re-encoded unit differs")
	}
	if got, want := MaxID(decoded), MaxID(code); got != want {
		t.Fatalf("max id %d, want %d", got, want)
	}
	lit := decoded[5].(*Match).Cases[0].Pattern.Value.(*Literal)
	if lit.Lit != LitBool || lit.Bool {
		t.Fatalf("bool literal lost: %+v", lit)
	}
}

func TestDecodeRejectsUnknownSchema(t *testing.T) {
	data, err := msgpack.Marshal(&Unit{Schema: codecSchema + 1, Name: "demo"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, _, err := Decode(bytes.NewReader(data), 1); err == nil {
		t.Fatalf("expected schema error")
	}
}

func TestWalkVisitsEveryNode(t *testing.T) {
	b := NewBuilder(ids.NewGenerator(0))
	code := sampleProgram(b)
	seen := make(map[ids.NodeID]bool)
	for _, n := range code {
		Walk(n, func(n Node) bool {
			if seen[n.ID()] {
				t.Fatalf("node %s visited twice", n.ID())
			}
			seen[n.ID()] = true
			return true
		})
	}
	var idents int
	for _, n := range code {
		Walk(n, func(n Node) bool {
			if _, ok := n.(*Identifier); ok {
				idents++
			}
			return true
		})
	}
	// self, f, +, n, xs, i
	if idents != 6 {
		t.Fatalf("found %d identifiers, want 6", idents)
	}

	skipped := 0
	Walk(code[1], func(n Node) bool {
		skipped++
		return n.Kind() != KindClass
	})
	if skipped != 1 {
		t.Fatalf("returning false must skip children, visited %d", skipped)
	}
}
