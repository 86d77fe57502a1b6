package ast

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"molten/internal/ids"
	"molten/internal/source"
	"molten/internal/types"
)

// Current schema version - increment when the wire layout changes.
const codecSchema uint16 = 1

// Unit is the serialized form of one compilation unit (.mast file).
type Unit struct {
	Schema uint16  `msgpack:"schema"`
	Name   string  `msgpack:"name"`
	Path   string  `msgpack:"path,omitempty"`
	Nodes  []*Wire `msgpack:"nodes"`
}

// Wire is the flat msgpack form of a node. Which fields are used depends on K.
// Type annotations travel as signature text.
type Wire struct {
	K      Kind       `msgpack:"k"`
	ID     uint64     `msgpack:"id"`
	Line   uint32     `msgpack:"ln,omitempty"`
	Col    uint32     `msgpack:"col,omitempty"`
	Name   string     `msgpack:"n,omitempty"`
	Str    string     `msgpack:"s,omitempty"`
	Int    int64      `msgpack:"i,omitempty"`
	Real   float64    `msgpack:"r,omitempty"`
	Flag   uint8      `msgpack:"f,omitempty"`
	Aux    uint64     `msgpack:"x,omitempty"`
	Type   string     `msgpack:"t,omitempty"`
	Spec   *WireSpec  `msgpack:"spec,omitempty"`
	Parent *WireSpec  `msgpack:"parent,omitempty"`
	Kids   []*Wire    `msgpack:"kids,omitempty"`
	Args   []*Wire    `msgpack:"args,omitempty"`
	Cases  []WireCase `msgpack:"cases,omitempty"`
	Fields []string   `msgpack:"fields,omitempty"`
}

type WireSpec struct {
	Name   string   `msgpack:"n"`
	Params []string `msgpack:"p,omitempty"`
}

type WireCase struct {
	ID    uint64 `msgpack:"id"`
	Pat   uint8  `msgpack:"pat"`
	Name  string `msgpack:"n,omitempty"`
	Value *Wire  `msgpack:"v,omitempty"`
	Body  *Wire  `msgpack:"b"`
}

// Encode writes code as a msgpack unit.
func Encode(w io.Writer, name string, code []Node) error {
	unit := Unit{Schema: codecSchema, Name: name, Nodes: make([]*Wire, 0, len(code))}
	for _, n := range code {
		unit.Nodes = append(unit.Nodes, toWire(n))
	}
	return msgpack.NewEncoder(w).Encode(&unit)
}

// Decode reads a unit written by Encode. file is stamped on every position.
func Decode(r io.Reader, file source.FileID) (string, []Node, error) {
	var unit Unit
	if err := msgpack.NewDecoder(r).Decode(&unit); err != nil {
		return "", nil, err
	}
	if unit.Schema != codecSchema {
		return "", nil, fmt.Errorf("unsupported unit schema %d (want %d)", unit.Schema, codecSchema)
	}
	d := decoder{file: file}
	code := make([]Node, 0, len(unit.Nodes))
	for _, w := range unit.Nodes {
		n, err := d.node(w)
		if err != nil {
			return "", nil, err
		}
		code = append(code, n)
	}
	return unit.Name, code, nil
}

func typeText(t types.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}

func specWire(s ClassSpec) *WireSpec {
	ws := &WireSpec{Name: s.Name}
	for _, p := range s.Params {
		ws.Params = append(ws.Params, p.String())
	}
	return ws
}

func wires(nodes []Node) []*Wire {
	out := make([]*Wire, len(nodes))
	for i, n := range nodes {
		out[i] = toWire(n)
	}
	return out
}

func casesWire(cases []*Case) []WireCase {
	out := make([]WireCase, len(cases))
	for i, c := range cases {
		out[i] = WireCase{
			ID:   uint64(c.Pattern.ID()),
			Pat:  uint8(c.Pattern.Pat),
			Name: c.Pattern.Name,
			Body: toWire(c.Body),
		}
		if c.Pattern.Value != nil {
			out[i].Value = toWire(c.Pattern.Value)
		}
	}
	return out
}

func toWire(n Node) *Wire {
	if n == nil {
		return nil
	}
	w := &Wire{K: n.Kind(), ID: uint64(n.ID()), Line: n.Pos().Line, Col: n.Pos().Col}
	switch n := n.(type) {
	case *Literal:
		w.Flag, w.Int, w.Real, w.Str = uint8(n.Lit), n.Int, n.Real, n.Str
		if n.Bool {
			w.Int = 1
		}
	case *Identifier:
		w.Name = n.Name
	case *Block:
		w.Kids = wires(n.Body)
		if n.Scoped {
			w.Flag = 1
		}
	case *Definition:
		w.Flag, w.Name, w.Type = uint8(n.Mut), n.Name, typeText(n.Type)
		w.Kids = wires(single(n.Value))
	case *Declare:
		w.Flag, w.Name, w.Type = uint8(n.Vis), n.Name, typeText(n.Type)
	case *Function:
		w.Flag, w.Name, w.Type = uint8(n.Vis), n.Name, typeText(n.Ret)
		w.Aux = uint64(n.ABI)
		w.Kids = []*Wire{toWire(n.Body)}
		for _, a := range n.Args {
			aw := &Wire{ID: uint64(a.ID()), Line: a.Pos().Line, Col: a.Pos().Col, Name: a.Name, Type: typeText(a.Type)}
			if a.Default != nil {
				aw.Kids = []*Wire{toWire(a.Default)}
			}
			w.Args = append(w.Args, aw)
		}
	case *Invoke:
		w.Kids = wires(append([]Node{n.Func}, n.Args...))
	case *SideEffect:
		w.Name, w.Kids = n.Op, wires(n.Args)
	case *If:
		w.Kids = wires([]Node{n.Cond, n.Then, n.Else})
	case *Match:
		w.Aux, w.Kids, w.Cases = uint64(n.CompID), wires(single(n.Cond)), casesWire(n.Cases)
	case *Try:
		w.Aux, w.Kids, w.Cases = uint64(n.CompID), wires(single(n.Body)), casesWire(n.Cases)
	case *Raise:
		w.Kids = wires(single(n.Value))
	case *While:
		w.Kids = wires([]Node{n.Cond, n.Body})
	case *For:
		w.Name, w.Kids = n.Name, wires([]Node{n.List, n.Body})
	case *Ref:
		w.Kids = wires(single(n.Value))
	case *Deref:
		w.Kids = wires(single(n.Value))
	case *Tuple:
		w.Kids = wires(n.Items)
	case *Record:
		for _, f := range n.Fields {
			w.Fields = append(w.Fields, f.Name)
			w.Kids = append(w.Kids, toWire(f.Value))
		}
	case *List:
		w.Kids = wires(n.Items)
	case *Index:
		w.Kids = wires([]Node{n.Target, n.Index})
	case *Accessor:
		w.Name, w.Aux, w.Kids = n.Field, uint64(n.OID), wires(single(n.Object))
	case *Resolver:
		w.Name, w.Aux, w.Kids = n.Field, uint64(n.OID), wires(single(n.Path))
	case *Assignment:
		w.Kids = wires([]Node{n.Left, n.Right})
	case *New:
		w.Spec = specWire(n.Class)
	case *Class:
		w.Spec, w.Kids = specWire(n.Spec), wires(n.Body)
		if n.Parent != nil {
			w.Parent = specWire(*n.Parent)
		}
	case *TypeAlias:
		w.Spec, w.Type = specWire(n.Spec), typeText(n.Type)
	case *Import:
		w.Name = n.Name
	}
	return w
}

type decoder struct {
	file source.FileID
}

func (d *decoder) base(w *Wire) Base {
	return Base{NodeID: ids.NodeID(w.ID), At: source.Pos{File: d.file, Line: w.Line, Col: w.Col}}
}

func (d *decoder) typ(text string) (types.Type, error) {
	if text == "" {
		return nil, nil
	}
	return types.Parse(text)
}

func (d *decoder) spec(ws *WireSpec, pos source.Pos) (ClassSpec, error) {
	spec := ClassSpec{At: pos, Name: ws.Name}
	for _, p := range ws.Params {
		t, err := types.Parse(p)
		if err != nil {
			return spec, err
		}
		spec.Params = append(spec.Params, t)
	}
	return spec, nil
}

func (d *decoder) nodes(ws []*Wire) ([]Node, error) {
	out := make([]Node, len(ws))
	for i, w := range ws {
		n, err := d.node(w)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// kids decodes exactly n children.
func (d *decoder) kids(w *Wire, n int) ([]Node, error) {
	if len(w.Kids) != n {
		return nil, fmt.Errorf("%s node %d: want %d children, got %d", w.K, w.ID, n, len(w.Kids))
	}
	return d.nodes(w.Kids)
}

func (d *decoder) cases(w *Wire) ([]*Case, error) {
	out := make([]*Case, len(w.Cases))
	for i, wc := range w.Cases {
		pat := &Pattern{
			Base: Base{NodeID: ids.NodeID(wc.ID), At: source.Pos{File: d.file, Line: w.Line, Col: w.Col}},
			Pat:  PatternKind(wc.Pat),
			Name: wc.Name,
		}
		if wc.Value != nil {
			v, err := d.node(wc.Value)
			if err != nil {
				return nil, err
			}
			pat.Value = v
		}
		body, err := d.node(wc.Body)
		if err != nil {
			return nil, err
		}
		out[i] = &Case{Pattern: pat, Body: body}
	}
	return out, nil
}

func (d *decoder) node(w *Wire) (Node, error) {
	if w == nil {
		return nil, fmt.Errorf("missing node")
	}
	b := d.base(w)
	switch w.K {
	case KindLiteral:
		lit := &Literal{Base: b, Lit: LitKind(w.Flag), Int: w.Int, Real: w.Real, Str: w.Str}
		if lit.Lit == LitBool {
			lit.Bool, lit.Int = w.Int != 0, 0
		}
		return lit, nil
	case KindNil:
		return &Nil{Base: b}, nil
	case KindIdentifier:
		return &Identifier{Base: b, Name: w.Name}, nil
	case KindBlock:
		body, err := d.nodes(w.Kids)
		return &Block{Base: b, Body: body, Scoped: w.Flag == 1}, err
	case KindDefinition:
		t, err := d.typ(w.Type)
		if err != nil {
			return nil, err
		}
		def := &Definition{Base: b, Mut: Mutability(w.Flag), Name: w.Name, Type: t}
		if len(w.Kids) > 0 {
			if def.Value, err = d.node(w.Kids[0]); err != nil {
				return nil, err
			}
		}
		return def, nil
	case KindDeclare:
		t, err := d.typ(w.Type)
		return &Declare{Base: b, Vis: Visibility(w.Flag), Name: w.Name, Type: t}, err
	case KindFunction:
		return d.function(w, b)
	case KindInvoke:
		if len(w.Kids) == 0 {
			return nil, fmt.Errorf("invoke node %d without callee", w.ID)
		}
		kids, err := d.nodes(w.Kids)
		if err != nil {
			return nil, err
		}
		return &Invoke{Base: b, Func: kids[0], Args: kids[1:]}, nil
	case KindSideEffect:
		args, err := d.kids(w, 2)
		return &SideEffect{Base: b, Op: w.Name, Args: args}, err
	case KindIf:
		k, err := d.kids(w, 3)
		if err != nil {
			return nil, err
		}
		return &If{Base: b, Cond: k[0], Then: k[1], Else: k[2]}, nil
	case KindMatch, KindTry:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		cases, err := d.cases(w)
		if err != nil {
			return nil, err
		}
		if w.K == KindMatch {
			return &Match{Base: b, Cond: k[0], Cases: cases, CompID: ids.NodeID(w.Aux)}, nil
		}
		return &Try{Base: b, Body: k[0], Cases: cases, CompID: ids.NodeID(w.Aux)}, nil
	case KindRaise:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		return &Raise{Base: b, Value: k[0]}, nil
	case KindWhile:
		k, err := d.kids(w, 2)
		if err != nil {
			return nil, err
		}
		return &While{Base: b, Cond: k[0], Body: k[1]}, nil
	case KindFor:
		k, err := d.kids(w, 2)
		if err != nil {
			return nil, err
		}
		return &For{Base: b, Name: w.Name, List: k[0], Body: k[1]}, nil
	case KindRef, KindDeref:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		if w.K == KindRef {
			return &Ref{Base: b, Value: k[0]}, nil
		}
		return &Deref{Base: b, Value: k[0]}, nil
	case KindTuple:
		items, err := d.nodes(w.Kids)
		return &Tuple{Base: b, Items: items}, err
	case KindRecord:
		if len(w.Fields) != len(w.Kids) {
			return nil, fmt.Errorf("record node %d: %d names for %d values", w.ID, len(w.Fields), len(w.Kids))
		}
		vals, err := d.nodes(w.Kids)
		if err != nil {
			return nil, err
		}
		rec := &Record{Base: b}
		for i, name := range w.Fields {
			rec.Fields = append(rec.Fields, RecordField{Name: name, Value: vals[i]})
		}
		return rec, nil
	case KindList:
		items, err := d.nodes(w.Kids)
		return &List{Base: b, Items: items}, err
	case KindIndex:
		k, err := d.kids(w, 2)
		if err != nil {
			return nil, err
		}
		return &Index{Base: b, Target: k[0], Index: k[1]}, nil
	case KindAccessor:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		return &Accessor{Base: b, Object: k[0], Field: w.Name, OID: ids.NodeID(w.Aux)}, nil
	case KindResolver:
		k, err := d.kids(w, 1)
		if err != nil {
			return nil, err
		}
		return &Resolver{Base: b, Path: k[0], Field: w.Name, OID: ids.NodeID(w.Aux)}, nil
	case KindAssignment:
		k, err := d.kids(w, 2)
		if err != nil {
			return nil, err
		}
		return &Assignment{Base: b, Left: k[0], Right: k[1]}, nil
	case KindNew:
		if w.Spec == nil {
			return nil, fmt.Errorf("new node %d without class", w.ID)
		}
		spec, err := d.spec(w.Spec, b.At)
		return &New{Base: b, Class: spec}, err
	case KindClass:
		return d.class(w, b)
	case KindTypeAlias:
		if w.Spec == nil {
			return nil, fmt.Errorf("alias node %d without name", w.ID)
		}
		spec, err := d.spec(w.Spec, b.At)
		if err != nil {
			return nil, err
		}
		t, err := d.typ(w.Type)
		return &TypeAlias{Base: b, Spec: spec, Type: t}, err
	case KindImport:
		return &Import{Base: b, Name: w.Name}, nil
	}
	return nil, fmt.Errorf("unknown node kind %d", w.K)
}

func (d *decoder) function(w *Wire, b Base) (Node, error) {
	ret, err := d.typ(w.Type)
	if err != nil {
		return nil, err
	}
	body, err := d.kids(w, 1)
	if err != nil {
		return nil, err
	}
	fn := &Function{Base: b, Vis: Visibility(w.Flag), Name: w.Name, Ret: ret, Body: body[0], ABI: types.ABI(w.Aux)}
	for _, aw := range w.Args {
		t, err := d.typ(aw.Type)
		if err != nil {
			return nil, err
		}
		arg := &Argument{Base: d.base(aw), Name: aw.Name, Type: t}
		if len(aw.Kids) > 0 {
			if arg.Default, err = d.node(aw.Kids[0]); err != nil {
				return nil, err
			}
		}
		fn.Args = append(fn.Args, arg)
	}
	return fn, nil
}

func (d *decoder) class(w *Wire, b Base) (Node, error) {
	if w.Spec == nil {
		return nil, fmt.Errorf("class node %d without name", w.ID)
	}
	spec, err := d.spec(w.Spec, b.At)
	if err != nil {
		return nil, err
	}
	cls := &Class{Base: b, Spec: spec}
	if w.Parent != nil {
		parent, err := d.spec(w.Parent, b.At)
		if err != nil {
			return nil, err
		}
		cls.Parent = &parent
	}
	if cls.Body, err = d.nodes(w.Kids); err != nil {
		return nil, err
	}
	return cls, nil
}
