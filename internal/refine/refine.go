// Package refine desugars the parsed tree into the smaller core the binder
// and checker work on: for-loops, list literals, indexing, object creation
// and class initialisers are rewritten into plain calls, blocks and loops.
package refine

import (
	"cmp"
	"fmt"
	"slices"

	"molten/internal/ast"
	"molten/internal/diag"
)

// Names the rewrites rely on.
const (
	InitName  = "__init__"
	IndexName = "[]"
	SelfName  = "self"
)

// Refine returns the refined form of code. Nodes that need no rewriting
// are reused; new nodes take fresh ids from b.
func Refine(b *ast.Builder, code []ast.Node) ([]ast.Node, error) {
	r := &refiner{b: b}
	return r.nodes(code)
}

type refiner struct {
	b *ast.Builder
}

func (r *refiner) nodes(code []ast.Node) ([]ast.Node, error) {
	out := make([]ast.Node, 0, len(code))
	for _, n := range code {
		rn, err := r.node(n)
		if err != nil {
			return nil, err
		}
		out = append(out, rn)
	}
	return out, nil
}

func (r *refiner) opt(n ast.Node) (ast.Node, error) {
	if n == nil {
		return nil, nil
	}
	return r.node(n)
}

func (r *refiner) node(n ast.Node) (ast.Node, error) {
	var err error
	switch n := n.(type) {
	case *ast.Block:
		if len(n.Body) == 0 {
			n.Body = []ast.Node{r.b.At(n.Pos()).Unit()}
		}
		n.Body, err = r.nodes(n.Body)
		return n, err

	case *ast.Definition:
		n.Value, err = r.opt(n.Value)
		return n, err

	case *ast.Function:
		for _, a := range n.Args {
			if a.Default, err = r.opt(a.Default); err != nil {
				return nil, err
			}
		}
		n.Body, err = r.node(n.Body)
		return n, err

	case *ast.Invoke:
		if n.Func, err = r.node(n.Func); err != nil {
			return nil, err
		}
		n.Args, err = r.nodes(n.Args)
		return n, err

	case *ast.SideEffect:
		n.Args, err = r.nodes(n.Args)
		return n, err

	case *ast.If:
		if n.Else == nil {
			n.Else = r.b.At(n.Pos()).Unit()
		}
		if n.Cond, err = r.node(n.Cond); err != nil {
			return nil, err
		}
		if n.Then, err = r.node(n.Then); err != nil {
			return nil, err
		}
		n.Else, err = r.node(n.Else)
		return n, err

	case *ast.Match:
		if n.Cond, err = r.node(n.Cond); err != nil {
			return nil, err
		}
		return n, r.cases(n.Cases)

	case *ast.Try:
		if n.Body, err = r.node(n.Body); err != nil {
			return nil, err
		}
		return n, r.cases(n.Cases)

	case *ast.Raise:
		n.Value, err = r.node(n.Value)
		return n, err

	case *ast.While:
		if n.Cond, err = r.node(n.Cond); err != nil {
			return nil, err
		}
		n.Body, err = r.node(n.Body)
		return n, err

	case *ast.For:
		return r.forLoop(n)

	case *ast.Ref:
		n.Value, err = r.node(n.Value)
		return n, err

	case *ast.Deref:
		n.Value, err = r.node(n.Value)
		return n, err

	case *ast.Tuple:
		n.Items, err = r.nodes(n.Items)
		return n, err

	case *ast.Record:
		slices.SortStableFunc(n.Fields, func(a, b ast.RecordField) int { return cmp.Compare(a.Name, b.Name) })
		for i := range n.Fields {
			if n.Fields[i].Value, err = r.node(n.Fields[i].Value); err != nil {
				return nil, err
			}
		}
		return n, nil

	case *ast.List:
		return r.list(n)

	case *ast.Index:
		b := r.b.At(n.Pos())
		return r.node(b.Call(b.Access(n.Target, IndexName), n.Index))

	case *ast.New:
		b := r.b.At(n.Pos())
		return b.Call(b.Resolve(n.Class.Name, InitName), n), nil

	case *ast.Class:
		return r.class(n)

	case *ast.Resolver:
		if _, ok := n.Path.(*ast.Identifier); !ok {
			return nil, diag.Errorf(diag.SynInvalidResolver, n.Pos(), "left-hand side of :: must name a class")
		}
		return n, nil

	case *ast.Accessor:
		n.Object, err = r.node(n.Object)
		return n, err

	case *ast.Assignment:
		return r.assignment(n)

	case *ast.Literal, *ast.Nil, *ast.Identifier, *ast.Declare, *ast.TypeAlias, *ast.Import:
		return n, nil
	}
	return nil, diag.Errorf(diag.InternalInvariant, n.Pos(), "refine: unexpected node %T", n)
}

func (r *refiner) cases(cases []*ast.Case) error {
	var err error
	for _, c := range cases {
		if c.Pattern != nil && c.Pattern.Value != nil {
			if c.Pattern.Value, err = r.node(c.Pattern.Value); err != nil {
				return err
			}
		}
		if c.Body, err = r.node(c.Body); err != nil {
			return err
		}
	}
	return nil
}

func (r *refiner) assignment(n *ast.Assignment) (ast.Node, error) {
	var err error
	switch left := n.Left.(type) {
	case *ast.Index:
		b := r.b.At(n.Pos())
		return r.node(b.Call(b.Access(left.Target, IndexName), left.Index, n.Right))
	case *ast.Identifier, *ast.Deref, *ast.Accessor:
		if n.Left, err = r.node(n.Left); err != nil {
			return nil, err
		}
		n.Right, err = r.node(n.Right)
		return n, err
	}
	return nil, diag.Errorf(diag.SynInvalidTarget, n.Pos(), "cannot assign to %s", n.Left.Kind())
}

// forLoop rewrites "for x in list body" into an indexed while loop over
// list.len() and list.get(i).
func (r *refiner) forLoop(n *ast.For) (ast.Node, error) {
	list, err := r.node(n.List)
	if err != nil {
		return nil, err
	}
	body, err := r.node(n.Body)
	if err != nil {
		return nil, err
	}
	b := r.b.At(n.Pos())
	listName := fmt.Sprintf("__list%d", uint64(n.ID()))
	iterName := fmt.Sprintf("__iter%d", uint64(n.ID()))

	cond := b.Block(b.Op("<", b.Ident(iterName), b.Method(b.Ident(listName), "len")))
	loop := b.Block(
		b.Let(n.Name, b.Method(b.Ident(listName), "get", b.Ident(iterName))),
		body,
		b.Assign(b.Ident(iterName), b.Op("+", b.Ident(iterName), b.Int(1))),
	)
	return b.ScopedBlock(
		b.LetMut(listName, list),
		b.LetMut(iterName, b.Int(0)),
		&ast.While{Base: ast.Base{NodeID: n.ID(), At: n.Pos()}, Cond: cond, Body: loop},
	), nil
}

// list rewrites a list literal into a buffer filled item by item.
func (r *refiner) list(n *ast.List) (ast.Node, error) {
	items, err := r.nodes(n.Items)
	if err != nil {
		return nil, err
	}
	b := r.b.At(n.Pos())
	name := fmt.Sprintf("__buf%d", uint64(n.ID()))
	body := []ast.Node{b.Let(name, b.Op("bufalloc", b.Int(int64(len(items)))))}
	for i, item := range items {
		body = append(body, b.Op("bufset", b.Ident(name), b.Int(int64(i)), item))
	}
	body = append(body, b.Ident(name))
	return b.ScopedBlock(body...), nil
}

// class gives every class an __init__(self) unless one is declared. The
// synthesised initialiser calls the parent's, assigns each field its
// default and returns self. Field definitions keep only their type.
func (r *refiner) class(n *ast.Class) (ast.Node, error) {
	hasInit := false
	for _, node := range n.Body {
		switch d := node.(type) {
		case *ast.Function:
			hasInit = hasInit || d.Name == InitName
		case *ast.Declare:
			hasInit = hasInit || d.Name == InitName
		}
	}

	if !hasInit {
		b := r.b.At(n.Pos())
		var init []ast.Node
		if n.Parent != nil {
			init = append(init, b.Call(b.Resolve(n.Parent.Name, InitName), b.Ident(SelfName)))
		}
		for _, node := range n.Body {
			if d, ok := node.(*ast.Definition); ok && d.Value != nil {
				init = append(init, b.Assign(b.Access(b.Ident(SelfName), d.Name), d.Value))
			}
		}
		init = append(init, b.Ident(SelfName))
		n.Body = append(n.Body, b.Fn(InitName, []*ast.Argument{b.Arg(SelfName, nil)}, b.Block(init...)))
	}
	for _, node := range n.Body {
		if d, ok := node.(*ast.Definition); ok {
			d.Value = nil
		}
	}

	body, err := r.nodes(n.Body)
	if err != nil {
		return nil, err
	}
	n.Body = body
	return n, nil
}
