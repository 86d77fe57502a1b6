package ast

import "molten/internal/ids"

// Children returns the direct sub-nodes of n in evaluation order.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Block:
		return n.Body
	case *Definition:
		return single(n.Value)
	case *Function:
		var out []Node
		for _, a := range n.Args {
			if a.Default != nil {
				out = append(out, a.Default)
			}
		}
		return append(out, n.Body)
	case *Invoke:
		return append([]Node{n.Func}, n.Args...)
	case *SideEffect:
		return n.Args
	case *If:
		return []Node{n.Cond, n.Then, n.Else}
	case *Match:
		return append([]Node{n.Cond}, caseNodes(n.Cases)...)
	case *Try:
		return append([]Node{n.Body}, caseNodes(n.Cases)...)
	case *Raise:
		return single(n.Value)
	case *While:
		return []Node{n.Cond, n.Body}
	case *For:
		return []Node{n.List, n.Body}
	case *Ref:
		return single(n.Value)
	case *Deref:
		return single(n.Value)
	case *Tuple:
		return n.Items
	case *Record:
		out := make([]Node, len(n.Fields))
		for i, f := range n.Fields {
			out[i] = f.Value
		}
		return out
	case *List:
		return n.Items
	case *Index:
		return []Node{n.Target, n.Index}
	case *Accessor:
		return single(n.Object)
	case *Resolver:
		return single(n.Path)
	case *Assignment:
		return []Node{n.Left, n.Right}
	case *Class:
		return n.Body
	case *Import:
		return n.Decls
	}
	return nil
}

func single(n Node) []Node {
	if n == nil {
		return nil
	}
	return []Node{n}
}

func caseNodes(cases []*Case) []Node {
	var out []Node
	for _, c := range cases {
		if c.Pattern != nil && c.Pattern.Value != nil {
			out = append(out, c.Pattern.Value)
		}
		out = append(out, c.Body)
	}
	return out
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// MaxID returns the largest id used anywhere in code, including the
// auxiliary ids of accessors, resolvers, patterns and case comparisons.
func MaxID(code []Node) ids.NodeID {
	var max ids.NodeID
	see := func(id ids.NodeID) {
		if id > max {
			max = id
		}
	}
	for _, root := range code {
		Walk(root, func(n Node) bool {
			see(n.ID())
			switch n := n.(type) {
			case *Accessor:
				see(n.OID)
			case *Resolver:
				see(n.OID)
			case *Match:
				see(n.CompID)
				seeCases(n.Cases, see)
			case *Try:
				see(n.CompID)
				seeCases(n.Cases, see)
			case *Function:
				for _, a := range n.Args {
					see(a.ID())
				}
			}
			return true
		})
	}
	return max
}

func seeCases(cases []*Case, see func(ids.NodeID)) {
	for _, c := range cases {
		if c.Pattern != nil {
			see(c.Pattern.ID())
		}
	}
}
