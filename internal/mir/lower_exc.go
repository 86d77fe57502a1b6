package mir

import (
	"molten/internal/ast"
	"molten/internal/defs"
	"molten/internal/ids"
)

// guard saves a new escape point expID and runs body with it as the
// innermost one. When a Jump returns to the point, handler runs instead,
// with the raised value bound to disc.
func (l *lowerer) guard(expID, disc ids.NodeID, t *Type, body, handler func() (Expr, error)) (Expr, error) {
	l.emit(&SetValue{ID: disc, Value: &Escape{ID: expID}})

	l.fr.expoints = append(l.fr.expoints, expID)
	try, err := l.seq(body)
	l.fr.expoints = l.fr.expoints[:len(l.fr.expoints)-1]
	if err != nil {
		return nil, err
	}
	catch, err := l.seq(handler)
	if err != nil {
		return nil, err
	}
	normal := &Cmp{Op: CmpEq, Left: &GetValue{ID: disc}, Right: IntLit(0)}
	return &Phi{
		Type:   t,
		Conds:  [][]Expr{{normal}, {BoolLit(true)}},
		Blocks: [][]Expr{try, catch},
	}, nil
}

// try dispatches a raised value over the cases of n. A value no case
// accepts is raised again to the enclosing escape point.
func (l *lowerer) try(n *ast.Try) (Expr, error) {
	t := l.typeOf(n)
	expID, disc := l.sess.NextID(), l.sess.NextID()
	return l.guard(expID, disc, t, func() (Expr, error) {
		return l.valueOrUnit(n.Body, t)
	}, func() (Expr, error) {
		raised := &GetValue{ID: disc}
		phi, err := l.cases(n.Cases, n.CompID, raised, Int, t)
		if err != nil {
			return nil, err
		}
		if !exhaustive(n.Cases) {
			outer, err := l.exception(n)
			if err != nil {
				return nil, err
			}
			phi.Conds = append(phi.Conds, []Expr{BoolLit(true)})
			phi.Blocks = append(phi.Blocks, []Expr{&Jump{Point: outer, Value: raised, Type: t}})
		}
		return phi, nil
	})
}

func (l *lowerer) raise(n *ast.Raise) (Expr, error) {
	v, err := l.valueAs(n.Value, Int)
	if err != nil {
		return nil, err
	}
	point, err := l.exception(n)
	if err != nil {
		return nil, err
	}
	return &Jump{Point: point, Value: v, Type: l.typeOf(n)}, nil
}

// match yields the zero value of its type when no case applies.
func (l *lowerer) match(n *ast.Match) (Expr, error) {
	cv, err := l.expr(n.Cond)
	if err != nil {
		return nil, err
	}
	cv = l.spill(cv)
	t := l.typeOf(n)
	phi, err := l.cases(n.Cases, n.CompID, cv, l.typeOf(n.Cond), t)
	if err != nil {
		return nil, err
	}
	if !exhaustive(n.Cases) {
		phi.Conds = append(phi.Conds, []Expr{BoolLit(true)})
		phi.Blocks = append(phi.Blocks, []Expr{ZeroLit(t)})
	}
	return phi, nil
}

func exhaustive(cases []*ast.Case) bool {
	for _, c := range cases {
		if c.Pattern.Pat != ast.PatLiteral {
			return true
		}
	}
	return false
}

// cases tests cv of type ct against each pattern in order. Binding
// patterns declare their name in the case scope.
func (l *lowerer) cases(cases []*ast.Case, compID ids.NodeID, cv Expr, ct, t *Type) (*Phi, error) {
	phi := &Phi{Type: t}
	for _, c := range cases {
		p := c.Pattern
		cond := []Expr{BoolLit(true)}
		if p.Pat == ast.PatLiteral {
			var err error
			cond, err = l.seq(func() (Expr, error) { return l.compare(p, compID, cv, ct) })
			if err != nil {
				return nil, err
			}
		}
		block, err := l.seq(func() (Expr, error) {
			return l.inScope(l.sess.Scopes.Get(p.ID()), func() (Expr, error) {
				if p.Pat == ast.PatBinding {
					bt := l.defType(p.ID())
					l.emit(&DefLocal{ID: p.ID(), Name: p.Name, Type: bt, Value: coerce(cv, ct, bt)})
					l.fr.locals[p.ID()] = true
				}
				return l.valueOrUnit(c.Body, t)
			})
		})
		if err != nil {
			return nil, err
		}
		phi.Conds = append(phi.Conds, cond)
		phi.Blocks = append(phi.Blocks, block)
	}
	return phi, nil
}

// compare tests cv against the literal of p with the "==" variant the
// checker selected for the match.
func (l *lowerer) compare(p *ast.Pattern, compID ids.NodeID, cv Expr, ct *Type) (Expr, error) {
	d, err := l.sess.RefDef(compID)
	if err != nil {
		return nil, structural(p.Pos(), "%v", err)
	}
	if _, ok := d.(*defs.Overload); ok {
		return nil, structural(p.Pos(), "comparison of %s was not resolved", d.DefName())
	}
	ft, ok := l.resolvedFunc(d.DefID())
	if !ok || len(ft.Args) != 2 {
		return nil, structural(p.Pos(), "%s is not a comparison", d.DefName())
	}
	sig := l.funcSig(ft)
	left := coerce(cv, ct, sig.Items[0])
	right, err := l.valueAs(p.Value, sig.Items[1])
	if err != nil {
		return nil, err
	}
	if bf, ok := l.reg.Lookup(d.DefID()); ok && !bf.External() {
		return coerce(&Builtin{Op: bf.Op, Args: []Expr{left, right}}, sig.Ret, Bool), nil
	}
	fv, _, err := l.valueOf(p.Pos(), d)
	if err != nil {
		return nil, err
	}
	v, err := l.apply(p, fv, ft, []Expr{left, right})
	if err != nil {
		return nil, err
	}
	return coerce(v, sig.Ret, Bool), nil
}
