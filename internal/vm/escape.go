package vm

import (
	"molten/internal/ids"
	"molten/internal/mir"
)

// sequence is one executing list of expressions. Escape points saved while
// a statement of the sequence runs belong to it: a jump to one of them
// unwinds the Go stack back to the sequence, which restarts at that
// statement.
type sequence struct {
	stmt   int
	points map[ids.NodeID]*escapePoint
}

// escapePoint is the runtime form of a saved escape point.
type escapePoint struct {
	owner   *sequence
	stmt    int
	live    bool
	pending bool
	value   int64
}

// unwind is the panic value carrying a jump to its point.
type unwind struct {
	point *escapePoint
	value int64
}

func (s *sequence) close() {
	for _, p := range s.points {
		p.live = false
	}
}

// execSeq runs body and yields the value of its last expression.
func (vm *VM) execSeq(fr *Frame, body []mir.Expr) (Value, *VMError) {
	s := &sequence{}
	fr.seqs = append(fr.seqs, s)
	defer func() {
		fr.seqs = fr.seqs[:len(fr.seqs)-1]
		s.close()
	}()

	last := MakeUnit()
	for s.stmt = 0; s.stmt < len(body); s.stmt++ {
		v, resumed, vmErr := vm.execStmt(fr, s, body[s.stmt])
		if vmErr != nil {
			return Value{}, vmErr
		}
		if resumed != nil {
			s.stmt = resumed.stmt - 1
			continue
		}
		last = v
	}
	return last, nil
}

// execStmt evaluates one statement of s. A jump to an escape point owned
// by s stops the statement and reports the point to resume at.
func (vm *VM) execStmt(fr *Frame, s *sequence, e mir.Expr) (v Value, resumed *escapePoint, vmErr *VMError) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		u, ok := r.(*unwind)
		if !ok || u.point.owner != s {
			panic(r)
		}
		u.point.pending, u.point.value = true, u.value
		v, resumed, vmErr = Value{}, u.point, nil
	}()
	v, vmErr = vm.eval(fr, e)
	return v, nil, vmErr
}

// escape saves the escape point id in the innermost sequence of fr, or
// resumes it after a jump. It yields 0 when saved and the jump value when
// resumed.
func (vm *VM) escape(fr *Frame, id ids.NodeID) Value {
	s := fr.innermost()
	if s.points == nil {
		s.points = make(map[ids.NodeID]*escapePoint)
	}
	p, ok := s.points[id]
	if ok && p.pending {
		p.pending = false
		fr.values[id] = Value{Kind: VKEscape, Esc: p}
		return MakeInt(p.value)
	}
	p = &escapePoint{owner: s, stmt: s.stmt, live: true}
	s.points[id] = p
	fr.values[id] = Value{Kind: VKEscape, Esc: p}
	return MakeInt(0)
}

// jump transfers control to the escape point in point. A zero value is
// raised as 1 so the point can tell it from the first return.
func (vm *VM) jump(point Value, value int64) *VMError {
	if point.Kind != VKEscape {
		return vm.eb.typeMismatch("escape", point.Kind.String())
	}
	if !point.Esc.live {
		return vm.eb.deadEscape()
	}
	if value == 0 {
		value = 1
	}
	panic(&unwind{point: point.Esc, value: value})
}

// guarded calls fn with a fresh escape point. A jump to it ends the call
// and is reported through raised and code.
func (vm *VM) guarded(fn func(exc Value) (Value, *VMError)) (v Value, raised bool, code int64, vmErr *VMError) {
	p := &escapePoint{owner: &sequence{}, live: true}
	depth := len(vm.stack)
	defer func() {
		p.live = false
		r := recover()
		if r == nil {
			return
		}
		u, ok := r.(*unwind)
		if !ok || u.point != p {
			panic(r)
		}
		vm.stack = vm.stack[:depth]
		v, raised, code, vmErr = Value{}, true, u.value, nil
	}()
	v, vmErr = fn(Value{Kind: VKEscape, Esc: p})
	return v, false, 0, vmErr
}
