package vm

import (
	"molten/internal/ids"
	"molten/internal/mir"
)

// Frame represents a function activation record on the call stack.
type Frame struct {
	Func   *mir.Func
	callee *callee
	values map[ids.NodeID]Value // parameters, SetValue bindings and escape points
	locals map[ids.NodeID]Value
	seqs   []*sequence // sequences being executed, innermost last
}

// newFrame creates a new frame for executing the given function.
func newFrame(c *callee) *Frame {
	return &Frame{
		Func:   c.fn,
		callee: c,
		values: make(map[ids.NodeID]Value, len(c.fn.Params)),
		locals: make(map[ids.NodeID]Value),
	}
}

func (f *Frame) module() *module { return f.callee.mod }

// innermost returns the sequence currently executing in f.
func (f *Frame) innermost() *sequence {
	if len(f.seqs) == 0 {
		return nil
	}
	return f.seqs[len(f.seqs)-1]
}
