package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"molten/internal/ids"
	"molten/internal/mir"
)

// slot is a stack cell in the entry block.
type slot struct {
	ptr *ir.InstAlloca
	typ types.Type
}

type funcEmitter struct {
	emitter *Emitter
	f       *mir.Func
	fn      *ir.Func

	// entry holds the allocas and branches to the first body block when
	// the function is finished.
	entry  *ir.Block
	body   *ir.Block
	cur    *ir.Block
	blocks int

	params map[ids.NodeID]value.Value
	values map[ids.NodeID]*slot
	locals map[ids.NodeID]*slot
	last   value.Value
}

func newFuncEmitter(e *Emitter, f *mir.Func, fn *ir.Func) *funcEmitter {
	fe := &funcEmitter{
		emitter: e,
		f:       f,
		fn:      fn,
		params:  make(map[ids.NodeID]value.Value, len(f.Params)),
		values:  make(map[ids.NodeID]*slot),
		locals:  make(map[ids.NodeID]*slot),
	}
	fe.entry = fn.NewBlock("entry")
	fe.body = fe.newBlock("body")
	fe.cur = fe.body
	for i, p := range f.Params {
		fe.params[p.ID] = fn.Params[i]
	}
	return fe
}

func (fe *funcEmitter) newBlock(prefix string) *ir.Block {
	fe.blocks++
	return fe.fn.NewBlock(fmt.Sprintf("%s.%d", prefix, fe.blocks))
}

// alloca reserves a stack cell of type t in the entry block.
func (fe *funcEmitter) alloca(t types.Type) *slot {
	return &slot{ptr: fe.entry.NewAlloca(t), typ: t}
}

// finish returns the value of the last expression.
func (fe *funcEmitter) finish() error {
	ret := fe.fn.Sig.RetType
	v := fe.last
	if v == nil {
		v = zeroValue(ret)
	}
	if types.IsVoid(ret) {
		fe.cur.NewRet(nil)
	} else {
		rv, err := fe.convert(v, ret)
		if err != nil {
			return fmt.Errorf("result: %w", err)
		}
		fe.cur.NewRet(rv)
	}
	fe.entry.NewBr(fe.body)
	return nil
}

// seq emits a sequence and yields the value of its last expression; an
// empty sequence yields unit.
func (fe *funcEmitter) seq(es []mir.Expr) (value.Value, error) {
	var v value.Value = constant.False
	for _, e := range es {
		var err error
		if v, err = fe.expr(e); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (fe *funcEmitter) exprs(es []mir.Expr) ([]value.Value, error) {
	out := make([]value.Value, len(es))
	for i, e := range es {
		v, err := fe.expr(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// lookup resolves a value id: a parameter or escape point, a SetValue
// result, or a function of the module.
func (fe *funcEmitter) lookup(id ids.NodeID) (value.Value, error) {
	if v, ok := fe.params[id]; ok {
		return v, nil
	}
	if s, ok := fe.values[id]; ok {
		return fe.cur.NewLoad(s.typ, s.ptr), nil
	}
	if v, ok := fe.emitter.funcs[id]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("unbound value %s", id)
}

// bind stores v as the value of id. Values live in stack cells so that a
// binding made in one branch is readable wherever the id is in scope.
func (fe *funcEmitter) bind(id ids.NodeID, v value.Value) error {
	s, ok := fe.values[id]
	if !ok {
		if types.IsVoid(v.Type()) {
			v = constant.False
		}
		s = fe.alloca(v.Type())
		fe.values[id] = s
	}
	cv, err := fe.convert(v, s.typ)
	if err != nil {
		return err
	}
	fe.cur.NewStore(cv, s.ptr)
	return nil
}
