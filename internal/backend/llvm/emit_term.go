package llvm

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"molten/internal/mir"
)

// escape saves an escape point. Its jmp_buf lives in the entry block so
// the point stays addressable from every block of the function; setjmp
// yields 0 now and the raised value when a jump returns here.
func (fe *funcEmitter) escape(e *mir.Escape) (value.Value, error) {
	buf := fe.entry.NewAlloca(jmpBufType)
	point := fe.entry.NewBitCast(buf, types.I8Ptr)
	fe.params[e.ID] = point
	return fe.cur.NewCall(fe.emitter.runtime(rtSetjmp), point), nil
}

// jump longjmps to an escape point. Code after it is unreachable but is
// still emitted into a fresh block, typed as the context expects.
func (fe *funcEmitter) jump(e *mir.Jump) (value.Value, error) {
	point, err := fe.expr(e.Point)
	if err != nil {
		return nil, err
	}
	v, err := fe.expr(e.Value)
	if err != nil {
		return nil, err
	}
	if point, err = fe.convert(point, types.I8Ptr); err != nil {
		return nil, err
	}
	if v, err = fe.convert(v, types.I32); err != nil {
		return nil, err
	}
	fe.cur.NewCall(fe.emitter.runtime(rtLongjmp), point, v)
	fe.cur.NewUnreachable()
	fe.cur = fe.newBlock("dead")

	t, err := fe.emitter.llvmType(e.Type)
	if err != nil {
		return nil, err
	}
	return constant.NewUndef(t), nil
}
