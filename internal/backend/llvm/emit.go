// Package llvm generates LLVM IR for lowered modules.
package llvm

import (
	"context"
	"fmt"
	"io"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"molten/internal/backend"
	"molten/internal/ids"
	"molten/internal/mir"
	"molten/internal/trace"
)

// Options configures code generation.
type Options struct {
	// NoGC allocates with malloc and free instead of the Boehm collector.
	NoGC bool
	// Triple is the target triple; empty means DefaultTriple.
	Triple string
	Tracer trace.Tracer
}

const DefaultTriple = "x86_64-pc-linux-gnu"

// Emitter builds one LLVM module. It implements backend.Service.
type Emitter struct {
	opts   Options
	tracer trace.Tracer
	mod    *ir.Module
	name   string

	structs map[ids.NodeID]*types.StructType
	globals map[ids.NodeID]*ir.Global
	funcs   map[ids.NodeID]value.Value
	defined map[ids.NodeID]*ir.Func
	cfuncs  map[string]*ir.Func
	cglobs  map[string]*ir.Global
	strs    map[string]*ir.Global

	fe *funcEmitter
}

var _ backend.Service = (*Emitter)(nil)

func New(opts Options) *Emitter {
	if opts.Triple == "" {
		opts.Triple = DefaultTriple
	}
	e := &Emitter{opts: opts, tracer: opts.Tracer}
	if e.tracer == nil {
		e.tracer = trace.Nop
	}
	return e
}

// EmitModule generates the textual IR of m.
func EmitModule(ctx context.Context, m *mir.Module, opts Options) (string, error) {
	e := New(opts)
	if err := backend.Emit(ctx, e, m); err != nil {
		return "", err
	}
	return e.mod.String(), nil
}

// Module returns the module built so far.
func (e *Emitter) Module() *ir.Module { return e.mod }

// WriteTo writes the textual IR of the module to w.
func (e *Emitter) WriteTo(w io.Writer) (int64, error) {
	if e.mod == nil {
		return 0, fmt.Errorf("no module")
	}
	return e.mod.WriteTo(w)
}

func (e *Emitter) BeginModule(name string) error {
	e.mod = ir.NewModule()
	e.mod.SourceFilename = name
	e.mod.TargetTriple = e.opts.Triple
	e.name = name
	e.structs = make(map[ids.NodeID]*types.StructType)
	e.globals = make(map[ids.NodeID]*ir.Global)
	e.funcs = make(map[ids.NodeID]value.Value)
	e.defined = make(map[ids.NodeID]*ir.Func)
	e.cfuncs = make(map[string]*ir.Func)
	e.cglobs = make(map[string]*ir.Global)
	e.strs = make(map[string]*ir.Global)
	return nil
}

// DeclareType fills in the body of a named struct. The struct may already
// exist as an opaque placeholder if another type referred to it first.
func (e *Emitter) DeclareType(s *mir.Struct) error {
	st := e.namedStruct(s.ID, s.Name)
	fields := make([]types.Type, len(s.Fields))
	for i, f := range s.Fields {
		t, err := e.llvmType(f)
		if err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
		fields[i] = t
	}
	st.Fields = fields
	st.Opaque = false
	return nil
}

func (e *Emitter) DeclareGlobal(g *mir.Global) error {
	t, err := e.llvmType(g.Type)
	if err != nil {
		return err
	}
	if g.External {
		glob := e.mod.NewGlobal(g.Name, t)
		glob.Linkage = enum.LinkageExternal
		e.globals[g.ID] = glob
		return nil
	}
	e.globals[g.ID] = e.mod.NewGlobalDef(g.Name, zeroValue(t))
	return nil
}

// DeclareExtern declares a C function. Functions returning unit are
// declared void.
func (e *Emitter) DeclareExtern(x *mir.Extern) error {
	sig, err := e.funcType(x.Type)
	if err != nil {
		return err
	}
	if x.Type.Ret == nil || x.Type.Ret.Kind == mir.TypeUnit {
		sig = types.NewFunc(types.Void, sig.Params...)
	}
	e.funcs[x.ID] = e.cfunc(x.Name, sig)
	return nil
}

func (e *Emitter) DeclareFunc(f *mir.Func) error {
	sig, err := e.funcType(f.Type)
	if err != nil {
		return err
	}
	if isEntry(f) {
		sig = types.NewFunc(types.I32)
	}
	if len(sig.Params) != len(f.Params) {
		return fmt.Errorf("signature has %d parameters, function %d", len(sig.Params), len(f.Params))
	}
	params := make([]*ir.Param, len(f.Params))
	used := make(map[string]bool, len(f.Params))
	for i, p := range f.Params {
		name := p.Name
		if used[name] {
			name = ""
		}
		used[name] = true
		params[i] = ir.NewParam(name, sig.Params[i])
	}
	fn := e.mod.NewFunc(f.Name, sig.RetType, params...)
	if !f.Public && isWrapper(f) {
		fn.Linkage = enum.LinkageLinkOnceODR
	}
	e.funcs[f.ID] = fn
	e.defined[f.ID] = fn
	return nil
}

func (e *Emitter) DefineFunc(f *mir.Func) error {
	fn, ok := e.defined[f.ID]
	if !ok {
		return fmt.Errorf("function %s was not declared", f.Name)
	}
	trace.Point(e.tracer, trace.ScopeNode, "llvm_func", f.Name)
	e.fe = newFuncEmitter(e, f, fn)
	if isEntry(f) && !e.opts.NoGC {
		e.fe.cur.NewCall(e.runtime(rtGCInit))
	}
	return nil
}

func (e *Emitter) EmitExpr(x mir.Expr) error {
	if e.fe == nil {
		return fmt.Errorf("expression outside a function")
	}
	v, err := e.fe.expr(x)
	if err != nil {
		return err
	}
	e.fe.last = v
	return nil
}

func (e *Emitter) FinishFunc() error {
	if e.fe == nil {
		return fmt.Errorf("no function is being defined")
	}
	err := e.fe.finish()
	e.fe = nil
	return err
}

// FinalizeModule checks that every named struct got a body.
func (e *Emitter) FinalizeModule(m *mir.Module) error {
	for id, st := range e.structs {
		if st.Opaque {
			return fmt.Errorf("struct %%%s (%s) was referenced but never declared", st.Name(), id)
		}
	}
	return nil
}

// cfunc returns the C function name called with signature sig, declaring
// it on first use. A function already declared with another signature is
// reinterpreted.
func (e *Emitter) cfunc(name string, sig *types.FuncType) value.Value {
	fn, ok := e.cfuncs[name]
	if !ok {
		params := make([]*ir.Param, len(sig.Params))
		for i, t := range sig.Params {
			params[i] = ir.NewParam("", t)
		}
		fn = e.mod.NewFunc(name, sig.RetType, params...)
		fn.Sig.Variadic = sig.Variadic
		e.cfuncs[name] = fn
		return fn
	}
	if fn.Sig.Equal(sig) {
		return fn
	}
	return constant.NewBitCast(fn, types.NewPointer(sig))
}

// cglobal returns the external C global name of type t.
func (e *Emitter) cglobal(name string, t types.Type) *ir.Global {
	if g, ok := e.cglobs[name]; ok {
		return g
	}
	g := e.mod.NewGlobal(name, t)
	g.Linkage = enum.LinkageExternal
	e.cglobs[name] = g
	return g
}

// stringConst returns a pointer to the NUL-terminated bytes of s.
func (e *Emitter) stringConst(s string) constant.Constant {
	g, ok := e.strs[s]
	if !ok {
		data := constant.NewCharArrayFromString(s + "\x00")
		g = e.mod.NewGlobalDef(fmt.Sprintf("str.%d", len(e.strs)), data)
		g.Linkage = enum.LinkagePrivate
		g.Immutable = true
		e.strs[s] = g
	}
	zero := constant.NewInt(types.I32, 0)
	return constant.NewGetElementPtr(g.ContentType, g, zero, zero)
}

// isEntry reports whether f is the program entry point, which returns a
// C int.
func isEntry(f *mir.Func) bool {
	return f.Name == "main" && f.Public && len(f.Params) == 0
}

// isWrapper reports whether f implements a builtin used as a value; every
// module that needs one carries its own copy.
func isWrapper(f *mir.Func) bool {
	const prefix = "builtin."
	return len(f.Name) > len(prefix) && f.Name[:len(prefix)] == prefix
}
