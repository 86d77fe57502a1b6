package vm

import (
	"bufio"
	"context"

	"fortio.org/safecast"

	"molten/internal/backend"
	"molten/internal/ids"
	"molten/internal/mir"
	"molten/internal/trace"
)

// Options configures VM execution.
type Options struct {
	// MaxDepth bounds the call stack; zero means DefaultMaxDepth.
	MaxDepth int
	Tracer   trace.Tracer
}

// DefaultMaxDepth is the call depth limit used when Options leaves it unset.
const DefaultMaxDepth = 100000

// callee is a function of a loaded module, or an external function the VM
// implements itself.
type callee struct {
	name string
	mod  *module
	fn   *mir.Func
	body []mir.Expr
	ext  externFunc
}

// module is a loaded mir.Module.
type module struct {
	name    string
	src     *mir.Module
	structs map[ids.NodeID]*mir.Struct
	globals map[ids.NodeID]*Value
	funcs   map[ids.NodeID]*callee
	externs map[ids.NodeID]*mir.Extern
	linked  map[ids.NodeID]*callee
}

// VM interprets lowered modules. It implements backend.Service: modules
// are loaded by emitting them into the VM, imported units first, and the
// last module with a main entry point is the program.
type VM struct {
	RT       Runtime
	Heap     *Heap
	ExitCode int

	opts    Options
	tracer  trace.Tracer
	ctx     context.Context
	stdin   *bufio.Reader
	modules []*module
	funcs   map[string]*callee
	globals map[string]*Value
	stack   []*Frame
	eb      *errorBuilder

	cur   *module
	curFn *callee
}

var _ backend.Service = (*VM)(nil)

// New creates a VM without any module loaded.
func New(rt Runtime, opts Options) *VM {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	vm := &VM{
		RT:      rt,
		Heap:    &Heap{},
		opts:    opts,
		tracer:  opts.Tracer,
		ctx:     context.Background(),
		stdin:   bufio.NewReader(rt.Stdin()),
		funcs:   make(map[string]*callee),
		globals: make(map[string]*Value),
	}
	if vm.tracer == nil {
		vm.tracer = trace.Nop
	}
	vm.eb = &errorBuilder{vm: vm}
	return vm
}

// Load emits m into the VM.
func (vm *VM) Load(ctx context.Context, m *mir.Module) error {
	return backend.Emit(ctx, vm, m)
}

func (vm *VM) BeginModule(name string) error {
	vm.cur = &module{
		name:    name,
		structs: make(map[ids.NodeID]*mir.Struct),
		globals: make(map[ids.NodeID]*Value),
		funcs:   make(map[ids.NodeID]*callee),
		externs: make(map[ids.NodeID]*mir.Extern),
		linked:  make(map[ids.NodeID]*callee),
	}
	return nil
}

func (vm *VM) DeclareType(s *mir.Struct) error {
	vm.cur.structs[s.ID] = s
	return nil
}

// DeclareGlobal creates the cell of a global. External globals share the
// cell of the global of that name in a module loaded earlier.
func (vm *VM) DeclareGlobal(g *mir.Global) error {
	if g.External {
		if cell, ok := vm.globals[g.Name]; ok {
			vm.cur.globals[g.ID] = cell
		}
		return nil
	}
	cell := zeroOf(g.Type)
	vm.cur.globals[g.ID] = &cell
	if _, ok := vm.globals[g.Name]; !ok {
		vm.globals[g.Name] = &cell
	}
	return nil
}

func (vm *VM) DeclareExtern(e *mir.Extern) error {
	vm.cur.externs[e.ID] = e
	return nil
}

func (vm *VM) DeclareFunc(f *mir.Func) error {
	c := &callee{name: f.Name, mod: vm.cur, fn: f}
	vm.cur.funcs[f.ID] = c
	if _, ok := vm.funcs[f.Name]; f.Public && !ok {
		vm.funcs[f.Name] = c
	}
	return nil
}

func (vm *VM) DefineFunc(f *mir.Func) error {
	vm.curFn = vm.cur.funcs[f.ID]
	vm.curFn.body = vm.curFn.body[:0]
	return nil
}

func (vm *VM) EmitExpr(e mir.Expr) error {
	vm.curFn.body = append(vm.curFn.body, e)
	return nil
}

func (vm *VM) FinishFunc() error {
	vm.curFn = nil
	return nil
}

func (vm *VM) FinalizeModule(m *mir.Module) error {
	vm.cur.src = m
	vm.modules = append(vm.modules, vm.cur)
	trace.Point(vm.tracer, trace.ScopeUnit, "vm_load", m.Name)
	vm.cur = nil
	return nil
}

// Run executes main of the program and records its status as the exit
// code.
func (vm *VM) Run(ctx context.Context) *VMError {
	span := trace.Begin(vm.tracer, trace.ScopePass, "vm_run", trace.CurrentSpan(ctx))
	defer span.End("")

	vm.ctx = ctx
	var root *module
	for _, m := range vm.modules {
		if m.src.Main.IsValid() {
			root = m
		}
	}
	if root == nil {
		return vm.eb.unresolved("function", "main")
	}
	v, vmErr := vm.invoke(root.funcs[root.src.Main], nil)
	if vmErr != nil {
		return vmErr
	}
	code, err := safecast.Conv[int](v.Int)
	if err != nil {
		code = -1
	}
	vm.ExitCode = code
	vm.RT.Exit(code)
	return nil
}

// Init runs the initialiser of the loaded module name inside an escape
// point. An exception it does not catch is reported as PanicUncaught.
func (vm *VM) Init(ctx context.Context, name string) *VMError {
	_, vmErr := vm.Call(ctx, mir.RunName(name))
	return vmErr
}

// Call calls the function name with args. When the function takes an
// escape point after them, Call supplies one and reports an exception
// reaching it as PanicUncaught.
func (vm *VM) Call(ctx context.Context, name string, args ...Value) (Value, *VMError) {
	vm.ctx = ctx
	c := vm.lookup(name)
	if c == nil {
		return Value{}, vm.eb.unresolved("function", name)
	}
	params := c.fn.Params
	if len(params) != len(args)+1 || params[len(params)-1].Type.Kind != mir.TypeEscape {
		return vm.invoke(c, args)
	}
	v, raised, code, vmErr := vm.guarded(func(exc Value) (Value, *VMError) {
		return vm.invoke(c, append(args, exc))
	})
	if vmErr != nil {
		return Value{}, vmErr
	}
	if raised {
		return Value{}, vm.eb.uncaught(code)
	}
	return v, nil
}

// lookup finds a function by name: public functions first, then any
// function of the most recently loaded module defining it.
func (vm *VM) lookup(name string) *callee {
	if c, ok := vm.funcs[name]; ok {
		return c
	}
	for i := len(vm.modules) - 1; i >= 0; i-- {
		for _, c := range vm.modules[i].funcs {
			if c.name == name {
				return c
			}
		}
	}
	return nil
}

// invoke runs the body of c with args bound to its parameters.
func (vm *VM) invoke(c *callee, args []Value) (Value, *VMError) {
	if err := vm.ctx.Err(); err != nil {
		return Value{}, vm.eb.interrupted(err)
	}
	if len(args) != len(c.fn.Params) {
		return Value{}, vm.eb.arity(c.name, len(c.fn.Params), len(args))
	}
	if len(vm.stack) >= vm.opts.MaxDepth {
		return Value{}, vm.eb.stackOverflow(vm.opts.MaxDepth)
	}
	fr := newFrame(c)
	for i, p := range c.fn.Params {
		fr.values[p.ID] = args[i]
	}
	trace.Point(vm.tracer, trace.ScopeNode, "vm_call", c.name)
	vm.stack = append(vm.stack, fr)
	defer func() { vm.stack = vm.stack[:len(vm.stack)-1] }()
	return vm.execSeq(fr, c.body)
}

// linkExtern resolves an extern of mod: a public function of a loaded
// module with the same name, or a function the VM implements.
func (vm *VM) linkExtern(mod *module, id ids.NodeID) (*callee, *VMError) {
	if c, ok := mod.linked[id]; ok {
		return c, nil
	}
	e, ok := mod.externs[id]
	if !ok {
		return nil, vm.eb.unresolved("value", id.String())
	}
	c, ok := vm.funcs[e.Name]
	if !ok {
		ext, ok := externs[e.Name]
		if !ok {
			return nil, vm.eb.unresolved("extern", e.Name)
		}
		c = &callee{name: e.Name, mod: mod, ext: ext}
	}
	mod.linked[id] = c
	return c, nil
}
