package mir

import (
	"context"

	"molten/internal/ast"
	"molten/internal/builtins"
	"molten/internal/defs"
	"molten/internal/diag"
	"molten/internal/ids"
	"molten/internal/session"
	"molten/internal/source"
	"molten/internal/symbols"
	"molten/internal/trace"
	"molten/internal/types"
)

// UncaughtMessage is printed by main when a raise reaches it.
const UncaughtMessage = "Uncaught exception.  Terminating"

// Options controls what Lower emits besides the module initialiser.
type Options struct {
	// Library omits the main entry point.
	Library bool
}

// frame is the function currently being lowered.
type frame struct {
	out      []Expr
	closure  *defs.Closure
	expoints []ids.NodeID
	params   map[ids.NodeID]*Type
	locals   map[ids.NodeID]bool
}

func newFrame(cl *defs.Closure, expoint ids.NodeID) *frame {
	fr := &frame{
		closure: cl,
		params:  make(map[ids.NodeID]*Type),
		locals:  make(map[ids.NodeID]bool),
	}
	if expoint.IsValid() {
		fr.expoints = []ids.NodeID{expoint}
	}
	return fr
}

type lowerer struct {
	ctx    context.Context
	sess   *session.Session
	reg    *builtins.Registry
	mod    *Module
	tracer trace.Tracer
	span   uint64

	scope *symbols.Scope
	fr    *frame

	named    map[ids.NodeID]*Type
	methods  map[ids.NodeID]*defs.Method
	imported map[ids.NodeID]bool
	wrappers map[ids.NodeID]ids.NodeID
}

// Lower converts checked code into a module. The top-level code becomes
// the body of run.<unit>, which takes the caller's escape point and
// returns 0; unless opts.Library is set, a main function calls it inside
// its own escape point and reports uncaught exceptions.
func Lower(ctx context.Context, sess *session.Session, reg *builtins.Registry, code []ast.Node, opts Options) (*Module, error) {
	span := trace.Begin(sess.Tracer, trace.ScopePass, "lower", trace.CurrentSpan(ctx))
	defer span.End("")

	l := &lowerer{
		ctx:      ctx,
		sess:     sess,
		reg:      reg,
		mod:      NewModule(sess.Name),
		tracer:   sess.Tracer,
		span:     span.ID(),
		scope:    sess.Scopes.Global,
		named:    make(map[ids.NodeID]*Type),
		methods:  make(map[ids.NodeID]*defs.Method),
		imported: make(map[ids.NodeID]bool),
		wrappers: make(map[ids.NodeID]ids.NodeID),
	}
	if err := l.declareClasses(code); err != nil {
		return nil, err
	}
	if err := l.run(code); err != nil {
		return nil, err
	}
	if !opts.Library {
		if err := l.main(); err != nil {
			return nil, err
		}
	}
	return l.mod, nil
}

func (l *lowerer) run(code []ast.Node) error {
	runID, expID := l.sess.NextID(), l.sess.NextID()
	fn := &Func{
		ID:     runID,
		Name:   RunName(l.sess.Name),
		Public: true,
		Type:   FuncOf([]*Type{EscapeType}, Int),
		Params: []Param{{ID: expID, Name: defs.ExceptionArg, Type: EscapeType}},
	}
	l.mod.AddFunc(fn)
	l.mod.Init = runID

	body, err := l.inFrame(newFrame(nil, expID), l.sess.Scopes.Global, func() (Expr, error) {
		for _, n := range code {
			if err := l.ctx.Err(); err != nil {
				return nil, err
			}
			v, err := l.expr(n)
			if err != nil {
				return nil, err
			}
			l.discard(v)
		}
		return IntLit(0), nil
	})
	if err != nil {
		return err
	}
	fn.Body = body
	return nil
}

func (l *lowerer) main() error {
	puts, err := l.builtinExtern("puts")
	if err != nil {
		return err
	}
	mainID, expID, disc := l.sess.NextID(), l.sess.NextID(), l.sess.NextID()
	fn := &Func{ID: mainID, Name: "main", Public: true, Type: FuncOf(nil, Int)}
	l.mod.AddFunc(fn)
	l.mod.Main = mainID

	body, err := l.inFrame(newFrame(nil, ids.NoID), l.sess.Scopes.Global, func() (Expr, error) {
		return l.guard(expID, disc, Int, func() (Expr, error) {
			return &Call{Func: &GetValue{ID: l.mod.Init}, Args: []Expr{&GetValue{ID: expID}}}, nil
		}, func() (Expr, error) {
			l.emit(&Call{Func: puts, Args: []Expr{StrLit(UncaughtMessage)}})
			return IntLit(-1), nil
		})
	})
	if err != nil {
		return err
	}
	fn.Body = body
	return nil
}

// builtinExtern declares the external builtin called name.
func (l *lowerer) builtinExtern(name string) (Expr, error) {
	if l.reg != nil {
		for _, f := range l.reg.Funcs {
			if f.Name == name && f.External() {
				d, err := l.sess.Def(f.ID)
				if err != nil {
					return nil, diag.Wrap(diag.InternalInvariant, source.Pos{}, err)
				}
				return l.externFunc(d), nil
			}
		}
	}
	return nil, diag.Errorf(diag.InternalInvariant, source.Pos{}, "builtin %q is not declared", name)
}

// inFrame lowers fn as the body of a new function with scope as its
// innermost scope, returning the complete body.
func (l *lowerer) inFrame(fr *frame, scope *symbols.Scope, fn func() (Expr, error)) ([]Expr, error) {
	savedFr, savedScope := l.fr, l.scope
	l.fr, l.scope = fr, scope
	defer func() { l.fr, l.scope = savedFr, savedScope }()

	v, err := fn()
	if err != nil {
		return nil, err
	}
	return append(fr.out, v), nil
}

// seq lowers fn into a separate sequence ending with its value.
func (l *lowerer) seq(fn func() (Expr, error)) ([]Expr, error) {
	saved := l.fr.out
	l.fr.out = nil
	v, err := fn()
	out := append(l.fr.out, v)
	l.fr.out = saved
	if err != nil {
		return nil, err
	}
	return out, nil
}

// inScope runs fn with scope as the innermost scope; a nil scope keeps
// the current one.
func (l *lowerer) inScope(scope *symbols.Scope, fn func() (Expr, error)) (Expr, error) {
	if scope == nil {
		return fn()
	}
	saved := l.scope
	l.scope = scope
	defer func() { l.scope = saved }()
	return fn()
}

func (l *lowerer) emit(e Expr) { l.fr.out = append(l.fr.out, e) }

// discard evaluates e for its effect only.
func (l *lowerer) discard(e Expr) {
	if !IsPure(e) {
		l.emit(e)
	}
}

// spill binds an impure e to a fresh value so it is evaluated here, once.
func (l *lowerer) spill(e Expr) Expr {
	if IsPure(e) {
		return e
	}
	id := l.sess.NextID()
	l.emit(&SetValue{ID: id, Value: e})
	return &GetValue{ID: id}
}

// coerce converts e from type from to type to.
func coerce(e Expr, from, to *Type) Expr {
	if from.Equal(to) {
		return e
	}
	return &Cast{Type: to, Value: e}
}

func (l *lowerer) exception(n ast.Node) (Expr, error) {
	if k := len(l.fr.expoints); k > 0 {
		return &GetValue{ID: l.fr.expoints[k-1]}, nil
	}
	return nil, structural(n.Pos(), "no escape point is active here")
}

func (l *lowerer) resolvedFunc(id ids.NodeID) (*types.Function, bool) {
	t, ok := l.sess.Type(id)
	if !ok {
		return nil, false
	}
	ft, ok := types.Resolve(l.sess, t).(*types.Function)
	return ft, ok
}

// funcName is the symbol name of a function definition: C functions keep
// their plain name, others are mangled with their parameter types and
// qualified by scope, or by their class for methods.
func (l *lowerer) funcName(d defs.Def, scope *symbols.Scope) string {
	name := d.DefName()
	abi := defs.ABIOf(d)
	if _, ok := d.(*defs.CFunc); ok || (abi == types.ABIC && name != "") {
		return name
	}
	if name != "" && abi.Mangles() {
		if ft, ok := l.resolvedFunc(d.DefID()); ok {
			name = types.Mangle(name, ft.Args)
		}
	}
	if m, ok := l.methods[d.DefID()]; ok {
		if cd, err := l.sess.Def(m.Class); err == nil {
			return cd.DefName() + "." + name
		}
	}
	return scope.FullName(name, d.DefID())
}
