package mir

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"molten/internal/ids"
)

// Printer writes a module as indented text.
type Printer struct {
	w      io.Writer
	m      *Module
	indent int
	err    error
}

func NewPrinter(w io.Writer, m *Module) *Printer {
	return &Printer{w: w, m: m}
}

// DumpModule writes m to w.
func DumpModule(w io.Writer, m *Module) error {
	return NewPrinter(w, m).PrintModule()
}

// PrintModule prints structs, globals, externs and functions in order.
func (p *Printer) PrintModule() error {
	m := p.m
	p.printf("module %s\n", m.Name)
	if len(m.Structs) > 0 {
		p.printf("\n")
	}
	for _, s := range m.Structs {
		p.printf("type %%%s = {%s}\n", s.Name, typeList(s.Fields))
	}
	if len(m.Globals) > 0 {
		p.printf("\n")
	}
	for _, g := range m.Globals {
		ext := ""
		if g.External {
			ext = "extern "
		}
		p.printf("%sglobal @%s: %s\n", ext, g.Name, g.Type)
	}
	if len(m.Externs) > 0 {
		p.printf("\n")
	}
	for _, e := range m.Externs {
		p.printf("declare @%s %s\n", e.Name, e.Type)
	}
	for _, f := range m.Funcs {
		p.printf("\n")
		p.printFunc(f)
	}
	return p.err
}

func (p *Printer) printFunc(f *Func) {
	link := ""
	if f.Public {
		link = "pub "
	}
	params := make([]string, len(f.Params))
	for i, prm := range f.Params {
		params[i] = fmt.Sprintf("%s %s: %s", p.ref(prm.ID), prm.Name, prm.Type)
	}
	p.printf("%sfn @%s(%s) %s {\n", link, f.Name, strings.Join(params, ", "), f.Type.Ret)
	p.indent++
	p.printSeq(f.Body)
	p.indent--
	p.printf("}\n")
}

func (p *Printer) printSeq(seq []Expr) {
	for _, e := range seq {
		p.writeIndent()
		p.printExpr(e)
		p.printf("\n")
	}
}

func (p *Printer) printBlock(seq []Expr) {
	p.printf("{\n")
	p.indent++
	p.printSeq(seq)
	p.indent--
	p.writeIndent()
	p.printf("}")
}

func (p *Printer) printExpr(e Expr) {
	switch e := e.(type) {
	case *Lit:
		p.printf("%s", litString(e))
	case *GetValue:
		p.printf("%s", p.ref(e.ID))
	case *SetValue:
		p.printf("%s = ", p.ref(e.ID))
		p.printExpr(e.Value)
	case *DefLocal:
		p.printf("local %s %s: %s = ", p.ref(e.ID), e.Name, e.Type)
		p.printExpr(e.Value)
	case *GetLocal:
		p.printf("load %s", p.ref(e.ID))
	case *SetLocal:
		p.printf("store %s, ", p.ref(e.ID))
		p.printExpr(e.Value)
	case *GetGlobal:
		p.printf("load @%s", p.globalName(e.ID))
	case *SetGlobal:
		p.printf("store @%s, ", p.globalName(e.ID))
		p.printExpr(e.Value)
	case *Call:
		p.printf("call ")
		p.printExpr(e.Func)
		p.printArgs(e.Args)
	case *Builtin:
		p.printf("builtin %s", e.Op)
		p.printArgs(e.Args)
	case *Cast:
		p.printf("cast %s ", e.Type)
		p.printExpr(e.Value)
	case *Cmp:
		op := "eq"
		if e.Op == CmpNe {
			op = "ne"
		}
		p.printf("cmp %s ", op)
		p.printExpr(e.Left)
		p.printf(", ")
		p.printExpr(e.Right)
	case *Phi:
		p.printf("phi %s", e.Type)
		for i := range e.Conds {
			p.printf(" case ")
			p.printBlock(e.Conds[i])
			p.printf(" => ")
			p.printBlock(e.Blocks[i])
		}
	case *Loop:
		p.printf("loop ")
		p.printBlock(e.Cond)
		p.printf(" do ")
		p.printBlock(e.Body)
	case *AllocRef:
		p.printf("alloc %s", e.Type)
		if e.Value != nil {
			p.printf(", ")
			p.printExpr(e.Value)
		}
	case *MakeStruct:
		p.printf("make %s", e.Type)
		p.printArgs(e.Items)
	case *AccessRef:
		p.printf("field %d of ", e.Field)
		p.printExpr(e.Ref)
	case *LoadRef:
		p.printf("deref ")
		p.printExpr(e.Ref)
	case *StoreRef:
		p.printf("assign ")
		p.printExpr(e.Ref)
		p.printf(", ")
		p.printExpr(e.Value)
	case *Escape:
		p.printf("escape %s", p.ref(e.ID))
	case *Jump:
		p.printf("jump ")
		p.printExpr(e.Point)
		p.printf(", ")
		p.printExpr(e.Value)
	default:
		p.printf("<%T>", e)
	}
}

func (p *Printer) printArgs(args []Expr) {
	p.printf("(")
	for i, a := range args {
		if i > 0 {
			p.printf(", ")
		}
		p.printExpr(a)
	}
	p.printf(")")
}

// ref names a value: functions and externs by name, everything else by id.
func (p *Printer) ref(id ids.NodeID) string {
	if f, ok := p.m.Func(id); ok {
		return "@" + f.Name
	}
	if e, ok := p.m.Extern(id); ok {
		return "@" + e.Name
	}
	return "%" + strconv.FormatUint(uint64(id), 10)
}

func (p *Printer) globalName(id ids.NodeID) string {
	if g, ok := p.m.Global(id); ok {
		return g.Name
	}
	return "?" + strconv.FormatUint(uint64(id), 10)
}

func litString(l *Lit) string {
	switch l.Kind {
	case LitUnit:
		return "()"
	case LitBool:
		return strconv.FormatBool(l.Bool)
	case LitByte:
		return strconv.FormatInt(l.Int, 10) + "b"
	case LitChar:
		return strconv.QuoteRune(rune(l.Int))
	case LitInt:
		return strconv.FormatInt(l.Int, 10)
	case LitReal:
		return strconv.FormatFloat(l.Real, 'g', -1, 64)
	case LitStr:
		return strconv.Quote(l.Str)
	}
	return "null " + l.Type.String()
}

func (p *Printer) writeIndent() {
	p.printf("%s", strings.Repeat("  ", p.indent))
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
