package vm

import (
	"fmt"
	"strings"
)

// PanicCode identifies the type of VM panic.
type PanicCode int

// Stable panic codes - do not change values.
const (
	PanicUseBeforeInit     PanicCode = 1001 // VM1001: use before initialization
	PanicUseAfterFree      PanicCode = 1002 // VM1002: access to a freed object
	PanicTypeMismatch      PanicCode = 1003 // VM1003: type mismatch
	PanicOutOfBounds       PanicCode = 1004 // VM1004: out of bounds
	PanicUnsupportedExtern PanicCode = 1005 // VM1005: unsupported external function
	PanicNullDeref         PanicCode = 1006 // VM1006: null dereference
	PanicDivByZero         PanicCode = 1007 // VM1007: division by zero
	PanicUnresolved        PanicCode = 1008 // VM1008: unresolved symbol
	PanicDeadEscape        PanicCode = 1009 // VM1009: jump to an escape point no longer active
	PanicStackOverflow     PanicCode = 1010 // VM1010: call depth limit exceeded
	PanicUncaught          PanicCode = 1011 // VM1011: exception raised outside any escape point
	PanicInterrupted       PanicCode = 1012 // VM1012: execution cancelled
	PanicUnimplemented     PanicCode = 1999 // VM1999: unimplemented expression
)

// String returns the code as "VM1001" format.
func (c PanicCode) String() string {
	return fmt.Sprintf("VM%d", c)
}

// VMError represents a runtime panic in the VM.
type VMError struct {
	Code      PanicCode
	Message   string
	Backtrace []string // function names from top to bottom
}

// Error implements the error interface.
func (p *VMError) Error() string {
	return fmt.Sprintf("panic %s: %s", p.Code, p.Message)
}

// Pretty renders the panic with its backtrace.
func (p *VMError) Pretty() string {
	var sb strings.Builder
	sb.WriteString(p.Error())
	sb.WriteString("\n")
	if len(p.Backtrace) > 0 {
		sb.WriteString("backtrace:\n")
		for i, name := range p.Backtrace {
			fmt.Fprintf(&sb, "  %d: %s\n", i, name)
		}
	}
	return sb.String()
}

// errorBuilder helps construct VMError values.
type errorBuilder struct {
	vm *VM
}

func (eb *errorBuilder) makeError(code PanicCode, msg string) *VMError {
	e := &VMError{
		Code:    code,
		Message: msg,
	}
	stack := eb.vm.stack
	e.Backtrace = make([]string, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		e.Backtrace[len(stack)-1-i] = stack[i].Func.Name
	}
	return e
}

func (eb *errorBuilder) useBeforeInit(what string) *VMError {
	return eb.makeError(PanicUseBeforeInit, fmt.Sprintf("%s used before initialization", what))
}

func (eb *errorBuilder) useAfterFree(p Pointer) *VMError {
	return eb.makeError(PanicUseAfterFree, fmt.Sprintf("access to freed object %s", p))
}

func (eb *errorBuilder) typeMismatch(expected, got string) *VMError {
	return eb.makeError(PanicTypeMismatch, fmt.Sprintf("expected %s, got %s", expected, got))
}

func (eb *errorBuilder) outOfBounds(index, length int) *VMError {
	return eb.makeError(PanicOutOfBounds, fmt.Sprintf("index %d out of bounds for length %d", index, length))
}

func (eb *errorBuilder) badSize(n int64) *VMError {
	return eb.makeError(PanicOutOfBounds, fmt.Sprintf("invalid size %d", n))
}

func (eb *errorBuilder) unsupportedExtern(name string) *VMError {
	return eb.makeError(PanicUnsupportedExtern, fmt.Sprintf("unsupported external function: %s", name))
}

func (eb *errorBuilder) nullDeref() *VMError {
	return eb.makeError(PanicNullDeref, "null pointer dereference")
}

func (eb *errorBuilder) divByZero() *VMError {
	return eb.makeError(PanicDivByZero, "integer division by zero")
}

func (eb *errorBuilder) unresolved(what, name string) *VMError {
	return eb.makeError(PanicUnresolved, fmt.Sprintf("unresolved %s %s", what, name))
}

func (eb *errorBuilder) unknownStruct(name string) *VMError {
	return eb.makeError(PanicUnresolved, fmt.Sprintf("unknown struct %%%s", name))
}

func (eb *errorBuilder) deadEscape() *VMError {
	return eb.makeError(PanicDeadEscape, "jump to an escape point that is no longer active")
}

func (eb *errorBuilder) stackOverflow(depth int) *VMError {
	return eb.makeError(PanicStackOverflow, fmt.Sprintf("call depth exceeded %d", depth))
}

func (eb *errorBuilder) uncaught(value int64) *VMError {
	return eb.makeError(PanicUncaught, fmt.Sprintf("uncaught exception %d", value))
}

func (eb *errorBuilder) interrupted(err error) *VMError {
	return eb.makeError(PanicInterrupted, err.Error())
}

func (eb *errorBuilder) arity(name string, want, got int) *VMError {
	return eb.makeError(PanicTypeMismatch, fmt.Sprintf("%s takes %d arguments, got %d", name, want, got))
}

func (eb *errorBuilder) unimplemented(what string) *VMError {
	return eb.makeError(PanicUnimplemented, fmt.Sprintf("unimplemented: %s", what))
}
