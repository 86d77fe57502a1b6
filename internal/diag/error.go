package diag

import (
	"errors"
	"fmt"

	"molten/internal/source"
)

// Error is the failure a phase returns: a code, the position of the
// offending node, and the underlying kind error.
type Error struct {
	Code Code
	Pos  source.Pos
	Err  error
}

// Wrap attaches code and position to err. An err that already is an
// *Error is returned unchanged so the innermost position wins.
func Wrap(code Code, pos source.Pos, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Code: code, Pos: pos, Err: err}
}

// Errorf builds an *Error from a format string.
func Errorf(code Code, pos source.Pos, format string, args ...any) error {
	return &Error{Code: code, Pos: pos, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %v", e.Pos, e.Code.ID(), e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Code.ID(), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Internal reports whether the error is a compiler defect.
func (e *Error) Internal() bool { return e.Code.Internal() }

// Diagnostic converts the error into a reportable diagnostic.
func (e *Error) Diagnostic() Diagnostic {
	msg := e.Code.Title()
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return NewError(e.Code, e.Pos, msg)
}

// Report forwards err to r, using InternalInvariant for errors that never
// went through Wrap.
func Report(r Reporter, err error) {
	if err == nil {
		return
	}
	var de *Error
	if !errors.As(err, &de) {
		de = &Error{Code: InternalInvariant, Err: err}
	}
	d := de.Diagnostic()
	ReportError(r, d.Code, d.Primary, d.Message).Emit()
}
