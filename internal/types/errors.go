package types

import "fmt"

// MismatchError reports two types that failed to unify.
type MismatchError struct {
	Expected Type
	Actual   Type
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s but found %s", str(e.Expected), str(e.Actual))
}

// NoMatchingOverloadError reports a call no variant of an overload set accepts.
type NoMatchingOverloadError struct {
	Name string
	Args []Type
}

func (e *NoMatchingOverloadError) Error() string {
	return fmt.Sprintf("no matching overload for %s(%s)", e.Name, joinTypes(e.Args))
}

// ParseError reports a malformed type signature.
type ParseError struct {
	Src string
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bad type %q at %d: %s", e.Src, e.Pos, e.Msg)
}

func mismatch(expected, actual Type) error {
	return &MismatchError{Expected: expected, Actual: actual}
}
