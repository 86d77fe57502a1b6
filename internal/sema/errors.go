package sema

import (
	"errors"
	"fmt"

	"molten/internal/defs"
	"molten/internal/diag"
	"molten/internal/source"
	"molten/internal/symbols"
	"molten/internal/types"
)

// ImmutableError reports an assignment to a binding declared without mut.
type ImmutableError struct {
	Name string
}

func (e *ImmutableError) Error() string {
	return fmt.Sprintf("cannot assign to immutable binding %q", e.Name)
}

// MemberError reports a field access on a value whose type has no members.
type MemberError struct {
	Field string
	Type  types.Type
}

func (e *MemberError) Error() string {
	return fmt.Sprintf("type %s has no member %q", e.Type, e.Field)
}

// AliasError reports a type alias used where a class is required.
type AliasError struct {
	Name  string
	Alias types.Type
}

func (e *AliasError) Error() string {
	return fmt.Sprintf("type alias %s = %s does not name a class", e.Name, e.Alias)
}

// codeOf maps the kind errors of the lower layers to diagnostic codes.
func codeOf(err error) diag.Code {
	var (
		dup      *symbols.DuplicateError
		notFound *symbols.NotFoundError
		mismatch *types.MismatchError
		overload *types.NoMatchingOverloadError
		kind     *defs.KindError
		immut    *ImmutableError
		member   *MemberError
		alias    *AliasError
	)
	switch {
	case errors.As(err, &dup):
		return diag.SemaDuplicateDefinition
	case errors.As(err, &notFound), errors.As(err, &member):
		return diag.SemaUndefinedReference
	case errors.As(err, &mismatch):
		return diag.SemaTypeMismatch
	case errors.As(err, &overload):
		return diag.SemaNoMatchingOverload
	case errors.As(err, &kind), errors.As(err, &alias):
		return diag.SemaInvalidDefKind
	case errors.As(err, &immut):
		return diag.SemaImmutableAssignment
	}
	return diag.InternalInvariant
}

// wrap attaches the position of the offending node to err.
func wrap(pos source.Pos, err error) error {
	if err == nil {
		return nil
	}
	return diag.Wrap(codeOf(err), pos, err)
}
