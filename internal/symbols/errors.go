package symbols

import "fmt"

// DuplicateError reports a second definition of a name in one scope.
type DuplicateError struct {
	Name  string
	Scope string
	Type  bool
}

func (e *DuplicateError) Error() string {
	what := "name"
	if e.Type {
		what = "type"
	}
	return fmt.Sprintf("%s %q is already defined in %s scope", what, e.Name, e.Scope)
}

// NotFoundError reports a name that no enclosing scope binds.
type NotFoundError struct {
	Name string
	Type bool
}

func (e *NotFoundError) Error() string {
	if e.Type {
		return fmt.Sprintf("undefined type %q", e.Name)
	}
	return fmt.Sprintf("undefined reference %q", e.Name)
}
