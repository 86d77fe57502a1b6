package defs

import "fmt"

// KindError reports a definition of the wrong kind.
type KindError struct {
	Want Kind
	Got  Kind
	Name string
}

func (e *KindError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("expected %s definition but %q is a %s", e.Want, e.Name, e.Got)
	}
	return fmt.Sprintf("expected %s definition but found %s", e.Want, e.Got)
}

func kindError(want Kind, d Def) error {
	if d == nil {
		return &KindError{Want: want}
	}
	return &KindError{Want: want, Got: d.DefKind(), Name: d.DefName()}
}
