package diag

import "fmt"

// Severity defines the importance of a diagnostic. Bags sort and count
// errors by it; only SevError fails a compilation.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return fmt.Sprintf("Severity(%d)", uint8(s))
}

// Label is the lower-case word printed in front of a diagnostic code,
// as in "error[SEM3002]".
func (s Severity) Label() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}
