package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	SynInvalidTarget   Code = 2001
	SynInvalidResolver Code = 2002

	SemaInfo                Code = 3000
	SemaDuplicateDefinition Code = 3001
	SemaUndefinedReference  Code = 3002
	SemaTypeMismatch        Code = 3003
	SemaNoMatchingOverload  Code = 3004
	SemaInvalidDefKind      Code = 3005
	SemaImmutableAssignment Code = 3006

	LowerStructural Code = 4001

	IOLoadFileError Code = 5001
	IODecodeError   Code = 5002

	ProjManifestError Code = 6001

	ObsTimings Code = 8001

	InternalInvariant Code = 9001
)

var codeDescription = map[Code]string{
	UnknownCode:             "Unknown error",
	SynInvalidTarget:        "invalid assignment target",
	SynInvalidResolver:      "resolver must name a class",
	SemaInfo:                "Semantic information",
	SemaDuplicateDefinition: "name already defined in this scope",
	SemaUndefinedReference:  "undefined reference",
	SemaTypeMismatch:        "type mismatch",
	SemaNoMatchingOverload:  "no matching overload",
	SemaInvalidDefKind:      "wrong kind of definition",
	SemaImmutableAssignment: "assignment to immutable binding",
	LowerStructural:         "malformed tree reached lowering",
	IOLoadFileError:         "I/O load file error",
	IODecodeError:           "cannot decode input",
	ProjManifestError:       "invalid project manifest",
	ObsTimings:              "pipeline timings",
	InternalInvariant:       "internal compiler error",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("LOW%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 8000 && ic < 9000:
		return fmt.Sprintf("OBS%04d", ic)
	case ic >= 9000 && ic < 10000:
		return fmt.Sprintf("INT%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

// Internal reports whether the code marks a compiler defect rather than a
// mistake in the program being compiled.
func (c Code) Internal() bool { return c >= 9000 && c < 10000 }

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
