package types

import "fmt"

// ABI is the calling convention tag of a function type.
type ABI uint8

const (
	// ABIUnknown is compatible with every other ABI and is called like a closure.
	ABIUnknown ABI = iota
	// ABIMolten functions are closures: context and exception point are appended.
	ABIMolten
	// ABIMoltenFunc functions take one trailing exception point.
	ABIMoltenFunc
	// ABIC functions are called with their arguments only.
	ABIC
)

func (a ABI) String() string {
	switch a {
	case ABIMolten:
		return "M"
	case ABIMoltenFunc:
		return "MF"
	case ABIC:
		return "C"
	default:
		return ""
	}
}

// ParseABI converts the suffix used in signatures.
func ParseABI(s string) (ABI, error) {
	switch s {
	case "", "?":
		return ABIUnknown, nil
	case "M", "Molten":
		return ABIMolten, nil
	case "MF", "MoltenFunc":
		return ABIMoltenFunc, nil
	case "C":
		return ABIC, nil
	}
	return ABIUnknown, fmt.Errorf("unknown ABI %q", s)
}

// Compatible reports whether two ABIs may describe the same function.
func (a ABI) Compatible(b ABI) bool {
	return a == ABIUnknown || b == ABIUnknown || a == b
}

// IsClosure reports whether calls use the closure convention.
func (a ABI) IsClosure() bool { return a == ABIMolten || a == ABIUnknown }

// Mangles reports whether overloaded functions of this ABI get mangled names.
func (a ABI) Mangles() bool { return a != ABIC }
