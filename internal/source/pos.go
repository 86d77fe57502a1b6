package source

import "fmt"

// Pos is the position of the token an AST node was built from. The parser
// records it directly, so no byte offsets are kept.
type Pos struct {
	File FileID
	Line uint32 // 1-based, 0 when unknown
	Col  uint32 // 1-based
}

// IsValid reports whether the position carries a line number.
func (p Pos) IsValid() bool { return p.Line != 0 }

func (p Pos) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Before orders positions by file, line, then column.
func (p Pos) Before(other Pos) bool {
	if p.File != other.File {
		return p.File < other.File
	}
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Col < other.Col
}
