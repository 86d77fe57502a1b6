package mir

import (
	"fmt"

	"molten/internal/diag"
	"molten/internal/source"
)

// StructuralError reports a tree shape lowering cannot handle. Checked
// trees never produce one; it indicates a defect in an earlier phase.
type StructuralError struct {
	What string
}

func (e *StructuralError) Error() string { return "structural error: " + e.What }

func structural(pos source.Pos, format string, args ...any) error {
	return diag.Wrap(diag.LowerStructural, pos, &StructuralError{What: fmt.Sprintf(format, args...)})
}
