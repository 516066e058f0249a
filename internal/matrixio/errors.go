package matrixio

import (
	"errors"
	"fmt"
)

// Sentinel errors for decision matrix files.
var (
	ErrEmpty         = errors.New("matrixio: no header row")
	ErrNoRows        = errors.New("matrixio: no data rows")
	ErrTooFewColumns = errors.New("matrixio: need a label column and at least one criterion column")
	ErrNonNumeric    = errors.New("matrixio: non-numeric value")
	ErrBadList       = errors.New("matrixio: malformed list")
)

// CellError locates a value that failed to parse. Row and Column are
// 1-based positions in the file, header included.
type CellError struct {
	Row    int
	Column int
	Value  string
}

func (e *CellError) Error() string {
	return fmt.Sprintf("%v %q at row %d, column %d", ErrNonNumeric, e.Value, e.Row, e.Column)
}

// Unwrap exposes ErrNonNumeric.
func (e *CellError) Unwrap() error { return ErrNonNumeric }
