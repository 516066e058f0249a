package topsis

import (
	"errors"
	"fmt"
)

// Sentinel kinds for validation failures. A *ValidationError unwraps to exactly one of these.
var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrEmptyInput    = errors.New("empty input")
	ErrInvalidWeight = errors.New("invalid weight")
	ErrInvalidValue  = errors.New("invalid value")
	ErrInvalidImpact = errors.New("invalid impact")
)

// ValidationError reports a malformed ranking request.
type ValidationError struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	// Index is the offending row or criterion, or -1 when the failure is not positional.
	Index int
	// Msg describes the failure.
	Msg string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("topsis: %v at index %d: %s", e.Kind, e.Index, e.Msg)
	}
	return fmt.Sprintf("topsis: %v: %s", e.Kind, e.Msg)
}

// Unwrap exposes the kind so callers can use errors.Is.
func (e *ValidationError) Unwrap() error { return e.Kind }

func newValidationError(kind error, index int, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Index: index, Msg: fmt.Sprintf(format, args...)}
}

// KindCode returns a stable snake_case code for a validation error kind,
// or an empty string when err is not a validation error.
func KindCode(err error) string {
	switch {
	case errors.Is(err, ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrInvalidWeight):
		return "invalid_weight"
	case errors.Is(err, ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, ErrInvalidImpact):
		return "invalid_impact"
	default:
		return ""
	}
}
