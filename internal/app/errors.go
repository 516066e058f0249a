package service

import "errors"

// Sentinel kinds for ranking request policy violations.
var (
	ErrSelectionSize    = errors.New("selection size out of range")
	ErrInvalidModelID   = errors.New("invalid model id")
	ErrDuplicateModel   = errors.New("duplicate model")
	ErrUnknownModel     = errors.New("unknown model")
	ErrMissingWeight    = errors.New("missing criterion weight")
	ErrUnknownCriterion = errors.New("unknown criterion")
	ErrLabelCount       = errors.New("label count does not match rows")
)
