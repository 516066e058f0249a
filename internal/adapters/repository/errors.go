package repository

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrNotFound     = errors.New("model not found")
	ErrInvalidLimit = errors.New("invalid catalog limit")
	ErrEmptyID      = errors.New("empty model id")
)
