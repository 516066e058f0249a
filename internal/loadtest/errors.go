package loadtest

import "errors"

// Sentinel errors for bench runs.
var (
	ErrInvalidConfig = errors.New("loadtest: invalid config")
	ErrBadRanking    = errors.New("loadtest: ranking response violates ordering")
	ErrNotEnough     = errors.New("loadtest: catalog has too few models")
)
