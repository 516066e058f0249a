package estimate

import "errors"

// Sentinel kinds for estimation errors.
var (
	ErrEmptyModelID = errors.New("empty model id")
)
