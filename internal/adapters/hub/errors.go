package hub

import "errors"

// Sentinel kinds for hub errors.
var (
	ErrUpstreamStatus = errors.New("hub returned non-success status")
	ErrDecode         = errors.New("hub response decode failed")
	ErrInvalidLimit   = errors.New("invalid hub listing limit")
	ErrRateLimited    = errors.New("hub rate limit wait failed")
)
