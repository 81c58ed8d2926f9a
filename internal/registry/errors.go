package registry

import "errors"

// Sentinel errors classify registry client failures per spec.md §7's
// taxonomy. Callers use errors.Is against these, never string matching.
var (
	ErrInvalidInput       = errors.New("registry: invalid input")
	ErrUpstreamUnavailable = errors.New("registry: upstream unavailable")
	ErrUpstreamNotFound   = errors.New("registry: upstream resource not found")
	ErrUpstreamRateLimited = errors.New("registry: upstream rate limited")
	ErrDecodeFailed       = errors.New("registry: failed to decode upstream response")
	ErrCancelled          = errors.New("registry: request cancelled")
)
