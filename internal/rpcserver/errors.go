package rpcserver

import (
	"context"
	"errors"

	"github.com/mbilalbenli/pub-dev-mcp/internal/registry"
	"github.com/mbilalbenli/pub-dev-mcp/internal/resilience"
)

// The canonical JSON-RPC 2.0 error codes from spec.md §6.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeCancelled      = -32001
	CodeUpstreamFailed = -32002
)

// mapExecutionError implements spec.md §4.6 step 6's error-to-code
// mapping: upstream unavailable (including rate-limit exhaustion and an
// open circuit breaker) -> -32002; cancellation -> -32001; everything
// else -> -32603 with a one-sentence human message and no stack detail.
func mapExecutionError(err error) (code int, message string, data interface{}) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, registry.ErrCancelled):
		return CodeCancelled, "request cancelled", nil
	case errors.Is(err, registry.ErrUpstreamUnavailable),
		errors.Is(err, registry.ErrUpstreamRateLimited),
		errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, resilience.ErrRetriesExhausted):
		return CodeUpstreamFailed, "upstream dependency failure: " + err.Error(), nil
	default:
		return CodeInternalError, err.Error(), nil
	}
}
