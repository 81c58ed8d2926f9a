package rpcserver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mbilalbenli/pub-dev-mcp/internal/registry"
	"github.com/mbilalbenli/pub-dev-mcp/internal/resilience"
)

func TestMapExecutionError_ContextCancelledMapsTo32001(t *testing.T) {
	code, _, _ := mapExecutionError(fmt.Errorf("wrap: %w", context.Canceled))
	assert.Equal(t, CodeCancelled, code)
}

func TestMapExecutionError_UpstreamUnavailableMapsTo32002(t *testing.T) {
	code, _, _ := mapExecutionError(fmt.Errorf("wrap: %w", registry.ErrUpstreamUnavailable))
	assert.Equal(t, CodeUpstreamFailed, code)
}

func TestMapExecutionError_RateLimitExhaustionMapsTo32002(t *testing.T) {
	code, _, _ := mapExecutionError(fmt.Errorf("wrap: %w", registry.ErrUpstreamRateLimited))
	assert.Equal(t, CodeUpstreamFailed, code)
}

func TestMapExecutionError_OpenCircuitMapsTo32002(t *testing.T) {
	code, _, _ := mapExecutionError(fmt.Errorf("wrap: %w", resilience.ErrCircuitOpen))
	assert.Equal(t, CodeUpstreamFailed, code)
}

func TestMapExecutionError_UnknownErrorMapsTo32603(t *testing.T) {
	code, message, _ := mapExecutionError(fmt.Errorf("something exploded"))
	assert.Equal(t, CodeInternalError, code)
	assert.Contains(t, message, "exploded")
}
