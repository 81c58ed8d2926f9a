package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbilalbenli/pub-dev-mcp/internal/logging"
	"github.com/mbilalbenli/pub-dev-mcp/internal/registry"
	"github.com/mbilalbenli/pub-dev-mcp/internal/rpcserver"
)

type fakeProber struct{ err error }

func (p fakeProber) Probe(ctx context.Context) error { return p.err }

func TestHTTPServer_RPCRoute_DispatchesAndReturns200(t *testing.T) {
	dispatcher := rpcserver.New(echoTable(), logging.NoOp{})
	srv := NewHTTPServer(":0", dispatcher, fakeProber{}, logging.NoOp{})

	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"echo","params":{}}`))
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp rpcserver.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Error)
}

func TestHTTPServer_RPCRoute_RejectsNonPost(t *testing.T) {
	dispatcher := rpcserver.New(echoTable(), logging.NoOp{})
	srv := NewHTTPServer(":0", dispatcher, fakeProber{}, logging.NoOp{})

	req := httptest.NewRequest(http.MethodGet, "/rpc", nil)
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTPServer_HealthLive_AlwaysReturns200(t *testing.T) {
	dispatcher := rpcserver.New(echoTable(), logging.NoOp{})
	srv := NewHTTPServer(":0", dispatcher, fakeProber{err: errors.New("boom")}, logging.NoOp{})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPServer_HealthReady_ReturnsServiceUnavailableOnProbeFailure(t *testing.T) {
	dispatcher := rpcserver.New(echoTable(), logging.NoOp{})
	srv := NewHTTPServer(":0", dispatcher, fakeProber{err: errors.New("upstream down")}, logging.NoOp{})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHTTPServer_HealthReady_ReturnsDegradedOn429(t *testing.T) {
	dispatcher := rpcserver.New(echoTable(), logging.NoOp{})
	srv := NewHTTPServer(":0", dispatcher, fakeProber{err: registry.ErrUpstreamRateLimited}, logging.NoOp{})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestHTTPServer_HealthReady_ReturnsOKWhenProbeSucceeds(t *testing.T) {
	dispatcher := rpcserver.New(echoTable(), logging.NoOp{})
	srv := NewHTTPServer(":0", dispatcher, fakeProber{}, logging.NoOp{})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")
}
