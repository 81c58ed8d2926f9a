package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_NoneExporterIsANoOpShutdown(t *testing.T) {
	shutdown, err := Setup(context.Background(), ExporterNone, "pub-dev-mcp-test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetup_ConsoleExporterInstallsProvider(t *testing.T) {
	shutdown, err := Setup(context.Background(), ExporterConsole, "pub-dev-mcp-test")
	require.NoError(t, err)
	defer shutdown(context.Background())

	_, span := StartToolSpan(context.Background(), "latest_version", "latest_version", "42")
	span.Finish(StatusOK, nil)
}

func TestSetup_UnknownExporterReturnsError(t *testing.T) {
	_, err := Setup(context.Background(), Exporter("BOGUS"), "pub-dev-mcp-test")
	assert.Error(t, err)
}

func TestDigest_IsStableAndDependsOnPayload(t *testing.T) {
	a := Digest([]byte(`{"package":"http"}`))
	b := Digest([]byte(`{"package":"http"}`))
	c := Digest([]byte(`{"package":"retry"}`))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestNewAuditEntry_DigestsRequestAndResponseIndependently(t *testing.T) {
	entry := NewAuditEntry("latest_version", "1", []byte(`{"package":"http"}`), []byte(`{"version":"1.2.1"}`), StatusOK, time.Now())
	assert.Equal(t, Digest([]byte(`{"package":"http"}`)), entry.RequestDigest)
	assert.Equal(t, Digest([]byte(`{"version":"1.2.1"}`)), entry.ResponseDigest)
	assert.Equal(t, "OK", entry.StatusCode)
}
