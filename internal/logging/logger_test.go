package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionLogger_JSONFormatIncludesComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New("INFO", "json")
	l.output = buf

	component := l.WithComponent("registry")
	component.Info("fetched package", map[string]interface{}{"package": "http"})

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "registry", record["component"])
	assert.Equal(t, "fetched package", record["message"])
	assert.Equal(t, "http", record["package"])
}

func TestProductionLogger_FiltersBelowConfiguredLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New("WARN", "text")
	l.output = buf

	l.Info("should be dropped", nil)
	assert.Empty(t, buf.String())

	l.Warn("should appear", nil)
	assert.True(t, strings.Contains(buf.String(), "should appear"))
}

func TestProductionLogger_TextFormatIncludesCorrelator(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New("DEBUG", "text")
	l.output = buf

	ctx := ContextWithCorrelator(context.Background(), "req-123")
	l.InfoContext(ctx, "handled", nil)

	assert.Contains(t, buf.String(), "req-123")
}
