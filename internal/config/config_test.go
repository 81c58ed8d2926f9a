package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesResilienceTimeoutTable(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "https://pub.dev", cfg.API.BaseAddress)
	assert.Equal(t, 3, cfg.Resilience.RetryCount)
	assert.Equal(t, 200*time.Millisecond, cfg.Resilience.RetryBaseDelay)
	assert.Equal(t, 3*time.Second, cfg.Resilience.Timeout)
	assert.Equal(t, "STDIO", cfg.Transport.Mode)
}

func TestLoad_AppliesEnvOverrides(t *testing.T) {
	t.Setenv("PUBDEV_API_BASE_ADDRESS", "https://staging.pub.dev")
	t.Setenv("PUBDEV_RESILIENCE_RETRY_COUNT", "5")
	t.Setenv("PUBDEV_RESILIENCE_TIMEOUT", "750ms")
	t.Setenv("MCP_LOG_LEVEL", "DEBUG")
	t.Setenv("MCP_TRANSPORT", "HTTP")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://staging.pub.dev", cfg.API.BaseAddress)
	assert.Equal(t, 5, cfg.Resilience.RetryCount)
	assert.Equal(t, 750*time.Millisecond, cfg.Resilience.Timeout)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, "HTTP", cfg.Transport.Mode)
}

func TestLoad_IgnoresMalformedNumericOverrides(t *testing.T) {
	t.Setenv("PUBDEV_RESILIENCE_RETRY_COUNT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Resilience.RetryCount, cfg.Resilience.RetryCount)
}

func TestLoad_ReadsYAMLFileBeforeEnv(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	yamlContent := "api:\n  baseAddress: https://file.pub.dev\nresilience:\n  retryCount: 7\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o600))
	t.Setenv("PUBDEV_MCP_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://file.pub.dev", cfg.API.BaseAddress)
	assert.Equal(t, 7, cfg.Resilience.RetryCount)
}

func TestLoad_EnvOverridesYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	yamlContent := "api:\n  baseAddress: https://file.pub.dev\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o600))
	t.Setenv("PUBDEV_MCP_CONFIG", path)
	t.Setenv("PUBDEV_API_BASE_ADDRESS", "https://env-wins.pub.dev")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://env-wins.pub.dev", cfg.API.BaseAddress)
}

func TestLoad_MissingConfigFileReturnsError(t *testing.T) {
	t.Setenv("PUBDEV_MCP_CONFIG", "/nonexistent/path/config.yaml")
	_, err := Load()
	assert.Error(t, err)
}
