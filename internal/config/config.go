// Package config loads server configuration from an optional YAML file
// followed by environment variable overrides, mirroring the layered
// precedence (defaults -> file -> env) used throughout the teacher
// framework's Config type.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of recognized options from spec.md §6.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Log        LogConfig        `yaml:"log"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Transport  TransportConfig  `yaml:"transport"`
}

// APIConfig configures the upstream registry.
type APIConfig struct {
	BaseAddress      string `yaml:"baseAddress" env:"PUBDEV_API_BASE_ADDRESS"`
	UserAgent        string `yaml:"userAgent" env:"PUBDEV_API_USER_AGENT"`
	SearchResultCap  int    `yaml:"searchResultLimit" env:"PUBDEV_API_SEARCH_RESULT_LIMIT"`
}

// ResilienceConfig configures the registry client's resilience pipeline.
type ResilienceConfig struct {
	RetryCount              int           `yaml:"retryCount" env:"PUBDEV_RESILIENCE_RETRY_COUNT"`
	RetryBaseDelay          time.Duration `yaml:"retryBaseDelay" env:"PUBDEV_RESILIENCE_RETRY_BASE_DELAY"`
	Timeout                 time.Duration `yaml:"timeout" env:"PUBDEV_RESILIENCE_TIMEOUT"`
	CircuitBreakerFailures  int           `yaml:"circuitBreakerFailures" env:"PUBDEV_RESILIENCE_CB_FAILURES"`
	CircuitBreakerWindow    time.Duration `yaml:"circuitBreakerWindow" env:"PUBDEV_RESILIENCE_CB_WINDOW"`
	CircuitBreakerDuration  time.Duration `yaml:"circuitBreakerDuration" env:"PUBDEV_RESILIENCE_CB_DURATION"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"MCP_LOG_LEVEL"`
	Format string `yaml:"format" env:"MCP_LOG_FORMAT"`
}

// TelemetryConfig selects the tracing/metrics exporter.
type TelemetryConfig struct {
	Exporter string `yaml:"exporter" env:"MCP_TELEMETRY_EXPORTER"`
}

// TransportConfig selects stdio or HTTP and the HTTP bind address.
type TransportConfig struct {
	Mode        string `yaml:"mode" env:"MCP_TRANSPORT"`
	HTTPAddress string `yaml:"httpAddress" env:"MCP_HTTP_ADDRESS"`
}

// Default returns production-ready defaults matching spec.md §5's timeout
// table.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseAddress:     "https://pub.dev",
			UserAgent:       "pub-dev-mcp/1.0",
			SearchResultCap: 10,
		},
		Resilience: ResilienceConfig{
			RetryCount:             3,
			RetryBaseDelay:         200 * time.Millisecond,
			Timeout:                3 * time.Second,
			CircuitBreakerFailures: 5,
			CircuitBreakerWindow:   30 * time.Second,
			CircuitBreakerDuration: 15 * time.Second,
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Exporter: "NONE",
		},
		Transport: TransportConfig{
			Mode:        "STDIO",
			HTTPAddress: ":8080",
		},
	}
}

// Load builds configuration by starting from Default(), layering in the
// YAML file named by PUBDEV_MCP_CONFIG if set, then applying environment
// variable overrides (highest precedence).
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("PUBDEV_MCP_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PUBDEV_API_BASE_ADDRESS"); v != "" {
		cfg.API.BaseAddress = v
	}
	if v := os.Getenv("PUBDEV_API_USER_AGENT"); v != "" {
		cfg.API.UserAgent = v
	}
	if v, ok := envInt("PUBDEV_API_SEARCH_RESULT_LIMIT"); ok {
		cfg.API.SearchResultCap = v
	}
	if v, ok := envInt("PUBDEV_RESILIENCE_RETRY_COUNT"); ok {
		cfg.Resilience.RetryCount = v
	}
	if v, ok := envDuration("PUBDEV_RESILIENCE_RETRY_BASE_DELAY"); ok {
		cfg.Resilience.RetryBaseDelay = v
	}
	if v, ok := envDuration("PUBDEV_RESILIENCE_TIMEOUT"); ok {
		cfg.Resilience.Timeout = v
	}
	if v, ok := envInt("PUBDEV_RESILIENCE_CB_FAILURES"); ok {
		cfg.Resilience.CircuitBreakerFailures = v
	}
	if v, ok := envDuration("PUBDEV_RESILIENCE_CB_WINDOW"); ok {
		cfg.Resilience.CircuitBreakerWindow = v
	}
	if v, ok := envDuration("PUBDEV_RESILIENCE_CB_DURATION"); ok {
		cfg.Resilience.CircuitBreakerDuration = v
	}
	if v := os.Getenv("MCP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MCP_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("MCP_TELEMETRY_EXPORTER"); v != "" {
		cfg.Telemetry.Exporter = v
	}
	if v := os.Getenv("MCP_TRANSPORT"); v != "" {
		cfg.Transport.Mode = v
	}
	if v := os.Getenv("MCP_HTTP_ADDRESS"); v != "" {
		cfg.Transport.HTTPAddress = v
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envDuration(name string) (time.Duration, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}
