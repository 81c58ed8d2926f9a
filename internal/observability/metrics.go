package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "pub-dev-mcp"

// Metrics holds the counters/histograms recorded around every tool
// invocation. Reading from the global MeterProvider means these are
// real instruments when an SDK MeterProvider has been installed and
// harmless no-ops otherwise (e.g. under ExporterNone), mirroring the
// teacher framework's RecordMetric heuristics generalized into
// explicitly-typed instruments instead of name-pattern sniffing.
type Metrics struct {
	invocations metric.Int64Counter
	failures    metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewMetrics builds the instrument set from the global meter.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	invocations, err := meter.Int64Counter(
		"mcp.tool.invocations",
		metric.WithDescription("Count of tool invocations by name and status"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"mcp.tool.failures",
		metric.WithDescription("Count of tool invocations that returned a JSON-RPC error"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"mcp.tool.duration_ms",
		metric.WithDescription("Tool invocation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{invocations: invocations, failures: failures, duration: duration}, nil
}

// RecordInvocation records one completed tool call's outcome and latency.
func (m *Metrics) RecordInvocation(ctx context.Context, tool string, status StatusCode, durationMS float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tool", tool), attribute.String("status", string(status)))
	m.invocations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, durationMS, attrs)
	if status != StatusOK {
		m.failures.Add(ctx, 1, attrs)
	}
}
