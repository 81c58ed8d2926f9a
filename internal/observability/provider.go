package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Exporter selects where spans are sent, per spec.md §6's
// MCP_TELEMETRY_EXPORTER switch.
type Exporter string

const (
	ExporterNone    Exporter = "NONE"
	ExporterConsole Exporter = "CONSOLE"
	ExporterOTLP    Exporter = "OTLP"
)

// Setup installs a global TracerProvider for the chosen exporter and
// returns a shutdown function the caller must invoke before exit so
// batched spans are flushed. NONE installs nothing, leaving otel's global
// default provider in place, and returns a no-op shutdown. Grounded on the teacher's otel.go pattern of registering the provider
// globally so every package's otel.Tracer(...) call picks it up without
// explicit wiring.
func Setup(ctx context.Context, exporter Exporter, serviceName string) (func(context.Context) error, error) {
	if serviceName == "" {
		serviceName = "pub-dev-mcp"
	}

	switch exporter {
	case ExporterNone, "":
		return func(context.Context) error { return nil }, nil

	case ExporterConsole:
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating console trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(resourceFor(serviceName)),
		)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.TraceContext{})
		return tp.Shutdown, nil

	case ExporterOTLP:
		exp, err := otlptracegrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(resourceFor(serviceName)),
		)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.TraceContext{})
		return tp.Shutdown, nil

	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", exporter)
	}
}

func resourceFor(serviceName string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String("1.0.0"),
	)
}
