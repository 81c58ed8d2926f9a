// Package observability implements C8 from SPEC_FULL.md: a per-request
// span named "mcp.<tool>", a structured log line correlated by trace id,
// and an audit digest of request/response payloads. Span wiring is
// grounded on the teacher framework's telemetry/otel.go, generalized from
// HTTP server spans to per-tool-invocation spans, and gated by the same
// three-way exporter switch (NONE/CONSOLE/OTLP) spec.md §6 requires.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StatusCode mirrors spec.md §4.8's rpc.status_code attribute values.
type StatusCode string

const (
	StatusOK              StatusCode = "OK"
	StatusError           StatusCode = "ERROR"
	StatusInvalidArgument StatusCode = "INVALID_ARGUMENT"
	StatusCancelled       StatusCode = "CANCELLED"
	StatusException       StatusCode = "EXCEPTION"
)

const tracerName = "pub-dev-mcp"

// Span wraps one tool invocation's observability attributes.
type Span struct {
	span trace.Span
}

// StartToolSpan opens a span named "mcp.<tool>" with the rpc.* attributes
// spec.md §4.8 requires, returning the span-carrying context to propagate
// to the handler and registry client.
func StartToolSpan(ctx context.Context, tool, method, requestID string) (context.Context, Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "mcp."+tool)
	span.SetAttributes(
		attribute.String("rpc.system", "jsonrpc"),
		attribute.String("rpc.method", method),
		attribute.String("rpc.request.id", requestID),
	)
	return ctx, Span{span: span}
}

// Finish tags the span with its terminal status and, whenever errorCode
// is non-nil, the JSON-RPC error code, then ends it.
func (s Span) Finish(status StatusCode, errorCode *int) {
	s.span.SetAttributes(attribute.String("rpc.status_code", string(status)))
	if errorCode != nil {
		s.span.SetAttributes(attribute.Int("rpc.error_code", *errorCode))
	}
	switch status {
	case StatusOK:
		s.span.SetStatus(codes.Ok, "")
	default:
		s.span.SetStatus(codes.Error, string(status))
	}
	s.span.End()
}

// TraceID returns the span's trace id as a hex string, or "" if the span
// context is invalid (e.g. the NONE exporter is active).
func (s Span) TraceID() string {
	sc := s.span.SpanContext()
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
