package transport

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/mbilalbenli/pub-dev-mcp/internal/logging"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

// HeaderRequestID is the response header carrying the correlation ID
// assigned to a request, mirroring the teacher framework's
// X-Request-ID correlation header.
const HeaderRequestID = "X-Request-ID"

// requestIDFromContext returns the request ID assigned by
// correlationMiddleware, or "" if none is present (e.g. in tests that
// call a handler directly).
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// correlationMiddleware assigns a UUID to every request that lacks an
// inbound X-Request-ID header, propagating it through the context and
// echoing it back on the response so logs and audit entries for the
// same request can be joined across the handler chain. The same ID is
// stashed as logging's trace correlator, so every *Context log call
// downstream (dispatcher, registry client) reports it as trace_id too.
// Grounded on the teacher framework's pkg/telemetry CorrelationMiddleware.
func correlationMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, requestID)
			ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
			ctx = logging.ContextWithCorrelator(ctx, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// recoveryMiddleware catches panics from the handler chain and turns
// them into a 500 response instead of crashing the process, grounded on
// the teacher framework's RecoveryMiddleware.
func recoveryMiddleware(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("http handler panic recovered", map[string]interface{}{
						"panic":  fmt.Sprintf("%v", err),
						"path":   r.URL.Path,
						"method": r.Method,
						"stack":  string(debug.Stack()),
					})
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs method/path/status/duration for every request,
// grounded on the teacher framework's LoggingMiddleware, simplified to
// always log (this server has no separate dev-mode verbosity switch).
func loggingMiddleware(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			logger.InfoContext(r.Context(), "http request handled", map[string]interface{}{
				"request_id":  requestIDFromContext(r.Context()),
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      wrapped.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}
