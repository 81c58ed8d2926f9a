package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/mbilalbenli/pub-dev-mcp/internal/logging"
	"github.com/mbilalbenli/pub-dev-mcp/internal/registry"
	"github.com/mbilalbenli/pub-dev-mcp/internal/rpcserver"
)

// Prober checks upstream reachability for the readiness probe.
type Prober interface {
	Probe(ctx context.Context) error
}

// HTTPServer exposes POST /rpc plus the two Kubernetes-style health
// probes spec.md §6 requires: /health/live always succeeds once the
// process is up, /health/ready reflects upstream reachability.
type HTTPServer struct {
	dispatcher *rpcserver.Dispatcher
	prober     Prober
	logger     logging.Logger
	server     *http.Server
}

// NewHTTPServer wires the three routes behind the recovery/logging
// middleware chain, matching the teacher framework's Recovery ->
// Logging ordering (innermost catches panics first), with the
// correlation middleware outermost so both see the request's id.
func NewHTTPServer(addr string, dispatcher *rpcserver.Dispatcher, prober Prober, logger logging.Logger) *HTTPServer {
	if logger == nil {
		logger = logging.NoOp{}
	}
	logger = logger.WithComponent("http")

	mux := http.NewServeMux()
	s := &HTTPServer{dispatcher: dispatcher, prober: prober, logger: logger}
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.HandleFunc("/health/live", s.handleLive)
	mux.HandleFunc("/health/ready", s.handleReady)

	var handler http.Handler = mux
	handler = recoveryMiddleware(logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = correlationMiddleware()(handler)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *HTTPServer) ListenAndServe() error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	resp := s.dispatcher.Dispatch(r.Context(), json.RawMessage(body))
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp)
}

func (s *HTTPServer) handleLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "live"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	err := s.prober.Probe(ctx)

	w.Header().Set("Content-Type", "application/json")
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	case errors.Is(err, registry.ErrUpstreamRateLimited):
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "reason": "rate_limited"})
	default:
		s.logger.WarnContext(ctx, "readiness probe failed", map[string]interface{}{"error": err.Error()})
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "reason": err.Error()})
	}
}
