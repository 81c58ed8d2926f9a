// Command pubdevmcp is the composition root for the pub.dev Model Context
// Protocol server: it loads configuration, wires the resilience pipeline,
// registry client, caches, tool table, and JSON-RPC dispatcher, then
// serves either stdio or HTTP depending on MCP_TRANSPORT, shutting down
// gracefully on SIGINT/SIGTERM. Bootstrap ordering and signal handling
// follow the teacher framework's example command entrypoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mbilalbenli/pub-dev-mcp/internal/cache"
	"github.com/mbilalbenli/pub-dev-mcp/internal/config"
	"github.com/mbilalbenli/pub-dev-mcp/internal/domain"
	"github.com/mbilalbenli/pub-dev-mcp/internal/logging"
	"github.com/mbilalbenli/pub-dev-mcp/internal/observability"
	"github.com/mbilalbenli/pub-dev-mcp/internal/port"
	"github.com/mbilalbenli/pub-dev-mcp/internal/registry"
	"github.com/mbilalbenli/pub-dev-mcp/internal/resilience"
	"github.com/mbilalbenli/pub-dev-mcp/internal/rpcserver"
	"github.com/mbilalbenli/pub-dev-mcp/internal/tools"
	"github.com/mbilalbenli/pub-dev-mcp/internal/transport"
)

const cacheTTL = 10 * time.Minute

func main() {
	stdioFlag := flag.Bool("stdio", false, "force stdio transport regardless of MCP_TRANSPORT")
	httpFlag := flag.Bool("http", false, "force HTTP transport regardless of MCP_TRANSPORT")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	if *stdioFlag {
		cfg.Transport.Mode = "STDIO"
	}
	if *httpFlag {
		cfg.Transport.Mode = "HTTP"
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := observability.Setup(ctx, observability.Exporter(cfg.Telemetry.Exporter), "pub-dev-mcp")
	if err != nil {
		log.Fatalf("configuring telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown reported an error", map[string]interface{}{"error": err.Error()})
		}
	}()

	breakers := resilience.NewHostBreakers(logger.WithComponent("circuit-breaker"), func(name string) *resilience.CircuitBreakerConfig {
		cfgBreaker := resilience.DefaultCircuitBreakerConfig(name)
		cfgBreaker.VolumeThreshold = cfg.Resilience.CircuitBreakerFailures
		cfgBreaker.WindowSize = cfg.Resilience.CircuitBreakerWindow
		cfgBreaker.OpenDuration = cfg.Resilience.CircuitBreakerDuration
		return cfgBreaker
	})
	retryConfig := resilience.DefaultRetryConfig()
	retryConfig.MaxAttempts = cfg.Resilience.RetryCount
	retryConfig.BaseDelay = cfg.Resilience.RetryBaseDelay
	retryConfig.AttemptTimeout = cfg.Resilience.Timeout

	client := registry.NewHTTPClient(cfg.API.BaseAddress, cfg.API.UserAgent, cfg.API.SearchResultCap, retryConfig, breakers, logger.WithComponent("registry"))

	deps := tools.Deps{
		Client:        client,
		Resolver:      client,
		ScoreCache:    cache.New[domain.ScoreInsight](cacheTTL),
		DepGraphCache: cache.New[domain.DependencyGraph](cacheTTL),
		Logger:        logger.WithComponent("tools"),
	}
	table := tools.NewTable(deps)
	dispatcher := rpcserver.New(table, logger)
	if metrics, err := observability.NewMetrics(); err != nil {
		logger.Warn("metric instruments unavailable", map[string]interface{}{"error": err.Error()})
	} else {
		dispatcher = dispatcher.WithMetrics(metrics)
	}

	mode := strings.ToUpper(strings.TrimSpace(cfg.Transport.Mode))
	logger.Info("starting pub-dev-mcp", map[string]interface{}{
		"transport": mode,
		"exporter":  cfg.Telemetry.Exporter,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received", nil)
		cancel()
	}()

	if err := run(ctx, mode, cfg, dispatcher, client, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited with error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run(ctx context.Context, mode string, cfg *config.Config, dispatcher *rpcserver.Dispatcher, prober transport.Prober, logger logging.Logger) error {
	switch mode {
	case "HTTP":
		addr := port.NewManager("", "8080-8090", logger).Resolve(cfg.Transport.HTTPAddress)
		server := transport.NewHTTPServer(addr, dispatcher, prober, logger)
		logger.Info("http transport bound", map[string]interface{}{"address": addr})
		errCh := make(chan error, 1)
		go func() { errCh <- server.ListenAndServe() }()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}

	case "STDIO", "":
		server := transport.NewStdioServer(dispatcher, logger, os.Stdin, os.Stdout)
		return server.Serve(ctx)

	default:
		return fmt.Errorf("unknown MCP_TRANSPORT %q (expected STDIO or HTTP)", mode)
	}
}
