package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/mcp-kubectl/internal/instrumentation"
	"github.com/giantswarm/mcp-kubectl/internal/logging"
	"github.com/giantswarm/mcp-kubectl/internal/server"
	"github.com/giantswarm/mcp-kubectl/internal/server/middleware"
)

// healthRoutes are registered by server.HealthChecker on every HTTP transport.
var healthRoutes = []string{"/healthz", "/readyz", "/healthz/detailed"}

// runStreamableHTTPServer serves MCP over the Streamable HTTP transport.
func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, config ServeConfig, sc *server.ServerContext, provider *instrumentation.Provider) error {
	mcpHandler := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(config.HTTPEndpoint),
	)

	mux := http.NewServeMux()
	mux.Handle(config.HTTPEndpoint, mcpHandler)

	return runHTTPServer(ctx, httpServerParams{
		transport:  transportStreamableHTTP,
		mux:        mux,
		routes:     []string{config.HTTPEndpoint},
		config:     config,
		sc:         sc,
		provider:   provider,
		onShutdown: mcpHandler.Shutdown,
	})
}

type httpServerParams struct {
	transport string
	mux       *http.ServeMux
	// routes are the MCP endpoint paths, used as metric labels.
	routes   []string
	config   ServeConfig
	sc       *server.ServerContext
	provider *instrumentation.Provider
	// onShutdown stops the transport's sessions before the listener closes.
	onShutdown func(context.Context) error
}

// runHTTPServer adds health endpoints and the middleware chain to p.mux,
// then serves it, and the metrics server if enabled, until ctx is cancelled
// or a listener fails.
func runHTTPServer(ctx context.Context, p httpServerParams) error {
	logger := p.sc.Logger()

	health := server.NewHealthChecker(p.sc)
	health.RegisterHealthEndpoints(p.mux)

	origins, err := middleware.ValidateAllowedOrigins(p.config.AllowedOrigins)
	if err != nil {
		return err
	}

	routes := append(append([]string{}, p.routes...), healthRoutes...)
	var handler http.Handler = p.mux
	handler = middleware.MaxRequestSize(p.config.MaxRequestBytes)(handler)
	handler = middleware.CORS(origins)(handler)
	handler = middleware.SecurityHeaders(p.config.EnableHSTS)(handler)
	handler = middleware.HTTPMetrics(p.provider, routes...)(handler)

	httpServer := &http.Server{
		Addr:              p.config.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	metricsServer, err := newMetricsServer(p.config.Metrics, p.provider, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server starting",
			logging.KeyTransport, p.transport,
			"addr", p.config.HTTPAddr,
			"endpoints", p.routes,
			"health_endpoints", healthRoutes)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			logger.Info("metrics server starting", "addr", metricsServer.Addr(), "endpoint", "/metrics")
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server stopped with error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, stopping HTTP server")
		health.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if p.onShutdown != nil {
			if err := p.onShutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("error shutting down %s transport: %w", p.transport, err))
			}
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("error shutting down metrics server: %w", err))
			}
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("error shutting down HTTP server: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("HTTP server gracefully stopped")
	return nil
}

// newMetricsServer returns the dedicated metrics server, or nil when it is
// disabled or there are no Prometheus metrics to serve.
func newMetricsServer(config MetricsServeConfig, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	if !config.Enabled {
		return nil, nil
	}
	if provider == nil || !provider.Enabled() || provider.Config().MetricsExporter != instrumentation.MetricsExporterPrometheus {
		logger.Warn("metrics server requested but Prometheus metrics are not enabled",
			"hint", instrumentation.EnvEnabled+"=true "+instrumentation.EnvMetricsExporter+"="+instrumentation.MetricsExporterPrometheus)
		return nil, nil
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    config.Addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}
	return metricsServer, nil
}
