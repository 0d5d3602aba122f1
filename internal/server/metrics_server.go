package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/giantswarm/mcp-kubectl/internal/instrumentation"
)

// DefaultMetricsAddr is the listen address of the metrics server. It is kept
// off the MCP port so scrapers never share a listener with tool traffic.
const DefaultMetricsAddr = ":9090"

const metricsReadHeaderTimeout = 10 * time.Second

// MetricsServerConfig configures the metrics server.
type MetricsServerConfig struct {
	// Addr is the listen address. Empty means DefaultMetricsAddr.
	Addr string
	// InstrumentationProvider supplies the Prometheus handler.
	InstrumentationProvider *instrumentation.Provider
}

// MetricsServer serves /metrics and a plain liveness endpoint.
type MetricsServer struct {
	addr   string
	server *http.Server
}

// NewMetricsServer creates a metrics server. It does not listen until Start.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.InstrumentationProvider == nil {
		return nil, errors.New("instrumentation provider is required")
	}

	addr := config.Addr
	if addr == "" {
		addr = DefaultMetricsAddr
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", config.InstrumentationProvider.PrometheusHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{
		addr: addr,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: metricsReadHeaderTimeout,
		},
	}, nil
}

// Addr returns the configured listen address.
func (m *MetricsServer) Addr() string {
	return m.addr
}

// Start listens and serves until Shutdown. It returns http.ErrServerClosed
// after a graceful shutdown.
func (m *MetricsServer) Start() error {
	return m.server.ListenAndServe()
}

// Shutdown stops the server. After Shutdown, Start returns
// http.ErrServerClosed immediately, even if it had not been called yet.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}
