package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/giantswarm/mcp-kubectl/internal/instrumentation"
	"github.com/giantswarm/mcp-kubectl/internal/k8s"
	"github.com/giantswarm/mcp-kubectl/internal/kubectl"
)

// ServerContext carries the dependencies of the tool handlers and health
// endpoints. It is immutable once NewServerContext returns, apart from the
// shutdown flag.
type ServerContext struct {
	contextManager k8s.ContextManager
	executor       *kubectl.Executor
	logger         *slog.Logger
	config         *Config

	// clusterProber is optional; when set, readiness also checks that the
	// API server of the active context answers.
	clusterProber           k8s.ClusterProber
	instrumentationProvider *instrumentation.Provider

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	shutdown     atomic.Bool
}

// NewServerContext applies opts and checks that the context manager and
// executor were provided. The returned context is cancelled by Shutdown or
// when ctx is done.
func NewServerContext(ctx context.Context, opts ...Option) (*ServerContext, error) {
	sc := &ServerContext{
		config: NewDefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(sc); err != nil {
			return nil, err
		}
	}
	if sc.contextManager == nil {
		return nil, ErrMissingContextManager
	}
	if sc.executor == nil {
		return nil, ErrMissingExecutor
	}

	sc.ctx, sc.cancel = context.WithCancel(ctx)
	return sc, nil
}

// Accessors for the dependencies set by the options.

func (sc *ServerContext) Context() context.Context { return sc.ctx }
func (sc *ServerContext) ContextManager() k8s.ContextManager { return sc.contextManager }
func (sc *ServerContext) Executor() *kubectl.Executor { return sc.executor }
func (sc *ServerContext) ClusterProber() k8s.ClusterProber { return sc.clusterProber }
func (sc *ServerContext) Logger() *slog.Logger { return sc.logger }
func (sc *ServerContext) Config() *Config { return sc.config }
func (sc *ServerContext) InstrumentationProvider() *instrumentation.Provider {
	return sc.instrumentationProvider
}

// Metrics returns the metrics recorder. The result may be nil; all
// recording methods are nil-safe.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.instrumentationProvider.Metrics()
}

// AuditLogger returns the provider's audit logger, or one writing to the
// server logger when instrumentation is not configured.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	if sc.instrumentationProvider != nil {
		return sc.instrumentationProvider.AuditLogger()
	}
	return instrumentation.NewAuditLogger(sc.logger)
}

// Shutdown cancels the server context. Calling it again is a no-op.
func (sc *ServerContext) Shutdown() error {
	sc.shutdownOnce.Do(func() {
		sc.shutdown.Store(true)
		sc.cancel()
		sc.logger.Info("Server context shut down")
	})
	return nil
}

// IsShutdown reports whether Shutdown was called.
func (sc *ServerContext) IsShutdown() bool {
	return sc.shutdown.Load()
}

// Config holds the settings tool handlers consult on every call.
type Config struct {
	ServerName string
	Version    string

	// ReadOnly omits the unrestricted run_kubectl_command tool.
	ReadOnly bool

	// MaxOutputBytes caps the kubectl output returned to the client.
	// Zero disables the cap.
	MaxOutputBytes int

	// MaskSecrets redacts Secret data in JSON and YAML kubectl output.
	MaskSecrets bool
}

// DefaultMaxOutputBytes is the default cap on kubectl output returned by tools.
const DefaultMaxOutputBytes = 1 << 20

// NewDefaultConfig returns the configuration used when none is given.
func NewDefaultConfig() *Config {
	return &Config{
		ServerName:     "mcp-kubectl",
		Version:        "dev",
		MaxOutputBytes: DefaultMaxOutputBytes,
	}
}

// Clone returns a copy of c, or nil for a nil c.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
