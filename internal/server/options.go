package server

import (
	"errors"
	"log/slog"

	"github.com/giantswarm/mcp-kubectl/internal/instrumentation"
	"github.com/giantswarm/mcp-kubectl/internal/k8s"
	"github.com/giantswarm/mcp-kubectl/internal/kubectl"
)

var (
	ErrMissingContextManager = errors.New("context manager is required")
	ErrMissingExecutor       = errors.New("kubectl executor is required")
	ErrMissingLogger         = errors.New("logger is required")
	ErrMissingConfig         = errors.New("configuration is required")
	ErrInvalidMaxOutput      = errors.New("max output bytes must not be negative")
)

// Option configures a ServerContext.
type Option func(*ServerContext) error

func WithContextManager(manager k8s.ContextManager) Option {
	return func(sc *ServerContext) error {
		if manager == nil {
			return ErrMissingContextManager
		}
		sc.contextManager = manager
		return nil
	}
}

func WithExecutor(executor *kubectl.Executor) Option {
	return func(sc *ServerContext) error {
		if executor == nil {
			return ErrMissingExecutor
		}
		sc.executor = executor
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) error {
		if logger == nil {
			return ErrMissingLogger
		}
		sc.logger = logger
		return nil
	}
}

// WithConfig replaces the whole configuration with a copy of config.
// Options that tweak single settings must come after it.
func WithConfig(config *Config) Option {
	return func(sc *ServerContext) error {
		if config == nil {
			return ErrMissingConfig
		}
		sc.config = config.Clone()
		return nil
	}
}

// WithReadOnly omits run_kubectl_command from the registered tools.
func WithReadOnly(enabled bool) Option {
	return func(sc *ServerContext) error {
		sc.config.ReadOnly = enabled
		return nil
	}
}

// WithMaxOutputBytes sets the cap on kubectl output returned by tools.
func WithMaxOutputBytes(n int) Option {
	return func(sc *ServerContext) error {
		if n < 0 {
			return ErrInvalidMaxOutput
		}
		sc.config.MaxOutputBytes = n
		return nil
	}
}

// WithClusterProber enables the API server reachability check in /readyz.
// A nil prober leaves it disabled.
func WithClusterProber(prober k8s.ClusterProber) Option {
	return func(sc *ServerContext) error {
		sc.clusterProber = prober
		return nil
	}
}

// WithInstrumentationProvider enables metrics, tracing and provider-backed
// audit logging. A nil provider leaves them disabled.
func WithInstrumentationProvider(provider *instrumentation.Provider) Option {
	return func(sc *ServerContext) error {
		sc.instrumentationProvider = provider
		return nil
	}
}
