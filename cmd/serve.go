package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-kubectl/internal/instrumentation"
	"github.com/giantswarm/mcp-kubectl/internal/k8s"
	"github.com/giantswarm/mcp-kubectl/internal/kubectl"
	"github.com/giantswarm/mcp-kubectl/internal/logging"
	"github.com/giantswarm/mcp-kubectl/internal/server"
	"github.com/giantswarm/mcp-kubectl/internal/server/middleware"
	"github.com/giantswarm/mcp-kubectl/internal/tools/cluster"
	kubectltools "github.com/giantswarm/mcp-kubectl/internal/tools/kubectl"
)

// shutdownTimeout bounds graceful shutdown of the HTTP transports.
const shutdownTimeout = 30 * time.Second

// newServeCmd creates the Cobra command for starting the MCP server.
func newServeCmd() *cobra.Command {
	var (
		config     ServeConfig
		configFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP kubectl server",
		Long: `Start the MCP kubectl server to let AI clients run kubectl against the
contexts of your kubeconfig via the Model Context Protocol.

Tools:
  - list_clusters: list kubeconfig contexts and the active one
  - switch_context: change the active context (the kubeconfig is not modified)
  - run_kubectl_command_ro: run read-only kubectl commands
  - run_kubectl_command: run any kubectl command (omitted with --read-only)

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events over HTTP
  - streamable-http: Streamable HTTP transport

Every flag can also be set in the YAML file given by --config, keyed by the
flag name, or through an environment variable named MCP_KUBECTL_<FLAG>
(e.g. MCP_KUBECTL_READ_ONLY). Command-line flags win over the file, and
the file wins over the environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := layerServeFlags(cmd.Flags(), configFile, os.Getenv); err != nil {
				return err
			}
			if err := config.Validate(); err != nil {
				return err
			}
			return runServe(config)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, configFileFlag, "", "Path to a YAML config file keyed by flag name")

	// Transport flags
	flags.StringVar(&config.Transport, "transport", transportStdio, "Transport type: stdio, sse, or streamable-http")
	flags.StringVar(&config.HTTPAddr, "http-addr", ":8080", "HTTP server address (for sse and streamable-http transports)")
	flags.StringVar(&config.SSEEndpoint, "sse-endpoint", "/sse", "SSE endpoint path (for sse transport)")
	flags.StringVar(&config.MessageEndpoint, "message-endpoint", "/message", "Message endpoint path (for sse transport)")
	flags.StringVar(&config.HTTPEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http transport)")

	// kubeconfig and kubectl flags
	flags.StringVar(&config.Kubeconfig, "kubeconfig", "", "Path to the kubeconfig file (default: $KUBECONFIG or ~/.kube/config)")
	flags.StringVar(&config.Context, "context", "", "Initial active context (default: the kubeconfig's current-context)")
	flags.StringVar(&config.KubectlPath, "kubectl-path", kubectl.DefaultPath, "kubectl binary name or path")
	flags.DurationVar(&config.CommandTimeout, "command-timeout", 0, "Timeout for each kubectl command, 0 disables it")

	// Tool behaviour
	flags.BoolVar(&config.ReadOnly, "read-only", false, "Only register read-only tools (omits run_kubectl_command)")
	flags.IntVar(&config.MaxOutputBytes, "max-output-bytes", server.DefaultMaxOutputBytes, "Maximum bytes of kubectl output returned per call, 0 disables the cap")
	flags.BoolVar(&config.MaskSecrets, "mask-secrets", false, "Redact Secret data in JSON and YAML kubectl output")

	// Logging
	flags.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, or error")
	flags.StringVar(&config.LogFormat, "log-format", logging.FormatText, "Log format: text or json")
	flags.BoolVar(&config.DebugMode, "debug", false, "Enable debug logging (overrides --log-level)")

	// HTTP hardening
	flags.StringVar(&config.AllowedOrigins, "allowed-origins", "", "Comma-separated origins allowed for CORS (HTTP transports)")
	flags.Int64Var(&config.MaxRequestBytes, "max-request-bytes", middleware.DefaultMaxRequestBytes, "Maximum HTTP request body size, 0 disables the limit")
	flags.BoolVar(&config.EnableHSTS, "enable-hsts", false, "Send Strict-Transport-Security headers (only behind TLS)")

	// Metrics server
	flags.BoolVar(&config.Metrics.Enabled, "enable-metrics-server", false, "Serve Prometheus metrics on a dedicated address (requires INSTRUMENTATION_ENABLED=true)")
	flags.StringVar(&config.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Address of the dedicated metrics server")

	return cmd
}

// runServe wires the kubeconfig, kubectl executor, instrumentation, and
// tools together and runs the selected transport until shutdown.
func runServe(config ServeConfig) error {
	// Logs go to stderr; stdout carries the stdio transport.
	logger, err := logging.NewLogger(config.effectiveLogLevel(), config.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// Setup graceful shutdown - listen for both SIGINT and SIGTERM
	shutdownCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	contextManager, err := k8s.NewContextManager(k8s.ContextManagerConfig{
		KubeconfigPath: config.Kubeconfig,
		Context:        config.Context,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize kubeconfig: %w", err)
	}

	executor := kubectl.NewExecutor(kubectl.Config{
		KubectlPath: config.KubectlPath,
		Timeout:     config.CommandTimeout,
		Contexts:    contextManager,
		Logger:      logger,
	})
	if err := executor.Available(); err != nil {
		// Not fatal: tool calls report the missing binary to the client.
		logger.Warn("kubectl binary not found", "kubectl_path", config.KubectlPath, logging.Err(err))
	}

	instrumentationConfig, err := instrumentation.ConfigFromEnv(os.Getenv)
	if err != nil {
		return fmt.Errorf("invalid instrumentation environment: %w", err)
	}
	instrumentationConfig.ServiceVersion = rootCmd.Version
	if err := instrumentationConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation configuration: %w", err)
	}
	instrumentationProvider, err := instrumentation.NewProvider(shutdownCtx, instrumentationConfig,
		instrumentation.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := instrumentationProvider.Shutdown(context.Background()); err != nil {
			logger.Error("Error during instrumentation shutdown", logging.Err(err))
		}
	}()

	if instrumentationProvider.Enabled() {
		logger.Info("OpenTelemetry instrumentation enabled",
			"metrics_exporter", instrumentationConfig.MetricsExporter,
			"tracing_exporter", instrumentationConfig.TracingExporter)
	}

	serverConfig := server.NewDefaultConfig()
	serverConfig.Version = rootCmd.Version
	serverConfig.ReadOnly = config.ReadOnly
	serverConfig.MaxOutputBytes = config.MaxOutputBytes
	serverConfig.MaskSecrets = config.MaskSecrets

	serverContext, err := server.NewServerContext(shutdownCtx,
		server.WithConfig(serverConfig),
		server.WithLogger(logger),
		server.WithContextManager(contextManager),
		server.WithExecutor(executor),
		server.WithClusterProber(contextManager),
		server.WithInstrumentationProvider(instrumentationProvider),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("Error during server context shutdown", logging.Err(err))
		}
	}()

	mcpSrv, err := newMCPServer(serverContext)
	if err != nil {
		return err
	}

	logger.Info("Starting MCP kubectl server",
		slog.String(logging.KeyTransport, config.Transport),
		"version", rootCmd.Version,
		"read_only", config.ReadOnly,
		logging.KubeContext(contextManager.ActiveContext()))

	switch config.Transport {
	case transportStdio:
		return runStdioServer(shutdownCtx, mcpSrv)
	case transportSSE:
		return runSSEServer(shutdownCtx, mcpSrv, config, serverContext, instrumentationProvider)
	case transportStreamableHTTP:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, config, serverContext, instrumentationProvider)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", config.Transport)
	}
}

// newMCPServer creates the MCP server and registers every tool.
func newMCPServer(sc *server.ServerContext) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer(sc.Config().ServerName, sc.Config().Version,
		mcpserver.WithToolCapabilities(true),
	)

	if err := cluster.RegisterClusterTools(mcpSrv, sc); err != nil {
		return nil, fmt.Errorf("failed to register cluster tools: %w", err)
	}
	if err := kubectltools.RegisterKubectlTools(mcpSrv, sc); err != nil {
		return nil, fmt.Errorf("failed to register kubectl tools: %w", err)
	}

	return mcpSrv, nil
}
