// Package instrumentation provides OpenTelemetry instrumentation for the
// mcp-kubectl server.
//
// This package enables observability through:
//   - OpenTelemetry metrics for HTTP requests, MCP tool calls and kubectl runs
//   - Distributed tracing for tool invocations and kubectl processes
//   - Prometheus metrics export via a dedicated /metrics endpoint
//   - OTLP export support for modern observability platforms
//   - Audit records for every tool invocation
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Tool Metrics:
//   - mcp_tool_calls_total: Counter of tool calls by tool and status
//   - mcp_tool_call_duration_seconds: Histogram of tool call durations
//
// kubectl Metrics:
//   - kubectl_commands_total: Counter of commands by tool, status and verb
//   - kubectl_command_duration_seconds: Histogram of kubectl process run time
//   - kubectl_policy_decisions_total: Counter of read-only policy decisions
//   - kubectl_context_switches_total: Counter of switch_context attempts
//
// # Cardinality Considerations
//
// Commands are free-form user input. The verb label is always passed through
// NormalizeVerb, which maps anything outside the known kubectl verbs to
// "other", and context names are reduced to a cluster type by
// ClassifyClusterName. Full command lines only appear in audit logs, never in
// metric labels.
//
// # Configuration
//
// ConfigFromEnv reads the following environment variables, rejecting
// values that do not parse:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: false)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_EXPORTER_OTLP_INSECURE: Force plaintext OTLP export (default: false)
//   - OTEL_SERVICE_NAME: Service name (default: mcp-kubectl)
//   - METRICS_DETAILED_LABELS: Add the normalized verb to command metrics (default: true)
//
// The stdout exporters write to stderr, since stdout carries the MCP stream
// in stdio mode.
//
// # Example Usage
//
//	config, err := instrumentation.ConfigFromEnv(os.Getenv)
//	if err != nil {
//		return err
//	}
//	provider, err := instrumentation.NewProvider(ctx, config)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordKubectlCommand(ctx, "run_kubectl_command_ro", "get",
//		instrumentation.CommandStatusSuccess, time.Since(start))
package instrumentation
