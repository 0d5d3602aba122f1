package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrMethod   = "method"
	attrPath     = "path"
	attrStatus   = "status"
	attrTool     = "tool"
	attrVerb     = "verb"
	attrDecision = "decision"
)

// durationBuckets covers fast reads up to slow kubectl calls against remote clusters.
var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0}

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// MCP tool metrics
	toolCallsTotal   metric.Int64Counter
	toolCallDuration metric.Float64Histogram

	// kubectl metrics
	kubectlCommandsTotal   metric.Int64Counter
	kubectlCommandDuration metric.Float64Histogram
	policyDecisionsTotal   metric.Int64Counter
	contextSwitchesTotal   metric.Int64Counter

	// Configuration
	// detailedLabels controls whether the normalized verb label is included
	// in kubectl command metrics
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether verb labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	// Tool Metrics
	m.toolCallsTotal, err = meter.Int64Counter(
		"mcp_tool_calls_total",
		metric.WithDescription("Total number of MCP tool calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_calls_total counter: %w", err)
	}

	m.toolCallDuration, err = meter.Float64Histogram(
		"mcp_tool_call_duration_seconds",
		metric.WithDescription("MCP tool call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_call_duration_seconds histogram: %w", err)
	}

	// kubectl Metrics
	m.kubectlCommandsTotal, err = meter.Int64Counter(
		"kubectl_commands_total",
		metric.WithDescription("Total number of kubectl commands by outcome"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubectl_commands_total counter: %w", err)
	}

	m.kubectlCommandDuration, err = meter.Float64Histogram(
		"kubectl_command_duration_seconds",
		metric.WithDescription("kubectl process run time in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubectl_command_duration_seconds histogram: %w", err)
	}

	m.policyDecisionsTotal, err = meter.Int64Counter(
		"kubectl_policy_decisions_total",
		metric.WithDescription("Total number of read-only policy decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubectl_policy_decisions_total counter: %w", err)
	}

	m.contextSwitchesTotal, err = meter.Int64Counter(
		"kubectl_context_switches_total",
		metric.WithDescription("Total number of active context switch attempts"),
		metric.WithUnit("{switch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubectl_context_switches_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolCall records one MCP tool invocation with its status and duration.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string, duration time.Duration) {
	if m == nil || m.toolCallsTotal == nil || m.toolCallDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	)

	m.toolCallsTotal.Add(ctx, 1, attrs)
	m.toolCallDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordKubectlCommand records a kubectl command outcome. Duration is only
// recorded for commands whose process was started.
//
// CARDINALITY NOTE: the verb is user-supplied text. It is always passed
// through NormalizeVerb, and only added when detailedLabels is enabled.
func (m *Metrics) RecordKubectlCommand(ctx context.Context, tool, verb, status string, duration time.Duration) {
	if m == nil || m.kubectlCommandsTotal == nil || m.kubectlCommandDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels {
		attrs = append(attrs, attribute.String(attrVerb, NormalizeVerb(verb)))
	}

	m.kubectlCommandsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	if duration > 0 {
		m.kubectlCommandDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
}

// RecordPolicyDecision records an allow or deny decision of the read-only policy.
func (m *Metrics) RecordPolicyDecision(ctx context.Context, verb string, allowed bool) {
	if m == nil || m.policyDecisionsTotal == nil {
		return // Instrumentation not initialized
	}

	decision := DecisionDenied
	if allowed {
		decision = DecisionAllowed
	}

	m.policyDecisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrDecision, decision),
		attribute.String(attrVerb, NormalizeVerb(verb)),
	))
}

// RecordContextSwitch records an attempt to switch the active context.
func (m *Metrics) RecordContextSwitch(ctx context.Context, status string) {
	if m == nil || m.contextSwitchesTotal == nil {
		return // Instrumentation not initialized
	}

	m.contextSwitchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}
