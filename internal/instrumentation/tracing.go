package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every span and meter.
const TracerName = "github.com/giantswarm/mcp-kubectl"

// Span attribute keys.
const (
	SpanAttrTool        = "mcp.tool"
	SpanAttrKubeContext = "k8s.context"
	SpanAttrClusterType = "k8s.cluster_type"
	SpanAttrVerb        = "kubectl.verb"
	SpanAttrSubVerb     = "kubectl.sub_verb"
	SpanAttrDecision    = "kubectl.policy_decision"
	SpanAttrExitCode    = "process.exit.code"
)

// KubeContextAttrs describes the context a command targets. The raw name
// is omitted when empty; the classified type is always present.
func KubeContextAttrs(name string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if name != "" {
		attrs = append(attrs, attribute.String(SpanAttrKubeContext, name))
	}
	return append(attrs, attribute.String(SpanAttrClusterType, ClassifyClusterName(name)))
}

// VerbAttrs describes the kubectl verb and, for verbs like "config view",
// the sub-verb.
func VerbAttrs(verb, subVerb string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(SpanAttrVerb, verb)}
	if subVerb != "" {
		attrs = append(attrs, attribute.String(SpanAttrSubVerb, subVerb))
	}
	return attrs
}

// DecisionAttr records the read-only policy outcome.
func DecisionAttr(allowed bool) attribute.KeyValue {
	if allowed {
		return attribute.String(SpanAttrDecision, DecisionAllowed)
	}
	return attribute.String(SpanAttrDecision, DecisionDenied)
}

// ExitCodeAttr records the kubectl exit code.
func ExitCodeAttr(code int) attribute.KeyValue {
	return attribute.Int(SpanAttrExitCode, code)
}

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartToolSpan starts the server span of an MCP tool call, named
// "tool.<name>".
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, "tool."+toolName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String(SpanAttrTool, toolName)),
		trace.WithAttributes(attrs...),
	)
}

// StartKubectlSpan starts the client span around one kubectl process.
func StartKubectlSpan(ctx context.Context, verb, kubeContext string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, "kubectl.exec",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(VerbAttrs(verb, "")...),
		trace.WithAttributes(KubeContextAttrs(kubeContext)...),
		trace.WithAttributes(attrs...),
	)
}

// SetSpanError marks span as failed. A nil err is ignored.
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanSuccess marks span as OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// spanIDs returns the trace and span IDs of the span in ctx, or empty
// strings when ctx carries no valid span.
func spanIDs(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}
