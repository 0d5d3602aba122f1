// Package tools provides shared utilities and types for MCP tool implementations.
package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/mcp-kubectl/internal/instrumentation"
	"github.com/giantswarm/mcp-kubectl/internal/kubectl"
	"github.com/giantswarm/mcp-kubectl/internal/server"
)

type invocationKey struct{}

// WrapWithAuditLogging wraps a tool handler with audit logging, tracing and
// tool call metrics.
//
// The wrapper records the command and active context up front. Handlers add
// what only they know (the policy decision, the exit code) through
// RecordDecision and RecordExitCode. A result with IsError set counts as a
// failed invocation and its text becomes the audit error.
func WrapWithAuditLogging(
	toolName string,
	handler ToolHandler,
	sc *server.ServerContext,
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		invocation := instrumentation.NewToolInvocation(toolName).
			WithKubeContext(sc.ContextManager().ActiveContext())

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.KubeContextAttrs(invocation.KubeContext)...)
		defer span.End()

		invocation.WithSpanContext(ctx)
		extractAuditInfoFromArgs(invocation, request.GetArguments())

		ctx = context.WithValue(ctx, invocationKey{}, invocation)
		result, err := handler(ctx, request, sc)

		switch {
		case err != nil:
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			// MCP tool errors are returned in the result, not as Go errors
			invocation.Complete(false, nil)
			invocation.Error = ResultText(result)
			instrumentation.SetSpanError(span, errors.New(invocation.Error))
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		sc.Metrics().RecordToolCall(ctx, toolName, invocation.Status(), invocation.Duration)
		sc.AuditLogger().LogToolInvocation(ctx, invocation)

		return result, err
	}
}

// extractAuditInfoFromArgs records the command or target context named in
// the request arguments.
func extractAuditInfoFromArgs(invocation *instrumentation.ToolInvocation, args map[string]interface{}) {
	if command, ok := args[ArgCommand].(string); ok && command != "" {
		// Unparsable input is still audited, as a single opaque token.
		tokens, err := kubectl.Tokenize(command)
		if err != nil || len(tokens) == 0 {
			tokens = []string{command}
		}
		invocation.WithCommand(tokens)
		cmd := kubectl.Command{Tokens: tokens}
		invocation.WithVerb(cmd.Verb(), cmd.SubVerb())
	}

	if target, ok := args[ArgContext].(string); ok && target != "" {
		invocation.WithKubeContext(target)
	}
}

// invocationFromContext returns the invocation attached by WrapWithAuditLogging.
func invocationFromContext(ctx context.Context) *instrumentation.ToolInvocation {
	invocation, _ := ctx.Value(invocationKey{}).(*instrumentation.ToolInvocation)
	return invocation
}

// RecordDecision records a read-only policy decision for the current tool
// call, in the audit record, the trace and the policy metrics.
func RecordDecision(ctx context.Context, sc *server.ServerContext, decision kubectl.Decision) {
	if invocation := invocationFromContext(ctx); invocation != nil {
		invocation.WithDecision(decision.Allowed)
	}
	trace.SpanFromContext(ctx).SetAttributes(instrumentation.DecisionAttr(decision.Allowed))
	sc.Metrics().RecordPolicyDecision(ctx, decision.Verb, decision.Allowed)
}

// RecordExitCode records the exit code of the kubectl process run by the
// current tool call.
func RecordExitCode(ctx context.Context, code int) {
	if invocation := invocationFromContext(ctx); invocation != nil {
		invocation.WithExitCode(code)
	}
	trace.SpanFromContext(ctx).SetAttributes(instrumentation.ExitCodeAttr(code))
}
