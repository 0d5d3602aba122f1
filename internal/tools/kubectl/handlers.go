package kubectltools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-kubectl/internal/instrumentation"
	"github.com/giantswarm/mcp-kubectl/internal/kubectl"
	"github.com/giantswarm/mcp-kubectl/internal/logging"
	"github.com/giantswarm/mcp-kubectl/internal/server"
	"github.com/giantswarm/mcp-kubectl/internal/tools"
)

// handleRunReadOnly classifies the command and runs it only when allowed.
func (h *handlers) handleRunReadOnly(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	command, err := request.RequireString(tools.ArgCommand)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cmd, parseErr := kubectl.Parse(command)
	decision := kubectl.Decision{Reason: errorReason(parseErr)}
	if parseErr == nil {
		decision = kubectl.ClassifyCommand(cmd)
	}

	tools.RecordDecision(ctx, sc, decision)
	if !decision.Allowed {
		sc.Logger().Info("Command denied by read-only policy",
			logging.Tool(ToolRunReadOnly),
			logging.Verb(decision.Verb),
			logging.SubVerb(decision.SubVerb),
			slog.String("reason", decision.Reason))
		sc.Metrics().RecordKubectlCommand(ctx, ToolRunReadOnly, decision.Verb, instrumentation.CommandStatusDenied, 0)
		return tools.PolicyDeniedResult(sc, decision), nil
	}

	return h.execute(ctx, sc, ToolRunReadOnly, cmd)
}

// handleRun runs any kubectl command.
func (h *handlers) handleRun(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	command, err := request.RequireString(tools.ArgCommand)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cmd, err := kubectl.Parse(command)
	if err != nil {
		sc.Metrics().RecordKubectlCommand(ctx, ToolRun, "", instrumentation.CommandStatusInvalid, 0)
		return mcp.NewToolResultError(fmt.Sprintf("Invalid command: %v", err)), nil
	}

	result, err := h.execute(ctx, sc, ToolRun, cmd)

	// kubectl config sub-commands may rewrite the kubeconfig, including its
	// current-context.
	if cmd.Verb() == "config" {
		if reloadErr := sc.ContextManager().Reload(); reloadErr != nil {
			sc.Logger().Warn("Failed to reload kubeconfig after config command", logging.Err(reloadErr))
		}
	}

	return result, err
}

// execute runs cmd against the active context and converts the outcome to
// a tool result. Every failure is returned as an error result.
func (h *handlers) execute(ctx context.Context, sc *server.ServerContext, tool string, cmd kubectl.Command) (*mcp.CallToolResult, error) {
	verb := cmd.Verb()
	ctx, span := instrumentation.StartKubectlSpan(ctx, verb, sc.ContextManager().ActiveContext())
	defer span.End()

	logger := logging.WithTool(sc.Logger(), tool)
	start := time.Now()
	result, err := sc.Executor().Run(ctx, cmd)
	duration := time.Since(start)

	if err != nil {
		instrumentation.SetSpanError(span, err)

		status := instrumentation.CommandStatusError
		switch {
		case errors.Is(err, kubectl.ErrTimeout):
			status = instrumentation.CommandStatusTimeout
		case errors.Is(err, kubectl.ErrNotFound):
			// Never started, so no duration.
			duration = 0
		}
		sc.Metrics().RecordKubectlCommand(ctx, tool, verb, status, duration)

		logger.Error("kubectl could not be run", logging.Verb(verb), logging.Err(err))
		return mcp.NewToolResultError(executionErrorMessage(err)), nil
	}

	tools.RecordExitCode(ctx, result.ExitCode)

	if result.ExitCode != 0 {
		instrumentation.SetSpanError(span, fmt.Errorf("exit code %d", result.ExitCode))
		sc.Metrics().RecordKubectlCommand(ctx, tool, verb, instrumentation.CommandStatusFailed, duration)
		logger.Info("kubectl exited with an error",
			logging.Verb(verb),
			logging.ExitCode(result.ExitCode),
			logging.Duration(duration))
		return mcp.NewToolResultError(fmt.Sprintf("kubectl exited with code %d: %s",
			result.ExitCode, strings.TrimSpace(result.Stderr))), nil
	}

	instrumentation.SetSpanSuccess(span)
	sc.Metrics().RecordKubectlCommand(ctx, tool, verb, instrumentation.CommandStatusSuccess, duration)

	processed := h.processor.Process(result.Stdout, cmd.Args())
	if processed.Truncation != nil {
		logger.Info("kubectl output truncated",
			logging.Verb(verb),
			slog.Int("shown_bytes", processed.Truncation.Shown),
			slog.Int("total_bytes", processed.Truncation.Total))
	}

	return mcp.NewToolResultText(processed.Text), nil
}

func executionErrorMessage(err error) string {
	switch {
	case errors.Is(err, kubectl.ErrNotFound):
		return fmt.Sprintf("Failed to run kubectl: %v. Install kubectl or point --kubectl-path at it.", err)
	case errors.Is(err, kubectl.ErrTimeout):
		return fmt.Sprintf("Failed to run kubectl: %v. Narrow the command or raise --command-timeout.", err)
	default:
		return fmt.Sprintf("Failed to run kubectl: %v", err)
	}
}

func errorReason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
