package kubectltools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-kubectl/internal/kubectl"
	"github.com/giantswarm/mcp-kubectl/internal/server"
	"github.com/giantswarm/mcp-kubectl/internal/tools"
	"github.com/giantswarm/mcp-kubectl/internal/tools/output"
)

// Tool names.
const (
	ToolRunReadOnly = "run_kubectl_command_ro"
	ToolRun         = "run_kubectl_command"
)

// RegisterKubectlTools registers the kubectl tools with the MCP server.
// run_kubectl_command is only registered when the server is not read-only.
func RegisterKubectlTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	h := newHandlers(sc)

	readOnlyTool := mcp.NewTool(ToolRunReadOnly,
		mcp.WithDescription(readOnlyDescription()),
		mcp.WithTitleAnnotation("Run read-only kubectl command"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
		tools.CommandParam(`The kubectl command to execute. Must start with "kubectl" and be a read-only operation, e.g. "kubectl get pods" or "kubectl describe deployment nginx".`),
	)
	s.AddTool(readOnlyTool, tools.WrapWithAuditLogging(ToolRunReadOnly, h.handleRunReadOnly, sc))

	if sc.Config().ReadOnly {
		sc.Logger().Info("Read-only mode, not registering tool", "tool", ToolRun)
		return nil
	}

	runTool := mcp.NewTool(ToolRun,
		mcp.WithDescription(`Execute any kubectl command with the privileges of your kubeconfig (use with caution).

This tool can perform destructive operations such as delete, apply, patch, scale or drain. Use run_kubectl_command_ro for read-only operations when you only need to gather information.

The command must start with "kubectl". It is split into arguments like a shell would for plain words and quotes, but no shell is involved: pipes, redirection, variables and globs are passed to kubectl literally.

Returns the stdout of the command, or an error with kubectl's stderr and exit code when the command fails.

Example: "kubectl scale deployment nginx --replicas=3" returns "deployment.apps/nginx scaled".`),
		mcp.WithTitleAnnotation("Run kubectl command"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		tools.CommandParam(`The complete kubectl command to execute. Must start with "kubectl", e.g. "kubectl delete pod nginx" or "kubectl apply -f config.yaml".`),
	)
	s.AddTool(runTool, tools.WrapWithAuditLogging(ToolRun, h.handleRun, sc))

	return nil
}

func readOnlyDescription() string {
	return fmt.Sprintf(`Execute read-only kubectl commands safely for information gathering.

Only commands that read from the cluster are run; anything else is rejected before kubectl is started.

Allowed operations: %s.

Everything else is blocked, including delete, apply, patch, create, replace, edit, scale, cordon, drain, taint, exec and config sub-commands that change the kubeconfig. Use switch_context to change the active context.

Returns the stdout of the command, or an error with kubectl's stderr and exit code when the command fails.

Example: "kubectl get pods -n default" returns "NAME    READY   STATUS    RESTARTS   AGE\nnginx   1/1     Running   0          2d".`,
		strings.Join(kubectl.ReadOnlyVerbs(), ", "))
}

// handlers holds what the kubectl tool handlers share.
type handlers struct {
	processor *output.Processor
}

func newHandlers(sc *server.ServerContext) *handlers {
	config := sc.Config()
	return &handlers{
		processor: output.NewProcessor(output.Config{
			MaxBytes:    config.MaxOutputBytes,
			MaskSecrets: config.MaskSecrets,
		}, sc.Logger()),
	}
}
