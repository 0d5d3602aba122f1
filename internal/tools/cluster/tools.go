package cluster

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-kubectl/internal/server"
	"github.com/giantswarm/mcp-kubectl/internal/tools"
)

// Tool names.
const (
	ToolListClusters  = "list_clusters"
	ToolSwitchContext = "switch_context"
)

// RegisterClusterTools registers the kubeconfig context tools with the MCP server.
func RegisterClusterTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listClustersTool := mcp.NewTool(ToolListClusters,
		mcp.WithDescription(`List all available Kubernetes clusters and contexts from your kubeconfig file.

Shows every context name with the cluster it points at, and which context is active. The active context is the one kubectl commands run against.

Example result: {"clusters":[{"name":"prod-cluster","cluster":"prod-k8s"},{"name":"dev-cluster","cluster":"dev-k8s"}],"active_context":"prod-cluster"}`),
		mcp.WithTitleAnnotation("List kubeconfig contexts"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
	s.AddTool(listClustersTool, tools.WrapWithAuditLogging(ToolListClusters, handleListClusters, sc))

	switchContextTool := mcp.NewTool(ToolSwitchContext,
		mcp.WithDescription(`Switch the active Kubernetes context to connect to a different cluster.

After switching, all subsequent kubectl commands are directed at the new context. The kubeconfig file itself is not modified.

Example: "dev-cluster" returns {"message":"Switched to context: dev-cluster"}`),
		mcp.WithTitleAnnotation("Switch kubeconfig context"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
		tools.ContextParam(),
	)
	s.AddTool(switchContextTool, tools.WrapWithAuditLogging(ToolSwitchContext, handleSwitchContext, sc))

	return nil
}
