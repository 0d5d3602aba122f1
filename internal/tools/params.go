package tools

import (
	mcp "github.com/mark3labs/mcp-go/mcp"
)

// CommandParam returns the required "command" parameter of the kubectl tools.
func CommandParam(description string) mcp.ToolOption {
	return mcp.WithString(ArgCommand,
		mcp.Required(),
		mcp.Description(description),
	)
}

// ContextParam returns the required "context" parameter of switch_context.
func ContextParam() mcp.ToolOption {
	return mcp.WithString(ArgContext,
		mcp.Required(),
		mcp.Description("The name of the context to switch to. Must be a context name from your kubeconfig file; use list_clusters to see the available contexts."),
	)
}
