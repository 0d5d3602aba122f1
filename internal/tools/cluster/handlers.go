package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-kubectl/internal/instrumentation"
	"github.com/giantswarm/mcp-kubectl/internal/k8s"
	"github.com/giantswarm/mcp-kubectl/internal/logging"
	"github.com/giantswarm/mcp-kubectl/internal/server"
	"github.com/giantswarm/mcp-kubectl/internal/tools"
)

// ClusterEntry is one context in the list_clusters result.
type ClusterEntry struct {
	Name    string `json:"name"`
	Cluster string `json:"cluster"`
}

// ListClustersResult is the list_clusters result.
type ListClustersResult struct {
	Clusters      []ClusterEntry `json:"clusters"`
	ActiveContext string         `json:"active_context"`
}

// SwitchContextResult is the switch_context result.
type SwitchContextResult struct {
	Message string `json:"message"`
}

// handleListClusters lists the kubeconfig contexts and the active one.
func handleListClusters(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	contexts, err := sc.ContextManager().ListContexts(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list contexts: %v", err)), nil
	}

	result := ListClustersResult{
		Clusters:      make([]ClusterEntry, 0, len(contexts)),
		ActiveContext: sc.ContextManager().ActiveContext(),
	}
	for _, c := range contexts {
		result.Clusters = append(result.Clusters, ClusterEntry{Name: c.Name, Cluster: c.Cluster})
	}

	return jsonResult(result)
}

// handleSwitchContext changes the active context for later kubectl calls.
func handleSwitchContext(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	name, err := request.RequireString(tools.ArgContext)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := sc.ContextManager().SwitchContext(ctx, name); err != nil {
		sc.Metrics().RecordContextSwitch(ctx, instrumentation.StatusError)
		sc.Logger().Info("Context switch failed", logging.KubeContext(name), logging.Err(err))

		if errors.Is(err, k8s.ErrContextNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Context %q not found in kubeconfig. Use list_clusters to see the available contexts.", name)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to switch context: %v", err)), nil
	}

	sc.Metrics().RecordContextSwitch(ctx, instrumentation.StatusSuccess)
	return jsonResult(SwitchContextResult{Message: "Switched to context: " + name})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
