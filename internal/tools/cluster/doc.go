// Package cluster registers the MCP tools that inspect and change the
// active kubeconfig context: list_clusters and switch_context.
package cluster
