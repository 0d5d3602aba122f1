package cmd

import (
	"context"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-kubectl/internal/instrumentation"
	"github.com/giantswarm/mcp-kubectl/internal/server"
)

const sseKeepAliveInterval = 30 * time.Second

// runSSEServer serves MCP over Server-Sent Events.
func runSSEServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, config ServeConfig, sc *server.ServerContext, provider *instrumentation.Provider) error {
	sseServer := mcpserver.NewSSEServer(mcpSrv,
		mcpserver.WithSSEEndpoint(config.SSEEndpoint),
		mcpserver.WithMessageEndpoint(config.MessageEndpoint),
		mcpserver.WithKeepAlive(true),
		mcpserver.WithKeepAliveInterval(sseKeepAliveInterval),
	)

	mux := http.NewServeMux()
	mux.Handle(config.SSEEndpoint, sseServer)
	mux.Handle(config.MessageEndpoint, sseServer)

	return runHTTPServer(ctx, httpServerParams{
		transport:  transportSSE,
		mux:        mux,
		routes:     []string{config.SSEEndpoint, config.MessageEndpoint},
		config:     config,
		sc:         sc,
		provider:   provider,
		onShutdown: sseServer.Shutdown,
	})
}
