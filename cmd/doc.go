// Package cmd provides the command-line interface for mcp-kubectl.
//
// Subcommands:
//   - serve: starts the MCP server (default when no subcommand is given)
//   - version: prints the application version
//   - self-update: replaces the binary with the latest GitHub release
//
// Command structure:
//
//	mcp-kubectl [flags]                 # Starts the MCP server (default)
//	mcp-kubectl serve [flags]           # Explicitly starts the MCP server
//	mcp-kubectl version                 # Shows version information
//	mcp-kubectl self-update             # Updates to latest release
//
// Transport configuration examples:
//
//	mcp-kubectl serve --transport stdio
//	mcp-kubectl serve --transport sse --http-addr :8080 --sse-endpoint /sse
//	mcp-kubectl serve --transport streamable-http --http-addr :9000 --http-endpoint /mcp
//
// Serve settings are resolved per flag: an explicit command-line flag, then
// the YAML file given by --config, then MCP_KUBECTL_<FLAG> in the
// environment, then the flag default.
package cmd
