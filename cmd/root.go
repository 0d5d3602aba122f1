package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the mcp-kubectl application.
var rootCmd = &cobra.Command{
	Use:   "mcp-kubectl",
	Short: "MCP server for kubectl",
	Long: `mcp-kubectl is a Model Context Protocol (MCP) server that lets AI clients
run kubectl against the clusters in your kubeconfig. Read-only commands go
through a fail-closed safety gate; an unrestricted tool is available unless
the server runs in read-only mode.

When run without subcommands, it starts the MCP server (equivalent to 'mcp-kubectl serve').`,
	// Errors are reported by Execute; usage output would only add noise.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// It is called from the main package to inject the version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcp-kubectl version %s\n" .Version}}`)

	// No subcommand means serve.
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
	rootCmd.AddCommand(newServeCmd())
}
