package tools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/giantswarm/mcp-kubectl/internal/instrumentation"
	"github.com/giantswarm/mcp-kubectl/internal/kubectl"
	"github.com/giantswarm/mcp-kubectl/internal/server"
)

// PolicyDeniedResult builds the error result for a command the read-only
// policy rejected. When the unrestricted tool is registered and the verb is
// a real kubectl command, the message points the caller at it.
func PolicyDeniedResult(sc *server.ServerContext, decision kubectl.Decision) *mcp.CallToolResult {
	var b strings.Builder
	fmt.Fprintf(&b, "Command denied: %s. Allowed read-only commands: %s.",
		decision.Reason, strings.Join(kubectl.ReadOnlyVerbs(), ", "))

	if !sc.Config().ReadOnly && instrumentation.NormalizeVerb(decision.Verb) == decision.Verb {
		fmt.Fprintf(&b, " %s operations require run_kubectl_command.",
			cases.Title(language.English).String(decision.Verb))
	}

	return mcp.NewToolResultError(b.String())
}
