// Package kubectltools registers the MCP tools that run kubectl commands:
// run_kubectl_command_ro, which only runs commands the read-only policy
// allows, and run_kubectl_command, which runs any kubectl command and is
// left out when the server runs in read-only mode.
package kubectltools
