// Package logging provides structured logging utilities for the mcp-kubectl application.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Logger construction from level and format settings
//   - Consistent attribute naming across the codebase
//   - Credential masking for kubectl command lines
//   - IP address redaction in errors that quote API server URLs
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithTool(slog.Default(), "run_kubectl_command_ro")
//	logger.Info("command finished",
//	    logging.Verb("get"),
//	    logging.ExitCode(0))
//
// Mask credentials before logging a command:
//
//	logger.Debug("running", logging.Command(cmd.Tokens))
//
// # Security Considerations
//
// Values of --token, --password and --username are never logged, and API
// server URLs have IP addresses redacted to prevent topology leakage.
package logging
