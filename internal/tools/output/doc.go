// Package output post-processes kubectl stdout before it is returned to an
// MCP client.
//
// Two transformations are applied, in order:
//
//   - Secret masking (opt-in): when a command prints JSON or YAML
//     (-o json, -o yaml), the data and stringData of every Secret, including
//     Secrets inside a List, are replaced with "***REDACTED***". Output that
//     contains no Secret is returned byte for byte.
//   - Size cap: output beyond Config.MaxBytes is cut at a line boundary and a
//     notice with the shown and total sizes is appended.
//
// Usage:
//
//	processor := output.NewProcessor(output.Config{MaxBytes: 1 << 20, MaskSecrets: true}, logger)
//	result := processor.Process(stdout, cmd.Args())
package output
