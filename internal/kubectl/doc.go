// Package kubectl implements the command-safety gate and the execution
// boundary for free-text kubectl commands.
//
// The package has three parts that share a single tokenizer:
//
//   - Parse / Tokenize: split a command string into discrete arguments.
//   - Classify: decide whether a command is an allowed read-only kubectl
//     invocation. The policy is an explicit allow-list; every verb that is
//     not listed is denied.
//   - Executor: run the parsed arguments as a kubectl child process (never
//     through a shell) and return its exit code, stdout and stderr.
//
// Because classification and execution operate on the same parsed Command,
// the arguments that were validated are exactly the arguments that run.
//
// Example usage:
//
//	cmd, err := kubectl.Parse("kubectl get pods -n default")
//	if err != nil {
//		return err
//	}
//	if decision := kubectl.ClassifyCommand(cmd); !decision.Allowed {
//		return &kubectl.PolicyError{Decision: decision}
//	}
//	result, err := executor.Run(ctx, cmd)
//
// Known limitation: no timeout is applied to kubectl processes unless the
// executor is configured with one, so a hanging kubectl call blocks the
// calling tool until it exits.
package kubectl
