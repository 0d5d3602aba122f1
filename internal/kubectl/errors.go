package kubectl

import (
	"errors"
	"fmt"
)

// Sentinel errors for command handling. Use errors.Is to test for them.
var (
	// ErrPolicyDenied is returned when the read-only policy rejects a command.
	ErrPolicyDenied = errors.New("command denied by read-only policy")

	// ErrMalformedCommand is returned for empty input, unbalanced quotes or a
	// command that does not start with the kubectl program name.
	ErrMalformedCommand = errors.New("malformed kubectl command")

	// ErrNotFound is returned when the kubectl binary cannot be found or is not executable.
	ErrNotFound = errors.New("kubectl executable not found")

	// ErrTimeout is returned when a configured command timeout expires.
	ErrTimeout = errors.New("kubectl command timed out")

	// ErrStartFailed is returned when the process could not be started for
	// any reason other than a missing binary.
	ErrStartFailed = errors.New("kubectl process could not be started")
)

// ErrorKind classifies an ExecutionError.
type ErrorKind int

const (
	// KindStartFailed means the process could not be started.
	KindStartFailed ErrorKind = iota
	// KindNotFound means the program was missing or not executable.
	KindNotFound
	// KindTimeout means the process was killed after the configured timeout.
	KindTimeout
)

// String returns the string representation of an ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	default:
		return "start_failed"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindTimeout:
		return ErrTimeout
	default:
		return ErrStartFailed
	}
}

// ExecutionError reports that a kubectl process could not run to completion.
// A process that runs and exits non-zero is not an ExecutionError.
type ExecutionError struct {
	Kind    ErrorKind
	Program string
	Err     error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind.sentinel(), e.Program)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind.sentinel(), e.Program, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel that matches the error kind.
func (e *ExecutionError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// PolicyError wraps a denied Decision so it can travel as an error.
type PolicyError struct {
	Decision Decision
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPolicyDenied, e.Decision.Reason)
}

// Is reports whether target is ErrPolicyDenied.
func (e *PolicyError) Is(target error) bool {
	return target == ErrPolicyDenied
}
