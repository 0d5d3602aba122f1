package kubectl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// DefaultPath is the kubectl program looked up on PATH when no path is configured.
const DefaultPath = "kubectl"

// Result is the normalized outcome of a kubectl process that ran to completion.
// A non-zero ExitCode is a normal result, not an error.
type Result struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// ContextSource supplies the kubeconfig selection for each execution.
type ContextSource interface {
	// ContextOverride returns the context name to pass via --context, or ""
	// when kubectl should use the kubeconfig's current-context.
	ContextOverride() string
	// KubeconfigPath returns an explicitly configured kubeconfig path, or ""
	// when kubectl should resolve it from its own environment.
	KubeconfigPath() string
}

// ProcessSpec describes a single child process.
type ProcessSpec struct {
	Path string
	Args []string
	// Env holds extra KEY=VALUE entries appended to the parent environment.
	Env []string
}

// Runner starts processes. It returns a Result for every process that was
// started and exited, and an error only when the process could not be started.
type Runner interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, spec ProcessSpec) (*Result, error)
}

// Config holds the executor settings.
type Config struct {
	// KubectlPath is the kubectl binary name or path. Defaults to DefaultPath.
	KubectlPath string
	// Timeout bounds each execution. Zero disables the timeout.
	Timeout time.Duration
	// Contexts provides the active context. Optional.
	Contexts ContextSource
	// Runner overrides the process runner. Defaults to an os/exec based runner.
	Runner Runner
	Logger *slog.Logger
}

// Executor runs kubectl commands as child processes without a shell.
type Executor struct {
	kubectlPath string
	timeout     time.Duration
	contexts    ContextSource
	runner      Runner
	logger      *slog.Logger
}

// NewExecutor creates an Executor from cfg, filling in defaults.
func NewExecutor(cfg Config) *Executor {
	if cfg.KubectlPath == "" {
		cfg.KubectlPath = DefaultPath
	}
	if cfg.Runner == nil {
		cfg.Runner = execRunner{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Executor{
		kubectlPath: cfg.KubectlPath,
		timeout:     cfg.Timeout,
		contexts:    cfg.Contexts,
		runner:      cfg.Runner,
		logger:      cfg.Logger,
	}
}

// KubectlPath returns the configured kubectl binary.
func (e *Executor) KubectlPath() string {
	return e.kubectlPath
}

// Timeout returns the configured per-command timeout; zero means none.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Available reports whether the kubectl binary can be resolved.
func (e *Executor) Available() error {
	if _, err := e.runner.LookPath(e.kubectlPath); err != nil {
		return &ExecutionError{Kind: KindNotFound, Program: e.kubectlPath, Err: err}
	}
	return nil
}

// Execute parses command and runs it. See Run.
func (e *Executor) Execute(ctx context.Context, command string) (*Result, error) {
	cmd, err := Parse(command)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, cmd)
}

// BuildArgs returns the argv (without the program name) and the extra
// environment used to run cmd.
//
// The active context is snapshotted here. When it differs from the
// kubeconfig's current-context and cmd does not select a context itself,
// --context=<active> is prepended.
func (e *Executor) BuildArgs(cmd Command) ([]string, []string) {
	args := cmd.Args()
	var env []string

	if e.contexts == nil {
		return args, env
	}

	if override := e.contexts.ContextOverride(); override != "" && !cmd.HasContextFlag() {
		args = append([]string{"--context=" + override}, args...)
	}
	if path := e.contexts.KubeconfigPath(); path != "" {
		env = append(env, "KUBECONFIG="+path)
	}
	return args, env
}

// Run executes an already parsed command and waits for it to exit.
//
// Cancellation of ctx does not stop the process; only the configured timeout
// does. A process that exits non-zero returns a Result and a nil error.
func (e *Executor) Run(ctx context.Context, cmd Command) (*Result, error) {
	if len(cmd.Tokens) == 0 || cmd.Tokens[0] != Program {
		return nil, fmt.Errorf("%w: command must start with %q", ErrMalformedCommand, Program)
	}

	path, err := e.runner.LookPath(e.kubectlPath)
	if err != nil {
		return nil, &ExecutionError{Kind: KindNotFound, Program: e.kubectlPath, Err: err}
	}

	args, env := e.BuildArgs(cmd)

	runCtx := context.WithoutCancel(ctx)
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	e.logger.Debug("Running kubectl", slog.String("path", path), slog.Any("args", args))

	result, err := e.runner.Run(runCtx, ProcessSpec{Path: path, Args: args, Env: env})

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, &ExecutionError{
			Kind:    KindTimeout,
			Program: e.kubectlPath,
			Err:     fmt.Errorf("exceeded %s", e.timeout),
		}
	}
	if err != nil {
		kind := KindStartFailed
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			kind = KindNotFound
		}
		return nil, &ExecutionError{Kind: kind, Program: e.kubectlPath, Err: err}
	}

	e.logger.Debug("kubectl finished",
		slog.Int("exit_code", result.ExitCode),
		slog.Duration("duration", time.Since(start)))

	return result, nil
}

// waitDelay bounds how long output copying may continue after the process is killed.
const waitDelay = 2 * time.Second

// execRunner runs processes with os/exec.
type execRunner struct{}

func (execRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (execRunner) Run(ctx context.Context, spec ProcessSpec) (*Result, error) {
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	// Grandchildren may keep the output pipes open after kubectl is killed.
	cmd.WaitDelay = waitDelay
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, err
		}
		return &Result{
			ExitCode: exitErr.ExitCode(),
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
		}, nil
	}

	return &Result{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
