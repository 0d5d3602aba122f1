package kubectltools

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/clientcmd/api"

	"github.com/giantswarm/mcp-kubectl/internal/k8s"
	"github.com/giantswarm/mcp-kubectl/internal/kubectl"
	"github.com/giantswarm/mcp-kubectl/internal/server"
	"github.com/giantswarm/mcp-kubectl/internal/tools"
)

const kubectlBin = "/usr/local/bin/kubectl"

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) LookPath(file string) (string, error) {
	args := m.Called(file)
	return args.String(0), args.Error(1)
}

func (m *mockRunner) Run(ctx context.Context, spec kubectl.ProcessSpec) (*kubectl.Result, error) {
	args := m.Called(ctx, spec)
	if r, ok := args.Get(0).(*kubectl.Result); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func newFoundRunner() *mockRunner {
	runner := &mockRunner{}
	runner.On("LookPath", kubectl.DefaultPath).Return(kubectlBin, nil).Maybe()
	return runner
}

// testEnv bundles a server context built on a real kubeconfig file.
type testEnv struct {
	sc      *server.ServerContext
	manager *k8s.KubeconfigManager
	path    string
	logs    *bytes.Buffer
}

func writeKubeconfig(t *testing.T, current string) string {
	t.Helper()
	config := api.Config{
		Clusters: map[string]*api.Cluster{
			"prod-k8s": {Server: "https://prod.example.com"},
			"dev-k8s":  {Server: "https://dev.example.com"},
		},
		AuthInfos: map[string]*api.AuthInfo{"user": {Token: "t"}},
		Contexts: map[string]*api.Context{
			"prod-cluster": {Cluster: "prod-k8s", AuthInfo: "user"},
			"dev-cluster":  {Cluster: "dev-k8s", AuthInfo: "user"},
		},
		CurrentContext: current,
	}
	path := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, clientcmd.WriteToFile(config, path))
	return path
}

func newTestEnv(t *testing.T, runner kubectl.Runner, opts ...server.Option) *testEnv {
	t.Helper()

	path := writeKubeconfig(t, "prod-cluster")
	manager, err := k8s.NewContextManager(k8s.ContextManagerConfig{KubeconfigPath: path})
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	executor := kubectl.NewExecutor(kubectl.Config{
		Runner:   runner,
		Contexts: manager,
		Logger:   logger,
	})

	allOpts := append([]server.Option{
		server.WithContextManager(manager),
		server.WithExecutor(executor),
		server.WithLogger(logger),
	}, opts...)
	sc, err := server.NewServerContext(context.Background(), allOpts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	return &testEnv{sc: sc, manager: manager, path: path, logs: logs}
}

func (e *testEnv) call(t *testing.T, tool string, handler tools.ToolHandler, command string) *mcp.CallToolResult {
	t.Helper()
	request := mcp.CallToolRequest{}
	request.Params.Name = tool
	request.Params.Arguments = map[string]interface{}{tools.ArgCommand: command}

	result, err := tools.WrapWithAuditLogging(tool, handler, e.sc)(context.Background(), request)
	require.NoError(t, err, "handlers never return Go errors")
	require.NotNil(t, result)
	return result
}

// auditRecords returns the decoded audit log lines.
func (e *testEnv) auditRecords(t *testing.T) []map[string]interface{} {
	t.Helper()
	var records []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(e.logs.String()), "\n") {
		if line == "" {
			continue
		}
		var record map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		if record["audit"] == true {
			records = append(records, record)
		}
	}
	return records
}

func TestRunReadOnly_DeniedNeverSpawns(t *testing.T) {
	tests := []struct {
		command     string
		wantInError string
	}{
		{command: "kubectl delete pod foo", wantInError: `verb "delete"`},
		{command: "kubectl apply -f x.yaml", wantInError: `verb "apply"`},
		{command: "kubectl config use-context dev-cluster", wantInError: `"use-context"`},
		{command: "kubectl Get pods", wantInError: `verb "Get"`},
		{command: "kubectl", wantInError: "no kubectl verb"},
		{command: "", wantInError: "command"},
		{command: "ls -la", wantInError: "must start with"},
		{command: `kubectl get "pods`, wantInError: "malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			runner := &mockRunner{}
			env := newTestEnv(t, runner)
			h := newHandlers(env.sc)

			result := env.call(t, ToolRunReadOnly, h.handleRunReadOnly, tt.command)

			assert.True(t, result.IsError)
			assert.Contains(t, tools.ResultText(result), tt.wantInError)
			runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
		})
	}
}

func TestRunReadOnly_DeniedMessage(t *testing.T) {
	env := newTestEnv(t, &mockRunner{})
	h := newHandlers(env.sc)

	text := tools.ResultText(env.call(t, ToolRunReadOnly, h.handleRunReadOnly, "kubectl delete pod foo"))
	assert.Contains(t, text, "Command denied")
	assert.Contains(t, text, "get, describe")
	assert.Contains(t, text, "Delete operations require run_kubectl_command")

	readOnly := newTestEnv(t, &mockRunner{}, server.WithReadOnly(true))
	text = tools.ResultText(readOnly.call(t, ToolRunReadOnly, newHandlers(readOnly.sc).handleRunReadOnly, "kubectl delete pod foo"))
	assert.NotContains(t, text, "run_kubectl_command.")
}

func TestRunReadOnly_AllowedExecutes(t *testing.T) {
	runner := newFoundRunner()
	env := newTestEnv(t, runner)
	runner.On("Run", mock.Anything, kubectl.ProcessSpec{
		Path: kubectlBin,
		Args: []string{"get", "pods", "-n", "default"},
		Env:  []string{"KUBECONFIG=" + env.path},
	}).Return(&kubectl.Result{Stdout: "NAME  READY\nweb   1/1\n"}, nil).Once()

	h := newHandlers(env.sc)
	result := env.call(t, ToolRunReadOnly, h.handleRunReadOnly, "kubectl  get pods -n default ")

	assert.False(t, result.IsError)
	assert.Equal(t, "NAME  READY\nweb   1/1\n", tools.ResultText(result))
	runner.AssertExpectations(t)

	records := env.auditRecords(t)
	require.Len(t, records, 1)
	assert.Equal(t, ToolRunReadOnly, records[0]["tool"])
	assert.Equal(t, "allowed", records[0]["decision"])
	assert.Equal(t, "get", records[0]["verb"])
	assert.EqualValues(t, 0, records[0]["exit_code"])
	assert.Equal(t, "prod-cluster", records[0]["kube_context"])
}

func TestRun_NonZeroExit(t *testing.T) {
	runner := newFoundRunner()
	runner.On("Run", mock.Anything, mock.Anything).
		Return(&kubectl.Result{ExitCode: 1, Stderr: "Error from server (NotFound): pods \"x\" not found\n"}, nil)

	env := newTestEnv(t, runner)
	h := newHandlers(env.sc)
	result := env.call(t, ToolRun, h.handleRun, "kubectl delete pod x")

	assert.True(t, result.IsError)
	assert.Equal(t, `kubectl exited with code 1: Error from server (NotFound): pods "x" not found`, tools.ResultText(result))

	records := env.auditRecords(t)
	require.Len(t, records, 1)
	assert.Equal(t, false, records[0]["success"])
	assert.EqualValues(t, 1, records[0]["exit_code"])
	_, hasDecision := records[0]["decision"]
	assert.False(t, hasDecision, "unrestricted tool does not consult the policy")
}

func TestRun_RequiresKubectlPrefix(t *testing.T) {
	runner := &mockRunner{}
	env := newTestEnv(t, runner)
	h := newHandlers(env.sc)

	for _, command := range []string{"helm list", "", "   ", "kubectlget pods"} {
		result := env.call(t, ToolRun, h.handleRun, command)
		assert.True(t, result.IsError, command)
	}
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestRun_InjectionIsInert(t *testing.T) {
	runner := newFoundRunner()
	runner.On("Run", mock.Anything, mock.MatchedBy(func(spec kubectl.ProcessSpec) bool {
		return assert.ObjectsAreEqual([]string{"get", "pods;", "rm", "-rf", "/"}, spec.Args)
	})).Return(&kubectl.Result{ExitCode: 1, Stderr: "error: unknown"}, nil).Once()

	env := newTestEnv(t, runner)
	result := env.call(t, ToolRun, newHandlers(env.sc).handleRun, "kubectl get pods; rm -rf /")

	assert.True(t, result.IsError)
	runner.AssertExpectations(t)
}

func TestRun_ExecutionFailures(t *testing.T) {
	t.Run("kubectl not found", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("LookPath", kubectl.DefaultPath).Return("", exec.ErrNotFound)

		env := newTestEnv(t, runner)
		result := env.call(t, ToolRun, newHandlers(env.sc).handleRun, "kubectl get pods")

		assert.True(t, result.IsError)
		assert.Contains(t, tools.ResultText(result), "kubectl executable not found")
		assert.Contains(t, tools.ResultText(result), "--kubectl-path")
	})

	t.Run("timeout", func(t *testing.T) {
		runner := newFoundRunner()
		runner.On("Run", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).Return(nil, context.DeadlineExceeded)

		env := newTestEnv(t, runner)
		executor := kubectl.NewExecutor(kubectl.Config{Runner: runner, Timeout: 20 * time.Millisecond})
		sc, err := server.NewServerContext(context.Background(),
			server.WithContextManager(env.manager),
			server.WithExecutor(executor),
		)
		require.NoError(t, err)

		request := mcp.CallToolRequest{}
		request.Params.Arguments = map[string]interface{}{tools.ArgCommand: "kubectl get pods -w"}
		result, err := newHandlers(sc).handleRun(context.Background(), request, sc)
		require.NoError(t, err)

		assert.True(t, result.IsError)
		assert.Contains(t, tools.ResultText(result), "timed out")
	})
}

func TestRun_UsesActiveContextAfterSwitch(t *testing.T) {
	runner := newFoundRunner()
	env := newTestEnv(t, runner)

	runner.On("Run", mock.Anything, kubectl.ProcessSpec{
		Path: kubectlBin,
		Args: []string{"--context=dev-cluster", "get", "nodes"},
		Env:  []string{"KUBECONFIG=" + env.path},
	}).Return(&kubectl.Result{Stdout: "node-1\n"}, nil).Once()
	runner.On("Run", mock.Anything, kubectl.ProcessSpec{
		Path: kubectlBin,
		Args: []string{"get", "nodes", "--context", "prod-cluster"},
		Env:  []string{"KUBECONFIG=" + env.path},
	}).Return(&kubectl.Result{Stdout: "node-a\n"}, nil).Once()

	require.NoError(t, env.manager.SwitchContext(context.Background(), "dev-cluster"))

	h := newHandlers(env.sc)
	result := env.call(t, ToolRunReadOnly, h.handleRunReadOnly, "kubectl get nodes")
	assert.Equal(t, "node-1\n", tools.ResultText(result))

	// An explicit --context wins over the active context.
	result = env.call(t, ToolRunReadOnly, h.handleRunReadOnly, "kubectl get nodes --context prod-cluster")
	assert.Equal(t, "node-a\n", tools.ResultText(result))

	runner.AssertExpectations(t)
}

func TestRun_ReloadsAfterConfigCommand(t *testing.T) {
	runner := newFoundRunner()
	env := newTestEnv(t, runner)

	runner.On("Run", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		// Simulate kubectl rewriting the kubeconfig.
		config, err := clientcmd.LoadFromFile(env.path)
		require.NoError(t, err)
		config.CurrentContext = "dev-cluster"
		require.NoError(t, clientcmd.WriteToFile(*config, env.path))
	}).Return(&kubectl.Result{Stdout: "Switched to context \"dev-cluster\".\n"}, nil).Once()

	result := env.call(t, ToolRun, newHandlers(env.sc).handleRun, "kubectl config use-context dev-cluster")

	assert.False(t, result.IsError)
	assert.Equal(t, "dev-cluster", env.manager.ActiveContext())
}

func TestRun_OutputProcessing(t *testing.T) {
	runner := newFoundRunner()
	runner.On("Run", mock.Anything, mock.Anything).
		Return(&kubectl.Result{Stdout: `{"kind":"Secret","data":{"password":"cGFzc3dvcmQ="}}`}, nil)

	env := newTestEnv(t, runner, server.WithConfig(&server.Config{
		MaxOutputBytes: 1024,
		MaskSecrets:    true,
	}))

	result := env.call(t, ToolRunReadOnly, newHandlers(env.sc).handleRunReadOnly, "kubectl get secret db -o json")
	text := tools.ResultText(result)

	assert.False(t, result.IsError)
	assert.NotContains(t, text, "cGFzc3dvcmQ=")
	assert.Contains(t, text, "REDACTED")
}

func TestRun_OutputTruncated(t *testing.T) {
	runner := newFoundRunner()
	runner.On("Run", mock.Anything, mock.Anything).
		Return(&kubectl.Result{Stdout: strings.Repeat("pod-line\n", 100)}, nil)

	env := newTestEnv(t, runner, server.WithMaxOutputBytes(90))

	text := tools.ResultText(env.call(t, ToolRunReadOnly, newHandlers(env.sc).handleRunReadOnly, "kubectl get pods"))
	assert.True(t, strings.HasPrefix(text, strings.Repeat("pod-line\n", 10)))
	assert.Contains(t, text, "Output truncated. Showing 90 of 900 bytes.")
}

func TestRegisterKubectlTools(t *testing.T) {
	tests := []struct {
		name      string
		readOnly  bool
		wantTools []string
	}{
		{name: "read-write", wantTools: []string{ToolRun, ToolRunReadOnly}},
		{name: "read-only", readOnly: true, wantTools: []string{ToolRunReadOnly}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &mockRunner{}, server.WithReadOnly(tt.readOnly))
			s := mcpserver.NewMCPServer("test", "0.0.1", mcpserver.WithToolCapabilities(false))

			require.NoError(t, RegisterKubectlTools(s, env.sc))

			registered := s.ListTools()
			names := make([]string, 0, len(registered))
			for name := range registered {
				names = append(names, name)
			}
			assert.ElementsMatch(t, tt.wantTools, names)

			ro := registered[ToolRunReadOnly].Tool
			require.NotNil(t, ro.Annotations.ReadOnlyHint)
			assert.True(t, *ro.Annotations.ReadOnlyHint)
			assert.Contains(t, ro.Description, "config get-contexts")
			assert.Contains(t, ro.InputSchema.Required, tools.ArgCommand)

			if !tt.readOnly {
				rw := registered[ToolRun].Tool
				require.NotNil(t, rw.Annotations.DestructiveHint)
				assert.True(t, *rw.Annotations.DestructiveHint)
			}
		})
	}
}
