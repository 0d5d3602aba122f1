package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/version"

	"github.com/giantswarm/mcp-kubectl/internal/instrumentation"
	"github.com/giantswarm/mcp-kubectl/internal/k8s"
	"github.com/giantswarm/mcp-kubectl/internal/kubectl"
)

// stubRunner resolves kubectl according to found and never runs anything.
type stubRunner struct {
	found bool
}

func (r stubRunner) LookPath(file string) (string, error) {
	if !r.found {
		return "", exec.ErrNotFound
	}
	return "/usr/local/bin/" + file, nil
}

func (r stubRunner) Run(ctx context.Context, spec kubectl.ProcessSpec) (*kubectl.Result, error) {
	return &kubectl.Result{}, nil
}

// stubContextManager is a fixed two-context kubeconfig.
type stubContextManager struct {
	active string
}

func (m *stubContextManager) ListContexts(ctx context.Context) ([]k8s.ContextInfo, error) {
	return []k8s.ContextInfo{
		{Name: "dev-cluster", Cluster: "dev-k8s", Current: m.active == "dev-cluster"},
		{Name: "prod-cluster", Cluster: "prod-k8s", Current: m.active == "prod-cluster"},
	}, nil
}

func (m *stubContextManager) GetCurrentContext(ctx context.Context) (*k8s.ContextInfo, error) {
	return &k8s.ContextInfo{Name: m.active, Current: true}, nil
}

func (m *stubContextManager) ActiveContext() string { return m.active }

func (m *stubContextManager) SwitchContext(ctx context.Context, name string) error {
	m.active = name
	return nil
}

func (m *stubContextManager) Reload() error { return nil }

// stubProber answers ServerVersion with a fixed version or error.
type stubProber struct {
	err error
}

func (p stubProber) ServerVersion(ctx context.Context) (*version.Info, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &version.Info{GitVersion: "v1.31.2"}, nil
}

func newHealthTestContext(kubectlFound bool) *ServerContext {
	return &ServerContext{
		config:         NewDefaultConfig(),
		contextManager: &stubContextManager{active: "prod-cluster"},
		executor: kubectl.NewExecutor(kubectl.Config{
			Runner:  stubRunner{found: kubectlFound},
			Timeout: 30 * time.Second,
		}),
	}
}

func TestHealthChecker_ReadyFlag(t *testing.T) {
	h := NewHealthChecker(&ServerContext{config: NewDefaultConfig()})
	require.False(t, h.startTime.IsZero())

	assert.True(t, h.IsReady(), "starts ready")
	h.SetReady(false)
	assert.False(t, h.IsReady())
	h.SetReady(true)
	assert.True(t, h.IsReady())
}

func TestLivenessHandler(t *testing.T) {
	h := NewHealthChecker(newHealthTestContext(false))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.LivenessHandler().ServeHTTP(rec, req)

	// Liveness does not depend on kubectl being installed.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "dev", response.Version)
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(sc *ServerContext, h *HealthChecker)
		kubectlFound bool
		wantCode     int
		wantChecks   map[string]string
	}{
		{
			name:         "ready",
			kubectlFound: true,
			wantCode:     http.StatusOK,
			wantChecks:   map[string]string{"ready": "ok", "shutdown": "ok", "kubectl": "ok"},
		},
		{
			name:         "kubectl missing",
			kubectlFound: false,
			wantCode:     http.StatusServiceUnavailable,
			wantChecks:   map[string]string{"kubectl": "not found"},
		},
		{
			name:         "marked not ready",
			kubectlFound: true,
			setup:        func(_ *ServerContext, h *HealthChecker) { h.SetReady(false) },
			wantCode:     http.StatusServiceUnavailable,
			wantChecks:   map[string]string{"ready": "not ready"},
		},
		{
			name:         "shutting down",
			kubectlFound: true,
			setup:        func(sc *ServerContext, _ *HealthChecker) { sc.shutdown.Store(true) },
			wantCode:     http.StatusServiceUnavailable,
			wantChecks:   map[string]string{"shutdown": "shutting down"},
		},
		{
			name:         "cluster reachable",
			kubectlFound: true,
			setup:        func(sc *ServerContext, _ *HealthChecker) { sc.clusterProber = stubProber{} },
			wantCode:     http.StatusOK,
			wantChecks:   map[string]string{"cluster": "ok"},
		},
		{
			name:         "cluster unreachable",
			kubectlFound: true,
			setup: func(sc *ServerContext, _ *HealthChecker) {
				sc.clusterProber = stubProber{err: errors.New("dial tcp 10.0.0.1:6443: connection refused")}
			},
			wantCode:   http.StatusServiceUnavailable,
			wantChecks: map[string]string{"cluster": "unreachable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := newHealthTestContext(tt.kubectlFound)
			h := NewHealthChecker(sc)
			if tt.setup != nil {
				tt.setup(sc, h)
			}

			rec := httptest.NewRecorder()
			h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)

			var response HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
			for key, want := range tt.wantChecks {
				assert.Equal(t, want, response.Checks[key], "check %q", key)
			}
		})
	}
}

func TestReadinessHandler_Instrumentation(t *testing.T) {
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{Enabled: false})
	require.NoError(t, err)

	sc := newHealthTestContext(true)
	sc.instrumentationProvider = provider
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var response HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "disabled", response.Checks["instrumentation"])
}

func TestDetailedHealthHandler(t *testing.T) {
	sc := newHealthTestContext(true)
	sc.clusterProber = stubProber{}
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var response DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "read-write", response.Mode)
	assert.NotEmpty(t, response.Uptime)

	require.NotNil(t, response.Kubectl)
	assert.Equal(t, kubectl.DefaultPath, response.Kubectl.Path)
	assert.True(t, response.Kubectl.Available)
	assert.Equal(t, "30s", response.Kubectl.Timeout)

	require.NotNil(t, response.Kubeconfig)
	assert.Equal(t, "prod-cluster", response.Kubeconfig.ActiveContext)
	assert.Equal(t, 2, response.Kubeconfig.Contexts)

	require.NotNil(t, response.Cluster)
	assert.True(t, response.Cluster.Reachable)
	assert.Equal(t, "v1.31.2", response.Cluster.ServerVersion)

	require.NotNil(t, response.Instrumentation)
	assert.False(t, response.Instrumentation.Enabled)
}

func TestDetailedHealthHandler_ClusterErrorIsSanitized(t *testing.T) {
	sc := newHealthTestContext(true)
	sc.clusterProber = stubProber{err: errors.New("dial tcp 10.0.0.1:6443: connection refused")}
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	var response DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	require.NotNil(t, response.Cluster)
	assert.False(t, response.Cluster.Reachable)
	assert.NotContains(t, response.Cluster.Error, "10.0.0.1")
	assert.Contains(t, response.Cluster.Error, "<redacted-ip>")
}

func TestDetailedHealthHandler_NotReady(t *testing.T) {
	h := NewHealthChecker(newHealthTestContext(true))
	h.SetReady(false)

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var response DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "not ready", response.Status)
}

func TestDetailedHealthHandler_ShuttingDown(t *testing.T) {
	sc := newHealthTestContext(true)
	sc.shutdown.Store(true)
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var response DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "shutting down", response.Status)
}

func TestDetailedHealthHandler_NilServerContext(t *testing.T) {
	h := NewHealthChecker(nil)

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var response DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "unknown", response.Mode)
	assert.Nil(t, response.Kubectl)
}

func TestDetermineMode(t *testing.T) {
	tests := []struct {
		name     string
		sc       *ServerContext
		expected string
	}{
		{name: "nil context", sc: nil, expected: "unknown"},
		{name: "read-write", sc: &ServerContext{config: NewDefaultConfig()}, expected: "read-write"},
		{
			name:     "read-only",
			sc:       &ServerContext{config: &Config{ReadOnly: true}},
			expected: "read-only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker(tt.sc)
			assert.Equal(t, tt.expected, h.determineMode())
		})
	}
}

func TestRegisterHealthEndpoints(t *testing.T) {
	h := NewHealthChecker(newHealthTestContext(true))
	mux := http.NewServeMux()
	h.RegisterHealthEndpoints(mux)

	for _, path := range []string{"/healthz", "/readyz", "/healthz/detailed"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

// blockingProber counts calls and blocks until release is closed.
type blockingProber struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (p *blockingProber) ServerVersion(ctx context.Context) (*version.Info, error) {
	if p.calls.Add(1) == 1 {
		close(p.started)
	}
	<-p.release
	return &version.Info{GitVersion: "v1.31.2"}, nil
}

func TestProbeCluster_SharesConcurrentProbes(t *testing.T) {
	sc := newHealthTestContext(true)
	prober := &blockingProber{started: make(chan struct{}), release: make(chan struct{})}
	h := NewHealthChecker(sc)

	const callers = 5
	results := make(chan *ClusterStatus, callers)
	go func() { results <- h.probeCluster(context.Background(), prober) }()
	<-prober.started

	for i := 1; i < callers; i++ {
		go func() { results <- h.probeCluster(context.Background(), prober) }()
	}
	// Give the waiters time to join the in-flight probe.
	time.Sleep(50 * time.Millisecond)
	close(prober.release)

	for i := 0; i < callers; i++ {
		status := <-results
		assert.True(t, status.Reachable)
		assert.Equal(t, "v1.31.2", status.ServerVersion)
	}
	assert.Equal(t, int32(1), prober.calls.Load())
}

func TestProbeCluster_CallerCancelled(t *testing.T) {
	sc := newHealthTestContext(true)
	prober := &blockingProber{started: make(chan struct{}), release: make(chan struct{})}
	defer close(prober.release)
	h := NewHealthChecker(sc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status := h.probeCluster(ctx, prober)
	assert.False(t, status.Reachable)
	assert.Equal(t, context.Canceled.Error(), status.Error)
}
