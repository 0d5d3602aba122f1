package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"k8s.io/apimachinery/pkg/version"

	"github.com/giantswarm/mcp-kubectl/internal/k8s"
	"github.com/giantswarm/mcp-kubectl/internal/logging"
)

// clusterProbeTimeout bounds the API server reachability check.
const clusterProbeTimeout = k8s.ProbeTimeout

// HealthChecker serves the liveness and readiness probes of the HTTP
// transports. A nil ServerContext is allowed and skips the dependency checks.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time
	// probes collapses concurrent cluster reachability checks.
	probes singleflight.Group
}

// NewHealthChecker returns a checker that starts out ready.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{serverContext: sc, startTime: time.Now()}
	h.ready.Store(true)
	return h
}

// SetReady flips readiness; the transports clear it when shutdown begins.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Version string            `json:"version,omitempty"`
}

// DetailedHealthResponse provides comprehensive health information.
type DetailedHealthResponse struct {
	Status          string                      `json:"status"`
	Mode            string                      `json:"mode"`
	Version         string                      `json:"version,omitempty"`
	Uptime          string                      `json:"uptime"`
	Kubectl         *KubectlStatus              `json:"kubectl,omitempty"`
	Kubeconfig      *KubeconfigStatus           `json:"kubeconfig,omitempty"`
	Cluster         *ClusterStatus              `json:"cluster,omitempty"`
	Instrumentation *InstrumentationHealthCheck `json:"instrumentation,omitempty"`
}

// KubectlStatus describes the kubectl binary the server runs.
type KubectlStatus struct {
	Path      string `json:"path"`
	Available bool   `json:"available"`
	Timeout   string `json:"timeout,omitempty"`
}

// KubeconfigStatus describes the loaded kubeconfig.
type KubeconfigStatus struct {
	ActiveContext string `json:"active_context"`
	Contexts      int    `json:"contexts"`
}

// ClusterStatus describes the reachability of the active context's API server.
type ClusterStatus struct {
	Reachable     bool   `json:"reachable"`
	ServerVersion string `json:"server_version,omitempty"`
	Error         string `json:"error,omitempty"`
}

// InstrumentationHealthCheck provides health information about instrumentation.
type InstrumentationHealthCheck struct {
	Enabled         bool   `json:"enabled"`
	MetricsExporter string `json:"metrics_exporter,omitempty"`
	TracingExporter string `json:"tracing_exporter,omitempty"`
}

// Check results reported by /readyz.
const (
	checkOK           = "ok"
	checkNotReady     = "not ready"
	checkShuttingDown = "shutting down"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// version returns the configured server version, if any.
func (h *HealthChecker) version() string {
	if h.serverContext == nil || h.serverContext.Config() == nil {
		return ""
	}
	return h.serverContext.Config().Version
}

// unavailableReason returns why the server should not take traffic, or ""
// when it should.
func (h *HealthChecker) unavailableReason() string {
	switch {
	case !h.ready.Load():
		return checkNotReady
	case h.serverContext != nil && h.serverContext.IsShutdown():
		return checkShuttingDown
	}
	return ""
}

// LivenessHandler serves /healthz. It answers as long as the process can
// serve HTTP and does not depend on kubectl or the cluster.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: checkOK, Version: h.version()})
	})
}

// ReadinessHandler serves /readyz. Every failing check turns the response
// into a 503; the instrumentation check is informational only.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, ok := h.readinessChecks(r.Context())
		if !ok {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: checkNotReady, Checks: checks})
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: checkOK, Checks: checks})
	})
}

func (h *HealthChecker) readinessChecks(ctx context.Context) (map[string]string, bool) {
	checks := map[string]string{"ready": checkOK, "shutdown": checkOK}
	ok := true
	fail := func(name, result string) {
		checks[name] = result
		ok = false
	}

	if !h.ready.Load() {
		fail("ready", checkNotReady)
	}
	sc := h.serverContext
	if sc == nil {
		return checks, ok
	}
	if sc.IsShutdown() {
		fail("shutdown", checkShuttingDown)
	}

	if executor := sc.Executor(); executor != nil {
		checks["kubectl"] = checkOK
		if executor.Available() != nil {
			fail("kubectl", "not found")
		}
	}
	if prober := sc.ClusterProber(); prober != nil {
		checks["cluster"] = checkOK
		if !h.probeCluster(ctx, prober).Reachable {
			fail("cluster", "unreachable")
		}
	}
	if provider := sc.InstrumentationProvider(); provider != nil {
		checks["instrumentation"] = "disabled"
		if provider.Enabled() {
			checks["instrumentation"] = checkOK
		}
	}
	return checks, ok
}

// RegisterHealthEndpoints registers /healthz, /readyz and /healthz/detailed on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

// DetailedHealthHandler serves /healthz/detailed with the kubectl binary,
// kubeconfig, cluster and instrumentation state.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := DetailedHealthResponse{
			Status:  checkOK,
			Mode:    h.determineMode(),
			Version: h.version(),
			Uptime:  time.Since(h.startTime).Truncate(time.Second).String(),
		}

		if sc := h.serverContext; sc != nil {
			response.Kubectl = h.getKubectlStatus()
			response.Kubeconfig = h.getKubeconfigStatus(r.Context())
			if prober := sc.ClusterProber(); prober != nil {
				response.Cluster = h.probeCluster(r.Context(), prober)
			}
			response.Instrumentation = h.getInstrumentationStatus()
		}

		code := http.StatusOK
		if reason := h.unavailableReason(); reason != "" {
			response.Status = reason
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, response)
	})
}

// determineMode reports "read-only", "read-write", or "unknown" without a
// configuration.
func (h *HealthChecker) determineMode() string {
	switch {
	case h.serverContext == nil || h.serverContext.Config() == nil:
		return "unknown"
	case h.serverContext.Config().ReadOnly:
		return "read-only"
	default:
		return "read-write"
	}
}

func (h *HealthChecker) getKubectlStatus() *KubectlStatus {
	executor := h.serverContext.Executor()
	if executor == nil {
		return nil
	}

	status := &KubectlStatus{
		Path:      executor.KubectlPath(),
		Available: executor.Available() == nil,
	}
	if timeout := executor.Timeout(); timeout > 0 {
		status.Timeout = timeout.String()
	}
	return status
}

func (h *HealthChecker) getKubeconfigStatus(ctx context.Context) *KubeconfigStatus {
	manager := h.serverContext.ContextManager()
	if manager == nil {
		return nil
	}

	status := &KubeconfigStatus{ActiveContext: manager.ActiveContext()}
	if contexts, err := manager.ListContexts(ctx); err == nil {
		status.Contexts = len(contexts)
	}
	return status
}

// probeCluster asks the active context's API server for its version.
// Concurrent probes of the same context share one request.
func (h *HealthChecker) probeCluster(ctx context.Context, prober k8s.ClusterProber) *ClusterStatus {
	key := ""
	if manager := h.serverContext.ContextManager(); manager != nil {
		key = manager.ActiveContext()
	}

	ch := h.probes.DoChan(key, func() (interface{}, error) {
		probeCtx, cancel := context.WithTimeout(context.Background(), clusterProbeTimeout)
		defer cancel()
		return prober.ServerVersion(probeCtx)
	})

	select {
	case <-ctx.Done():
		return &ClusterStatus{Error: ctx.Err().Error()}
	case res := <-ch:
		if res.Err != nil {
			if logger := h.serverContext.Logger(); logger != nil {
				logger.Debug("cluster probe failed", logging.SanitizedErr(res.Err))
			}
			return &ClusterStatus{Error: logging.SanitizeHost(res.Err.Error())}
		}
		status := &ClusterStatus{Reachable: true}
		if info, ok := res.Val.(*version.Info); ok && info != nil {
			status.ServerVersion = info.GitVersion
		}
		return status
	}
}

func (h *HealthChecker) getInstrumentationStatus() *InstrumentationHealthCheck {
	provider := h.serverContext.InstrumentationProvider()
	if provider == nil || !provider.Enabled() {
		return &InstrumentationHealthCheck{}
	}
	return &InstrumentationHealthCheck{
		Enabled:         true,
		MetricsExporter: provider.Config().MetricsExporter,
		TracingExporter: provider.Config().TracingExporter,
	}
}
