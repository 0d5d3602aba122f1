package k8s

import (
	"context"
	"errors"

	"k8s.io/apimachinery/pkg/version"
)

// ErrContextNotFound is returned when a context name is not present in the kubeconfig.
var ErrContextNotFound = errors.New("context not found in kubeconfig")

// ContextManager handles Kubernetes context operations.
type ContextManager interface {
	// ListContexts returns all contexts from the kubeconfig, ordered by name.
	ListContexts(ctx context.Context) ([]ContextInfo, error)

	// GetCurrentContext returns the active context.
	GetCurrentContext(ctx context.Context) (*ContextInfo, error)

	// ActiveContext returns the name of the active context.
	ActiveContext() string

	// SwitchContext changes the active Kubernetes context.
	SwitchContext(ctx context.Context, contextName string) error

	// Reload re-reads the kubeconfig after it was changed on disk.
	Reload() error
}

// ClusterProber checks connectivity to the cluster of the active context.
type ClusterProber interface {
	ServerVersion(ctx context.Context) (*version.Info, error)
}

// ContextInfo represents information about a Kubernetes context.
type ContextInfo struct {
	Name      string `json:"name"`
	Cluster   string `json:"cluster"`
	User      string `json:"user,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Current   bool   `json:"current"`
}

// Logger interface for kubeconfig logging. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}
