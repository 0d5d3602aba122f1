package k8s

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

// KubeconfigEnvVar names the environment variable listing kubeconfig files.
const KubeconfigEnvVar = "KUBECONFIG"

// ContextManagerConfig holds configuration for the kubeconfig context manager.
type ContextManagerConfig struct {
	// KubeconfigPath is an explicit kubeconfig file. When empty, $KUBECONFIG
	// and then ~/.kube/config are used.
	KubeconfigPath string
	// Context selects the initial active context instead of the file's current-context.
	Context string

	Logger Logger
}

// KubeconfigManager implements ContextManager on top of a kubeconfig file.
// The active context is held in memory; the file is never written.
type KubeconfigManager struct {
	config ContextManagerConfig

	mu             sync.RWMutex
	kubeconfigPath string
	precedence     []string
	kubeconfigData *clientcmdapi.Config
	fileContext    string
	currentContext string
}

var _ ContextManager = (*KubeconfigManager)(nil)

// NewContextManager loads the kubeconfig and selects the initial active context.
func NewContextManager(config ContextManagerConfig) (*KubeconfigManager, error) {
	m := &KubeconfigManager{config: config}
	m.resolveKubeconfigPath()

	data, err := m.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	m.kubeconfigData = data
	m.fileContext = data.CurrentContext
	m.currentContext = data.CurrentContext

	if config.Context != "" {
		if _, exists := data.Contexts[config.Context]; !exists {
			return nil, fmt.Errorf("%w: %q", ErrContextNotFound, config.Context)
		}
		m.currentContext = config.Context
	}

	m.logInfo("Using kubeconfig", "context", m.currentContext, "contexts", len(data.Contexts))
	return m, nil
}

// resolveKubeconfigPath applies the explicit path or expands "~/" in $KUBECONFIG.
func (m *KubeconfigManager) resolveKubeconfigPath() {
	if m.config.KubeconfigPath != "" {
		m.kubeconfigPath = expandHome(m.config.KubeconfigPath)
		return
	}

	kconf := os.Getenv(KubeconfigEnvVar)
	if kconf == "" {
		return
	}

	entries := filepath.SplitList(kconf)
	expanded := make([]string, 0, len(entries))
	changed := false
	for _, entry := range entries {
		e := expandHome(entry)
		changed = changed || e != entry
		expanded = append(expanded, e)
	}
	m.precedence = expanded
	if changed {
		m.kubeconfigPath = strings.Join(expanded, string(os.PathListSeparator))
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	uhd, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(uhd, path[2:])
}

// load reads the kubeconfig from disk without touching manager state.
func (m *KubeconfigManager) load() (*clientcmdapi.Config, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if m.config.KubeconfigPath != "" {
		loadingRules.ExplicitPath = m.kubeconfigPath
	} else if len(m.precedence) > 0 {
		loadingRules.Precedence = m.precedence
	}

	config := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		loadingRules,
		&clientcmd.ConfigOverrides{},
	)

	rawConfig, err := config.RawConfig()
	if err != nil {
		return nil, err
	}
	return &rawConfig, nil
}

// Reload re-reads the kubeconfig from disk.
//
// If the file's current-context changed since the last load, it becomes the
// active context. If the active context no longer exists, the file's
// current-context is used instead. On error the previous state is kept.
func (m *KubeconfigManager) Reload() error {
	data, err := m.load()
	if err != nil {
		return fmt.Errorf("failed to reload kubeconfig: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.currentContext
	switch {
	case data.CurrentContext != m.fileContext:
		m.currentContext = data.CurrentContext
	case data.Contexts[m.currentContext] == nil:
		m.currentContext = data.CurrentContext
	}
	m.kubeconfigData = data
	m.fileContext = data.CurrentContext

	if previous != m.currentContext {
		m.logInfo("Active context changed after kubeconfig reload", "from", previous, "to", m.currentContext)
	}
	return nil
}

// KubeconfigPath returns the kubeconfig location that child processes must
// use, or "" when they can resolve it from the inherited environment.
func (m *KubeconfigManager) KubeconfigPath() string {
	return m.kubeconfigPath
}

// ContextOverride returns the active context when it differs from the
// kubeconfig's current-context, and "" otherwise.
func (m *KubeconfigManager) ContextOverride() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.currentContext == m.fileContext {
		return ""
	}
	return m.currentContext
}

// ActiveContext returns the name of the active context.
func (m *KubeconfigManager) ActiveContext() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentContext
}

// ListContexts returns all available Kubernetes contexts ordered by name.
func (m *KubeconfigManager) ListContexts(ctx context.Context) ([]ContextInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	contexts := make([]ContextInfo, 0, len(m.kubeconfigData.Contexts))
	for contextName, contextInfo := range m.kubeconfigData.Contexts {
		contexts = append(contexts, ContextInfo{
			Name:      contextName,
			Cluster:   contextInfo.Cluster,
			User:      contextInfo.AuthInfo,
			Namespace: contextInfo.Namespace,
			Current:   contextName == m.currentContext,
		})
	}

	sort.Slice(contexts, func(i, j int) bool {
		return contexts[i].Name < contexts[j].Name
	})

	return contexts, nil
}

// GetCurrentContext returns the currently active context.
func (m *KubeconfigManager) GetCurrentContext(ctx context.Context) (*ContextInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.currentContext == "" {
		return nil, fmt.Errorf("%w: no current context is set", ErrContextNotFound)
	}

	contextInfo, exists := m.kubeconfigData.Contexts[m.currentContext]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrContextNotFound, m.currentContext)
	}

	return &ContextInfo{
		Name:      m.currentContext,
		Cluster:   contextInfo.Cluster,
		User:      contextInfo.AuthInfo,
		Namespace: contextInfo.Namespace,
		Current:   true,
	}, nil
}

// SwitchContext changes the active Kubernetes context. Unknown names leave
// the active context unchanged.
func (m *KubeconfigManager) SwitchContext(ctx context.Context, contextName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.kubeconfigData.Contexts[contextName]; !exists {
		return fmt.Errorf("%w: %q", ErrContextNotFound, contextName)
	}

	previous := m.currentContext
	m.currentContext = contextName

	m.logInfo("switched kubernetes context", "from", previous, "context", contextName)
	return nil
}

func (m *KubeconfigManager) logInfo(msg string, args ...interface{}) {
	if m.config.Logger != nil {
		m.config.Logger.Info(msg, args...)
	}
}
