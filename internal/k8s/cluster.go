package k8s

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/version"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// ProbeTimeout bounds a single ServerVersion request.
const ProbeTimeout = 10 * time.Second

// Client limits for the probe's rest.Config.
const (
	probeQPS   = 20.0
	probeBurst = 30
)

var _ ClusterProber = (*KubeconfigManager)(nil)

// restConfig builds a rest.Config for the active context.
func (m *KubeconfigManager) restConfig() (*rest.Config, error) {
	m.mu.RLock()
	data := m.kubeconfigData.DeepCopy()
	contextName := m.currentContext
	m.mu.RUnlock()

	if contextName == "" {
		return nil, fmt.Errorf("%w: no current context is set", ErrContextNotFound)
	}

	clientConfig := clientcmd.NewNonInteractiveClientConfig(*data, contextName, &clientcmd.ConfigOverrides{}, nil)
	restConfig, err := clientConfig.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build client config for context %q: %w", contextName, err)
	}

	restConfig.QPS = probeQPS
	restConfig.Burst = probeBurst
	restConfig.Timeout = ProbeTimeout
	return restConfig, nil
}

// ServerVersion queries the API server of the active context for its version.
func (m *KubeconfigManager) ServerVersion(ctx context.Context) (*version.Info, error) {
	restConfig, err := m.restConfig()
	if err != nil {
		return nil, err
	}

	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}

	body, err := discoveryClient.RESTClient().Get().AbsPath("/version").Do(ctx).Raw()
	if err != nil {
		return nil, fmt.Errorf("failed to get server version: %w", err)
	}

	var info version.Info
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("unable to parse the server version: %w", err)
	}
	return &info, nil
}
