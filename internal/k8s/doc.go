// Package k8s manages the kubeconfig side of the server.
//
// KubeconfigManager loads the kubeconfig once at startup and keeps the
// Active Context in memory. It is the single owner of that state:
//
//   - ContextManager: list contexts, report and switch the active context
//   - ClusterProber: check that the active context's API server answers
//
// The manager never writes the kubeconfig file. Instead it reports, through
// ContextOverride and KubeconfigPath, how a kubectl child process must be
// invoked to target the active context.
//
// Example usage:
//
//	manager, err := k8s.NewContextManager(k8s.ContextManagerConfig{
//		KubeconfigPath: "/home/me/.kube/config",
//		Logger:         slog.Default(),
//	})
//	if err != nil {
//		return err
//	}
//	if err := manager.SwitchContext(ctx, "staging"); err != nil {
//		return err // wraps ErrContextNotFound for unknown names
//	}
package k8s
