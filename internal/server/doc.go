// Package server holds the dependencies shared by the MCP tool handlers and
// the HTTP endpoints that surround them.
//
// A ServerContext bundles the kubeconfig context manager, the kubectl
// executor, the logger, the configuration and the optional instrumentation
// provider. It is built with functional options and validated once:
//
//	sc, err := server.NewServerContext(ctx,
//		server.WithContextManager(manager),
//		server.WithExecutor(executor),
//		server.WithLogger(logger),
//		server.WithReadOnly(true),
//	)
//	if err != nil {
//		return err
//	}
//	defer sc.Shutdown()
//
// HealthChecker serves /healthz, /readyz and /healthz/detailed on the HTTP
// transports. Readiness fails when kubectl cannot be found on PATH, and when
// a cluster prober is configured and the active context's API server does
// not answer.
//
// MetricsServer exposes the Prometheus registry on its own listener.
package server
