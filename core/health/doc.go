// Package health provides HTTP handlers for process health monitoring.
//
// Handlers:
//   - Liveness: Process is running (no dependency checks)
//   - Readiness: All dependencies are available
//   - NoContent: Returns 204 for minimal overhead
//
// Usage:
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("GET /live", health.Liveness)
//	mux.Handle("GET /ready", health.Readiness(
//		log,
//		redis.Healthcheck(client),
//		collector.Healthcheck,
//	))
//
// Dependency checks must follow func(context.Context) error signature.
package health
