package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/busengine/core/logger"
)

// Readiness verifies all dependencies are functioning.
// Returns "READY" if all checks pass, 503 Service Unavailable if any fail.
//
// Example:
//
//	mux.Handle("GET /ready", health.Readiness(
//		log,
//		redis.Healthcheck(client),
//		engine.Collector().Healthcheck,
//	))
func Readiness(log *slog.Logger, fn ...func(context.Context) error) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		for _, f := range fn {
			if err := f(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", logger.Error(err))
				writeText(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
				return
			}
		}
		writeText(w, http.StatusOK, "READY")
	})
}
