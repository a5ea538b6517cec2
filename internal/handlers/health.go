package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger func(ctx context.Context) error

// Healthz returns 200 while ping succeeds and 503 otherwise.
func Healthz(ping Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
