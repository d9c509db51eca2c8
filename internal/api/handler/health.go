package handler

import (
	"context"
	"net/http"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/api/response"
)

// Check verifies one dependency.
type Check func(ctx context.Context) error

// NewHealthHandler reports liveness. It never touches dependencies.
func NewHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, map[string]string{"status": "ok"})
	}
}

// NewReadyHandler runs every check and reports 503 DEGRADED when any fails.
func NewReadyHandler(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := make(map[string]string, len(checks))
		degraded := false
		for name, check := range checks {
			services[name] = "ok"
			if err := check(r.Context()); err != nil {
				services[name] = "degraded"
				degraded = true
			}
		}

		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", services)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ready",
			"services": services,
		})
	}
}
