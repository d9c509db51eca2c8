package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/api/response"
)

// Recovery turns a handler panic into a 500 INTERNAL_ERROR response. The log
// entry carries the request ID and owner when Logger and Auth have run.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				attrs := []any{
					"error", err,
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
				}
				slog.Error("panic recovered", append(attrs, requestAttrs(r.Context())...)...)
				response.Error(w, http.StatusInternalServerError,
					"INTERNAL_ERROR", "An unexpected error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
