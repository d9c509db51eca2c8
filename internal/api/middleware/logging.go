package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		// Auth runs further down the chain and stores the owner on a derived
		// request, so the owner is captured through a shared holder.
		ctx := withOwnerHolder(r.Context(), &ownerHolder{})
		next.ServeHTTP(rec, r.WithContext(ctx))

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"latency_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		}
		slog.Info("request", append(attrs, requestAttrs(ctx)...)...)
	})
}

// requestAttrs returns the request ID and authenticated owner known to ctx.
func requestAttrs(ctx context.Context) []any {
	var attrs []any
	if id := chimw.GetReqID(ctx); id != "" {
		attrs = append(attrs, "request_id", id)
	}
	if h, ok := ctx.Value(ownerHolderKey).(*ownerHolder); ok && h.set {
		attrs = append(attrs, "owner_id", h.id.String())
	}
	return attrs
}
