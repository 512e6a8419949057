package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// responseWriter wraps http.ResponseWriter to capture status and size.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// authUser is a mutable slot seeded by RequestLog and filled in by the
// auth middleware once the caller is known. Authentication runs later in
// the chain, so the slot is how the access log learns the username.
type authUser struct {
	name string
}

type authUserKey struct{}

// RequestLog logs each request with request_id, method, path, status, duration,
// and size, plus the authenticated username when the route authenticates.
// Use after RequestID middleware so the ID is available.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		slot := &authUser{}
		r = r.WithContext(context.WithValue(r.Context(), authUserKey{}, slot))
		wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrap, r)
		dur := time.Since(start)
		reqID := chimw.GetReqID(r.Context())
		attrs := []any{
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrap.status,
			"duration_ms", dur.Milliseconds(),
			"size", wrap.size,
		}
		if slot.name != "" {
			attrs = append(attrs, "user", slot.name)
		}
		slog.Info("request", attrs...)
	})
}
