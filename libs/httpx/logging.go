package httpx

import (
	"log/slog"
	"net/http"
	"time"
)

type statusCapturingResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusCapturingResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusCapturingResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *statusCapturingResponseWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// WithAccessLog logs one line per request. The tenant header is set by the
// gateway after token verification, so it is only present on internal hops.
func WithAccessLog(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusCapturingResponseWriter{ResponseWriter: w}

			next.ServeHTTP(sw, r)

			attrs := []any{
				"request_id", RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.Status(),
				"bytes", sw.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if tenantID := r.Header.Get("X-Tenant-Id"); tenantID != "" {
				attrs = append(attrs, "tenant_id", tenantID)
			}
			if sw.Status() >= http.StatusInternalServerError {
				logger.Warn("http request", attrs...)
				return
			}
			logger.Info("http request", attrs...)
		})
	}
}
