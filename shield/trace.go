package shield

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/toolscout/kit"
)

// Trace assigns each request a random trace ID, returned in X-Trace-ID, and
// a per-request logger carrying it. The logger is stored with kit.WithLogger
// so every component logs with the request's trace ID. On completion the
// request is logged with its status and duration, and passed to observe
// when non-nil.
func Trace(base *slog.Logger, observe func(r *http.Request, status int, d time.Duration)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			traceID := kit.NewTraceID()
			w.Header().Set("X-Trace-ID", traceID)

			l := base
			if l == nil {
				l = slog.Default()
			}
			logger := l.With(
				"trace_id", traceID,
				"method", r.Method,
				"path", r.URL.Path,
			)
			ctx := kit.WithTraceID(r.Context(), traceID)
			ctx = kit.WithLogger(ctx, logger)
			logger.Debug("request", "remote_addr", r.RemoteAddr)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			r = r.WithContext(ctx)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			d := time.Since(start)
			logger.Info("request completed", "status", status, "duration_ms", d.Milliseconds())
			if observe != nil {
				observe(r, status, d)
			}
		})
	}
}

// GetLogger returns the per-request logger, or slog.Default().
func GetLogger(r *http.Request) *slog.Logger {
	return kit.Logger(r.Context(), slog.Default())
}
