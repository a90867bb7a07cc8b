// Package shield provides the HTTP middleware shared by toolscout handlers:
// request tracing with a per-request logger and completion timing, security
// headers, and a request body cap.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultStack(shield.Options{Logger: logger}) {
//	    r.Use(mw)
//	}
package shield

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Options configures DefaultStack.
type Options struct {
	// MaxBodyBytes caps request bodies. Default: 1 MiB.
	MaxBodyBytes int64
	Headers      *HeaderConfig // nil means DefaultHeaders().
	Logger       *slog.Logger
	// Observe, when set, receives every completed request.
	Observe func(r *http.Request, status int, d time.Duration)
}

// DefaultStack returns the toolscout middleware stack, outermost first:
// Recoverer, HeadToGet, SecurityHeaders, MaxBody, Trace.
func DefaultStack(o Options) []func(http.Handler) http.Handler {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
	headers := DefaultHeaders()
	if o.Headers != nil {
		headers = *o.Headers
	}
	return []func(http.Handler) http.Handler{
		middleware.Recoverer,
		HeadToGet,
		SecurityHeaders(headers),
		MaxBody(o.MaxBodyBytes),
		Trace(o.Logger, o.Observe),
	}
}

// HeadToGet serves HEAD through GET routes; net/http drops the body.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			r.Method = http.MethodGet
		}
		next.ServeHTTP(w, r)
	})
}
