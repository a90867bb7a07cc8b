// Package httpapi is the toolscout HTTP boundary: chi routes over a
// scout.Service with a {"success": bool, ...} JSON envelope.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazyhaar/toolscout/metrics"
	"github.com/hazyhaar/toolscout/scout"
	"github.com/hazyhaar/toolscout/scrape"
	"github.com/hazyhaar/toolscout/search"
	"github.com/hazyhaar/toolscout/shield"
)

// Config configures the router.
type Config struct {
	MaxBodyBytes int64 // Default: 1 MiB.
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	// Gatherer serves /metrics. nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

type handler struct {
	svc *scout.Service
}

// NewRouter builds the HTTP handler for svc.
func NewRouter(svc *scout.Service, cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &handler{svc: svc}

	opts := shield.Options{MaxBodyBytes: cfg.MaxBodyBytes, Logger: cfg.Logger}
	if m := cfg.Metrics; m != nil {
		opts.Observe = func(r *http.Request, status int, d time.Duration) {
			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.ObserveHTTP(r.Method, route, status, d)
		}
	}

	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack(opts) {
		r.Use(mw)
	}

	r.Get("/health", h.health)
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/tools", func(r chi.Router) {
		r.Get("/", h.listTools)
		r.Post("/", h.createTool)
		r.Get("/{id}", h.getTool)
		r.Put("/{id}", h.updateTool)
		r.Delete("/{id}", h.deleteTool)
	})
	r.Post("/analyze", h.analyze)
	r.Post("/fetch", h.fetch)
	r.Post("/search", h.search)

	r.Route("/api", func(r chi.Router) {
		r.Get("/test", h.apiTest)
		r.Get("/db-test", h.dbTest)
		r.Get("/cache-stats", h.cacheStats)
		r.Post("/clear-cache", h.clearCache)
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "API endpoint not found"})
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"success": false, "error": "method not allowed"})
		})
	})
	return r
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}

// decodeJSON reads the request body into v. An empty body leaves v zero.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return fmt.Errorf("request body exceeds %d bytes", mbe.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// statusFor maps service errors onto HTTP statuses and client messages.
// Unexpected errors are logged and hidden behind fallback.
func statusFor(r *http.Request, err error, fallback string) (int, string) {
	var dup *scout.DuplicateError
	switch {
	case errors.As(err, &dup):
		return http.StatusBadRequest, dup.Error()
	case errors.Is(err, scrape.ErrInvalidURL):
		return http.StatusBadRequest, "Invalid URL format. Please enter a valid URL (e.g., example.com or https://example.com)"
	case errors.Is(err, scout.ErrInvalidInput):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), scout.ErrInvalidInput.Error()+": ")
	case errors.Is(err, scout.ErrNotFound):
		return http.StatusNotFound, "Tool not found"
	case r.Context().Err() != nil:
		return 499, "client closed request"
	}
	shield.GetLogger(r).Error(fallback, "error", err)
	return http.StatusInternalServerError, fallback
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	code, msg := statusFor(r, err, fallback)
	writeError(w, code, msg)
}

// --- Health ---

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) apiTest(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]any{"message": "Server is working!"})
}

func (h *handler) dbTest(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Ping(r.Context())
	if err != nil {
		shield.GetLogger(r).Error("catalog ping failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, map[string]any{"message": "Successfully connected to the catalog", "tools": n})
}

// --- Tools ---

func (h *handler) listTools(w http.ResponseWriter, r *http.Request) {
	tools, err := h.svc.ListTools(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to fetch tools")
		return
	}
	writeOK(w, map[string]any{"tools": tools})
}

func (h *handler) getTool(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTool(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch tool")
		return
	}
	writeOK(w, map[string]any{"tool": t})
}

func (h *handler) createTool(w http.ResponseWriter, r *http.Request) {
	var in scout.ToolInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.svc.CreateTool(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, "Failed to add tool")
		return
	}
	writeOK(w, map[string]any{"tool": t})
}

func (h *handler) updateTool(w http.ResponseWriter, r *http.Request) {
	var in scout.ToolInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.svc.UpdateTool(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err, "Failed to update tool")
		return
	}
	writeOK(w, map[string]any{"tool": t})
}

func (h *handler) deleteTool(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTool(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "Failed to delete tool")
		return
	}
	writeOK(w, nil)
}

// --- Analysis ---

type urlRequest struct {
	URL string `json:"url"`
}

func (h *handler) analyze(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	draft, err := h.svc.AnalyzeURL(r.Context(), req.URL)
	if err != nil {
		h.fail(w, r, err, "Failed to analyze URL. Please check the URL and try again.")
		return
	}
	writeOK(w, map[string]any{"analysis": draft})
}

func (h *handler) fetch(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	doc, err := h.svc.FetchDocument(r.Context(), req.URL)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch URL")
		return
	}
	writeOK(w, map[string]any{"document": doc})
}

// --- Search ---

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "Search query is required")
		return
	}
	if req.Limit == 0 {
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
			req.Limit = v
		}
	}
	results, err := h.svc.SearchCatalog(r.Context(), req.Query, req.Limit)
	if err != nil {
		if errors.Is(err, search.ErrSearch) {
			shield.GetLogger(r).Error("search failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to search tools")
			return
		}
		h.fail(w, r, err, "Failed to search tools")
		return
	}
	writeOK(w, map[string]any{"results": results})
}

// --- Caches ---

func (h *handler) cacheStats(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]any{"caches": h.svc.CacheStats()})
}

func (h *handler) clearCache(w http.ResponseWriter, _ *http.Request) {
	h.svc.ClearCaches()
	writeOK(w, map[string]any{"message": "All caches cleared successfully"})
}
