// Package scout is the toolscout orchestrator. It wires the fetch, summary
// and embedding caches to the catalog and exposes the operations served
// over HTTP and MCP.
package scout

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hazyhaar/toolscout/analysis"
	"github.com/hazyhaar/toolscout/catalog"
	"github.com/hazyhaar/toolscout/embedding"
	"github.com/hazyhaar/toolscout/kit"
	"github.com/hazyhaar/toolscout/metrics"
	"github.com/hazyhaar/toolscout/ollama"
	"github.com/hazyhaar/toolscout/scrape"
	"github.com/hazyhaar/toolscout/search"
	"github.com/hazyhaar/toolscout/ttlcache"
)

// MinContentRunes is the extracted text length a page must exceed before
// it is worth sending to the model.
const MinContentRunes = 50

// Config groups the component configurations.
type Config struct {
	Fetch     scrape.Config
	Ollama    ollama.Config
	Analysis  analysis.Config
	Embedding embedding.Config
	Search    search.Config
	// Metrics, when set, observes every cache and upstream call.
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

type options struct {
	gen analysis.Generator
	emb embedding.Embedder
}

// Option customises a Service.
type Option func(*options)

// WithGenerator replaces the Ollama client for summaries.
func WithGenerator(g analysis.Generator) Option {
	return func(o *options) { o.gen = g }
}

// WithEmbedder replaces the Ollama client for embeddings.
func WithEmbedder(e embedding.Embedder) Option {
	return func(o *options) { o.emb = e }
}

// Service is the toolscout orchestrator.
type Service struct {
	store      *catalog.Store
	fetch      *scrape.Cache
	analysis   *analysis.Cache
	embeddings *embedding.Cache
	engine     *search.Engine
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a Service over an opened catalog database.
func New(db *sql.DB, cfg Config, opts ...Option) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger
	if cfg.Fetch.Logger == nil {
		cfg.Fetch.Logger = logger
	}
	if cfg.Ollama.Logger == nil {
		cfg.Ollama.Logger = logger
	}
	if cfg.Analysis.Logger == nil {
		cfg.Analysis.Logger = logger
	}
	if cfg.Embedding.Logger == nil {
		cfg.Embedding.Logger = logger
	}
	if cfg.Search.Logger == nil {
		cfg.Search.Logger = logger
	}
	if cfg.Metrics != nil {
		obs := ttlcache.WithObserver(cfg.Metrics)
		cfg.Fetch.CacheOptions = append(cfg.Fetch.CacheOptions, obs)
		cfg.Analysis.CacheOptions = append(cfg.Analysis.CacheOptions, obs)
		cfg.Embedding.CacheOptions = append(cfg.Embedding.CacheOptions, obs)
		if cfg.Ollama.Observer == nil {
			cfg.Ollama.Observer = cfg.Metrics
		}
	}

	var o options
	for _, fn := range opts {
		fn(&o)
	}
	if o.gen == nil || o.emb == nil {
		client := ollama.New(cfg.Ollama)
		if o.gen == nil {
			o.gen = client
		}
		if o.emb == nil {
			o.emb = client
		}
	}

	emb := embedding.New(o.emb, cfg.Embedding)
	return &Service{
		store:      catalog.NewStore(db),
		fetch:      scrape.New(cfg.Fetch),
		analysis:   analysis.New(o.gen, cfg.Analysis),
		embeddings: emb,
		engine:     search.New(emb, cfg.Search),
		metrics:    cfg.Metrics,
		logger:     logger,
	}
}

// Store exposes the catalog store.
func (s *Service) Store() *catalog.Store { return s.store }

// FetchDocument returns the text profile of rawURL. Fetch failures come
// back as a degraded Document; only scrape.ErrInvalidURL and the caller's
// own context error are returned.
func (s *Service) FetchDocument(ctx context.Context, rawURL string) (scrape.Document, error) {
	return s.fetch.FetchDocument(ctx, rawURL)
}

// Analyze summarizes doc. It never fails: an inference error is logged and
// replaced by analysis.Degraded(doc).
func (s *Service) Analyze(ctx context.Context, doc scrape.Document) analysis.Analysis {
	a, err := s.analysis.Analyze(ctx, doc)
	if err != nil {
		kit.Logger(ctx, s.logger).Warn("scout: analysis failed, using fallback",
			"url", doc.URL, "error", err)
		return analysis.Degraded(doc)
	}
	return a
}

// Draft is a proposed catalog entry built from a page. It is returned to
// the caller for review, not stored.
type Draft struct {
	Name       string   `json:"name"`
	URL        string   `json:"url"`
	Summary    string   `json:"summary"`
	Categories []string `json:"categories"`
}

// BasicAnalysis is used for pages with too little content to summarize.
func BasicAnalysis(rawURL string) analysis.Analysis {
	return analysis.Analysis{
		Summary:    fmt.Sprintf("This appears to be a website at %s. We couldn't extract detailed information.", rawURL),
		Categories: []string{analysis.Uncategorized},
	}
}

// AnalyzeURL fetches and summarizes a page that is not yet in the catalog.
// It returns ErrDuplicateTool (as *DuplicateError) when the URL, raw or
// normalized, is already stored, and scrape.ErrInvalidURL for malformed
// input. Unreachable pages still produce a draft with a basic summary.
func (s *Service) AnalyzeURL(ctx context.Context, rawURL string) (*Draft, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	u, err := scrape.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	for _, candidate := range []string{rawURL, u} {
		existing, err := s.store.GetToolByURL(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("duplicate check: %w", err)
		}
		if existing != nil {
			return nil, &DuplicateError{ExistingID: existing.ID, ExistingName: existing.Name}
		}
		if candidate == u {
			break
		}
	}

	doc, err := s.fetch.FetchDocument(ctx, u)
	if err != nil {
		return nil, err
	}

	var a analysis.Analysis
	if hasContent(doc) {
		a = s.Analyze(ctx, doc)
	} else {
		a = BasicAnalysis(rawURL)
	}

	name := doc.Title
	if name == "" {
		name = scrape.HostTitle(u)
	}
	return &Draft{Name: name, URL: doc.URL, Summary: a.Summary, Categories: a.Categories}, nil
}

func hasContent(doc scrape.Document) bool {
	return !doc.Degraded && utf8.RuneCountInString(doc.Text) > MinContentRunes
}

// Search ranks tools against query.
func (s *Service) Search(ctx context.Context, tools []*catalog.Tool, query string, limit int) ([]search.ScoredTool, error) {
	if s.metrics != nil {
		s.metrics.ObserveSearch(len(tools))
	}
	return s.engine.Search(ctx, tools, query, limit)
}

// SearchCatalog ranks the whole catalog against query.
func (s *Service) SearchCatalog(ctx context.Context, query string, limit int) ([]search.ScoredTool, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidInput)
	}
	tools, err := s.store.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return s.Search(ctx, tools, query, limit)
}

// CacheStats reports how many entries each cache holds, expired entries
// included until they are looked up.
type CacheStats struct {
	Fetch     int `json:"fetch"`
	Analysis  int `json:"analysis"`
	Embedding int `json:"embedding"`
}

// CacheStats snapshots the cache sizes.
func (s *Service) CacheStats() CacheStats {
	return CacheStats{
		Fetch:     s.fetch.Len(),
		Analysis:  s.analysis.Len(),
		Embedding: s.embeddings.Len(),
	}
}

// ClearFetchCache drops every cached page.
func (s *Service) ClearFetchCache() { s.fetch.Clear() }

// ClearAnalysisCache drops every cached summary.
func (s *Service) ClearAnalysisCache() { s.analysis.Clear() }

// ClearEmbeddingCache drops every cached vector.
func (s *Service) ClearEmbeddingCache() { s.embeddings.Clear() }

// ClearCaches empties all three caches.
func (s *Service) ClearCaches() {
	s.ClearFetchCache()
	s.ClearAnalysisCache()
	s.ClearEmbeddingCache()
	s.logger.Info("scout: caches cleared")
}

// Ping checks the catalog database and returns the tool count.
func (s *Service) Ping(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.store.DB.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("ping catalog: %w", err)
	}
	return s.store.CountTools(ctx)
}
