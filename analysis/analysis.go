// Package analysis asks a generative model to summarize and categorize a
// fetched page and caches the parsed result per URL for a day.
//
// Inference failures propagate to the caller and are never cached; the
// caller substitutes Degraded(doc) when it needs a value regardless.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/hazyhaar/toolscout/kit"
	"github.com/hazyhaar/toolscout/scrape"
	"github.com/hazyhaar/toolscout/ttlcache"
)

// NoDescription is the last-resort summary.
const NoDescription = "No description available"

// Analysis is the summary and categories of one page.
type Analysis struct {
	Summary    string   `json:"summary"`
	Categories []string `json:"categories"`
}

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config configures the summary cache.
type Config struct {
	TTL          time.Duration // Default: 24h.
	Logger       *slog.Logger
	CacheOptions []ttlcache.Option
}

func (c *Config) defaults() {
	if c.TTL <= 0 {
		c.TTL = 24 * time.Hour
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Cache memoizes analyses by document URL.
type Cache struct {
	gen    Generator
	cache  *ttlcache.Cache[Analysis]
	logger *slog.Logger
}

// New creates a summary cache backed by gen.
func New(gen Generator, cfg Config) *Cache {
	cfg.defaults()
	return &Cache{
		gen:    gen,
		cache:  ttlcache.New[Analysis]("analysis", cfg.TTL, cfg.CacheOptions...),
		logger: cfg.Logger,
	}
}

// Policy reports how the cache handles upstream failures.
func (c *Cache) Policy() kit.FailurePolicy { return kit.PropagateAndLetCallerSubstitute }

// Analyze returns the analysis of doc, from cache when fresh. A document
// without URL is analyzed but never cached. Errors come from the generator
// unchanged in kind (ollama.ErrInference, ollama.ErrTimeout).
func (c *Cache) Analyze(ctx context.Context, doc scrape.Document) (Analysis, error) {
	if doc.URL != "" {
		if a, ok := c.cache.Get(doc.URL); ok {
			kit.Logger(ctx, c.logger).Debug("analysis: cache hit", "url", doc.URL)
			return a.clone(), nil
		}
	}

	start := time.Now()
	resp, err := c.gen.Generate(ctx, BuildPrompt(doc))
	if err != nil {
		return Analysis{}, fmt.Errorf("analyze %s: %w", doc.URL, err)
	}

	a := Analysis{
		Summary:    ExtractSummary(resp),
		Categories: ExtractCategories(resp),
	}
	if a.Summary == "" {
		a.Summary = fallbackSummary(doc)
	}
	if doc.URL != "" {
		c.cache.Put(doc.URL, a.clone())
	}
	kit.Logger(ctx, c.logger).Info("analysis: generated",
		"url", doc.URL, "categories", a.Categories,
		"duration_ms", time.Since(start).Milliseconds())
	return a, nil
}

func (a Analysis) clone() Analysis {
	a.Categories = slices.Clone(a.Categories)
	return a
}

// Clear drops every cached analysis.
func (c *Cache) Clear() { c.cache.Clear() }

// Len reports the number of cached analyses.
func (c *Cache) Len() int { return c.cache.Len() }

// Degraded is the substitute analysis for a document whose inference
// failed: its description or title as summary, and the sentinel category.
func Degraded(doc scrape.Document) Analysis {
	return Analysis{Summary: fallbackSummary(doc), Categories: []string{Uncategorized}}
}

func fallbackSummary(doc scrape.Document) string {
	switch {
	case doc.Description != "":
		return doc.Description
	case doc.Title != "":
		return doc.Title
	default:
		return NoDescription
	}
}
