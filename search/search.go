// Package search ranks catalog tools against a free-text query by cosine
// similarity of their embeddings.
//
// Candidates are embedded in sequential batches; members of one batch are
// embedded concurrently. A candidate whose embedding fails keeps a score
// of 0 rather than failing the search. Only a failure to embed the query
// aborts the search.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/toolscout/catalog"
	"github.com/hazyhaar/toolscout/kit"
)

// ErrSearch wraps a failure to embed the query.
var ErrSearch = errors.New("search: query embedding failed")

// Embedder converts text to a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ScoredTool is a candidate with its similarity to the query.
type ScoredTool struct {
	*catalog.Tool
	Score float64 `json:"score"`
}

// Config configures the engine.
type Config struct {
	BatchSize    int // Default: 5.
	DefaultLimit int // used when Search gets limit <= 0. Default: 10.
	Logger       *slog.Logger
}

func (c *Config) defaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 5
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 10
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Engine ranks tools.
type Engine struct {
	emb Embedder
	cfg Config
}

// New creates an Engine. emb is normally an embedding cache.
func New(emb Embedder, cfg Config) *Engine {
	cfg.defaults()
	return &Engine{emb: emb, cfg: cfg}
}

// CandidateText is the text embedded for a tool: name, summary and
// categories separated by spaces.
func CandidateText(t *catalog.Tool) string {
	return t.Name + " " + t.Summary + " " + strings.Join(t.Categories, " ")
}

// Search returns up to limit tools ordered by descending similarity to
// query. Equal scores keep their input order. An empty candidate list
// returns an empty result without embedding the query.
func (e *Engine) Search(ctx context.Context, tools []*catalog.Tool, query string, limit int) ([]ScoredTool, error) {
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if len(tools) == 0 {
		return []ScoredTool{}, nil
	}
	log := kit.Logger(ctx, e.cfg.Logger)
	start := time.Now()

	qvec, err := e.emb.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearch, err)
	}

	scored := make([]ScoredTool, len(tools))
	failed := 0
	for lo := 0; lo < len(tools); lo += e.cfg.BatchSize {
		hi := min(lo+e.cfg.BatchSize, len(tools))
		errs := make([]error, hi-lo)

		// Goroutines never return an error, so Wait only synchronizes and
		// one failed candidate cannot cancel its siblings.
		var g errgroup.Group
		for i := lo; i < hi; i++ {
			g.Go(func() error {
				scored[i] = ScoredTool{Tool: tools[i]}
				vec, err := e.emb.Embed(ctx, CandidateText(tools[i]))
				if err != nil {
					errs[i-lo] = err
					return nil
				}
				scored[i].Score = Cosine(qvec, vec)
				return nil
			})
		}
		g.Wait()

		for i, err := range errs {
			if err != nil {
				failed++
				log.Warn("search: candidate embedding failed, scoring 0",
					"tool", tools[lo+i].Name, "error", err)
			}
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}

	log.Info("search: ranked", "candidates", len(tools), "failed", failed,
		"returned", len(scored), "duration_ms", time.Since(start).Milliseconds())
	return scored, nil
}
