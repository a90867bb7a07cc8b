// Package embedding caches text-to-vector inferences for a day.
//
// The cache key is derived from the text, not the full text itself. In
// prefix mode (the default) two texts sharing their first KeyRunes
// characters share a vector; fingerprint mode appends a SHA-256 of the
// whole text to rule that out. Failures propagate and are never cached.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/hazyhaar/toolscout/kit"
	"github.com/hazyhaar/toolscout/ttlcache"
)

// Key modes.
const (
	KeyPrefix      = "prefix"
	KeyFingerprint = "fingerprint"
)

// KeyRunes is the length of the text prefix used as cache key.
const KeyRunes = 100

// Embedder converts text to a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config configures the embedding cache.
type Config struct {
	TTL          time.Duration // Default: 24h.
	KeyMode      string        // KeyPrefix or KeyFingerprint. Default: KeyPrefix.
	Logger       *slog.Logger
	CacheOptions []ttlcache.Option
}

func (c *Config) defaults() {
	if c.TTL <= 0 {
		c.TTL = 24 * time.Hour
	}
	if c.KeyMode != KeyFingerprint {
		c.KeyMode = KeyPrefix
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Cache memoizes vectors by text key. It satisfies Embedder itself.
type Cache struct {
	upstream Embedder
	cache    *ttlcache.Cache[[]float32]
	keyMode  string
	logger   *slog.Logger
}

// New creates an embedding cache backed by upstream.
func New(upstream Embedder, cfg Config) *Cache {
	cfg.defaults()
	return &Cache{
		upstream: upstream,
		cache:    ttlcache.New[[]float32]("embedding", cfg.TTL, cfg.CacheOptions...),
		keyMode:  cfg.KeyMode,
		logger:   cfg.Logger,
	}
}

// Policy reports how the cache handles upstream failures.
func (c *Cache) Policy() kit.FailurePolicy { return kit.Propagate }

// Embed returns the vector for text, from cache when fresh. The returned
// slice is the caller's own; writes to it never reach the cache.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.Key(text)
	if v, ok := c.cache.Get(key); ok {
		return slices.Clone(v), nil
	}
	v, err := c.upstream.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	c.cache.Put(key, slices.Clone(v))
	kit.Logger(ctx, c.logger).Debug("embedding: computed", "dimension", len(v), "text_len", len(text))
	return v, nil
}

// Key returns the cache key for text under the configured mode.
func (c *Cache) Key(text string) string {
	prefix := truncateRunes(text, KeyRunes)
	if c.keyMode != KeyFingerprint {
		return prefix
	}
	sum := sha256.Sum256([]byte(text))
	return prefix + "\x00" + hex.EncodeToString(sum[:])
}

// Clear drops every cached vector.
func (c *Cache) Clear() { c.cache.Clear() }

// Len reports the number of cached vectors.
func (c *Cache) Len() int { return c.cache.Len() }

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
