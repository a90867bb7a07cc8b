// Package scrape fetches web pages and keeps their extracted text profile in
// a one-hour cache.
//
// Fetch failures never reach the caller. A page that cannot be loaded yields
// a degraded Document whose title is derived from the host and whose text
// names the failure. Degraded documents are not cached, so the next request
// retries the fetch. Only a malformed URL is reported as an error.
package scrape

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/hazyhaar/toolscout/extract"
	"github.com/hazyhaar/toolscout/kit"
	"github.com/hazyhaar/toolscout/ttlcache"
)

// FailedPrefix starts the text of every degraded Document.
const FailedPrefix = "Failed to load content: "

// Document is the text profile of one fetched page.
type Document struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Text        string `json:"text"`
	// Markdown is a sanitized rendering of the page, for previews only.
	Markdown string `json:"markdown,omitempty"`
	// Degraded marks a placeholder built after a failed fetch.
	Degraded bool `json:"degraded,omitempty"`
}

// Config configures the fetch cache.
type Config struct {
	Fetcher FetcherConfig
	TTL     time.Duration // Default: 1h.
	// BlockPrivateNetworks installs ValidatePublicURL as the URL validator
	// when Fetcher.URLValidator is unset.
	BlockPrivateNetworks bool
	Logger               *slog.Logger
	CacheOptions         []ttlcache.Option
}

func (c *Config) defaults() {
	if c.TTL <= 0 {
		c.TTL = time.Hour
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.BlockPrivateNetworks && c.Fetcher.URLValidator == nil {
		c.Fetcher.URLValidator = ValidatePublicURL
	}
}

// Cache fronts the Fetcher with a TTL cache keyed by normalized URL.
type Cache struct {
	fetcher *Fetcher
	docs    *ttlcache.Cache[Document]
	logger  *slog.Logger
}

// New creates a fetch cache.
func New(cfg Config) *Cache {
	cfg.defaults()
	return &Cache{
		fetcher: NewFetcher(cfg.Fetcher),
		docs:    ttlcache.New[Document]("fetch", cfg.TTL, cfg.CacheOptions...),
		logger:  cfg.Logger,
	}
}

// Policy reports how the cache handles upstream failures.
func (c *Cache) Policy() kit.FailurePolicy { return kit.DegradeToPlaceholder }

// FetchDocument returns the profile of rawURL, from cache when fresh.
// The only errors are ErrInvalidURL and the caller's own context error.
func (c *Cache) FetchDocument(ctx context.Context, rawURL string) (Document, error) {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return Document{}, err
	}
	if doc, ok := c.docs.Get(u); ok {
		return doc, nil
	}

	start := time.Now()
	page, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		if ctx.Err() != nil {
			return Document{}, ctx.Err()
		}
		kit.Logger(ctx, c.logger).Warn("scrape: fetch failed, degrading",
			"url", u, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return Degraded(u, err), nil
	}

	body := string(page.Body)
	res := extract.Extract(body)
	doc := Document{
		URL:         u,
		Title:       res.Title,
		Description: res.Description,
		Text:        res.Text,
		Markdown:    extract.Markdown(body, u),
	}
	if doc.Title == "" {
		doc.Title = HostTitle(u)
	}
	c.docs.Put(u, doc)

	kit.Logger(ctx, c.logger).Debug("scrape: fetched",
		"url", u, "bytes", len(page.Body), "text_len", len(doc.Text),
		"duration_ms", time.Since(start).Milliseconds())
	return doc, nil
}

// Clear drops every cached document.
func (c *Cache) Clear() { c.docs.Clear() }

// Len reports the number of cached documents.
func (c *Cache) Len() int { return c.docs.Len() }

// Degraded builds the placeholder Document for a failed fetch of url.
func Degraded(url string, cause error) Document {
	return Document{
		URL:      url,
		Title:    HostTitle(url),
		Text:     FailedPrefix + reason(cause),
		Degraded: true,
	}
}

func reason(err error) string {
	var fe *FetchError
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, ErrTimeout):
		return "request timed out"
	case errors.As(err, &fe):
		return "server responded with HTTP " + strconv.Itoa(fe.Status)
	case errors.As(err, &dnsErr):
		return "could not resolve host " + dnsErr.Name
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection refused"
	case errors.Is(err, ErrBlocked):
		return "address not allowed"
	default:
		return err.Error()
	}
}
