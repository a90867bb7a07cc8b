package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Browser-like request headers. Many sites serve a stripped or blocked page
// to unknown agents.
const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	DefaultAcceptLanguage = "en-US,en;q=0.5"
)

// Page is a raw fetched response.
type Page struct {
	URL         string // final URL after redirects
	StatusCode  int
	ContentType string
	Body        []byte
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Timeout        time.Duration // per-request deadline. Default: 15s.
	MaxBytes       int64         // body read cap; longer bodies are truncated. Default: 10MB.
	MaxRedirects   int           // Default: 5.
	UserAgent      string
	Accept         string
	AcceptLanguage string
	// URLValidator is consulted before the request and on every redirect.
	// nil allows every URL.
	URLValidator func(string) error
	// Transport overrides http.DefaultTransport.
	Transport http.RoundTripper
}

func (c *FetcherConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 5
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Accept == "" {
		c.Accept = DefaultAccept
	}
	if c.AcceptLanguage == "" {
		c.AcceptLanguage = DefaultAcceptLanguage
	}
}

// Fetcher performs single GET requests with a bounded deadline.
type Fetcher struct {
	client *http.Client
	config FetcherConfig
}

// NewFetcher creates a Fetcher. Redirects are capped and re-validated.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	return &Fetcher{
		client: &http.Client{
			Transport: cfg.Transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= cfg.MaxRedirects {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if validate != nil {
					if err := validate(req.URL.String()); err != nil {
						return fmt.Errorf("redirect blocked: %w", err)
					}
				}
				return nil
			},
		},
		config: cfg,
	}
}

// Fetch GETs url. The request, including the body read, must finish within
// the configured timeout; expiry is reported as ErrTimeout. A non-2xx
// status is a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if f.config.URLValidator != nil {
		if err := f.config.URLValidator(url); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", f.config.Accept)
	req.Header.Set("Accept-Language", f.config.AcceptLanguage)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(ctx, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, classify(ctx, url, err)
	}

	return &Page{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func classify(ctx context.Context, url string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, url)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %s", ErrTimeout, url)
	}
	return fmt.Errorf("get %s: %w", url, err)
}
