// Package ollama talks to an Ollama model server: /api/generate for text
// completion and /api/embeddings for vectors. Every call carries its own
// deadline and is never retried.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// CallObserver is notified after each upstream call. outcome is "ok",
// "timeout" or "error".
type CallObserver interface {
	ObserveCall(op, outcome string, d time.Duration)
}

// Config configures the client.
type Config struct {
	// GenerateURL is the full /api/generate URL.
	GenerateURL string `json:"generate_url" yaml:"generate_url"`
	// GenerateModel is sent as "model" to /api/generate.
	GenerateModel string `json:"generate_model" yaml:"generate_model"`
	// GenerateTimeout bounds one generate call. Default: 30s.
	GenerateTimeout time.Duration `json:"generate_timeout" yaml:"generate_timeout"`

	// EmbedURL is the full /api/embeddings URL.
	EmbedURL string `json:"embed_url" yaml:"embed_url"`
	// EmbedModel is sent as "model" to /api/embeddings.
	EmbedModel string `json:"embed_model" yaml:"embed_model"`
	// EmbedTimeout bounds one embeddings call. Default: 10s.
	EmbedTimeout time.Duration `json:"embed_timeout" yaml:"embed_timeout"`

	Logger   *slog.Logger `json:"-" yaml:"-"`
	Observer CallObserver `json:"-" yaml:"-"`
	// HTTPClient overrides the default client. Deadlines still come from
	// the timeouts above.
	HTTPClient *http.Client `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.GenerateURL == "" {
		c.GenerateURL = "http://localhost:11434/api/generate"
	}
	if c.GenerateModel == "" {
		c.GenerateModel = "gemma3:12b"
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = 30 * time.Second
	}
	if c.EmbedURL == "" {
		c.EmbedURL = "http://localhost:11434/api/embeddings"
	}
	if c.EmbedModel == "" {
		c.EmbedModel = "nomic-embed-text"
	}
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
}

// Client calls the Ollama HTTP API.
type Client struct {
	cfg Config
}

// New creates a client.
func New(cfg Config) *Client {
	cfg.defaults()
	return &Client{cfg: cfg}
}

// GenerateModel returns the configured generation model.
func (c *Client) GenerateModel() string { return c.cfg.GenerateModel }

// EmbedModel returns the configured embedding model.
func (c *Client) EmbedModel() string { return c.cfg.EmbedModel }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type embeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingsResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Generate sends prompt to /api/generate with streaming off and returns the
// raw response text. Failures wrap ErrInference.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var out generateResponse
	err := c.post(ctx, "generate", c.cfg.GenerateURL, c.cfg.GenerateTimeout,
		generateRequest{Model: c.cfg.GenerateModel, Prompt: prompt, Stream: false}, &out)
	if err != nil {
		return "", errors.Join(ErrInference, err)
	}
	return out.Response, nil
}

// Embed sends text to /api/embeddings and returns its vector. An empty
// vector is an error. Failures wrap ErrEmbedding.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var out embeddingsResponse
	err := c.post(ctx, "embed", c.cfg.EmbedURL, c.cfg.EmbedTimeout,
		embeddingsRequest{Model: c.cfg.EmbedModel, Prompt: text}, &out)
	if err != nil {
		return nil, errors.Join(ErrEmbedding, err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding from %s", ErrEmbedding, c.cfg.EmbedURL)
	}
	return out.Embedding, nil
}

func (c *Client) post(ctx context.Context, op, url string, timeout time.Duration, in, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if errors.Is(err, ErrTimeout) {
			outcome = "timeout"
		} else if err != nil {
			outcome = "error"
		}
		if c.cfg.Observer != nil {
			c.cfg.Observer.ObserveCall(op, outcome, time.Since(start))
		}
		if err != nil {
			c.cfg.Logger.Warn("ollama: call failed", "op", op, "url", url, "error", err,
				"duration_ms", time.Since(start).Milliseconds())
		}
	}()

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return wrapTimeout(ctx, fmt.Errorf("HTTP POST %s: %w", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Endpoint: url, Code: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wrapTimeout(ctx, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func wrapTimeout(ctx context.Context, err error) error {
	var ne net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return errors.Join(ErrTimeout, err)
	}
	return err
}
