// Package config loads toolscout settings: built-in defaults, then an
// optional YAML file, then .env, then process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/toolscout/analysis"
	"github.com/hazyhaar/toolscout/embedding"
	"github.com/hazyhaar/toolscout/ollama"
	"github.com/hazyhaar/toolscout/scout"
	"github.com/hazyhaar/toolscout/scrape"
	"github.com/hazyhaar/toolscout/search"
)

// DefaultPath is read when no -config flag is given. A missing file is not
// an error.
const DefaultPath = "toolscout.yaml"

// Config is the full toolscout configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	LogLevel        string        `yaml:"log_level"` // debug | info | warn | error
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CatalogConfig locates the SQLite catalog.
type CatalogConfig struct {
	Path          string `yaml:"path"`
	BusyTimeoutMs int    `yaml:"busy_timeout_ms"`
}

// FetchConfig configures page fetching and the page cache.
type FetchConfig struct {
	Timeout              time.Duration `yaml:"timeout"`
	TTL                  time.Duration `yaml:"ttl"`
	MaxBytes             int64         `yaml:"max_bytes"`
	MaxRedirects         int           `yaml:"max_redirects"`
	UserAgent            string        `yaml:"user_agent"`
	BlockPrivateNetworks bool          `yaml:"block_private_networks"`
}

// OllamaConfig points at the model server.
type OllamaConfig struct {
	GenerateURL     string        `yaml:"generate_url"`
	GenerateModel   string        `yaml:"generate_model"`
	GenerateTimeout time.Duration `yaml:"generate_timeout"`
	EmbedURL        string        `yaml:"embed_url"`
	EmbedModel      string        `yaml:"embed_model"`
	EmbedTimeout    time.Duration `yaml:"embed_timeout"`
}

// AnalysisConfig configures the summary cache.
type AnalysisConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// EmbeddingConfig configures the vector cache.
type EmbeddingConfig struct {
	TTL     time.Duration `yaml:"ttl"`
	KeyMode string        `yaml:"key_mode"` // prefix | fingerprint
}

// SearchConfig configures ranking.
type SearchConfig struct {
	BatchSize    int `yaml:"batch_size"`
	DefaultLimit int `yaml:"default_limit"`
}

// MCPConfig selects how the MCP tool surface is served.
type MCPConfig struct {
	// Transport is "" (disabled) or "stdio".
	Transport string `yaml:"transport"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			LogLevel:        "info",
			MaxBodyBytes:    1 << 20,
			ShutdownTimeout: 10 * time.Second,
		},
		Catalog: CatalogConfig{
			Path:          "db/catalog.db",
			BusyTimeoutMs: 10000,
		},
		Fetch: FetchConfig{
			Timeout:      15 * time.Second,
			TTL:          time.Hour,
			MaxBytes:     10 << 20,
			MaxRedirects: 5,
			UserAgent:    scrape.DefaultUserAgent,
		},
		Ollama: OllamaConfig{
			GenerateURL:     "http://localhost:11434/api/generate",
			GenerateModel:   "gemma3:12b",
			GenerateTimeout: 30 * time.Second,
			EmbedURL:        "http://localhost:11434/api/embeddings",
			EmbedModel:      "nomic-embed-text",
			EmbedTimeout:    10 * time.Second,
		},
		Analysis:  AnalysisConfig{TTL: 24 * time.Hour},
		Embedding: EmbeddingConfig{TTL: 24 * time.Hour, KeyMode: embedding.KeyPrefix},
		Search:    SearchConfig{BatchSize: 5, DefaultLimit: 10},
	}
}

// Load builds the configuration. path may be empty; a missing file at
// DefaultPath is ignored, a missing explicit path is an error. A .env file
// in the working directory is loaded if present; it never overrides
// variables already set in the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	_ = godotenv.Load()
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from environment variables read through getenv.
// Empty values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		if strings.Contains(v, ":") {
			c.Server.Addr = v
		} else {
			c.Server.Addr = ":" + v
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := getenv("CATALOG_DB"); v != "" {
		c.Catalog.Path = v
	}
	if v := getenv("OLLAMA_API"); v != "" {
		c.Ollama.GenerateURL = v
	}
	if v := getenv("OLLAMA_EMBED_API"); v != "" {
		c.Ollama.EmbedURL = v
	}
	if v := getenv("GENERATE_MODEL"); v != "" {
		c.Ollama.GenerateModel = v
	}
	if v := getenv("EMBED_MODEL"); v != "" {
		c.Ollama.EmbedModel = v
	}
	if v := getenv("MCP_TRANSPORT"); v != "" {
		c.MCP.Transport = v
	}
	return nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}
	if c.Ollama.GenerateURL == "" || c.Ollama.EmbedURL == "" {
		return fmt.Errorf("ollama generate_url and embed_url are required")
	}
	switch c.Embedding.KeyMode {
	case embedding.KeyPrefix, embedding.KeyFingerprint:
	default:
		return fmt.Errorf("embedding.key_mode: unsupported %q (use prefix or fingerprint)", c.Embedding.KeyMode)
	}
	switch c.MCP.Transport {
	case "", "stdio":
	default:
		return fmt.Errorf("mcp.transport: unsupported %q (use stdio)", c.MCP.Transport)
	}
	if _, err := ParseLevel(c.Server.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log level name to its slog level. "" means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("server.log_level: unknown level %q", s)
}

// Service maps the configuration onto the orchestrator's component configs.
func (c *Config) Service(logger *slog.Logger) scout.Config {
	return scout.Config{
		Fetch: scrape.Config{
			Fetcher: scrape.FetcherConfig{
				Timeout:      c.Fetch.Timeout,
				MaxBytes:     c.Fetch.MaxBytes,
				MaxRedirects: c.Fetch.MaxRedirects,
				UserAgent:    c.Fetch.UserAgent,
			},
			TTL:                  c.Fetch.TTL,
			BlockPrivateNetworks: c.Fetch.BlockPrivateNetworks,
		},
		Ollama: ollama.Config{
			GenerateURL:     c.Ollama.GenerateURL,
			GenerateModel:   c.Ollama.GenerateModel,
			GenerateTimeout: c.Ollama.GenerateTimeout,
			EmbedURL:        c.Ollama.EmbedURL,
			EmbedModel:      c.Ollama.EmbedModel,
			EmbedTimeout:    c.Ollama.EmbedTimeout,
		},
		Analysis:  analysis.Config{TTL: c.Analysis.TTL},
		Embedding: embedding.Config{TTL: c.Embedding.TTL, KeyMode: c.Embedding.KeyMode},
		Search:    search.Config{BatchSize: c.Search.BatchSize, DefaultLimit: c.Search.DefaultLimit},
		Logger:    logger,
	}
}
