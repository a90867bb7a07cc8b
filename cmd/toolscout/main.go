// Command toolscout serves the tool catalog: page analysis, semantic search
// and catalog editing over HTTP, or the same operations as MCP tools over
// stdio when MCP_TRANSPORT=stdio.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/toolscout/catalog"
	"github.com/hazyhaar/toolscout/config"
	"github.com/hazyhaar/toolscout/httpapi"
	"github.com/hazyhaar/toolscout/metrics"
	"github.com/hazyhaar/toolscout/scout"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "YAML config file (default "+config.DefaultPath+" if present)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Logging. stdout carries the MCP protocol in stdio mode.
	lvl, _ := config.ParseLevel(cfg.Server.LogLevel)
	var out io.Writer = os.Stdout
	if cfg.MCP.Transport == "stdio" {
		out = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Catalog DB.
	db, err := catalog.Open(cfg.Catalog.Path, catalog.WithMkdirAll(), catalog.WithBusyTimeout(cfg.Catalog.BusyTimeoutMs))
	if err != nil {
		slog.Error("catalog db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Service.
	svcCfg := cfg.Service(logger)
	svcCfg.Metrics = m
	svc := scout.New(db, svcCfg)

	if n, err := svc.Ping(ctx); err != nil {
		slog.Error("catalog ping", "error", err)
		os.Exit(1)
	} else {
		slog.Info("catalog ready", "path", cfg.Catalog.Path, "tools", n)
	}

	if cfg.MCP.Transport == "stdio" {
		runMCP(ctx, svc)
		return
	}
	runHTTP(ctx, cfg, svc, m, reg)
}

func runMCP(ctx context.Context, svc *scout.Service) {
	srv := mcp.NewServer(&mcp.Implementation{Name: "toolscout", Version: version}, nil)
	svc.RegisterMCP(srv)
	slog.Info("MCP stdio starting")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		slog.Error("MCP stdio", "error", err)
		os.Exit(1)
	}
	slog.Info("MCP stdio stopped")
}

func runHTTP(ctx context.Context, cfg *config.Config, svc *scout.Service, m *metrics.Metrics, reg *prometheus.Registry) {
	handler := httpapi.NewRouter(svc, httpapi.Config{
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Logger:       slog.Default(),
		Metrics:      m,
		Gatherer:     reg,
	})

	// Analysis may spend the fetch timeout and the generate timeout back to back.
	writeTimeout := cfg.Fetch.Timeout + cfg.Ollama.GenerateTimeout + 15*time.Second
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}
