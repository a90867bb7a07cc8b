// Command toolscout-seed replaces the catalog contents with seed tools:
// the built-in list, or a YAML file given with -file.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/toolscout/catalog"
	"github.com/hazyhaar/toolscout/config"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	dbPath := flag.String("db", "", "catalog database (overrides config and CATALOG_DB)")
	file := flag.String("file", "", "seed YAML file (default: built-in seed list)")
	keep := flag.Bool("keep", false, "only seed when the catalog is empty")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	path := cfg.Catalog.Path
	if *dbPath != "" {
		path = *dbPath
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var tools []*catalog.Tool
	if *file != "" {
		tools, err = catalog.LoadSeedFile(*file)
	} else {
		tools, err = catalog.SeedTools()
	}
	if err != nil {
		slog.Error("load seed", "error", err)
		os.Exit(1)
	}

	db, err := catalog.Open(path, catalog.WithMkdirAll())
	if err != nil {
		slog.Error("catalog db", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := catalog.NewStore(db)

	if *keep {
		n, err := store.CountTools(ctx)
		if err != nil {
			slog.Error("count tools", "error", err)
			os.Exit(1)
		}
		if n > 0 {
			slog.Info("catalog not empty, skipping seed", "tools", n)
			return
		}
	}

	if err := store.Replace(ctx, tools); err != nil {
		slog.Error("seed", "error", err)
		os.Exit(1)
	}
	slog.Info("catalog seeded", "path", path, "tools", len(tools))
}
