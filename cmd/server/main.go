/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the regulation engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load the YAML config file
  2. Seed canonical regulation documents into an empty data directory
  3. Open the SQLite audit log
  4. Load the regulation store and build the retrieval index
  5. Start the HTTP server and the document watcher
  6. Shut both down gracefully on SIGINT/SIGTERM

COMMAND-LINE FLAGS:
  -config  YAML config file path (optional; defaults serve a local setup)
  -listen  Listen address, overrides the config (e.g. ":8080")
  -data    Regulation document directory, overrides the config

SEMANTIC RANKER:
  Enabled only when the config supplies an endpoint and a credential.
  The collaborator is wrapped in a fallback composite, so a ranking
  outage degrades search to local keyword scoring instead of failing.

EXAMPLES:
  # Run with defaults (seeds ./data/regulations on first start)
  ./server

  # Run against a prepared document set
  ./server -data=/var/lib/regulation-engine/documents

  # Run with a config file
  ./server -config=./config.yaml

SEE ALSO:
  - api/server.go: Router configuration
  - regstore/store.go: Document store and update sequence
  - config/config.go: Configuration shape and defaults
*/
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vaalgrid/regulation-engine/api"
	"github.com/vaalgrid/regulation-engine/config"
	"github.com/vaalgrid/regulation-engine/regstore"
	"github.com/vaalgrid/regulation-engine/retrieval"
	"github.com/vaalgrid/regulation-engine/store/sqlite"
	"github.com/vaalgrid/regulation-engine/tools"
)

func main() {
	configPath := flag.String("config", "", "YAML config file path")
	listen := flag.String("listen", "", "listen address (overrides config)")
	dataDir := flag.String("data", "", "regulation document directory (overrides config)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	taxRate, err := cfg.TaxRate()
	if err != nil {
		log.Error("invalid statutory tax rate", "error", err)
		os.Exit(1)
	}

	seeded, err := regstore.Seed(cfg.DataDir)
	if err != nil {
		log.Error("failed to seed regulation documents", "error", err)
		os.Exit(1)
	}
	if seeded > 0 {
		log.Info("seeded canonical regulation documents", "count", seeded)
	}

	audit, err := sqlite.Open(cfg.AuditDB)
	if err != nil {
		log.Error("failed to open audit log", "error", err)
		os.Exit(1)
	}
	defer audit.Close()

	store, err := regstore.New(regstore.Options{
		DataDir:      cfg.DataDir,
		BackupDir:    cfg.BackupDir,
		HistoryDepth: cfg.HistoryDepth,
		Audit:        audit,
		Logger:       log,
	})
	if err != nil {
		log.Error("failed to create regulation store", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.Load(ctx); err != nil {
		log.Error("failed to load regulation documents", "error", err)
		os.Exit(1)
	}

	var ranker retrieval.Ranker
	if cfg.Ranker.Enabled() {
		semantic := retrieval.NewSemanticRanker(
			cfg.Ranker.Endpoint, cfg.Ranker.Key(), cfg.Ranker.Model, cfg.Ranker.Timeout)
		ranker = &retrieval.FallbackRanker{
			Primary:  semantic,
			Fallback: retrieval.KeywordRanker{},
			Logger:   log,
		}
		log.Info("semantic ranker enabled", "endpoint", cfg.Ranker.Endpoint)
	}

	engine := &tools.Engine{Store: store, Ranker: ranker, TaxRate: taxRate}
	registry := tools.NewRegistry(engine)
	handler := api.NewHandler(store, registry)

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", "listen", cfg.Listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if cfg.Watch {
		watcher := regstore.NewWatcher(store, log)
		g.Go(func() error { return watcher.Run(ctx) })
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
