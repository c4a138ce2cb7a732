// Package main provides the entry point for the timepivot MCP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/raphaelgruber/timepivot/internal/config"
	"github.com/raphaelgruber/timepivot/internal/engine"
	"github.com/raphaelgruber/timepivot/internal/index"
	"github.com/raphaelgruber/timepivot/internal/metrics"
	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/provenance"
	"github.com/raphaelgruber/timepivot/internal/server"
	"github.com/raphaelgruber/timepivot/internal/store"
	"github.com/raphaelgruber/timepivot/internal/synonym"
	"github.com/raphaelgruber/timepivot/internal/tools"
	"github.com/raphaelgruber/timepivot/internal/wikidata"
	"github.com/raphaelgruber/timepivot/internal/zoom"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load(os.Getenv("TIMEPIVOT_CONFIG"))
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.Logging)
	defer func() { _ = cleanup() }()

	logger.Info("timepivot starting",
		"version", version,
		"store_backend", cfg.Store.Backend,
		"upstream_enabled", cfg.Upstream.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Open the entity store
	var st store.Store
	switch cfg.Store.Backend {
	case "memory", "":
		mem := store.NewMemory()
		if cfg.Store.Seed {
			if err := store.SeedSample(ctx, mem); err != nil {
				logger.Error("failed to seed sample data", "error", err)
				os.Exit(1)
			}
		}
		st = mem
	case "surrealdb":
		st, err = store.OpenSurreal(ctx, store.SurrealConfig{
			URL:       cfg.Store.SurrealURL,
			Namespace: cfg.Store.SurrealNamespace,
			Database:  cfg.Store.SurrealDatabase,
			Username:  cfg.Store.SurrealUser,
			Password:  cfg.Store.SurrealPass,
			AuthLevel: cfg.Store.SurrealAuthLevel,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to store", "error", err)
			os.Exit(1)
		}
	default:
		logger.Error("unknown store backend", "backend", cfg.Store.Backend)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing store")
		_ = st.Close(context.Background())
	}()

	// Synonym registry, optionally hot-reloaded from a YAML file
	synonyms, err := synonym.New(synonym.Default())
	if err != nil {
		logger.Error("failed to build synonym registry", "error", err)
		os.Exit(1)
	}
	if cfg.Synonyms.File != "" {
		data, err := os.ReadFile(cfg.Synonyms.File)
		if err != nil {
			logger.Error("failed to read synonym file", "error", err)
			os.Exit(1)
		}
		if err := synonyms.LoadYAML(data); err != nil {
			logger.Error("failed to load synonym file", "error", err)
			os.Exit(1)
		}
		if cfg.Synonyms.Watch {
			go func() {
				if err := synonym.Watch(ctx, cfg.Synonyms.File, synonyms, logger); err != nil {
					logger.Error("synonym watcher stopped", "error", err)
				}
			}()
		}
	}

	// Pivot index over the store
	ixCfg := index.DefaultConfig()
	if cfg.Index.MaxGapYears > 0 {
		ixCfg.MaxGapYears = cfg.Index.MaxGapYears
	}
	if cfg.Index.Workers > 0 {
		ixCfg.Workers = cfg.Index.Workers
	}
	ix := index.New(st, synonyms, ixCfg)
	if err := ix.Rebuild(ctx); err != nil {
		logger.Error("failed to build pivot index", "error", err)
		os.Exit(1)
	}
	logger.Info("pivot index built")

	// One collector serves both the engine and the server middleware so the
	// metrics snapshot covers the whole request path.
	collector := metrics.NewCollector()

	trust := provenance.NewTrustTable(logger)
	trust.SetClassDefault(models.SourceCurated, cfg.Trust.Curated)
	trust.SetClassDefault(models.SourcePublic, cfg.Trust.Public)
	trust.SetClassDefault(models.SourceUserSubmitted, cfg.Trust.UserSubmitted)

	var upstream *wikidata.Client
	if cfg.Upstream.Enabled {
		upstream = wikidata.New(wikidata.Config{
			BaseURL:           cfg.Upstream.BaseURL,
			RequestsPerSecond: cfg.Upstream.RequestsPerSecond,
			Burst:             cfg.Upstream.Burst,
			CacheTTL:          cfg.Upstream.CacheTTL,
			Timeout:           cfg.Upstream.Timeout,
			LogBodies:         cfg.Upstream.LogBodies,
		}, logger)
	}

	eng := engine.New(engine.Options{
		Store:    st,
		Synonyms: synonyms,
		Index:    ix,
		Zoom:     zoom.New(nil),
		Trust:    trust,
		Upstream: upstream,
		Metrics:  collector,
		Logger:   logger,
	})

	// Create and setup server
	srv := server.New(version, logger, collector)
	srv.Setup()

	// Register tools
	deps := &tools.Dependencies{
		Engine: eng,
		Logger: logger,
	}
	tools.RegisterAll(srv.MCPServer(), deps)

	logger.Info("server ready, awaiting connections")

	// Run server (blocks until disconnect or context cancelled)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
