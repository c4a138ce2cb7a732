// Package cli provides the command-line interface for timepivot.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/timepivot/internal/config"
	"github.com/raphaelgruber/timepivot/internal/engine"
	"github.com/raphaelgruber/timepivot/internal/index"
	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/provenance"
	"github.com/raphaelgruber/timepivot/internal/store"
	"github.com/raphaelgruber/timepivot/internal/synonym"
	"github.com/raphaelgruber/timepivot/internal/wikidata"
	"github.com/raphaelgruber/timepivot/internal/zoom"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configPath string

	// Wired in PersistentPreRunE
	cfg      config.Config
	eng      *engine.Engine
	st       store.Store
	closeLog func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "timepivot",
	Short: "Dimensional navigation over an entity graph",
	Long: `Timepivot navigates a graph of historical entities along dimensions:
timeline, geography, people, events and category.

Search entities, pivot between dimensions along derived relations,
and zoom in or out to aggregate entities at coarser granularities.
Conflicting facts from multiple sources are resolved by source trust.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return setup(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if st != nil {
			if err := st.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
			}
		}
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

// setup loads config, opens the store and wires the engine. The index is
// rebuilt here so every command sees pivot edges.
func setup(ctx context.Context) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Logging.Level = "DEBUG"
	}

	logger, cleanup := config.SetupLogger(cfg.Logging)
	closeLog = cleanup

	switch cfg.Store.Backend {
	case "memory", "":
		mem := store.NewMemory()
		if cfg.Store.Seed {
			if err := store.SeedSample(ctx, mem); err != nil {
				return fmt.Errorf("seed sample data: %w", err)
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
			return fmt.Errorf("connect to store: %w", err)
		}
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	synonyms, err := loadSynonyms()
	if err != nil {
		return err
	}

	ixCfg := index.DefaultConfig()
	if cfg.Index.MaxGapYears > 0 {
		ixCfg.MaxGapYears = cfg.Index.MaxGapYears
	}
	if cfg.Index.Workers > 0 {
		ixCfg.Workers = cfg.Index.Workers
	}
	ix := index.New(st, synonyms, ixCfg)
	if err := ix.Rebuild(ctx); err != nil {
		return fmt.Errorf("build pivot index: %w", err)
	}

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

	eng = engine.New(engine.Options{
		Store:    st,
		Synonyms: synonyms,
		Index:    ix,
		Zoom:     zoom.New(nil),
		Trust:    trust,
		Upstream: upstream,
		Logger:   logger,
	})
	return nil
}

// loadSynonyms builds the role registry from the configured file or the
// built-in table. Hot reload only makes sense for long-running processes,
// so the watcher is not started here.
func loadSynonyms() (*synonym.Registry, error) {
	reg, err := synonym.New(synonym.Default())
	if err != nil {
		return nil, fmt.Errorf("build synonym registry: %w", err)
	}
	if cfg.Synonyms.File != "" {
		data, err := os.ReadFile(cfg.Synonyms.File)
		if err != nil {
			return nil, fmt.Errorf("read synonym file: %w", err)
		}
		if err := reg.LoadYAML(data); err != nil {
			return nil, fmt.Errorf("load synonym file: %w", err)
		}
	}
	return reg, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(pivotCmd)
	rootCmd.AddCommand(zoomCmd)
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(randomCmd)
	rootCmd.AddCommand(entityCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(dimensionsCmd)
	rootCmd.AddCommand(rebuildCmd)
}
