package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/paddock/internal/config"
	"github.com/cloo-solutions/paddock/internal/database"
	"github.com/cloo-solutions/paddock/internal/provider"
	"github.com/cloo-solutions/paddock/internal/service"
	"github.com/cloo-solutions/paddock/internal/telemetry"
)

// runtime holds the backends shared by the daemon commands.
type runtime struct {
	cfg      *config.Config
	store    provider.Store
	embedder service.Embedder
	closers  []func()
}

type runtimeOptions struct {
	migrate  bool
	embedder bool
}

// openRuntime loads config, starts telemetry, applies migrations when the
// store is pgvector and connects to the vector store.
func openRuntime(ctx context.Context, cmd *cobra.Command, opts runtimeOptions) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	rt := &runtime{cfg: cfg}

	if shutdown := initTelemetry(cfg); shutdown != nil {
		rt.closers = append(rt.closers, shutdown)
	}

	if opts.migrate && cfg.VectorStore == config.VectorStorePgvector {
		dir, _ := cmd.Flags().GetString("migrations")
		if err := database.RunMigrations(cfg.DatabaseURL, dir); err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	store, closeStore, err := provider.OpenStore(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to open %s vector store: %w", cfg.VectorStore, err)
	}
	rt.store = store
	rt.closers = append(rt.closers, closeStore)
	log.Printf("connected to %s vector store (collection %q)", cfg.VectorStore, cfg.Collection)

	if opts.embedder {
		rt.embedder, err = provider.NewEmbedder(ctx, cfg)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
	}
	return rt, nil
}

// ensureCollection creates the configured collection if needed.
func (rt *runtime) ensureCollection(ctx context.Context) error {
	created, err := rt.store.CreateCollection(ctx, rt.cfg.Collection, rt.cfg.Dimension, rt.cfg.MetricValue())
	if err != nil {
		return fmt.Errorf("failed to create collection %q: %w", rt.cfg.Collection, err)
	}
	if created {
		log.Printf("created collection %q (dimension %d, metric %s)", rt.cfg.Collection, rt.cfg.Dimension, rt.cfg.Metric)
	}
	return nil
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

func initTelemetry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return nil
	}

	// Default to 10% sampling in production, 100% in development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return nil
	}
	return shutdown
}

func addMigrationFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", database.DefaultMigrationsDir, "Directory containing SQL migrations")
}

func shouldMigrate(cmd *cobra.Command) bool {
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	return !noMigrate
}
