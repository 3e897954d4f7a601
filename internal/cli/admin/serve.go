package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/paddock/internal/api/handlers"
	"github.com/cloo-solutions/paddock/internal/cli"
	"github.com/cloo-solutions/paddock/internal/config"
	"github.com/cloo-solutions/paddock/internal/jobs"
	"github.com/cloo-solutions/paddock/internal/provider"
	"github.com/cloo-solutions/paddock/internal/server"
	"github.com/cloo-solutions/paddock/internal/service"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the paddock query API on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cli.BindEnv(cmd, "port", "PADDOCK_PORT")
	addMigrationFlags(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := openRuntime(ctx, cmd, runtimeOptions{migrate: shouldMigrate(cmd), embedder: true})
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.cfg

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	if err := rt.ensureCollection(ctx); err != nil {
		return err
	}
	if err := service.ValidateDimension(ctx, rt.embedder, rt.store); err != nil {
		return fmt.Errorf("embedding dimension check failed: %w", err)
	}

	model, err := provider.NewChatModel(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create chat model: %w", err)
	}

	pipeline := service.NewQueryPipeline(rt.embedder, rt.store, model,
		service.NewPromptAssembler(promptConfig(cfg)),
		service.QueryConfig{
			Collection: cfg.Collection,
			TopK:       cfg.TopK,
			Retry:      service.QueryRetryConfig(),
		})

	probe := newProbe(rt)
	probeWorker := jobs.NewWorker(probe, cfg.ProbeInterval)
	go probeWorker.Start(ctx)

	router := server.NewRouter(server.RouterConfig{
		ChatHandler:       handlers.NewChatHandler(pipeline, cfg.RequestTimeout),
		CollectionHandler: handlers.NewCollectionHandler(rt.store),
		HealthHandler:     handlers.NewHealthHandler(probe),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	probeWorker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func promptConfig(cfg *config.Config) service.PromptConfig {
	pc := service.DefaultPromptConfig()
	if cfg.Domain != pc.Domain {
		pc = service.PromptConfig{Domain: cfg.Domain}
	}
	pc.HideFallback = !cfg.DiscloseFallback
	return pc
}

func newProbe(rt *runtime) *jobs.DependencyProbe {
	probe := jobs.NewDependencyProbe(5 * time.Second)
	probe.Add("vector_store", rt.store.Ping)
	if pinger, ok := rt.embedder.(service.Pinger); ok {
		probe.Add("embedding", pinger.Ping)
	}
	return probe
}
