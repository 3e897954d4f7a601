package admin

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/paddock/internal/config"
	"github.com/cloo-solutions/paddock/internal/provider"
	"github.com/cloo-solutions/paddock/internal/service"
)

var probeTexts = []string{"Hello world", "This is a test"}

func ProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check the embedding service",
		Long:  "Embed two sample texts with the configured embedding provider and print the vector dimension",
		Args:  cobra.NoArgs,
		RunE:  runProbe,
	}
	cmd.Flags().Duration("timeout", 30*time.Second, "Time limit for the probe")
	return cmd
}

func runProbe(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	embedder, err := provider.NewEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	fmt.Printf("Testing %s embedding provider...\n", cfg.EmbeddingProvider)
	return probeEmbedder(ctx, os.Stdout, embedder)
}

func probeEmbedder(ctx context.Context, w io.Writer, embedder service.Embedder) error {
	if pinger, ok := embedder.(service.Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			return fmt.Errorf("embedding service unreachable: %w", err)
		}
	}

	vectors, err := embedder.Embed(ctx, probeTexts)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	if err := service.CheckVectors(len(probeTexts), vectors); err != nil {
		return err
	}

	fmt.Fprintln(w, "Embedding service is working")
	fmt.Fprintf(w, "  Vectors:   %d\n", len(vectors))
	fmt.Fprintf(w, "  Dimension: %d\n", len(vectors[0]))
	if len(vectors[0]) != embedder.Dimension() {
		fmt.Fprintf(w, "  Warning: configured dimension is %d\n", embedder.Dimension())
	}
	return nil
}
