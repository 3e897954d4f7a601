package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/paddock/internal/domain"
	"github.com/cloo-solutions/paddock/internal/repository"
)

func CollectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection",
		Short: "Manage the vector collection",
		Long:  "Create the configured vector collection and inspect its contents",
	}

	cmd.AddCommand(CollectionInitCmd())
	cmd.AddCommand(CollectionStatsCmd())
	cmd.AddCommand(CollectionRunsCmd())

	return cmd
}

func CollectionInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the vector collection",
		Long:  "Create the collection named by PADDOCK_COLLECTION with the configured dimension and metric. Existing collections are left untouched.",
		Args:  cobra.NoArgs,
		RunE:  runCollectionInit,
	}
	addMigrationFlags(cmd)
	return cmd
}

func runCollectionInit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := openRuntime(ctx, cmd, runtimeOptions{migrate: shouldMigrate(cmd)})
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.cfg

	created, err := rt.store.CreateCollection(ctx, cfg.Collection, cfg.Dimension, cfg.MetricValue())
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if created {
		fmt.Printf("Collection %q created (dimension %d, metric %s)\n", cfg.Collection, cfg.Dimension, cfg.Metric)
	} else {
		fmt.Printf("Collection %q already exists\n", cfg.Collection)
	}
	return nil
}

func CollectionStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		Args:  cobra.NoArgs,
		RunE:  runCollectionStats,
	}
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	return cmd
}

func runCollectionStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	rt, err := openRuntime(ctx, cmd, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	info, err := rt.store.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to read collection: %w", err)
	}
	return printCollectionInfo(os.Stdout, info, outputFormat)
}

func printCollectionInfo(w io.Writer, info domain.CollectionInfo, format string) error {
	if format == "json" {
		jsonBytes, err := json.MarshalIndent(map[string]interface{}{
			"name":      info.Name,
			"dimension": info.Dimension,
			"metric":    info.Metric,
			"count":     info.Count,
		}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(jsonBytes))
		return err
	}

	fmt.Fprintf(w, "Collection: %s\n", info.Name)
	fmt.Fprintf(w, "  Dimension: %d\n", info.Dimension)
	fmt.Fprintf(w, "  Metric:    %s\n", info.Metric)
	fmt.Fprintf(w, "  Records:   %d\n", info.Count)
	return nil
}

func CollectionRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent ingestion runs",
		Long:  "List recent ingestion runs for the collection. Only available with the pgvector store.",
		Args:  cobra.NoArgs,
		RunE:  runCollectionRuns,
	}
	cmd.Flags().IntP("limit", "n", 10, "Maximum number of runs to show")
	return cmd
}

func runCollectionRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	limit, _ := cmd.Flags().GetInt("limit")

	rt, err := openRuntime(ctx, cmd, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	vs, ok := rt.store.(*repository.VectorStore)
	if !ok {
		return fmt.Errorf("ingestion runs are only recorded with the pgvector store (current: %s)", rt.cfg.VectorStore)
	}

	runs, err := vs.Runs().ListRecent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list ingestion runs: %w", err)
	}
	printRuns(os.Stdout, runs)
	return nil
}

func printRuns(w io.Writer, runs []repository.IngestRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No ingestion runs found")
		return
	}
	fmt.Fprintln(w, "Ingestion runs:")
	for _, run := range runs {
		status := "ok"
		if run.Aborted {
			status = "aborted"
		}
		fmt.Fprintf(w, "  %s: %s, %d/%d urls processed, %d skipped, %d chunks stored (started: %s)\n",
			run.ID, status, run.URLsProcessed, run.URLsTotal, run.URLsSkipped, run.ChunksStored,
			run.StartedAt.Format("2006-01-02 15:04:05"))
		if run.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", run.Error)
		}
	}
}
