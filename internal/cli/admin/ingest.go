package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/paddock/internal/cli"
	"github.com/cloo-solutions/paddock/internal/domain"
	"github.com/cloo-solutions/paddock/internal/repository"
	"github.com/cloo-solutions/paddock/internal/scraper"
	"github.com/cloo-solutions/paddock/internal/service"
	"github.com/cloo-solutions/paddock/internal/storage"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Scrape, chunk and embed the source URLs",
		Long: `Run one ingestion pass over the configured source URLs.

Sources are taken from --source flags, then PADDOCK_SOURCES, then the file
named by PADDOCK_SOURCES_FILE, then the built-in Formula 1 list.
Exits non-zero when the run is aborted by an embedding or store failure.`,
		RunE: runIngest,
	}

	cmd.Flags().StringSlice("source", nil, "Source URL to ingest (repeatable)")
	cmd.Flags().Int("workers", 0, "Concurrent embedding batches per URL (default from PADDOCK_INGEST_WORKERS)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cli.BindEnv(cmd, "source", "PADDOCK_SOURCES")
	cli.BindEnv(cmd, "workers", "PADDOCK_INGEST_WORKERS")
	addMigrationFlags(cmd)

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, cmd, runtimeOptions{migrate: shouldMigrate(cmd), embedder: true})
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.cfg

	flagSources, _ := cmd.Flags().GetStringSlice("source")
	sources, err := cfg.ResolveSources(flagSources)
	if err != nil {
		return err
	}

	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = cfg.IngestWorkers
	}

	chunker, err := service.NewChunker(service.ChunkConfig{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap})
	if err != nil {
		return err
	}

	if cfg.UnidocLicenseKey != "" {
		if err := scraper.SetPDFLicense(cfg.UnidocLicenseKey); err != nil {
			log.Printf("pdf license rejected, pdf sources will be skipped: %v", err)
		}
	}
	sc := scraper.New(scraper.Config{RequestsPerSecond: cfg.ScrapeRate})

	if cfg.HasS3() {
		archive, err := storage.NewPageArchive(ctx, storage.ArchiveConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create page archive: %w", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		sc.WithArchiver(archive)
	}

	if err := rt.ensureCollection(ctx); err != nil {
		return err
	}
	if err := service.ValidateDimension(ctx, rt.embedder, rt.store); err != nil {
		// An unreachable embedder is reported by the run's preflight check.
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return fmt.Errorf("embedding dimension check failed: %w", err)
		}
		log.Printf("embedding dimension check skipped: %v", err)
	}

	pipeline := service.NewIngestionPipeline(sc, chunker, rt.embedder, rt.store, service.IngestionConfig{
		Collection: cfg.Collection,
		BatchSize:  cfg.BatchSize,
		Workers:    workers,
		Retry:      service.DefaultRetryConfig(),
	})
	if vs, ok := rt.store.(*repository.VectorStore); ok {
		pipeline.WithRecorder(vs.Runs())
	}

	report, runErr := pipeline.Run(ctx, sources)

	outputFormat, _ := cmd.Flags().GetString("output")
	if err := printReport(os.Stdout, report, outputFormat); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("ingestion aborted: %w", runErr)
	}
	return nil
}

type reportJSON struct {
	RunID         string          `json:"run_id"`
	Processed     int             `json:"processed"`
	Skipped       int             `json:"skipped"`
	Failed        int             `json:"failed"`
	ChunksStored  int             `json:"chunks_stored"`
	ChunksDropped int             `json:"chunks_dropped"`
	Aborted       bool            `json:"aborted"`
	Error         string          `json:"error,omitempty"`
	URLs          []urlReportJSON `json:"urls"`
}

type urlReportJSON struct {
	URL     string          `json:"url"`
	State   domain.URLState `json:"state"`
	Chunks  int             `json:"chunks"`
	Stored  int             `json:"stored"`
	Dropped int             `json:"dropped"`
	Error   string          `json:"error,omitempty"`
}

func printReport(w io.Writer, report *domain.IngestReport, format string) error {
	if format == "json" {
		out := reportJSON{
			RunID:         report.RunID,
			Processed:     report.Processed,
			Skipped:       report.Skipped,
			Failed:        report.Failed,
			ChunksStored:  report.ChunksStored,
			ChunksDropped: report.ChunksDropped,
			Aborted:       report.Aborted,
			URLs:          make([]urlReportJSON, 0, len(report.URLs)),
		}
		if report.Err != nil {
			out.Error = report.Err.Error()
		}
		for _, u := range report.URLs {
			ur := urlReportJSON{URL: u.URL, State: u.State, Chunks: u.Chunks, Stored: u.Stored, Dropped: u.Dropped}
			if u.Err != nil {
				ur.Error = u.Err.Error()
			}
			out.URLs = append(out.URLs, ur)
		}
		jsonBytes, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(jsonBytes))
		return err
	}

	fmt.Fprintf(w, "Run %s\n", report.RunID)
	for _, u := range report.URLs {
		fmt.Fprintf(w, "  %-8s %s", u.State, u.URL)
		if u.State == domain.URLStateStored {
			fmt.Fprintf(w, " (%d chunks, %d stored, %d dropped)", u.Chunks, u.Stored, u.Dropped)
		}
		if u.Err != nil {
			fmt.Fprintf(w, ": %v", u.Err)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\nProcessed: %d  Skipped: %d  Failed: %d  Chunks stored: %d  Dropped: %d\n",
		report.Processed, report.Skipped, report.Failed, report.ChunksStored, report.ChunksDropped)
	if report.Aborted {
		fmt.Fprintf(w, "Aborted: %v (%d urls not processed)\n", report.Err, len(report.Pending()))
	}
	return nil
}
