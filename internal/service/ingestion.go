package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/paddock/internal/domain"
	"github.com/cloo-solutions/paddock/internal/jobs"
	"github.com/cloo-solutions/paddock/internal/telemetry"
)

// Scraper fetches a URL and returns its readable text.
type Scraper interface {
	Scrape(ctx context.Context, url string) (domain.Document, error)
}

// RunRecorder persists the summary of a finished ingestion run.
type RunRecorder interface {
	Record(ctx context.Context, report *domain.IngestReport) error
}

// IngestionConfig controls batching and concurrency of an ingestion run.
type IngestionConfig struct {
	Collection string
	BatchSize  int
	Workers    int
	Retry      RetryConfig
}

// DefaultIngestionConfig embeds batches of 10 chunks sequentially.
func DefaultIngestionConfig() IngestionConfig {
	return IngestionConfig{
		BatchSize: 10,
		Workers:   1,
		Retry:     DefaultRetryConfig(),
	}
}

// IngestionPipeline scrapes a fixed list of URLs, chunks and embeds their
// text, and appends the resulting records to the vector store.
//
// A URL that fails to scrape or yields no text is skipped. An embedding or
// store failure that survives retries aborts the whole run: the URLs after
// the failure point stay pending and nothing further is inserted.
type IngestionPipeline struct {
	scraper  Scraper
	chunker  *Chunker
	embedder Embedder
	store    VectorStore
	recorder RunRecorder
	retrier  *Retrier
	cfg      IngestionConfig
}

// NewIngestionPipeline creates a new IngestionPipeline instance
func NewIngestionPipeline(
	scraper Scraper,
	chunker *Chunker,
	embedder Embedder,
	store VectorStore,
	cfg IngestionConfig,
) *IngestionPipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultIngestionConfig().BatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &IngestionPipeline{
		scraper:  scraper,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		retrier:  NewRetrier(cfg.Retry),
		cfg:      cfg,
	}
}

// WithRecorder sets where run summaries are persisted.
func (p *IngestionPipeline) WithRecorder(r RunRecorder) *IngestionPipeline {
	p.recorder = r
	return p
}

// Run ingests urls in order. The returned report is never nil; err is
// non-nil only when the run was aborted.
func (p *IngestionPipeline) Run(ctx context.Context, urls []string) (*domain.IngestReport, error) {
	report := &domain.IngestReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	for _, u := range urls {
		report.URLs = append(report.URLs, &domain.URLReport{URL: u, State: domain.URLStatePending})
	}

	ctx, span := telemetry.StartRunSpan(ctx, p.cfg.Collection, report.RunID)
	defer span.End()
	defer p.finish(ctx, report)

	log.Printf("ingest %s: starting run over %d urls (batch size %d, workers %d)",
		report.RunID, len(urls), p.cfg.BatchSize, p.cfg.Workers)

	if err := p.preflight(ctx); err != nil {
		return p.abort(report, nil, err, span)
	}

	for i, ur := range report.URLs {
		if err := ctx.Err(); err != nil {
			return p.abort(report, nil, err, span)
		}

		log.Printf("ingest %s: [%d/%d] processing %s", report.RunID, i+1, len(report.URLs), ur.URL)
		err := p.ingestURL(ctx, report.RunID, ur)

		report.ChunksStored += ur.Stored
		report.ChunksDropped += ur.Dropped
		if err != nil {
			return p.abort(report, ur, err, span)
		}
		switch ur.State {
		case domain.URLStateSkipped:
			report.Skipped++
		case domain.URLStateStored:
			report.Processed++
		}
	}

	span.SetData("chunks_stored", report.ChunksStored)
	log.Printf("ingest %s: completed: %d processed, %d skipped, %d chunks stored, %d dropped",
		report.RunID, report.Processed, report.Skipped, report.ChunksStored, report.ChunksDropped)
	return report, nil
}

func (p *IngestionPipeline) abort(report *domain.IngestReport, ur *domain.URLReport, err error, span *telemetry.Span) (*domain.IngestReport, error) {
	if ur != nil {
		ur.State = domain.URLStateFailed
		ur.Err = err
		report.Failed++
	}
	report.Aborted = true
	report.Err = err
	span.SetError(err)

	log.Printf("ingest %s: aborted: %v (%d urls not processed)", report.RunID, err, len(report.Pending()))
	return report, err
}

func (p *IngestionPipeline) finish(ctx context.Context, report *domain.IngestReport) {
	report.FinishedAt = time.Now().UTC()
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(context.WithoutCancel(ctx), report); err != nil {
		log.Printf("ingest %s: failed to record run: %v", report.RunID, err)
	}
}

// preflight checks the embedding service is reachable before any URL is
// scraped.
func (p *IngestionPipeline) preflight(ctx context.Context) error {
	pinger, ok := p.embedder.(Pinger)
	if !ok {
		return nil
	}
	if err := pinger.Ping(ctx); err != nil {
		return domain.EmbeddingUnavailable(fmt.Errorf("preflight check failed: %w", err))
	}
	return nil
}

func (p *IngestionPipeline) ingestURL(ctx context.Context, runID string, ur *domain.URLReport) error {
	ctx, span := telemetry.StartSourceSpan(ctx, p.cfg.Collection, runID, ur.URL)
	defer span.End()

	doc, err := p.scraper.Scrape(ctx, ur.URL)
	if err != nil {
		log.Printf("ingest %s: skipping %s: %v", runID, ur.URL, err)
		ur.State = domain.URLStateSkipped
		ur.Err = err
		return nil
	}
	if strings.TrimSpace(doc.RawText) == "" {
		log.Printf("ingest %s: skipping %s: no content", runID, ur.URL)
		ur.State = domain.URLStateSkipped
		return nil
	}
	ur.State = domain.URLStateScraped

	chunks := p.chunker.SplitDocument(doc)
	ur.Chunks = len(chunks)
	ur.State = domain.URLStateChunked
	log.Printf("ingest %s: %s split into %d chunks", runID, ur.URL, len(chunks))

	batches := batchChunks(chunks, p.cfg.BatchSize)
	err = jobs.RunOrdered(ctx, len(batches), p.cfg.Workers,
		func(ctx context.Context, i int) ([][]float32, error) {
			log.Printf("ingest %s: embedding batch %d/%d (%d chunks)", runID, i+1, len(batches), len(batches[i]))
			return p.embedBatch(ctx, batches[i])
		},
		func(i int, vectors [][]float32) error {
			ur.State = domain.URLStateEmbedded
			return p.storeBatch(ctx, runID, ur, batches[i], vectors)
		},
	)
	if err != nil {
		span.SetError(err)
		return err
	}

	ur.State = domain.URLStateStored
	span.SetData("chunks", ur.Chunks)
	span.SetData("stored", ur.Stored)
	log.Printf("ingest %s: stored %d chunks from %s", runID, ur.Stored, ur.URL)
	return nil
}

func (p *IngestionPipeline) embedBatch(ctx context.Context, batch []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	var vectors [][]float32
	err := p.retrier.Do(ctx, "embed batch", func(ctx context.Context) error {
		v, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return domain.EmbeddingUnavailable(err)
		}
		if err := CheckVectors(len(texts), v); err != nil {
			return err
		}
		vectors = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func (p *IngestionPipeline) storeBatch(ctx context.Context, runID string, ur *domain.URLReport, batch []domain.Chunk, vectors [][]float32) error {
	for i, c := range batch {
		if len(vectors[i]) == 0 {
			log.Printf("ingest %s: dropping chunk %d of %s: empty embedding", runID, c.Index, ur.URL)
			ur.Dropped++
			continue
		}

		rec := domain.StoredRecord{
			Vector:    vectors[i],
			Text:      c.Text,
			SourceURL: c.SourceURL,
		}
		err := p.retrier.Do(ctx, "insert record", func(ctx context.Context) error {
			return p.store.Insert(ctx, rec)
		})
		if err != nil {
			if domain.Code(err) == domain.ErrCodeDimensionMismatch {
				return err
			}
			return domain.StoreUnavailable(err)
		}
		ur.Stored++
	}
	return nil
}

func batchChunks(chunks []domain.Chunk, size int) [][]domain.Chunk {
	var out [][]domain.Chunk
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		out = append(out, chunks[start:end])
	}
	return out
}
