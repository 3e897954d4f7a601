package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/paddock/internal/domain"
)

// URLStateRecord is the persisted outcome of one URL in a run.
type URLStateRecord struct {
	URL     string          `json:"url"`
	State   domain.URLState `json:"state"`
	Chunks  int             `json:"chunks"`
	Stored  int             `json:"stored"`
	Dropped int             `json:"dropped"`
	Error   string          `json:"error,omitempty"`
}

// IngestRun is a row of ingest_runs.
type IngestRun struct {
	ID            string
	Collection    string
	StartedAt     time.Time
	FinishedAt    time.Time
	URLsTotal     int
	URLsProcessed int
	URLsSkipped   int
	URLsFailed    int
	ChunksStored  int
	ChunksDropped int
	Aborted       bool
	Error         string
	URLStates     []URLStateRecord
}

// IngestRunRepository records ingestion run summaries for a collection.
type IngestRunRepository struct {
	db         dbtx
	collection string
}

func NewIngestRunRepository(pool *pgxpool.Pool, collection string) *IngestRunRepository {
	return &IngestRunRepository{db: pool, collection: collection}
}

// Record stores the summary of a finished run.
func (r *IngestRunRepository) Record(ctx context.Context, report *domain.IngestReport) error {
	states := make([]URLStateRecord, 0, len(report.URLs))
	for _, u := range report.URLs {
		rec := URLStateRecord{
			URL:     u.URL,
			State:   u.State,
			Chunks:  u.Chunks,
			Stored:  u.Stored,
			Dropped: u.Dropped,
		}
		if u.Err != nil {
			rec.Error = u.Err.Error()
		}
		states = append(states, rec)
	}
	statesJSON, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("failed to encode url states: %w", err)
	}

	var errText string
	if report.Err != nil {
		errText = report.Err.Error()
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO ingest_runs (
			id, collection, started_at, finished_at,
			urls_total, urls_processed, urls_skipped, urls_failed,
			chunks_stored, chunks_dropped, aborted, error, url_states
		) VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		report.RunID, r.collection, report.StartedAt, report.FinishedAt,
		len(report.URLs), report.Processed, report.Skipped, report.Failed,
		report.ChunksStored, report.ChunksDropped, report.Aborted, nullableString(errText), statesJSON,
	)
	if err != nil {
		return domain.StoreUnavailable(fmt.Errorf("failed to record ingest run: %w", err))
	}
	return nil
}

// ListRecent returns the latest runs for the collection, newest first.
func (r *IngestRunRepository) ListRecent(ctx context.Context, limit int) ([]IngestRun, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx, `
		SELECT id::text, collection, started_at, finished_at,
		       urls_total, urls_processed, urls_skipped, urls_failed,
		       chunks_stored, chunks_dropped, aborted, COALESCE(error, ''), url_states
		FROM ingest_runs
		WHERE collection = $1
		ORDER BY started_at DESC
		LIMIT $2`, r.collection, limit)
	if err != nil {
		return nil, domain.StoreUnavailable(fmt.Errorf("failed to list ingest runs: %w", err))
	}
	defer rows.Close()

	var runs []IngestRun
	for rows.Next() {
		var (
			run        IngestRun
			statesJSON []byte
		)
		if err := rows.Scan(
			&run.ID, &run.Collection, &run.StartedAt, &run.FinishedAt,
			&run.URLsTotal, &run.URLsProcessed, &run.URLsSkipped, &run.URLsFailed,
			&run.ChunksStored, &run.ChunksDropped, &run.Aborted, &run.Error, &statesJSON,
		); err != nil {
			return nil, domain.StoreUnavailable(err)
		}
		if err := json.Unmarshal(statesJSON, &run.URLStates); err != nil {
			return nil, fmt.Errorf("failed to decode url states: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	return runs, nil
}
