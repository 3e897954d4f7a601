package domain

import "time"

// URLState is the ingestion state of a single source URL.
type URLState string

const (
	URLStatePending  URLState = "pending"
	URLStateScraped  URLState = "scraped"
	URLStateChunked  URLState = "chunked"
	URLStateEmbedded URLState = "embedded"
	URLStateStored   URLState = "stored"
	URLStateSkipped  URLState = "skipped"
	URLStateFailed   URLState = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s URLState) IsTerminal() bool {
	switch s {
	case URLStateStored, URLStateSkipped, URLStateFailed:
		return true
	}
	return false
}

// URLReport is the outcome of ingesting one URL.
type URLReport struct {
	URL     string
	State   URLState
	Chunks  int
	Stored  int
	Dropped int
	Err     error
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    time.Time
	URLs          []*URLReport
	Processed     int
	Skipped       int
	Failed        int
	ChunksStored  int
	ChunksDropped int
	Aborted       bool
	Err           error
}

// Pending returns the URLs that were never processed, which after an abort
// are the ones following the failure point.
func (r *IngestReport) Pending() []string {
	var out []string
	for _, u := range r.URLs {
		if u.State == URLStatePending {
			out = append(out, u.URL)
		}
	}
	return out
}
