package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cloo-solutions/paddock/internal/domain"
)

// RetryConfig bounds retries of transient embedding and store failures.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig is used by the ingestion pipeline.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// QueryRetryConfig keeps retries inside an interactive request budget.
func QueryRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     2,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

// NoRetry performs a single attempt.
func NoRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 1}
}

// Retrier runs operations with bounded exponential backoff. Only errors
// classified as EMBEDDING_UNAVAILABLE or STORE_UNAVAILABLE are retried.
type Retrier struct {
	cfg RetryConfig
}

func NewRetrier(cfg RetryConfig) *Retrier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Retrier{cfg: cfg}
}

// Do runs op until it succeeds, returns a permanent error, attempts run out,
// or ctx is done. The last error is returned.
func (r *Retrier) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	if r.cfg.MaxAttempts == 1 {
		return op(ctx)
	}

	b := backoff.NewExponentialBackOff()
	if r.cfg.InitialInterval > 0 {
		b.InitialInterval = r.cfg.InitialInterval
	}
	if r.cfg.MaxInterval > 0 {
		b.MaxInterval = r.cfg.MaxInterval
	}
	b.MaxElapsedTime = 0

	attempt := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.cfg.MaxAttempts-1)), ctx)
	return backoff.RetryNotify(func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		log.Printf("%s: attempt %d/%d failed, retrying in %v: %v", name, attempt, r.cfg.MaxAttempts, wait, err)
	})
}

func isTransient(err error) bool {
	return errors.Is(err, domain.ErrEmbeddingUnavailable) || errors.Is(err, domain.ErrStoreUnavailable)
}
