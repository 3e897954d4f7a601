package scraper

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cloo-solutions/paddock/internal/domain"
)

const (
	DefaultUserAgent    = "paddock-ingest/1.0 (+https://github.com/cloo-solutions/paddock)"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxBodyBytes = 10 << 20
)

// Archiver keeps a copy of the raw response body.
type Archiver interface {
	Archive(ctx context.Context, pageURL, contentType string, body []byte) (string, error)
}

// Config controls how pages are fetched.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond caps the fetch rate across all URLs. Zero disables
	// the limit.
	RequestsPerSecond float64
	MaxBodyBytes      int64
}

// Scraper fetches URLs over HTTP and extracts their readable text.
type Scraper struct {
	client   *http.Client
	limiter  *rate.Limiter
	archiver Archiver
	cfg      Config
}

func New(cfg Config) *Scraper {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Scraper{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		cfg:     cfg,
	}
}

// WithArchiver sets where raw page bodies are copied. Archive failures are
// logged and never fail the scrape.
func (s *Scraper) WithArchiver(a Archiver) *Scraper {
	s.archiver = a
	return s
}

// Scrape fetches url and returns its text. Every failure is a
// SCRAPE_FAILURE; an empty document is not an error.
func (s *Scraper) Scrape(ctx context.Context, url string) (domain.Document, error) {
	doc := domain.Document{URL: url}

	if err := s.limiter.Wait(ctx); err != nil {
		return doc, domain.ScrapeFailure(url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return doc, domain.ScrapeFailure(url, err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,text/plain;q=0.9,*/*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return doc, domain.ScrapeFailure(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return doc, domain.ScrapeFailure(url, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, truncated, err := readBody(resp.Body, s.cfg.MaxBodyBytes)
	if err != nil {
		return doc, domain.ScrapeFailure(url, fmt.Errorf("failed to read body: %w", err))
	}
	if truncated {
		log.Printf("scraper: %s exceeds %d bytes, ingesting the first %d bytes only", url, s.cfg.MaxBodyBytes, len(body))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	if s.archiver != nil {
		if key, err := s.archiver.Archive(ctx, url, contentType, body); err != nil {
			log.Printf("scraper: failed to archive %s: %v", url, err)
		} else {
			log.Printf("scraper: archived %s as %s", url, key)
		}
	}

	text, err := extract(contentType, body)
	if err != nil {
		return doc, domain.ScrapeFailure(url, err)
	}
	doc.RawText = text
	return doc, nil
}

// readBody reads at most limit bytes and reports whether more were available.
func readBody(r io.Reader, limit int64) ([]byte, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(body)) > limit {
		return body[:limit], true, nil
	}
	return body, false, nil
}

func extract(contentType string, body []byte) (string, error) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}

	switch {
	case mt == "text/html" || mt == "application/xhtml+xml":
		return ExtractText(strings.NewReader(string(body)))
	case mt == "application/pdf":
		return extractPDF(body)
	case strings.HasPrefix(mt, "text/"):
		return string(body), nil
	}
	return "", fmt.Errorf("unsupported content type %q", mt)
}
