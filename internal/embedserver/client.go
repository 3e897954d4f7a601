// Package embedserver is a client for a self-hosted embedding server that
// exposes POST /embed {"texts": [...]} -> {"embeddings": [[...], ...]}.
package embedserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/paddock/internal/domain"
)

const (
	DefaultURL       = "http://localhost:5000"
	DefaultDimension = 768
	defaultTimeout   = 60 * time.Second
	maxErrorBody     = 512
)

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Client calls the embedding server over HTTP.
type Client struct {
	baseURL    string
	dimension  int
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL. A trailing /embed
// path is accepted and stripped.
func NewClient(baseURL string, dimension int) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	baseURL = strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/embed")
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Client{
		baseURL:    baseURL,
		dimension:  dimension,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) Dimension() int {
	return c.dimension
}

// Ping checks the server answers GET / with a 2xx status.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.EmbeddingUnavailable(fmt.Errorf("embedding server not reachable at %s: %w", c.baseURL, err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.EmbeddingUnavailable(fmt.Errorf("embedding server health check returned %s", resp.Status))
	}
	return nil
}

// Embed posts texts in one request.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	body, err := json.Marshal(embedRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.EmbeddingUnavailable(fmt.Errorf("failed to call embedding server: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, domain.EmbeddingUnavailable(fmt.Errorf("embedding server returned %s: %s", resp.Status, strings.TrimSpace(string(msg))))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.EmbeddingUnavailable(fmt.Errorf("failed to decode embed response: %w", err))
	}
	if len(out.Embeddings) != len(texts) {
		return nil, domain.EmbeddingUnavailable(fmt.Errorf("expected %d embeddings, got %d", len(texts), len(out.Embeddings)))
	}
	return out.Embeddings, nil
}
