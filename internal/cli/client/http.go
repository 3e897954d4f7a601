package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIURL = "PADDOCK_API_URL"

	defaultAPIURL = "http://localhost:8080"
)

type APIClient struct {
	baseURL string
	// httpClient has no overall timeout; streaming requests are bounded by
	// their context instead.
	httpClient *http.Client
}

// NewAPIClientWithCmd creates an APIClient with config cascade: flag → env → global config → default
// If cmd is nil, skips flag checking and goes directly to env → global config
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, error) {
	var baseURL string

	if cmd != nil {
		if flagURL, err := cmd.Flags().GetString("api-url"); err == nil && flagURL != "" {
			baseURL = flagURL
		}
	}

	if baseURL == "" {
		baseURL = os.Getenv(envAPIURL)
	}

	if baseURL == "" {
		globalConfig, err := LoadGlobalConfig()
		if err != nil {
			return nil, err
		}
		if globalConfig != nil && globalConfig.APIURL != "" {
			baseURL = globalConfig.APIURL
		}
	}

	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	return NewAPIClientWithConfig(baseURL), nil
}

func NewAPIClient() (*APIClient, error) {
	_ = godotenv.Load()
	return NewAPIClientWithCmd(nil)
}

// NewAPIClientWithConfig creates an APIClient for an explicit base URL.
func NewAPIClientWithConfig(baseURL string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// APIResponse represents the standard API response format.
type APIResponse struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Details string          `json:"details,omitempty"`
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("API error (%d): %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// ErrIncompleteResponse is returned when a stream ends without the
// completion terminator.
var ErrIncompleteResponse = errors.New("incomplete response")

// Get performs a GET request.
func (c *APIClient) Get(ctx context.Context, path string) (*APIResponse, error) {
	status, apiResp, err := c.GetWithStatus(ctx, path)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, &APIError{StatusCode: status, Message: apiResp.Error, Details: apiResp.Details}
	}
	return apiResp, nil
}

// GetWithStatus performs a GET request and returns the decoded body for any
// status code.
func (c *APIClient) GetWithStatus(ctx context.Context, path string) (int, *APIResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return 0, nil, &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		}
		return 0, nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.StatusCode, &apiResp, nil
}

// PostStream sends body as JSON and copies the streamed response to w as it
// arrives. The stream must end with terminator, which is not copied; a
// stream that ends without it returns ErrIncompleteResponse after copying
// whatever was received. The terminator text inside the answer is copied.
func (c *APIClient) PostStream(ctx context.Context, path string, body interface{}, terminator string, w io.Writer) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		var apiResp APIResponse
		if err := json.Unmarshal(respBody, &apiResp); err != nil || apiResp.Error == "" {
			return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiResp.Error, Details: apiResp.Details}
	}

	tw := newTerminatedWriter(w, terminator)
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := tw.Write(buf[:n]); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if ferr := tw.Flush(); ferr != nil {
				return ferr
			}
			return fmt.Errorf("%w: %v", ErrIncompleteResponse, readErr)
		}
	}
	return tw.Close()
}

// terminatedWriter copies a stream to w, holding back any tail that could be
// the terminator. The terminator only counts when it ends the stream; the
// same bytes earlier on are answer text and are written through.
type terminatedWriter struct {
	w          io.Writer
	terminator []byte
	pending    []byte
}

func newTerminatedWriter(w io.Writer, terminator string) *terminatedWriter {
	return &terminatedWriter{w: w, terminator: []byte(terminator)}
}

func (t *terminatedWriter) Write(p []byte) (int, error) {
	t.pending = append(t.pending, p...)

	keep := terminatorSuffix(t.pending, t.terminator)
	flush := len(t.pending) - keep
	if flush > 0 {
		if _, err := t.w.Write(t.pending[:flush]); err != nil {
			return 0, err
		}
		t.pending = append(t.pending[:0], t.pending[flush:]...)
	}
	return len(p), nil
}

// Flush writes anything held back.
func (t *terminatedWriter) Flush() error {
	if len(t.pending) == 0 {
		return nil
	}
	_, err := t.w.Write(t.pending)
	t.pending = nil
	return err
}

// Close drops the terminator if the stream ended with it, and otherwise
// writes the held tail and returns ErrIncompleteResponse.
func (t *terminatedWriter) Close() error {
	if len(t.terminator) > 0 && bytes.Equal(t.pending, t.terminator) {
		t.pending = nil
		return nil
	}
	if err := t.Flush(); err != nil {
		return err
	}
	return ErrIncompleteResponse
}

// terminatorSuffix returns the length of the longest suffix of b that is a
// prefix of term, the whole of term included.
func terminatorSuffix(b, term []byte) int {
	limit := len(term)
	if limit > len(b) {
		limit = len(b)
	}
	for n := limit; n > 0; n-- {
		if bytes.Equal(b[len(b)-n:], term[:n]) {
			return n
		}
	}
	return 0
}
