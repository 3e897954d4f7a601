package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/paddock/internal/domain"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "value", result["key"])
}

func TestJSON_NilData(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusOK, map[string]string{"status": "ok"})

	var result SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ok", data["status"])
}

func TestError_OmitsEmptyDetails(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusInternalServerError, "Internal Server Error")

	assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"invalid request", domain.ErrMissingUserMessage, http.StatusBadRequest},
		{"embedding unavailable", domain.EmbeddingUnavailable(errors.New("down")), http.StatusServiceUnavailable},
		{"store unavailable", domain.StoreUnavailable(errors.New("down")), http.StatusServiceUnavailable},
		{"scrape failure", domain.ScrapeFailure("https://x", errors.New("404")), http.StatusBadGateway},
		{"model unavailable", domain.ModelUnavailable(errors.New("401")), http.StatusInternalServerError},
		{"dimension mismatch", domain.DimensionMismatch(768, 384), http.StatusInternalServerError},
		{"wrapped domain error", fmt.Errorf("ctx: %w", domain.ErrMissingUserMessage), http.StatusBadRequest},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DomainErrorToHTTP(tt.err))
		})
	}
}

func TestHandleError_ValidationHasDetails(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, domain.ErrMissingUserMessage)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid request", resp.Error)
	assert.Equal(t, domain.ErrMissingUserMessage.Message, resp.Details)
}

func TestHandleError_HidesProviderDetail(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, domain.ModelUnavailable(errors.New(`{"error":"invalid api key sk-123"}`)))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())
}
