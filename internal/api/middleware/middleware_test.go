package middleware

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
}

func TestRequestID_KeepsIncoming(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestRequestID_ReplacesUnsafeIncoming(t *testing.T) {
	for _, incoming := range []string{"line\nbreak", "has space", strings.Repeat("a", 129)} {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header[RequestIDHeader] = []string{incoming}

		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.NotEqual(t, incoming, seen)
		assert.Len(t, seen, 36)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	}
}

func TestAccessLog_WritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(io.Discard)

	h := RequestID(AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/chat", nil))

	line := buf.String()
	assert.Contains(t, line, `"method":"POST"`)
	assert.Contains(t, line, `"path":"/api/chat"`)
	assert.Contains(t, line, `"status":418`)
	assert.Contains(t, line, `"bytes":15`)
	assert.Contains(t, line, `"request_id":"`)
}

func TestResponseRecorder_ForwardsFlush(t *testing.T) {
	w := httptest.NewRecorder()
	rec := &responseRecorder{ResponseWriter: w}

	var handler http.ResponseWriter = rec
	flusher, ok := handler.(http.Flusher)
	require.True(t, ok)

	_, _ = rec.Write([]byte("tok"))
	flusher.Flush()

	assert.True(t, w.Flushed)
	assert.Equal(t, http.StatusOK, rec.statusOrOK())
	assert.Equal(t, w, rec.Unwrap())
}

func TestAccessLog_PreservesFlusher(t *testing.T) {
	log.SetOutput(io.Discard)
	w := httptest.NewRecorder()

	h := SentryMiddleware(AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := w.(http.Flusher)
		assert.True(t, ok)
		_, _ = w.Write([]byte("a"))
		w.(http.Flusher).Flush()
	})))
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", nil))

	assert.True(t, w.Flushed)
}

func TestLimitBody(t *testing.T) {
	h := LimitBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "too big", http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("declared length too large", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("0123456789")))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "request body too large")
		assert.Contains(t, w.Body.String(), "limited to 8 bytes")
	})

	t.Run("unknown length cut at limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("0123456789"))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, "too big\n", w.Body.String())
	})

	t.Run("within limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("0123")))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("get passes through", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/collection", strings.NewReader("0123456789")))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestHTTPStatusToSpanStatus(t *testing.T) {
	assert.Equal(t, sentry.SpanStatusOK, httpStatusToSpanStatus(200))
	assert.Equal(t, sentry.SpanStatusInvalidArgument, httpStatusToSpanStatus(400))
	assert.Equal(t, sentry.SpanStatusUnavailable, httpStatusToSpanStatus(503))
	assert.Equal(t, sentry.SpanStatusInternalError, httpStatusToSpanStatus(500))
}
