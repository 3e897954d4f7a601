package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/cloo-solutions/paddock/internal/api"
	"github.com/cloo-solutions/paddock/internal/api/middleware"
	"github.com/cloo-solutions/paddock/internal/domain"
	"github.com/cloo-solutions/paddock/internal/telemetry"
)

// StreamTerminator ends every successful answer stream. A stream without it
// was cut short.
const StreamTerminator = "\n[DONE]\n"

// DefaultRequestTimeout bounds one chat request end to end.
const DefaultRequestTimeout = 30 * time.Second

type Answerer interface {
	Answer(ctx context.Context, msgs []domain.Message, onToken func(string) error) error
}

type ChatHandler struct {
	svc     Answerer
	timeout time.Duration
}

func NewChatHandler(svc Answerer, timeout time.Duration) *ChatHandler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &ChatHandler{svc: svc, timeout: timeout}
}

type ChatRequest struct {
	Messages []domain.Message `json:"messages"`
}

// Chat streams the answer as plain text, flushing after every token. Errors
// before the first token are JSON; after that the stream just stops.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.ErrorWithDetails(w, http.StatusBadRequest, "Invalid request", "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rc := http.NewResponseController(w)
	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)
	}

	err := h.svc.Answer(ctx, req.Messages, func(tok string) error {
		start()
		if _, err := w.Write([]byte(tok)); err != nil {
			return err
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
		return nil
	})

	if err == nil {
		start()
		_, _ = w.Write([]byte(StreamTerminator))
		_ = rc.Flush()
		return
	}

	requestID := middleware.GetRequestID(r.Context())
	if domain.Code(err) != domain.ErrCodeInvalidRequest {
		telemetry.CaptureError(r.Context(), err)
	}

	if started {
		log.Printf("chat %s: stream aborted: %v", requestID, err)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		log.Printf("chat %s: request timed out after %s", requestID, h.timeout)
	}
	api.HandleError(w, err)
}
