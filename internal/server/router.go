package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/paddock/internal/api/handlers"
	"github.com/cloo-solutions/paddock/internal/api/middleware"
)

// MaxBodyBytes caps request bodies; a conversation history is small.
const MaxBodyBytes int64 = 1 << 20

type RouterConfig struct {
	ChatHandler       *handlers.ChatHandler
	CollectionHandler *handlers.CollectionHandler
	HealthHandler     *handlers.HealthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.LimitBody(MaxBodyBytes))

	r.Get("/health", cfg.HealthHandler.Live)
	r.Get("/health/ready", cfg.HealthHandler.Ready)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", cfg.ChatHandler.Chat)
		r.Get("/collection", cfg.CollectionHandler.Get)
	})

	return r
}
