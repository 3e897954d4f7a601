// Package provider builds the configured embedding, chat and vector store
// backends.
package provider

import (
	"context"
	"fmt"
	"log"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/paddock/internal/config"
	"github.com/cloo-solutions/paddock/internal/database"
	"github.com/cloo-solutions/paddock/internal/embedserver"
	"github.com/cloo-solutions/paddock/internal/gemini"
	"github.com/cloo-solutions/paddock/internal/ollama"
	"github.com/cloo-solutions/paddock/internal/openai"
	"github.com/cloo-solutions/paddock/internal/repository"
	"github.com/cloo-solutions/paddock/internal/service"
	"github.com/cloo-solutions/paddock/internal/vectorstore"
)

// Store is a vector store that can report its own health.
type Store interface {
	service.VectorStore
	Ping(ctx context.Context) error
}

// NewEmbedder returns the embedding client selected by EMBEDDING_PROVIDER.
func NewEmbedder(ctx context.Context, cfg *config.Config) (service.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		if !cfg.HasOpenAI() {
			return nil, fmt.Errorf("PADDOCK_OPENAI_API_KEY is required for the openai embedding provider")
		}
		oc := openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			BaseURL:             cfg.EmbeddingBaseURL,
			EmbeddingDimensions: cfg.Dimension,
		}
		if cfg.EmbeddingModel != "" {
			oc.EmbeddingModel = goopenai.EmbeddingModel(cfg.EmbeddingModel)
		}
		return openai.NewClientWithConfig(oc), nil

	case config.ProviderGemini:
		if !cfg.HasGemini() {
			return nil, fmt.Errorf("PADDOCK_GEMINI_API_KEY is required for the gemini embedding provider")
		}
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:              cfg.GeminiAPIKey,
			BaseURL:             cfg.EmbeddingBaseURL,
			EmbeddingModel:      cfg.EmbeddingModel,
			EmbeddingDimensions: cfg.Dimension,
		})
		if err != nil {
			return nil, err
		}
		return client, nil

	case config.ProviderOllama:
		embedder, err := ollama.NewEmbedder(ollama.Config{
			ServerURL:           firstNonEmpty(cfg.EmbeddingBaseURL, cfg.OllamaURL),
			EmbeddingModel:      cfg.EmbeddingModel,
			EmbeddingDimensions: cfg.Dimension,
		})
		if err != nil {
			return nil, err
		}
		return embedder, nil

	case config.ProviderServer:
		return embedserver.NewClient(cfg.EmbeddingServerURL, cfg.Dimension), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
}

// NewChatModel returns the language model selected by LLM_PROVIDER.
func NewChatModel(ctx context.Context, cfg *config.Config) (service.ChatModel, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		if !cfg.HasOpenAI() {
			return nil, fmt.Errorf("PADDOCK_OPENAI_API_KEY is required for the openai llm provider")
		}
		return openai.NewChatClient(openai.Config{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.LLMBaseURL,
			ChatModel: cfg.LLMModel,
		}), nil

	case config.ProviderGemini:
		if !cfg.HasGemini() {
			return nil, fmt.Errorf("PADDOCK_GEMINI_API_KEY is required for the gemini llm provider")
		}
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:    cfg.GeminiAPIKey,
			BaseURL:   cfg.LLMBaseURL,
			ChatModel: cfg.LLMModel,
		})
		if err != nil {
			return nil, err
		}
		return client, nil

	case config.ProviderOllama:
		model, err := ollama.NewChatModel(ollama.Config{
			ServerURL: firstNonEmpty(cfg.LLMBaseURL, cfg.OllamaURL),
			ChatModel: cfg.LLMModel,
		})
		if err != nil {
			return nil, err
		}
		return model, nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
}

// OpenStore connects to the vector store selected by VECTOR_STORE. The
// returned cleanup releases its connections.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, func(), error) {
	switch cfg.VectorStore {
	case config.VectorStorePgvector:
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, nil, err
		}
		return repository.NewVectorStore(pool, cfg.Collection), pool.Close, nil

	case config.VectorStoreBolt:
		store, err := vectorstore.OpenBolt(cfg.BoltPath, cfg.Collection)
		if err != nil {
			return nil, nil, err
		}
		return store, closeLogged("bolt", store.Close), nil

	case config.VectorStoreChroma:
		store, err := vectorstore.NewChromaStore(cfg.ChromaURL, cfg.Collection)
		if err != nil {
			return nil, nil, err
		}
		return store, closeLogged("chroma", store.Close), nil
	}
	return nil, nil, fmt.Errorf("unknown vector store %q", cfg.VectorStore)
}

func closeLogged(name string, fn func() error) func() {
	return func() {
		if err := fn(); err != nil {
			log.Printf("failed to close %s store: %v", name, err)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
