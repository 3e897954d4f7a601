// Package ollama talks to a local Ollama server through langchaingo.
package ollama

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"

	"github.com/cloo-solutions/paddock/internal/domain"
)

const (
	DefaultServerURL           = "http://localhost:11434"
	DefaultEmbeddingModel      = "nomic-embed-text"
	DefaultChatModel           = "llama3.1"
	DefaultEmbeddingDimensions = 768
)

// LLM is the subset of the langchaingo Ollama model used here.
type LLM interface {
	CreateEmbedding(ctx context.Context, inputTexts []string) ([][]float32, error)
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Config struct {
	ServerURL           string
	EmbeddingModel      string
	EmbeddingDimensions int
	ChatModel           string
}

func (c *Config) setDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = DefaultEmbeddingModel
	}
	if c.ChatModel == "" {
		c.ChatModel = DefaultChatModel
	}
	if c.EmbeddingDimensions <= 0 {
		c.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
}

// Embedder produces embeddings with an Ollama embedding model.
type Embedder struct {
	llm        LLM
	dimensions int
}

// NewEmbedder creates an Ollama embedding client.
func NewEmbedder(cfg Config) (*Embedder, error) {
	cfg.setDefaults()
	llm, err := lcollama.New(lcollama.WithServerURL(cfg.ServerURL), lcollama.WithModel(cfg.EmbeddingModel))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama embedder: %w", err)
	}
	return &Embedder{llm: llm, dimensions: cfg.EmbeddingDimensions}, nil
}

func (e *Embedder) Dimension() int {
	return e.dimensions
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vectors, err := e.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, domain.EmbeddingUnavailable(fmt.Errorf("ollama embed: %w", err))
	}
	if len(vectors) != len(texts) {
		return nil, domain.EmbeddingUnavailable(fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors)))
	}
	return vectors, nil
}

// ChatModel streams completions from an Ollama chat model.
type ChatModel struct {
	llm LLM
}

// NewChatModel creates an Ollama chat client.
func NewChatModel(cfg Config) (*ChatModel, error) {
	cfg.setDefaults()
	llm, err := lcollama.New(lcollama.WithServerURL(cfg.ServerURL), lcollama.WithModel(cfg.ChatModel))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama chat model: %w", err)
	}
	return &ChatModel{llm: llm}, nil
}

func (c *ChatModel) Stream(ctx context.Context, msgs []domain.Message, onToken func(string) error) error {
	content := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		content = append(content, llms.TextParts(toMessageType(m.Role), m.Content))
	}

	var consumerErr error
	_, err := c.llm.GenerateContent(ctx, content, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		if err := onToken(string(chunk)); err != nil {
			consumerErr = err
			return err
		}
		return nil
	}))
	if consumerErr != nil {
		return consumerErr
	}
	if err != nil {
		return domain.ModelUnavailable(fmt.Errorf("ollama generate: %w", err))
	}
	return nil
}

func toMessageType(r domain.Role) llms.ChatMessageType {
	switch r {
	case domain.RoleSystem:
		return llms.ChatMessageTypeSystem
	case domain.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
