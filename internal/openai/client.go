package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/paddock/internal/domain"
)

const (
	// DefaultEmbeddingModel is the model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the native dimension of text-embedding-3-small
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel is the model used for answering questions
	DefaultChatModel = openai.GPT4oMini
)

var (
	// ErrNoAPIKey is returned when no API key is configured for the default endpoint
	ErrNoAPIKey = errors.New("OPENAI_API_KEY not set")
	// ErrNoEmbeddingData is returned when the API responds without vectors
	ErrNoEmbeddingData = errors.New("no embedding data returned")
)

// EmbeddingAPI defines the interface for batch embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatAPI defines the interface for streamed chat completions
type ChatAPI interface {
	StreamChat(ctx context.Context, msgs []openai.ChatCompletionMessage, onDelta func(string) error) error
}

// Config configures the OpenAI adapter. BaseURL may point at any
// OpenAI-compatible server, such as Ollama or Cohere's compatibility API.
type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
}

type OpenAIAdapter struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	chatModel  string
	dimensions int
}

func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}

	return &OpenAIAdapter{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		chatModel:  chatModel,
		dimensions: cfg.EmbeddingDimensions,
	}
}

// CreateEmbeddings calls the embeddings endpoint once for the whole batch and
// returns the vectors in input order.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	}
	// Only the text-embedding-3 family accepts a reduced output dimension.
	if a.dimensions > 0 && strings.HasPrefix(string(a.model), "text-embedding-3") {
		req.Dimensions = a.dimensions
	}

	resp, err := a.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, ErrNoEmbeddingData
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}
	out := make([][]float32, len(texts))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) {
			idx = i
		}
		out[idx] = d.Embedding
	}
	return out, nil
}

// StreamChat opens a streamed completion and forwards each content delta.
func (a *OpenAIAdapter) StreamChat(ctx context.Context, msgs []openai.ChatCompletionMessage, onDelta func(string) error) error {
	stream, err := a.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    a.chatModel,
		Messages: msgs,
		Stream:   true,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, choice := range resp.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := onDelta(choice.Delta.Content); err != nil {
				return err
			}
		}
	}
}

// Client adapts the OpenAI API to the embedding contract.
type Client struct {
	api        EmbeddingAPI
	dimensions int
}

// NewClient creates a new OpenAI embedding client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI embedding client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	cfg.EmbeddingDimensions = dimensions
	return &Client{
		api:        NewOpenAIAdapter(cfg),
		dimensions: dimensions,
	}
}

// Dimension returns the configured vector length.
func (c *Client) Dimension() int {
	return c.dimensions
}

// Embed generates one vector per text. Provider failures are reported as
// EMBEDDING_UNAVAILABLE.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := c.api.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, domain.EmbeddingUnavailable(fmt.Errorf("failed to create embeddings: %w", err))
	}
	if len(vectors) != len(texts) {
		return nil, domain.EmbeddingUnavailable(fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors)))
	}
	return vectors, nil
}

// ChatClient adapts the OpenAI API to the streaming chat contract.
type ChatClient struct {
	api ChatAPI
}

// NewChatClient creates a streaming chat client.
func NewChatClient(cfg Config) *ChatClient {
	return &ChatClient{api: NewOpenAIAdapter(cfg)}
}

// Stream sends msgs and calls onToken for every content delta.
func (c *ChatClient) Stream(ctx context.Context, msgs []domain.Message, onToken func(string) error) error {
	req := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		req = append(req, openai.ChatCompletionMessage{Role: toRole(m.Role), Content: m.Content})
	}

	var consumerErr error
	err := c.api.StreamChat(ctx, req, func(delta string) error {
		if err := onToken(delta); err != nil {
			consumerErr = err
			return err
		}
		return nil
	})
	if consumerErr != nil {
		return consumerErr
	}
	if err != nil {
		return domain.ModelUnavailable(fmt.Errorf("chat completion stream: %w", err))
	}
	return nil
}

func toRole(r domain.Role) string {
	switch r {
	case domain.RoleSystem:
		return openai.ChatMessageRoleSystem
	case domain.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
