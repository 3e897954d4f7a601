// Package gemini adapts the Google Gen AI SDK to the embedding and chat contracts.
package gemini

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/cloo-solutions/paddock/internal/domain"
)

const (
	DefaultEmbeddingModel      = "gemini-embedding-001"
	DefaultChatModel           = "gemini-2.5-flash"
	DefaultEmbeddingDimensions = 768
)

// ModelsAPI is the subset of genai.Models used here.
type ModelsAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      string
	EmbeddingDimensions int
	ChatModel           string
}

// Client embeds and streams completions through the Gemini API.
type Client struct {
	models         ModelsAPI
	embeddingModel string
	chatModel      string
	dimensions     int
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	gc, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newClient(gc.Models, cfg), nil
}

func newClient(models ModelsAPI, cfg Config) *Client {
	c := &Client{
		models:         models,
		embeddingModel: cfg.EmbeddingModel,
		chatModel:      cfg.ChatModel,
		dimensions:     cfg.EmbeddingDimensions,
	}
	if c.embeddingModel == "" {
		c.embeddingModel = DefaultEmbeddingModel
	}
	if c.chatModel == "" {
		c.chatModel = DefaultChatModel
	}
	if c.dimensions <= 0 {
		c.dimensions = DefaultEmbeddingDimensions
	}
	return c
}

func (c *Client) Dimension() int {
	return c.dimensions
}

// Embed sends all texts in one EmbedContent call.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	dim := int32(c.dimensions)

	resp, err := c.models.EmbedContent(ctx, c.embeddingModel, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, domain.EmbeddingUnavailable(fmt.Errorf("gemini embed content: %w", err))
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, domain.EmbeddingUnavailable(fmt.Errorf("expected %d embeddings, got %d", len(texts), got))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e != nil {
			out[i] = e.Values
		}
	}
	return out, nil
}

// Stream folds system messages into the system instruction and maps the
// assistant role to "model".
func (c *Client) Stream(ctx context.Context, msgs []domain.Message, onToken func(string) error) error {
	contents, system := toContents(msgs)

	var cfg *genai.GenerateContentConfig
	if system != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		}
	}

	for resp, err := range c.models.GenerateContentStream(ctx, c.chatModel, contents, cfg) {
		if err != nil {
			return domain.ModelUnavailable(fmt.Errorf("gemini generate content: %w", err))
		}
		text := resp.Text()
		if text == "" {
			continue
		}
		if err := onToken(text); err != nil {
			return err
		}
	}
	return nil
}

func toContents(msgs []domain.Message) ([]*genai.Content, string) {
	var system []string
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, m.Content)
		case domain.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, strings.Join(system, "\n\n")
}
