package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/cloo-solutions/paddock/internal/domain"
)

const (
	VectorStorePgvector = "pgvector"
	VectorStoreBolt     = "bolt"
	VectorStoreChroma   = "chroma"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderServer = "server"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	VectorStore string `envconfig:"VECTOR_STORE" default:"pgvector"`
	BoltPath    string `envconfig:"BOLT_PATH" default:"paddock.db"`
	ChromaURL   string `envconfig:"CHROMA_URL" default:"http://localhost:8000"`
	Collection  string `envconfig:"COLLECTION" default:"paddock_chunks"`
	Dimension   int    `envconfig:"DIMENSION" default:"768"`
	Metric      string `envconfig:"METRIC" default:"cosine"`

	EmbeddingProvider  string `envconfig:"EMBEDDING_PROVIDER" default:"server"`
	EmbeddingModel     string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingBaseURL   string `envconfig:"EMBEDDING_BASE_URL"`
	EmbeddingServerURL string `envconfig:"EMBEDDING_SERVER_URL" default:"http://localhost:5000"`

	LLMProvider string `envconfig:"LLM_PROVIDER" default:"openai"`
	LLMModel    string `envconfig:"LLM_MODEL"`
	LLMBaseURL  string `envconfig:"LLM_BASE_URL"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	OllamaURL    string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`

	ChunkSize      int           `envconfig:"CHUNK_SIZE" default:"512"`
	ChunkOverlap   int           `envconfig:"CHUNK_OVERLAP" default:"100"`
	BatchSize      int           `envconfig:"BATCH_SIZE" default:"10"`
	IngestWorkers  int           `envconfig:"INGEST_WORKERS" default:"1"`
	TopK           int           `envconfig:"TOP_K" default:"10"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`

	Sources     []string `envconfig:"SOURCES"`
	SourcesFile string   `envconfig:"SOURCES_FILE"`
	ScrapeRate  float64  `envconfig:"SCRAPE_RATE" default:"2"`

	UnidocLicenseKey string `envconfig:"UNIDOC_LICENSE_KEY"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"paddock-pages"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	Domain           string `envconfig:"DOMAIN" default:"Formula 1 (F1)"`
	DiscloseFallback bool   `envconfig:"DISCLOSE_FALLBACK" default:"true"`

	SentryDSN     string        `envconfig:"SENTRY_DSN"`
	Environment   string        `envconfig:"ENVIRONMENT" default:"development"`
	ProbeInterval time.Duration `envconfig:"PROBE_INTERVAL" default:"30s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("PADDOCK", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.VectorStore = strings.ToLower(strings.TrimSpace(c.VectorStore))
	c.EmbeddingProvider = strings.ToLower(strings.TrimSpace(c.EmbeddingProvider))
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))

	sources := c.Sources[:0]
	for _, s := range c.Sources {
		if s = strings.TrimSpace(s); s != "" {
			sources = append(sources, s)
		}
	}
	c.Sources = sources
}

// Validate checks values that envconfig cannot.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 || c.ChunkOverlap <= 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("invalid chunking: need 0 < CHUNK_OVERLAP (%d) < CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("DIMENSION must be positive, got %d", c.Dimension)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if _, err := domain.ParseMetric(c.Metric); err != nil {
		return err
	}

	switch c.VectorStore {
	case VectorStorePgvector:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when VECTOR_STORE=%s", VectorStorePgvector)
		}
	case VectorStoreBolt, VectorStoreChroma:
	default:
		return fmt.Errorf("unknown VECTOR_STORE %q", c.VectorStore)
	}

	switch c.EmbeddingProvider {
	case ProviderOpenAI, ProviderGemini, ProviderOllama, ProviderServer:
	default:
		return fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.EmbeddingProvider)
	}
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderGemini, ProviderOllama:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	return nil
}

// MetricValue returns the parsed distance metric.
func (c *Config) MetricValue() domain.Metric {
	m, _ := domain.ParseMetric(c.Metric)
	return m
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}
