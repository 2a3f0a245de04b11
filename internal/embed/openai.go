package embed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured
const DefaultOpenAIModel = "text-embedding-3-small"

var openAIDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIConfig configures the OpenAI embedder
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Dimension shortens text-embedding-3-* vectors; 0 keeps the model default
	Dimension int
	Timeout   time.Duration
}

// OpenAI embeds text with the OpenAI embeddings endpoint
type OpenAI struct {
	client    *openai.Client
	model     string
	dimension int
	request   int // value sent as "dimensions"; 0 omits it
	timeout   time.Duration
}

// NewOpenAI creates an OpenAI embedder
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required for embeddings")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	dim, known := openAIDimensions[cfg.Model]
	if !known {
		dim = 1536
	}
	request := 0
	if cfg.Dimension > 0 && strings.HasPrefix(cfg.Model, "text-embedding-3") {
		dim = cfg.Dimension
		request = cfg.Dimension
	}

	return &OpenAI{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		dimension: dim,
		request:   request,
		timeout:   cfg.Timeout,
	}, nil
}

// Name returns the identifier of this embedder implementation
func (e *OpenAI) Name() string { return "openai:" + e.model }

// Dimension returns the vector length
func (e *OpenAI) Dimension() int { return e.dimension }

// Embed requests a single embedding
func (e *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.request,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: no embedding returned")
	}

	vec := resp.Data[0].Embedding
	if len(vec) != e.dimension {
		return nil, fmt.Errorf("openai embeddings: expected dimension %d, got %d", e.dimension, len(vec))
	}
	return vec, nil
}
