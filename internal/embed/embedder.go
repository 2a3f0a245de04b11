// Package embed turns text into fixed-dimension vectors for the corpus index.
package embed

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ppiankov/corpagent/internal/model"
)

// Embedder produces a vector for a text. Every vector an Embedder returns
// has length Dimension().
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Name() string
}

// New creates the embedder selected by cfg
func New(cfg model.EmbedderConfig) (Embedder, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch strings.ToLower(cfg.Provider) {
	case "", "hashing":
		return NewHashing(cfg.Dimension), nil
	case "openai":
		return NewOpenAI(OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			Timeout:   timeout,
		})
	case "ollama":
		return NewOllama(OllamaConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			Timeout:   timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s (supported: hashing, openai, ollama)", cfg.Provider)
	}
}

// normalize scales v to unit length in place. Zero vectors are left as is.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
