package embed

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

// DefaultHashingDimension is used when no dimension is configured
const DefaultHashingDimension = 384

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// Hashing is a local, deterministic embedder based on the hashing trick:
// each lowercased token and adjacent token pair is hashed into a bucket
// with a hash-derived sign. It needs no network and no vocabulary, which
// makes it suitable for offline corpora and tests.
type Hashing struct {
	dim int
}

// NewHashing creates a hashing embedder; dim <= 0 uses DefaultHashingDimension
func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = DefaultHashingDimension
	}
	return &Hashing{dim: dim}
}

// Name returns the identifier of this embedder implementation
func (h *Hashing) Name() string { return "hashing" }

// Dimension returns the vector length
func (h *Hashing) Dimension() int { return h.dim }

// Embed returns an L2-normalized feature vector for text
func (h *Hashing) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, h.dim)
	tokens := tokenize(text)
	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	return normalize(vec), nil
}

func (h *Hashing) add(vec []float32, feature string, weight float32) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()

	idx := int(sum % uint64(h.dim))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
