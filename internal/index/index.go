// Package index stores embedded corpus chunks and ranks them by cosine
// similarity against a query.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ppiankov/corpagent/internal/embed"
	"github.com/ppiankov/corpagent/internal/model"
)

// ErrDimensionMismatch is returned when a vector does not match the index dimension
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index is the read-mostly corpus store used by retrieval
type Index interface {
	// Ingest embeds chunks and appends them with their metadata, in order
	Ingest(ctx context.Context, chunks []model.Chunk, metadatas []model.EntryMetadata) error

	// Query returns up to k entries ranked by similarity to text
	Query(ctx context.Context, text string, k int) ([]Match, error)

	// Len returns the number of stored entries
	Len() int
}

// Match is a ranked index entry
type Match struct {
	Entry model.IndexedEntry
	Score float64
}

// Memory is an in-process index with brute-force cosine ranking.
// Queries may run concurrently with each other; Ingest takes the write lock.
type Memory struct {
	embedder embed.Embedder

	mu      sync.RWMutex
	entries []model.IndexedEntry
	dim     int
}

// NewMemory creates an empty index whose vectors come from embedder
func NewMemory(embedder embed.Embedder) *Memory {
	return &Memory{
		embedder: embedder,
		dim:      embedder.Dimension(),
	}
}

// Ingest embeds every chunk before appending any, so a failed batch leaves
// the index unchanged
func (m *Memory) Ingest(ctx context.Context, chunks []model.Chunk, metadatas []model.EntryMetadata) error {
	if len(chunks) != len(metadatas) {
		return fmt.Errorf("ingest: %d chunks but %d metadata records", len(chunks), len(metadatas))
	}

	batch := make([]model.IndexedEntry, 0, len(chunks))
	for i, ch := range chunks {
		vec, err := m.embedder.Embed(ctx, ch.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %s#%d: %w", ch.SourceID, ch.Ordinal, err)
		}
		batch = append(batch, model.IndexedEntry{
			Vector:   vec,
			Chunk:    ch,
			Metadata: metadatas[i],
		})
	}

	return m.Add(batch...)
}

// Add appends precomputed entries (e.g. from a snapshot)
func (m *Memory) Add(entries ...model.IndexedEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if len(e.Vector) != m.dim {
			return fmt.Errorf("%w: index has %d, entry %s#%d has %d",
				ErrDimensionMismatch, m.dim, e.Chunk.SourceID, e.Chunk.Ordinal, len(e.Vector))
		}
	}
	m.entries = append(m.entries, entries...)
	return nil
}

// Query ranks all entries by cosine similarity. Ties keep insertion order.
// An empty index or k <= 0 returns no matches without calling the embedder.
func (m *Memory) Query(ctx context.Context, text string, k int) ([]Match, error) {
	if k <= 0 || m.Len() == 0 {
		return []Match{}, nil
	}

	qvec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(qvec) != m.dim {
		return nil, fmt.Errorf("%w: index has %d, query has %d", ErrDimensionMismatch, m.dim, len(qvec))
	}

	matches := make([]Match, len(m.entries))
	for i, e := range m.entries {
		matches[i] = Match{Entry: e, Score: Cosine(qvec, e.Vector)}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Len returns the number of stored entries
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Dimension returns the vector dimension of the index
func (m *Memory) Dimension() int { return m.dim }

// Embedder returns the embedder used for ingest and queries
func (m *Memory) Embedder() embed.Embedder { return m.embedder }

// Entries returns a copy of all entries in insertion order
func (m *Memory) Entries() []model.IndexedEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.IndexedEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Cosine returns the cosine similarity of a and b, or 0 if either is a zero vector
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
