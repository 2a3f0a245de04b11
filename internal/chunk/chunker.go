// Package chunk splits text into fixed-width windows.
//
// Windows are measured in runes and never snap to word or sentence
// boundaries: chunk i starts at rune i*(size-overlap) and the final chunk
// ends exactly at the end of the text. Consecutive chunks therefore share
// exactly overlap runes, which makes Reassemble an exact inverse.
package chunk

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/corpagent/internal/model"
)

const (
	// DefaultSize matches the corpus build window
	DefaultSize = 1500

	// DefaultOverlap matches the corpus build overlap
	DefaultOverlap = 300
)

// Chunker produces overlapping windows over a text
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. overlap must be in [0, size).
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the window width in runes
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of runes shared by consecutive chunks
func (c *Chunker) Overlap() int { return c.overlap }

// Split cuts text into ordered chunks tagged with sourceID.
// Empty text and text that is not valid UTF-8 yield no chunks.
func (c *Chunker) Split(sourceID, text string) []model.Chunk {
	if text == "" || !utf8.ValidString(text) {
		return nil
	}

	runes := []rune(text)
	n := len(runes)
	step := c.size - c.overlap

	chunks := make([]model.Chunk, 0, n/step+1)
	for start := 0; ; start += step {
		end := start + c.size
		if end > n {
			end = n
		}
		chunks = append(chunks, model.Chunk{
			Text:     string(runes[start:end]),
			Ordinal:  len(chunks),
			SourceID: sourceID,
		})
		if end == n {
			break
		}
	}
	return chunks
}

// Reassemble rebuilds the original text from chunks produced with the given overlap
func Reassemble(chunks []model.Chunk, overlap int) string {
	var buf strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			buf.WriteString(ch.Text)
			continue
		}
		runes := []rune(ch.Text)
		if overlap < len(runes) {
			buf.WriteString(string(runes[overlap:]))
		}
	}
	return buf.String()
}

// Segments splits text into consecutive non-overlapping pieces of at most
// maxRunes runes. Used to bound model request size.
func Segments(text string, maxRunes int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxRunes <= 0 {
		return []string{text}
	}

	c := &Chunker{size: maxRunes}
	chunks := c.Split("", text)
	out := make([]string, len(chunks))
	for i, ch := range chunks {
		out[i] = ch.Text
	}
	return out
}
