// Package retrieve finds corpus reference rules relevant to a document.
package retrieve

import (
	"context"

	"github.com/ppiankov/corpagent/internal/index"
	"github.com/ppiankov/corpagent/internal/logger"
	"github.com/ppiankov/corpagent/internal/model"
)

// Retrieval defaults
const (
	DefaultInstruction  = "Check ADGM compliance for: "
	DefaultTopK         = 3
	DefaultQueryChars   = 1000
	DefaultExcerptChars = 300
)

// Options tunes the query and excerpting
type Options struct {
	Instruction  string
	TopK         int
	QueryChars   int
	ExcerptChars int
}

// DefaultOptions returns the standard retrieval settings
func DefaultOptions() Options {
	return Options{
		Instruction:  DefaultInstruction,
		TopK:         DefaultTopK,
		QueryChars:   DefaultQueryChars,
		ExcerptChars: DefaultExcerptChars,
	}
}

// OptionsFromModel converts model.RetrievalConfig to Options
func OptionsFromModel(cfg model.RetrievalConfig) Options {
	return Options{
		Instruction:  cfg.Instruction,
		TopK:         cfg.TopK,
		QueryChars:   cfg.QueryExcerptChars,
		ExcerptChars: cfg.ExcerptChars,
	}
}

// Engine queries an index with a document-derived prompt
type Engine struct {
	index index.Index
	opts  Options
}

// New creates an engine over idx
func New(idx index.Index, opts Options) *Engine {
	return &Engine{index: idx, opts: opts}
}

// Query builds the retrieval prompt from the first QueryChars runes of text
func (e *Engine) Query(text string) string {
	return e.opts.Instruction + truncate(text, e.opts.QueryChars)
}

// Retrieve returns up to TopK reference matches. Matches are advisory:
// if the index cannot be queried the failure is logged and no references
// are returned.
func (e *Engine) Retrieve(ctx context.Context, text string) []model.ReferenceMatch {
	refs := []model.ReferenceMatch{}
	if e.index == nil {
		return refs
	}

	matches, err := e.index.Query(ctx, e.Query(text), e.opts.TopK)
	if err != nil {
		logger.Warn("reference retrieval unavailable: %v", err)
		return refs
	}

	for _, m := range matches {
		refs = append(refs, model.ReferenceMatch{
			SourceURL:    m.Entry.Metadata.SourceURL,
			Category:     m.Entry.Metadata.Category,
			DocumentType: m.Entry.Metadata.DocumentType,
			Excerpt:      Excerpt(m.Entry.Chunk.Text, e.opts.ExcerptChars),
			Score:        m.Score,
		})
	}
	return refs
}

// Excerpt returns the first n runes of text, with "..." appended when cut
func Excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
