package corpus

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ppiankov/corpagent/internal/chunk"
	"github.com/ppiankov/corpagent/internal/extract"
	"github.com/ppiankov/corpagent/internal/index"
	"github.com/ppiankov/corpagent/internal/logger"
	"github.com/ppiankov/corpagent/internal/model"
)

// Stats summarizes one corpus build
type Stats struct {
	Records int // Records ingested
	Skipped int // Records whose text could not be read
	Chunks  int
}

// Builder extracts, chunks and ingests corpus records
type Builder struct {
	chunker   *chunk.Chunker
	extractor *extract.Extractor
}

// NewBuilder creates a builder with the given window size and overlap (in runes)
func NewBuilder(size, overlap int) (*Builder, error) {
	c, err := chunk.New(size, overlap)
	if err != nil {
		return nil, err
	}
	return &Builder{chunker: c, extractor: extract.NewExtractor()}, nil
}

// Build ingests every record into idx in metadata order. Unreadable
// records are skipped; an ingest error aborts the build.
func (b *Builder) Build(ctx context.Context, idx index.Index, records []model.CorpusRecord, baseDir string) (Stats, error) {
	var stats Stats

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		path := ResolvePath(baseDir, rec.TextFile)
		text, err := b.extractor.ExtractFile(path)
		if err != nil {
			logger.Warn("skip %s: %v", rec.TextFile, err)
			stats.Skipped++
			continue
		}

		chunks := b.chunker.Split(filepath.Base(rec.TextFile), text)
		if len(chunks) == 0 {
			logger.Debug("skip %s: no text", rec.TextFile)
			stats.Skipped++
			continue
		}

		metas := make([]model.EntryMetadata, len(chunks))
		for i := range metas {
			metas[i] = rec.Metadata()
		}

		if err := idx.Ingest(ctx, chunks, metas); err != nil {
			return stats, fmt.Errorf("ingest %s: %w", rec.TextFile, err)
		}

		stats.Records++
		stats.Chunks += len(chunks)
		logger.Info("ingested %s: %d chunks", rec.TextFile, len(chunks))
	}

	return stats, nil
}
