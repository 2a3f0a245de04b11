package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/corpagent/internal/embed"
	"github.com/ppiankov/corpagent/internal/index"
	"github.com/ppiankov/corpagent/internal/model"
)

// Rebuild reads the metadata file and rebuilds the configured index
// backend: memory builds in process, sqlite also writes the snapshot,
// pgvector truncates the table and re-ingests.
func Rebuild(ctx context.Context, cfg *model.Config, embedder embed.Embedder) (index.Index, Stats, error) {
	records, err := LoadMetadata(cfg.Corpus.MetadataFile)
	if err != nil {
		return nil, Stats{}, err
	}

	builder, err := NewBuilder(cfg.Corpus.ChunkSize, cfg.Corpus.ChunkOverlap)
	if err != nil {
		return nil, Stats{}, err
	}
	baseDir := filepath.Dir(cfg.Corpus.MetadataFile)

	switch cfg.Index.Backend {
	case "pgvector":
		pg, err := index.NewPostgres(ctx, cfg.Index.DSN, cfg.Index.Table, embedder)
		if err != nil {
			return nil, Stats{}, err
		}
		if err := pg.Reset(ctx); err != nil {
			pg.Close()
			return nil, Stats{}, err
		}
		stats, err := builder.Build(ctx, pg, records, baseDir)
		if err != nil {
			pg.Close()
			return nil, stats, err
		}
		return pg, stats, nil

	case "sqlite", "memory", "":
		mem := index.NewMemory(embedder)
		stats, err := builder.Build(ctx, mem, records, baseDir)
		if err != nil {
			return nil, stats, err
		}
		if cfg.Index.Backend == "sqlite" {
			if err := os.MkdirAll(filepath.Dir(cfg.Index.Snapshot), 0755); err != nil {
				return nil, stats, fmt.Errorf("create snapshot directory: %w", err)
			}
			if err := index.SaveSnapshot(ctx, cfg.Index.Snapshot, mem); err != nil {
				return nil, stats, err
			}
		}
		return mem, stats, nil
	}

	return nil, Stats{}, fmt.Errorf("unknown index backend: %s (supported: memory, sqlite, pgvector)", cfg.Index.Backend)
}

// Open returns the index a review queries. The memory backend is built
// from the metadata file on the spot. Callers must call the returned
// close func.
func Open(ctx context.Context, cfg *model.Config, embedder embed.Embedder) (index.Index, func(), error) {
	noop := func() {}

	switch cfg.Index.Backend {
	case "sqlite":
		mem, err := index.LoadSnapshot(ctx, cfg.Index.Snapshot, embedder)
		if err != nil {
			return nil, noop, fmt.Errorf("load corpus snapshot (run 'corpagent ingest' first): %w", err)
		}
		return mem, noop, nil

	case "pgvector":
		pg, err := index.NewPostgres(ctx, cfg.Index.DSN, cfg.Index.Table, embedder)
		if err != nil {
			return nil, noop, err
		}
		return pg, pg.Close, nil

	case "memory", "":
		idx, _, err := Rebuild(ctx, cfg, embedder)
		if err != nil {
			return nil, noop, err
		}
		return idx, noop, nil
	}

	return nil, noop, fmt.Errorf("unknown index backend: %s (supported: memory, sqlite, pgvector)", cfg.Index.Backend)
}
