package index

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/ppiankov/corpagent/internal/embed"
	"github.com/ppiankov/corpagent/internal/logger"
	"github.com/ppiankov/corpagent/internal/model"
)

// DefaultTable holds corpus entries when no table is configured
const DefaultTable = "corpus_entries"

// Postgres is an Index backed by a pgvector table, for corpora shared
// between several reviewers. Rows keep an identity column so ties in
// distance resolve by insertion order.
type Postgres struct {
	pool     *pgxpool.Pool
	embedder embed.Embedder
	table    string // sanitized identifier
}

// NewPostgres connects to dsn and creates the entries table if needed
func NewPostgres(ctx context.Context, dsn, table string, embedder embed.Embedder) (*Postgres, error) {
	if table == "" {
		table = DefaultTable
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := &Postgres{
		pool:     pool,
		embedder: embedder,
		table:    pgx.Identifier{table}.Sanitize(),
	}
	if err := p.createTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) createTable(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL(p.table, p.embedder.Dimension())); err != nil {
		return fmt.Errorf("create %s: %w", p.table, err)
	}
	return nil
}

func schemaSQL(table string, dim int) string {
	return fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS %s (
		id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		entry_id      UUID NOT NULL,
		source_id     TEXT NOT NULL,
		ordinal       INT NOT NULL,
		text          TEXT NOT NULL,
		category      TEXT,
		document_type TEXT,
		source_url    TEXT,
		embedding     vector(%d) NOT NULL
	);`, table, dim)
}

func querySQL(table string) string {
	return fmt.Sprintf(`
		SELECT source_id, ordinal, text, category, document_type, source_url, embedding,
		       1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1, id
		LIMIT $2`, table)
}

// Close releases the connection pool
func (p *Postgres) Close() {
	p.pool.Close()
}

// Reset removes every entry; used before a full corpus rebuild
func (p *Postgres) Reset(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, "TRUNCATE "+p.table+" RESTART IDENTITY"); err != nil {
		return fmt.Errorf("truncate %s: %w", p.table, err)
	}
	return nil
}

// Ingest embeds chunks and inserts them in one transaction
func (p *Postgres) Ingest(ctx context.Context, chunks []model.Chunk, metadatas []model.EntryMetadata) error {
	if len(chunks) != len(metadatas) {
		return fmt.Errorf("ingest: %d chunks but %d metadata records", len(chunks), len(metadatas))
	}

	dim := p.embedder.Dimension()
	batch := &pgx.Batch{}
	insert := fmt.Sprintf(`INSERT INTO %s
		(entry_id, source_id, ordinal, text, category, document_type, source_url, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, p.table)

	for i, ch := range chunks {
		vec, err := p.embedder.Embed(ctx, ch.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %s#%d: %w", ch.SourceID, ch.Ordinal, err)
		}
		if len(vec) != dim {
			return fmt.Errorf("%w: index has %d, chunk %s#%d has %d", ErrDimensionMismatch, dim, ch.SourceID, ch.Ordinal, len(vec))
		}
		md := metadatas[i]
		batch.Queue(insert, uuid.New(), ch.SourceID, ch.Ordinal, ch.Text,
			md.Category, md.DocumentType, md.SourceURL, pgvector.NewVector(vec))
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin ingest: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert entries: %w", err)
	}
	return tx.Commit(ctx)
}

// Query ranks rows by cosine distance using pgvector's <=> operator
func (p *Postgres) Query(ctx context.Context, text string, k int) ([]Match, error) {
	if k <= 0 || p.Len() == 0 {
		return []Match{}, nil
	}

	qvec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := p.pool.Query(ctx, querySQL(p.table), pgvector.NewVector(qvec), k)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", p.table, err)
	}
	defer rows.Close()

	matches := []Match{}
	for rows.Next() {
		var (
			m                       Match
			category, docType, link *string
			vec                     pgvector.Vector
		)
		if err := rows.Scan(&m.Entry.Chunk.SourceID, &m.Entry.Chunk.Ordinal, &m.Entry.Chunk.Text,
			&category, &docType, &link, &vec, &m.Score); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Entry.Vector = vec.Slice()
		m.Entry.Metadata = model.EntryMetadata{
			Category:     deref(category),
			DocumentType: deref(docType),
			SourceURL:    deref(link),
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Len counts stored rows. Errors are logged and reported as an empty index.
func (p *Postgres) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var n int
	if err := p.pool.QueryRow(ctx, "SELECT count(*) FROM "+p.table).Scan(&n); err != nil {
		logger.Warn("count %s: %v", p.table, err)
		return 0
	}
	return n
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
