package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ppiankov/corpagent/internal/embed"
	"github.com/ppiankov/corpagent/internal/model"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshot_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	seq           INTEGER PRIMARY KEY,
	source_id     TEXT NOT NULL,
	ordinal       INTEGER NOT NULL,
	text          TEXT NOT NULL,
	category      TEXT,
	document_type TEXT,
	source_url    TEXT,
	vector        BLOB NOT NULL
);
`

func openSnapshot(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	if _, err := db.Exec(snapshotSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}
	return db, nil
}

// SaveSnapshot replaces the contents of the SQLite file at path with the
// index entries, in insertion order
func SaveSnapshot(ctx context.Context, path string, idx *Memory) error {
	db, err := openSnapshot(path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_meta"); err != nil {
		return fmt.Errorf("clear meta: %w", err)
	}

	meta := map[string]string{
		"embedder":  idx.Embedder().Name(),
		"dimension": strconv.Itoa(idx.Dimension()),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO snapshot_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("write meta %s: %w", k, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries
		(seq, source_id, ordinal, text, category, document_type, source_url, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, e := range idx.Entries() {
		if _, err := stmt.ExecContext(ctx,
			i,
			e.Chunk.SourceID,
			e.Chunk.Ordinal,
			e.Chunk.Text,
			e.Metadata.Category,
			e.Metadata.DocumentType,
			e.Metadata.SourceURL,
			float32SliceToBytes(e.Vector),
		); err != nil {
			return fmt.Errorf("insert entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot into a new memory index. The snapshot must
// have been written with an embedder of the same name and dimension.
func LoadSnapshot(ctx context.Context, path string, embedder embed.Embedder) (*Memory, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}

	db, err := openSnapshot(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	meta := map[string]string{}
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM snapshot_meta")
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan meta: %w", err)
		}
		meta[k] = v
	}
	_ = rows.Close()

	if name := meta["embedder"]; name != "" && name != embedder.Name() {
		return nil, fmt.Errorf("snapshot %s was built with embedder %s, not %s", path, name, embedder.Name())
	}
	if dim := meta["dimension"]; dim != "" && dim != strconv.Itoa(embedder.Dimension()) {
		return nil, fmt.Errorf("%w: snapshot has %s, embedder has %d", ErrDimensionMismatch, dim, embedder.Dimension())
	}

	rows, err = db.QueryContext(ctx, `SELECT source_id, ordinal, text, category, document_type, source_url, vector
		FROM entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	idx := NewMemory(embedder)
	var entries []model.IndexedEntry
	for rows.Next() {
		var (
			e                       model.IndexedEntry
			category, docType, link sql.NullString
			blob                    []byte
		)
		if err := rows.Scan(&e.Chunk.SourceID, &e.Chunk.Ordinal, &e.Chunk.Text, &category, &docType, &link, &blob); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Metadata = model.EntryMetadata{
			Category:     category.String,
			DocumentType: docType.String,
			SourceURL:    link.String,
		}
		e.Vector = bytesToFloat32Slice(blob)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	if err := idx.Add(entries...); err != nil {
		return nil, err
	}
	return idx, nil
}

func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
