// Package corpus builds the reference index from the corpus metadata file.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/corpagent/internal/logger"
	"github.com/ppiankov/corpagent/internal/model"
)

// LoadMetadata reads the corpus metadata file: a JSON array of
// {category, document_type, source_url, text_file, raw_file} records.
// Records without a text file are skipped with a warning.
func LoadMetadata(path string) ([]model.CorpusRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus metadata: %w", err)
	}

	var records []model.CorpusRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse corpus metadata %s: %w", path, err)
	}

	out := records[:0]
	for i, r := range records {
		if strings.TrimSpace(r.TextFile) == "" {
			logger.Warn("corpus record %d (%s) has no text_file, skipping", i, r.DocumentType)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ResolvePath locates a record's text file. Absolute paths and paths that
// exist relative to the working directory are used as is; anything else
// is taken relative to baseDir (the metadata file's directory).
func ResolvePath(baseDir, p string) string {
	if filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return filepath.Join(baseDir, p)
}
