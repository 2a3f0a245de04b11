package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ppiankov/corpagent/internal/annotate"
	"github.com/ppiankov/corpagent/internal/model"
)

// SummaryFile is the batch report written next to the annotated copies
const SummaryFile = "review-summary.json"

// Writer renders annotated documents and the batch report into a directory
type Writer struct {
	dir     string
	formats []string

	mu   sync.Mutex
	used map[string]string // output stem -> file id
}

// NewWriter creates a writer. Formats are annotate render formats (md, txt, html).
func NewWriter(dir string, formats []string) *Writer {
	return &Writer{dir: dir, formats: formats, used: map[string]string{}}
}

// Dir returns the output directory
func (w *Writer) Dir() string { return w.dir }

// WriteAnnotated renders the outcome's annotated copy in every format
func (w *Writer) WriteAnnotated(o Outcome) ([]string, error) {
	res := o.Result()
	doc := annotate.Annotate(res.FileName, o.Text(), res.Issues)
	stem := w.stemFor(res)

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var paths []string
	for _, format := range w.formats {
		ext, err := annotate.Extension(format)
		if err != nil {
			return paths, err
		}

		var buf bytes.Buffer
		if err := annotate.Render(&buf, doc, format); err != nil {
			return paths, fmt.Errorf("render %s: %w", format, err)
		}

		path := filepath.Join(w.dir, stem+ext)
		if err := writeFileAtomic(path, buf.Bytes()); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteSummary writes the batch report as indented JSON
func (w *Writer) WriteSummary(s *model.BatchSummary) (string, error) {
	data, err := json.MarshalIndent(s.Report(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(w.dir, SummaryFile)
	if err := writeFileAtomic(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// stemFor returns reviewed_<name>, suffixed with the file id when another
// document already claimed the name
func (w *Writer) stemFor(res model.DocumentResult) string {
	name := strings.TrimSuffix(res.FileName, filepath.Ext(res.FileName))
	stem := "reviewed_" + sanitizeFilename(name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if owner, taken := w.used[stem]; taken && owner != res.FileID {
		stem = stem + "-" + sanitizeFilename(res.FileID)
	}
	w.used[stem] = res.FileID
	return stem
}

const maxNameBytes = 100

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(s)

	// Limit length, backing off to a rune boundary
	if len(s) > maxNameBytes {
		cut := maxNameBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	if s == "" {
		s = "document"
	}
	return s
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
