// Package extract turns uploaded files into plain text, one paragraph per line.
package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/corpagent/internal/logger"
)

// Adapter extracts text from one family of file formats
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle reports whether the adapter understands files with this extension
	CanHandle(ext string) bool

	// Extract reads the whole document and returns its paragraphs joined by newlines
	Extract(r io.Reader) (string, error)
}

// Extractor picks an adapter by file extension
type Extractor struct {
	adapters []Adapter
}

// NewExtractor creates a extractor with the built-in plain text and HTML adapters
func NewExtractor() *Extractor {
	r := &Extractor{}
	r.Register(NewPlainAdapter())
	r.Register(NewHTMLAdapter())
	return r
}

// Register adds an adapter; earlier adapters win
func (r *Extractor) Register(a Adapter) {
	r.adapters = append(r.adapters, a)
}

// Supports reports whether some adapter handles path
func (r *Extractor) Supports(path string) bool {
	return r.find(path) != nil
}

func (r *Extractor) find(path string) Adapter {
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range r.adapters {
		if a.CanHandle(ext) {
			return a
		}
	}
	return nil
}

// ExtractFile reads path with the matching adapter
func (r *Extractor) ExtractFile(path string) (string, error) {
	a := r.find(path)
	if a == nil {
		return "", fmt.Errorf("no extractor for %s", filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	text, err := a.Extract(f)
	if err != nil {
		return "", fmt.Errorf("%s extract %s: %w", a.Name(), path, err)
	}
	return text, nil
}

// Text is the lenient form of ExtractFile: any failure is logged and
// yields "", which downstream treats as an unreadable document.
func (r *Extractor) Text(path string) string {
	text, err := r.ExtractFile(path)
	if err != nil {
		logger.Warn("text extraction failed: %v", err)
		return ""
	}
	return text
}

// normalizeLines trims each line and drops blank ones
func normalizeLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
