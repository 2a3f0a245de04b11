package extract

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// PlainAdapter reads UTF-8 text and Markdown files
type PlainAdapter struct{}

// NewPlainAdapter creates a plain text adapter
func NewPlainAdapter() *PlainAdapter { return &PlainAdapter{} }

// Name returns the adapter name
func (a *PlainAdapter) Name() string { return "plain" }

// CanHandle accepts .txt, .text and .md
func (a *PlainAdapter) CanHandle(ext string) bool {
	switch ext {
	case ".txt", ".text", ".md", ".markdown":
		return true
	}
	return false
}

// Extract returns the file's non-blank lines
func (a *PlainAdapter) Extract(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("not valid UTF-8 text")
	}
	return normalizeLines(string(raw)), nil
}
