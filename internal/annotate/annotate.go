// Package annotate attaches review notes to the paragraphs they concern.
//
// Each issue is anchored to the first paragraph that contains its anchor
// text, compared case-insensitively. This is an approximation: a repeated
// phrase is only flagged where it first appears. Issues whose anchor is
// found nowhere are kept as trailing notes so no finding is lost.
package annotate

import (
	"fmt"
	"strings"

	"github.com/ppiankov/corpagent/internal/model"
)

// Note is the comment attached for one issue
type Note struct {
	Issue      string
	Suggestion string
	Reference  string
	Source     model.IssueSource
}

// Lines returns the note as Issue / Suggestion / Reference lines
func (n Note) Lines() []string {
	return []string{
		"Issue: " + n.Issue,
		"Suggestion: " + n.Suggestion,
		"Reference: " + n.Reference,
	}
}

// String joins the note lines
func (n Note) String() string {
	return strings.Join(n.Lines(), "\n")
}

// Block is one paragraph of the source document
type Block struct {
	Text        string
	Highlighted bool
	Notes       []Note
}

// Document is the annotated artifact
type Document struct {
	Title    string
	Blocks   []Block
	Trailing []Note // Notes whose anchor matched no block
}

// Annotate splits text into paragraphs (non-empty lines) and attaches one
// note per issue. Neither text nor issues are modified.
func Annotate(title, text string, issues []model.Issue) *Document {
	doc := &Document{Title: title}

	var lowered []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		doc.Blocks = append(doc.Blocks, Block{Text: line})
		lowered = append(lowered, strings.ToLower(line))
	}

	for _, issue := range issues {
		note := Note{
			Issue:      issue.Issue,
			Suggestion: issue.Suggestion,
			Reference:  issue.Reference,
			Source:     issue.Source,
		}

		idx := findAnchor(lowered, issue.AnchorText())
		if idx < 0 {
			doc.Trailing = append(doc.Trailing, note)
			continue
		}
		doc.Blocks[idx].Highlighted = true
		doc.Blocks[idx].Notes = append(doc.Blocks[idx].Notes, note)
	}

	return doc
}

func findAnchor(lowered []string, anchor string) int {
	anchor = strings.ToLower(strings.TrimSpace(anchor))
	if anchor == "" {
		return -1
	}
	for i, block := range lowered {
		if strings.Contains(block, anchor) {
			return i
		}
	}
	return -1
}

// NoteCount returns the number of notes in the document
func (d *Document) NoteCount() int {
	n := len(d.Trailing)
	for _, b := range d.Blocks {
		n += len(b.Notes)
	}
	return n
}

// Extension returns the file extension for a render format
func Extension(format string) (string, error) {
	switch format {
	case "md", "txt", "html":
		return "." + format, nil
	}
	return "", fmt.Errorf("unsupported annotation format %q", format)
}
