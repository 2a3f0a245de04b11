package model

// IssueSource identifies the detector that produced an issue
type IssueSource string

const (
	SourceRule  IssueSource = "RULE"  // Deterministic pattern check
	SourceModel IssueSource = "MODEL" // Language-model reviewer
)

// Issue is a single detected compliance concern
type Issue struct {
	Issue      string      `json:"issue"`
	Suggestion string      `json:"suggestion"`
	Reference  string      `json:"reference,omitempty"`
	Source     IssueSource `json:"source"`
	Anchor     string      `json:"anchor,omitempty"` // Snippet used to locate the issue in the document
	Rule       string      `json:"rule,omitempty"`   // Rule name for RULE issues
}

// AnchorText returns the text the annotator searches for
func (i Issue) AnchorText() string {
	if i.Anchor != "" {
		return i.Anchor
	}
	return i.Issue
}

// ReferenceMatch is a corpus excerpt returned as supporting material.
// Matches are advisory context, never issues.
type ReferenceMatch struct {
	SourceURL    string  `json:"source_url"`
	Category     string  `json:"category"`
	DocumentType string  `json:"document_type"`
	Excerpt      string  `json:"reference_excerpt"`
	Score        float64 `json:"score"`
}
