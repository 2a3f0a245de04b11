package review

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/ppiankov/corpagent/internal/model"
)

// ErrUnparseable marks a model response that holds no usable issue list
var ErrUnparseable = errors.New("model output not parseable")

// ParseResult is either Parsed(items) or Unparsed(raw)
type ParseResult struct {
	Items  []model.Issue
	Raw    string
	parsed bool
}

// Parsed wraps a successfully decoded issue list (possibly empty)
func Parsed(items []model.Issue) ParseResult {
	if items == nil {
		items = []model.Issue{}
	}
	return ParseResult{Items: items, parsed: true}
}

// Unparsed wraps a response that could not be decoded
func Unparsed(raw string) ParseResult {
	return ParseResult{Raw: raw}
}

// OK reports whether the response decoded
func (r ParseResult) OK() bool { return r.parsed }

// Err returns ErrUnparseable for Unparsed results
func (r ParseResult) Err() error {
	if r.parsed {
		return nil
	}
	return ErrUnparseable
}

// Issues returns the decoded issues, or the single fallback issue for an
// unparseable response
func (r ParseResult) Issues() []model.Issue {
	if r.parsed {
		return r.Items
	}
	return []model.Issue{{
		Issue:      "Model output not parseable",
		Suggestion: r.Raw,
		Source:     model.SourceModel,
	}}
}

type rawIssue struct {
	Issue      string `json:"issue"`
	Suggestion string `json:"suggestion"`
	Reference  string `json:"reference"`
	Clause     string `json:"clause"`
}

// Parse decodes a model response into issues. It tolerates Markdown code
// fences and prose around the outermost JSON array. Objects without an
// issue are skipped; an array with elements but no usable object is
// unparseable, while an empty array means no issues.
func Parse(raw string) ParseResult {
	body := stripFences(raw)

	start := strings.Index(body, "[")
	end := strings.LastIndex(body, "]")
	if start < 0 || end < start {
		return Unparsed(raw)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(body[start:end+1]), &elems); err != nil {
		return Unparsed(raw)
	}
	if len(elems) == 0 {
		return Parsed(nil)
	}

	items := make([]model.Issue, 0, len(elems))
	for _, elem := range elems {
		var ri rawIssue
		if err := json.Unmarshal(elem, &ri); err != nil {
			continue
		}
		if strings.TrimSpace(ri.Issue) == "" {
			continue
		}
		items = append(items, model.Issue{
			Issue:      strings.TrimSpace(ri.Issue),
			Suggestion: strings.TrimSpace(ri.Suggestion),
			Reference:  strings.TrimSpace(ri.Reference),
			Anchor:     strings.TrimSpace(ri.Clause),
			Source:     model.SourceModel,
		})
	}
	if len(items) == 0 {
		return Unparsed(raw)
	}
	return Parsed(items)
}

// stripFences returns the body of the first ``` fenced block, or s unchanged
func stripFences(s string) string {
	open := strings.Index(s, "```")
	if open < 0 {
		return s
	}
	rest := s[open+3:]
	// Drop the info string (```json)
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		return rest[:end]
	}
	return rest
}
