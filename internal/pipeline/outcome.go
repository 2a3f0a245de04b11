package pipeline

import "github.com/ppiankov/corpagent/internal/model"

// Outcome is the result of reviewing one document: Ok(result) or
// Failed(reason). A failed outcome still carries a degraded result
// (Unknown type, no issues, references if any) for the report.
type Outcome struct {
	result model.DocumentResult
	text   string
	reason error
}

// Ok wraps a completed review and the text it was computed from
func Ok(result model.DocumentResult, text string) Outcome {
	return Outcome{result: result, text: text}
}

// Failed degrades a document whose review could not complete
func Failed(fileID, fileName string, references []model.ReferenceMatch, reason error) Outcome {
	if references == nil {
		references = []model.ReferenceMatch{}
	}
	return Outcome{
		result: model.DocumentResult{
			FileID:       fileID,
			FileName:     fileName,
			DetectedType: model.UnknownType,
			Issues:       []model.Issue{},
			References:   references,
			Error:        reason.Error(),
		},
		reason: reason,
	}
}

// OK reports whether the review completed
func (o Outcome) OK() bool { return o.reason == nil }

// Reason returns why the review failed, nil for Ok outcomes
func (o Outcome) Reason() error { return o.reason }

// Result returns the document result, degraded for Failed outcomes
func (o Outcome) Result() model.DocumentResult { return o.result }

// Text returns the reviewed text (empty for Failed outcomes)
func (o Outcome) Text() string { return o.text }
