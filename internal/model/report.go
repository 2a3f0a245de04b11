package model

import "time"

// UnknownType is the label for documents the classifier cannot place
const UnknownType = "Unknown"

// DocumentResult is the finalized review of one input document
type DocumentResult struct {
	FileID       string           `json:"file_id"`
	FileName     string           `json:"uploaded_file"`
	DetectedType string           `json:"detected_document_type"`
	Issues       []Issue          `json:"issues"`
	References   []ReferenceMatch `json:"references"`
	Error        string           `json:"error,omitempty"` // Set when the review degraded
}

// IssuesBySource returns the issues produced by the given detector
func (r DocumentResult) IssuesBySource(source IssueSource) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Source == source {
			out = append(out, issue)
		}
	}
	return out
}

// BatchSummary is the batch-level review result
type BatchSummary struct {
	RunID         string
	GeneratedAt   time.Time
	Process       string
	RequiredTypes []string // Checklist order
	DetectedTypes []string // Distinct, first-seen order, Unknown excluded
	Missing       []string // Required types not detected, in checklist order
	PerDocument   []DocumentResult
}

// Report is the serialized form of a BatchSummary.
// This is the external report contract and must stay structurally stable.
type Report struct {
	RunID             string           `json:"run_id"`
	GeneratedAt       time.Time        `json:"generated_at"`
	Process           string           `json:"process"`
	DocumentsUploaded int              `json:"documents_uploaded"`
	RequiredDocuments int              `json:"required_documents"`
	MissingDocuments  []string         `json:"missing_documents"`
	DetailedResults   []DocumentResult `json:"detailed_results"`
}

// Report converts the summary into its external report shape.
// documents_uploaded counts distinct recognised document types.
func (s *BatchSummary) Report() Report {
	missing := s.Missing
	if missing == nil {
		missing = []string{}
	}
	results := s.PerDocument
	if results == nil {
		results = []DocumentResult{}
	}
	return Report{
		RunID:             s.RunID,
		GeneratedAt:       s.GeneratedAt,
		Process:           s.Process,
		DocumentsUploaded: len(s.DetectedTypes),
		RequiredDocuments: len(s.RequiredTypes),
		MissingDocuments:  missing,
		DetailedResults:   results,
	}
}
