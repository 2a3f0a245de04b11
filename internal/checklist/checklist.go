// Package checklist compares detected document types against the documents
// a regulatory process requires.
package checklist

import "github.com/ppiankov/corpagent/internal/model"

// Checklist is the required-document list for one process
type Checklist struct {
	Process  string
	Required []string
}

// Incorporation is the ADGM company incorporation checklist
func Incorporation() Checklist {
	required := make([]string, len(model.DefaultRequiredDocuments))
	copy(required, model.DefaultRequiredDocuments)
	return Checklist{Process: "Company Incorporation", Required: required}
}

// FromModel converts model.ChecklistConfig to a Checklist
func FromModel(cfg model.ChecklistConfig) Checklist {
	return Checklist{Process: cfg.Process, Required: cfg.Required}
}

// Missing returns required types not present in detected, in required order
func (c Checklist) Missing(detected []string) []string {
	return Verify(detected, c.Required)
}

// Verify returns the entries of required absent from detected, preserving
// required order. Unknown detections never satisfy a requirement.
func Verify(detected, required []string) []string {
	present := make(map[string]bool, len(detected))
	for _, d := range detected {
		if d != model.UnknownType {
			present[d] = true
		}
	}

	missing := []string{}
	for _, r := range required {
		if !present[r] {
			missing = append(missing, r)
		}
	}
	return missing
}

// Distinct returns detected types without duplicates or Unknown, in first-seen order
func Distinct(detected []string) []string {
	seen := make(map[string]bool, len(detected))
	out := []string{}
	for _, d := range detected {
		if d == model.UnknownType || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
