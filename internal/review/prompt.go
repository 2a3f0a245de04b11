package review

import "fmt"

const promptTemplate = `You are an ADGM corporate compliance expert.
Review the text for:
- Wrong jurisdiction references
- Missing signature blocks
- Ambiguous or non-binding clauses
- Non-compliance with ADGM company setup requirements
Provide JSON array:
[
    {
        "issue": "...",
        "suggestion": "...",
        "reference": "ADGM Companies Regulations / Rule Name",
        "clause": "exact sentence from the text the issue refers to"
    }
]
Text (part %d of %d):
%s
`

// BuildPrompt renders the review instruction for segment part of total (1-based)
func BuildPrompt(segment string, part, total int) string {
	return fmt.Sprintf(promptTemplate, part, total, segment)
}
