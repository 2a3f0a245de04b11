// Package classify assigns a document type from its text.
package classify

import (
	"strings"

	"github.com/ppiankov/corpagent/internal/model"
)

// Pattern maps a set of phrases to a document type
type Pattern struct {
	Type    string
	Phrases []string
}

// DefaultPatterns is checked in order; the first pattern with any matching
// phrase wins. Articles are checked before memoranda because articles
// routinely cite the memorandum.
var DefaultPatterns = []Pattern{
	{Type: "Articles of Association", Phrases: []string{"articles of association"}},
	{Type: "Memorandum of Association", Phrases: []string{"memorandum of association"}},
	{Type: "Board Resolution", Phrases: []string{"board resolution"}},
	{Type: "Shareholder Resolution", Phrases: []string{"shareholder resolution"}},
	{Type: "Register of Members and Directors", Phrases: []string{"register of members", "register of directors"}},
}

// Classifier matches lowercased text against an ordered pattern list
type Classifier struct {
	patterns []Pattern
}

// New creates a classifier; nil patterns use DefaultPatterns
func New(patterns []Pattern) *Classifier {
	if patterns == nil {
		patterns = DefaultPatterns
	}
	return &Classifier{patterns: patterns}
}

// Classify returns the first matching type, or model.UnknownType
func (c *Classifier) Classify(text string) string {
	lower := strings.ToLower(text)
	for _, p := range c.patterns {
		for _, phrase := range p.Phrases {
			if strings.Contains(lower, strings.ToLower(phrase)) {
				return p.Type
			}
		}
	}
	return model.UnknownType
}

// Classify uses the default patterns
func Classify(text string) string {
	return defaultClassifier.Classify(text)
}

var defaultClassifier = New(nil)
