// Package rules runs deterministic pattern checks over document text.
package rules

import (
	"regexp"
	"strings"
	"sync"

	"github.com/ppiankov/corpagent/internal/model"
)

// Predicate inspects a document. fired reports whether the rule applies;
// anchor is the text that triggered it, empty when the rule fires on an absence.
type Predicate func(text string) (fired bool, anchor string)

// Rule is one predicate and the issue it produces
type Rule struct {
	Name       string
	Predicate  Predicate
	Issue      string
	Suggestion string
	Reference  string
}

// Registry holds rules in registration order. Detect is safe for concurrent
// use; Register may be called at any time and only appends.
type Registry struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewRegistry creates a registry preloaded with rules
func NewRegistry(rules ...Rule) *Registry {
	r := &Registry{}
	for _, rule := range rules {
		r.Register(rule)
	}
	return r
}

// Default returns a registry with the built-in ADGM rules
func Default() *Registry {
	return NewRegistry(DefaultRules()...)
}

// Register appends a rule. Existing rules and their order are untouched.
func (r *Registry) Register(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
}

// Names returns rule names in evaluation order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.Name
	}
	return names
}

// Detect evaluates every rule in order and returns one issue per fired rule.
// It has no side effects, so repeated calls on the same text agree.
func (r *Registry) Detect(text string) []model.Issue {
	r.mu.RLock()
	rules := make([]Rule, len(r.rules))
	copy(rules, r.rules)
	r.mu.RUnlock()

	issues := []model.Issue{}
	for _, rule := range rules {
		fired, anchor := rule.Predicate(text)
		if !fired {
			continue
		}
		issues = append(issues, model.Issue{
			Issue:      rule.Issue,
			Suggestion: rule.Suggestion,
			Reference:  rule.Reference,
			Source:     model.SourceRule,
			Anchor:     anchor,
			Rule:       rule.Name,
		})
	}
	return issues
}

// Present fires when re matches. The anchor is the line holding the first
// match, so the annotator lands on that line and not on an earlier
// substring the pattern itself rejects (e.g. "dismay" for \bmay\b).
func Present(re *regexp.Regexp) Predicate {
	return func(text string) (bool, string) {
		loc := re.FindStringIndex(text)
		if loc == nil {
			return false, ""
		}
		return true, lineAt(text, loc[0], loc[1])
	}
}

// lineAt returns the trimmed line containing text[start:end]
func lineAt(text string, start, end int) string {
	from := strings.LastIndexByte(text[:start], '\n') + 1
	to := len(text)
	if i := strings.IndexByte(text[end:], '\n'); i >= 0 {
		to = end + i
	}
	line := strings.TrimSpace(text[from:to])
	if line == "" {
		return strings.TrimSpace(text[start:end])
	}
	return line
}

// Absent fires when re does not match anywhere
func Absent(re *regexp.Regexp) Predicate {
	return func(text string) (bool, string) {
		return !re.MatchString(text), ""
	}
}

// DefaultRules returns the built-in rules: jurisdiction, signatory and
// binding language, in that order
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:       "jurisdiction",
			Predicate:  Present(regexp.MustCompile(`(?i)UAE Federal Courts`)),
			Issue:      "Incorrect jurisdiction reference",
			Suggestion: "Replace with 'ADGM Courts' as per ADGM Companies Regulations.",
		},
		{
			Name:       "signatory",
			Predicate:  Absent(regexp.MustCompile(`(?i)Signed by|Signature`)),
			Issue:      "Missing signatory section",
			Suggestion: "Include a signatory section with name, designation, and date.",
		},
		{
			Name:       "binding_language",
			Predicate:  Present(regexp.MustCompile(`(?i)\bmay\b`)),
			Issue:      "Ambiguous language ('may')",
			Suggestion: "Consider using 'shall' for legally binding obligations.",
		},
	}
}
