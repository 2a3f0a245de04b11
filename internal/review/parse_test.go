package review

import (
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/corpagent/internal/model"
)

func TestParse_PlainArray(t *testing.T) {
	raw := `[{"issue": "Wrong court", "suggestion": "Use ADGM Courts", "reference": "Companies Regulations 2020"}]`

	res := Parse(raw)
	if !res.OK() {
		t.Fatalf("Expected parsed result, got unparsed")
	}
	if len(res.Items) != 1 {
		t.Fatalf("Expected 1 issue, got %d", len(res.Items))
	}
	got := res.Items[0]
	if got.Issue != "Wrong court" || got.Suggestion != "Use ADGM Courts" || got.Reference != "Companies Regulations 2020" {
		t.Errorf("Unexpected issue %+v", got)
	}
	if got.Source != model.SourceModel {
		t.Errorf("Expected source MODEL, got %s", got.Source)
	}
}

func TestParse_CodeFenceAndProse(t *testing.T) {
	raw := "Here are the findings:\n```json\n[\n  {\"issue\": \"Missing date\", \"suggestion\": \"Add a date\", \"clause\": \"Signed by the Director\"}\n]\n```\nLet me know if you need more."

	res := Parse(raw)
	if !res.OK() {
		t.Fatalf("Expected parsed result")
	}
	if len(res.Items) != 1 {
		t.Fatalf("Expected 1 issue, got %d", len(res.Items))
	}
	if res.Items[0].Anchor != "Signed by the Director" {
		t.Errorf("Expected clause as anchor, got %q", res.Items[0].Anchor)
	}
}

func TestParse_BracketsInsideValues(t *testing.T) {
	raw := `Result: [{"issue": "Cites [Article 5] loosely", "suggestion": "Quote it"}] done`

	res := Parse(raw)
	if !res.OK() || len(res.Items) != 1 {
		t.Fatalf("Expected 1 parsed issue, got ok=%v items=%d", res.OK(), len(res.Items))
	}
	if res.Items[0].Issue != "Cites [Article 5] loosely" {
		t.Errorf("Unexpected issue text %q", res.Items[0].Issue)
	}
}

func TestParse_EmptyArrayIsNoIssues(t *testing.T) {
	res := Parse("[]")
	if !res.OK() {
		t.Fatal("Expected empty array to parse")
	}
	if res.Items == nil || len(res.Items) != 0 {
		t.Errorf("Expected empty non-nil items, got %v", res.Items)
	}
	if len(res.Issues()) != 0 {
		t.Errorf("Expected no issues, got %d", len(res.Issues()))
	}
}

func TestParse_SkipsObjectsWithoutIssue(t *testing.T) {
	raw := `[{"suggestion": "orphan"}, {"issue": "  "}, {"issue": "Real one"}, 42]`

	res := Parse(raw)
	if !res.OK() {
		t.Fatal("Expected parsed result")
	}
	if len(res.Items) != 1 || res.Items[0].Issue != "Real one" {
		t.Errorf("Expected only the valid object, got %+v", res.Items)
	}
}

func TestParse_Unparseable(t *testing.T) {
	cases := map[string]string{
		"prose":          "The document looks compliant to me.",
		"object":         `{"issue": "not an array"}`,
		"broken json":    `[{"issue": "unterminated}`,
		"no valid items": `[{"note": "x"}, "text"]`,
		"reversed":       "] nothing [",
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			res := Parse(raw)
			if res.OK() {
				t.Fatalf("Expected unparsed result for %q", raw)
			}
			if !errors.Is(res.Err(), ErrUnparseable) {
				t.Errorf("Expected ErrUnparseable, got %v", res.Err())
			}

			issues := res.Issues()
			if len(issues) != 1 {
				t.Fatalf("Expected exactly 1 fallback issue, got %d", len(issues))
			}
			if issues[0].Issue != "Model output not parseable" {
				t.Errorf("Unexpected fallback issue %q", issues[0].Issue)
			}
			if issues[0].Suggestion != raw {
				t.Errorf("Expected raw response as suggestion, got %q", issues[0].Suggestion)
			}
			if issues[0].Source != model.SourceModel {
				t.Errorf("Expected source MODEL, got %s", issues[0].Source)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("The company may appoint directors.", 2, 3)

	for _, want := range []string{"part 2 of 3", "The company may appoint directors.", "ADGM"} {
		if !strings.Contains(p, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
}
