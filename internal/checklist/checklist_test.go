package checklist

import (
	"reflect"
	"testing"

	"github.com/ppiankov/corpagent/internal/model"
)

func TestVerify_PartialBatch(t *testing.T) {
	detected := []string{"Articles of Association", "Board Resolution", "Board Resolution"}
	got := Incorporation().Missing(detected)

	want := []string{"Memorandum of Association", "Shareholder Resolution", "Register of Members and Directors"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestVerify_UnknownNeverSatisfies(t *testing.T) {
	got := Verify([]string{model.UnknownType}, []string{model.UnknownType, "Board Resolution"})
	want := []string{model.UnknownType, "Board Resolution"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestVerify_Complete(t *testing.T) {
	got := Verify(model.DefaultRequiredDocuments, model.DefaultRequiredDocuments)
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil list, got %#v", got)
	}
}

func TestVerify_Monotonic(t *testing.T) {
	required := Incorporation().Required
	batches := [][]string{
		{},
		{"Board Resolution"},
		{"Board Resolution", "Unknown"},
		{"Board Resolution", "Articles of Association"},
		{"Board Resolution", "Articles of Association", "Memorandum of Association", "Shareholder Resolution"},
		required,
	}

	prev := len(required) + 1
	for i, detected := range batches {
		n := len(Verify(detected, required))
		if n > prev {
			t.Errorf("Batch %d: missing grew from %d to %d", i, prev, n)
		}
		prev = n
	}
}

func TestDistinct(t *testing.T) {
	got := Distinct([]string{"Board Resolution", "Unknown", "Articles of Association", "Board Resolution"})
	want := []string{"Board Resolution", "Articles of Association"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestIncorporation_IsCopy(t *testing.T) {
	c := Incorporation()
	c.Required[0] = "changed"
	if model.DefaultRequiredDocuments[0] == "changed" {
		t.Error("Expected Incorporation to copy the default list")
	}
	if c.Process != "Company Incorporation" {
		t.Errorf("Unexpected process %q", c.Process)
	}
}
