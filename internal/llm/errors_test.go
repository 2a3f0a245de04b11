package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"wrapped canceled", fmt.Errorf("call: %w", context.Canceled), false},
		{"deadline", context.DeadlineExceeded, true},
		{"429", &StatusError{StatusCode: 429}, true},
		{"500", &StatusError{StatusCode: 500}, true},
		{"503 wrapped", fmt.Errorf("x: %w", &StatusError{StatusCode: 503}), true},
		{"400", &StatusError{StatusCode: 400}, false},
		{"401", &StatusError{StatusCode: 401}, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"timeout text", errors.New("i/o timeout"), true},
		{"parse error", errors.New("unmarshal response: invalid character"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("Expected %v, got %v for %v", tt.want, got, tt.err)
			}
		})
	}
}

func TestStatusError_Message(t *testing.T) {
	err := &StatusError{Provider: "Ollama", StatusCode: 502, Message: "bad gateway"}
	if err.Error() != "Ollama API error (502): bad gateway" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}
