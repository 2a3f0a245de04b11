package util

import (
	"net/http"
	"net/url"
	"testing"
	"time"
)

func proxyFor(t *testing.T, fn func(*http.Request) (*url.URL, error), raw string) *url.URL {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, raw, nil)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	u, err := fn(req)
	if err != nil {
		t.Fatalf("proxy func failed: %v", err)
	}
	return u
}

func TestNewProxyFunc_SchemeSelection(t *testing.T) {
	fn := NewProxyFunc("http://plain:8080", "http://secure:8443", "")

	if u := proxyFor(t, fn, "https://api.openai.com/v1"); u == nil || u.Host != "secure:8443" {
		t.Errorf("Expected https proxy, got %v", u)
	}
	if u := proxyFor(t, fn, "http://localhost:11434/api"); u == nil || u.Host != "plain:8080" {
		t.Errorf("Expected http proxy, got %v", u)
	}
}

func TestNewProxyFunc_HTTPOnlyCoversHTTPS(t *testing.T) {
	fn := NewProxyFunc("http://plain:8080", "", "")

	if u := proxyFor(t, fn, "https://api.anthropic.com"); u == nil || u.Host != "plain:8080" {
		t.Errorf("Expected http proxy for https request, got %v", u)
	}
}

func TestNewProxyFunc_NoProxy(t *testing.T) {
	fn := NewProxyFunc("http://plain:8080", "", "localhost, .internal.example,corp.local:3128")

	tests := []struct {
		url    string
		bypass bool
	}{
		{"http://localhost:11434/api/embeddings", true},
		{"http://ollama.internal.example/api", true},
		{"http://corp.local/x", true},
		{"http://gpu.corp.local/x", true},
		{"https://api.openai.com", false},
		{"http://notcorp.local/x", false},
	}

	for _, tt := range tests {
		u := proxyFor(t, fn, tt.url)
		if tt.bypass && u != nil {
			t.Errorf("Expected %s to bypass proxy, got %v", tt.url, u)
		}
		if !tt.bypass && u == nil {
			t.Errorf("Expected %s to use proxy", tt.url)
		}
	}
}

func TestNewProxyFunc_Wildcard(t *testing.T) {
	fn := NewProxyFunc("http://plain:8080", "", "*")
	if u := proxyFor(t, fn, "https://anything.example"); u != nil {
		t.Errorf("Expected wildcard to bypass, got %v", u)
	}
}

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient(5*time.Second, "http://plain:8080", "", "")
	if c.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Expected *http.Transport, got %T", c.Transport)
	}
	if tr.Proxy == nil {
		t.Error("Expected proxy func to be set")
	}
}
