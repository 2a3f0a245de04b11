package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/corpagent/internal/cache"
	"github.com/ppiankov/corpagent/internal/llm"
	"github.com/ppiankov/corpagent/internal/logger"
	"github.com/ppiankov/corpagent/internal/model"
)

func init() {
	// Disable retry sleep in all tests for fast execution
	sleepFunc = func(d time.Duration) {}
}

var partRe = regexp.MustCompile(`part (\d+) of (\d+)`)

// fakeProvider answers completions with a scripted function
type fakeProvider struct {
	calls   int32
	respond func(ctx context.Context, part, call int) (string, error)
}

func (p *fakeProvider) Name() string { return "fake" }
func (p *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	call := int(atomic.AddInt32(&p.calls, 1))
	part := 0
	if m := partRe.FindStringSubmatch(req.Prompt); m != nil {
		part, _ = strconv.Atoi(m[1])
	}
	text, err := p.respond(ctx, part, call)
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{Text: text, Model: "fake-model"}, nil
}

func issueJSON(name string) string {
	return fmt.Sprintf(`[{"issue": %q, "suggestion": "fix it", "reference": "ADGM"}]`, name)
}

// threeSegments builds text that splits into exactly three 10-rune segments
func threeSegments() string {
	return strings.Repeat("a", 10) + strings.Repeat("b", 10) + strings.Repeat("c", 10)
}

func TestDetect_EmptyText(t *testing.T) {
	p := &fakeProvider{respond: func(context.Context, int, int) (string, error) { return "[]", nil }}
	d := New(p, Options{SegmentChars: 10})

	issues, err := d.Detect(context.Background(), "   \n ")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("Expected no issues, got %d", len(issues))
	}
	if p.calls != 0 {
		t.Errorf("Expected no model calls, got %d", p.calls)
	}
}

func TestDetect_PreservesSegmentOrder(t *testing.T) {
	p := &fakeProvider{respond: func(ctx context.Context, part, call int) (string, error) {
		// Earlier segments answer last
		time.Sleep(time.Duration(4-part) * 15 * time.Millisecond)
		return issueJSON(fmt.Sprintf("segment %d", part)), nil
	}}
	d := New(p, Options{SegmentChars: 10, Workers: 3})

	issues, err := d.Detect(context.Background(), threeSegments())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(issues) != 3 {
		t.Fatalf("Expected 3 issues, got %d", len(issues))
	}
	for i, issue := range issues {
		want := fmt.Sprintf("segment %d", i+1)
		if issue.Issue != want {
			t.Errorf("Position %d: expected %q, got %q", i, want, issue.Issue)
		}
	}
}

func TestDetect_PromptCarriesPartOfTotal(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	p := &fakeProvider{}
	p.respond = func(ctx context.Context, part, call int) (string, error) { return "[]", nil }

	d := New(&recordingProvider{fakeProvider: p, record: func(prompt string) {
		mu.Lock()
		defer mu.Unlock()
		seen[partRe.FindString(prompt)] = true
	}}, Options{SegmentChars: 10})

	if _, err := d.Detect(context.Background(), threeSegments()); err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	for _, want := range []string{"part 1 of 3", "part 2 of 3", "part 3 of 3"} {
		if !seen[want] {
			t.Errorf("Expected a prompt with %q", want)
		}
	}
}

type recordingProvider struct {
	*fakeProvider
	record func(prompt string)
}

func (p *recordingProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.record(req.Prompt)
	return p.fakeProvider.Complete(ctx, req)
}

func TestDetect_FallbackPerMalformedSegment(t *testing.T) {
	p := &fakeProvider{respond: func(ctx context.Context, part, call int) (string, error) {
		if part == 2 {
			return "I could not find any JSON-worthy issues.", nil
		}
		return issueJSON(fmt.Sprintf("segment %d", part)), nil
	}}
	d := New(p, Options{SegmentChars: 10, Workers: 2})

	issues, err := d.Detect(context.Background(), threeSegments())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(issues) != 3 {
		t.Fatalf("Expected 3 issues, got %d", len(issues))
	}

	fallback := issues[1]
	if fallback.Issue != "Model output not parseable" {
		t.Errorf("Expected fallback in segment position, got %q", fallback.Issue)
	}
	if fallback.Suggestion != "I could not find any JSON-worthy issues." {
		t.Errorf("Expected raw text as suggestion, got %q", fallback.Suggestion)
	}
	if p.calls != 3 {
		t.Errorf("Expected parse failures not to be retried (3 calls), got %d", p.calls)
	}
}

func TestDetect_RetriesTransientErrors(t *testing.T) {
	var slept []time.Duration
	sleepFunc = func(d time.Duration) { slept = append(slept, d) }
	defer func() { sleepFunc = func(time.Duration) {} }()

	p := &fakeProvider{respond: func(ctx context.Context, part, call int) (string, error) {
		if call <= 2 {
			return "", &llm.StatusError{Provider: "fake", StatusCode: 503, Message: "overloaded"}
		}
		return issueJSON("after retry"), nil
	}}
	d := New(p, Options{SegmentChars: 100, MaxRetries: 3})

	issues, err := d.Detect(context.Background(), "short document")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if p.calls != 3 {
		t.Errorf("Expected 3 calls, got %d", p.calls)
	}
	if len(issues) != 1 || issues[0].Issue != "after retry" {
		t.Errorf("Expected recovered issue, got %+v", issues)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Errorf("Expected backoff [1s 2s], got %v", slept)
	}
}

func TestDetect_RetriesExhausted(t *testing.T) {
	p := &fakeProvider{respond: func(ctx context.Context, part, call int) (string, error) {
		return "", &llm.StatusError{Provider: "fake", StatusCode: 500, Message: "boom"}
	}}
	d := New(p, Options{SegmentChars: 100, MaxRetries: 2})

	issues, err := d.Detect(context.Background(), "short document")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if p.calls != 3 {
		t.Errorf("Expected 1 attempt + 2 retries, got %d calls", p.calls)
	}
	if len(issues) != 1 || issues[0].Issue != "Model call failed" {
		t.Fatalf("Expected one call-failure fallback, got %+v", issues)
	}
	if issues[0].Source != model.SourceModel {
		t.Errorf("Expected source MODEL, got %s", issues[0].Source)
	}
	if !strings.Contains(issues[0].Suggestion, "500") {
		t.Errorf("Expected status in suggestion, got %q", issues[0].Suggestion)
	}
}

func TestDetect_NoRetryOnPermanentError(t *testing.T) {
	p := &fakeProvider{respond: func(ctx context.Context, part, call int) (string, error) {
		return "", &llm.StatusError{Provider: "fake", StatusCode: 401, Message: "bad key"}
	}}
	d := New(p, Options{SegmentChars: 100, MaxRetries: 3})

	issues, _ := d.Detect(context.Background(), "short document")
	if p.calls != 1 {
		t.Errorf("Expected 1 call for a permanent error, got %d", p.calls)
	}
	if len(issues) != 1 || issues[0].Issue != "Model call failed" {
		t.Errorf("Expected call-failure fallback, got %+v", issues)
	}
}

func TestDetect_OneFailedSegmentDoesNotAbortOthers(t *testing.T) {
	p := &fakeProvider{respond: func(ctx context.Context, part, call int) (string, error) {
		if part == 1 {
			return "", errors.New("connection refused")
		}
		return issueJSON(fmt.Sprintf("segment %d", part)), nil
	}}
	d := New(p, Options{SegmentChars: 10, MaxRetries: 1})

	issues, err := d.Detect(context.Background(), threeSegments())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(issues) != 3 {
		t.Fatalf("Expected 3 issues, got %d", len(issues))
	}
	if issues[0].Issue != "Model call failed" {
		t.Errorf("Expected fallback first, got %q", issues[0].Issue)
	}
	if issues[1].Issue != "segment 2" || issues[2].Issue != "segment 3" {
		t.Errorf("Expected remaining segments reviewed, got %q, %q", issues[1].Issue, issues[2].Issue)
	}
}

func TestDetect_CancelledBeforeStart(t *testing.T) {
	p := &fakeProvider{respond: func(context.Context, int, int) (string, error) { return "[]", nil }}
	d := New(p, Options{SegmentChars: 10})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	issues, err := d.Detect(ctx, threeSegments())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if issues != nil {
		t.Errorf("Expected partial issues to be discarded, got %+v", issues)
	}
	if p.calls != 0 {
		t.Errorf("Expected no calls, got %d", p.calls)
	}
}

func TestDetect_CancelLetsInFlightCallFinish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var inFlightErr error

	p := &fakeProvider{respond: func(callCtx context.Context, part, call int) (string, error) {
		if call == 1 {
			cancel()
			time.Sleep(20 * time.Millisecond)
			inFlightErr = callCtx.Err()
		}
		return "[]", nil
	}}
	d := New(p, Options{SegmentChars: 10, Workers: 1})

	_, err := d.Detect(ctx, threeSegments())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if p.calls != 1 {
		t.Errorf("Expected dispatch to stop after cancel (1 call), got %d", p.calls)
	}
	if inFlightErr != nil {
		t.Errorf("Expected in-flight call context to survive cancel, got %v", inFlightErr)
	}
}

type countingWaiter struct {
	mu   sync.Mutex
	keys []string
}

func (w *countingWaiter) Wait(ctx context.Context, key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.keys = append(w.keys, key)
	return nil
}

func TestDetect_UsesLimiter(t *testing.T) {
	p := &fakeProvider{respond: func(context.Context, int, int) (string, error) { return "[]", nil }}
	w := &countingWaiter{}
	d := New(p, Options{SegmentChars: 10}).WithLimiter(w)

	if _, err := d.Detect(context.Background(), threeSegments()); err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(w.keys) != 3 {
		t.Fatalf("Expected 3 limiter waits, got %d", len(w.keys))
	}
	for _, k := range w.keys {
		if k != "fake" {
			t.Errorf("Expected limiter key fake, got %q", k)
		}
	}
}

func TestDetect_CachesParsedResponses(t *testing.T) {
	p := &fakeProvider{respond: func(ctx context.Context, part, call int) (string, error) {
		return issueJSON(fmt.Sprintf("segment %d", part)), nil
	}}
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	d := New(p, Options{SegmentChars: 10}).WithCache(c)

	first, err := d.Detect(context.Background(), threeSegments())
	if err != nil {
		t.Fatalf("first Detect failed: %v", err)
	}
	second, err := d.Detect(context.Background(), threeSegments())
	if err != nil {
		t.Fatalf("second Detect failed: %v", err)
	}

	if p.calls != 3 {
		t.Errorf("Expected cached second run (3 calls total), got %d", p.calls)
	}
	if len(first) != len(second) {
		t.Fatalf("Expected identical results, got %d and %d issues", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Issue %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestDetect_DoesNotCacheUnparseable(t *testing.T) {
	p := &fakeProvider{respond: func(context.Context, int, int) (string, error) { return "no json", nil }}
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	d := New(p, Options{SegmentChars: 100}).WithCache(c)

	_, _ = d.Detect(context.Background(), "doc")
	_, _ = d.Detect(context.Background(), "doc")

	if p.calls != 2 {
		t.Errorf("Expected unparseable output to be re-requested, got %d calls", p.calls)
	}
	if c.Len() != 0 {
		t.Errorf("Expected empty cache, got %d entries", c.Len())
	}
}

func TestDetect_TokenEstimateOnlyWhenVerbose(t *testing.T) {
	var estimates int32
	estimateTokens = func(text, model string) int {
		atomic.AddInt32(&estimates, 1)
		return len(text) / 4
	}
	defer func() { estimateTokens = llm.EstimateTokens }()

	logger.SetOutput(io.Discard)
	defer func() {
		logger.SetVerbose(false)
		logger.SetOutput(os.Stderr)
	}()

	p := &fakeProvider{respond: func(context.Context, int, int) (string, error) { return "[]", nil }}
	d := New(p, Options{SegmentChars: 10})

	logger.SetVerbose(false)
	if _, err := d.Detect(context.Background(), threeSegments()); err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if n := atomic.LoadInt32(&estimates); n != 0 {
		t.Errorf("Expected no token estimates in quiet mode, got %d", n)
	}

	logger.SetVerbose(true)
	if _, err := d.Detect(context.Background(), threeSegments()); err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if n := atomic.LoadInt32(&estimates); n != 3 {
		t.Errorf("Expected 3 token estimates in verbose mode, got %d", n)
	}
}

func TestOptionsFromModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.TimeoutSeconds = 5

	opts := OptionsFromModel(cfg.LLM, cfg.Concurrency.SegmentWorkers, cfg.Cache)
	if opts.SegmentChars != 5000 {
		t.Errorf("Expected 5000 segment chars, got %d", opts.SegmentChars)
	}
	if opts.Timeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", opts.Timeout)
	}
	if opts.Model != "gpt-4o-mini" {
		t.Errorf("Expected model gpt-4o-mini, got %q", opts.Model)
	}
	if opts.Workers != cfg.Concurrency.SegmentWorkers {
		t.Errorf("Expected %d workers, got %d", cfg.Concurrency.SegmentWorkers, opts.Workers)
	}
	if opts.MaxRetries != 3 {
		t.Errorf("Expected 3 retries, got %d", opts.MaxRetries)
	}
}
