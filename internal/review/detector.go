// Package review runs the model-assisted compliance review.
//
// A document is cut into bounded segments, each reviewed by one completion
// call. Every segment contributes issues, possibly a single fallback issue,
// and results are returned in segment order whatever the schedule.
package review

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ppiankov/corpagent/internal/cache"
	"github.com/ppiankov/corpagent/internal/chunk"
	"github.com/ppiankov/corpagent/internal/llm"
	"github.com/ppiankov/corpagent/internal/logger"
	"github.com/ppiankov/corpagent/internal/model"
)

const (
	DefaultSegmentChars = 5000
	DefaultWorkers      = 2
	DefaultMaxRetries   = 3
	DefaultTimeout      = 60 * time.Second
)

// sleepFunc is the sleep function used between retries (injectable for tests)
var sleepFunc = time.Sleep

// estimateTokens is swapped in tests so they never load BPE ranks
var estimateTokens = llm.EstimateTokens

// Waiter blocks until a call under key may proceed (see worker.Limiter)
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// Options tunes the detector
type Options struct {
	SegmentChars int
	Workers      int
	MaxRetries   int // Retries after the first attempt, transient errors only
	Timeout      time.Duration
	Model        string
	MaxTokens    int
	Temperature  float32
	CacheTTL     time.Duration
}

// DefaultOptions returns the standard review settings
func DefaultOptions() Options {
	return Options{
		SegmentChars: DefaultSegmentChars,
		Workers:      DefaultWorkers,
		MaxRetries:   DefaultMaxRetries,
		Timeout:      DefaultTimeout,
		MaxTokens:    800,
		Temperature:  0.3,
	}
}

// OptionsFromModel maps configuration onto detector options
func OptionsFromModel(llmCfg model.LLMConfig, segmentWorkers int, cacheCfg model.CacheConfig) Options {
	opts := DefaultOptions()
	if llmCfg.SegmentChars > 0 {
		opts.SegmentChars = llmCfg.SegmentChars
	}
	if segmentWorkers > 0 {
		opts.Workers = segmentWorkers
	}
	if llmCfg.MaxRetries >= 0 {
		opts.MaxRetries = llmCfg.MaxRetries
	}
	if llmCfg.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(llmCfg.TimeoutSeconds) * time.Second
	}
	if llmCfg.MaxTokens > 0 {
		opts.MaxTokens = llmCfg.MaxTokens
	}
	opts.Temperature = llmCfg.Temperature
	opts.Model = llmCfg.Model
	opts.CacheTTL = time.Duration(cacheCfg.TTLMinutes) * time.Minute
	return opts
}

// Detector reviews documents with a completion provider
type Detector struct {
	provider llm.Provider
	opts     Options
	limiter  Waiter
	cache    cache.Cache
}

// New creates a detector. Zero-valued options fall back to the defaults.
func New(provider llm.Provider, opts Options) *Detector {
	def := DefaultOptions()
	if opts.SegmentChars <= 0 {
		opts.SegmentChars = def.SegmentChars
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	return &Detector{provider: provider, opts: opts}
}

// WithLimiter throttles completion calls under the provider name
func (d *Detector) WithLimiter(w Waiter) *Detector {
	d.limiter = w
	return d
}

// WithCache reuses earlier responses for identical prompts
func (d *Detector) WithCache(c cache.Cache) *Detector {
	d.cache = c
	return d
}

// Detect reviews text and returns MODEL issues in segment order.
// If ctx is cancelled before every segment was dispatched the partial
// result is discarded and ctx's error returned.
func (d *Detector) Detect(ctx context.Context, text string) ([]model.Issue, error) {
	segments := chunk.Segments(text, d.opts.SegmentChars)
	if len(segments) == 0 {
		return []model.Issue{}, nil
	}

	total := len(segments)
	results := make([][]model.Issue, total)
	var wg sync.WaitGroup

	// Create semaphore to limit concurrent calls
	semaphore := make(chan struct{}, d.opts.Workers)

	dispatched := 0
dispatch:
	for i, seg := range segments {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case semaphore <- struct{}{}:
		}
		dispatched++

		wg.Add(1)
		go func(idx int, segment string) {
			defer wg.Done()
			defer func() { <-semaphore }()
			results[idx] = d.reviewSegment(ctx, segment, idx+1, total)
		}(i, seg)
	}

	wg.Wait()

	if dispatched < total {
		return nil, fmt.Errorf("review interrupted after %d of %d segments: %w", dispatched, total, ctx.Err())
	}

	issues := make([]model.Issue, 0, total)
	for _, r := range results {
		issues = append(issues, r...)
	}
	return issues, nil
}

// reviewSegment never fails: call and parse errors become fallback issues
func (d *Detector) reviewSegment(ctx context.Context, segment string, part, total int) []model.Issue {
	prompt := BuildPrompt(segment, part, total)

	if logger.IsVerbose() {
		logger.Debug("review segment %d/%d: ~%d prompt tokens", part, total, estimateTokens(prompt, d.modelName()))
	}

	key := cache.Key("complete", d.provider.Name(), d.opts.Model, prompt)
	if d.cache != nil {
		if raw, ok := d.cache.Get(key); ok {
			if res := Parse(string(raw)); res.OK() {
				return res.Items
			}
		}
	}

	text, err := d.completeWithRetry(ctx, prompt)
	if err != nil {
		logger.Warn("model review of segment %d/%d failed: %v", part, total, err)
		return []model.Issue{{
			Issue:      "Model call failed",
			Suggestion: fmt.Sprintf("Segment %d of %d was not reviewed: %v", part, total, err),
			Source:     model.SourceModel,
		}}
	}

	res := Parse(text)
	if !res.OK() {
		logger.Warn("model output for segment %d/%d: %v", part, total, res.Err())
		return res.Issues()
	}

	if d.cache != nil {
		if err := d.cache.Set(key, []byte(text), d.opts.CacheTTL); err != nil {
			logger.Debug("cache completion: %v", err)
		}
	}
	return res.Items
}

// completeWithRetry retries transient failures with exponential backoff.
// Each attempt runs detached from ctx cancellation but bounded by the call
// timeout; no new attempt starts once ctx is done.
func (d *Detector) completeWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= d.opts.MaxRetries; attempt++ {
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx, d.provider.Name()); err != nil {
				if lastErr == nil {
					lastErr = err
				}
				return "", lastErr
			}
		}

		text, err := d.complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !llm.IsTransient(err) || ctx.Err() != nil {
			break
		}
		if attempt < d.opts.MaxRetries {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			sleepFunc(backoff)
		}
	}
	return "", lastErr
}

func (d *Detector) complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.Timeout)
	defer cancel()

	resp, err := d.provider.Complete(callCtx, llm.CompletionRequest{
		System:      llm.SystemPrompt,
		Prompt:      prompt,
		Model:       d.opts.Model,
		MaxTokens:   d.opts.MaxTokens,
		Temperature: d.opts.Temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (d *Detector) modelName() string {
	if d.opts.Model != "" {
		return d.opts.Model
	}
	return d.provider.Name()
}
