package cli

import (
	"fmt"
	"strings"

	"github.com/ppiankov/corpagent/internal/cache"
	"github.com/ppiankov/corpagent/internal/embed"
	"github.com/ppiankov/corpagent/internal/index"
	"github.com/ppiankov/corpagent/internal/llm"
	"github.com/ppiankov/corpagent/internal/model"
	"github.com/ppiankov/corpagent/internal/review"
	"github.com/ppiankov/corpagent/internal/worker"
)

// services are the shared collaborators built once per command
type services struct {
	cache    cache.Cache // nil when caching is disabled
	limiter  *worker.Limiter
	embedder embed.Embedder
}

func newServices(cfg *model.Config) (*services, error) {
	base, err := embed.New(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	s := &services{
		cache:   cache.FromConfig(cfg.Cache),
		limiter: worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
	}
	if isLocal(cfg.Embedder.Provider) {
		s.limiter.SetRate(base.Name(), 0, 0)
	}
	s.embedder = embed.NewCached(base, s.cache, s.limiter)
	return s, nil
}

// detector returns the model reviewer, or nil when no provider is configured
func (s *services) detector(cfg *model.Config) (*review.Detector, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	if provider == nil {
		return nil, nil
	}

	if isLocal(cfg.LLM.Provider) {
		s.limiter.SetRate(provider.Name(), 0, 0)
	}

	opts := review.OptionsFromModel(cfg.LLM, cfg.Concurrency.SegmentWorkers, cfg.Cache)
	d := review.New(provider, opts).WithLimiter(s.limiter)
	if s.cache != nil {
		d = d.WithCache(s.cache)
	}
	return d, nil
}

// closeIndex releases backends that hold connections
func closeIndex(idx index.Index) {
	if c, ok := idx.(interface{ Close() }); ok {
		c.Close()
	}
}

// isLocal reports providers that run on this machine and have no API quota
func isLocal(provider string) bool {
	switch strings.ToLower(provider) {
	case "hashing", "ollama":
		return true
	}
	return false
}
