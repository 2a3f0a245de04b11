package embed

import (
	"context"
	"encoding/binary"
	"math"
	"strconv"

	"github.com/ppiankov/corpagent/internal/cache"
	"github.com/ppiankov/corpagent/internal/logger"
)

// Waiter blocks until a call under key may proceed (see worker.Limiter)
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// Cached decorates an Embedder with a vector cache and an optional rate limiter.
// Cache hits skip the limiter.
type Cached struct {
	inner   Embedder
	cache   cache.Cache
	limiter Waiter
}

// NewCached wraps inner. A nil cache or limiter disables that layer.
func NewCached(inner Embedder, c cache.Cache, limiter Waiter) *Cached {
	return &Cached{inner: inner, cache: c, limiter: limiter}
}

// Name returns the wrapped embedder's name
func (c *Cached) Name() string { return c.inner.Name() }

// Dimension returns the wrapped embedder's dimension
func (c *Cached) Dimension() int { return c.inner.Dimension() }

// Embed returns a cached vector or computes and stores one
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.Key("embed", c.inner.Name(), strconv.Itoa(c.inner.Dimension()), text)

	if c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			if vec, ok := decodeVector(raw, c.inner.Dimension()); ok {
				return vec, nil
			}
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.inner.Name()); err != nil {
			return nil, err
		}
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(key, encodeVector(vec), 0); err != nil {
			logger.Debug("embedding cache write failed: %v", err)
		}
	}
	return vec, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte, dim int) ([]float32, bool) {
	if len(buf) != 4*dim {
		return nil, false
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, true
}
