// Package cache stores embedding vectors and model completions so repeated
// reviews of the same text do not pay for the same remote call twice.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"time"

	"github.com/ppiankov/corpagent/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from a namespace (e.g. "embed", "complete") and the
// parts that identify the cached value, typically provider, model and input text.
func Key(namespace string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return "corpagent:v1:" + namespace + ":" + hex.EncodeToString(h.Sum(nil))
}

// FromConfig builds the cache described by cfg. A disabled cache returns nil;
// callers treat a nil Cache as "no caching".
func FromConfig(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	ttl := time.Duration(cfg.TTLMinutes) * time.Minute
	if cfg.Dir == "" {
		return NewMemoryCache(ttl, 10*time.Minute)
	}
	return NewLayeredCache(ttl, filepath.Clean(cfg.Dir), ttl)
}
