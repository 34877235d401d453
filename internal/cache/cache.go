// Package cache keeps fetched HTTP payloads so repeated collaborator runs
// do not hit SEC or Wikipedia again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/ppiankov/finsent/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from a URL and optional qualifiers (e.g. the User-Agent)
func Key(url string, qualifiers ...string) string {
	h := sha256.New()
	h.Write([]byte(url))
	if len(qualifiers) > 0 {
		h.Write([]byte{0})
		h.Write([]byte(strings.Join(qualifiers, "\x00")))
	}
	return "finsent:v1:" + hex.EncodeToString(h.Sum(nil))
}

// New builds the cache described by cfg; a disabled cache stores nothing
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Nop{}
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}

// Nop is a cache that never hits
type Nop struct{}

func (Nop) Get(string) ([]byte, bool)               { return nil, false }
func (Nop) Set(string, []byte, time.Duration) error { return nil }
func (Nop) Delete(string) error                     { return nil }
func (Nop) Clear() error                            { return nil }
