// Package cache memoizes valuation results. The valuation functions are pure,
// so a result keyed by the hash of its canonical request stays valid until
// the tuning changes; the TTL bounds how long a retuned deployment serves
// stale entries.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const memorySweepInterval = time.Minute

// Cache stores opaque byte values under string keys
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type memory struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time

	sweepEvery time.Duration
	lastSweep  time.Time
}

type entry struct {
	b   []byte
	exp time.Time
}

// NewMemory returns an in-process cache
func NewMemory() Cache {
	return &memory{m: make(map[string]entry), now: time.Now, sweepEvery: memorySweepInterval}
}

func (c *memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && c.now().After(e.exp) {
		delete(c.m, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.b...), true, nil
}

func (c *memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if now.Sub(c.lastSweep) >= c.sweepEvery {
		c.sweep(now)
	}

	e := entry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = now.Add(ttl)
	}
	c.m[key] = e
	return nil
}

// sweep drops expired entries; callers hold mu
func (c *memory) sweep(now time.Time) {
	for k, e := range c.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(c.m, k)
		}
	}
	c.lastSweep = now
}

// Key hashes the JSON encoding of req under kind. Struct fields encode in
// declaration order and map keys sorted, so equal requests share a key.
func Key(kind string, req interface{}) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("cache key %s: %w", kind, err)
	}
	sum := sha256.Sum256(b)
	return kind + ":" + hex.EncodeToString(sum[:]), nil
}

// Observer is told about hits and misses
type Observer interface {
	RecordCacheHit(kind string)
	RecordCacheMiss(kind string)
}

// Memo wraps a Cache with JSON encoding and hit accounting
type Memo struct {
	cache    Cache
	ttl      time.Duration
	observer Observer
}

// NewMemo creates a memo; observer may be nil
func NewMemo(c Cache, ttl time.Duration, observer Observer) *Memo {
	return &Memo{cache: c, ttl: ttl, observer: observer}
}

// Do decodes the cached result of req into out, or runs compute, stores its
// result and decodes it into out. Cache failures never fail the call.
func (m *Memo) Do(ctx context.Context, kind string, req, out interface{}, compute func() (interface{}, error)) (bool, error) {
	key, err := Key(kind, req)
	if err != nil {
		return false, err
	}

	b, ok, err := m.cache.Get(ctx, key)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("kind", kind).Msg("Cache read failed")
	case ok:
		if err := json.Unmarshal(b, out); err == nil {
			m.hit(kind)
			return true, nil
		}
		log.Warn().Str("kind", kind).Str("key", key).Msg("Discarding undecodable cache entry")
	}
	m.miss(kind)

	v, err := compute()
	if err != nil {
		return false, err
	}
	b, err = json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("encode %s result: %w", kind, err)
	}
	if err := m.cache.Set(ctx, key, b, m.ttl); err != nil {
		log.Warn().Err(err).Str("kind", kind).Str("key", key).Msg("Cache write failed")
	}

	return false, json.Unmarshal(b, out)
}

func (m *Memo) hit(kind string) {
	if m.observer != nil {
		m.observer.RecordCacheHit(kind)
	}
}

func (m *Memo) miss(kind string) {
	if m.observer != nil {
		m.observer.RecordCacheMiss(kind)
	}
}
