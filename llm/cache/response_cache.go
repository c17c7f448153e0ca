package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Entry 缓存条目
type Entry struct {
	Value     string    `json:"value"`
	Tokens    int       `json:"tokens"`
	Timestamp time.Time `json:"timestamp"`
}

// Expired reports whether the entry is past its TTL.
func (e *Entry) Expired(ttl time.Duration) bool {
	return time.Since(e.Timestamp) > ttl
}

// Stats 缓存运行统计。Hits/Misses 在进程生命周期内单调递增。
type Stats struct {
	Size    int     `json:"size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// ResponseCache caches deterministic sampler outputs. Only temperature-zero
// requests participate: a randomized response must never be replayed, so both
// Get and Put are no-ops when temperature > 0.
//
// Eviction is deliberately coarse: when the map is full, expired entries are
// dropped first; if that is not enough, the oldest half by timestamp goes in
// one pass. An optional Redis tier can be attached with WithRedis; it is
// write-through and best-effort, the local tier alone satisfies the engine.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]*Entry

	maxSize int
	ttl     time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	remote *redisTier
	logger *zap.Logger
}

// Option configures the cache.
type Option func(*ResponseCache)

// New creates a ResponseCache with the given capacity and TTL.
func New(maxSize int, ttl time.Duration, logger *zap.Logger, opts ...Option) *ResponseCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &ResponseCache{
		entries: make(map[string]*Entry),
		maxSize: maxSize,
		ttl:     ttl,
		logger:  logger.With(zap.String("component", "response_cache")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// makeKey derives the cache key from the request identity. Empty means
// "not cacheable": temperature above zero yields non-deterministic output.
func makeKey(model, system, prompt string, temperature float32) string {
	if temperature > 0 {
		return ""
	}
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(system))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	sum := h.Sum(nil)
	return "vote:cache:" + hex.EncodeToString(sum[:16])
}

// Get looks up a deterministic response. A transient miss under concurrent
// mutation is acceptable; a stale or expired value is not.
func (c *ResponseCache) Get(ctx context.Context, model, system, prompt string, temperature float32) (*Entry, bool) {
	key := makeKey(model, system, prompt, temperature)
	if key == "" {
		return nil, false
	}

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && !entry.Expired(c.ttl) {
		c.mu.Unlock()
		c.hits.Add(1)
		return entry, true
	}
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if c.remote != nil {
		if entry, ok := c.remote.get(ctx, key); ok {
			c.store(key, entry)
			c.hits.Add(1)
			return entry, true
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Put stores a deterministic response. Entries are only ever populated from a
// fully successful, validated sample; the caller enforces that.
func (c *ResponseCache) Put(ctx context.Context, model, system, prompt string, temperature float32, value string, tokens int) {
	key := makeKey(model, system, prompt, temperature)
	if key == "" {
		return
	}

	entry := &Entry{Value: value, Tokens: tokens, Timestamp: time.Now()}
	c.store(key, entry)

	if c.remote != nil {
		c.remote.put(ctx, key, entry)
	}
}

func (c *ResponseCache) store(key string, entry *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLocked()
	}
	c.entries[key] = entry
}

// evictLocked removes expired entries, then the oldest half by timestamp if
// the cache is still full. Bulk eviction keeps the hot path to one pass
// under sustained load.
func (c *ResponseCache) evictLocked() {
	for k, e := range c.entries {
		if e.Expired(c.ttl) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}

	type aged struct {
		key string
		ts  time.Time
	}
	byAge := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		byAge = append(byAge, aged{key: k, ts: e.Timestamp})
	}
	sort.Slice(byAge, func(i, j int) bool { return byAge[i].ts.Before(byAge[j].ts) })

	evicted := len(byAge) / 2
	for _, a := range byAge[:evicted] {
		delete(c.entries, a.key)
	}
	c.logger.Debug("bulk eviction", zap.Int("evicted", evicted), zap.Int("remaining", len(c.entries)))
}

// Len returns the current number of local entries.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of cumulative hit/miss counters.
func (c *ResponseCache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	s := Stats{
		Size:   c.Len(),
		Hits:   hits,
		Misses: misses,
	}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

// Clear drops all local entries. Counters are preserved.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
}
