package cache

import (
	"sync"
	"time"
)

// DimensionCache remembers which dimension rows (genres, people,
// companies, language and country codes) have already been ensured, so
// repeated reconciliations skip redundant conflict-ignore inserts. It
// is caller-owned: construct one per reconciler, not per process.
// Entries expire after TTL; a zero TTL disables caching entirely.
type DimensionCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]time.Time
	now     func() time.Time
}

func NewDimensionCache(ttl time.Duration) *DimensionCache {
	return &DimensionCache{
		ttl:     ttl,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Seen reports whether the key was marked and has not expired.
func (c *DimensionCache) Seen(key string) bool {
	if c == nil || c.ttl == 0 {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	at, ok := c.entries[key]
	if !ok {
		return false
	}
	return c.now().Sub(at) <= c.ttl
}

// Mark records that the key's dimension row exists.
func (c *DimensionCache) Mark(key string) {
	if c == nil || c.ttl == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = c.now()
}

// Invalidate drops one key, forcing the next Seen to miss.
func (c *DimensionCache) Invalidate(key string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Reset drops everything.
func (c *DimensionCache) Reset() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]time.Time)
}
