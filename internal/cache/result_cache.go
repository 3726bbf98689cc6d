// Package cache provides the in-memory result cache for probe invocations.
// The cache is purely an optimization: removing it changes cost, never
// correctness. It performs no I/O.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/modelaudit/modelaudit/pkg/probe"
)

// Config holds result cache configuration
type Config struct {
	// MaxEntries bounds the cache size; least-recently-used entries are
	// evicted first, before TTL expiry is even consulted
	MaxEntries int
	// DefaultTTL applies when Put is called with a zero TTL
	DefaultTTL time.Duration
}

// DefaultConfig returns default cache configuration
func DefaultConfig() Config {
	return Config{
		MaxEntries: 1024,
		DefaultTTL: 1 * time.Hour,
	}
}

// entry is a single cached probe result
type entry struct {
	key       string
	result    *probe.ProbeResult
	createdAt time.Time
	ttl       time.Duration
}

func (e *entry) expired(now time.Time) bool {
	return !now.Before(e.createdAt.Add(e.ttl))
}

// ResultCache is a TTL-bounded, size-bounded cache keyed by invocation
// fingerprint. Results are stored and returned by value so callers can never
// mutate a cached entry.
type ResultCache struct {
	maxEntries int
	defaultTTL time.Duration

	mutex    sync.Mutex
	byAccess *list.List
	byKey    map[string]*list.Element

	hits      int64
	misses    int64
	evictions int64
}

// NewResultCache creates a new result cache
func NewResultCache(config Config) *ResultCache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = 1024
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 1 * time.Hour
	}

	return &ResultCache{
		maxEntries: config.MaxEntries,
		defaultTTL: config.DefaultTTL,
		byAccess:   list.New(),
		byKey:      make(map[string]*list.Element),
	}
}

// Get returns a copy of the cached result for the fingerprint key, if present
// and not expired. Expired entries are removed on access.
func (c *ResultCache) Get(key string) (*probe.ProbeResult, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	elem, ok := c.byKey[key]
	if !ok {
		c.misses++
		return nil, false
	}

	ent := elem.Value.(*entry)
	if ent.expired(time.Now()) {
		c.removeElement(elem)
		c.misses++
		return nil, false
	}

	c.byAccess.MoveToFront(elem)
	c.hits++
	return ent.result.Clone(), true
}

// Put stores a result by value under the fingerprint key. When the cache is
// full the least-recently-used entry is evicted to make room.
func (c *ResultCache) Put(key string, result *probe.ProbeResult, ttl time.Duration) {
	if result == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if elem, ok := c.byKey[key]; ok {
		ent := elem.Value.(*entry)
		ent.result = result.Clone()
		ent.createdAt = time.Now()
		ent.ttl = ttl
		c.byAccess.MoveToFront(elem)
		return
	}

	for len(c.byKey) >= c.maxEntries {
		oldest := c.byAccess.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
		c.evictions++
	}

	elem := c.byAccess.PushFront(&entry{
		key:       key,
		result:    result.Clone(),
		createdAt: time.Now(),
		ttl:       ttl,
	})
	c.byKey[key] = elem
}

// EvictExpired removes every expired entry. Calling it twice with no
// intervening Put leaves the cache unchanged the second time.
func (c *ResultCache) EvictExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	removed := 0

	for elem := c.byAccess.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*entry).expired(now) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}

	return removed
}

// Len returns the current number of entries, expired or not
func (c *ResultCache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return len(c.byKey)
}

// Stats returns cache effectiveness counters
func (c *ResultCache) Stats() probe.CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stats := probe.CacheStats{
		Entries:   len(c.byKey),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}

	return stats
}

// removeElement drops an entry. Callers must hold the mutex.
func (c *ResultCache) removeElement(elem *list.Element) {
	c.byAccess.Remove(elem)
	delete(c.byKey, elem.Value.(*entry).key)
}
