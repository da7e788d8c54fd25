package cache

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lborres/bantay/core"
)

const defaultMaxSize = 500

// Memory is an LRU-bounded in-memory store with optional expiry
// and hit/miss counters.
type Memory[V any] struct {
	entries *lru.Cache[string, cachedRecord[V]]
	ttl     time.Duration
	maxSize int

	// counters
	hits      int64
	misses    int64
	sets      int64
	deletes   int64
	evictions int64
}

type cachedRecord[V any] struct {
	value    V
	cachedAt time.Time
}

// MemoryStore is the string store used under the local authority cache.
type MemoryStore = Memory[string]

// SessionCache caches verified sessions by token hash.
type SessionCache = Memory[*core.Session]

var (
	_ core.LocalStore     = (*MemoryStore)(nil)
	_ core.Cache          = (*SessionCache)(nil)
	_ core.StoreWithStats = (*MemoryStore)(nil)
)

// NewMemory creates a store holding at most c.MaxSize entries.
// A zero TTL keeps entries until they are evicted or deleted.
func NewMemory[V any](c core.CacheConfig) *Memory[V] {
	if c.MaxSize <= 0 {
		c.MaxSize = defaultMaxSize
	}

	// lru.New only fails for a non-positive size
	entries, _ := lru.New[string, cachedRecord[V]](c.MaxSize)

	return &Memory[V]{
		entries: entries,
		ttl:     c.TTL,
		maxSize: c.MaxSize,
	}
}

func NewMemoryStore(c core.CacheConfig) *MemoryStore {
	return NewMemory[string](c)
}

// NewSessionCache defaults to a five minute TTL.
func NewSessionCache(c core.CacheConfig) *SessionCache {
	if c.TTL == 0 {
		c.TTL = 5 * time.Minute
	}
	return NewMemory[*core.Session](c)
}

func (c *Memory[V]) Get(key string) (V, error) {
	var zero V

	record, exists := c.entries.Get(key)
	if !exists {
		atomic.AddInt64(&c.misses, 1)
		return zero, core.ErrCacheNotFound
	}

	if c.ttl > 0 && time.Since(record.cachedAt) > c.ttl {
		// expired
		atomic.AddInt64(&c.misses, 1)
		c.entries.Remove(key)
		return zero, core.ErrCacheNotFound
	}

	atomic.AddInt64(&c.hits, 1)
	return record.value, nil
}

func (c *Memory[V]) Set(key string, value V) error {
	evicted := c.entries.Add(key, cachedRecord[V]{
		value:    value,
		cachedAt: time.Now(),
	})
	if evicted {
		atomic.AddInt64(&c.evictions, 1)
	}

	atomic.AddInt64(&c.sets, 1)
	return nil
}

func (c *Memory[V]) Delete(key string) error {
	if c.entries.Remove(key) {
		atomic.AddInt64(&c.deletes, 1)
	}
	return nil
}

func (c *Memory[V]) Clear() error {
	c.entries.Purge()
	return nil
}

func (c *Memory[V]) Len() int {
	return c.entries.Len()
}

func (c *Memory[V]) Stats() core.CacheStats {
	return core.CacheStats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Sets:      atomic.LoadInt64(&c.sets),
		Deletes:   atomic.LoadInt64(&c.deletes),
		Evictions: atomic.LoadInt64(&c.evictions),
		Size:      c.Len(),
		TTL:       c.ttl,
	}
}
