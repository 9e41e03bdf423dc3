package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// LRUCache is a bounded in-memory cache with least-recently-used eviction.
//
// When an insert would exceed the configured capacity, the entry that was
// least recently accessed (by Get or Set) is dropped. Entries are never
// invalidated by time unless a TTL is supplied; callers needing freshness
// on a TTL-less cache must bypass via a different key.
//
// LRUCache is safe for concurrent use.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	entries  map[string]*list.Element
}

type lruEntry struct {
	key       string
	data      []byte
	expiresAt time.Time // zero = never expires
}

// NewLRUCache creates an LRU cache holding at most capacity entries.
// A capacity below 1 is treated as 1.
func NewLRUCache(capacity int) *LRUCache {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get retrieves a value and marks it as most recently used.
func (c *LRUCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}

	entry := el.Value.(*lruEntry)
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.entries, key)
		return nil, false, nil
	}

	c.order.MoveToFront(el)
	return entry.data, true, nil
}

// Set stores a value, marks it most recently used, and evicts the least
// recently used entry if the capacity is exceeded.
func (c *LRUCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*lruEntry)
		entry.data = data
		entry.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return nil
	}

	c.entries[key] = c.order.PushFront(&lruEntry{key: key, data: data, expiresAt: expiresAt})

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*lruEntry).key)
		}
	}
	return nil
}

// Delete removes a value.
func (c *LRUCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
	return nil
}

// Len returns the number of live entries.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Close clears the cache.
func (c *LRUCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element)
	return nil
}

// Ensure LRUCache implements Cache.
var _ Cache = (*LRUCache)(nil)
