// Package cache keeps compiled queries and aggregation pipelines so that
// repeated criteria are parsed against the operator registry only once.
package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// Entry is a cached value
type Entry struct {
	Key       string
	Value     interface{}
	ExpiresAt time.Time
	element   *list.Element
}

// LRU is a thread-safe LRU cache with TTL support. A zero TTL keeps
// entries until they are evicted.
type LRU struct {
	mu        sync.Mutex
	capacity  int
	ttl       time.Duration
	items     map[string]*Entry
	order     *list.List
	hits      uint64
	misses    uint64
	evictions uint64
}

// NewLRU creates a cache holding at most capacity entries
func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*Entry),
		order:    list.New(),
	}
}

func (c *LRU) expired(e *Entry, now time.Time) bool {
	return c.ttl > 0 && now.After(e.ExpiresAt)
}

// Get retrieves a value from the cache
func (c *LRU) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.expired(entry, time.Now()) {
		c.remove(entry)
		c.misses++
		return nil, false
	}

	c.order.MoveToFront(entry.element)
	c.hits++
	return entry.Value, true
}

// Put adds or replaces a value
func (c *LRU) Put(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := time.Now().Add(c.ttl)
	if entry, ok := c.items[key]; ok {
		entry.Value = value
		entry.ExpiresAt = expires
		c.order.MoveToFront(entry.element)
		return
	}

	entry := &Entry{Key: key, Value: value, ExpiresAt: expires}
	entry.element = c.order.PushFront(entry)
	c.items[key] = entry

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.remove(oldest.Value.(*Entry))
		c.evictions++
	}
}

func (c *LRU) remove(e *Entry) {
	c.order.Remove(e.element)
	delete(c.items, e.Key)
}

// Clear removes all entries
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*Entry)
	c.order = list.New()
}

// Size returns the number of entries
func (c *LRU) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanupExpired removes expired entries and returns how many were removed
func (c *LRU) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for _, entry := range c.items {
		if c.expired(entry, now) {
			c.remove(entry)
			removed++
		}
	}
	return removed
}

// Stats returns cache statistics
func (c *LRU) Stats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}
	return map[string]interface{}{
		"capacity":    c.capacity,
		"size":        len(c.items),
		"hits":        c.hits,
		"misses":      c.misses,
		"evictions":   c.evictions,
		"hit_rate":    fmt.Sprintf("%.2f%%", hitRate),
		"ttl_seconds": c.ttl.Seconds(),
	}
}
