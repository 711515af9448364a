// Package cache implements a small thread-safe LRU keyed cache whose entries
// carry a revision stamp. A lookup only hits when the caller's revision
// matches the stored one, so a computed plan is never served after the
// underlying snapshot has changed.
package cache

import "sync"

type entry[K comparable, V any] struct {
	key      K
	val      V
	revision int64
	prev     *entry[K, V]
	next     *entry[K, V]
}

// Cache is a generic, thread-safe, revision-aware LRU cache.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*entry[K, V]
	head     *entry[K, V] // most recently used (sentinel)
	tail     *entry[K, V] // least recently used (sentinel)

	hits   uint64
	misses uint64
}

// New creates a cache with the given capacity. Panics if capacity < 1.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity < 1 {
		panic("cache: capacity must be >= 1")
	}
	head := &entry[K, V]{}
	tail := &entry[K, V]{}
	head.next = tail
	tail.prev = head
	return &Cache[K, V]{
		capacity: capacity,
		items:    make(map[K]*entry[K, V], capacity),
		head:     head,
		tail:     tail,
	}
}

// Get returns the cached value for key if its stored revision equals
// revision. A stale entry counts as a miss and is dropped.
func (c *Cache[K, V]) Get(key K, revision int64) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if e.revision != revision {
		c.unlink(e)
		delete(c.items, key)
		c.misses++
		return zero, false
	}

	c.unlink(e)
	c.pushFront(e)
	c.hits++
	return e.val, true
}

// Put stores val for key at the given revision, evicting the least recently
// used entry if the cache is full.
func (c *Cache[K, V]) Put(key K, revision int64, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.val = val
		e.revision = revision
		c.unlink(e)
		c.pushFront(e)
		return
	}

	if len(c.items) >= c.capacity {
		victim := c.tail.prev
		c.unlink(victim)
		delete(c.items, victim.key)
	}

	e := &entry[K, V]{key: key, val: val, revision: revision}
	c.items[key] = e
	c.pushFront(e)
}

// Invalidate drops the entry for key, if present.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.unlink(e)
		delete(c.items, key)
	}
}

// Len returns the number of live entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns cumulative hit and miss counts.
func (c *Cache[K, V]) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache[K, V]) unlink(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
}

func (c *Cache[K, V]) pushFront(e *entry[K, V]) {
	e.next = c.head.next
	e.prev = c.head
	c.head.next.prev = e
	c.head.next = e
}
