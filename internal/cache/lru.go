// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package cache

import (
	"sync"
	"time"

	"github.com/tomtom215/chest/internal/metrics"
)

// entry is a node of the recency list.
type entry[K comparable, V any] struct {
	key       K
	value     V
	prev      *entry[K, V]
	next      *entry[K, V]
	expiresAt time.Time // zero = never
}

// LRU is a thread-safe Least Recently Used cache with optional TTL.
//
// Key features:
//   - O(1) Get, Add, Contains, Remove operations
//   - O(1) LRU eviction when capacity is reached
//   - TTL support with lazy expiration (ttl <= 0 disables expiry)
//   - Hit, miss and eviction counters exported under the cache name
//
// This implementation uses a doubly-linked list for ordering and a hashmap for lookups.
type LRU[K comparable, V any] struct {
	mu sync.Mutex

	name     string
	capacity int
	ttl      time.Duration
	now      func() time.Time

	items map[K]*entry[K, V]

	// head.next is the most recently used, tail.prev is the least recently used
	head *entry[K, V]
	tail *entry[K, V]

	hits      int64
	misses    int64
	evictions int64
}

// Option configures an LRU.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, for tests that exercise expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates an LRU holding at most capacity entries. name labels the
// cache metrics.
func New[K comparable, V any](name string, capacity int, ttl time.Duration, opts ...Option) *LRU[K, V] {
	if capacity <= 0 {
		capacity = 10000 // Default capacity
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	c := &LRU[K, V]{
		name:     name,
		capacity: capacity,
		ttl:      ttl,
		now:      o.now,
		items:    make(map[K]*entry[K, V], min(capacity, 1024)),
		head:     &entry[K, V]{},
		tail:     &entry[K, V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get retrieves a value. Found entries are moved to the front.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.live(key); ok {
		c.moveToFront(e)
		c.hit()
		return e.value, true
	}
	c.miss()
	var zero V
	return zero, false
}

// Contains checks if a live key exists without updating access order.
func (c *LRU[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.live(key)
	return ok
}

// Add adds or updates an entry and restarts its TTL.
func (c *LRU[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = c.expiry()
		c.moveToFront(e)
		return
	}
	c.insert(key, value)
}

// Remove removes an entry from the cache.
// Returns true if the entry was found and removed.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.removeEntry(e)
		return true
	}
	return false
}

// Len returns the current number of entries, expired ones included until
// they are touched or cleaned up.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanupExpired removes all expired entries from the cache.
// Returns the number of entries removed.
func (c *LRU[K, V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for e := c.tail.prev; e != c.head; {
		prev := e.prev
		if c.expired(e, now) {
			c.removeEntry(e)
			removed++
		}
		e = prev
	}
	return removed
}

// Stats returns cache hit/miss/eviction statistics.
func (c *LRU[K, V]) Stats() (hits, misses, evictions int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.evictions, len(c.items)
}

// Internal methods (must be called with lock held)

// live returns the entry for key, dropping it if it has expired.
func (c *LRU[K, V]) live(key K) (*entry[K, V], bool) {
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if c.expired(e, c.now()) {
		c.removeEntry(e)
		return nil, false
	}
	return e, true
}

func (c *LRU[K, V]) insert(key K, value V) {
	e := &entry[K, V]{key: key, value: value, expiresAt: c.expiry()}
	c.addToFront(e)
	c.items[key] = e

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

func (c *LRU[K, V]) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

func (c *LRU[K, V]) expired(e *entry[K, V], now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func (c *LRU[K, V]) addToFront(e *entry[K, V]) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRU[K, V]) moveToFront(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.addToFront(e)
}

func (c *LRU[K, V]) removeEntry(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
}

func (c *LRU[K, V]) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
	c.evictions++
	metrics.CacheEvictions.WithLabelValues(c.name).Inc()
}

func (c *LRU[K, V]) hit() {
	c.hits++
	metrics.CacheHits.WithLabelValues(c.name).Inc()
}

func (c *LRU[K, V]) miss() {
	c.misses++
	metrics.CacheMisses.WithLabelValues(c.name).Inc()
}
