// Package cache provides a process-wide, thread-safe TTL cache keyed by
// normalized absolute URL, used for the HLS engine's raw-segment and key
// caches (§5 "Shared resources": concurrent maps with TTL eviction).
package cache

import (
	"sync"
	"time"
)

// Metadata describes a cached entry alongside its value: size in bytes,
// when it was inserted, and when it expires.
type Metadata struct {
	SizeBytes  int
	InsertedAt time.Time
	ExpiresAt  time.Time
}

// entry pairs a cached value with its metadata.
type entry struct {
	value    []byte
	metadata Metadata
}

// TTLCache is a concurrent map[string][]byte with per-entry TTL eviction.
// Zero value is not usable; construct with New.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// New creates an empty TTLCache.
func New() *TTLCache {
	return &TTLCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached value for key and its metadata, if present and
// not expired. An expired entry is treated as absent but left in the map
// for Sweep to reclaim, so Get stays lock-cheap.
func (c *TTLCache) Get(key string) ([]byte, Metadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, Metadata{}, false
	}
	if c.now().After(e.metadata.ExpiresAt) {
		return nil, Metadata{}, false
	}
	return e.value, e.metadata, true
}

// Set stores value under key with the given TTL, overwriting any existing
// entry for key.
func (c *TTLCache) Set(key string, value []byte, ttl time.Duration) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{
		value: value,
		metadata: Metadata{
			SizeBytes:  len(value),
			InsertedAt: now,
			ExpiresAt:  now.Add(ttl),
		},
	}
}

// Delete removes key from the cache, if present.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of entries currently stored, including expired
// ones not yet swept.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes all expired entries and returns how many were removed.
func (c *TTLCache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if now.After(e.metadata.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
