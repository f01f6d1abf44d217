package client

import (
	"sync"
	"time"
)

// Cache is a TTL keyed value cache shared by every resource built on the
// same client. Expired entries are not swept, only ignored on read.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached value while it is within its TTL.
func (c *Cache) Get(key string) (any, bool) {
	v, _, ok := c.GetWithTime(key)
	return v, ok
}

// GetWithTime is Get plus the time the entry was stored, so callers can
// age their own freshness windows from the write, not from the read.
func (c *Cache) GetWithTime(key string) (any, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}
	if time.Since(e.storedAt) >= e.ttl {
		return nil, time.Time{}, false
	}
	return e.value, e.storedAt, true
}

// Set overwrites the entry for key unconditionally.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, storedAt: time.Now(), ttl: ttl}
}
