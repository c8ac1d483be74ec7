// Package cache is the process-local read-through cache of theme records
// kept by the server. Entries expire lazily: an expired entry is dropped
// when it is next looked up and there is no background sweeper.
package cache

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/usertheme/internal/server/metrics"
	"github.com/dmitrijs2005/usertheme/internal/server/models"
)

type entry struct {
	record    models.Record
	expiresAt time.Time
}

// Cache maps (userID, version) to a record with CSS.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache. A non-positive ttl falls back to one hour.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func key(userID, version string) string {
	return userID + "\x00" + version
}

// Get returns a copy of the cached record. An entry at or past its expiry
// is removed and reported as a miss.
func (c *Cache) Get(userID, version string) (*models.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(userID, version)
	e, ok := c.entries[k]
	if !ok {
		metrics.CacheEvents.WithLabelValues(metrics.CacheMiss).Inc()
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, k)
		metrics.CacheEvents.WithLabelValues(metrics.CacheExpired).Inc()
		return nil, false
	}

	metrics.CacheEvents.WithLabelValues(metrics.CacheHit).Inc()
	rec := e.record
	return &rec, true
}

// Set stores rec under (rec.UserID, rec.Version) with a fresh TTL.
func (c *Cache) Set(rec *models.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries == nil {
		return
	}
	c.entries[key(rec.UserID, rec.Version)] = entry{record: *rec, expiresAt: c.now().Add(c.ttl)}
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close drops every entry. A closed cache ignores Set and misses on Get.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}
