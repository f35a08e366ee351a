package dashboard

import (
	"slices"
	"sync"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/telemetry"
)

// maxCacheEntries bounds the number of cached ranges.
const maxCacheEntries = 32

type cacheEntry struct {
	result       *telemetry.MergeResult
	fingerprints []telemetry.Fingerprint
	stored       time.Time
	expires      time.Time
}

// CacheStats counts cache lookups since the last reset.
type CacheStats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// Cache holds merged ranges keyed by range, validated by fingerprint.
// It is safe for concurrent use.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*cacheEntry
	hits    int
	misses  int
}

// NewCache returns a cache whose entries live for ttl. A ttl of zero
// disables caching.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{ttl: ttl, now: now, entries: make(map[string]*cacheEntry)}
}

// Get returns the cached result for key when it has not expired and was
// stored with the same fingerprints.
func (c *Cache) Get(key string, fps []telemetry.Fingerprint) (*telemetry.MergeResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	switch {
	case !ok:
	case !c.now().Before(e.expires):
		delete(c.entries, key)
		ok = false
	case !slices.EqualFunc(e.fingerprints, fps, sameFingerprint):
		delete(c.entries, key)
		ok = false
	}

	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return e.result, true
}

func sameFingerprint(a, b telemetry.Fingerprint) bool {
	return a.Exists == b.Exists && a.Size == b.Size && a.ModTime.Equal(b.ModTime)
}

// Put stores result under key.
func (c *Cache) Put(key string, fps []telemetry.Fingerprint, result *telemetry.MergeResult) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) >= maxCacheEntries {
		c.evictOldest()
	}

	c.entries[key] = &cacheEntry{
		result:       result,
		fingerprints: slices.Clone(fps),
		stored:       now,
		expires:      now.Add(c.ttl),
	}
}

func (c *Cache) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range c.entries {
		if oldestKey == "" || e.stored.Before(oldest) {
			oldestKey, oldest = k, e.stored
		}
	}
	delete(c.entries, oldestKey)
}

// Invalidate drops every entry and returns how many were dropped.
func (c *Cache) Invalidate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]*cacheEntry)
	return n
}

// Stats returns current counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}
