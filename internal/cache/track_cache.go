// Package cache memoizes ground tracks for a bounded time.
//
// Entries are keyed by catalog id, window and the catalog version they were
// computed from, so a reload never serves stale tracks. A background janitor
// drops expired entries; inserts beyond the capacity evict the oldest entry.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/star/orbitrisk/internal/metrics"
	"github.com/star/orbitrisk/internal/propagation"
)

// Config holds cache configuration.
type Config struct {
	TTL           time.Duration // entry lifetime (default: 5m)
	MaxEntries    int           // capacity (default: 1000)
	SweepInterval time.Duration // janitor period (default: TTL/5)
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = 1000
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = c.TTL / 5
	}
	return c
}

// Key identifies one ground track.
type Key struct {
	CatalogID       int
	Start           int64 // Unix seconds
	DurationMinutes int
	StepSeconds     int
	Version         uint64 // store version the track was computed from
}

// NewKey builds a key for a Propagate call.
func NewKey(catalogID int, start time.Time, durationMinutes, stepSeconds int, version uint64) Key {
	return Key{
		CatalogID:       catalogID,
		Start:           start.Unix(),
		DurationMinutes: durationMinutes,
		StepSeconds:     stepSeconds,
		Version:         version,
	}
}

// Entry wraps a cached track with its insertion time.
type Entry struct {
	Samples  []propagation.Sample
	StoredAt time.Time
}

// TrackCache is an in-memory TTL cache of ground tracks.
// Safe for concurrent use by multiple goroutines.
type TrackCache struct {
	mu      sync.RWMutex
	entries map[Key]*Entry

	config Config
	logger *zap.Logger
	now    func() time.Time

	// Counters (lock-free).
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewTrackCache creates a new ground track cache.
func NewTrackCache(config Config, logger *zap.Logger) *TrackCache {
	config = config.withDefaults()
	logger.Info("cache initialized",
		zap.Duration("ttl", config.TTL),
		zap.Int("max_entries", config.MaxEntries),
		zap.Duration("sweep_interval", config.SweepInterval),
	)

	return &TrackCache{
		entries: make(map[Key]*Entry),
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the cached track for key, or false when absent or expired.
func (c *TrackCache) Get(key Key) ([]propagation.Sample, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Sub(entry.StoredAt) < c.config.TTL {
		c.hits.Add(1)
		metrics.IncCacheHits()
		return entry.Samples, true
	}

	c.misses.Add(1)
	metrics.IncCacheMisses()
	return nil, false
}

// Put stores samples under key, evicting the oldest entry when full.
func (c *TrackCache) Put(key Key, samples []propagation.Sample) {
	now := c.now()

	c.mu.Lock()
	var evicted int
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.config.MaxEntries {
		evicted = c.evictExpiredLocked(now)
		if evicted == 0 {
			c.evictOldestLocked()
			evicted = 1
		}
	}
	c.entries[key] = &Entry{Samples: samples, StoredAt: now}
	count := len(c.entries)
	c.mu.Unlock()

	c.recordEvictions(evicted)
	metrics.SetCacheEntries(count)
}

// GetOrCompute returns the cached track for key or runs compute and caches
// its result. Errors are not cached.
func (c *TrackCache) GetOrCompute(key Key, compute func() ([]propagation.Sample, error)) ([]propagation.Sample, bool, error) {
	if samples, ok := c.Get(key); ok {
		return samples, true, nil
	}
	samples, err := compute()
	if err != nil {
		return nil, false, err
	}
	c.Put(key, samples)
	return samples, false, nil
}

// Len returns the number of stored entries, expired ones included.
func (c *TrackCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *TrackCache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[Key]*Entry)
	c.mu.Unlock()

	c.recordEvictions(n)
	metrics.SetCacheEntries(0)
}

// evictExpired removes entries older than the TTL.
func (c *TrackCache) evictExpired() int {
	c.mu.Lock()
	removed := c.evictExpiredLocked(c.now())
	count := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		c.recordEvictions(removed)
		metrics.SetCacheEntries(count)
		c.logger.Debug("cache eviction", zap.Int("entries_removed", removed))
	}
	return removed
}

// evictExpiredLocked requires mu held for writing.
func (c *TrackCache) evictExpiredLocked(now time.Time) int {
	var removed int
	for key, entry := range c.entries {
		if now.Sub(entry.StoredAt) >= c.config.TTL {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// evictOldestLocked requires mu held for writing.
func (c *TrackCache) evictOldestLocked() {
	var (
		oldestKey Key
		oldest    time.Time
		found     bool
	)
	for key, entry := range c.entries {
		if !found || entry.StoredAt.Before(oldest) {
			oldestKey, oldest, found = key, entry.StoredAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

func (c *TrackCache) recordEvictions(n int) {
	if n <= 0 {
		return
	}
	c.evictions.Add(int64(n))
	metrics.AddCacheEvictions(n)
}

// Stats returns current cache statistics.
func (c *TrackCache) Stats() Stats {
	c.mu.RLock()
	count := len(c.entries)
	var samples int
	for _, entry := range c.entries {
		samples += len(entry.Samples)
	}
	c.mu.RUnlock()

	return Stats{
		Entries:   count,
		Samples:   samples,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Stats holds cache statistics.
type Stats struct {
	Entries   int   `json:"entries"`
	Samples   int   `json:"samples"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}
