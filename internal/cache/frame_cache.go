// Package cache provides an in-memory frame cache with a rolling window.
//
// The cache maintains detection frames (object positions plus screened
// conjunctions) for [now, now+horizon] continuously. A background worker
// generates new frames at the leading edge and evicts expired entries from
// the trailing edge. When the catalog is reseeded, the cache is rebuilt
// gracefully without interrupting reads.
//
// Wall time maps onto simulation time through the catalog epoch: the frame
// cached at wall timestamp T is the detection result at sim time
// T - catalog.SeededAt.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/sentinel/orbitgo/internal/catalog"
	"github.com/sentinel/orbitgo/internal/conjunction"
	"github.com/sentinel/orbitgo/internal/metrics"
)

// FrameSource produces a detection frame for a simulation time.
// *conjunction.Detector is the production implementation.
type FrameSource interface {
	Frame(ctx context.Context, t float64) (*conjunction.Frame, error)
}

// Config holds cache configuration loaded from environment variables.
type Config struct {
	Step        time.Duration // frame interval (default: 5s)
	Horizon     time.Duration // how far ahead to cache (default: 600s)
	GracePeriod time.Duration // catalog cutover grace period (default: 30s)
	Buffer      time.Duration // keep entries this long past expiration (default: 60s)
}

// CacheEntry wraps a frame with generation metadata.
type CacheEntry struct {
	Frame       *conjunction.Frame
	Timestamp   time.Time
	GeneratedAt time.Time
}

// FrameCache is an in-memory cache of detection frames with a rolling
// window. Safe for concurrent use by multiple goroutines.
type FrameCache struct {
	mu      sync.RWMutex
	entries map[time.Time]*CacheEntry

	config Config
	source FrameSource
	store  *catalog.Store
	logger *slog.Logger

	// Track the current catalog generation for change detection.
	currentSeededAt time.Time

	// Counters (lock-free).
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	// Cutover state.
	inGracePeriod atomic.Bool
}

// NewFrameCache creates a new frame cache.
func NewFrameCache(config Config, source FrameSource, store *catalog.Store, logger *slog.Logger) *FrameCache {
	logger.Info("cache initialized",
		"step_seconds", config.Step.Seconds(),
		"horizon_seconds", config.Horizon.Seconds(),
		"buffer_seconds", config.Buffer.Seconds(),
		"grace_period_seconds", config.GracePeriod.Seconds(),
	)

	return &FrameCache{
		entries: make(map[time.Time]*CacheEntry),
		config:  config,
		source:  source,
		store:   store,
		logger:  logger,
	}
}

// RoundToStep rounds a timestamp down to the nearest step boundary.
// This normalizes timestamps so cache lookups hit consistently.
func (c *FrameCache) RoundToStep(t time.Time) time.Time {
	return t.UTC().Truncate(c.config.Step)
}

// Get returns the frame for the given timestamp, or nil if not cached.
// The timestamp is rounded to the step boundary.
func (c *FrameCache) Get(t time.Time) *conjunction.Frame {
	key := c.RoundToStep(t)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
		metrics.IncCacheHits()
		return entry.Frame
	}

	c.misses.Add(1)
	metrics.IncCacheMisses()
	return nil
}

// GetRecent returns up to count frames before (and including) time t,
// ordered oldest-first. Used to build orbital trails.
func (c *FrameCache) GetRecent(t time.Time, count int) []*conjunction.Frame {
	if count <= 0 {
		return nil
	}

	key := c.RoundToStep(t)

	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*conjunction.Frame, 0, count)
	for i := count - 1; i >= 0; i-- {
		ts := key.Add(-time.Duration(i) * c.config.Step)
		if entry, ok := c.entries[ts]; ok {
			result = append(result, entry.Frame)
		}
	}
	return result
}

// GetLatest returns the frame closest to (but not after) the current time.
func (c *FrameCache) GetLatest() *conjunction.Frame {
	now := c.RoundToStep(time.Now())

	c.mu.RLock()
	defer c.mu.RUnlock()

	// Walk backwards from now to find the most recent entry.
	for i := 0; i < 10; i++ {
		key := now.Add(-time.Duration(i) * c.config.Step)
		if entry, ok := c.entries[key]; ok {
			c.hits.Add(1)
			metrics.IncCacheHits()
			return entry.Frame
		}
	}

	c.misses.Add(1)
	metrics.IncCacheMisses()
	return nil
}

// put stores a frame in the cache. Caller must not hold mu.
func (c *FrameCache) put(ts time.Time, frame *conjunction.Frame) {
	key := c.RoundToStep(ts)
	entry := &CacheEntry{
		Frame:       frame,
		Timestamp:   key,
		GeneratedAt: time.Now(),
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	c.updateMetrics()
}

// evictExpired removes entries older than now - buffer.
func (c *FrameCache) evictExpired() int {
	cutoff := time.Now().Add(-c.config.Buffer)
	var removed int

	c.mu.Lock()
	for ts := range c.entries {
		if ts.Before(cutoff) {
			delete(c.entries, ts)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.AddCacheEvictions(removed)
		c.updateMetrics()
		c.logger.Debug("cache eviction", "entries_removed", removed)
	}

	return removed
}

// replaceAll atomically replaces all cache entries (used during cutover).
func (c *FrameCache) replaceAll(newEntries map[time.Time]*CacheEntry) {
	c.mu.Lock()
	c.entries = newEntries
	c.mu.Unlock()
	c.updateMetrics()
}

// Stats returns current cache statistics.
func (c *FrameCache) Stats() CacheStats {
	c.mu.RLock()
	count := len(c.entries)

	var oldest, newest time.Time
	for ts := range c.entries {
		if oldest.IsZero() || ts.Before(oldest) {
			oldest = ts
		}
		if newest.IsZero() || ts.After(newest) {
			newest = ts
		}
	}
	c.mu.RUnlock()

	return CacheStats{
		Entries:         count,
		SizeBytes:       c.estimateSizeBytes(),
		OldestTimestamp: oldest,
		NewestTimestamp: newest,
		Hits:            c.hits.Load(),
		Misses:          c.misses.Load(),
		Evictions:       c.evictions.Load(),
		InGracePeriod:   c.inGracePeriod.Load(),
	}
}

// CacheStats holds cache statistics for the stats endpoint.
type CacheStats struct {
	Entries         int       `json:"entries"`
	SizeBytes       int64     `json:"size_bytes"`
	OldestTimestamp time.Time `json:"oldest_timestamp"`
	NewestTimestamp time.Time `json:"newest_timestamp"`
	Hits            int64     `json:"hits"`
	Misses          int64     `json:"misses"`
	Evictions       int64     `json:"evictions"`
	InGracePeriod   bool      `json:"in_grace_period"`
}

// estimateSizeBytes returns a rough estimate of the cache memory footprint.
func (c *FrameCache) estimateSizeBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total int64
	for _, entry := range c.entries {
		if entry.Frame == nil {
			continue
		}
		posSize := int64(len(entry.Frame.Positions)) * int64(unsafe.Sizeof(conjunction.ObjectPosition{}))
		conjSize := int64(len(entry.Frame.Conjunctions)) * int64(unsafe.Sizeof(conjunction.Conjunction{}))
		// Frame header plus entry overhead (two timestamps and a pointer).
		total += posSize + conjSize + 64 + 56
	}

	// Map overhead (rough: 8 bytes per bucket).
	total += int64(len(c.entries)) * 8

	return total
}

// updateMetrics publishes current cache size to Prometheus.
func (c *FrameCache) updateMetrics() {
	c.mu.RLock()
	count := len(c.entries)
	c.mu.RUnlock()

	metrics.SetCacheEntries(count)
	metrics.SetCacheSizeBytes(c.estimateSizeBytes())
}
