package cache

import (
	"context"
	"time"

	"github.com/sentinel/orbitgo/internal/metrics"
)

// catalogChanged checks if the catalog has been reseeded since the cache was
// last built.
func (c *FrameCache) catalogChanged() bool {
	cat := c.store.Get()
	if cat == nil {
		return false
	}
	return !cat.SeededAt.Equal(c.currentSeededAt)
}

// performCutover rebuilds the entire cache against the new catalog.
//
// Strategy:
//  1. Set grace period flag (old cache continues serving reads)
//  2. Build new entries map in the background
//  3. Atomic swap: replace old entries with new
//  4. Clear grace period flag
//
// During the rebuild, reads against the old cache continue uninterrupted.
func (c *FrameCache) performCutover(ctx context.Context) {
	cat := c.store.Get()
	if cat == nil {
		return
	}

	c.logger.Info("catalog cutover starting",
		"old_catalog_seeded_at", c.currentSeededAt.UTC().Format(time.RFC3339),
		"new_catalog_seeded_at", cat.SeededAt.UTC().Format(time.RFC3339),
	)

	c.inGracePeriod.Store(true)
	metrics.SetCacheGracePeriodActive(true)

	start := time.Now()
	now := c.RoundToStep(time.Now())
	numFrames := int(c.config.Horizon/c.config.Step) + 1

	newEntries := make(map[time.Time]*CacheEntry, numFrames)
	generated := 0

	for i := 0; i < numFrames; i++ {
		select {
		case <-ctx.Done():
			c.inGracePeriod.Store(false)
			metrics.SetCacheGracePeriodActive(false)
			c.logger.Warn("cutover cancelled by context")
			return
		default:
		}

		target := now.Add(time.Duration(i) * c.config.Step)
		frame, err := c.generateFrame(ctx, target)
		if err != nil {
			c.logger.Warn("cutover frame generation failed",
				"timestamp", target.UTC().Format(time.RFC3339),
				"error", err,
			)
			metrics.IncCacheRegenerationErrors()
			continue
		}

		key := c.RoundToStep(target)
		newEntries[key] = &CacheEntry{
			Frame:       frame,
			Timestamp:   key,
			GeneratedAt: time.Now(),
		}
		generated++
	}

	// Atomic swap.
	c.replaceAll(newEntries)
	c.currentSeededAt = cat.SeededAt

	c.inGracePeriod.Store(false)
	metrics.SetCacheGracePeriodActive(false)

	duration := time.Since(start)
	c.logger.Info("catalog cutover complete",
		"duration_ms", duration.Milliseconds(),
		"entries_replaced", generated,
	)
	metrics.ObserveCacheRegenerationDuration(duration)
}
