package cache

import (
	"context"
	"time"

	"github.com/sentinel/orbitgo/internal/conjunction"
	"github.com/sentinel/orbitgo/internal/metrics"
)

// Start begins the background cache maintenance loop. It performs an initial
// warmup (filling the full [now, now+horizon] window), then continuously:
//   - Generates new frames at the leading edge
//   - Evicts expired entries from the trailing edge
//   - Detects catalog reseeds and triggers cutover
//
// Blocks until ctx is cancelled.
func (c *FrameCache) Start(ctx context.Context) {
	// Wait for a catalog to be available before warmup.
	if !c.waitForCatalog(ctx) {
		return
	}

	c.warmup(ctx)

	ticker := time.NewTicker(c.config.Step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cache generator stopped")
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// waitForCatalog blocks until a catalog is available in the store, checking
// every second. Returns false if ctx is cancelled.
func (c *FrameCache) waitForCatalog(ctx context.Context) bool {
	if c.store.Get() != nil {
		return true
	}

	c.logger.Info("cache waiting for catalog...")
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if c.store.Get() != nil {
				c.logger.Info("catalog available, starting cache warmup")
				return true
			}
		}
	}
}

// generateFrame computes the detection frame for the wall timestamp ts,
// translating it to simulation time against the current catalog epoch.
func (c *FrameCache) generateFrame(ctx context.Context, ts time.Time) (*conjunction.Frame, error) {
	cat := c.store.Get()
	simTime := ts.Sub(cat.SeededAt).Seconds()
	return c.source.Frame(ctx, simTime)
}

// warmup fills the cache with frames for [now, now+horizon].
func (c *FrameCache) warmup(ctx context.Context) {
	cat := c.store.Get()
	if cat == nil {
		return
	}
	c.currentSeededAt = cat.SeededAt

	now := c.RoundToStep(time.Now())
	numFrames := int(c.config.Horizon/c.config.Step) + 1

	c.logger.Info("cache warmup starting",
		"frames", numFrames,
		"from", now.UTC().Format(time.RFC3339),
		"to", now.Add(c.config.Horizon).UTC().Format(time.RFC3339),
	)

	start := time.Now()
	generated := 0

	for i := 0; i < numFrames; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		target := now.Add(time.Duration(i) * c.config.Step)
		frame, err := c.generateFrame(ctx, target)
		if err != nil {
			c.logger.Warn("warmup frame generation failed", "timestamp", target, "error", err)
			metrics.IncCacheRegenerationErrors()
			continue
		}

		c.put(target, frame)
		generated++
	}

	duration := time.Since(start)
	c.logger.Info("cache warmup complete",
		"generated", generated,
		"duration_ms", duration.Milliseconds(),
	)
}

// tick runs one iteration of the maintenance loop.
func (c *FrameCache) tick(ctx context.Context) {
	// Check for a catalog reseed.
	if c.catalogChanged() {
		c.performCutover(ctx)
		return
	}

	// Generate leading edge frame.
	c.generateLeadingEdge(ctx)

	// Evict expired entries.
	c.evictExpired()
}

// generateLeadingEdge generates the frame at the leading edge of the window.
func (c *FrameCache) generateLeadingEdge(ctx context.Context) {
	target := c.RoundToStep(time.Now().Add(c.config.Horizon))

	// Skip if already cached.
	if c.Get(target) != nil {
		return
	}

	start := time.Now()
	frame, err := c.generateFrame(ctx, target)
	duration := time.Since(start)

	if err != nil {
		c.logger.Warn("leading edge generation failed",
			"timestamp", target.UTC().Format(time.RFC3339),
			"error", err,
		)
		metrics.IncCacheRegenerationErrors()
		return
	}

	c.put(target, frame)
	metrics.ObserveCacheRegenerationDuration(duration)

	c.logger.Debug("leading edge generated",
		"timestamp", target.UTC().Format(time.RFC3339),
		"duration_ms", duration.Milliseconds(),
	)
}
