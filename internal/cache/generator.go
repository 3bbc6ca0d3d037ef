package cache

import (
	"context"
	"time"

	"github.com/star/satkit/internal/metrics"
)

// Start runs the maintenance loop: an initial warmup of the full window,
// then one tick per step that extends the leading edge, drops expired
// frames, and watches for dataset refreshes. Blocks until ctx is cancelled.
func (c *KeyframeCache) Start(ctx context.Context) {
	if !c.waitForTLEData(ctx) {
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

// waitForTLEData polls the store until a dataset appears or ctx ends.
func (c *KeyframeCache) waitForTLEData(ctx context.Context) bool {
	if c.store.Get() != nil {
		return true
	}

	c.logger.Info("cache waiting for TLE data...")
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if c.store.Get() != nil {
				c.logger.Info("TLE data available, starting cache warmup")
				return true
			}
		}
	}
}

// windowFrames is the number of keyframes spanning [now, now+horizon].
func (c *KeyframeCache) windowFrames() int {
	return int(c.config.Horizon/c.config.Step) + 1
}

// forEachStep invokes fn for every step-aligned timestamp in the window
// starting at from. It stops early on ctx cancellation and returns false.
func (c *KeyframeCache) forEachStep(ctx context.Context, from time.Time, fn func(time.Time)) bool {
	for i := 0; i < c.windowFrames(); i++ {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		fn(from.Add(time.Duration(i) * c.config.Step))
	}
	return true
}

// warmup fills the window frame by frame; each frame becomes readable as
// soon as it lands, so early clients get partial coverage immediately.
func (c *KeyframeCache) warmup(ctx context.Context) {
	ds := c.store.Get()
	if ds == nil {
		return
	}
	c.currentFetchedAt = ds.FetchedAt

	now := c.RoundToStep(time.Now())
	c.logger.Info("cache warmup starting",
		"frames", c.windowFrames(),
		"from", now.UTC().Format(time.RFC3339),
		"to", now.Add(c.config.Horizon).UTC().Format(time.RFC3339),
	)

	start := time.Now()
	var generated int
	c.forEachStep(ctx, now, func(target time.Time) {
		kf, err := c.fleet.SnapshotAt(ctx, target)
		if err != nil {
			c.logger.Warn("warmup propagation failed", "timestamp", target, "error", err)
			metrics.IncCacheRegenerationErrors()
			return
		}
		c.put(kf)
		generated++
	})

	c.logger.Info("cache warmup complete",
		"generated", generated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// tick handles one maintenance interval. A dataset refresh takes priority
// over extending the window; the rebuilt window covers the leading edge
// anyway.
func (c *KeyframeCache) tick(ctx context.Context) {
	if c.tleChanged() {
		c.performCutover(ctx)
		return
	}

	c.generateLeadingEdge(ctx)
	c.evictExpired()
}

// generateLeadingEdge computes the keyframe at now+horizon if it's missing.
func (c *KeyframeCache) generateLeadingEdge(ctx context.Context) {
	target := c.RoundToStep(time.Now().Add(c.config.Horizon))
	if c.Get(target) != nil {
		return
	}

	start := time.Now()
	kf, err := c.fleet.SnapshotAt(ctx, target)
	elapsed := time.Since(start)

	if err != nil {
		c.logger.Warn("leading edge generation failed",
			"timestamp", target.UTC().Format(time.RFC3339),
			"error", err,
		)
		metrics.IncCacheRegenerationErrors()
		return
	}

	c.put(kf)
	metrics.ObserveCacheRegenerationDuration(elapsed)

	c.logger.Debug("leading edge generated",
		"timestamp", target.UTC().Format(time.RFC3339),
		"duration_ms", elapsed.Milliseconds(),
	)
}
