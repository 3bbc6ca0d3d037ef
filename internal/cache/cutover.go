package cache

import (
	"context"
	"time"

	"github.com/star/satkit/internal/metrics"
)

// tleChanged reports whether the store holds a newer dataset than the one
// the current window was built from.
func (c *KeyframeCache) tleChanged() bool {
	ds := c.store.Get()
	if ds == nil {
		return false
	}
	return !ds.FetchedAt.Equal(c.currentFetchedAt)
}

// performCutover rebuilds the window against the refreshed dataset. The old
// window keeps serving reads for the whole rebuild (the grace period); the
// swap at the end is a single map replacement, so readers never see frames
// from both datasets at once.
func (c *KeyframeCache) performCutover(ctx context.Context) {
	ds := c.store.Get()
	if ds == nil {
		return
	}

	c.logger.Info("TLE cutover starting",
		"old_dataset_fetched_at", c.currentFetchedAt.UTC().Format(time.RFC3339),
		"new_dataset_fetched_at", ds.FetchedAt.UTC().Format(time.RFC3339),
	)

	c.inGracePeriod.Store(true)
	metrics.SetCacheGracePeriodActive(true)
	defer func() {
		c.inGracePeriod.Store(false)
		metrics.SetCacheGracePeriodActive(false)
	}()

	start := time.Now()
	rebuilt := make(map[time.Time]*CacheEntry, c.windowFrames())

	completed := c.forEachStep(ctx, c.RoundToStep(time.Now()), func(target time.Time) {
		kf, err := c.fleet.SnapshotAt(ctx, target)
		if err != nil {
			c.logger.Warn("cutover propagation failed",
				"timestamp", target.UTC().Format(time.RFC3339),
				"error", err,
			)
			metrics.IncCacheRegenerationErrors()
			return
		}
		rebuilt[c.RoundToStep(kf.Timestamp)] = &CacheEntry{
			Keyframe:    kf,
			GeneratedAt: time.Now(),
		}
	})
	if !completed {
		c.logger.Warn("cutover cancelled by context")
		return
	}

	c.replaceAll(rebuilt)
	c.currentFetchedAt = ds.FetchedAt

	elapsed := time.Since(start)
	c.logger.Info("TLE cutover complete",
		"duration_ms", elapsed.Milliseconds(),
		"entries_replaced", len(rebuilt),
	)
	metrics.ObserveCacheRegenerationDuration(elapsed)
}
