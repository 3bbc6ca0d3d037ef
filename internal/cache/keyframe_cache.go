// Package cache precomputes fleet keyframes over a rolling time window.
//
// A keyframe is every satellite's ECEF state at one step-aligned timestamp.
// A background generator keeps the window [now, now+horizon] populated and
// drops entries that age out past a trailing buffer. Refreshing the TLE
// dataset rebuilds the window without blocking readers.
package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/star/satkit/internal/metrics"
	"github.com/star/satkit/internal/tle"
)

// Config sizes the rolling window.
type Config struct {
	Step        time.Duration // keyframe spacing
	Horizon     time.Duration // how far ahead to precompute
	GracePeriod time.Duration // old window lingers this long after a TLE cutover
	Buffer      time.Duration // entries survive this long past their timestamp
}

// CacheEntry carries a keyframe plus when it was generated, which the
// cutover logic uses to tell old-dataset frames from rebuilt ones.
type CacheEntry struct {
	Keyframe    *Keyframe
	GeneratedAt time.Time
}

// KeyframeCache is the concurrent keyframe map behind the API and stream.
type KeyframeCache struct {
	mu      sync.RWMutex
	entries map[time.Time]*CacheEntry

	config Config
	fleet  *Fleet
	store  *tle.Store
	logger *slog.Logger

	// FetchedAt of the dataset the current window was built from.
	currentFetchedAt time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	inGracePeriod atomic.Bool
}

// NewKeyframeCache builds an empty cache; Start populates it.
func NewKeyframeCache(config Config, fleet *Fleet, store *tle.Store, logger *slog.Logger) *KeyframeCache {
	logger.Info("cache initialized",
		"step_seconds", config.Step.Seconds(),
		"horizon_seconds", config.Horizon.Seconds(),
		"buffer_seconds", config.Buffer.Seconds(),
		"grace_period_seconds", config.GracePeriod.Seconds(),
	)

	return &KeyframeCache{
		entries: make(map[time.Time]*CacheEntry),
		config:  config,
		fleet:   fleet,
		store:   store,
		logger:  logger,
	}
}

// RoundToStep normalizes t to the step grid (UTC, truncated down) so that
// lookups and generation agree on keys.
func (c *KeyframeCache) RoundToStep(t time.Time) time.Time {
	return t.UTC().Truncate(c.config.Step)
}

// lookup fetches one grid-aligned key under the read lock.
func (c *KeyframeCache) lookup(key time.Time) (*Keyframe, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return entry.Keyframe, true
}

// Get returns the keyframe covering t, or nil on a miss.
func (c *KeyframeCache) Get(t time.Time) *Keyframe {
	if kf, ok := c.lookup(c.RoundToStep(t)); ok {
		c.hits.Add(1)
		metrics.IncCacheHits()
		return kf
	}
	c.misses.Add(1)
	metrics.IncCacheMisses()
	return nil
}

// GetRecent returns up to count keyframes ending at t, oldest first.
// The stream uses these to draw orbital trails.
func (c *KeyframeCache) GetRecent(t time.Time, count int) []*Keyframe {
	if count <= 0 {
		return nil
	}
	key := c.RoundToStep(t)

	c.mu.RLock()
	defer c.mu.RUnlock()

	frames := make([]*Keyframe, 0, count)
	for i := count - 1; i >= 0; i-- {
		if entry, ok := c.entries[key.Add(-time.Duration(i)*c.config.Step)]; ok {
			frames = append(frames, entry.Keyframe)
		}
	}
	return frames
}

// GetLatest returns the newest keyframe at or before now, scanning back a
// few steps to tolerate a briefly lagging generator.
func (c *KeyframeCache) GetLatest() *Keyframe {
	now := c.RoundToStep(time.Now())
	for i := 0; i < 10; i++ {
		if kf, ok := c.lookup(now.Add(-time.Duration(i) * c.config.Step)); ok {
			c.hits.Add(1)
			metrics.IncCacheHits()
			return kf
		}
	}
	c.misses.Add(1)
	metrics.IncCacheMisses()
	return nil
}

func (c *KeyframeCache) put(kf *Keyframe) {
	entry := &CacheEntry{Keyframe: kf, GeneratedAt: time.Now()}

	c.mu.Lock()
	c.entries[c.RoundToStep(kf.Timestamp)] = entry
	c.mu.Unlock()

	c.updateMetrics()
}

// evictExpired drops entries whose timestamp fell out of the trailing
// buffer and reports how many went.
func (c *KeyframeCache) evictExpired() int {
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

// replaceAll swaps the whole window in one step; readers see either the old
// dataset's frames or the new ones, never a mix.
func (c *KeyframeCache) replaceAll(newEntries map[time.Time]*CacheEntry) {
	c.mu.Lock()
	c.entries = newEntries
	c.mu.Unlock()
	c.updateMetrics()
}

// CacheStats is the snapshot served by the stats endpoint.
type CacheStats struct {
	Entries         int
	SizeBytes       int64
	OldestTimestamp time.Time
	NewestTimestamp time.Time
	Hits            int64
	Misses          int64
	Evictions       int64
	InGracePeriod   bool
}

// Stats summarizes the current window and counters.
func (c *KeyframeCache) Stats() CacheStats {
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

// Fixed per-entry bookkeeping costs, independent of satellite count:
// keyframe timestamp + slice header, entry pointer + generation time, and a
// rough per-key map bucket share.
const (
	keyframeOverhead = 48
	entryOverhead    = 32
	bucketOverhead   = 8
)

// estimateSizeBytes approximates the window's memory footprint for the
// size gauge; close enough for capacity planning, not an accounting tool.
func (c *KeyframeCache) estimateSizeBytes() int64 {
	satSize := int64(unsafe.Sizeof(SatellitePosition{}))

	c.mu.RLock()
	defer c.mu.RUnlock()

	total := int64(len(c.entries)) * bucketOverhead
	for _, entry := range c.entries {
		if entry.Keyframe == nil {
			continue
		}
		total += int64(len(entry.Keyframe.Satellites))*satSize + keyframeOverhead + entryOverhead
	}
	return total
}

func (c *KeyframeCache) updateMetrics() {
	c.mu.RLock()
	count := len(c.entries)
	c.mu.RUnlock()

	metrics.SetCacheEntries(count)
	metrics.SetCacheSizeBytes(c.estimateSizeBytes())
}
