package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/star/satkit/internal/metrics"
	"github.com/star/satkit/internal/propagation"
	"github.com/star/satkit/internal/tle"
	"github.com/star/satkit/internal/transform"
)

// SatellitePosition is one satellite's ECEF state inside a keyframe.
type SatellitePosition struct {
	NORADID      int
	PositionECEF [3]float64 // meters
	VelocityECEF [3]float64 // m/s
}

// Keyframe holds every satellite's position at a single timestamp.
type Keyframe struct {
	Timestamp  time.Time
	Satellites []SatellitePosition
}

// fleetEntry pairs an initialized propagator with the epoch its minute
// offsets are measured from. Model selection happened at init, so deep-space
// satellites already carry SDP4.
type fleetEntry struct {
	noradID int
	epoch   time.Time
	prop    propagation.Propagator
}

// fleetSet holds initialized propagators for a specific dataset.
// Immutable after construction; safe for concurrent reads.
type fleetSet struct {
	sats      []fleetEntry
	fetchedAt time.Time
}

// Fleet generates keyframes for the full catalog. Propagator initialization
// is the expensive part, so it happens once per dataset and every snapshot
// reuses the initialized models.
type Fleet struct {
	store   *tle.Store
	workers int
	logger  *slog.Logger
	cur     atomic.Pointer[fleetSet]
	mu      sync.Mutex // serializes fleet rebuilds
}

// NewFleet creates a keyframe generator reading datasets from store.
func NewFleet(store *tle.Store, workers int, logger *slog.Logger) *Fleet {
	if workers <= 0 {
		workers = 1
	}
	return &Fleet{
		store:   store,
		workers: workers,
		logger:  logger,
	}
}

// cachedSats returns initialized propagators for the given dataset,
// rebuilding when the dataset has changed (double-checked locking).
func (f *Fleet) cachedSats(ds *tle.TLEDataset) []fleetEntry {
	if c := f.cur.Load(); c != nil && c.fetchedAt.Equal(ds.FetchedAt) {
		return c.sats
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if c := f.cur.Load(); c != nil && c.fetchedAt.Equal(ds.FetchedAt) {
		return c.sats
	}

	sats := make([]fleetEntry, 0, len(ds.Satellites))
	seen := make(map[int]bool, len(ds.Satellites))
	var skipped int
	for _, entry := range ds.Satellites {
		if seen[entry.NORADID] {
			continue
		}
		el := entry.Elements
		epoch := entry.Epoch
		if el.MeanMotion == 0 {
			decoded, err := tle.Decode(entry.Line1, entry.Line2)
			if err != nil {
				f.logger.Warn("fleet init failed", "norad_id", entry.NORADID, "error", err)
				metrics.IncPropagationErrors("init")
				skipped++
				continue
			}
			el = decoded.Elements
			if epoch.IsZero() {
				epoch = decoded.Epoch
			}
		}
		seen[entry.NORADID] = true
		sats = append(sats, fleetEntry{
			noradID: entry.NORADID,
			epoch:   epoch,
			prop:    propagation.New(el),
		})
	}

	f.logger.Info("fleet rebuilt",
		"satellites", len(sats),
		"skipped", skipped,
		"dataset_fetched_at", ds.FetchedAt.UTC().Format(time.RFC3339),
	)
	f.cur.Store(&fleetSet{sats: sats, fetchedAt: ds.FetchedAt})
	return sats
}

type snapshotResult struct {
	position SatellitePosition
	err      error
	noradID  int
}

// SnapshotAt generates a keyframe for the current dataset at targetTime.
// Satellites that fail to propagate (decayed, degenerate elements) are
// logged and skipped; the keyframe carries the rest.
func (f *Fleet) SnapshotAt(ctx context.Context, targetTime time.Time) (*Keyframe, error) {
	ds := f.store.Get()
	if ds == nil {
		return nil, fmt.Errorf("no TLE dataset loaded")
	}

	sats := f.cachedSats(ds)

	// GMST is the same for every satellite at this timestamp.
	gmst := transform.GMST(targetTime)

	jobs := make(chan fleetEntry, f.workers*2)
	results := make(chan snapshotResult, f.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < f.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sat := range jobs {
				res := snapshotSingle(sat, targetTime, gmst)
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, sat := range sats {
			select {
			case jobs <- sat:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	positions := make([]SatellitePosition, 0, len(sats))
	var errorCount int
	for res := range results {
		if res.err != nil {
			errorCount++
			f.logger.Warn("propagation failed", "norad_id", res.noradID, "error", res.err)
			metrics.IncPropagationErrors("propagate")
			continue
		}
		positions = append(positions, res.position)
	}

	if errorCount > 0 {
		f.logger.Debug("snapshot complete with failures",
			"success", len(positions),
			"errors", errorCount,
		)
	}

	return &Keyframe{
		Timestamp:  targetTime,
		Satellites: positions,
	}, nil
}

// snapshotSingle propagates one satellite and rotates its state to ECEF.
func snapshotSingle(sat fleetEntry, targetTime time.Time, gmst float64) snapshotResult {
	tsince := targetTime.Sub(sat.epoch).Minutes()
	sv, err := sat.prop.Propagate(tsince)
	if err != nil {
		return snapshotResult{noradID: sat.noradID, err: err}
	}

	ecef := transform.TEMEToECEFWithGMST(transform.FromState(sv), gmst)
	return snapshotResult{
		noradID: sat.noradID,
		position: SatellitePosition{
			NORADID:      sat.noradID,
			PositionECEF: [3]float64{ecef.X, ecef.Y, ecef.Z},
			VelocityECEF: [3]float64{ecef.VX, ecef.VY, ecef.VZ},
		},
	}
}
