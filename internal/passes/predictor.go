package passes

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/star/satkit/internal/propagation"
	"github.com/star/satkit/internal/tle"
	"github.com/star/satkit/internal/transform"
)

// GroundTrackPoint is a sub-satellite position at a specific time during a pass.
type GroundTrackPoint struct {
	Time      time.Time `json:"time"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude"`
	Elevation float64   `json:"elevation"` // degrees above observer's horizon (0-90)
}

// PassEvent describes a single satellite pass over an observer location.
type PassEvent struct {
	StartTime        time.Time          `json:"start_time"`
	MaxElevationTime time.Time          `json:"max_elevation_time"`
	EndTime          time.Time          `json:"end_time"`
	DurationSeconds  float64            `json:"duration_seconds"`
	MaxElevation     float64            `json:"max_elevation"`
	AzimuthAtMax     float64            `json:"azimuth_at_max"`
	StartAzimuth     float64            `json:"start_azimuth"`
	EndAzimuth       float64            `json:"end_azimuth"`
	GroundTrack      []GroundTrackPoint `json:"ground_track"`
}

// SatellitePasses holds the predicted passes for one satellite.
type SatellitePasses struct {
	NORADID int         `json:"norad_id"`
	Passes  []PassEvent `json:"passes"`
	Error   string      `json:"error,omitempty"`
}

// Request holds the parameters for a pass prediction request.
type Request struct {
	Observer     transform.ObserverPosition
	Entries      []tle.TLEEntry
	Start        time.Time
	HorizonHours float64
	MinElevation float64 // degrees
	MaxPasses    int
}

const (
	coarseStepSec      = 30 // seconds between coarse scan steps
	fineStepSec        = 1  // seconds between fine scan steps
	groundTrackStepSec = 10 // seconds between ground track samples
	minPassDur         = 10 * time.Second
)

// Predict computes satellite passes for the given request.
// Each satellite is processed in its own goroutine, bounded by a semaphore.
func Predict(ctx context.Context, req Request) []SatellitePasses {
	results := make([]SatellitePasses, len(req.Entries))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i, entry := range req.Entries {
		wg.Add(1)
		go func(idx int, e tle.TLEEntry) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = SatellitePasses{
					NORADID: e.NORADID,
					Error:   "cancelled",
				}
				return
			}

			passes, err := predictSatellite(ctx, req, e)
			if err != nil {
				results[idx] = SatellitePasses{
					NORADID: e.NORADID,
					Error:   err.Error(),
				}
				return
			}
			results[idx] = SatellitePasses{
				NORADID: e.NORADID,
				Passes:  passes,
			}
		}(i, entry)
	}

	wg.Wait()
	return results
}

// tracker pairs a propagator with the epoch its minute offsets are
// measured from, so callers can ask for wall-clock times.
type tracker struct {
	prop  propagation.Propagator
	epoch time.Time
}

func (tr tracker) stateAt(t time.Time) (propagation.StateVector, error) {
	return tr.prop.Propagate(t.Sub(tr.epoch).Minutes())
}

// predictSatellite finds all passes for a single satellite. Model selection
// follows the orbital period, so deep-space satellites get SDP4 automatically.
func predictSatellite(ctx context.Context, req Request, entry tle.TLEEntry) ([]PassEvent, error) {
	el := entry.Elements
	if el.MeanMotion == 0 {
		// Entry came in as raw lines only; decode on demand.
		decoded, err := tle.Decode(entry.Line1, entry.Line2)
		if err != nil {
			return nil, fmt.Errorf("decoding elements: %w", err)
		}
		el = decoded.Elements
	}
	tr := tracker{prop: propagation.New(el), epoch: entry.Epoch}

	end := req.Start.Add(time.Duration(req.HorizonHours * float64(time.Hour)))
	var passes []PassEvent

	// Coarse scan: step through the time range looking for elevation > 0.
	t := req.Start
	for t.Before(end) && len(passes) < req.MaxPasses {
		if ctx.Err() != nil {
			return passes, nil
		}

		el, _, _, err := elevationAt(tr, req.Observer, t)
		if err != nil {
			t = t.Add(coarseStepSec * time.Second)
			continue
		}

		if el > 0 {
			// Found a candidate window — fine scan to find the full pass.
			pass, windowEnd := refinePass(ctx, tr, req.Observer, t, req.Start, end, req.MinElevation)
			if pass != nil && pass.EndTime.Sub(pass.StartTime) >= minPassDur {
				passes = append(passes, *pass)
			}
			// Jump past the end of this window.
			t = windowEnd.Add(coarseStepSec * time.Second)
		} else {
			t = t.Add(coarseStepSec * time.Second)
		}
	}

	return passes, nil
}

// passScan accumulates one pass during the fine sweep.
type passScan struct {
	rise, set, peak time.Time
	riseAz, setAz   float64
	peakEl, peakAz  float64
	track           []GroundTrackPoint
	rising          bool
	wasAbove        bool
}

func (ps *passScan) open(t time.Time, el float64, la transform.LookAngles) {
	ps.rise = t
	ps.riseAz = la.AzimuthDeg
	ps.rising = true
	ps.peakEl = el
	ps.peak = t
	ps.peakAz = la.AzimuthDeg
}

func (ps *passScan) sample(t time.Time, el float64, la transform.LookAngles, ecef transform.PositionECEF) {
	if el > ps.peakEl {
		ps.peakEl = el
		ps.peak = t
		ps.peakAz = la.AzimuthDeg
	}
	if int(t.Sub(ps.rise).Seconds())%groundTrackStepSec == 0 {
		geo := transform.ECEFToGeodetic(ecef.X, ecef.Y, ecef.Z)
		ps.track = append(ps.track, GroundTrackPoint{
			Time:      t,
			Latitude:  geo.LatDeg,
			Longitude: geo.LonDeg,
			Altitude:  geo.AltM,
			Elevation: el,
		})
	}
}

func (ps *passScan) event() *PassEvent {
	return &PassEvent{
		StartTime:        ps.rise,
		MaxElevationTime: ps.peak,
		EndTime:          ps.set,
		DurationSeconds:  ps.set.Sub(ps.rise).Seconds(),
		MaxElevation:     ps.peakEl,
		AzimuthAtMax:     ps.peakAz,
		StartAzimuth:     ps.riseAz,
		EndAzimuth:       ps.setAz,
		GroundTrack:      ps.track,
	}
}

// refinePass sweeps at fine resolution around a coarse above-horizon hit,
// backing up one coarse step to catch the true rise, and returns the pass
// plus the time the sweep stopped (so the coarse scan can skip past it).
func refinePass(ctx context.Context, tr tracker, obs transform.ObserverPosition, coarseHit, windowStart, windowEnd time.Time, minElev float64) (*PassEvent, time.Time) {
	t := coarseHit.Add(-coarseStepSec * time.Second)
	if t.Before(windowStart) {
		t = windowStart
	}

	var ps passScan
	for t.Before(windowEnd) {
		if ctx.Err() != nil {
			break
		}

		el, la, ecef, err := elevationAt(tr, obs, t)
		if err != nil {
			t = t.Add(fineStepSec * time.Second)
			continue
		}

		above := el >= minElev
		switch {
		case above && !ps.wasAbove:
			ps.open(t, el, la)
			ps.sample(t, el, la, ecef)
		case above && ps.rising:
			ps.sample(t, el, la, ecef)
		case !above && ps.wasAbove && ps.rising:
			ps.set = t
			ps.setAz = la.AzimuthDeg
		}
		if !ps.set.IsZero() {
			break
		}

		ps.wasAbove = above
		t = t.Add(fineStepSec * time.Second)
	}

	// Still above the threshold at the window edge: close the pass there.
	if ps.rising && ps.set.IsZero() && ps.wasAbove {
		ps.set = t
		if el, la, _, err := elevationAt(tr, obs, t); err == nil {
			ps.setAz = la.AzimuthDeg
			if el > ps.peakEl {
				ps.peakEl = el
				ps.peak = t
				ps.peakAz = la.AzimuthDeg
			}
		}
	}

	if !ps.rising || ps.set.IsZero() {
		return nil, t
	}
	return ps.event(), ps.set
}

// elevationAt computes the look angles and satellite ECEF position from observer to satellite at time t.
func elevationAt(tr tracker, obs transform.ObserverPosition, t time.Time) (float64, transform.LookAngles, transform.PositionECEF, error) {
	sv, err := tr.stateAt(t)
	if err != nil {
		return 0, transform.LookAngles{}, transform.PositionECEF{}, err
	}
	ecef := transform.TEMEToECEF(transform.FromState(sv), t)
	la := transform.ECEFToLookAngles(obs, ecef.X, ecef.Y, ecef.Z)
	return la.ElevationDeg, la, ecef, nil
}
