package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/star/satkit/internal/cache"
	"github.com/star/satkit/internal/propagation"
	"github.com/star/satkit/internal/tle"
	"github.com/star/satkit/internal/transform"
)

const (
	defaultHorizonSec = 600
	defaultStepSec    = 5
	// maxPositions bounds the per-request CPU spend on the propagate endpoint.
	maxPositions = 10000
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type positionPayload struct {
	T     string     `json:"t"`
	P     [3]float64 `json:"p"` // ECEF meters
	V     [3]float64 `json:"v"` // ECEF m/s
	Error string     `json:"err,omitempty"`
}

type propagateResponse struct {
	NORADID    int               `json:"norad_id"`
	Name       string            `json:"name,omitempty"`
	Model      string            `json:"model"`
	StepSec    int               `json:"step_seconds"`
	HorizonSec int               `json:"horizon_seconds"`
	Positions  []positionPayload `json:"positions"`
	Errors     int               `json:"errors"`
}

// propagateSingleHandler serves GET /api/v1/propagate/{norad_id}.
// Query: horizon (seconds), step (seconds), model (SGP|SGP4|SGP8|SDP4|SDP8).
// The horizon/step pair is budgeted so one request cannot monopolize CPU.
func propagateSingleHandler(logger *slog.Logger, store *tle.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noradID, err := strconv.Atoi(r.PathValue("norad_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid norad_id")
			return
		}

		horizon := defaultHorizonSec
		if v := r.URL.Query().Get("horizon"); v != "" {
			horizon, err = strconv.Atoi(v)
			if err != nil || horizon < 1 {
				writeError(w, http.StatusBadRequest, "invalid horizon parameter")
				return
			}
		}
		step := defaultStepSec
		if v := r.URL.Query().Get("step"); v != "" {
			step, err = strconv.Atoi(v)
			if err != nil || step < 1 {
				writeError(w, http.StatusBadRequest, "invalid step parameter")
				return
			}
		}

		numPositions := horizon/step + 1
		if numPositions > maxPositions {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":         "horizon/step budget exceeded",
				"positions":     numPositions,
				"max_positions": maxPositions,
			})
			return
		}

		entry := store.Lookup(noradID)
		if entry == nil {
			writeError(w, http.StatusNotFound, "satellite not found")
			return
		}

		el := entry.Elements
		epoch := entry.Epoch
		if el.MeanMotion == 0 {
			decoded, err := tle.Decode(entry.Line1, entry.Line2)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "element set undecodable: "+err.Error())
				return
			}
			el = decoded.Elements
			if epoch.IsZero() {
				epoch = decoded.Epoch
			}
		}

		var prop propagation.Propagator
		if m := r.URL.Query().Get("model"); m != "" {
			prop, err = propagation.NewModel(el, propagation.Model(m))
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		} else {
			prop = propagation.New(el)
		}

		start := time.Now().UTC()
		positions := make([]positionPayload, 0, numPositions)
		var errCount int
		for i := 0; i < numPositions; i++ {
			t := start.Add(time.Duration(i*step) * time.Second)
			sv, err := prop.Propagate(t.Sub(epoch).Minutes())
			if err != nil {
				errCount++
				positions = append(positions, positionPayload{
					T:     t.Format(time.RFC3339),
					Error: err.Error(),
				})
				continue
			}
			ecef := transform.TEMEToECEF(transform.FromState(sv), t)
			positions = append(positions, positionPayload{
				T: t.Format(time.RFC3339),
				P: [3]float64{ecef.X, ecef.Y, ecef.Z},
				V: [3]float64{ecef.VX, ecef.VY, ecef.VZ},
			})
		}

		if errCount > 0 {
			logger.Debug("propagate request had per-point failures",
				"norad_id", noradID,
				"errors", errCount,
				"positions", numPositions,
			)
		}

		writeJSON(w, http.StatusOK, propagateResponse{
			NORADID:    noradID,
			Name:       entry.Name,
			Model:      string(prop.Name()),
			StepSec:    step,
			HorizonSec: horizon,
			Positions:  positions,
			Errors:     errCount,
		})
	}
}

// propagateTestHandler serves GET /api/v1/propagate/test: a fixed self-check
// that runs each model against a built-in near-Earth element set and reports
// the state at epoch. Useful as a smoke test for deployments.
func propagateTestHandler() http.HandlerFunc {
	const deg2rad = math.Pi / 180
	return func(w http.ResponseWriter, r *http.Request) {
		el := propagation.Elements{
			CatalogNumber: 88888,
			EpochDS50:     11232.98708465,
			EpochJulian:   2444514.48708465,
			NDot:          0.00073094 * 2 * math.Pi / (1440.0 * 1440.0),
			Bstar:         0.66816e-4,
			Inclination:   72.8435 * deg2rad,
			NodeRA:        115.9689 * deg2rad,
			Eccentricity:  0.0086731,
			ArgPerigee:    52.6988 * deg2rad,
			MeanAnomaly:   110.5714 * deg2rad,
			MeanMotion:    16.05824518 * 2 * math.Pi / 1440.0,
		}

		type modelResult struct {
			Model string     `json:"model"`
			P     [3]float64 `json:"p_km"`
			V     [3]float64 `json:"v_kms"`
			Error string     `json:"err,omitempty"`
		}

		models := []propagation.Model{
			propagation.ModelSGP,
			propagation.ModelSGP4,
			propagation.ModelSGP8,
		}
		results := make([]modelResult, 0, len(models))
		for _, m := range models {
			res, err := propagation.PropagateModel(el, m, 0)
			if err != nil {
				results = append(results, modelResult{Model: string(m), Error: err.Error()})
				continue
			}
			results = append(results, modelResult{
				Model: string(m),
				P:     [3]float64{res.State.X, res.State.Y, res.State.Z},
				V:     [3]float64{res.State.VX, res.State.VY, res.State.VZ},
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "results": results})
	}
}

// tleMetadataHandler serves GET /api/v1/tle/metadata.
func tleMetadataHandler(store *tle.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := store.Get()
		if ds == nil {
			writeError(w, http.StatusServiceUnavailable, "no TLE dataset loaded")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"source":          ds.Source,
			"fetched_at":      ds.FetchedAt.UTC().Format(time.RFC3339),
			"age_seconds":     int(store.AgeSeconds()),
			"satellite_count": len(ds.Satellites),
			"epoch_min":       ds.EpochRange.Min.UTC().Format(time.RFC3339),
			"epoch_max":       ds.EpochRange.Max.UTC().Format(time.RFC3339),
		})
	}
}

// RefreshFunc triggers an on-demand TLE refresh.
type RefreshFunc func(ctx context.Context) error

// tleFetchHandler serves POST /api/v1/tle/fetch. The refresh itself is
// injected so the server does not depend on the fetch pipeline wiring.
func tleFetchHandler(logger *slog.Logger, refresh RefreshFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if refresh == nil {
			writeError(w, http.StatusNotImplemented, "manual refresh not configured")
			return
		}
		if err := refresh(r.Context()); err != nil {
			logger.Error("manual TLE refresh failed", "error", err)
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func keyframePayload(kf *cache.Keyframe) map[string]any {
	sats := make([]map[string]any, len(kf.Satellites))
	for i, s := range kf.Satellites {
		sats[i] = map[string]any{
			"id": s.NORADID,
			"p":  s.PositionECEF,
			"v":  s.VelocityECEF,
		}
	}
	return map[string]any{
		"t":     kf.Timestamp.UTC().Format(time.RFC3339),
		"frame": "ECEF",
		"sat":   sats,
	}
}

// cacheLatestHandler serves GET /api/v1/cache/keyframes/latest.
func cacheLatestHandler(kfCache *cache.KeyframeCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kf := kfCache.GetLatest()
		if kf == nil {
			writeError(w, http.StatusServiceUnavailable, "cache not warmed up")
			return
		}
		writeJSON(w, http.StatusOK, keyframePayload(kf))
	}
}

// cacheAtHandler serves GET /api/v1/cache/keyframes/at?t=RFC3339.
func cacheAtHandler(kfCache *cache.KeyframeCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts := r.URL.Query().Get("t")
		if ts == "" {
			writeError(w, http.StatusBadRequest, "missing t parameter")
			return
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid t parameter, want RFC3339")
			return
		}
		kf := kfCache.Get(t)
		if kf == nil {
			writeError(w, http.StatusNotFound, "keyframe not cached for that timestamp")
			return
		}
		writeJSON(w, http.StatusOK, keyframePayload(kf))
	}
}

// cacheStatsHandler serves GET /api/v1/cache/stats.
func cacheStatsHandler(kfCache *cache.KeyframeCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := kfCache.Stats()
		writeJSON(w, http.StatusOK, map[string]any{
			"entries":         st.Entries,
			"size_bytes":      st.SizeBytes,
			"oldest":          st.OldestTimestamp.UTC().Format(time.RFC3339),
			"newest":          st.NewestTimestamp.UTC().Format(time.RFC3339),
			"hits":            st.Hits,
			"misses":          st.Misses,
			"evictions":       st.Evictions,
			"in_grace_period": st.InGracePeriod,
		})
	}
}
