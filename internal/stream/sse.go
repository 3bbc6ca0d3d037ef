// Package stream pushes keyframe batches to browsers over Server-Sent
// Events. A client opens GET /api/v1/stream/keyframes and receives one
// "data:" line per keyframe, ECEF meters, straight out of the cache.
//
// Wire format:
//
//	retry: <jittered ms>
//	data: {"type":"metadata","dataset_epoch":"...","tle_age_seconds":1800}
//	data: {"type":"keyframe_batch","t":"...","frame":"ECEF","sat":[...]}
//	:            <- keep-alive comment every KeepaliveInterval
//
// The metadata message always comes first, on every (re)connection.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/star/satkit/internal/cache"
	"github.com/star/satkit/internal/metrics"
	"github.com/star/satkit/internal/tle"
)

// Config tunes the streaming endpoint.
type Config struct {
	MaxConcurrentPerIP int           // concurrent streams per client IP
	BandwidthLimit     int           // bytes/s per stream
	KeepaliveInterval  time.Duration // comment-ping cadence
}

// Handler serves the SSE endpoint.
type Handler struct {
	cache   *cache.KeyframeCache
	store   *tle.Store
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler wires the stream onto a keyframe cache and TLE store.
func NewHandler(kfCache *cache.KeyframeCache, store *tle.Store, config Config, logger *slog.Logger) *Handler {
	return &Handler{
		cache:   kfCache,
		store:   store,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
	}
}

// streamParams are the client-tunable knobs, bounds-checked from the query
// string.
type streamParams struct {
	step    int // seconds between batches
	horizon int // client hint only; the stream runs until disconnect
	trail   int // past positions per satellite
}

func parseStreamParams(r *http.Request) (streamParams, error) {
	p := streamParams{step: 5, horizon: 600, trail: 20}

	intParam := func(name string, lo, hi int, dst *int) error {
		v := r.URL.Query().Get(name)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < lo || n > hi {
			return fmt.Errorf("invalid %s parameter, must be %d-%d", name, lo, hi)
		}
		*dst = n
		return nil
	}

	if err := intParam("step", 1, 60, &p.step); err != nil {
		return p, err
	}
	if err := intParam("horizon", 10, 3600, &p.horizon); err != nil {
		return p, err
	}
	if err := intParam("trail", 0, 120, &p.trail); err != nil {
		return p, err
	}
	return p, nil
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// HandleKeyframes serves the SSE keyframe stream.
// GET /api/v1/stream/keyframes?step=5&horizon=600&trail=20
func (h *Handler) HandleKeyframes(w http.ResponseWriter, r *http.Request) {
	params, err := parseStreamParams(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ip := clientIP(r)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		writeJSONError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()
	connectedAt := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"step", params.step,
		"horizon", params.horizon,
	)
	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(connectedAt).Seconds()),
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx would otherwise buffer the stream
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The server-wide WriteTimeout would kill the stream; per-message
	// deadlines are managed in the client writer instead.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		ip:      ip,
		logger:  h.logger,
	}

	// Jitter the browser's reconnect delay so a restart doesn't bring every
	// client back in the same instant.
	fmt.Fprintf(w, "retry: %d\n\n", 3000+rand.Intn(4000))
	flusher.Flush()

	if ds := h.store.Get(); ds != nil {
		meta := metadataMessage{
			Type:         "metadata",
			DatasetEpoch: ds.FetchedAt.UTC().Format(time.RFC3339),
			TLEAge:       int(time.Since(ds.FetchedAt).Seconds()),
		}
		if err := c.sendJSON(meta); err != nil {
			metrics.IncStreamErrors("send_error")
			h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
			return
		}
	}

	h.run(r.Context(), c, params)
}

// run is the per-connection send loop; it returns when the client goes away
// or a write fails.
func (h *Handler) run(ctx context.Context, c *client, params streamParams) {
	ticker := time.NewTicker(time.Duration(params.step) * time.Second)
	defer ticker.Stop()

	keepalive := time.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case now := <-ticker.C:
			kf := h.cache.Get(now)
			if kf == nil {
				metrics.IncStreamErrors("cache_miss")
				h.logger.Debug("stream cache miss",
					"timestamp", h.cache.RoundToStep(now).UTC().Format(time.RFC3339),
					"remote_ip", c.ip,
				)
				continue
			}

			var history []*cache.Keyframe
			if params.trail > 0 {
				history = h.cache.GetRecent(now, params.trail)
			}

			data, err := json.Marshal(buildBatchMessage(kf, history))
			if err != nil {
				metrics.IncStreamErrors("marshal_error")
				h.logger.Warn("stream marshal error", "remote_ip", c.ip, "error", err)
				continue
			}
			if err := c.sendRaw(data); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", c.ip, "error", err)
				return
			}

			// A data message already proved the connection alive.
			keepalive.Reset(h.config.KeepaliveInterval)

		case <-keepalive.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", c.ip, "error", err)
				return
			}
		}
	}
}

// buildBatchMessage assembles one keyframe (plus optional per-satellite
// position history, oldest first) into the batch payload.
func buildBatchMessage(kf *cache.Keyframe, history []*cache.Keyframe) keyframeBatchMessage {
	var trails map[int][][3]float64
	if len(history) > 0 {
		trails = make(map[int][][3]float64, len(kf.Satellites))
		for _, old := range history {
			for _, s := range old.Satellites {
				trails[s.NORADID] = append(trails[s.NORADID], s.PositionECEF)
			}
		}
	}

	sats := make([]satPayload, len(kf.Satellites))
	for i, s := range kf.Satellites {
		sats[i] = satPayload{ID: s.NORADID, P: s.PositionECEF, Tr: trails[s.NORADID]}
	}
	return keyframeBatchMessage{
		Type:  "keyframe_batch",
		T:     kf.Timestamp.UTC().Format(time.RFC3339),
		Frame: "ECEF",
		Sat:   sats,
	}
}

type metadataMessage struct {
	Type         string `json:"type"`
	DatasetEpoch string `json:"dataset_epoch"`
	TLEAge       int    `json:"tle_age_seconds"`
}

type keyframeBatchMessage struct {
	Type  string       `json:"type"`
	T     string       `json:"t"`
	Frame string       `json:"frame"`
	Sat   []satPayload `json:"sat"`
}

type satPayload struct {
	ID int          `json:"id"`
	P  [3]float64   `json:"p"`
	Tr [][3]float64 `json:"tr,omitempty"`
}
