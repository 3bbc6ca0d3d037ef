package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satkit_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "satkit_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "satkit_cache_hits_total",
		Help: "Total keyframe cache hits.",
	})

	cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "satkit_cache_misses_total",
		Help: "Total keyframe cache misses.",
	})

	cacheEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "satkit_cache_evictions_total",
		Help: "Total keyframe cache evictions.",
	})

	cacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "satkit_cache_entries",
		Help: "Current number of keyframes in the cache.",
	})

	cacheSizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "satkit_cache_size_bytes",
		Help: "Estimated keyframe cache memory footprint in bytes.",
	})

	cacheGracePeriodActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "satkit_cache_grace_period_active",
		Help: "1 while an element-set cutover rebuild is in progress.",
	})

	cacheRegenerationErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "satkit_cache_regeneration_errors_total",
		Help: "Total keyframe generation failures.",
	})

	cacheRegenerationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "satkit_cache_regeneration_duration_seconds",
		Help:    "Keyframe generation duration in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	propagationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satkit_propagation_errors_total",
			Help: "Total per-satellite propagation failures by reason.",
		},
		[]string{"reason"},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satkit_stream_connections_total",
			Help: "Total SSE stream connects and disconnects.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "satkit_streams_active",
		Help: "Currently open SSE streams.",
	})

	streamMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "satkit_stream_messages_total",
		Help: "Total SSE data messages sent.",
	})

	streamBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "satkit_stream_bytes_total",
		Help: "Total bytes written to SSE streams.",
	})

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satkit_stream_errors_total",
			Help: "Total SSE stream errors by reason.",
		},
		[]string{"reason"},
	)

	tleDatasetCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "satkit_tle_dataset_satellites",
		Help: "Satellites in the current TLE dataset.",
	})

	tleDatasetAgeSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "satkit_tle_dataset_age_seconds",
		Help: "Age of the current TLE dataset in seconds.",
	})

	propagationWorkersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "satkit_propagation_workers",
		Help: "Configured fleet propagation worker count.",
	})
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		cacheHitsTotal,
		cacheMissesTotal,
		cacheEvictionsTotal,
		cacheEntries,
		cacheSizeBytes,
		cacheGracePeriodActive,
		cacheRegenerationErrorsTotal,
		cacheRegenerationDuration,
		propagationErrorsTotal,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
		tleDatasetCount,
		tleDatasetAgeSeconds,
		propagationWorkersActive,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncCacheHits increments the cache hit counter.
func IncCacheHits() { cacheHitsTotal.Inc() }

// IncCacheMisses increments the cache miss counter.
func IncCacheMisses() { cacheMissesTotal.Inc() }

// AddCacheEvictions adds n to the eviction counter.
func AddCacheEvictions(n int) { cacheEvictionsTotal.Add(float64(n)) }

// SetCacheEntries publishes the current cache entry count.
func SetCacheEntries(n int) { cacheEntries.Set(float64(n)) }

// SetCacheSizeBytes publishes the estimated cache footprint.
func SetCacheSizeBytes(n int64) { cacheSizeBytes.Set(float64(n)) }

// SetCacheGracePeriodActive flags an in-progress cutover rebuild.
func SetCacheGracePeriodActive(active bool) {
	if active {
		cacheGracePeriodActive.Set(1)
	} else {
		cacheGracePeriodActive.Set(0)
	}
}

// IncCacheRegenerationErrors increments the keyframe generation failure counter.
func IncCacheRegenerationErrors() { cacheRegenerationErrorsTotal.Inc() }

// ObserveCacheRegenerationDuration records one keyframe generation duration.
func ObserveCacheRegenerationDuration(d time.Duration) {
	cacheRegenerationDuration.Observe(d.Seconds())
}

// IncPropagationErrors counts a per-satellite propagation failure.
func IncPropagationErrors(reason string) {
	propagationErrorsTotal.WithLabelValues(reason).Inc()
}

// IncStreamConnections counts a stream lifecycle event ("connect"/"disconnect").
func IncStreamConnections(event string) {
	streamConnectionsTotal.WithLabelValues(event).Inc()
}

// IncStreamsActive increments the active stream gauge.
func IncStreamsActive() { streamsActive.Inc() }

// DecStreamsActive decrements the active stream gauge.
func DecStreamsActive() { streamsActive.Dec() }

// IncStreamMessages counts one SSE data message.
func IncStreamMessages() { streamMessagesTotal.Inc() }

// AddStreamBytes adds n to the SSE byte counter.
func AddStreamBytes(n int64) { streamBytesTotal.Add(float64(n)) }

// IncStreamErrors counts a stream error by reason.
func IncStreamErrors(reason string) {
	streamErrorsTotal.WithLabelValues(reason).Inc()
}

// SetTLEDatasetCount publishes the satellite count of the current dataset.
func SetTLEDatasetCount(n int) { tleDatasetCount.Set(float64(n)) }

// SetTLEDatasetAge publishes the current dataset age in seconds.
func SetTLEDatasetAge(seconds float64) { tleDatasetAgeSeconds.Set(seconds) }

// SetPropagationWorkersActive publishes the configured worker count.
func SetPropagationWorkersActive(n int) { propagationWorkersActive.Set(float64(n)) }

// knownRoutes are the exact paths exported as-is. Everything else collapses
// to a parameterized or catch-all label to bound metric cardinality.
var knownRoutes = map[string]bool{
	"/":                              true,
	"/healthz":                       true,
	"/readyz":                        true,
	"/metrics":                       true,
	"/api/v1/test":                   true,
	"/api/v1/tle/metadata":           true,
	"/api/v1/tle/fetch":              true,
	"/api/v1/propagate/test":         true,
	"/api/v1/cache/keyframes/latest": true,
	"/api/v1/cache/keyframes/at":     true,
	"/api/v1/cache/stats":            true,
	"/api/v1/stream/keyframes":       true,
}

// normalizeRoute maps a request path to a bounded metric label.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/propagate/"); ok {
		if _, err := strconv.Atoi(rest); err == nil {
			return "/api/v1/propagate/{norad_id}"
		}
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
