package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/satkit/internal/auth"
	"github.com/star/satkit/internal/cache"
	"github.com/star/satkit/internal/health"
	"github.com/star/satkit/internal/metrics"
	"github.com/star/satkit/internal/stream"
	"github.com/star/satkit/internal/tle"
)

// Deps holds the services the HTTP API exposes. Nil fields disable the
// corresponding routes, which keeps the server constructible in tests.
type Deps struct {
	Store   *tle.Store
	Cache   *cache.KeyframeCache
	Stream  *stream.Handler
	Refresh RefreshFunc
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, deps Deps) *Server {
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/test", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	mux.HandleFunc("GET /api/v1/propagate/test", propagateTestHandler())

	if deps.Store != nil {
		mux.HandleFunc("GET /api/v1/tle/metadata", tleMetadataHandler(deps.Store))
		mux.HandleFunc("POST /api/v1/tle/fetch", tleFetchHandler(logger, deps.Refresh))
		mux.HandleFunc("GET /api/v1/propagate/{norad_id}", propagateSingleHandler(logger, deps.Store))
	}
	if deps.Cache != nil {
		mux.HandleFunc("GET /api/v1/cache/keyframes/latest", cacheLatestHandler(deps.Cache))
		mux.HandleFunc("GET /api/v1/cache/keyframes/at", cacheAtHandler(deps.Cache))
		mux.HandleFunc("GET /api/v1/cache/stats", cacheStatsHandler(deps.Cache))
	}
	if deps.Stream != nil {
		mux.HandleFunc("GET /api/v1/stream/keyframes", deps.Stream.HandleKeyframes)
	}

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
