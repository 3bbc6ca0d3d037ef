// Command satkitd runs the satellite tracking service: it maintains a TLE
// catalog, propagates the fleet into a rolling keyframe cache, and serves the
// HTTP API and SSE stream.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/star/satkit/internal/api"
	"github.com/star/satkit/internal/auth"
	"github.com/star/satkit/internal/cache"
	"github.com/star/satkit/internal/metrics"
	"github.com/star/satkit/internal/stream"
	"github.com/star/satkit/internal/tle"
)

type tleConfig struct {
	EnableFetch     bool
	SourceURL       string
	ExtraSourceURLs []string
	CacheDir        string
	MaxFiles        int
	MaxAge          time.Duration
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	addr := os.Getenv("SATKIT_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	tleCfg := loadTLEConfig(logger)
	store := tle.NewStore()
	tleCache := tle.NewCache(tleCfg.CacheDir, tleCfg.MaxFiles)
	fetcher := tle.NewFetcher(tleCfg.SourceURL, logger, tleCfg.ExtraSourceURLs...)

	// Attempt to load cached TLE data on startup.
	if data, ts, err := tleCache.LoadLatest(); err != nil {
		logger.Info("no TLE cache found, starting without TLE data", "error", err)
	} else if entries, err := tle.Parse(bytes.NewReader(data), logger); err != nil {
		logger.Warn("failed to parse cached TLE data", "error", err)
	} else if len(entries) > 0 {
		store.Set(tle.NewDataset("cache", ts, entries))
		metrics.SetTLEDatasetCount(len(entries))
		logger.Info("loaded TLE data from cache",
			"count", len(entries),
			"cached_at", ts.Format(time.RFC3339),
		)
	}

	refresh := func(ctx context.Context) error {
		store.Lock()
		defer store.Unlock()

		data, err := fetcher.Fetch(ctx)
		if err != nil {
			return fmt.Errorf("fetching TLE data: %w", err)
		}
		entries, err := tle.Parse(bytes.NewReader(data), logger)
		if err != nil {
			return fmt.Errorf("parsing TLE data: %w", err)
		}
		if len(entries) == 0 {
			return errors.New("fetched TLE data contained no entries")
		}

		now := time.Now().UTC()
		store.Set(tle.NewDataset(fetcher.SourceURL(), now, entries))
		metrics.SetTLEDatasetCount(len(entries))

		if err := tleCache.Write(data, now); err != nil {
			logger.Warn("failed to write TLE cache", "error", err)
		}
		logger.Info("TLE dataset refreshed", "count", len(entries))
		return nil
	}

	workers := loadWorkers(logger)
	fleet := cache.NewFleet(store, workers, logger)
	metrics.SetPropagationWorkersActive(workers)

	cacheCfg := loadCacheConfig(logger)
	kfCache := cache.NewKeyframeCache(cacheCfg, fleet, store, logger)

	streamCfg := loadStreamConfig(logger)
	streamHandler := stream.NewHandler(kfCache, store, streamCfg, logger)

	deps := api.Deps{
		Store:  store,
		Cache:  kfCache,
		Stream: streamHandler,
	}
	if tleCfg.EnableFetch {
		deps.Refresh = refresh
	}
	srv := api.NewServer(addr, logger, authCfg, deps)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start cache background worker.
	go kfCache.Start(ctx)

	// Periodic refresh keeps the dataset younger than MaxAge.
	if tleCfg.EnableFetch {
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					age := store.AgeSeconds()
					if age >= 0 && age < tleCfg.MaxAge.Seconds() {
						continue
					}
					fetchCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
					if err := refresh(fetchCtx); err != nil {
						logger.Warn("scheduled TLE refresh failed", "error", err)
					}
					cancel()
				}
			}
		}()
	}

	// Background goroutine to update TLE dataset age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if age := store.AgeSeconds(); age >= 0 {
					metrics.SetTLEDatasetAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server",
			"addr", addr,
			"auth_enabled", authCfg.Enabled,
			"tle_fetch_enabled", tleCfg.EnableFetch,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("SATKIT_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	if v := os.Getenv("SATKIT_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.New("SATKIT_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("SATKIT_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("SATKIT_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadWorkers(logger *slog.Logger) int {
	workers := runtime.NumCPU()
	if v := os.Getenv("SATKIT_PROP_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SATKIT_PROP_WORKERS value, using default", "value", v, "default", workers)
		} else {
			workers = n
		}
	}
	return workers
}

func loadCacheConfig(logger *slog.Logger) cache.Config {
	cfg := cache.Config{
		Step:        5 * time.Second,
		Horizon:     600 * time.Second,
		GracePeriod: 30 * time.Second,
		Buffer:      60 * time.Second,
	}

	loadSeconds := func(env string, dst *time.Duration) {
		if v := os.Getenv(env); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				logger.Warn("invalid value, using default", "env", env, "value", v)
			} else {
				*dst = time.Duration(n) * time.Second
			}
		}
	}
	loadSeconds("SATKIT_CACHE_STEP", &cfg.Step)
	loadSeconds("SATKIT_CACHE_HORIZON", &cfg.Horizon)
	loadSeconds("SATKIT_CACHE_GRACE_PERIOD", &cfg.GracePeriod)
	loadSeconds("SATKIT_CACHE_BUFFER", &cfg.Buffer)

	logger.Info("cache config",
		"step_seconds", cfg.Step.Seconds(),
		"horizon_seconds", cfg.Horizon.Seconds(),
		"grace_period_seconds", cfg.GracePeriod.Seconds(),
		"buffer_seconds", cfg.Buffer.Seconds(),
	)

	return cfg
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		BandwidthLimit:     1048576,
		KeepaliveInterval:  30 * time.Second,
	}

	if v := os.Getenv("SATKIT_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SATKIT_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("SATKIT_STREAM_BANDWIDTH_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SATKIT_STREAM_BANDWIDTH_LIMIT value, using default", "value", v, "default", 1048576)
		} else {
			cfg.BandwidthLimit = n
		}
	}

	if v := os.Getenv("SATKIT_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SATKIT_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"bandwidth_limit", cfg.BandwidthLimit,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
	)

	return cfg
}

func loadTLEConfig(logger *slog.Logger) tleConfig {
	cfg := tleConfig{
		EnableFetch: true,
		CacheDir:    "/tmp/satkit/tle",
		MaxFiles:    5,
		MaxAge:      24 * time.Hour,
	}

	if v := os.Getenv("SATKIT_ENABLE_TLE_FETCH"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid SATKIT_ENABLE_TLE_FETCH value, defaulting to false", "value", v)
			cfg.EnableFetch = false
		} else {
			cfg.EnableFetch = enabled
		}
	}

	if v := os.Getenv("SATKIT_TLE_SOURCE_URL"); v != "" {
		cfg.SourceURL = v
	}

	if v := os.Getenv("SATKIT_TLE_EXTRA_URLS"); v != "" {
		var urls []string
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		cfg.ExtraSourceURLs = urls
	}

	if v := os.Getenv("SATKIT_TLE_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}

	if v := os.Getenv("SATKIT_TLE_MAX_AGE"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			logger.Warn("invalid SATKIT_TLE_MAX_AGE value, defaulting to 86400", "value", v)
		} else {
			cfg.MaxAge = time.Duration(seconds) * time.Second
		}
	}

	logger.Info("TLE config",
		"source_url", cfg.SourceURL,
		"extra_urls", cfg.ExtraSourceURLs,
		"cache_dir", cfg.CacheDir,
	)

	return cfg
}
