package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/sentinel/orbitgo/internal/api"
	"github.com/sentinel/orbitgo/internal/cache"
	"github.com/sentinel/orbitgo/internal/catalog"
	"github.com/sentinel/orbitgo/internal/conjunction"
	"github.com/sentinel/orbitgo/internal/maneuver"
	"github.com/sentinel/orbitgo/internal/metrics"
	"github.com/sentinel/orbitgo/internal/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	addr := os.Getenv("ORBITGO_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	// Seed the catalog at startup. The seed is logged so any session can be
	// reproduced exactly.
	seedCfg := loadSeedConfig(logger)
	store := catalog.NewStore()
	cat := catalog.SeedStore(store, seedCfg.Seed, seedCfg.Satellites, seedCfg.Debris)
	metrics.SetCatalogObjects(seedCfg.Satellites, seedCfg.Debris)
	logger.Info("catalog seeded",
		"seed", seedCfg.Seed,
		"satellites", seedCfg.Satellites,
		"debris", seedCfg.Debris,
		"seeded_at", cat.SeededAt.UTC().Format(time.RFC3339),
	)

	detCfg := loadDetectorConfig(logger)
	detector := conjunction.NewDetector(store, detCfg, nil, logger)
	metrics.SetPropagationWorkersActive(detCfg.Workers)

	planner := maneuver.NewPlanner(store, nil)

	cacheCfg := loadCacheConfig(logger)
	frames := cache.NewFrameCache(cacheCfg, detector, store, logger)

	streamCfg := loadStreamConfig(logger)
	streamHandler := stream.NewHandler(frames, store, streamCfg, logger)

	srv := api.NewServer(addr, logger, store, detector, planner, frames, streamHandler)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start cache background worker.
	go frames.Start(ctx)

	// Background goroutine to update the catalog age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				age := store.AgeSeconds()
				if age >= 0 {
					metrics.SetCatalogAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server", "addr", addr)
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

// seedConfig holds catalog seeding configuration.
type seedConfig struct {
	Seed       int64
	Satellites int
	Debris     int
}

func loadSeedConfig(logger *slog.Logger) seedConfig {
	cfg := seedConfig{
		Seed:       time.Now().UnixNano(),
		Satellites: catalog.DefaultSatellites,
		Debris:     catalog.DefaultDebris,
	}

	if v := os.Getenv("ORBITGO_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			logger.Warn("invalid ORBITGO_SEED value, using time-based seed", "value", v)
		} else {
			cfg.Seed = n
		}
	}

	if v := os.Getenv("ORBITGO_SATELLITES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			logger.Warn("invalid ORBITGO_SATELLITES value, using default", "value", v, "default", cfg.Satellites)
		} else {
			cfg.Satellites = n
		}
	}

	if v := os.Getenv("ORBITGO_DEBRIS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			logger.Warn("invalid ORBITGO_DEBRIS value, using default", "value", v, "default", cfg.Debris)
		} else {
			cfg.Debris = n
		}
	}

	return cfg
}

func loadDetectorConfig(logger *slog.Logger) conjunction.Config {
	cfg := conjunction.Config{
		Workers: runtime.NumCPU(),
	}

	if v := os.Getenv("ORBITGO_PROP_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITGO_PROP_WORKERS value, using default", "value", v, "default", cfg.Workers)
		} else {
			cfg.Workers = n
		}
	}

	logger.Info("detector config", "workers", cfg.Workers)

	return cfg
}

func loadCacheConfig(logger *slog.Logger) cache.Config {
	cfg := cache.Config{
		Step:        5 * time.Second,
		Horizon:     600 * time.Second,
		GracePeriod: 30 * time.Second,
		Buffer:      60 * time.Second,
	}

	if v := os.Getenv("ORBITGO_CACHE_STEP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITGO_CACHE_STEP value, using default", "value", v, "default", 5)
		} else {
			cfg.Step = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("ORBITGO_CACHE_HORIZON"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITGO_CACHE_HORIZON value, using default", "value", v, "default", 600)
		} else {
			cfg.Horizon = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("ORBITGO_CACHE_GRACE_PERIOD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITGO_CACHE_GRACE_PERIOD value, using default", "value", v, "default", 30)
		} else {
			cfg.GracePeriod = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("ORBITGO_CACHE_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITGO_CACHE_BUFFER value, using default", "value", v, "default", 60)
		} else {
			cfg.Buffer = time.Duration(n) * time.Second
		}
	}

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
		KeepaliveInterval:  30 * time.Second,
	}

	if v := os.Getenv("ORBITGO_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITGO_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("ORBITGO_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITGO_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("ORBITGO_STREAM_TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid ORBITGO_STREAM_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = b
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}
