package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/collisions-dashboard/internal/adapter/http"
	"github.com/couchcryptid/collisions-dashboard/internal/adapter/mapbox"
	redisadapter "github.com/couchcryptid/collisions-dashboard/internal/adapter/redis"
	"github.com/couchcryptid/collisions-dashboard/internal/config"
	"github.com/couchcryptid/collisions-dashboard/internal/dashboard"
	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	"github.com/couchcryptid/collisions-dashboard/internal/loader"
	"github.com/couchcryptid/collisions-dashboard/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if code := run(ctx, stop, cfg, logger, metrics); code != 0 {
		stop()
		os.Exit(code)
	}
}

// run serves the dashboard until ctx is cancelled. Deferred cleanup runs
// before the exit code reaches main.
func run(ctx context.Context, stop context.CancelFunc, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) int {
	// Persisted snapshots (feature-flagged via REDIS_ENABLED).
	var store loader.SnapshotStore
	var snapshots *redisadapter.SnapshotStore
	if cfg.RedisEnabled {
		rdb, err := redisadapter.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			return 1
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error("redis close error", "error", err)
			}
		}()
		snapshots = redisadapter.NewSnapshotStore(rdb, cfg.SnapshotTTL)
		store = snapshots
		logger.Info("redis snapshots enabled", "addr", cfg.RedisAddr, "ttl", cfg.SnapshotTTL)
	}

	// Midpoint labels (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var places domain.PlaceResolver
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		places = mapbox.NewCachedResolver(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	tables := loader.NewCache(loader.NewFileSource(cfg.CSVPath), store, cfg.CacheMaxEntries, logger, metrics)
	svc := dashboard.New(tables, cfg.RowLimit, places, logger, metrics)
	if snapshots != nil {
		svc.AddDependency("redis", snapshots)
	}

	// A missing or malformed CSV is fatal at startup.
	if err := svc.Warm(ctx); err != nil {
		logger.Error("failed to load collisions", "path", cfg.CSVPath, "error", err)
		return 1
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, httpadapter.MapOptions{
		Style: cfg.MapStyle,
		Token: cfg.MapboxToken,
	}, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return 0
}
