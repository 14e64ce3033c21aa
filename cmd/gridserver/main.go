package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/karttaworks/tile-grid-cache/internal/cache/gridcache"
	"github.com/karttaworks/tile-grid-cache/internal/cache/redisstore"
	"github.com/karttaworks/tile-grid-cache/internal/core/config"
	"github.com/karttaworks/tile-grid-cache/internal/core/observability"
	"github.com/karttaworks/tile-grid-cache/internal/core/server"
	"github.com/karttaworks/tile-grid-cache/internal/datastore/postgis"
	"github.com/karttaworks/tile-grid-cache/internal/gridservice"
	"github.com/karttaworks/tile-grid-cache/internal/logger"
	"github.com/karttaworks/tile-grid-cache/internal/metrics"
	"github.com/karttaworks/tile-grid-cache/internal/throttle"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "gridserver",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	prom := metrics.Init()
	observability.Init(prom.Registerer())
	observability.ExposeBuildInfo(Version)

	appLog.Info("starting gridserver",
		"addr", cfg.Addr,
		"version", Version,
		"redis", cfg.RedisAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rc, err := redisstore.New(ctx, cfg.RedisAddr,
		redisstore.WithReadTimeout(cfg.CacheOpTimeout),
		redisstore.WithWriteTimeout(cfg.CacheOpTimeout),
	)
	if err != nil {
		appLog.Error("redis client", "err", err)
		return 1
	}
	defer func() { _ = rc.Close() }()

	db, err := postgis.New(ctx, cfg.DatabaseURL)
	if err != nil {
		appLog.Error("postgis pool", "err", err)
		return 1
	}
	defer db.Close()

	store := gridcache.New(rc, gridcache.TTLConfig{
		Content:   cfg.ContentTTL,
		TileIndex: cfg.TileIndexTTL,
	}, cfg.ContentLRUSize, appLog)

	th := throttle.New(throttle.WithDelays(cfg.ThrottleBaseDelay, cfg.ThrottleMaxDelay))

	svc := gridservice.New(store, postgis.NewSource(db), th, appLog)

	if err := server.Run(ctx, cfg, appLog, svc, prom); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
