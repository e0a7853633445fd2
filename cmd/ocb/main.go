// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/ocms-builder/internal/cache"
	"github.com/olegiv/ocms-builder/internal/config"
	"github.com/olegiv/ocms-builder/internal/dispatch"
	"github.com/olegiv/ocms-builder/internal/handler/api"
	"github.com/olegiv/ocms-builder/internal/importer"
	"github.com/olegiv/ocms-builder/internal/jobs"
	"github.com/olegiv/ocms-builder/internal/logging"
	"github.com/olegiv/ocms-builder/internal/middleware"
	"github.com/olegiv/ocms-builder/internal/scheduler"
	"github.com/olegiv/ocms-builder/internal/service"
	"github.com/olegiv/ocms-builder/internal/store"
	"github.com/olegiv/ocms-builder/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	buildInfo := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
	if *showVersion {
		fmt.Println(buildInfo.String())
		return
	}

	if err := run(buildInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
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

func run(buildInfo version.Info) error {
	// Load .env file if present; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("starting ocb", "version", buildInfo.String(), "env", cfg.Env)

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Warnings and errors are also persisted to event_log.
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	// Cache: Redis when configured, otherwise (or on failure) in-process memory.
	cacheConfig := cache.DefaultCacheConfig()
	cacheConfig.Prefix = cfg.CachePrefix
	cacheConfig.MaxSize = cfg.CacheMaxSize
	cacheConfig.DefaultTTL = cfg.JobTTLDuration()
	if cfg.UseRedisCache() {
		cacheConfig.Type = cache.CacheBackendRedis
		cacheConfig.RedisURL = cfg.RedisURL
	}
	cacheResult, err := cache.NewCacheWithInfo(cacheConfig)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	if cacheResult.IsFallback {
		slog.Warn("redis unavailable, using memory cache", "category", "cache", "error", cacheResult.Err)
	}
	slog.Info("cache initialized", "backend", cacheResult.BackendType)
	cacher := cacheResult.Cache
	defer func() {
		if err := cacher.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()

	opts := []service.Option{service.WithLogger(logger)}
	public := service.NewPublicPages(db, cacher, cfg.PublicCacheTTLDuration(), opts...)
	pages := service.NewPageService(db, public, opts...)
	versions := service.NewVersionStore(db, opts...)
	locks := service.NewLockManager(db, cfg.LockTTLDuration(), cfg.LockMaxTTLDuration(), opts...)
	publisher := service.NewPublisher(db, public, opts...)
	events := service.NewEventService(db, opts...)

	// Import jobs run on a bounded worker pool and are tracked in the cache.
	dispatcher := dispatch.NewDispatcher(logger, dispatch.Config{
		Workers:   cfg.ImportWorkers,
		QueueSize: cfg.ImportQueueSize,
	})
	dispatcher.Start(context.Background())

	tracker := jobs.NewTracker(cacher, importer.JobKind, cfg.JobTTLDuration(), jobs.WithLogger(logger))
	var fetcher importer.Fetcher = importer.PlaceholderFetcher{}
	if cfg.ImportRemoteFetch {
		fetcher = importer.NewHTTPFetcher(importer.HTTPFetcherOptions{})
		slog.Info("remote design fetching enabled")
	}
	worker := importer.NewWorker(tracker, fetcher, cfg.ImportStepDelay(), logger)
	imports := importer.NewService(tracker, dispatcher, worker, logger)

	sched := scheduler.New(publisher, locks, events, cfg.EventRetention(), logger)
	if err := sched.Start(); err != nil {
		dispatcher.Stop()
		return fmt.Errorf("starting scheduler: %w", err)
	}

	apiHandler := api.NewHandler(db, cacher, api.Services{
		Pages:     pages,
		Versions:  versions,
		Locks:     locks,
		Publisher: publisher,
		Public:    public,
		Events:    events,
		Imports:   imports,

		ImportQueue: dispatcher,
	}, logger)
	apiHandler.SetBuildInfo(buildInfo)

	router := apiHandler.Router(api.RouterConfig{
		IsDevelopment: cfg.IsDevelopment(),
		AccessLog:     cfg.IsDevelopment(),
		PublicLimiter: middleware.NewIPRateLimiter(cfg.PublicRateLimit, cfg.PublicRateBurst, logger),
		CORSOrigins:   cfg.CORSOrigins,
	})
	slog.Info("REST API v1 mounted at /api/v1")

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		sched.Stop()
		dispatcher.Stop()
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeoutDuration())
	defer cancel()

	shutdownErr := srv.Shutdown(ctx)

	// No new requests can arrive; let scheduled work and queued imports finish.
	sched.Stop()
	dispatcher.Stop()

	if shutdownErr != nil {
		return fmt.Errorf("server shutdown: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}
