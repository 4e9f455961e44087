package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/config"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/events"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/httpapi"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/httpapi/handlers"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/jobqueue"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/orchestrator"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/logger"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/shutdown"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/ports"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/rendercache"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/repositories"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/storage"
)

func main() {
	log := logger.New(logger.Config{
		Level:       config.Env("LOG_LEVEL", "info"),
		Format:      config.Env("LOG_FORMAT", "json"),
		ServiceName: "magic-render",
	})

	cfg := config.Load()
	ctx := context.Background()

	log.Info("starting render service",
		"concurrency", cfg.Concurrency,
		"cache_dir", cfg.CacheDir,
	)

	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	// Postgres is optional; without it components live in memory only.
	var pool *pgxpool.Pool
	var components handlers.ComponentStore = repositories.NewMemoryComponents()
	if cfg.DatabaseURL != "" {
		log.Info("connecting to PostgreSQL")
		p, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.LogFatal("failed to connect to PostgreSQL", err)
		}
		if err := p.Ping(ctx); err != nil {
			log.LogFatal("failed to ping PostgreSQL", err)
		}
		shutdownMgr.RegisterSimple("postgres", p.Close)

		pool = p
		components = repositories.NewComponentRepository(p)
		log.Info("PostgreSQL connected")
	}

	// Redis is optional; without it lifecycle events stay in-process.
	var rdb *redis.Client
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RedisAddr != "" {
		log.Info("connecting to Redis")
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.LogFatal("failed to ping Redis", err)
		}
		shutdownMgr.Register("redis", func(context.Context) error {
			return rdb.Close()
		})

		publisher = events.NewRedisPublisher(rdb, config.Env("EVENTS_CHANNEL", ""), log)
		log.Info("Redis connected")
	}

	cache, err := rendercache.New(cfg.CacheDir, rendercache.Options{
		MaxEntries: cfg.MaxCacheEntries,
		MaxAge:     cfg.MaxCacheAge,
		Log:        log,
	})
	if err != nil {
		log.LogFatal("failed to open artifact cache", err)
	}

	queue := jobqueue.New(jobqueue.Options{
		Concurrency: cfg.Concurrency,
		JobTimeout:  cfg.JobTimeout,
		Log:         log,
	})

	var archive ports.ArchiveStore
	if cfg.ArchiveEnabled {
		archive, err = storage.NewArchiveStore(ctx, cfg)
		if err != nil {
			log.LogFatal("failed to initialize archive store", err)
		}
		log.Info("artifact archive enabled", "provider", archive.Provider())
	}

	orch := orchestrator.New(components, cache, queue, orchestrator.Options{
		WaitTimeout: cfg.WaitTimeout,
		Publisher:   publisher,
		Archive:     archive,
		Log:         log,
	})

	router := httpapi.NewRouter(httpapi.Deps{
		Orchestrator: orch,
		Components:   components,
		Cache:        cache,
		Pool:         pool,
		RDB:          rdb,
		Log:          log,
	})

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}
