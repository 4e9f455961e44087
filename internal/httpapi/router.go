// Package httpapi assembles the HTTP surface of the render service.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/config"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/httpapi/handlers"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/httpkit"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/orchestrator"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/logger"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/middleware"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/rendercache"
)

type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Components   handlers.ComponentStore
	Cache        *rendercache.Cache
	Pool         *pgxpool.Pool
	RDB          *redis.Client
	Log          *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: splitCSV(config.Env("CORS_ALLOWED_ORIGINS", "*")),
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
	}))

	h := handlers.New(handlers.Deps{
		Orchestrator: d.Orchestrator,
		Components:   d.Components,
		Cache:        d.Cache,
		Pool:         d.Pool,
		RDB:          d.RDB,
		Log:          log,
	})

	r.Get("/health", h.Health)

	r.Post("/generate", h.PostGenerate)
	r.Put("/concurrency", h.PutConcurrency)

	r.Post("/components", h.PostComponent)
	r.Get("/components", h.ListComponents)
	r.Get("/components/{componentId}", h.GetComponent)
	r.Delete("/components/{componentId}", h.DeleteComponent)

	r.Get("/cache/stats", h.GetCacheStats)
	r.Delete("/cache", h.ClearCache)
	r.Delete("/cache/components/{componentId}", h.PurgeComponentCache)

	return r
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
