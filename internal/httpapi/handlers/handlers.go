// Package handlers implements the HTTP endpoints of the render service.
package handlers

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/component"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/orchestrator"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/logger"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/rendercache"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/repositories"
)

// ComponentStore is the component persistence surface the API needs.
// Satisfied by the Postgres repository and the in-memory store.
type ComponentStore interface {
	Create(ctx context.Context, d *component.Descriptor) error
	List(ctx context.Context) ([]repositories.ComponentSummary, error)
	Get(ctx context.Context, id string) (*component.Descriptor, error)
	Delete(ctx context.Context, id string) error
}

type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Components   ComponentStore
	Cache        *rendercache.Cache

	// Pool and RDB are optional; when present the deep health check
	// pings them.
	Pool *pgxpool.Pool
	RDB  *redis.Client

	Log *logger.Logger
}

type Handler struct {
	orch       *orchestrator.Orchestrator
	components ComponentStore
	cache      *rendercache.Cache
	pool       *pgxpool.Pool
	rdb        *redis.Client
	log        *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		orch:       d.Orchestrator,
		components: d.Components,
		cache:      d.Cache,
		pool:       d.Pool,
		rdb:        d.RDB,
		log:        log.WithComponent("httpapi"),
	}
}
