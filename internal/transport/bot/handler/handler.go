package handler

import (
	"context"

	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/internal/worker"
	"github.com/bidzhoyandavid/auto-bot/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// Repository — срезы накопленных данных для команды /stats.
type Repository interface {
	Stats(ctx context.Context) (entity.RepoStats, error)
}

// ProxyPool — состояние пула прокси для команды /status.
type ProxyPool interface {
	Stats() entity.ProxyPoolStats
}

type Handler struct {
	hunter *worker.DealHunter
	repo   Repository
	pool   ProxyPool
}

func New(hunter *worker.DealHunter, repo Repository, pool ProxyPool) *Handler {
	return &Handler{
		hunter: hunter,
		repo:   repo,
		pool:   pool,
	}
}
