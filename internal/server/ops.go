package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/internal/worker"
	"github.com/bidzhoyandavid/auto-bot/pkg/httpx/reply"
)

type statsProvider interface {
	Stats(ctx context.Context) (entity.RepoStats, error)
}

type cycleStatus interface {
	LastCycle() *worker.CycleReport
	IsRunning() bool
}

type proxyPool interface {
	Stats() entity.ProxyPoolStats
	Snapshot() []entity.Proxy
}

// OpsServer отдаёт операторские срезы состояния: сводку по базе,
// последний цикл и пул прокси.
type OpsServer struct {
	repo   statsProvider
	cycles cycleStatus
	pool   proxyPool
}

func NewOpsServer(repo statsProvider, cycles cycleStatus, pool proxyPool) OpsServer {
	return OpsServer{
		repo:   repo,
		cycles: cycles,
		pool:   pool,
	}
}

// getLiveness отвечает внешним аптайм-проверкам.
func (s OpsServer) getLiveness(w http.ResponseWriter, _ *http.Request) error {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("running")) //nolint:errcheck

	return nil
}

func (s OpsServer) getV1Stats(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return fmt.Errorf("repo.Stats: %w", err)
	}

	report := newRESTStatusReport(stats, s.cycles.LastCycle(), s.cycles.IsRunning())
	reply.JSON(ctx, w, http.StatusOK, report)

	return nil
}

func (s OpsServer) getV1Proxies(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	report := newRESTProxyPoolReport(s.pool.Stats(), s.pool.Snapshot())
	reply.JSON(ctx, w, http.StatusOK, report)

	return nil
}
