package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ProxyRefresher обновляет пул прокси по расписанию.
type ProxyRefresher interface {
	Refresh(ctx context.Context) error
}

// Schedule — интервалы периодических задач.
type Schedule struct {
	ScrapeEvery       time.Duration
	ProxyRefreshEvery time.Duration
}

// Scheduler запускает цикл сканирования и обновление пула прокси по двум
// независимым расписаниям. Перекрытие циклов гасит сам DealHunter.
type Scheduler struct {
	cron   *cron.Cron
	hunter *DealHunter
	pool   ProxyRefresher

	scrapeSpec  string
	refreshSpec string
}

func NewScheduler(hunter *DealHunter, pool ProxyRefresher, cfg Schedule) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		hunter:      hunter,
		pool:        pool,
		scrapeSpec:  fmt.Sprintf("@every %s", cfg.ScrapeEvery),
		refreshSpec: fmt.Sprintf("@every %s", cfg.ProxyRefreshEvery),
	}
}

// Start регистрирует обе задачи и сразу выполняет первые прогоны, чтобы
// не ждать первого тика после запуска.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.scrapeSpec, func() { s.runCycle(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc scrape: %w", err)
	}

	if _, err := s.cron.AddFunc(s.refreshSpec, func() { s.refreshProxies(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc proxy refresh: %w", err)
	}

	s.cron.Start()
	logger(ctx).Info("🚀 scheduler started", "scrape", s.scrapeSpec, "proxy_refresh", s.refreshSpec)

	go s.refreshProxies(ctx)
	go s.runCycle(ctx)

	return nil
}

// Stop останавливает расписание и дожидается завершения запущенных задач.
func (s *Scheduler) Stop(ctx context.Context) {
	<-s.cron.Stop().Done()
	logger(ctx).Info("scheduler stopped")
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if _, err := s.hunter.RunCycle(ctx); err != nil {
		if errors.Is(err, ErrCycleRunning) {
			logger(ctx).Warn("previous scan cycle is still running, tick skipped")
			return
		}
		logger(ctx).Error("scan cycle failed", "error", err)
	}
}

func (s *Scheduler) refreshProxies(ctx context.Context) {
	if err := s.pool.Refresh(ctx); err != nil {
		logger(ctx).Error("proxy pool refresh failed", "error", err)
	}
}
