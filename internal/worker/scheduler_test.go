package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/value"
	"github.com/bidzhoyandavid/auto-bot/internal/worker"
)

type fakeRefresher struct {
	calls atomic.Int64
}

func (f *fakeRefresher) Refresh(context.Context) error {
	f.calls.Add(1)
	return nil
}

func TestSchedulerRunsImmediately(t *testing.T) {
	rq := require.New(t)

	repo := newFakeRepo()
	repo.isNew = true
	notifier := &fakeNotifier{}
	src := &fakeScraper{source: value.SourceListAm, listings: []entity.Listing{carListing("1", 14000)}}

	h := newHunter(repo, &fakePricing{}, &fakeUrgency{}, notifier, src)
	refresher := &fakeRefresher{}

	s := worker.NewScheduler(h, refresher, worker.Schedule{
		ScrapeEvery:       time.Hour,
		ProxyRefreshEvery: time.Hour,
	})

	rq.NoError(s.Start(context.Background()))
	defer s.Stop(context.Background())

	// Первые прогоны стартуют сразу, не дожидаясь тика расписания.
	rq.Eventually(func() bool {
		return h.LastCycle() != nil && refresher.calls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	last := h.LastCycle()
	rq.Equal(1, last.Scraped)
	rq.Equal(1, last.Notified)
}

func TestSchedulerTicks(t *testing.T) {
	rq := require.New(t)

	repo := newFakeRepo()
	src := &fakeScraper{source: value.SourceListAm}
	h := newHunter(repo, &fakePricing{}, &fakeUrgency{}, &fakeNotifier{}, src)
	refresher := &fakeRefresher{}

	// Интервалы меньше секунды cron округляет вверх до секунды.
	s := worker.NewScheduler(h, refresher, worker.Schedule{
		ScrapeEvery:       time.Second,
		ProxyRefreshEvery: time.Second,
	})

	rq.NoError(s.Start(context.Background()))

	rq.Eventually(func() bool {
		return src.calls.Load() >= 2 && refresher.calls.Load() >= 2
	}, 5*time.Second, 20*time.Millisecond)

	s.Stop(context.Background())

	// После остановки новые тики не приходят.
	stopped := src.calls.Load()
	time.Sleep(1500 * time.Millisecond)
	rq.Equal(stopped, src.calls.Load())
}
