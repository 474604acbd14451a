package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/value"
	"github.com/bidzhoyandavid/auto-bot/internal/scraper"
	"github.com/bidzhoyandavid/auto-bot/internal/worker"
)

type recordedNotification struct {
	listingID int64
	reason    entity.NotifyReason
	messageID *int
}

type fakeRepo struct {
	mu     sync.Mutex
	ids    map[string]int64
	nextID int64

	isNew         bool
	previousPrice *float64
	alreadySent   bool

	upsertErr    error
	upsertErrFor string

	upserts    int
	sentChecks int
	records    []recordedNotification
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{ids: map[string]int64{}}
}

func (r *fakeRepo) Upsert(_ context.Context, listing *entity.Listing) (*entity.Listing, bool, *float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.upsertErr != nil && (r.upsertErrFor == "" || r.upsertErrFor == listing.ExternalID) {
		return nil, false, nil, r.upsertErr
	}

	r.upserts++

	// Одно и то же объявление получает стабильный ID между циклами.
	key := string(listing.Source) + "/" + listing.ExternalID
	id, ok := r.ids[key]
	if !ok {
		r.nextID++
		id = r.nextID
		r.ids[key] = id
	}

	stored := *listing
	stored.ID = id
	return &stored, r.isNew, r.previousPrice, nil
}

func (r *fakeRepo) WasNotificationSent(_ context.Context, _ int64, _ time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sentChecks++
	return r.alreadySent, nil
}

func (r *fakeRepo) RecordNotification(_ context.Context, listingID int64, reason entity.NotifyReason, messageID *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, recordedNotification{listingID: listingID, reason: reason, messageID: messageID})
	return nil
}

type fakePricing struct {
	calls    atomic.Int64
	goodDeal bool
	err      error
}

func (p *fakePricing) Analyze(_ context.Context, listing *entity.Listing) (entity.PriceAnalysis, error) {
	p.calls.Add(1)
	if p.err != nil {
		return entity.PriceAnalysis{}, p.err
	}
	return entity.PriceAnalysis{
		ListingID:    listing.ID,
		CurrentPrice: listing.PriceUSD,
		IsGoodDeal:   p.goodDeal,
	}, nil
}

type fakeUrgency struct {
	calls  atomic.Int64
	urgent bool
	err    error
}

func (u *fakeUrgency) Analyze(_ context.Context, listing *entity.Listing) (entity.UrgencyAnalysis, error) {
	u.calls.Add(1)
	if u.err != nil {
		return entity.UrgencyAnalysis{}, u.err
	}
	return entity.UrgencyAnalysis{ListingID: listing.ID, IsUrgent: u.urgent}, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	err     error
	errFor  int64
	nextMsg int

	attempts int
	sent     []int64
	reasons  []entity.NotifyReason

	active  atomic.Int32
	overlap atomic.Bool

	startedOnce sync.Once
	started     chan struct{}
	release     chan struct{}
}

func (n *fakeNotifier) Send(_ context.Context, deal *entity.Deal) (*int, error) {
	if n.active.Add(1) > 1 {
		n.overlap.Store(true)
	}
	defer n.active.Add(-1)

	if n.started != nil {
		n.startedOnce.Do(func() { close(n.started) })
	}
	if n.release != nil {
		<-n.release
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.attempts++
	if n.err != nil && (n.errFor == 0 || n.errFor == deal.Listing.ID) {
		return nil, n.err
	}

	n.sent = append(n.sent, deal.Listing.ID)
	n.reasons = append(n.reasons, deal.Reason)
	n.nextMsg++
	msg := n.nextMsg
	return &msg, nil
}

func (n *fakeNotifier) sentIDs() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int64(nil), n.sent...)
}

type fakeScraper struct {
	source   value.Source
	listings []entity.Listing
	err      error

	calls    atomic.Int64
	criteria scraper.Criteria
}

func (s *fakeScraper) Source() value.Source { return s.source }

func (s *fakeScraper) Scrape(_ context.Context, criteria scraper.Criteria) ([]entity.Listing, error) {
	s.calls.Add(1)
	s.criteria = criteria
	if s.err != nil {
		return nil, s.err
	}
	return s.listings, nil
}

func carListing(externalID string, priceUSD float64) entity.Listing {
	return entity.Listing{
		Source:           value.SourceListAm,
		ExternalID:       externalID,
		URL:              "https://www.list.am/item/" + externalID,
		Make:             "BMW",
		Model:            lo.ToPtr("X5"),
		Year:             lo.ToPtr(2021),
		PriceUSD:         priceUSD,
		PriceOriginal:    priceUSD,
		CurrencyOriginal: value.CurrencyUSD,
		Title:            "BMW X5 2021",
	}
}

func newHunter(
	repo *fakeRepo,
	pricing *fakePricing,
	urgency *fakeUrgency,
	notifier *fakeNotifier,
	scrapers ...scraper.Scraper,
) *worker.DealHunter {
	return worker.
		NewDealHunter(repo, pricing, urgency, notifier, scrapers).
		WithNotifyGap(time.Millisecond)
}

func TestRunCycleNewListingNotifies(t *testing.T) {
	rq := require.New(t)

	repo := newFakeRepo()
	repo.isNew = true
	notifier := &fakeNotifier{}
	src := &fakeScraper{source: value.SourceListAm, listings: []entity.Listing{carListing("100", 14000)}}

	h := newHunter(repo, &fakePricing{}, &fakeUrgency{}, notifier, src)

	report, err := h.RunCycle(context.Background())
	rq.NoError(err)

	rq.NotEmpty(report.ID)
	rq.Equal(1, report.Scraped)
	rq.Equal(1, report.New)
	rq.Equal(1, report.Notified)
	rq.Zero(report.Errors)

	// Без сигналов выгодной цены и срочности новое объявление всё равно
	// уведомляет, причина — new_listing.
	rq.Equal([]entity.NotifyReason{entity.ReasonNewListing}, notifier.reasons)

	rq.Len(repo.records, 1)
	rq.Equal(entity.ReasonNewListing, repo.records[0].reason)
	rq.NotNil(repo.records[0].messageID)
	rq.Equal(1, *repo.records[0].messageID)

	last := h.LastCycle()
	rq.NotNil(last)
	rq.Equal(report.ID, last.ID)
	rq.False(h.IsRunning())
}

func TestRunCycleReasonPriority(t *testing.T) {
	testCases := []struct {
		name     string
		goodDeal bool
		urgent   bool
		want     entity.NotifyReason
	}{
		{name: "good price beats urgency", goodDeal: true, urgent: true, want: entity.ReasonGoodPrice},
		{name: "urgent when price is ordinary", goodDeal: false, urgent: true, want: entity.ReasonUrgent},
		{name: "plain new listing", goodDeal: false, urgent: false, want: entity.ReasonNewListing},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			repo := newFakeRepo()
			repo.isNew = true
			notifier := &fakeNotifier{}
			src := &fakeScraper{source: value.SourceListAm, listings: []entity.Listing{carListing("1", 14000)}}

			h := newHunter(repo, &fakePricing{goodDeal: tc.goodDeal}, &fakeUrgency{urgent: tc.urgent}, notifier, src)

			report, err := h.RunCycle(context.Background())
			rq.NoError(err)
			rq.Equal(1, report.Notified)
			rq.Equal([]entity.NotifyReason{tc.want}, notifier.reasons)
		})
	}
}

func TestRunCyclePriceDropGate(t *testing.T) {
	testCases := []struct {
		name       string
		price      float64
		wantNotify bool
	}{
		{name: "drop of exactly 5 percent notifies", price: 9500, wantNotify: true},
		{name: "drop below threshold stays silent", price: 9510, wantNotify: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			repo := newFakeRepo()
			repo.previousPrice = lo.ToPtr(10000.0)
			pricing := &fakePricing{}
			urgency := &fakeUrgency{}
			notifier := &fakeNotifier{}
			src := &fakeScraper{source: value.SourceListAm, listings: []entity.Listing{carListing("1", tc.price)}}

			h := newHunter(repo, pricing, urgency, notifier, src)

			report, err := h.RunCycle(context.Background())
			rq.NoError(err)

			// Анализаторы выполняются в любом случае, гейт решает позже.
			rq.Equal(int64(1), pricing.calls.Load())
			rq.Equal(int64(1), urgency.calls.Load())

			if tc.wantNotify {
				rq.Equal(1, report.Notified)
				rq.Equal([]entity.NotifyReason{entity.ReasonPriceDrop}, notifier.reasons)
			} else {
				rq.Zero(report.Notified)
				rq.Empty(notifier.reasons)
			}
		})
	}
}

func TestRunCycleDedupCacheSkipsAnalyzers(t *testing.T) {
	rq := require.New(t)

	repo := newFakeRepo()
	repo.isNew = true
	pricing := &fakePricing{}
	urgency := &fakeUrgency{}
	notifier := &fakeNotifier{}
	src := &fakeScraper{source: value.SourceListAm, listings: []entity.Listing{carListing("42", 14000)}}

	h := newHunter(repo, pricing, urgency, notifier, src)

	// Первый цикл уведомляет и прогревает кеш обработанных объявлений.
	_, err := h.RunCycle(context.Background())
	rq.NoError(err)
	rq.Len(notifier.sentIDs(), 1)
	rq.Equal(1, repo.sentChecks)

	// Второй цикл: то же объявление срезается кешем до анализаторов,
	// журнала и отправки — даже при упавшей цене.
	repo.isNew = false
	repo.previousPrice = lo.ToPtr(20000.0)

	report, err := h.RunCycle(context.Background())
	rq.NoError(err)

	rq.Zero(report.Notified)
	rq.Equal(int64(1), pricing.calls.Load())
	rq.Equal(int64(1), urgency.calls.Load())
	rq.Equal(1, repo.sentChecks)
	rq.Len(notifier.sentIDs(), 1)
}

func TestRunCycleDedupLedgerSkipsAnalyzers(t *testing.T) {
	rq := require.New(t)

	// Кеш холодный, но журнал в базе уже содержит свежую запись:
	// падение цены на 30% внутри окна всё равно не уведомляет.
	repo := newFakeRepo()
	repo.alreadySent = true
	repo.previousPrice = lo.ToPtr(20000.0)
	pricing := &fakePricing{}
	urgency := &fakeUrgency{}
	notifier := &fakeNotifier{}
	src := &fakeScraper{source: value.SourceListAm, listings: []entity.Listing{carListing("42", 14000)}}

	h := newHunter(repo, pricing, urgency, notifier, src)

	report, err := h.RunCycle(context.Background())
	rq.NoError(err)

	rq.Zero(report.Notified)
	rq.Equal(1, repo.sentChecks)
	rq.Zero(pricing.calls.Load())
	rq.Zero(urgency.calls.Load())
	rq.Empty(notifier.sentIDs())
}

func TestRunCycleNotifierFailureLeavesNoDedupMark(t *testing.T) {
	rq := require.New(t)

	repo := newFakeRepo()
	repo.isNew = true
	notifier := &fakeNotifier{err: errors.New("telegram: 429"), errFor: 1}
	src := &fakeScraper{source: value.SourceListAm, listings: []entity.Listing{
		carListing("1", 14000),
		carListing("2", 15000),
	}}

	h := newHunter(repo, &fakePricing{}, &fakeUrgency{}, notifier, src)

	report, err := h.RunCycle(context.Background())
	rq.NoError(err)

	// Первая отправка упала, вторая прошла и не была заблокирована.
	rq.Equal(2, notifier.attempts)
	rq.Equal(1, report.Notified)
	rq.Len(repo.records, 1)
	rq.Equal(int64(2), repo.records[0].listingID)

	// Ложной отметки дедупликации нет: следующий цикл повторяет попытку
	// по упавшему объявлению, когда то снова проходит гейт.
	notifier.err = nil
	repo.isNew = false
	repo.previousPrice = lo.ToPtr(20000.0)

	report, err = h.RunCycle(context.Background())
	rq.NoError(err)
	rq.Equal(1, report.Notified)
	rq.Equal([]int64{2, 1}, notifier.sentIDs())
	rq.Equal(entity.ReasonPriceDrop, notifier.reasons[1])
}

func TestRunCycleScraperFailureIsolated(t *testing.T) {
	rq := require.New(t)

	repo := newFakeRepo()
	repo.isNew = true
	notifier := &fakeNotifier{}
	bad := &fakeScraper{source: value.SourceListAm, err: errors.New("blocked by site")}
	good := &fakeScraper{source: value.SourceMyAutoGe, listings: []entity.Listing{carListing("7", 14000)}}

	h := newHunter(repo, &fakePricing{}, &fakeUrgency{}, notifier, bad, good)

	report, err := h.RunCycle(context.Background())
	rq.NoError(err)

	rq.Equal(1, report.Errors)
	rq.Equal(1, report.Scraped)
	rq.Equal(1, report.Notified)
	rq.Equal(int64(1), good.calls.Load())
}

func TestRunCycleUpsertFailureIsolated(t *testing.T) {
	rq := require.New(t)

	repo := newFakeRepo()
	repo.isNew = true
	repo.upsertErr = errors.New("constraint violation")
	repo.upsertErrFor = "bad"
	notifier := &fakeNotifier{}
	src := &fakeScraper{source: value.SourceListAm, listings: []entity.Listing{
		carListing("bad", 14000),
		carListing("good", 15000),
	}}

	h := newHunter(repo, &fakePricing{}, &fakeUrgency{}, notifier, src)

	report, err := h.RunCycle(context.Background())
	rq.NoError(err)

	rq.Equal(1, report.Errors)
	rq.Equal(1, report.New)
	rq.Equal(1, report.Notified)
	rq.Equal(1, repo.upserts)
}

func TestRunCycleOverlapReturnsError(t *testing.T) {
	rq := require.New(t)

	repo := newFakeRepo()
	repo.isNew = true
	started := make(chan struct{})
	release := make(chan struct{})
	notifier := &fakeNotifier{started: started, release: release}
	src := &fakeScraper{source: value.SourceListAm, listings: []entity.Listing{carListing("1", 14000)}}

	h := newHunter(repo, &fakePricing{}, &fakeUrgency{}, notifier, src)

	type result struct {
		report worker.CycleReport
		err    error
	}
	done := make(chan result, 1)

	go func() {
		report, err := h.RunCycle(context.Background())
		done <- result{report: report, err: err}
	}()

	<-started
	rq.True(h.IsRunning())

	_, err := h.RunCycle(context.Background())
	rq.ErrorIs(err, worker.ErrCycleRunning)

	close(release)
	first := <-done
	rq.NoError(first.err)
	rq.Equal(1, first.report.Notified)
	rq.False(h.IsRunning())
}

func TestDispatchSequentialOrder(t *testing.T) {
	rq := require.New(t)

	repo := newFakeRepo()
	repo.isNew = true
	notifier := &fakeNotifier{}
	src := &fakeScraper{source: value.SourceListAm, listings: []entity.Listing{
		carListing("a", 14000),
		carListing("b", 15000),
		carListing("c", 16000),
	}}

	h := newHunter(repo, &fakePricing{}, &fakeUrgency{}, notifier, src)

	report, err := h.RunCycle(context.Background())
	rq.NoError(err)
	rq.Equal(3, report.Notified)

	// Отправки идут строго последовательно и в порядке обхода.
	rq.Equal([]int64{1, 2, 3}, notifier.sentIDs())
	rq.False(notifier.overlap.Load())
}

func TestRunCycleUsesCriteria(t *testing.T) {
	rq := require.New(t)

	src := &fakeScraper{source: value.SourceListAm}

	criteria := scraper.Criteria{
		Targets:     []scraper.TargetCar{{Make: "BMW", Model: "X5"}},
		MinYear:     2020,
		MaxPriceUSD: 20000,
		MaxPages:    2,
	}

	h := newHunter(newFakeRepo(), &fakePricing{}, &fakeUrgency{}, &fakeNotifier{}, src).
		WithCriteria(criteria)

	_, err := h.RunCycle(context.Background())
	rq.NoError(err)

	rq.Equal(criteria.Targets, src.criteria.Targets)
	rq.Equal(2020, src.criteria.MinYear)
	rq.Equal(20000, src.criteria.MaxPriceUSD)
	rq.Equal(2, src.criteria.MaxPages)
}

func TestTargetListManagement(t *testing.T) {
	rq := require.New(t)

	h := worker.NewDealHunter(nil, nil, nil, nil, nil)

	bmw := scraper.TargetCar{Make: "BMW", Model: "X5"}
	audi := scraper.TargetCar{Make: "Audi", Model: "Q7"}

	h.SetTargets([]scraper.TargetCar{bmw})
	rq.True(h.HasTarget(bmw))

	// Повторное добавление не создаёт дубликата.
	h.AddTarget(bmw)
	rq.Len(h.Targets(), 1)

	h.AddTarget(audi)
	rq.Equal([]scraper.TargetCar{bmw, audi}, h.Targets())

	// Снаружи список менять нельзя: возвращается копия.
	got := h.Targets()
	got[0] = scraper.TargetCar{Make: "Hacked"}
	rq.True(h.HasTarget(bmw))

	h.RemoveTarget(bmw)
	rq.False(h.HasTarget(bmw))
	rq.Equal([]scraper.TargetCar{audi}, h.Targets())

	h.SetTargets(nil)
	rq.Nil(h.Targets())
}
