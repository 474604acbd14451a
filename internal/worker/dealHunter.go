package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/xid"

	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/internal/metrics"
	"github.com/bidzhoyandavid/auto-bot/internal/scraper"
	"github.com/bidzhoyandavid/auto-bot/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// ErrCycleRunning возвращается, когда новый цикл запускается
// поверх ещё не завершённого.
var ErrCycleRunning = errors.New("scan cycle is already running")

const (
	// defaultDedupWindow — окно, в течение которого повторные уведомления
	// по одному объявлению подавляются.
	defaultDedupWindow = 24 * time.Hour

	// priceDropPercent — минимальное падение цены для уведомления о
	// снижении (включительно).
	priceDropPercent = 5.0

	// defaultNotifyGap — пауза между последовательными отправками,
	// чтобы не упираться в лимиты Bot API.
	defaultNotifyGap = time.Second

	cacheCleanup = time.Hour
)

type Repository interface {
	Upsert(ctx context.Context, listing *entity.Listing) (*entity.Listing, bool, *float64, error)
	WasNotificationSent(ctx context.Context, listingID int64, within time.Duration) (bool, error)
	RecordNotification(ctx context.Context, listingID int64, reason entity.NotifyReason, messageID *int) error
}

type PriceAnalyzer interface {
	Analyze(ctx context.Context, listing *entity.Listing) (entity.PriceAnalysis, error)
}

type UrgencyDetector interface {
	Analyze(ctx context.Context, listing *entity.Listing) (entity.UrgencyAnalysis, error)
}

type Notifier interface {
	Send(ctx context.Context, deal *entity.Deal) (*int, error)
}

// CycleReport — итог одного цикла сканирования.
type CycleReport struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration

	Scraped  int
	New      int
	Notified int
	Errors   int
}

// DealHunter прогоняет объявления со всех площадок через единый конвейер:
// апсерт в базу, дедупликация, анализ цены и срочности, гейт уведомлений
// и последовательная отправка.
type DealHunter struct {
	repo     Repository
	pricing  PriceAnalyzer
	urgency  UrgencyDetector
	notifier Notifier
	scrapers []scraper.Scraper

	dedupWindow   time.Duration
	dropThreshold float64
	notifyGap     time.Duration

	// recent хранит ID объявлений, по которым уведомление уже уходило,
	// и снимает нагрузку с журнала в базе внутри окна дедупликации.
	recent *cache.Cache

	// Control fields
	mu        sync.Mutex
	criteria  scraper.Criteria
	running   bool
	lastCycle *CycleReport
}

func NewDealHunter(
	repo Repository,
	pricing PriceAnalyzer,
	urgency UrgencyDetector,
	notifier Notifier,
	scrapers []scraper.Scraper,
) *DealHunter {
	return &DealHunter{
		repo:          repo,
		pricing:       pricing,
		urgency:       urgency,
		notifier:      notifier,
		scrapers:      scrapers,
		dedupWindow:   defaultDedupWindow,
		dropThreshold: priceDropPercent,
		notifyGap:     defaultNotifyGap,
		recent:        cache.New(defaultDedupWindow, cacheCleanup),
		criteria: scraper.Criteria{
			Targets:  scraper.DefaultTargets,
			MaxPages: 3,
		},
	}
}

func (h *DealHunter) WithCriteria(criteria scraper.Criteria) *DealHunter {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.criteria = criteria
	return h
}

func (h *DealHunter) WithDedupWindow(window time.Duration) *DealHunter {
	if window > 0 {
		h.dedupWindow = window
		h.recent = cache.New(window, cacheCleanup)
	}
	return h
}

func (h *DealHunter) WithNotifyGap(gap time.Duration) *DealHunter {
	h.notifyGap = gap
	return h
}

// IsRunning возвращает текущий статус
func (h *DealHunter) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// LastCycle возвращает копию итогов последнего завершённого цикла.
func (h *DealHunter) LastCycle() *CycleReport {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.lastCycle == nil {
		return nil
	}

	report := *h.lastCycle
	return &report
}

// RunCycle выполняет один полный цикл: обход площадок, обработку каждого
// объявления и отправку собранных сделок. Ошибки отдельных объявлений и
// площадок изолируются и попадают в отчёт, а не прерывают цикл.
func (h *DealHunter) RunCycle(ctx context.Context) (CycleReport, error) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return CycleReport{}, ErrCycleRunning
	}
	h.running = true
	criteria := h.criteria
	criteria.Targets = append([]scraper.TargetCar(nil), h.criteria.Targets...)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.running = false
		h.mu.Unlock()
	}()

	report := CycleReport{ID: xid.New().String(), StartedAt: time.Now()}
	ctx = contextx.WithLogger(ctx, logger(ctx).With("cycle_id", report.ID))

	logger(ctx).Info("🚀 scan cycle started", "targets", len(criteria.Targets))
	metrics.ScrapeCycles.Inc()

	var deals []*entity.Deal

	for _, src := range h.scrapers {
		if ctx.Err() != nil {
			break
		}

		listings, err := src.Scrape(ctx, criteria)
		if err != nil {
			logger(ctx).Error("scrape failed", "source", string(src.Source()), "error", err)
			report.Errors++
			continue
		}

		metrics.ListingsScraped.WithLabelValues(string(src.Source())).Add(float64(len(listings)))
		report.Scraped += len(listings)

		for i := range listings {
			if ctx.Err() != nil {
				break
			}

			// Остановка по сигналу не должна рвать объявление посередине:
			// апсерт и анализ завершаются, прерываемся между объявлениями.
			deal, isNew, err := h.processListing(context.WithoutCancel(ctx), &listings[i])
			if isNew {
				report.New++
				metrics.ListingsNew.Inc()
			}
			if err != nil {
				logger(ctx).Error("listing processing failed",
					"source", string(listings[i].Source),
					"external_id", listings[i].ExternalID,
					"error", err,
				)
				report.Errors++
				continue
			}

			if deal != nil {
				deals = append(deals, deal)
			}
		}
	}

	report.Notified = h.dispatch(ctx, deals)
	report.Duration = time.Since(report.StartedAt)
	metrics.CycleDuration.Observe(report.Duration.Seconds())

	logger(ctx).Info("✅ scan cycle completed",
		"scraped", report.Scraped,
		"new", report.New,
		"notified", report.Notified,
		"errors", report.Errors,
		"duration", report.Duration.Round(time.Millisecond),
	)

	h.mu.Lock()
	snapshot := report
	h.lastCycle = &snapshot
	h.mu.Unlock()

	return report, nil
}

// processListing проводит одно объявление через апсерт, дедупликацию и
// анализаторы. Возвращает сделку, если объявление прошло гейт, и признак
// того, что объявление попало в базу впервые.
func (h *DealHunter) processListing(ctx context.Context, scraped *entity.Listing) (*entity.Deal, bool, error) {
	stored, isNew, previousPrice, err := h.repo.Upsert(ctx, scraped)
	if err != nil {
		return nil, false, fmt.Errorf("repo.Upsert: %w", err)
	}

	// Дедупликация отсекает повторы до запуска анализаторов:
	// сначала дешёвый кеш, затем журнал в базе.
	key := strconv.FormatInt(stored.ID, 10)
	if _, found := h.recent.Get(key); found {
		return nil, isNew, nil
	}

	sent, err := h.repo.WasNotificationSent(ctx, stored.ID, h.dedupWindow)
	if err != nil {
		return nil, isNew, fmt.Errorf("repo.WasNotificationSent: %w", err)
	}
	if sent {
		h.recent.Set(key, true, cache.DefaultExpiration)
		return nil, isNew, nil
	}

	price, err := h.pricing.Analyze(ctx, stored)
	if err != nil {
		return nil, isNew, fmt.Errorf("pricing.Analyze: %w", err)
	}

	urgency, err := h.urgency.Analyze(ctx, stored)
	if err != nil {
		return nil, isNew, fmt.Errorf("urgency.Analyze: %w", err)
	}

	deal := &entity.Deal{
		Listing:       stored,
		Price:         price,
		Urgency:       urgency,
		IsNew:         isNew,
		PreviousPrice: previousPrice,
	}

	reason, ok := h.gate(deal)
	if !ok {
		return nil, isNew, nil
	}
	deal.Reason = reason

	return deal, isNew, nil
}

// gate решает, заслуживает ли объявление уведомления. Новое объявление
// уведомляет всегда, причина лишь уточняется; по старому уведомляем только
// о заметном падении цены.
func (h *DealHunter) gate(deal *entity.Deal) (entity.NotifyReason, bool) {
	if deal.IsNew {
		switch {
		case deal.Price.IsGoodDeal:
			return entity.ReasonGoodPrice, true
		case deal.Urgency.IsUrgent:
			return entity.ReasonUrgent, true
		default:
			return entity.ReasonNewListing, true
		}
	}

	if deal.PreviousPrice != nil && *deal.PreviousPrice > 0 {
		drop := (*deal.PreviousPrice - deal.Listing.PriceUSD) / *deal.PreviousPrice * 100
		if drop >= h.dropThreshold {
			return entity.ReasonPriceDrop, true
		}
	}

	return "", false
}

// dispatch отправляет сделки строго последовательно с паузой между
// отправками. Неудачная отправка логируется и не блокирует остальные.
func (h *DealHunter) dispatch(ctx context.Context, deals []*entity.Deal) int {
	var sent int

	for i, deal := range deals {
		if ctx.Err() != nil {
			logger(ctx).Warn("dispatch interrupted", "pending", len(deals)-i)
			break
		}

		if i > 0 {
			if err := waitGap(ctx, h.notifyGap); err != nil {
				logger(ctx).Warn("dispatch interrupted", "pending", len(deals)-i)
				break
			}
		}

		sendCtx := context.WithoutCancel(ctx)

		messageID, err := h.notifier.Send(sendCtx, deal)
		if err != nil {
			logger(ctx).Error("❌ notification failed",
				"listing_id", deal.Listing.ID,
				"reason", string(deal.Reason),
				"error", err,
			)
			metrics.NotificationFailures.Inc()
			continue
		}

		metrics.NotificationsSent.WithLabelValues(string(deal.Reason)).Inc()
		sent++

		// Запись в журнал и кеш только после успешной отправки: упавшая
		// отправка не должна оставлять ложную отметку дедупликации.
		if err := h.repo.RecordNotification(sendCtx, deal.Listing.ID, deal.Reason, messageID); err != nil {
			logger(ctx).Error("failed to record notification", "listing_id", deal.Listing.ID, "error", err)
		}
		h.recent.Set(strconv.FormatInt(deal.Listing.ID, 10), true, cache.DefaultExpiration)

		logger(ctx).Info("✅ deal notification sent",
			"listing_id", deal.Listing.ID,
			"reason", string(deal.Reason),
			"car", deal.Listing.CarName(),
			"price_usd", deal.Listing.PriceUSD,
		)
	}

	return sent
}

func waitGap(ctx context.Context, gap time.Duration) error {
	if gap <= 0 {
		return nil
	}

	select {
	case <-time.After(gap):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
