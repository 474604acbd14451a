// Package proxy поддерживает пул публичных HTTP-прокси для скрейперов:
// скачивает открытые списки, проверяет кандидатов против целевых сайтов
// и выдаёт рабочие адреса, отбраковывая ненадёжные по ходу работы.
package proxy

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bidzhoyandavid/auto-bot/internal/domain"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/internal/metrics"
	"github.com/bidzhoyandavid/auto-bot/pkg/contextx"
	"github.com/bidzhoyandavid/auto-bot/pkg/errcodes"
	"github.com/bidzhoyandavid/auto-bot/pkg/httpx"
	"github.com/bidzhoyandavid/auto-bot/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	defaultRefreshInterval = 15 * time.Minute
	defaultMinPoolSize     = 10

	sourceTimeout         = 15 * time.Second
	sourceLogFieldMaxLen  = 2048
	validationTimeout     = 10 * time.Second
	validationConcurrency = 20

	// Ниже этой доли успешных запросов прокси исключается из пула.
	evictThreshold = 0.2
)

// DefaultCheckURLs — страницы, на которых проверяются кандидаты. Прокси,
// не открывающий целевые сайты, для скрейперов бесполезен.
//
//nolint:gochecknoglobals
var DefaultCheckURLs = []string{
	"https://www.list.am/",
	"https://www.myauto.ge/",
}

// Pool владеет набором прокси. Весь доступ к набору идёт через методы
// пула; сами объявления живут только в памяти и пересобираются при
// каждом обновлении.
type Pool struct {
	sources   []Source
	checkURLs []string

	refreshInterval time.Duration
	minSize         int

	httpClient *http.Client

	// refreshMu сериализует обновление целиком: конкурирующие GetProxy
	// ждут на нём одно обновление, а не запускают свои.
	refreshMu sync.Mutex

	mu          sync.RWMutex
	proxies     []*entity.Proxy
	lastRefresh time.Time
}

// NewPool создаёт пул со стандартными источниками и проверочными URL.
func NewPool(refreshInterval time.Duration, minSize int) *Pool {
	if refreshInterval <= 0 {
		refreshInterval = defaultRefreshInterval
	}
	if minSize <= 0 {
		minSize = defaultMinPoolSize
	}

	return &Pool{
		sources:         DefaultSources(),
		checkURLs:       DefaultCheckURLs,
		refreshInterval: refreshInterval,
		minSize:         minSize,
		httpClient: &http.Client{
			Timeout: sourceTimeout,
			Transport: httpx.NewUserAgentRoundTripper(
				httpx.NewLoggingRoundTripper(
					http.DefaultTransport,
					httpx.WithLogFieldMaxLen(sourceLogFieldMaxLen),
				),
				httpx.DefaultUserAgents,
			),
		},
	}
}

// WithSources подменяет источники списков.
func (p *Pool) WithSources(sources ...Source) *Pool {
	p.sources = sources
	return p
}

// WithCheckURLs подменяет проверочные страницы.
func (p *Pool) WithCheckURLs(urls ...string) *Pool {
	p.checkURLs = urls
	return p
}

// Refresh пересобирает пул: скачивает списки, отсеивает дубликаты и
// оставляет только кандидатов, открывших проверочную страницу. Если все
// источники недоступны, старый набор сохраняется и возвращается ошибка.
func (p *Pool) Refresh(ctx context.Context) error {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	return p.refresh(ctx)
}

func (p *Pool) refresh(ctx context.Context) error {
	start := time.Now()

	candidates := p.collect(ctx)
	if len(candidates) == 0 {
		return domain.NewError(errcodes.ProxySourceFailure, "no proxy source returned candidates")
	}

	alive := p.validate(ctx, candidates)
	if len(alive) == 0 {
		logger(ctx).Warn("no candidates passed validation", slog.Int("candidates", len(candidates)))
	}

	p.mu.Lock()
	p.proxies = alive
	p.lastRefresh = time.Now()
	p.mu.Unlock()

	metrics.ProxyPoolSize.Set(float64(len(alive)))

	logger(ctx).Info(
		"🌐 proxy pool refreshed",
		slog.Int(logx.FieldPoolSize, len(alive)),
		slog.Int("candidates", len(candidates)),
		slog.Int64(logx.FieldDurationMs, time.Since(start).Milliseconds()),
	)

	return nil
}

// collect опрашивает все источники параллельно. Отказ источника не
// мешает остальным: кандидаты собираются из тех, кто ответил.
func (p *Pool) collect(ctx context.Context) []entity.Proxy {
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
		out  []entity.Proxy
	)

	g, gctx := errgroup.WithContext(ctx)

	for _, src := range p.sources {
		g.Go(func() error {
			found, err := src.Fetch(gctx, p.httpClient)
			if err != nil {
				logger(ctx).Warn(
					"proxy source unavailable",
					slog.String(logx.FieldSource, src.Name),
					logx.Error(err),
				)
				return nil
			}

			mu.Lock()
			for _, candidate := range found {
				addr := candidate.Address()
				if _, ok := seen[addr]; ok {
					continue
				}
				seen[addr] = struct{}{}
				out = append(out, candidate)
			}
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	return out
}

// validate проверяет кандидатов с ограниченной параллельностью и
// возвращает только тех, кто вернул 200 в пределах таймаута.
func (p *Pool) validate(ctx context.Context, candidates []entity.Proxy) []*entity.Proxy {
	var (
		mu    sync.Mutex
		alive = make([]*entity.Proxy, 0, len(candidates))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(validationConcurrency)

	for _, candidate := range candidates {
		g.Go(func() error {
			if err := p.check(gctx, &candidate); err != nil {
				logger(ctx).Debug(
					"proxy failed check",
					slog.String(logx.FieldProxy, candidate.Address()),
					logx.Error(err),
				)
				return nil
			}

			candidate.LastChecked = time.Now()

			mu.Lock()
			alive = append(alive, &candidate)
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	return alive
}

// check открывает случайную проверочную страницу через прокси.
func (p *Pool) check(ctx context.Context, candidate *entity.Proxy) error {
	proxyURL, err := url.Parse(candidate.URL())
	if err != nil {
		return fmt.Errorf("url.Parse: %w", err)
	}

	client := &http.Client{
		Timeout: validationTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
			// Публичные прокси терминируют TLS собственным сертификатом.
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		},
	}

	ctx, cancel := context.WithTimeout(ctx, validationTimeout)
	defer cancel()

	checkURL := p.checkURLs[rand.Intn(len(p.checkURLs))] //nolint:gosec

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, checkURL, nil)
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("User-Agent", httpx.RandomUserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("client.Do: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("check page returned status %d", resp.StatusCode)
	}

	return nil
}

// GetProxy возвращает случайный прокси из верхней половины пула по доле
// успешных запросов. Пустой пул — это nil: скрейпер идёт напрямую.
// Устаревший или просевший ниже минимума пул обновляется на месте.
func (p *Pool) GetProxy(ctx context.Context) *entity.Proxy {
	p.refreshIfNeeded(ctx)

	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.proxies) == 0 {
		return nil
	}

	ranked := make([]*entity.Proxy, len(p.proxies))
	copy(ranked, p.proxies)

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].SuccessRate() > ranked[j].SuccessRate()
	})

	top := len(ranked) / 2
	if top == 0 {
		top = 1
	}

	return ranked[rand.Intn(top)] //nolint:gosec
}

func (p *Pool) refreshIfNeeded(ctx context.Context) {
	if !p.needsRefresh() {
		return
	}

	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	// Пока ждали блокировку, пул мог обновить конкурирующий вызов.
	if !p.needsRefresh() {
		return
	}

	if err := p.refresh(ctx); err != nil {
		logger(ctx).Error("proxy pool refresh failed", logx.Error(err))
	}
}

func (p *Pool) needsRefresh() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.lastRefresh.IsZero() {
		return true
	}
	if time.Since(p.lastRefresh) > p.refreshInterval {
		return true
	}

	return len(p.proxies) < p.minSize
}

// MarkSuccess записывает успешный запрос через прокси.
func (p *Pool) MarkSuccess(_ context.Context, address string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, proxy := range p.proxies {
		if proxy.Address() != address {
			continue
		}

		proxy.SuccessCount++
		proxy.LastChecked = time.Now()

		return
	}
}

// MarkFailure записывает неудачный запрос. Прокси с долей успешных
// запросов ниже порога сразу исключается из пула.
func (p *Pool) MarkFailure(ctx context.Context, address string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, proxy := range p.proxies {
		if proxy.Address() != address {
			continue
		}

		proxy.FailCount++
		proxy.LastChecked = time.Now()

		if proxy.SuccessRate() < evictThreshold {
			p.proxies = append(p.proxies[:i], p.proxies[i+1:]...)
			metrics.ProxyPoolSize.Set(float64(len(p.proxies)))

			logger(ctx).Info(
				"proxy evicted from pool",
				slog.String(logx.FieldProxy, address),
				slog.Int(logx.FieldPoolSize, len(p.proxies)),
			)
		}

		return
	}
}

// Size возвращает текущий размер пула.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.proxies)
}

// Stats возвращает агрегированное состояние пула.
func (p *Pool) Stats() entity.ProxyPoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := entity.ProxyPoolStats{
		Total:       len(p.proxies),
		LastRefresh: p.lastRefresh,
	}

	if len(p.proxies) > 0 {
		var sum float64
		for _, proxy := range p.proxies {
			sum += proxy.SuccessRate()
		}
		stats.AvgSuccessRate = sum / float64(len(p.proxies))
	}

	return stats
}

// Snapshot возвращает копии всех прокси пула для отчётов.
func (p *Pool) Snapshot() []entity.Proxy {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]entity.Proxy, 0, len(p.proxies))
	for _, proxy := range p.proxies {
		out = append(out, *proxy)
	}

	return out
}
