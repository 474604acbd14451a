// Package browser загружает страницы через headless-браузер. Повторы,
// ротация прокси и обратная связь в пул собраны здесь, чтобы скрейперы
// занимались только разбором HTML.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/internal/metrics"
	"github.com/bidzhoyandavid/auto-bot/internal/scraper"
	"github.com/bidzhoyandavid/auto-bot/pkg/contextx"
	"github.com/bidzhoyandavid/auto-bot/pkg/httpx"
	"github.com/bidzhoyandavid/auto-bot/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	defaultMaxAttempts = 3
	defaultNavTimeout  = 30 * time.Second
	defaultBackoffBase = time.Second

	acceptLanguage = "en-US,en;q=0.9,ru;q=0.8,hy;q=0.7,ka;q=0.6"
)

// ProxyProvider выдаёт прокси для повторных попыток и принимает обратную
// связь об их работоспособности. nil от GetProxy означает прямое подключение.
type ProxyProvider interface {
	GetProxy(ctx context.Context) *entity.Proxy
	MarkSuccess(ctx context.Context, address string)
	MarkFailure(ctx context.Context, address string)
}

// Options — параметры запуска браузера.
type Options struct {
	Headless    bool
	NavTimeout  time.Duration
	ExecPath    string
	MaxAttempts int
}

// Fetcher реализует scraper.Fetcher поверх chromedp. Каждая попытка
// запускает свежий браузер: первая идёт напрямую, повторные — через
// прокси из пула с экспоненциальной паузой между ними.
type Fetcher struct {
	proxies ProxyProvider

	headless    bool
	execPath    string
	navTimeout  time.Duration
	maxAttempts int
	backoffBase time.Duration

	load func(ctx context.Context, pageURL string, opts scraper.FetchOptions, proxy *entity.Proxy) (string, error)
}

// NewFetcher создаёт фетчер. proxies может быть nil — тогда все попытки
// идут напрямую.
func NewFetcher(proxies ProxyProvider, opts Options) *Fetcher {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = defaultNavTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}

	f := &Fetcher{
		proxies:     proxies,
		headless:    opts.Headless,
		execPath:    opts.ExecPath,
		navTimeout:  opts.NavTimeout,
		maxAttempts: opts.MaxAttempts,
		backoffBase: defaultBackoffBase,
	}
	f.load = f.chromeLoad

	return f
}

// FetchFailure — все попытки загрузки исчерпаны.
type FetchFailure struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchFailure) Error() string {
	return fmt.Sprintf("fetch %s: %d attempts failed: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchFailure) Unwrap() error {
	return e.Err
}

// FetchPage загружает страницу и возвращает её HTML после рендеринга.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string, opts scraper.FetchOptions) (string, error) {
	var (
		lastErr error
		current *entity.Proxy
	)

	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, f.backoff(attempt)); err != nil {
				return "", err
			}

			if f.proxies != nil {
				current = f.proxies.GetProxy(ctx)
			}
		}

		html, err := f.load(ctx, pageURL, opts, current)
		if err == nil {
			if current != nil {
				f.proxies.MarkSuccess(ctx, current.Address())
			}
			return html, nil
		}

		// Отменённый контекст — не повод жечь попытки и винить прокси.
		if ctx.Err() != nil {
			return "", fmt.Errorf("fetch %s: %w", pageURL, ctx.Err())
		}

		if current != nil {
			f.proxies.MarkFailure(ctx, current.Address())
		}

		lastErr = err

		logger(ctx).Warn(
			"page fetch attempt failed",
			slog.String(logx.FieldURL, pageURL),
			slog.Int(logx.FieldAttempt, attempt+1),
			slog.String(logx.FieldProxy, proxyLabel(current)),
			logx.Error(err),
		)
	}

	metrics.FetchFailures.Inc()

	return "", &FetchFailure{URL: pageURL, Attempts: f.maxAttempts, Err: lastErr}
}

// chromeLoad выполняет одну попытку: свежий браузер, навигация, проверка
// статуса, ожидание селектора и снятие HTML.
func (f *Fetcher) chromeLoad(
	ctx context.Context,
	pageURL string,
	opts scraper.FetchOptions,
	proxy *entity.Proxy,
) (string, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(httpx.RandomUserAgent()),
	)
	if f.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(f.execPath))
	}
	if proxy != nil {
		allocOpts = append(allocOpts, chromedp.ProxyServer(proxy.URL()))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	// Глушим внутренний лог chromedp.
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))
	defer cancelTab()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = f.navTimeout
	}

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	resp, err := chromedp.RunResponse(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": acceptLanguage}),
		chromedp.Navigate(pageURL),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp.RunResponse: %w", err)
	}
	if resp == nil {
		return "", errors.New("navigation returned no response")
	}
	if resp.Status != http.StatusOK {
		return "", fmt.Errorf("page returned status %d", resp.Status)
	}

	actions := make([]chromedp.Action, 0, 2)
	if opts.WaitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(opts.WaitSelector, chromedp.ByQuery))
	}

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return "", fmt.Errorf("chromedp.Run: %w", err)
	}

	return html, nil
}

// backoff возвращает паузу перед попыткой attempt: база, удваиваясь.
func (f *Fetcher) backoff(attempt int) time.Duration {
	return f.backoffBase << (attempt - 1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func proxyLabel(proxy *entity.Proxy) string {
	if proxy == nil {
		return "direct"
	}
	return proxy.Address()
}
