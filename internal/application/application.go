package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/bidzhoyandavid/auto-bot/internal/config"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/service/pricing"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/service/urgency"
	"github.com/bidzhoyandavid/auto-bot/internal/infrastructure/browser"
	"github.com/bidzhoyandavid/auto-bot/internal/infrastructure/notifier"
	"github.com/bidzhoyandavid/auto-bot/internal/infrastructure/persistence"
	"github.com/bidzhoyandavid/auto-bot/internal/infrastructure/proxy"
	"github.com/bidzhoyandavid/auto-bot/internal/scraper"
	"github.com/bidzhoyandavid/auto-bot/internal/server"
	"github.com/bidzhoyandavid/auto-bot/internal/transport/bot"
	"github.com/bidzhoyandavid/auto-bot/internal/worker"
	"github.com/bidzhoyandavid/auto-bot/pkg/application/connectors"
	"github.com/bidzhoyandavid/auto-bot/pkg/application/modules"
	"github.com/bidzhoyandavid/auto-bot/pkg/contextx"
	"github.com/bidzhoyandavid/auto-bot/pkg/logx"
	"github.com/bidzhoyandavid/auto-bot/pkg/middlewarex"
)

const (
	appName    = "auto-bot"
	appVersion = "1.0.0"

	readHeaderTimeout = 10 * time.Second
	logFieldMaxLen    = 2048
)

func Run(ctx context.Context, log *slog.Logger) error {
	ctx = contextx.WithLogger(ctx, log)

	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	// 2. Database
	pg := &connectors.Postgres{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}
	db := pg.Client(ctx)
	defer pg.Close(ctx)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	log.Info("database connection OK")

	// 3. Repositories
	listingRepo := persistence.NewListingRepository(db)

	// 4. Proxy pool + headless browser
	pool := proxy.NewPool(cfg.Proxy.RefreshInterval(), cfg.Proxy.MinPoolSize)

	fetcher := browser.NewFetcher(pool, browser.Options{
		Headless:   cfg.Browser.Headless,
		NavTimeout: cfg.Browser.NavTimeout,
		ExecPath:   cfg.Browser.ExecPath,
	})

	// 5. Scrapers
	scrapers := []scraper.Scraper{
		scraper.NewListAm(fetcher).
			WithDelays(cfg.Scraping.DelayMin(), cfg.Scraping.DelayMax()),
		scraper.NewMyAutoGe(fetcher).
			WithDelays(cfg.Scraping.DelayMin(), cfg.Scraping.DelayMax()),
	}

	// 6. Notify bot
	alertBot, err := notifier.NewTelegramBot(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		return fmt.Errorf("notifier bot: %w", err)
	}
	log.Info("Testing bot notification...")
	if err := alertBot.SendText(ctx, "🚀 Bot is starting! Test message."); err != nil {
		log.Error("❌ Bot test failed! Check Token and ChatID", "err", err)
	} else {
		log.Info("✅ Bot test passed! Message sent.")
	}

	// 7. Deal hunter + scheduler
	hunter := worker.NewDealHunter(
		listingRepo,
		pricing.NewAnalyzer(listingRepo),
		urgency.NewDetector(listingRepo),
		alertBot,
		scrapers,
	).WithCriteria(scraper.Criteria{
		Targets:     scraper.DefaultTargets,
		MinYear:     cfg.Scraping.MinYear,
		MaxPriceUSD: cfg.Scraping.MaxPriceUSD,
		MaxPages:    cfg.Scraping.MaxPages,
	})

	scheduler := worker.NewScheduler(hunter, pool, worker.Schedule{
		ScrapeEvery:       cfg.Scraping.Interval(),
		ProxyRefreshEvery: cfg.Proxy.RefreshInterval(),
	})

	// 8. Admin bot
	adminBot, err := bot.New(ctx, cfg.Telegram, hunter, listingRepo, pool)
	if err != nil {
		return fmt.Errorf("bot.New: %w", err)
	}

	// 9. Ops HTTP API
	router := chi.NewRouter()

	masker := logx.NewSensitiveDataMasker()
	router.Use(
		middlewarex.TraceID,
		middlewarex.Logger,
		middlewarex.RequestLogging(masker, logFieldMaxLen),
		middlewarex.ResponseLogging(masker, logFieldMaxLen),
		middlewarex.Recovery,
	)

	srv := server.NewServer(server.NewOpsServer(listingRepo, hunter, pool))
	srv.RegisterRoutes(router)

	// 10. Run everything
	g, ctx := errgroup.WithContext(ctx)

	modules.HTTPServer{ShutdownTimeout: cfg.Server.ShutdownTimeout}.Run(ctx, g, &http.Server{
		Addr:              cfg.Server.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	})

	modules.ProbeServer{
		Name:          appName,
		Version:       appVersion,
		ListenAddress: cfg.Server.ProbeListenAddress,
	}.Run(ctx, g)

	modules.MetricServer{
		ListenAddress: cfg.Server.MetricsListenAddress,
	}.Run(ctx, g)

	g.Go(func() error {
		return adminBot.Run(ctx)
	})

	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("scheduler start: %w", err)
	}

	err = g.Wait()

	// Дожидаемся завершения цикла, который мог быть запущен до остановки.
	scheduler.Stop(context.WithoutCancel(ctx))

	log.Info("application stopping...")

	return err
}
