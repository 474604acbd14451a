package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"github.com/bidzhoyandavid/auto-bot/internal/config"
	"github.com/bidzhoyandavid/auto-bot/internal/transport/bot/handler"
	"github.com/bidzhoyandavid/auto-bot/internal/worker"
	"github.com/bidzhoyandavid/auto-bot/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// Bot принимает команды оператора через long polling
type Bot struct {
	bot        *telego.Bot
	botHandler *th.BotHandler

	handler *handler.Handler
}

// New создает новый экземпляр бота
func New(
	ctx context.Context,
	cfg config.Telegram,
	hunter *worker.DealHunter,
	repo handler.Repository,
	pool handler.ProxyPool,
) (*Bot, error) {
	tgBot, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telego.NewBot: %w", err)
	}

	// Получаем обновления через long polling
	updates, err := tgBot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: 60,
	})
	if err != nil {
		return nil, fmt.Errorf("bot.UpdatesViaLongPolling: %w", err)
	}

	botHandler, err := th.NewBotHandler(tgBot, updates)
	if err != nil {
		return nil, fmt.Errorf("th.NewBotHandler: %w", err)
	}

	commandHandler := handler.New(hunter, repo, pool)
	commandHandler.RegisterRoutes(botHandler, cfg.AdminID)

	return &Bot{
		bot:        tgBot,
		botHandler: botHandler,
		handler:    commandHandler,
	}, nil
}

// Run запускает обработку команд и блокируется до отмены контекста
func (b *Bot) Run(ctx context.Context) error {
	go func() {
		if err := b.botHandler.Start(); err != nil {
			logger(ctx).Error("bot handler start failed", "error", err)
		}
	}()

	logger(ctx).Info("🤖 admin bot started")

	<-ctx.Done()

	if err := b.botHandler.Stop(); err != nil {
		logger(ctx).Error("bot handler stop failed", "error", err)
	}

	logger(ctx).Info("admin bot stopped")

	return nil
}
