package handler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	"github.com/samber/lo"

	"github.com/bidzhoyandavid/auto-bot/internal/scraper"
	"github.com/bidzhoyandavid/auto-bot/internal/worker"
	"github.com/bidzhoyandavid/auto-bot/pkg/contextx"
)

const startMessage = `👋 <b>Auto Deal Hunter</b>

Слежу за свежими объявлениями на list.am и myauto.ge и присылаю выгодные варианты.

Команды:
/status — состояние сканера и пула прокси
/stats — накопленная статистика
/scan — запустить цикл сейчас
/targets — отслеживаемые модели
/watch <code>марка модель</code> — добавить модель
/unwatch <code>марка модель</code> — убрать модель`

func (h *Handler) OnStart(ctx *th.Context, msg telego.Message) error {
	return h.sendHTML(ctx, msg.Chat.ID, startMessage)
}

func (h *Handler) OnStatus(ctx *th.Context, msg telego.Message) error {
	hunterStatus := "💤 ожидает расписания"
	if h.hunter.IsRunning() {
		hunterStatus = "🟢 цикл выполняется"
	}

	lastCycle := "ещё не выполнялся"
	if last := h.hunter.LastCycle(); last != nil {
		lastCycle = fmt.Sprintf("%s назад — %d объявлений, %d новых, %d уведомлений",
			time.Since(last.StartedAt).Round(time.Minute),
			last.Scraped,
			last.New,
			last.Notified,
		)
	}

	poolStats := h.pool.Stats()

	text := fmt.Sprintf(`📊 <b>Статус системы</b>

🔍 <b>Сканер:</b> %s
🕐 <b>Последний цикл:</b> %s
🎯 <b>Целей в обходе:</b> %d
🌐 <b>Пул прокси:</b> %d (средний рейтинг %.2f)
`,
		hunterStatus,
		lastCycle,
		len(h.hunter.Targets()),
		poolStats.Total,
		poolStats.AvgSuccessRate,
	)

	return h.sendHTML(ctx, msg.Chat.ID, text)
}

func (h *Handler) OnStats(ctx *th.Context, msg telego.Message) error {
	stats, err := h.repo.Stats(requestContext(ctx, msg))
	if err != nil {
		_ = h.sendHTML(ctx, msg.Chat.ID, "❌ Не удалось получить статистику")
		return fmt.Errorf("repo.Stats: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("📈 <b>Статистика</b>\n\n")
	sb.WriteString(fmt.Sprintf("🚗 Объявлений в базе: <b>%d</b>\n", stats.TotalListings))
	sb.WriteString(fmt.Sprintf("🔔 Уведомлений всего: <b>%d</b>\n", stats.TotalNotifications))
	sb.WriteString(fmt.Sprintf("🕐 Уведомлений за 24ч: <b>%d</b>\n", stats.Notifications24h))

	if len(stats.BySource) > 0 {
		sb.WriteString("\n<b>По площадкам:</b>\n")
		for _, source := range sortedKeys(stats.BySource) {
			sb.WriteString(fmt.Sprintf("  • %s — %d\n", source, stats.BySource[source]))
		}
	}

	if len(stats.ByMake) > 0 {
		sb.WriteString("\n<b>По маркам:</b>\n")
		for _, carMake := range sortedKeys(stats.ByMake) {
			sb.WriteString(fmt.Sprintf("  • %s — %d\n", carMake, stats.ByMake[carMake]))
		}
	}

	return h.sendHTML(ctx, msg.Chat.ID, sb.String())
}

// OnScan запускает цикл сканирования вне расписания
func (h *Handler) OnScan(ctx *th.Context, msg telego.Message) error {
	if h.hunter.IsRunning() {
		return h.sendHTML(ctx, msg.Chat.ID, "⚠️ Цикл уже выполняется")
	}

	// Цикл живёт дольше обработки команды, поэтому отвязываем его
	// от контекста апдейта.
	runCtx := context.WithoutCancel(requestContext(ctx, msg))

	go func() {
		if _, err := h.hunter.RunCycle(runCtx); err != nil && !errors.Is(err, worker.ErrCycleRunning) {
			logger(runCtx).Error("manual scan cycle failed", "error", err)
		}
	}()

	return h.sendHTML(ctx, msg.Chat.ID, "🚀 Цикл сканирования запущен")
}

func (h *Handler) OnTargets(ctx *th.Context, msg telego.Message) error {
	targets := h.hunter.Targets()
	if len(targets) == 0 {
		return h.sendHTML(ctx, msg.Chat.ID,
			"📋 <b>Список целей пуст</b>\n\nДобавить модель: /watch <code>марка модель</code>")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎯 <b>Отслеживаемые модели (%d):</b>\n\n", len(targets)))

	for i, target := range targets {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, target))
	}

	return h.sendHTML(ctx, msg.Chat.ID, sb.String())
}

// OnWatch добавляет модель в обход
// Использование: /watch BMW X5
func (h *Handler) OnWatch(ctx *th.Context, msg telego.Message) error {
	target, err := parseTarget(msg.Text)
	if err != nil {
		return h.sendHTML(ctx, msg.Chat.ID,
			"❌ Использование: /watch <code>марка модель</code>\n\nПример: /watch BMW X5")
	}

	if h.hunter.HasTarget(target) {
		return h.sendHTML(ctx, msg.Chat.ID, fmt.Sprintf("⚠️ %s уже в списке", target))
	}

	h.hunter.AddTarget(target)

	return h.sendHTML(ctx, msg.Chat.ID,
		fmt.Sprintf("✅ %s добавлен — попадёт в следующий цикл", target))
}

// OnUnwatch убирает модель из обхода
func (h *Handler) OnUnwatch(ctx *th.Context, msg telego.Message) error {
	target, err := parseTarget(msg.Text)
	if err != nil {
		return h.sendHTML(ctx, msg.Chat.ID,
			"❌ Использование: /unwatch <code>марка модель</code>")
	}

	if !h.hunter.HasTarget(target) {
		return h.sendHTML(ctx, msg.Chat.ID, fmt.Sprintf("⚠️ %s не найден в списке", target))
	}

	h.hunter.RemoveTarget(target)

	return h.sendHTML(ctx, msg.Chat.ID, fmt.Sprintf("✅ %s убран из обхода", target))
}

// Вспомогательные методы

func (h *Handler) sendHTML(ctx *th.Context, chatID int64, text string) error {
	_, err := ctx.Bot().SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		Text:      text,
		ParseMode: telego.ModeHTML,
	})
	return err
}

// requestContext прокладывает ID отправителя в контекст запросов к базе.
func requestContext(ctx *th.Context, msg telego.Message) context.Context {
	if msg.From == nil {
		return ctx
	}
	return contextx.WithUserID(ctx, contextx.UserID(strconv.FormatInt(msg.From.ID, 10)))
}

func parseTarget(text string) (scraper.TargetCar, error) {
	args := strings.Fields(text)
	if len(args) < 2 {
		return scraper.TargetCar{}, errors.New("make is required")
	}

	target := scraper.TargetCar{Make: args[1]}
	if len(args) > 2 {
		target.Model = strings.Join(args[2:], " ")
	}

	return target, nil
}

func sortedKeys(m map[string]int64) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
