// Package notifier отправляет карточки найденных сделок в Telegram.
package notifier

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/bidzhoyandavid/auto-bot/internal/domain"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/value"
	"github.com/bidzhoyandavid/auto-bot/pkg/contextx"
	"github.com/bidzhoyandavid/auto-bot/pkg/errcodes"
	"github.com/bidzhoyandavid/auto-bot/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type TelegramBot struct {
	bot    *telego.Bot
	chatID int64
}

func NewTelegramBot(token string, chatID int64) (*TelegramBot, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &TelegramBot{
		bot:    bot,
		chatID: chatID,
	}, nil
}

// Send отправляет карточку сделки. Объявление с фотографией уходит как
// фото с подписью; если Telegram не смог скачать снимок, откатываемся на
// обычный текст. Возвращает идентификатор сообщения для журнала.
func (b *TelegramBot) Send(ctx context.Context, deal *entity.Deal) (*int, error) {
	text := FormatDeal(deal)

	if deal.Listing.ImageURL != nil && *deal.Listing.ImageURL != "" {
		photo := tu.Photo(tu.ID(b.chatID), tu.FileFromURL(*deal.Listing.ImageURL)).
			WithCaption(text).
			WithParseMode(telego.ModeHTML)

		sent, err := b.bot.SendPhoto(ctx, photo)
		if err == nil {
			return &sent.MessageID, nil
		}

		logger(ctx).Warn(
			"photo send failed, falling back to text",
			slog.String(logx.FieldURL, *deal.Listing.ImageURL),
			logx.Error(err),
		)
	}

	msg := tu.Message(tu.ID(b.chatID), text).WithParseMode(telego.ModeHTML)

	sent, err := b.bot.SendMessage(ctx, msg)
	if err != nil {
		return nil, domain.WrapError(err, errcodes.NotificationFailed, "send message")
	}

	return &sent.MessageID, nil
}

// SendText отправляет служебное сообщение с HTML-разметкой.
func (b *TelegramBot) SendText(ctx context.Context, text string) error {
	msg := tu.Message(tu.ID(b.chatID), text).WithParseMode(telego.ModeHTML)

	if _, err := b.bot.SendMessage(ctx, msg); err != nil {
		return domain.WrapError(err, errcodes.NotificationFailed, "send message")
	}

	return nil
}

// FormatDeal собирает HTML-текст уведомления о сделке.
func FormatDeal(deal *entity.Deal) string {
	listing := deal.Listing

	var sb strings.Builder

	sb.WriteString(header(deal.Reason))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("🚗 <b>%s</b>\n", html.EscapeString(listing.CarName())))

	sb.WriteString("💰 <b>Price:</b> $" + value.FormatUSD(listing.PriceUSD))
	if listing.CurrencyOriginal != value.CurrencyUSD && listing.PriceOriginal > 0 {
		sb.WriteString(fmt.Sprintf(" (%s %s)", value.FormatUSD(listing.PriceOriginal), listing.CurrencyOriginal))
	}
	sb.WriteString("\n")

	if delta, ok := deal.PriceDelta(); ok {
		if delta < 0 {
			sb.WriteString(fmt.Sprintf("📉 <b>Price drop:</b> $%s\n", value.FormatUSD(-delta)))
		} else {
			sb.WriteString(fmt.Sprintf("📈 <b>Price increase:</b> $%s\n", value.FormatUSD(delta)))
		}
	}

	if listing.Mileage != nil {
		sb.WriteString(fmt.Sprintf("📏 <b>Mileage:</b> %s km\n", value.FormatUSD(float64(*listing.Mileage))))
	}

	if listing.Location != nil && *listing.Location != "" {
		sb.WriteString(fmt.Sprintf("📍 <b>Location:</b> %s\n", html.EscapeString(*listing.Location)))
	}

	if listing.CustomsCleared != nil {
		if *listing.CustomsCleared {
			sb.WriteString("✅ Customs cleared\n")
		} else {
			sb.WriteString("⚠️ Customs not cleared\n")
		}
	}

	if reasons := dealReasons(deal); len(reasons) > 0 {
		sb.WriteString(fmt.Sprintf("\n💡 <i>%s</i>\n", html.EscapeString(strings.Join(reasons, "; "))))
	}

	sb.WriteString(fmt.Sprintf("\n🌐 Source: %s\n", listing.Source))
	sb.WriteString(fmt.Sprintf(`🔗 <a href="%s">View listing</a>`, listing.URL))

	return sb.String()
}

func header(reason entity.NotifyReason) string {
	switch reason {
	case entity.ReasonUrgent:
		return "🔥 <b>URGENT DEAL!</b>"
	case entity.ReasonGoodPrice:
		return "💰 <b>GOOD PRICE!</b>"
	case entity.ReasonPriceDrop:
		return "📉 <b>PRICE DROP!</b>"
	case entity.ReasonNewListing:
		return "🚗 <b>New Listing</b>"
	default:
		return "🚗 <b>New Listing</b>"
	}
}

// dealReasons собирает человекочитаемые причины из вердиктов анализаторов.
func dealReasons(deal *entity.Deal) []string {
	var reasons []string

	if deal.Price.IsGoodDeal && deal.Price.Reason != "" {
		reasons = append(reasons, deal.Price.Reason)
	}
	if deal.Urgency.IsUrgent && deal.Urgency.Reason != "" {
		reasons = append(reasons, deal.Urgency.Reason)
	}

	return reasons
}
