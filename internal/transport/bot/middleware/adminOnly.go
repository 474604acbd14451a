package middleware

import (
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"github.com/bidzhoyandavid/auto-bot/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// AdminOnly пропускает сообщения только от администратора. Чужие апдейты
// игнорируются без ответа, чтобы бот не выдавал своё существование.
func AdminOnly(adminID int64) th.Handler {
	return func(ctx *th.Context, update telego.Update) error {
		if update.Message == nil || update.Message.From == nil {
			return nil
		}

		if update.Message.From.ID != adminID {
			logger(ctx).Warn("message from unknown user ignored", "user_id", update.Message.From.ID)
			return nil
		}

		return ctx.Next(update)
	}
}
