package config

// Telegram — бот, отправляющий уведомления и принимающий команды.
type Telegram struct {
	BotToken string `env:"TELEGRAM_BOT_TOKEN,notEmpty" json:"-"`
	ChatID   int64  `env:"TELEGRAM_CHAT_ID,notEmpty"`

	// AdminID — кому разрешены команды; 0 = совпадает с ChatID.
	AdminID int64 `env:"TELEGRAM_ADMIN_ID"`
}
