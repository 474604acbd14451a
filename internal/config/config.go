package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Telegram Telegram
	Postgres Postgres
	Scraping Scraping
	Proxy    Proxy
	Browser  Browser
	Server   Server
}

// Load читает .env (если он есть), переменные окружения и валидирует
// собранную конфигурацию.
func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	// Команды по умолчанию принимает получатель уведомлений.
	if config.Telegram.AdminID == 0 {
		config.Telegram.AdminID = config.Telegram.ChatID
	}

	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("config validate: %w", err)
	}

	return config, nil
}
