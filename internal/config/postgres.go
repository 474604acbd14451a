package config

import "time"

// Postgres — хранилище объявлений, истории цен и журнала уведомлений.
type Postgres struct {
	DSN             string        `env:"PG_DSN,notEmpty" json:"-"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"5" validate:"gt=0"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"10" validate:"gt=0"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"5m"`
}
