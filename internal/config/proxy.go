package config

import "time"

// Proxy — параметры пула публичных прокси.
type Proxy struct {
	RefreshMinutes int `env:"PROXY_REFRESH_MINUTES" envDefault:"15" validate:"gt=0"`
	MinPoolSize    int `env:"MIN_PROXY_POOL_SIZE" envDefault:"10" validate:"gte=0"`
}

func (p Proxy) RefreshInterval() time.Duration {
	return time.Duration(p.RefreshMinutes) * time.Minute
}
