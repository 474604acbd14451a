package config

import "time"

// Browser — параметры headless-браузера.
type Browser struct {
	Headless   bool          `env:"BROWSER_HEADLESS" envDefault:"true"`
	NavTimeout time.Duration `env:"BROWSER_NAV_TIMEOUT" envDefault:"30s"`

	// ExecPath — путь к бинарю Chrome/Chromium; пусто = системный.
	ExecPath string `env:"BROWSER_EXEC_PATH"`
}
