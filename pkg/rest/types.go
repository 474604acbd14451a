// Данный файл должен быть сгенерирован из openapi спецификации и называться types.gen.go
package rest

import "time"

// StatusReport Состояние сервиса: накопленные данные и последний цикл
type StatusReport struct {
	Repo         RepoStats     `json:"repo"`
	LastCycle    *CycleSummary `json:"last_cycle,omitempty"`
	CycleRunning bool          `json:"cycle_running"`
}

// RepoStats Счётчики накопленных объявлений и уведомлений
type RepoStats struct {
	TotalListings      int64            `json:"total_listings"`
	TotalNotifications int64            `json:"total_notifications"`
	Notifications24h   int64            `json:"notifications_24h"`
	BySource           map[string]int64 `json:"by_source"`
	ByMake             map[string]int64 `json:"by_make"`
}

// CycleSummary Итог одного цикла сканирования
type CycleSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Scraped    int       `json:"scraped"`
	New        int       `json:"new"`
	Notified   int       `json:"notified"`
	Errors     int       `json:"errors"`
}

// ProxyPoolReport Состояние пула прокси
type ProxyPoolReport struct {
	Total          int       `json:"total"`
	AvgSuccessRate float64   `json:"avg_success_rate"`
	LastRefresh    time.Time `json:"last_refresh"`
	Proxies        []Proxy   `json:"proxies"`
}

// Proxy Один прокси из пула
type Proxy struct {
	Address     string    `json:"address"`
	Protocol    string    `json:"protocol"`
	SuccessRate float64   `json:"success_rate"`
	LastChecked time.Time `json:"last_checked"`
}

// Error Модель ошибок
type Error struct {
	// Code Код ошибки
	Code ErrorCode `json:"code"`

	// Message Сообщение об ошибке (для отображения в UI в будущем)
	Message string `json:"message"`
}

// ErrorCode Код ошибки
type ErrorCode string
