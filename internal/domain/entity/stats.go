package entity

// RepoStats — сводная статистика по базе объявлений.
type RepoStats struct {
	TotalListings      int64            `json:"total_listings"`
	TotalNotifications int64            `json:"total_notifications"`
	Notifications24h   int64            `json:"notifications_24h"`
	BySource           map[string]int64 `json:"by_source"`
	ByMake             map[string]int64 `json:"by_make"`
}
