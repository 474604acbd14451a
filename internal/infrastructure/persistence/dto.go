package persistence

import (
	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
)

// countRow — строка агрегата "ключ → количество".
type countRow struct {
	Key   string `db:"key"`
	Count int64  `db:"count"`
}

// listingParams — именованные параметры INSERT/UPDATE для объявления.
// Указатели передаются как есть: nil уходит в базу как NULL.
func listingParams(l *entity.Listing) map[string]any {
	return map[string]any{
		"source":            string(l.Source),
		"external_id":       l.ExternalID,
		"url":               l.URL,
		"make":              l.Make,
		"model":             l.Model,
		"year":              l.Year,
		"mileage":           l.Mileage,
		"price_usd":         l.PriceUSD,
		"price_original":    l.PriceOriginal,
		"currency_original": string(l.CurrencyOriginal),
		"title":             l.Title,
		"description":       l.Description,
		"location":          l.Location,
		"image_url":         l.ImageURL,
		"is_urgent":         l.IsUrgent,
		"customs_cleared":   l.CustomsCleared,
	}
}
