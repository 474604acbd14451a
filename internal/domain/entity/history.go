package entity

import (
	"time"

	"github.com/bidzhoyandavid/auto-bot/internal/domain/value"
)

// PricePoint — одна запись истории цены объявления.
// Записи неизменяемы и создаются только при фактической смене цены
// (включая самую первую наблюдаемую цену).
type PricePoint struct {
	ID               int64           `json:"id" db:"id"`
	ListingID        int64           `json:"listing_id" db:"listing_id"`
	PriceUSD         float64         `json:"price_usd" db:"price_usd"`
	PriceOriginal    *float64        `json:"price_original,omitempty" db:"price_original"`
	CurrencyOriginal *value.Currency `json:"currency_original,omitempty" db:"currency_original"`
	RecordedAt       time.Time       `json:"recorded_at" db:"recorded_at"`
}
