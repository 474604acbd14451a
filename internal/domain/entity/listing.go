package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/bidzhoyandavid/auto-bot/internal/domain/value"
)

// Listing — объявление о продаже автомобиля с одной из площадок.
// Пара (Source, ExternalID) уникальна; ID присваивается базой.
type Listing struct {
	ID               int64          `json:"id" db:"id"`
	Source           value.Source   `json:"source" db:"source"`
	ExternalID       string         `json:"external_id" db:"external_id"`
	URL              string         `json:"url" db:"url"`
	Make             string         `json:"make" db:"make"`
	Model            *string        `json:"model,omitempty" db:"model"`
	Year             *int           `json:"year,omitempty" db:"year"`
	Mileage          *int           `json:"mileage,omitempty" db:"mileage"`
	PriceUSD         float64        `json:"price_usd" db:"price_usd"`
	PriceOriginal    float64        `json:"price_original" db:"price_original"`
	CurrencyOriginal value.Currency `json:"currency_original" db:"currency_original"`
	Title            string         `json:"title" db:"title"`
	Description      *string        `json:"description,omitempty" db:"description"`
	Location         *string        `json:"location,omitempty" db:"location"`
	ImageURL         *string        `json:"image_url,omitempty" db:"image_url"`
	IsUrgent         bool           `json:"is_urgent" db:"is_urgent"`
	CustomsCleared   *bool          `json:"customs_cleared,omitempty" db:"customs_cleared"`
	FirstSeenAt      time.Time      `json:"first_seen_at" db:"first_seen_at"`
	LastSeenAt       time.Time      `json:"last_seen_at" db:"last_seen_at"`
}

// CarName возвращает "Марка Модель (Год)" для логов и уведомлений.
func (l *Listing) CarName() string {
	name := l.Make
	if l.Model != nil && *l.Model != "" {
		name += " " + *l.Model
	}
	if l.Year != nil {
		name = fmt.Sprintf("%s (%d)", name, *l.Year)
	}
	return name
}

// SearchText — текст, по которому ищутся признаки срочности.
func (l *Listing) SearchText() string {
	parts := []string{l.Title}
	if l.Description != nil {
		parts = append(parts, *l.Description)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
