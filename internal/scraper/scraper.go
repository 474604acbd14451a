package scraper

import (
	"context"
	"math/rand"
	"time"

	"github.com/samber/lo"

	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/value"
	"github.com/bidzhoyandavid/auto-bot/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// Fetcher загружает страницу и возвращает её HTML после рендеринга.
type Fetcher interface {
	FetchPage(ctx context.Context, url string, opts FetchOptions) (string, error)
}

// FetchOptions — требования к загрузке конкретной страницы.
type FetchOptions struct {
	// WaitSelector — CSS-селектор, появление которого означает, что
	// страница загрузилась. Пустой = достаточно кода 200.
	WaitSelector string

	// Timeout ограничивает навигацию; 0 = значение фетчера по умолчанию.
	Timeout time.Duration
}

// Scraper — обход одной площадки: построение поисковых URL, постраничный
// сбор и нормализация карточек в entity.Listing.
type Scraper interface {
	Source() value.Source
	Scrape(ctx context.Context, criteria Criteria) ([]entity.Listing, error)
}

// Criteria — фильтры поиска, общие для всех площадок.
type Criteria struct {
	Targets     []TargetCar
	MinYear     int
	MaxPriceUSD int
	MaxPages    int
}

// TargetCar — целевая пара марка+модель.
type TargetCar struct {
	Make  string
	Model string
}

func (t TargetCar) String() string {
	if t.Model == "" {
		return t.Make
	}
	return t.Make + " " + t.Model
}

// DefaultTargets — мониторимые модели.
var DefaultTargets = []TargetCar{ //nolint:gochecknoglobals
	{Make: "Mercedes", Model: "E-Class"},
	{Make: "Mercedes", Model: "S-Class"},
	{Make: "Mercedes", Model: "GLC-Class"},
	{Make: "Mercedes", Model: "GLE-Class"},
	{Make: "BMW", Model: "3 Series"},
	{Make: "BMW", Model: "4 Series"},
	{Make: "BMW", Model: "5 Series"},
	{Make: "BMW", Model: "7 Series"},
	{Make: "BMW", Model: "X3"},
	{Make: "BMW", Model: "X5"},
	{Make: "Audi", Model: "A4"},
	{Make: "Audi", Model: "A5"},
	{Make: "Audi", Model: "A6"},
	{Make: "Audi", Model: "A8"},
	{Make: "Audi", Model: "Q5"},
	{Make: "Lexus", Model: "RX"},
	{Make: "Lexus", Model: "GS"},
	{Make: "Lexus", Model: "ES"},
	{Make: "Lexus", Model: "IS"},
	{Make: "Toyota", Model: "Land Cruiser Prado"},
	{Make: "Toyota", Model: "Camry"},
	{Make: "Toyota", Model: "Highlander"},
	{Make: "Mitsubishi", Model: "Outlander"},
	{Make: "Mazda", Model: "CX-5"},
}

// Makes возвращает уникальные марки целей, сохраняя порядок появления.
func Makes(targets []TargetCar) []string {
	return lo.Uniq(lo.Map(targets, func(t TargetCar, _ int) string {
		return t.Make
	}))
}

// randomPause выдерживает паузу, равномерно распределённую в [min, max],
// с прерыванием по контексту.
func randomPause(ctx context.Context, min, max time.Duration) error {
	if min < 0 {
		min = 0
	}
	delay := min
	if max > min {
		delay = min + time.Duration(rand.Int63n(int64(max-min)+1)) //nolint:gosec
	}
	if delay <= 0 {
		return nil
	}

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
