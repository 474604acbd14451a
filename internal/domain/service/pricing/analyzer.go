package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/value"
	"github.com/bidzhoyandavid/auto-bot/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	// GoodDealPercentile — цена строго ниже этого перцентиля считается выгодной.
	GoodDealPercentile = 20

	// significantDiscountPercent — отклонение от среднего строго больше
	// этого порога означает цену заметно ниже рынка.
	significantDiscountPercent = 15.0

	minSamplesForConfidence = 5
)

// MarketStats — агрегаты по накопленным объявлениям.
// Опциональные фильтры передаются указателями: nil = без фильтра.
type MarketStats interface {
	PricePercentile(ctx context.Context, make string, year *int, percentile int) (*float64, error)
	AveragePrice(ctx context.Context, make string, model *string, year *int) (*float64, error)
	ListingsByMake(ctx context.Context, make string, minYear *int, maxPriceUSD *int) ([]entity.Listing, error)
}

// Analyzer сравнивает цену объявления с рынком: 20-й перцентиль
// одноклассников (та же марка, ±1 год) и среднее по марке/модели.
type Analyzer struct {
	market MarketStats
}

func NewAnalyzer(market MarketStats) *Analyzer {
	return &Analyzer{market: market}
}

// Analyze выносит вердикт по цене объявления. Вердикт детерминирован:
// одинаковое состояние рынка даёт одинаковый результат.
func (a *Analyzer) Analyze(ctx context.Context, listing *entity.Listing) (entity.PriceAnalysis, error) {
	analysis := entity.PriceAnalysis{
		ListingID:    listing.ID,
		CurrentPrice: listing.PriceUSD,
	}

	percentile, err := a.market.PricePercentile(ctx, listing.Make, listing.Year, GoodDealPercentile)
	if err != nil {
		return entity.PriceAnalysis{}, fmt.Errorf("market.PricePercentile: %w", err)
	}

	average, err := a.market.AveragePrice(ctx, listing.Make, listing.Model, listing.Year)
	if err != nil {
		return entity.PriceAnalysis{}, fmt.Errorf("market.AveragePrice: %w", err)
	}

	var minYear *int
	if listing.Year != nil {
		minYear = lo.ToPtr(*listing.Year - 1)
	}

	comparables, err := a.market.ListingsByMake(ctx, listing.Make, minYear, nil)
	if err != nil {
		return entity.PriceAnalysis{}, fmt.Errorf("market.ListingsByMake: %w", err)
	}

	analysis.Confidence = confidence(len(comparables))
	analysis.MarketAverage = average
	analysis.Percentile20 = percentile

	var reasons []string

	if percentile != nil && listing.PriceUSD < *percentile {
		analysis.IsGoodDeal = true
		diff := *percentile - listing.PriceUSD
		reasons = append(reasons, fmt.Sprintf(
			"$%s below P20 ($%s)",
			value.FormatUSD(diff), value.FormatUSD(*percentile),
		))
	}

	if average != nil && *average > 0 {
		deviation := (*average - listing.PriceUSD) / *average * 100
		analysis.DeviationPercent = &deviation

		if deviation > significantDiscountPercent {
			analysis.IsBelowMarket = true
			analysis.IsGoodDeal = true
			reasons = append(reasons, fmt.Sprintf(
				"%.0f%% below market avg ($%s)",
				deviation, value.FormatUSD(*average),
			))
		}
	}

	if len(reasons) > 0 {
		analysis.Reason = strings.Join(reasons, "; ")
	} else {
		analysis.Reason = "Price within normal market range"
	}

	logger(ctx).Debug("price analyzed",
		"listing_id", listing.ID,
		"good_deal", analysis.IsGoodDeal,
		"confidence", analysis.Confidence,
		"reason", analysis.Reason,
	)

	return analysis, nil
}

// confidence — уверенность вердикта по размеру выборки одноклассников.
func confidence(sampleSize int) float64 {
	switch {
	case sampleSize >= minSamplesForConfidence*2:
		return 1.0
	case sampleSize >= minSamplesForConfidence:
		return 0.7
	case sampleSize >= 3:
		return 0.4
	default:
		return 0.2
	}
}
