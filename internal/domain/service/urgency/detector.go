package urgency

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// Пороги падения цены, в процентах.
const (
	significantDropPercent = 5.0
	majorDropPercent       = 10.0
)

// Веса сигналов. Порог подобран так, чтобы срабатывал либо один сильный
// сигнал, либо комбинация слабых.
const (
	keywordScore    = 0.5
	presetFlagScore = 0.3
	majorDropScore  = 0.4
	minorDropScore  = 0.2

	urgentThreshold = 0.3
)

const maxReasonKeywords = 3

// HistoryProvider отдаёт последние записи истории цены, новые первыми.
type HistoryProvider interface {
	RecentPrices(ctx context.Context, listingID int64, limit int) ([]entity.PricePoint, error)
}

// Detector ищет признаки срочной продажи: ключевые слова в тексте,
// проставленный площадкой флаг и падение цены по истории.
type Detector struct {
	history  HistoryProvider
	matchers []matcher
}

func NewDetector(history HistoryProvider) *Detector {
	return &Detector{
		history:  history,
		matchers: compileMatchers(defaultKeywords),
	}
}

// Analyze выносит вердикт о срочности объявления.
func (d *Detector) Analyze(ctx context.Context, listing *entity.Listing) (entity.UrgencyAnalysis, error) {
	analysis := entity.UrgencyAnalysis{ListingID: listing.ID}

	if text := listing.SearchText(); text != "" {
		detected := d.detectKeywords(text)
		if len(detected) > 0 {
			analysis.HasUrgentKeywords = true
			analysis.DetectedKeywords = detected
			analysis.Score += keywordScore
		}
	}

	if listing.IsUrgent {
		analysis.HasUrgentKeywords = true
		analysis.Score += presetFlagScore
	}

	drop, err := d.priceDrop(ctx, listing.ID)
	if err != nil {
		return entity.UrgencyAnalysis{}, err
	}

	if drop != nil && *drop >= significantDropPercent {
		analysis.HasPriceDrop = true
		analysis.PriceDropPercent = drop

		if *drop >= majorDropPercent {
			analysis.Score += majorDropScore
		} else {
			analysis.Score += minorDropScore
		}
	}

	analysis.IsUrgent = analysis.Score >= urgentThreshold
	analysis.Reason = buildReason(analysis)

	logger(ctx).Debug("urgency analyzed",
		"listing_id", listing.ID,
		"urgent", analysis.IsUrgent,
		"score", analysis.Score,
	)

	return analysis, nil
}

// priceDrop возвращает положительный процент снижения цены между двумя
// последними записями истории; nil, если записей меньше двух или цена
// не снижалась.
func (d *Detector) priceDrop(ctx context.Context, listingID int64) (*float64, error) {
	points, err := d.history.RecentPrices(ctx, listingID, 2)
	if err != nil {
		return nil, fmt.Errorf("history.RecentPrices: %w", err)
	}

	if len(points) < 2 || points[1].PriceUSD == 0 {
		return nil, nil
	}

	current, previous := points[0].PriceUSD, points[1].PriceUSD

	change := (current - previous) / previous * 100
	if change >= 0 {
		return nil, nil
	}

	drop := -change

	return &drop, nil
}

func (d *Detector) detectKeywords(text string) []string {
	var detected []string
	seen := make(map[string]struct{})

	for _, m := range d.matchers {
		match := m.find(text)
		if match == "" {
			continue
		}

		match = strings.ToLower(strings.TrimSpace(match))
		if _, ok := seen[match]; ok {
			continue
		}

		seen[match] = struct{}{}
		detected = append(detected, match)
	}

	return detected
}

func buildReason(a entity.UrgencyAnalysis) string {
	var parts []string

	if a.HasUrgentKeywords {
		if len(a.DetectedKeywords) > 0 {
			samples := a.DetectedKeywords
			if len(samples) > maxReasonKeywords {
				samples = samples[:maxReasonKeywords]
			}
			parts = append(parts, "Keywords: "+strings.Join(samples, ", "))
		} else {
			parts = append(parts, "Marked as urgent")
		}
	}

	if a.HasPriceDrop && a.PriceDropPercent != nil {
		parts = append(parts, fmt.Sprintf("Price dropped %.1f%%", *a.PriceDropPercent))
	}

	return strings.Join(parts, "; ")
}

type matcher struct {
	re *regexp.Regexp
	// group — индекс группы с ключевым словом; 0 = весь матч.
	group int
}

func (m matcher) find(text string) string {
	if m.group == 0 {
		return m.re.FindString(text)
	}

	sub := m.re.FindStringSubmatch(text)
	if sub == nil {
		return ""
	}

	return sub[m.group]
}

func compileMatchers(keywords map[string][]string) []matcher {
	var matchers []matcher

	for _, locale := range localeOrder {
		for _, kw := range keywords[locale] {
			matchers = append(matchers, newKeywordMatcher(kw))
		}
	}

	// Сигналы вне словарей: тройные восклицания, капс, «асап».
	matchers = append(matchers,
		matcher{re: regexp.MustCompile(`!!!+`)},
		matcher{re: regexp.MustCompile(`СРОЧНО`)},
		matcher{re: regexp.MustCompile(`URGENT`)},
		newKeywordMatcher("асап"),
	)

	return matchers
}

// newKeywordMatcher строит матчер для ключевого слова: фразы ищутся как
// подстроки, одиночные слова — по границам слова. \b в Go понимает только
// ASCII, поэтому границы для кириллицы и армянского заданы явно
// через \p{L}/\p{N}.
func newKeywordMatcher(kw string) matcher {
	quoted := regexp.QuoteMeta(kw)

	if strings.Contains(kw, " ") {
		return matcher{re: regexp.MustCompile(`(?i)` + quoted)}
	}

	return matcher{
		re:    regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(` + quoted + `)(?:$|[^\p{L}\p{N}_])`),
		group: 1,
	}
}
