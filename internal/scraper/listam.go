package scraper

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"

	"github.com/bidzhoyandavid/auto-bot/internal/domain"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/service/urgency"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/value"
	"github.com/bidzhoyandavid/auto-bot/pkg/errcodes"
)

const (
	listAmBaseURL  = "https://www.list.am"
	listAmCarsPath = "/category/23" // транспорт → легковые
)

// Селекторы карточки в выдаче.
const (
	listAmCardSelector  = ".gl"
	listAmTitleSelector = ".l"
	listAmPriceSelector = ".p"
	listAmInfoSelector  = ".at"
)

type listAmID struct {
	BrandID int
	ModelID int // 0 = все модели марки
}

// listAmCatalog — идентификаторы марок и моделей в каталоге list.am.
var listAmCatalog = map[TargetCar]listAmID{ //nolint:gochecknoglobals
	{Make: "Mercedes", Model: "E-Class"}:           {49, 963},
	{Make: "Mercedes", Model: "S-Class"}:           {49, 986},
	{Make: "Mercedes", Model: "GLC-Class"}:         {49, 1984},
	{Make: "Mercedes", Model: "GLE-Class"}:         {49, 1983},
	{Make: "BMW", Model: "3 Series"}:               {7, 187},
	{Make: "BMW", Model: "4 Series"}:               {7, 109},
	{Make: "BMW", Model: "5 Series"}:               {7, 110},
	{Make: "BMW", Model: "7 Series"}:               {7, 113},
	{Make: "BMW", Model: "X3"}:                     {7, 120},
	{Make: "BMW", Model: "X5"}:                     {7, 121},
	{Make: "Audi", Model: "A4"}:                    {5, 62},
	{Make: "Audi", Model: "A5"}:                    {5, 65},
	{Make: "Audi", Model: "A6"}:                    {5, 64},
	{Make: "Audi", Model: "A8"}:                    {5, 66},
	{Make: "Audi", Model: "Q5"}:                    {5, 71},
	{Make: "Lexus", Model: "RX"}:                   {42, 833},
	{Make: "Lexus", Model: "GS"}:                   {42, 825},
	{Make: "Lexus", Model: "ES"}:                   {42, 824},
	{Make: "Lexus", Model: "IS"}:                   {42, 828},
	{Make: "Toyota", Model: "Land Cruiser Prado"}:  {76, 1597},
	{Make: "Toyota", Model: "Camry"}:               {76, 1560},
	{Make: "Toyota", Model: "Highlander"}:          {76, 1588},
	{Make: "Mitsubishi", Model: "Outlander"}:       {53, 1069},
	{Make: "Mazda", Model: "CX-5"}:                 {48, 914},
}

var listAmCities = []string{ //nolint:gochecknoglobals
	"Yerevan", "Gyumri", "Vanadzor", "Ejmiatsin", "Abovyan", "Kapan", "Armavir",
}

// ListAm — скрейпер армянской доски объявлений list.am.
// Страницы статические, но прикрыты Cloudflare, поэтому ходим
// через headless-браузер.
type ListAm struct {
	fetcher  Fetcher
	delayMin time.Duration
	delayMax time.Duration
}

func NewListAm(fetcher Fetcher) *ListAm {
	return &ListAm{
		fetcher:  fetcher,
		delayMin: 5 * time.Second,
		delayMax: 15 * time.Second,
	}
}

func (s *ListAm) WithDelays(min, max time.Duration) *ListAm {
	s.delayMin = min
	s.delayMax = max
	return s
}

func (s *ListAm) Source() value.Source {
	return value.SourceListAm
}

// Scrape обходит выдачу по каждой целевой паре марка+модель.
func (s *ListAm) Scrape(ctx context.Context, criteria Criteria) ([]entity.Listing, error) {
	var all []entity.Listing

	for i, target := range criteria.Targets {
		ids, ok := listAmCatalog[target]
		if !ok {
			logger(ctx).Warn("list.am: target not in catalog, skipped",
				"make", target.Make,
				"model", target.Model,
			)
			continue
		}

		if i > 0 {
			if err := randomPause(ctx, s.delayMin, s.delayMax); err != nil {
				return all, err
			}
		}

		found, err := s.scrapeTarget(ctx, target, s.searchURL(ids, criteria), criteria.MaxPages)
		if err != nil {
			return all, err
		}

		all = append(all, found...)
	}

	logger(ctx).Info("list.am: scrape finished", "total", len(all))

	return all, nil
}

// searchURL строит URL выдачи: брендовый фильтр, потолок цены,
// нижняя граница года.
func (s *ListAm) searchURL(ids listAmID, criteria Criteria) string {
	params := url.Values{}
	params.Set("bid", strconv.Itoa(ids.BrandID))
	params.Set("price2", strconv.Itoa(criteria.MaxPriceUSD))
	params.Set("_a2_1", strconv.Itoa(criteria.MinYear))
	params.Set("crc", "1")

	if ids.ModelID > 0 {
		params.Set("mid", strconv.Itoa(ids.ModelID))
	}

	return listAmBaseURL + listAmCarsPath + "?" + params.Encode()
}

func (s *ListAm) scrapeTarget(
	ctx context.Context,
	target TargetCar,
	baseURL string,
	maxPages int,
) ([]entity.Listing, error) {
	var found []entity.Listing

	for page := 1; page <= maxPages; page++ {
		pageURL := baseURL
		if page > 1 {
			pageURL = fmt.Sprintf("%s&pg=%d", baseURL, page)
		}

		logger(ctx).Info("list.am: fetching page", "target", target.String(), "page", page)

		html, err := s.fetcher.FetchPage(ctx, pageURL, FetchOptions{
			WaitSelector: listAmCardSelector,
		})
		if err != nil {
			if ctx.Err() != nil {
				return found, ctx.Err()
			}
			// Нефатально: переходим к следующей цели.
			logger(ctx).Warn("list.am: page fetch failed", "url", pageURL, "error", err)
			break
		}

		listings, err := s.parsePage(html, target)
		if err != nil {
			logger(ctx).Warn("list.am: page parse failed", "error", err)
			break
		}

		if len(listings) == 0 {
			break
		}

		found = append(found, listings...)

		if page < maxPages {
			if err := randomPause(ctx, s.delayMin, s.delayMax); err != nil {
				return found, err
			}
		}
	}

	return found, nil
}

// parsePage разбирает HTML выдачи в нормализованные объявления.
func (s *ListAm) parsePage(html string, target TargetCar) ([]entity.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, domain.WrapError(err, errcodes.ParseFailed, "list.am: bad html")
	}

	var listings []entity.Listing

	doc.Find(listAmCardSelector).Each(func(_ int, card *goquery.Selection) {
		if listing := s.parseCard(card, target); listing != nil {
			listings = append(listings, *listing)
		}
	})

	return listings, nil
}

func (s *ListAm) parseCard(card *goquery.Selection, target TargetCar) *entity.Listing {
	href, ok := card.Find("a").First().Attr("href")
	if !ok || !strings.HasPrefix(href, "/item/") {
		return nil
	}

	title := strings.TrimSpace(card.Find(listAmTitleSelector).First().Text())
	priceText := strings.TrimSpace(card.Find(listAmPriceSelector).First().Text())
	infoText := strings.TrimSpace(card.Find(listAmInfoSelector).First().Text())

	priceOriginal, currency := ParsePrice(priceText)

	year := ParseYear(infoText)
	if year == nil {
		year = ParseYear(title)
	}

	return &entity.Listing{
		Source:           value.SourceListAm,
		ExternalID:       path.Base(href),
		URL:              listAmBaseURL + href,
		Make:             NormalizeMake(target.Make),
		Model:            lo.ToPtr(target.Model),
		Year:             year,
		Mileage:          ParseMileage(infoText),
		PriceUSD:         currency.ToUSD(priceOriginal),
		PriceOriginal:    priceOriginal,
		CurrencyOriginal: currency,
		Title:            title,
		Location:         listAmLocation(infoText),
		ImageURL:         cardImage(card, listAmBaseURL),
		IsUrgent:         urgency.ContainsKeyword(title + " " + infoText),
	}
}

func listAmLocation(info string) *string {
	lower := strings.ToLower(info)
	for _, city := range listAmCities {
		if strings.Contains(lower, strings.ToLower(city)) {
			return lo.ToPtr(city)
		}
	}
	return nil
}

// cardImage достаёт ссылку на фото, терпя lazy-loading и
// протокол-относительные URL.
func cardImage(card *goquery.Selection, baseURL string) *string {
	img := card.Find("img").First()

	src, ok := img.Attr("src")
	if !ok || src == "" {
		src, _ = img.Attr("data-src")
	}

	switch {
	case src == "" || strings.HasPrefix(src, "data:"):
		return nil
	case strings.HasPrefix(src, "//"):
		src = "https:" + src
	case !strings.HasPrefix(src, "http"):
		src = baseURL + src
	}

	return &src
}
