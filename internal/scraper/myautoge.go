package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"

	"github.com/bidzhoyandavid/auto-bot/internal/domain"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/service/urgency"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/value"
	"github.com/bidzhoyandavid/auto-bot/pkg/errcodes"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

const (
	myAutoBaseURL    = "https://www.myauto.ge"
	myAutoSearchPath = "/en/s/car"
	myAutoPhotoBase  = "https://static.my.ge/myauto/photos/"

	myAutoResultsSelector = "[data-testid='search-results']"
	myAutoLinkSelector    = "a[href*='/pr/']"

	// currency_id в ответах myauto.ge: 1 = USD, остальное = лари.
	myAutoCurrencyUSD = 1
)

// myAutoBrandIDs — идентификаторы марок в каталоге myauto.ge.
// Марки вне каталога площадкой не ищутся и пропускаются.
var myAutoBrandIDs = map[string]string{ //nolint:gochecknoglobals
	"BMW":      "9",
	"Mercedes": "47",
	"Audi":     "11",
	"Lexus":    "37",
}

var (
	myAutoIDRe        = regexp.MustCompile(`/pr/(\d+)`)
	myAutoMakeModelRe = regexp.MustCompile(`(?i)\b(BMW|Mercedes(?:-Benz)?|Audi|Lexus)\s+([\w-]+)`)

	// Порядок важен: долларовые паттерны раньше лари.
	myAutoPricePatterns = []*regexp.Regexp{ //nolint:gochecknoglobals
		regexp.MustCompile(`\$\s*([\d,\s]+)`),
		regexp.MustCompile(`([\d,\s]+)\s*\$`),
		regexp.MustCompile(`(?i)([\d,\s]+)\s*USD`),
		regexp.MustCompile(`₾\s*([\d,\s]+)`),
		regexp.MustCompile(`([\d,\s]+)\s*₾`),
		regexp.MustCompile(`(?i)([\d,\s]+)\s*GEL`),
	}
)

var myAutoCities = []struct{ EN, KA string }{ //nolint:gochecknoglobals
	{"Tbilisi", "თბილისი"},
	{"Batumi", "ბათუმი"},
	{"Kutaisi", "ქუთაისი"},
	{"Rustavi", "რუსთავი"},
	{"Gori", "გორი"},
	{"Zugdidi", "ზუგდიდი"},
}

// MyAutoGe — скрейпер грузинского маркетплейса myauto.ge.
// Сайт — SPA на Next.js: выдача дублируется в #__NEXT_DATA__, откуда
// и берутся структурированные данные; разбор DOM остаётся запасным
// путём на случай смены формата пейлоада.
type MyAutoGe struct {
	fetcher  Fetcher
	delayMin time.Duration
	delayMax time.Duration
}

// NewMyAutoGe создаёт скрейпер с увеличенными паузами: защита
// площадки агрессивнее, чем у list.am.
func NewMyAutoGe(fetcher Fetcher) *MyAutoGe {
	return &MyAutoGe{
		fetcher:  fetcher,
		delayMin: 8 * time.Second,
		delayMax: 20 * time.Second,
	}
}

func (s *MyAutoGe) WithDelays(min, max time.Duration) *MyAutoGe {
	s.delayMin = min
	s.delayMax = max
	return s
}

func (s *MyAutoGe) Source() value.Source {
	return value.SourceMyAutoGe
}

// Scrape обходит общую выдачу по всем целевым маркам сразу: фильтр
// mansNModels принимает список идентификаторов.
func (s *MyAutoGe) Scrape(ctx context.Context, criteria Criteria) ([]entity.Listing, error) {
	baseURL, ok := s.searchURL(criteria)
	if !ok {
		logger(ctx).Warn("myauto.ge: no target makes in catalog, skipped")
		return nil, nil
	}

	var all []entity.Listing

	for page := 1; page <= criteria.MaxPages; page++ {
		pageURL := baseURL
		if page > 1 {
			pageURL = fmt.Sprintf("%s&page=%d", baseURL, page)
		}

		logger(ctx).Info("myauto.ge: fetching page", "page", page)

		html, err := s.fetcher.FetchPage(ctx, pageURL, FetchOptions{
			WaitSelector: myAutoResultsSelector,
			Timeout:      45 * time.Second,
		})
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			logger(ctx).Warn("myauto.ge: page fetch failed", "url", pageURL, "error", err)
			break
		}

		listings, err := s.parsePage(html)
		if err != nil {
			logger(ctx).Warn("myauto.ge: page parse failed", "error", err)
			break
		}

		if len(listings) == 0 {
			break
		}

		all = append(all, listings...)

		if page < criteria.MaxPages {
			if err := randomPause(ctx, s.delayMin, s.delayMax); err != nil {
				return all, err
			}
		}
	}

	logger(ctx).Info("myauto.ge: scrape finished", "total", len(all))

	return all, nil
}

func (s *MyAutoGe) searchURL(criteria Criteria) (string, bool) {
	// Формат фильтра: mansNModels=9.0,47.0 (id марки с суффиксом .0).
	var ids []string
	for _, make := range Makes(criteria.Targets) {
		if id, ok := myAutoBrandIDs[NormalizeMake(make)]; ok {
			ids = append(ids, id+".0")
		}
	}
	if len(ids) == 0 {
		return "", false
	}

	params := url.Values{}
	params.Set("bargainType", "0")
	params.Set("vehicleType", "0")
	params.Set("currencyId", "1")
	params.Set("priceTo", strconv.Itoa(criteria.MaxPriceUSD))
	params.Set("yearFrom", strconv.Itoa(criteria.MinYear))
	params.Set("mansNModels", strings.Join(ids, ","))
	params.Set("sortId", "1")

	return myAutoBaseURL + myAutoSearchPath + "?" + params.Encode(), true
}

func (s *MyAutoGe) parsePage(html string) ([]entity.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, domain.WrapError(err, errcodes.ParseFailed, "myauto.ge: bad html")
	}

	if listings := s.parseNextData(doc); len(listings) > 0 {
		return listings, nil
	}

	return s.parseDOM(doc), nil
}

type nextDataPayload struct {
	Props struct {
		PageProps struct {
			Items   []myAutoItem `json:"items"`
			Results []myAutoItem `json:"results"`
		} `json:"pageProps"`
	} `json:"props"`
}

type myAutoItem struct {
	CarID         int64           `json:"car_id"`
	ID            int64           `json:"id"`
	ManName       string          `json:"man_name"`
	Manufacturer  string          `json:"manufacturer"`
	ModelName     string          `json:"model_name"`
	Model         string          `json:"model"`
	Price         float64         `json:"price"`
	CurrencyID    int             `json:"currency_id"`
	ProdYear      int             `json:"prod_year"`
	Year          int             `json:"year"`
	CarRun        int             `json:"car_run"`
	Mileage       int             `json:"mileage"`
	Photo         string          `json:"photo"`
	PicURL        string          `json:"pic_url"`
	Stickers      []myAutoSticker `json:"stickers"`
	CustomsPassed bool            `json:"customs_passed"`
	LocationName  string          `json:"location_name"`
	Location      string          `json:"location"`
}

type myAutoSticker struct {
	Name string `json:"name"`
}

func (s *MyAutoGe) parseNextData(doc *goquery.Document) []entity.Listing {
	raw := doc.Find("script#__NEXT_DATA__").First().Text()
	if raw == "" {
		return nil
	}

	var payload nextDataPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}

	items := payload.Props.PageProps.Items
	if len(items) == 0 {
		items = payload.Props.PageProps.Results
	}

	listings := make([]entity.Listing, 0, len(items))
	for _, item := range items {
		if listing := s.listingFromItem(item); listing != nil {
			listings = append(listings, *listing)
		}
	}

	return listings
}

func (s *MyAutoGe) listingFromItem(item myAutoItem) *entity.Listing {
	id := item.CarID
	if id == 0 {
		id = item.ID
	}
	if id == 0 {
		return nil
	}

	make := item.ManName
	if make == "" {
		make = item.Manufacturer
	}
	model := item.ModelName
	if model == "" {
		model = item.Model
	}
	year := item.ProdYear
	if year == 0 {
		year = item.Year
	}
	mileage := item.CarRun
	if mileage == 0 {
		mileage = item.Mileage
	}

	currency := value.CurrencyGEL
	if item.CurrencyID == myAutoCurrencyUSD {
		currency = value.CurrencyUSD
	}

	externalID := strconv.FormatInt(id, 10)

	listing := &entity.Listing{
		Source:           value.SourceMyAutoGe,
		ExternalID:       externalID,
		URL:              myAutoBaseURL + "/en/pr/" + externalID,
		Make:             NormalizeMake(make),
		PriceUSD:         currency.ToUSD(item.Price),
		PriceOriginal:    item.Price,
		CurrencyOriginal: currency,
		IsUrgent:         hasUrgentSticker(item.Stickers),
		CustomsCleared:   lo.ToPtr(item.CustomsPassed),
	}

	titleParts := []string{listing.Make}
	if model != "" {
		listing.Model = lo.ToPtr(model)
		titleParts = append(titleParts, model)
	}
	if year > 0 {
		listing.Year = lo.ToPtr(year)
		titleParts = append(titleParts, strconv.Itoa(year))
	}
	if mileage > 0 {
		listing.Mileage = lo.ToPtr(mileage)
	}
	listing.Title = strings.Join(titleParts, " ")

	if photo := myAutoPhotoURL(item); photo != "" {
		listing.ImageURL = &photo
	}

	location := item.LocationName
	if location == "" {
		location = item.Location
	}
	if location != "" {
		listing.Location = lo.ToPtr(location)
	}

	return listing
}

func myAutoPhotoURL(item myAutoItem) string {
	photo := item.Photo
	if photo == "" {
		photo = item.PicURL
	}

	switch {
	case photo == "":
		return ""
	case strings.HasPrefix(photo, "http"):
		return photo
	default:
		return myAutoPhotoBase + photo
	}
}

func hasUrgentSticker(stickers []myAutoSticker) bool {
	for _, sticker := range stickers {
		name := strings.ToLower(sticker.Name)
		if name == "urgently" || name == "სასწრაფოდ" {
			return true
		}
	}
	return false
}

// parseDOM разбирает карточки по ссылкам на объявления. Текст карточки
// слабо структурирован, поэтому детали вытаскиваются паттернами.
func (s *MyAutoGe) parseDOM(doc *goquery.Document) []entity.Listing {
	var listings []entity.Listing
	seen := make(map[string]struct{})

	doc.Find(myAutoLinkSelector).Each(func(_ int, card *goquery.Selection) {
		listing := s.parseCard(card)
		if listing == nil {
			return
		}
		if _, dup := seen[listing.ExternalID]; dup {
			return
		}
		seen[listing.ExternalID] = struct{}{}
		listings = append(listings, *listing)
	})

	return listings
}

func (s *MyAutoGe) parseCard(card *goquery.Selection) *entity.Listing {
	href, ok := card.Attr("href")
	if !ok {
		return nil
	}

	match := myAutoIDRe.FindStringSubmatch(href)
	if match == nil {
		return nil
	}
	externalID := match[1]

	listingURL := href
	if strings.HasPrefix(href, "/") {
		listingURL = myAutoBaseURL + href
	}

	text := card.Text()
	make, model := myAutoMakeModel(text)
	priceUSD, priceOriginal, currency := myAutoPrice(text)

	listing := &entity.Listing{
		Source:           value.SourceMyAutoGe,
		ExternalID:       externalID,
		URL:              listingURL,
		Make:             make,
		Model:            model,
		Year:             ParseYear(text),
		Mileage:          ParseMileage(text),
		PriceUSD:         priceUSD,
		PriceOriginal:    priceOriginal,
		CurrencyOriginal: currency,
		Location:         myAutoLocation(text),
		ImageURL:         cardImage(card, myAutoBaseURL),
		IsUrgent:         myAutoUrgent(text),
		CustomsCleared:   lo.ToPtr(myAutoCustomsCleared(text)),
	}

	titleParts := []string{make}
	if model != nil {
		titleParts = append(titleParts, *model)
	}
	if listing.Year != nil {
		titleParts = append(titleParts, strconv.Itoa(*listing.Year))
	}
	listing.Title = strings.Join(titleParts, " ")

	return listing
}

func myAutoMakeModel(text string) (string, *string) {
	if m := myAutoMakeModelRe.FindStringSubmatch(text); m != nil {
		return NormalizeMake(m[1]), lo.ToPtr(m[2])
	}

	lower := strings.ToLower(text)
	for _, alias := range []string{"mercedes-benz", "mercedes", "bmw", "audi", "lexus"} {
		if strings.Contains(lower, alias) {
			return NormalizeMake(alias), nil
		}
	}

	return "Unknown", nil
}

func myAutoPrice(text string) (priceUSD, priceOriginal float64, currency value.Currency) {
	for _, re := range myAutoPricePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		num, ok := firstNumber(m[1])
		if !ok {
			continue
		}

		upper := strings.ToUpper(text)
		switch {
		case strings.Contains(text, "$") || strings.Contains(upper, "USD"):
			return num, num, value.CurrencyUSD
		case strings.Contains(text, "₾") || strings.Contains(upper, "GEL"):
			return value.CurrencyGEL.ToUSD(num), num, value.CurrencyGEL
		default:
			return num, num, value.CurrencyUSD
		}
	}

	return 0, 0, value.CurrencyUSD
}

func myAutoUrgent(text string) bool {
	lower := strings.ToLower(text)
	for _, hint := range []string{"urgently", "urgent", "სასწრაფოდ", "hot offer", "must sell"} {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return urgency.ContainsKeyword(text)
}

func myAutoCustomsCleared(text string) bool {
	return strings.Contains(strings.ToLower(text), "customs cleared") ||
		strings.Contains(text, "განბაჟებული")
}

func myAutoLocation(text string) *string {
	lower := strings.ToLower(text)
	for _, city := range myAutoCities {
		if strings.Contains(lower, strings.ToLower(city.EN)) || strings.Contains(text, city.KA) {
			return lo.ToPtr(city.EN)
		}
	}
	return nil
}
