package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bidzhoyandavid/auto-bot/internal/domain/value"
)

type stubFetcher struct {
	pages map[string]string
	calls []string
}

func (f *stubFetcher) FetchPage(_ context.Context, url string, _ FetchOptions) (string, error) {
	f.calls = append(f.calls, url)

	html, ok := f.pages[url]
	if !ok {
		return "", errors.New("unexpected url: " + url)
	}

	return html, nil
}

const listAmPage = `<html><body>
<div class="gl">
  <a href="/item/21487563">
    <img data-src="//i.list.am/g/123/456.jpg">
    <div class="l">Mercedes-Benz E 350 Срочно</div>
    <div class="p">6,800,000 ֏</div>
    <div class="at">55,000 km, 2021, Yerevan</div>
  </a>
</div>
<div class="gl">
  <a href="/c/promo">
    <div class="l">Реклама</div>
  </a>
</div>
<div class="gl">
  <a href="/item/998877">
    <img src="https://i.list.am/g/998/877.jpg">
    <div class="l">Mercedes E 200</div>
    <div class="p">$15,500</div>
    <div class="at">120,000 km, 2020</div>
  </a>
</div>
</body></html>`

const listAmEmptyPage = `<html><body><div class="footer"></div></body></html>`

func TestListAmScrape(t *testing.T) {
	base := "https://www.list.am/category/23?_a2_1=2020&bid=49&crc=1&mid=963&price2=20000"

	fetcher := &stubFetcher{pages: map[string]string{
		base:           listAmPage,
		base + "&pg=2": listAmEmptyPage,
	}}

	s := NewListAm(fetcher).WithDelays(0, 0)

	listings, err := s.Scrape(context.Background(), Criteria{
		Targets:     []TargetCar{{Make: "Mercedes", Model: "E-Class"}},
		MinYear:     2020,
		MaxPriceUSD: 20000,
		MaxPages:    3,
	})
	require.NoError(t, err)
	require.Equal(t, []string{base, base + "&pg=2"}, fetcher.calls)
	require.Len(t, listings, 2)

	first := listings[0]
	require.Equal(t, value.SourceListAm, first.Source)
	require.Equal(t, "21487563", first.ExternalID)
	require.Equal(t, "https://www.list.am/item/21487563", first.URL)
	require.Equal(t, "Mercedes", first.Make)
	require.Equal(t, "E-Class", *first.Model)
	require.Equal(t, 2021, *first.Year)
	require.Equal(t, 55000, *first.Mileage)
	require.Equal(t, value.CurrencyAMD, first.CurrencyOriginal)
	require.InDelta(t, 6800000, first.PriceOriginal, 0.01)
	require.InDelta(t, 17000, first.PriceUSD, 0.01)
	require.Equal(t, "Mercedes-Benz E 350 Срочно", first.Title)
	require.Equal(t, "Yerevan", *first.Location)
	require.Equal(t, "https://i.list.am/g/123/456.jpg", *first.ImageURL)
	require.True(t, first.IsUrgent)
	require.Nil(t, first.CustomsCleared)

	second := listings[1]
	require.Equal(t, "998877", second.ExternalID)
	require.Equal(t, 2020, *second.Year)
	require.Equal(t, value.CurrencyUSD, second.CurrencyOriginal)
	require.InDelta(t, 15500, second.PriceUSD, 0.01)
	require.Equal(t, "https://i.list.am/g/998/877.jpg", *second.ImageURL)
	require.False(t, second.IsUrgent)
	require.Nil(t, second.Location)
}

func TestListAmScrapeUnknownTarget(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{}}
	s := NewListAm(fetcher).WithDelays(0, 0)

	listings, err := s.Scrape(context.Background(), Criteria{
		Targets:     []TargetCar{{Make: "Lada", Model: "Niva"}},
		MinYear:     2020,
		MaxPriceUSD: 20000,
		MaxPages:    3,
	})
	require.NoError(t, err)
	require.Empty(t, listings)
	require.Empty(t, fetcher.calls)
}

func TestListAmScrapeFetchErrorIsNotFatal(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{}}
	s := NewListAm(fetcher).WithDelays(0, 0)

	listings, err := s.Scrape(context.Background(), Criteria{
		Targets:     []TargetCar{{Make: "Mercedes", Model: "E-Class"}},
		MinYear:     2020,
		MaxPriceUSD: 20000,
		MaxPages:    3,
	})
	require.NoError(t, err)
	require.Empty(t, listings)
	require.Len(t, fetcher.calls, 1)
}

func TestListAmSearchURL(t *testing.T) {
	s := NewListAm(nil)
	criteria := Criteria{MinYear: 2020, MaxPriceUSD: 20000}

	require.Equal(t,
		"https://www.list.am/category/23?_a2_1=2020&bid=7&crc=1&mid=121&price2=20000",
		s.searchURL(listAmID{BrandID: 7, ModelID: 121}, criteria),
	)

	// Без модели параметр mid не ставится.
	require.Equal(t,
		"https://www.list.am/category/23?_a2_1=2020&bid=7&crc=1&price2=20000",
		s.searchURL(listAmID{BrandID: 7}, criteria),
	)
}

func TestListAmCatalogCoversDefaultTargets(t *testing.T) {
	for _, target := range DefaultTargets {
		_, ok := listAmCatalog[target]
		require.True(t, ok, "missing catalog entry for %s", target)
	}
}
