package persistence_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/bidzhoyandavid/auto-bot/internal/domain"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/value"
	"github.com/bidzhoyandavid/auto-bot/internal/infrastructure/persistence"
	"github.com/bidzhoyandavid/auto-bot/pkg/dbtest"
	"github.com/bidzhoyandavid/auto-bot/pkg/errcodes"

	_ "github.com/jackc/pgx/v5/stdlib" // драйвер postgres
)

// newTestRepo подключается к базе из TEST_PG_DSN, накатывает схему и
// чистит таблицы. Без переменной тест пропускается.
func newTestRepo(t *testing.T) *persistence.ListingRepository {
	t.Helper()

	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN is not set")
	}

	db, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, dbtest.MigrateFromFile(db, "../../../migrations/0001_init.sql"))

	_, err = db.Exec(`TRUNCATE listings, price_history, sent_notifications RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return persistence.NewListingRepository(db)
}

func testListing(extID string, price float64) *entity.Listing {
	return &entity.Listing{
		Source:           value.SourceListAm,
		ExternalID:       extID,
		URL:              "https://www.list.am/item/" + extID,
		Make:             "BMW",
		Model:            lo.ToPtr("X5"),
		Year:             lo.ToPtr(2021),
		Mileage:          lo.ToPtr(45000),
		PriceUSD:         price,
		PriceOriginal:    price * 400,
		CurrencyOriginal: value.CurrencyAMD,
		Title:            "BMW X5 2021",
		Description:      lo.ToPtr("Отличное состояние"),
	}
}

func TestUpsertInsertThenUpdate(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newTestRepo(t)

	saved, isNew, prev, err := repo.Upsert(ctx, testListing("101", 25000))
	rq.NoError(err)
	rq.True(isNew)
	rq.Nil(prev)
	rq.NotZero(saved.ID)
	rq.False(saved.FirstSeenAt.IsZero())

	// Первая цена попадает в историю сразу.
	history, err := repo.History(ctx, saved.ID)
	rq.NoError(err)
	rq.Len(history, 1)
	rq.InDelta(25000, history[0].PriceUSD, 0.001)

	// Повторная встреча без смены цены: не новое, история не растёт.
	again, isNew, prev, err := repo.Upsert(ctx, testListing("101", 25000))
	rq.NoError(err)
	rq.False(isNew)
	rq.NotNil(prev)
	rq.InDelta(25000, *prev, 0.001)
	rq.Equal(saved.ID, again.ID)

	history, err = repo.History(ctx, saved.ID)
	rq.NoError(err)
	rq.Len(history, 1)
}

func TestUpsertPriceChangeAppendsHistory(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newTestRepo(t)

	saved, _, _, err := repo.Upsert(ctx, testListing("102", 25000))
	rq.NoError(err)

	updated, isNew, prev, err := repo.Upsert(ctx, testListing("102", 23500))
	rq.NoError(err)
	rq.False(isNew)
	rq.NotNil(prev)
	rq.InDelta(25000, *prev, 0.001)
	rq.InDelta(23500, updated.PriceUSD, 0.001)

	// Новые записи первыми.
	history, err := repo.History(ctx, saved.ID)
	rq.NoError(err)
	rq.Len(history, 2)
	rq.InDelta(23500, history[0].PriceUSD, 0.001)
	rq.InDelta(25000, history[1].PriceUSD, 0.001)

	recent, err := repo.RecentPrices(ctx, saved.ID, 1)
	rq.NoError(err)
	rq.Len(recent, 1)
	rq.InDelta(23500, recent[0].PriceUSD, 0.001)
}

func TestUpsertKeepsOptionalFields(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newTestRepo(t)

	_, _, _, err := repo.Upsert(ctx, testListing("103", 25000))
	rq.NoError(err)

	// Карточка без описания и пробега не затирает сохранённое.
	bare := testListing("103", 25000)
	bare.Description = nil
	bare.Mileage = nil

	saved, _, _, err := repo.Upsert(ctx, bare)
	rq.NoError(err)
	rq.NotNil(saved.Description)
	rq.Equal("Отличное состояние", *saved.Description)
	rq.NotNil(saved.Mileage)
	rq.Equal(45000, *saved.Mileage)
}

func TestSameExternalIDOnDifferentSources(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newTestRepo(t)

	first, isNew, _, err := repo.Upsert(ctx, testListing("104", 25000))
	rq.NoError(err)
	rq.True(isNew)

	other := testListing("104", 30000)
	other.Source = value.SourceMyAutoGe
	other.URL = "https://www.myauto.ge/ru/pr/104"

	second, isNew, _, err := repo.Upsert(ctx, other)
	rq.NoError(err)
	rq.True(isNew)
	rq.NotEqual(first.ID, second.ID)
}

func TestGetByIDNotFound(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.GetByID(ctx, 404)
	rq.Error(err)

	code, ok := domain.GetCode(err)
	rq.True(ok)
	rq.Equal(errcodes.ListingNotFound, code)
}

func TestPricePercentile(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newTestRepo(t)

	prices := []float64{18000, 20000, 22000, 24000, 26000, 28000, 30000, 32000, 34000, 36000}
	for i, price := range prices {
		l := testListing("p"+string(rune('a'+i)), price)
		_, _, _, err := repo.Upsert(ctx, l)
		rq.NoError(err)
	}

	// 20-й перцентиль из десяти цен — третья по возрастанию.
	p20, err := repo.PricePercentile(ctx, "BMW", lo.ToPtr(2021), 20)
	rq.NoError(err)
	rq.NotNil(p20)
	rq.InDelta(22000, *p20, 0.001)

	// Год вне окна ±1 отсекает все объявления.
	p20, err = repo.PricePercentile(ctx, "BMW", lo.ToPtr(2010), 20)
	rq.NoError(err)
	rq.Nil(p20)

	// По чужой марке данных меньше трёх — оценки нет.
	p20, err = repo.PricePercentile(ctx, "Lada", nil, 20)
	rq.NoError(err)
	rq.Nil(p20)
}

func TestAveragePriceAndComparables(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newTestRepo(t)

	for i, price := range []float64{20000, 24000, 28000} {
		l := testListing("a"+string(rune('a'+i)), price)
		_, _, _, err := repo.Upsert(ctx, l)
		rq.NoError(err)
	}

	avg, err := repo.AveragePrice(ctx, "BMW", lo.ToPtr("X5"), lo.ToPtr(2021))
	rq.NoError(err)
	rq.NotNil(avg)
	rq.InDelta(24000, *avg, 0.001)

	avg, err = repo.AveragePrice(ctx, "Lada", nil, nil)
	rq.NoError(err)
	rq.Nil(avg)

	comparables, err := repo.ListingsByMake(ctx, "BMW", lo.ToPtr(2020), nil)
	rq.NoError(err)
	rq.Len(comparables, 3)

	// Потолок цены отсекает дорогие объявления.
	comparables, err = repo.ListingsByMake(ctx, "BMW", lo.ToPtr(2020), lo.ToPtr(24000))
	rq.NoError(err)
	rq.Len(comparables, 2)

	comparables, err = repo.ListingsByMake(ctx, "BMW", lo.ToPtr(2022), nil)
	rq.NoError(err)
	rq.Empty(comparables)
}

func TestNotificationLedger(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newTestRepo(t)

	saved, _, _, err := repo.Upsert(ctx, testListing("105", 25000))
	rq.NoError(err)

	sent, err := repo.WasNotificationSent(ctx, saved.ID, 24*time.Hour)
	rq.NoError(err)
	rq.False(sent)

	rq.NoError(repo.RecordNotification(ctx, saved.ID, entity.ReasonGoodPrice, lo.ToPtr(777)))

	sent, err = repo.WasNotificationSent(ctx, saved.ID, 24*time.Hour)
	rq.NoError(err)
	rq.True(sent)

	// За пределами окна запись не считается.
	sent, err = repo.WasNotificationSent(ctx, saved.ID, time.Nanosecond)
	rq.NoError(err)
	rq.False(sent)

	// Мусорная причина отклоняется до обращения к базе.
	err = repo.RecordNotification(ctx, saved.ID, entity.NotifyReason("spam"), nil)
	rq.Error(err)

	code, ok := domain.GetCode(err)
	rq.True(ok)
	rq.Equal(errcodes.InvalidReason, code)
}

func TestStats(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newTestRepo(t)

	bmw, _, _, err := repo.Upsert(ctx, testListing("106", 25000))
	rq.NoError(err)

	audi := testListing("107", 21000)
	audi.Make = "Audi"
	audi.Source = value.SourceMyAutoGe
	_, _, _, err = repo.Upsert(ctx, audi)
	rq.NoError(err)

	rq.NoError(repo.RecordNotification(ctx, bmw.ID, entity.ReasonNewListing, nil))

	stats, err := repo.Stats(ctx)
	rq.NoError(err)
	rq.Equal(int64(2), stats.TotalListings)
	rq.Equal(int64(1), stats.TotalNotifications)
	rq.Equal(int64(1), stats.Notifications24h)
	rq.Equal(int64(1), stats.BySource["list.am"])
	rq.Equal(int64(1), stats.BySource["myauto.ge"])
	rq.Equal(int64(1), stats.ByMake["BMW"])
	rq.Equal(int64(1), stats.ByMake["Audi"])
}
