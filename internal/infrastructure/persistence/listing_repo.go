package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bidzhoyandavid/auto-bot/internal/domain"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/pkg/errcodes"
)

// Меньше этого числа сопоставимых объявлений — рыночной оценки нет.
const minComparables = 3

const listingColumns = `
	id, source, external_id, url, make, model, year, mileage,
	price_usd, price_original, currency_original, title,
	description, location, image_url, is_urgent, customs_cleared,
	first_seen_at, last_seen_at`

// ListingRepository хранит объявления, историю цен и журнал уведомлений.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository создаёт новый экземпляр репозитория.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// withTx выполняет функцию в транзакции.
func (r *ListingRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return domain.WrapError(
				fmt.Errorf("%w; rollback: %v", err, rbErr),
				errcodes.InternalServerError,
				"transaction failed",
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to commit")
	}

	return nil
}

// Upsert сохраняет свежесобранное объявление. Возвращает актуальную
// запись, признак первой встречи и предыдущую цену для уже известных.
// Точка в истории цен создаётся только при фактической смене цены,
// включая самую первую наблюдаемую.
func (r *ListingRepository) Upsert(
	ctx context.Context,
	listing *entity.Listing,
) (*entity.Listing, bool, *float64, error) {
	var (
		saved     entity.Listing
		isNew     bool
		prevPrice *float64
	)

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		const query = `
			SELECT` + listingColumns + `
			FROM listings
			WHERE source = $1 AND external_id = $2
			FOR UPDATE`

		var existing entity.Listing

		err := tx.GetContext(ctx, &existing, query, listing.Source, listing.ExternalID)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			inserted, insErr := r.insertTx(ctx, tx, listing)
			if insErr != nil {
				return insErr
			}

			if histErr := r.appendPriceTx(ctx, tx, inserted); histErr != nil {
				return histErr
			}

			saved = *inserted
			isNew = true

			return nil

		case err != nil:
			return domain.WrapError(err, errcodes.InternalServerError, "failed to lock listing")
		}

		price := existing.PriceUSD
		prevPrice = &price

		updated, updErr := r.updateTx(ctx, tx, existing.ID, listing)
		if updErr != nil {
			return updErr
		}

		if updated.PriceUSD != price {
			if histErr := r.appendPriceTx(ctx, tx, updated); histErr != nil {
				return histErr
			}
		}

		saved = *updated

		return nil
	})
	if err != nil {
		return nil, false, nil, err
	}

	return &saved, isNew, prevPrice, nil
}

// insertTx — вставка нового объявления в рамках транзакции.
func (r *ListingRepository) insertTx(
	ctx context.Context,
	tx *sqlx.Tx,
	listing *entity.Listing,
) (*entity.Listing, error) {
	const query = `
		INSERT INTO listings (
			source, external_id, url, make, model, year, mileage,
			price_usd, price_original, currency_original, title,
			description, location, image_url, is_urgent, customs_cleared,
			first_seen_at, last_seen_at
		) VALUES (
			:source, :external_id, :url, :make, :model, :year, :mileage,
			:price_usd, :price_original, :currency_original, :title,
			:description, :location, :image_url, :is_urgent, :customs_cleared,
			now(), now()
		)
		RETURNING` + listingColumns

	return r.queryListing(ctx, tx, query, listingParams(listing), "failed to insert listing")
}

// updateTx перезаписывает изменяемые поля. Необязательные поля обновляются
// только непустыми значениями: пропавшее из карточки описание не затирает
// уже сохранённое.
func (r *ListingRepository) updateTx(
	ctx context.Context,
	tx *sqlx.Tx,
	id int64,
	fresh *entity.Listing,
) (*entity.Listing, error) {
	const query = `
		UPDATE listings SET
			url = :url,
			make = :make,
			model = COALESCE(:model, model),
			year = COALESCE(:year, year),
			mileage = COALESCE(:mileage, mileage),
			price_usd = :price_usd,
			price_original = :price_original,
			currency_original = :currency_original,
			title = :title,
			description = COALESCE(:description, description),
			location = COALESCE(:location, location),
			image_url = COALESCE(:image_url, image_url),
			is_urgent = :is_urgent,
			customs_cleared = COALESCE(:customs_cleared, customs_cleared),
			last_seen_at = now()
		WHERE id = :id
		RETURNING` + listingColumns

	params := listingParams(fresh)
	params["id"] = id

	return r.queryListing(ctx, tx, query, params, "failed to update listing")
}

// queryListing выполняет запрос с именованными параметрами, возвращающий
// ровно одну строку объявления.
func (r *ListingRepository) queryListing(
	ctx context.Context,
	tx *sqlx.Tx,
	query string,
	params map[string]any,
	failMsg string,
) (*entity.Listing, error) {
	rows, err := sqlx.NamedQueryContext(ctx, tx, query, params)
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, failMsg)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, domain.WrapError(err, errcodes.InternalServerError, failMsg)
		}
		return nil, domain.NewError(errcodes.ListingNotFound, "listing not found")
	}

	var listing entity.Listing
	if err := rows.StructScan(&listing); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to scan listing")
	}

	return &listing, nil
}

// appendPriceTx добавляет точку в историю цены.
func (r *ListingRepository) appendPriceTx(ctx context.Context, tx *sqlx.Tx, listing *entity.Listing) error {
	const query = `
		INSERT INTO price_history (listing_id, price_usd, price_original, currency_original, recorded_at)
		VALUES (:listing_id, :price_usd, :price_original, :currency_original, now())`

	params := map[string]any{
		"listing_id":        listing.ID,
		"price_usd":         listing.PriceUSD,
		"price_original":    listing.PriceOriginal,
		"currency_original": string(listing.CurrencyOriginal),
	}

	if _, err := tx.NamedExecContext(ctx, query, params); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to append price history")
	}

	return nil
}

// GetByID возвращает объявление по идентификатору.
func (r *ListingRepository) GetByID(ctx context.Context, id int64) (*entity.Listing, error) {
	const query = `SELECT` + listingColumns + ` FROM listings WHERE id = $1`

	var listing entity.Listing
	if err := r.db.GetContext(ctx, &listing, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(errcodes.ListingNotFound, "listing not found")
		}
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get listing")
	}

	return &listing, nil
}

// History возвращает историю цены объявления, новые записи первыми.
func (r *ListingRepository) History(ctx context.Context, listingID int64) ([]entity.PricePoint, error) {
	const query = `
		SELECT id, listing_id, price_usd, price_original, currency_original, recorded_at
		FROM price_history
		WHERE listing_id = $1
		ORDER BY recorded_at DESC, id DESC`

	var points []entity.PricePoint
	if err := r.db.SelectContext(ctx, &points, query, listingID); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to load price history")
	}

	return points, nil
}

// RecentPrices возвращает не больше limit последних точек истории,
// новые первыми.
func (r *ListingRepository) RecentPrices(ctx context.Context, listingID int64, limit int) ([]entity.PricePoint, error) {
	const query = `
		SELECT id, listing_id, price_usd, price_original, currency_original, recorded_at
		FROM price_history
		WHERE listing_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT $2`

	var points []entity.PricePoint
	if err := r.db.SelectContext(ctx, &points, query, listingID, limit); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to load price history")
	}

	return points, nil
}

// PricePercentile возвращает цену на заданном перцентиле среди объявлений
// той же марки (и соседних годов выпуска, если год известен).
func (r *ListingRepository) PricePercentile(
	ctx context.Context,
	carMake string,
	year *int,
	percentile int,
) (*float64, error) {
	query := `
		SELECT price_usd FROM listings
		WHERE make ILIKE '%' || $1 || '%' AND price_usd > 0`
	args := []any{carMake}

	if year != nil {
		query += ` AND year BETWEEN $2 AND $3`
		args = append(args, *year-1, *year+1)
	}

	query += ` ORDER BY price_usd`

	var prices []float64
	if err := r.db.SelectContext(ctx, &prices, query, args...); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to load comparable prices")
	}

	if len(prices) < minComparables {
		return nil, nil
	}

	idx := len(prices) * percentile / 100
	if idx >= len(prices) {
		idx = len(prices) - 1
	}

	price := prices[idx]

	return &price, nil
}

// AveragePrice возвращает среднюю цену по марке (и модели/соседним годам,
// если известны). nil — когда сопоставимых объявлений нет.
func (r *ListingRepository) AveragePrice(
	ctx context.Context,
	carMake string,
	model *string,
	year *int,
) (*float64, error) {
	query := `SELECT AVG(price_usd) FROM listings WHERE make ILIKE '%' || $1 || '%' AND price_usd > 0`
	args := []any{carMake}

	if model != nil && *model != "" {
		query += fmt.Sprintf(` AND model ILIKE '%%' || $%d || '%%'`, len(args)+1)
		args = append(args, *model)
	}

	if year != nil {
		query += fmt.Sprintf(` AND year BETWEEN $%d AND $%d`, len(args)+1, len(args)+2)
		args = append(args, *year-1, *year+1)
	}

	var avg sql.NullFloat64
	if err := r.db.GetContext(ctx, &avg, query, args...); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to load average price")
	}

	if !avg.Valid {
		return nil, nil
	}

	return &avg.Float64, nil
}

// ListingsByMake возвращает объявления марки carMake, свежие первыми.
// minYear и maxPriceUSD сужают выборку; nil = без ограничения.
func (r *ListingRepository) ListingsByMake(
	ctx context.Context,
	carMake string,
	minYear *int,
	maxPriceUSD *int,
) ([]entity.Listing, error) {
	query := `SELECT` + listingColumns + ` FROM listings WHERE make ILIKE '%' || $1 || '%'`
	args := []any{carMake}

	if minYear != nil {
		query += fmt.Sprintf(` AND year >= $%d`, len(args)+1)
		args = append(args, *minYear)
	}

	if maxPriceUSD != nil {
		query += fmt.Sprintf(` AND price_usd <= $%d`, len(args)+1)
		args = append(args, *maxPriceUSD)
	}

	query += ` ORDER BY last_seen_at DESC, id DESC`

	var listings []entity.Listing
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to load listings by make")
	}

	return listings, nil
}

// WasNotificationSent проверяет, уведомляли ли об объявлении за окно within.
func (r *ListingRepository) WasNotificationSent(
	ctx context.Context,
	listingID int64,
	within time.Duration,
) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM sent_notifications
			WHERE listing_id = $1 AND sent_at >= $2
		)`

	var sent bool
	if err := r.db.GetContext(ctx, &sent, query, listingID, time.Now().Add(-within)); err != nil {
		return false, domain.WrapError(err, errcodes.InternalServerError, "failed to check notification ledger")
	}

	return sent, nil
}

// RecordNotification пишет запись в журнал после успешной отправки.
func (r *ListingRepository) RecordNotification(
	ctx context.Context,
	listingID int64,
	reason entity.NotifyReason,
	messageID *int,
) error {
	if !reason.Valid() {
		return domain.NewError(errcodes.InvalidReason, fmt.Sprintf("unknown notify reason %q", reason))
	}

	const query = `
		INSERT INTO sent_notifications (listing_id, reason, message_id, sent_at)
		VALUES (:listing_id, :reason, :message_id, now())`

	params := map[string]any{
		"listing_id": listingID,
		"reason":     string(reason),
		"message_id": messageID,
	}

	if _, err := r.db.NamedExecContext(ctx, query, params); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to record notification")
	}

	return nil
}

// Stats собирает сводку по базе для отчётов бота и ops-API.
func (r *ListingRepository) Stats(ctx context.Context) (entity.RepoStats, error) {
	stats := entity.RepoStats{
		BySource: make(map[string]int64),
		ByMake:   make(map[string]int64),
	}

	if err := r.db.GetContext(ctx, &stats.TotalListings, `SELECT COUNT(*) FROM listings`); err != nil {
		return stats, domain.WrapError(err, errcodes.InternalServerError, "failed to count listings")
	}

	if err := r.db.GetContext(ctx, &stats.TotalNotifications, `SELECT COUNT(*) FROM sent_notifications`); err != nil {
		return stats, domain.WrapError(err, errcodes.InternalServerError, "failed to count notifications")
	}

	const recentQuery = `SELECT COUNT(*) FROM sent_notifications WHERE sent_at >= now() - INTERVAL '24 hours'`
	if err := r.db.GetContext(ctx, &stats.Notifications24h, recentQuery); err != nil {
		return stats, domain.WrapError(err, errcodes.InternalServerError, "failed to count recent notifications")
	}

	var bySource []countRow
	if err := r.db.SelectContext(ctx, &bySource,
		`SELECT source AS key, COUNT(*) AS count FROM listings GROUP BY source`); err != nil {
		return stats, domain.WrapError(err, errcodes.InternalServerError, "failed to group by source")
	}
	for _, row := range bySource {
		stats.BySource[row.Key] = row.Count
	}

	var byMake []countRow
	if err := r.db.SelectContext(ctx, &byMake,
		`SELECT make AS key, COUNT(*) AS count FROM listings GROUP BY make`); err != nil {
		return stats, domain.WrapError(err, errcodes.InternalServerError, "failed to group by make")
	}
	for _, row := range byMake {
		stats.ByMake[row.Key] = row.Count
	}

	return stats, nil
}
