package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vectorads/spendmetrics/internal/models"
)

// PostgresSpendRepo implements SpendRepo using PostgreSQL.
type PostgresSpendRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresSpendRepo(pool *pgxpool.Pool) *PostgresSpendRepo {
	return &PostgresSpendRepo{pool: pool}
}

// Upsert relies on the ads_spend_natural_key constraint: the insert-or-update
// is atomic per row, so concurrent ingest runs racing on the same key resolve
// last-writer-wins without in-process locking.
func (r *PostgresSpendRepo) Upsert(ctx context.Context, rec *models.SpendRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ads_spend (
			date, platform, account, campaign, country, device,
			spend, clicks, impressions, conversions,
			load_date, source_file_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (date, platform, account, campaign, country, device) DO UPDATE SET
			spend = EXCLUDED.spend,
			clicks = EXCLUDED.clicks,
			impressions = EXCLUDED.impressions,
			conversions = EXCLUDED.conversions,
			load_date = EXCLUDED.load_date,
			source_file_name = EXCLUDED.source_file_name
	`,
		models.Day(rec.Date), rec.Platform, rec.Account, rec.Campaign, rec.Country, rec.Device,
		rec.Spend, rec.Clicks, rec.Impressions, rec.Conversions,
		rec.LoadDate, rec.SourceFileName,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert spend record: %w", err)
	}
	return nil
}

// AggregateWindow aggregates in two stages (daily, then totals) so ratios are
// always derived from aggregate sums. This mirrors the reporting query shape
// the table was designed for and keeps grouping consistent when a window
// spans many dates.
func (r *PostgresSpendRepo) AggregateWindow(ctx context.Context, start, end time.Time) (WindowTotals, error) {
	var t WindowTotals
	err := r.pool.QueryRow(ctx, `
		WITH daily AS (
			SELECT date,
			       SUM(spend)::numeric(18,2)       AS spend,
			       SUM(conversions)::numeric(18,2) AS conversions
			FROM ads_spend
			WHERE date >= $1 AND date <= $2
			GROUP BY date
		)
		SELECT COALESCE(SUM(spend), 0)::float8,
		       COALESCE(SUM(conversions), 0)::float8
		FROM daily
	`, models.Day(start), models.Day(end)).Scan(&t.Spend, &t.Conversions)
	if err != nil {
		return WindowTotals{}, fmt.Errorf("failed to aggregate window: %w", err)
	}
	return t, nil
}

func (r *PostgresSpendRepo) MaxDate(ctx context.Context) (*time.Time, error) {
	var max *time.Time
	err := r.pool.QueryRow(ctx, `SELECT max(date) FROM ads_spend`).Scan(&max)
	if err != nil {
		return nil, fmt.Errorf("failed to get max date: %w", err)
	}
	if max == nil {
		return nil, nil
	}
	d := models.Day(*max)
	return &d, nil
}

func (r *PostgresSpendRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM ads_spend`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count spend records: %w", err)
	}
	return n, nil
}
