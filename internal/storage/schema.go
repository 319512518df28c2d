package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS ads_spend (
	date             date NOT NULL,
	platform         text NOT NULL,
	account          text NOT NULL,
	campaign         text NOT NULL,
	country          text NOT NULL,
	device           text NOT NULL,
	spend            numeric(18,2) NOT NULL DEFAULT 0,
	clicks           bigint NOT NULL DEFAULT 0,
	impressions      bigint NOT NULL DEFAULT 0,
	conversions      bigint NOT NULL DEFAULT 0,
	load_date        timestamptz NOT NULL,
	source_file_name text NOT NULL DEFAULT '',
	CONSTRAINT ads_spend_natural_key UNIQUE (date, platform, account, campaign, country, device)
);

CREATE INDEX IF NOT EXISTS idx_ads_spend_date ON ads_spend (date);
CREATE INDEX IF NOT EXISTS idx_ads_spend_campaign ON ads_spend (campaign);
CREATE INDEX IF NOT EXISTS idx_ads_spend_platform ON ads_spend (platform);
`

// EnsureSchema creates the ads_spend table and its indexes if absent.
// Safe to run on every startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
