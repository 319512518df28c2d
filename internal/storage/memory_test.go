package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vectorads/spendmetrics/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func record(date time.Time, campaign string, spend float64, conversions int64) *models.SpendRecord {
	return &models.SpendRecord{
		Date:        date,
		Platform:    "google",
		Account:     "acct-1",
		Campaign:    campaign,
		Country:     "US",
		Device:      "mobile",
		Spend:       spend,
		Conversions: conversions,
	}
}

func TestInMemoryUpsertNaturalKey(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemorySpendRepo()

	first := record(day(2025, 7, 1), "summer_sale", 100, 5)
	first.LoadDate = day(2025, 7, 2)
	require.NoError(t, repo.Upsert(ctx, first))

	// Same natural key, different measurements: must overwrite, not duplicate.
	second := record(day(2025, 7, 1), "summer_sale", 250, 9)
	second.LoadDate = day(2025, 7, 3)
	require.NoError(t, repo.Upsert(ctx, second))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	totals, err := repo.AggregateWindow(ctx, day(2025, 7, 1), day(2025, 7, 1))
	require.NoError(t, err)
	assert.Equal(t, 250.0, totals.Spend)
	assert.Equal(t, 9.0, totals.Conversions)
}

func TestInMemoryAggregateWindowBounds(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemorySpendRepo()

	require.NoError(t, repo.Upsert(ctx, record(day(2025, 6, 30), "a", 10, 1)))
	require.NoError(t, repo.Upsert(ctx, record(day(2025, 7, 1), "b", 20, 2)))
	require.NoError(t, repo.Upsert(ctx, record(day(2025, 7, 31), "c", 30, 3)))
	require.NoError(t, repo.Upsert(ctx, record(day(2025, 8, 1), "d", 40, 4)))

	totals, err := repo.AggregateWindow(ctx, day(2025, 7, 1), day(2025, 7, 31))
	require.NoError(t, err)
	assert.Equal(t, 50.0, totals.Spend)
	assert.Equal(t, 5.0, totals.Conversions)
}

func TestInMemoryAggregateWindowEmpty(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemorySpendRepo()

	totals, err := repo.AggregateWindow(ctx, day(2025, 7, 1), day(2025, 7, 31))
	require.NoError(t, err)
	assert.Zero(t, totals.Spend)
	assert.Zero(t, totals.Conversions)
}

func TestInMemoryMaxDate(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemorySpendRepo()

	max, err := repo.MaxDate(ctx)
	require.NoError(t, err)
	assert.Nil(t, max)

	require.NoError(t, repo.Upsert(ctx, record(day(2025, 8, 15), "a", 10, 1)))
	require.NoError(t, repo.Upsert(ctx, record(day(2025, 6, 1), "b", 10, 1)))

	max, err = repo.MaxDate(ctx)
	require.NoError(t, err)
	require.NotNil(t, max)
	assert.Equal(t, day(2025, 8, 15), *max)
}
