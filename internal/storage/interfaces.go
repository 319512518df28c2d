package storage

import (
	"context"
	"time"

	"github.com/vectorads/spendmetrics/internal/models"
)

// WindowTotals holds aggregate totals for a date window. Ratios (CAC/ROAS)
// are derived from these totals, never computed per row and averaged.
type WindowTotals struct {
	Spend       float64
	Conversions float64
}

// SpendRepo defines operations over the spend record store.
type SpendRepo interface {
	// Upsert inserts the record or, on natural-key conflict, overwrites the
	// measurement and provenance columns. Key columns are immutable.
	Upsert(ctx context.Context, rec *models.SpendRecord) error

	// AggregateWindow sums spend and conversions over [start, end] inclusive.
	// An empty window yields zero totals, not an error.
	AggregateWindow(ctx context.Context, start, end time.Time) (WindowTotals, error)

	// MaxDate returns the latest date present, or nil when the store is empty.
	MaxDate(ctx context.Context) (*time.Time, error)

	// Count returns the number of stored rows.
	Count(ctx context.Context) (int64, error)
}
