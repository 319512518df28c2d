package storage

import (
	"context"
	"sync"
	"time"

	"github.com/vectorads/spendmetrics/internal/models"
)

// InMemorySpendRepo implements SpendRepo with a mutex-guarded map. Used when
// PostgreSQL is unavailable and as the store double in tests. Semantics match
// the Postgres implementation: keyed upsert, inclusive-range aggregation.
type InMemorySpendRepo struct {
	mu      sync.RWMutex
	records map[string]models.SpendRecord
}

func NewInMemorySpendRepo() *InMemorySpendRepo {
	return &InMemorySpendRepo{records: make(map[string]models.SpendRecord)}
}

func (r *InMemorySpendRepo) Upsert(ctx context.Context, rec *models.SpendRecord) error {
	cp := *rec
	cp.Date = models.Day(rec.Date)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[cp.Key()] = cp
	return nil
}

func (r *InMemorySpendRepo) AggregateWindow(ctx context.Context, start, end time.Time) (WindowTotals, error) {
	start, end = models.Day(start), models.Day(end)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var t WindowTotals
	for _, rec := range r.records {
		if rec.Date.Before(start) || rec.Date.After(end) {
			continue
		}
		t.Spend += rec.Spend
		t.Conversions += float64(rec.Conversions)
	}
	return t, nil
}

func (r *InMemorySpendRepo) MaxDate(ctx context.Context) (*time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var max *time.Time
	for _, rec := range r.records {
		d := rec.Date
		if max == nil || d.After(*max) {
			max = &d
		}
	}
	return max, nil
}

func (r *InMemorySpendRepo) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.records)), nil
}
