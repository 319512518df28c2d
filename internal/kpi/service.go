package kpi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/vectorads/spendmetrics/internal/metrics"
	"github.com/vectorads/spendmetrics/internal/models"
	"github.com/vectorads/spendmetrics/internal/storage"
)

// RevenuePerConversion is the assumed revenue attributed to each conversion
// when deriving ROAS.
const RevenuePerConversion = 100.0

// ErrInvalidRange is returned when start is after end.
var ErrInvalidRange = errors.New("start must be before or equal to end")

// Assumptions documents the constants baked into derived KPIs.
type Assumptions struct {
	RevenuePerConversion float64 `json:"revenue_per_conversion"`
}

// WindowedMetrics is the result of aggregating a date window and deriving
// CAC/ROAS from the totals. CAC is nil when conversions are zero, ROAS is nil
// when spend is zero.
type WindowedMetrics struct {
	Start       string      `json:"start"`
	End         string      `json:"end"`
	Spend       float64     `json:"spend"`
	Conversions float64     `json:"conversions"`
	CAC         *float64    `json:"cac"`
	ROAS        *float64    `json:"roas"`
	Assumptions Assumptions `json:"assumptions"`
}

// CompareRow is one metric line of the 30-vs-30 comparison.
type CompareRow struct {
	Metric   string   `json:"metric"`
	Prior30  *float64 `json:"prior_30"`
	Last30   *float64 `json:"last_30"`
	DeltaAbs *float64 `json:"delta_abs"`
	DeltaPct *float64 `json:"delta_pct"`
}

// Comparison is the full compare-30d result.
type Comparison struct {
	Anchor       string       `json:"anchor"`
	Last30Start  string       `json:"last_30_start"`
	Last30End    string       `json:"last_30_end"`
	Prior30Start string       `json:"prior_30_start"`
	Prior30End   string       `json:"prior_30_end"`
	Rows         []CompareRow `json:"rows"`
	Assumptions  Assumptions  `json:"assumptions"`
}

// Service computes KPI aggregations over the spend store. Both operations are
// pure functions of the store content and their date parameters.
type Service struct {
	repo    storage.SpendRepo
	cache   *ResultCache
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService constructs a Service. cache and m may be nil.
func NewService(repo storage.SpendRepo, cache *ResultCache, m *metrics.Metrics) *Service {
	return &Service{repo: repo, cache: cache, metrics: m, now: time.Now}
}

// WindowedMetrics aggregates spend and conversions over [start, end] and
// derives CAC and ROAS from the totals.
func (s *Service) WindowedMetrics(ctx context.Context, start, end time.Time) (*WindowedMetrics, error) {
	start, end = models.Day(start), models.Day(end)
	if start.After(end) {
		return nil, ErrInvalidRange
	}

	key := fmt.Sprintf("metrics:%s:%s", start.Format(models.DateFormat), end.Format(models.DateFormat))
	if s.cache != nil {
		var cached WindowedMetrics
		hit := s.cache.Get(ctx, key, &cached)
		if s.metrics != nil {
			s.metrics.RecordCacheLookup("windowed_metrics", hit)
		}
		if hit {
			return &cached, nil
		}
	}

	began := time.Now()
	totals, err := s.repo.AggregateWindow(ctx, start, end)
	if err != nil {
		s.recordQuery("windowed_metrics", "error", began)
		return nil, err
	}
	s.recordQuery("windowed_metrics", "ok", began)

	result := &WindowedMetrics{
		Start:       start.Format(models.DateFormat),
		End:         end.Format(models.DateFormat),
		Spend:       roundTo(totals.Spend, 2),
		Conversions: roundTo(totals.Conversions, 2),
		CAC:         deriveCAC(totals),
		ROAS:        deriveROAS(totals),
		Assumptions: Assumptions{RevenuePerConversion: RevenuePerConversion},
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, result)
	}
	return result, nil
}

// Compare30d compares the last 30 days against the prior 30 days, anchored on
// the latest stored date (or today for an empty store).
func (s *Service) Compare30d(ctx context.Context) (*Comparison, error) {
	const key = "compare30d"
	if s.cache != nil {
		var cached Comparison
		hit := s.cache.Get(ctx, key, &cached)
		if s.metrics != nil {
			s.metrics.RecordCacheLookup("compare_30d", hit)
		}
		if hit {
			return &cached, nil
		}
	}

	began := time.Now()
	anchor, err := s.anchorDate(ctx)
	if err != nil {
		s.recordQuery("compare_30d", "error", began)
		return nil, err
	}

	last, prior := compareWindows(anchor)

	lastTotals, err := s.repo.AggregateWindow(ctx, last.start, last.end)
	if err != nil {
		s.recordQuery("compare_30d", "error", began)
		return nil, err
	}
	priorTotals, err := s.repo.AggregateWindow(ctx, prior.start, prior.end)
	if err != nil {
		s.recordQuery("compare_30d", "error", began)
		return nil, err
	}
	s.recordQuery("compare_30d", "ok", began)

	result := &Comparison{
		Anchor:       anchor.Format(models.DateFormat),
		Last30Start:  last.start.Format(models.DateFormat),
		Last30End:    last.end.Format(models.DateFormat),
		Prior30Start: prior.start.Format(models.DateFormat),
		Prior30End:   prior.end.Format(models.DateFormat),
		Rows:         compareRows(priorTotals, lastTotals),
		Assumptions:  Assumptions{RevenuePerConversion: RevenuePerConversion},
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, result)
	}
	return result, nil
}

// anchorDate resolves the comparison anchor: max(date) in the store, falling
// back to the current date when the store is empty.
func (s *Service) anchorDate(ctx context.Context) (time.Time, error) {
	max, err := s.repo.MaxDate(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if max == nil {
		return models.Day(s.now()), nil
	}
	return models.Day(*max), nil
}

func (s *Service) recordQuery(query, status string, began time.Time) {
	if s.metrics != nil {
		s.metrics.RecordQuery(query, status, time.Since(began))
	}
}

func deriveCAC(t storage.WindowTotals) *float64 {
	if t.Conversions == 0 {
		return nil
	}
	v := roundTo(t.Spend/t.Conversions, 2)
	return &v
}

func deriveROAS(t storage.WindowTotals) *float64 {
	if t.Spend == 0 {
		return nil
	}
	v := roundTo(t.Conversions*RevenuePerConversion/t.Spend, 4)
	return &v
}

// compareRows emits one row per metric with absolute and percent deltas.
// delta_pct is nil when the prior value is nil or zero.
func compareRows(prior, last storage.WindowTotals) []CompareRow {
	rows := []CompareRow{
		metricRow("spend", ptr(prior.Spend), ptr(last.Spend), 2),
		metricRow("conversions", ptr(prior.Conversions), ptr(last.Conversions), 2),
		metricRow("CAC", deriveCACRaw(prior), deriveCACRaw(last), 2),
		metricRow("ROAS", deriveROASRaw(prior), deriveROASRaw(last), 4),
	}
	return rows
}

// deriveCACRaw and deriveROASRaw return unrounded ratios so deltas are
// computed before the output rounding is applied.
func deriveCACRaw(t storage.WindowTotals) *float64 {
	if t.Conversions == 0 {
		return nil
	}
	return ptr(t.Spend / t.Conversions)
}

func deriveROASRaw(t storage.WindowTotals) *float64 {
	if t.Spend == 0 {
		return nil
	}
	return ptr(t.Conversions * RevenuePerConversion / t.Spend)
}

func metricRow(name string, prior, last *float64, places int) CompareRow {
	row := CompareRow{Metric: name}
	if prior != nil {
		row.Prior30 = ptr(roundTo(*prior, places))
	}
	if last != nil {
		row.Last30 = ptr(roundTo(*last, places))
	}
	if prior != nil && last != nil {
		row.DeltaAbs = ptr(roundTo(*last-*prior, places))
		if *prior != 0 {
			row.DeltaPct = ptr(roundTo((*last - *prior) / *prior * 100, 2))
		}
	}
	return row
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func ptr(v float64) *float64 { return &v }
