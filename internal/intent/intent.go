package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vectorads/spendmetrics/internal/models"
)

// Kind enumerates the closed set of query shapes a question can map to.
// The mapper never guesses: anything outside the recognized vocabulary is
// KindUnmapped.
type Kind string

const (
	KindWindow   Kind = "windowed_metrics"
	KindCompare  Kind = "compare_30d"
	KindUnmapped Kind = "unmapped"
)

// Query is the mapped result: a query shape plus its extracted parameters.
// Start/End are set for KindWindow only.
type Query struct {
	Kind  Kind
	Start time.Time
	End   time.Time
}

var (
	datePattern    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	lastNDays      = regexp.MustCompile(`last\s+(\d+)\s+days?`)
	compareMarkers = regexp.MustCompile(`\b(vs\.?|versus|compared?( to)?|against|prior|previous)\b`)
	metricMarkers  = regexp.MustCompile(`\b(cac|roas|spend|conversions?|kpis?|metrics?|performance)\b`)
	rangeMarkers   = regexp.MustCompile(`\b(from|between|since)\b`)
)

// Mapper maps free-text analytics questions onto the two known query shapes.
// The vocabulary is deliberately small and the dispatch is a tagged variant,
// so the mapping stays auditable without any language model in the loop.
type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

// Map classifies a question. Comparison phrasing ("compare CAC and ROAS for
// the last 30 days vs the prior 30 days") maps to KindCompare; a metric
// question carrying two ISO dates maps to KindWindow with the dates in
// encounter order. Everything else is KindUnmapped.
func (m *Mapper) Map(question string) Query {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return Query{Kind: KindUnmapped}
	}

	if m.isCompare(q) {
		return Query{Kind: KindCompare}
	}

	if start, end, ok := m.extractRange(q); ok {
		return Query{Kind: KindWindow, Start: start, End: end}
	}

	return Query{Kind: KindUnmapped}
}

// isCompare recognizes last-vs-prior comparison phrasing. Only the 30-day
// horizon is a known query shape; an explicit different horizon stays
// unmapped rather than being silently coerced.
func (m *Mapper) isCompare(q string) bool {
	if !metricMarkers.MatchString(q) {
		return false
	}
	if !compareMarkers.MatchString(q) && !strings.Contains(q, "compare") {
		return false
	}
	if match := lastNDays.FindStringSubmatch(q); match != nil {
		n, err := strconv.Atoi(match[1])
		return err == nil && n == 30
	}
	// No horizon mentioned: comparison questions default to 30 days.
	return true
}

// extractRange maps "metrics from 2025-07-01 to 2025-07-31" style questions.
// It requires a metric word, a range word and exactly two parsable dates.
func (m *Mapper) extractRange(q string) (time.Time, time.Time, bool) {
	if !metricMarkers.MatchString(q) || !rangeMarkers.MatchString(q) {
		return time.Time{}, time.Time{}, false
	}

	dates := datePattern.FindAllString(q, -1)
	if len(dates) != 2 {
		return time.Time{}, time.Time{}, false
	}

	start, err := time.Parse(models.DateFormat, dates[0])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(models.DateFormat, dates[1])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}

	return start, end, true
}
