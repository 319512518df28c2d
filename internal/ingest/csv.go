package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/vectorads/spendmetrics/internal/models"
)

// requiredColumns are the columns the feed must carry, in any order.
var requiredColumns = []string{
	"date", "platform", "account", "campaign", "country", "device",
	"spend", "clicks", "impressions", "conversions",
}

// RowError is a row-level validation failure. It never aborts the batch.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// ParseResult separates well-formed records from rejected rows.
type ParseResult struct {
	Records  []models.SpendRecord
	Rejected []RowError
}

// ParseCSV reads the spend feed into typed records. The header row drives
// column mapping; a missing required column is a batch-level error. Malformed
// data rows (bad date, non-numeric measure, missing key field) are collected
// in Rejected while the rest of the batch proceeds.
func ParseCSV(r io.Reader, loadDate time.Time, sourceFile string) (*ParseResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty csv source")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("csv header missing required column %q", name)
		}
	}

	result := &ParseResult{}
	line := 1
	for {
		line++
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Rejected = append(result.Rejected, RowError{Line: line, Err: err})
			continue
		}

		rec, err := parseRow(row, cols, loadDate, sourceFile)
		if err != nil {
			result.Rejected = append(result.Rejected, RowError{Line: line, Err: err})
			continue
		}
		result.Records = append(result.Records, *rec)
	}

	return result, nil
}

func parseRow(row []string, cols map[string]int, loadDate time.Time, sourceFile string) (*models.SpendRecord, error) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date, err := time.Parse(models.DateFormat, field("date"))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", field("date"))
	}

	spend, err := strconv.ParseFloat(field("spend"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid spend %q", field("spend"))
	}

	counts := make(map[string]int64, 3)
	for _, name := range []string{"clicks", "impressions", "conversions"} {
		v, err := strconv.ParseInt(field(name), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", name, field(name))
		}
		counts[name] = v
	}

	rec := &models.SpendRecord{
		Date:           models.Day(date),
		Platform:       field("platform"),
		Account:        field("account"),
		Campaign:       field("campaign"),
		Country:        field("country"),
		Device:         field("device"),
		Spend:          spend,
		Clicks:         counts["clicks"],
		Impressions:    counts["impressions"],
		Conversions:    counts["conversions"],
		LoadDate:       loadDate,
		SourceFileName: sourceFile,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}
