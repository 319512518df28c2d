package models

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the calendar-date layout used across the API and the CSV feed.
const DateFormat = "2006-01-02"

// SpendRecord is one row of the ads_spend table: daily spend and volume for a
// (date, platform, account, campaign, country, device) tuple, plus provenance.
type SpendRecord struct {
	Date        time.Time `json:"date"`
	Platform    string    `json:"platform"`
	Account     string    `json:"account"`
	Campaign    string    `json:"campaign"`
	Country     string    `json:"country"`
	Device      string    `json:"device"`
	Spend       float64   `json:"spend"`
	Clicks      int64     `json:"clicks"`
	Impressions int64     `json:"impressions"`
	Conversions int64     `json:"conversions"`

	// Provenance columns, overwritten on every upsert.
	LoadDate       time.Time `json:"load_date"`
	SourceFileName string    `json:"source_file_name"`
}

// ValidationError describes a single invalid or missing field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks required key fields and non-negativity of measures.
func (r *SpendRecord) Validate() error {
	if r.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	for _, f := range []struct {
		name, value string
	}{
		{"platform", r.Platform},
		{"account", r.Account},
		{"campaign", r.Campaign},
		{"country", r.Country},
		{"device", r.Device},
	} {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.name, Reason: "required"}
		}
	}
	if r.Spend < 0 {
		return &ValidationError{Field: "spend", Reason: "must be non-negative"}
	}
	if r.Clicks < 0 {
		return &ValidationError{Field: "clicks", Reason: "must be non-negative"}
	}
	if r.Impressions < 0 {
		return &ValidationError{Field: "impressions", Reason: "must be non-negative"}
	}
	if r.Conversions < 0 {
		return &ValidationError{Field: "conversions", Reason: "must be non-negative"}
	}
	return nil
}

// Key returns the natural key of the record. Two records with equal keys
// refer to the same stored row.
func (r *SpendRecord) Key() string {
	return strings.Join([]string{
		r.Date.Format(DateFormat),
		r.Platform, r.Account, r.Campaign, r.Country, r.Device,
	}, "|")
}

// Day truncates a timestamp to a UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
