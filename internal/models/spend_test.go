package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() SpendRecord {
	return SpendRecord{
		Date:        time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Platform:    "google",
		Account:     "acct-1",
		Campaign:    "summer_sale",
		Country:     "US",
		Device:      "mobile",
		Spend:       120.50,
		Clicks:      340,
		Impressions: 9000,
		Conversions: 12,
	}
}

func TestSpendRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *SpendRecord)
		wantErr string
	}{
		{
			name:   "valid record",
			mutate: func(r *SpendRecord) {},
		},
		{
			name:    "zero date",
			mutate:  func(r *SpendRecord) { r.Date = time.Time{} },
			wantErr: "date",
		},
		{
			name:    "missing platform",
			mutate:  func(r *SpendRecord) { r.Platform = "" },
			wantErr: "platform",
		},
		{
			name:    "blank campaign",
			mutate:  func(r *SpendRecord) { r.Campaign = "   " },
			wantErr: "campaign",
		},
		{
			name:    "negative spend",
			mutate:  func(r *SpendRecord) { r.Spend = -1 },
			wantErr: "spend",
		},
		{
			name:    "negative conversions",
			mutate:  func(r *SpendRecord) { r.Conversions = -5 },
			wantErr: "conversions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)

			err := rec.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantErr, ve.Field)
		})
	}
}

func TestSpendRecordKey(t *testing.T) {
	a := validRecord()
	b := validRecord()
	assert.Equal(t, a.Key(), b.Key())

	b.Spend = 999
	b.Conversions = 0
	assert.Equal(t, a.Key(), b.Key(), "measurement columns must not affect the key")

	c := validRecord()
	c.Device = "desktop"
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	ts := time.Date(2025, 8, 15, 1, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC), Day(ts))
}
