package ingest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedHeader = "date,platform,account,campaign,country,device,spend,clicks,impressions,conversions\n"

func feedRow(date, campaign, spend, conversions string) string {
	return date + ",google,acct-1," + campaign + ",US,mobile," + spend + ",10,100," + conversions + "\n"
}

func TestParseCSVTypedCoercion(t *testing.T) {
	src := feedHeader + feedRow("2025-07-01", "brand", "123.45", "7")
	loadDate := time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC)

	got, err := ParseCSV(strings.NewReader(src), loadDate, "ads_spend.csv")
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	assert.Empty(t, got.Rejected)

	rec := got.Records[0]
	assert.Equal(t, "2025-07-01", rec.Date.Format("2006-01-02"))
	assert.Equal(t, 123.45, rec.Spend)
	assert.Equal(t, int64(10), rec.Clicks)
	assert.Equal(t, int64(100), rec.Impressions)
	assert.Equal(t, int64(7), rec.Conversions)
	assert.Equal(t, loadDate, rec.LoadDate)
	assert.Equal(t, "ads_spend.csv", rec.SourceFileName)
}

func TestParseCSVRejectsBadRowsKeepsRest(t *testing.T) {
	var b strings.Builder
	b.WriteString(feedHeader)
	for d := 1; d <= 5; d++ {
		b.WriteString(feedRow(fmt.Sprintf("2025-07-%02d", d), "camp", "10.00", "1"))
	}
	b.WriteString(feedRow("not-a-date", "camp", "10.00", "1")) // line 7
	for d := 11; d <= 14; d++ {
		b.WriteString(feedRow(fmt.Sprintf("2025-07-%02d", d), "camp", "10.00", "1"))
	}

	got, err := ParseCSV(strings.NewReader(b.String()), time.Now(), "feed.csv")
	require.NoError(t, err)

	assert.Len(t, got.Records, 9)
	require.Len(t, got.Rejected, 1)
	assert.Equal(t, 7, got.Rejected[0].Line)
	assert.Contains(t, got.Rejected[0].Err.Error(), "invalid date")
}

func TestParseCSVRowErrors(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want string
	}{
		{"bad spend", feedRow("2025-07-01", "camp", "abc", "1"), "invalid spend"},
		{"bad conversions", feedRow("2025-07-01", "camp", "10.00", "x"), "invalid conversions"},
		{"missing campaign", feedRow("2025-07-01", "", "10.00", "1"), "campaign"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCSV(strings.NewReader(feedHeader+tt.row), time.Now(), "feed.csv")
			require.NoError(t, err)
			assert.Empty(t, got.Records)
			require.Len(t, got.Rejected, 1)
			assert.Contains(t, got.Rejected[0].Err.Error(), tt.want)
		})
	}
}

func TestParseCSVHeaderDriven(t *testing.T) {
	// Columns in a different order must still map correctly.
	src := "spend,conversions,clicks,impressions,device,country,campaign,account,platform,date\n" +
		"55.50,3,1,10,desktop,DE,retarget,acct-2,meta,2025-07-02\n"

	got, err := ParseCSV(strings.NewReader(src), time.Now(), "feed.csv")
	require.NoError(t, err)
	require.Len(t, got.Records, 1)

	rec := got.Records[0]
	assert.Equal(t, "meta", rec.Platform)
	assert.Equal(t, "retarget", rec.Campaign)
	assert.Equal(t, 55.50, rec.Spend)
	assert.Equal(t, int64(3), rec.Conversions)
}

func TestParseCSVMissingColumn(t *testing.T) {
	src := "date,platform,account,campaign,country,device,spend,clicks,impressions\n" +
		"2025-07-01,google,acct-1,camp,US,mobile,10.00,1,10\n"

	_, err := ParseCSV(strings.NewReader(src), time.Now(), "feed.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conversions")
}

func TestParseCSVEmptySource(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""), time.Now(), "feed.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}
