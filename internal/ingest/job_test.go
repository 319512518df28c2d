package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vectorads/spendmetrics/internal/storage"
	"go.uber.org/zap"
)

func csvServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestJobRunIdempotent(t *testing.T) {
	feed := feedHeader +
		feedRow("2025-07-01", "brand", "100.00", "4") +
		feedRow("2025-07-02", "brand", "200.00", "6")
	srv := csvServer(t, feed)

	repo := storage.NewInMemorySpendRepo()
	fetcher := NewFetcher(srv.URL+"/ads_spend.csv", 5*time.Second)
	job := NewJob(repo, fetcher, nil, nil, "ads_spend.csv", zap.NewNop())

	first, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Upserted)
	assert.Equal(t, 0, first.Rejected)
	assert.Equal(t, "ads_spend.csv", first.SourceFile)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Re-ingesting the same file must not duplicate rows or change totals.
	second, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, second.Upserted)

	count, err = repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	totals, err := repo.AggregateWindow(context.Background(),
		time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 300.0, totals.Spend)
	assert.Equal(t, 10.0, totals.Conversions)

	assert.True(t, second.StartedAt.After(first.StartedAt) || second.StartedAt.Equal(first.StartedAt))
}

func TestJobRunLoadDateAdvances(t *testing.T) {
	srv := csvServer(t, feedHeader+feedRow("2025-07-01", "brand", "100.00", "4"))

	repo := storage.NewInMemorySpendRepo()
	fetcher := NewFetcher(srv.URL+"/feed.csv", 5*time.Second)
	job := NewJob(repo, fetcher, nil, nil, "feed.csv", zap.NewNop())

	t1 := time.Date(2025, 8, 30, 6, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 8, 31, 6, 0, 0, 0, time.UTC)

	job.now = func() time.Time { return t1 }
	_, err := job.Run(context.Background())
	require.NoError(t, err)

	job.now = func() time.Time { return t2 }
	_, err = job.Run(context.Background())
	require.NoError(t, err)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "re-run must overwrite, not duplicate")
}

func TestJobRunCountsRejected(t *testing.T) {
	feed := feedHeader +
		feedRow("2025-07-01", "brand", "100.00", "4") +
		feedRow("bogus", "brand", "100.00", "4")
	srv := csvServer(t, feed)

	repo := storage.NewInMemorySpendRepo()
	job := NewJob(repo, NewFetcher(srv.URL+"/feed.csv", 5*time.Second), nil, nil, "feed.csv", zap.NewNop())

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Upserted)
	assert.Equal(t, 1, summary.Rejected)
}

func TestJobRunFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	repo := storage.NewInMemorySpendRepo()
	job := NewJob(repo, NewFetcher(srv.URL+"/feed.csv", 5*time.Second), nil, nil, "feed.csv", zap.NewNop())

	_, err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
