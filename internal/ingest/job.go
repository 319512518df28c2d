package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vectorads/spendmetrics/internal/kpi"
	"github.com/vectorads/spendmetrics/internal/metrics"
	"github.com/vectorads/spendmetrics/internal/storage"
	"go.uber.org/zap"
)

// RunSummary reports the outcome of one ingest run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	SourceFile string    `json:"source_file"`
	Upserted   int       `json:"upserted"`
	Rejected   int       `json:"rejected"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// Job fetches the CSV feed and upserts every well-formed row. Runs are
// idempotent: re-ingesting an unchanged file leaves measurement columns and
// row count stable; only load_date advances. Overlapping runs are safe via
// per-row upsert atomicity, the job takes no lock.
type Job struct {
	repo          storage.SpendRepo
	fetcher       *Fetcher
	cache         *kpi.ResultCache
	logger        *zap.Logger
	metrics       *metrics.Metrics
	defaultSource string
	now           func() time.Time
}

// NewJob constructs an ingest job. cache and m may be nil. defaultSource is
// used as source_file_name when the URL carries no file name.
func NewJob(repo storage.SpendRepo, fetcher *Fetcher, cache *kpi.ResultCache, m *metrics.Metrics, defaultSource string, logger *zap.Logger) *Job {
	return &Job{
		repo:          repo,
		fetcher:       fetcher,
		cache:         cache,
		logger:        logger,
		metrics:       m,
		defaultSource: defaultSource,
		now:           time.Now,
	}
}

// Run executes one fetch-parse-upsert cycle. Row-level failures are logged
// and counted, never propagated; a store or source failure aborts the run and
// is retried on the next scheduled tick.
func (j *Job) Run(ctx context.Context) (*RunSummary, error) {
	started := j.now().UTC()
	runID := uuid.NewString()
	log := j.logger.With(zap.String("run_id", runID))

	body, sourceFile, err := j.fetcher.Fetch(ctx)
	if err != nil {
		log.Error("ingest fetch failed", zap.Error(err))
		j.recordRun("error", 0, 0, started)
		return nil, err
	}
	defer body.Close()

	if sourceFile == "" {
		sourceFile = j.defaultSource
	}

	parsed, err := ParseCSV(body, started, sourceFile)
	if err != nil {
		log.Error("ingest parse failed", zap.Error(err))
		j.recordRun("error", 0, 0, started)
		return nil, err
	}

	for _, re := range parsed.Rejected {
		log.Warn("rejected spend row",
			zap.Int("line", re.Line),
			zap.Error(re.Err),
		)
	}

	upserted := 0
	for i := range parsed.Records {
		if err := j.repo.Upsert(ctx, &parsed.Records[i]); err != nil {
			log.Error("ingest upsert failed, aborting run",
				zap.Int("upserted_so_far", upserted),
				zap.Error(err),
			)
			j.recordRun("error", upserted, len(parsed.Rejected), started)
			return nil, err
		}
		upserted++
	}

	if j.cache != nil {
		j.cache.Flush(ctx)
	}

	summary := &RunSummary{
		RunID:      runID,
		SourceFile: sourceFile,
		Upserted:   upserted,
		Rejected:   len(parsed.Rejected),
		StartedAt:  started,
		DurationMS: time.Since(started).Milliseconds(),
	}

	log.Info("ingest run completed",
		zap.String("source_file", sourceFile),
		zap.Int("upserted", summary.Upserted),
		zap.Int("rejected", summary.Rejected),
		zap.Int64("duration_ms", summary.DurationMS),
	)
	j.recordRun("success", summary.Upserted, summary.Rejected, started)

	return summary, nil
}

func (j *Job) recordRun(status string, upserted, rejected int, started time.Time) {
	if j.metrics != nil {
		j.metrics.RecordIngestRun(status, upserted, rejected, time.Since(started))
	}
}
