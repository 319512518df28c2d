package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler triggers the ingest job on a cron schedule. It does not serialize
// overlapping runs; safety comes from per-row upsert atomicity.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler registers job.Run under the given cron spec (e.g. "@every 5m").
func NewScheduler(job *Job, spec string, runTimeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		if _, err := job.Run(ctx); err != nil {
			logger.Warn("scheduled ingest run failed, will retry on next tick", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid ingest schedule %q: %w", spec, err)
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins scheduling in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("ingest scheduler started")
}

// Stop halts scheduling and waits for a running tick to finish or the context
// to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.Info("ingest scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("ingest scheduler stop timed out")
	}
}
