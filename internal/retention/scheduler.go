// Package retention prunes old readings from the store on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/glof-risk-service/internal/observability"
)

// Pruner deletes readings older than a cutoff.
type Pruner interface {
	DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler runs Prune on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	pruner  Pruner
	period  time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
	timeout time.Duration
}

// NewScheduler parses schedule (standard five-field cron or a descriptor such
// as @daily) and registers the prune job. Call Start to begin running it.
func NewScheduler(schedule string, period time.Duration, pruner Pruner, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		pruner:  pruner,
		period:  period,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
		timeout: time.Minute,
	}

	if _, err := s.cron.AddFunc(schedule, s.runScheduled); err != nil {
		return nil, fmt.Errorf("parse retention schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.logger.Info("retention scheduler started", "retention_period", s.period.String())
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running prune to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("retention job still running at shutdown")
	}
}

// Prune deletes readings older than the retention period and returns how
// many were removed.
func (s *Scheduler) Prune(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.period)

	n, err := s.pruner.DeleteReadingsBefore(ctx, cutoff)
	if err != nil {
		s.metrics.RetentionRuns.WithLabelValues("error").Inc()
		return 0, err
	}

	s.metrics.RetentionRuns.WithLabelValues("success").Inc()
	s.metrics.ReadingsPruned.Add(float64(n))
	s.logger.Info("readings pruned", "count", n, "cutoff", cutoff.UTC().Format(time.RFC3339))
	return n, nil
}

func (s *Scheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.Prune(ctx); err != nil {
		s.logger.Error("retention prune failed", "error", err)
	}
}
