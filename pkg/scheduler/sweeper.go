package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/chris/credit-reconciliation/pkg/storage"
	"golang.org/x/sync/errgroup"
)

// SweepReport summarizes one sweep.
type SweepReport struct {
	Found    int
	Enqueued int
	Failed   int
}

// Sweeper finds sessions that stayed pending past a threshold and queues
// them for reconciliation. It covers the case where both the redirect and
// the webhook were lost.
type Sweeper struct {
	store       storage.SessionReader
	scheduler   Scheduler
	maxAge      time.Duration
	concurrency int
	logger      *slog.Logger
	metrics     SweepMetrics
}

type SweepMetrics interface {
	ObserveSweep(enqueued int)
}

type SweeperOption func(*Sweeper)

func WithSweepMetrics(m SweepMetrics) SweeperOption { return func(s *Sweeper) { s.metrics = m } }

func NewSweeper(store storage.SessionReader, scheduler Scheduler, maxAge time.Duration, concurrency int, logger *slog.Logger, opts ...SweeperOption) *Sweeper {
	if concurrency <= 0 {
		concurrency = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sweeper{store: store, scheduler: scheduler, maxAge: maxAge, concurrency: concurrency, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one sweep. A failure to enqueue a single session is logged and
// counted; it does not stop the sweep.
func (s *Sweeper) Run(ctx context.Context) (SweepReport, error) {
	sessions, err := s.store.ListPendingSessions(ctx, s.maxAge)
	if err != nil {
		return SweepReport{}, fmt.Errorf("failed to list pending sessions: %w", err)
	}

	report := SweepReport{Found: len(sessions)}
	if len(sessions) == 0 {
		s.logger.InfoContext(ctx, "no stale pending sessions")
		return report, nil
	}

	var enqueued, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, session := range sessions {
		sessionID := session.SessionId
		g.Go(func() error {
			if err := s.scheduler.EnqueueReconciliation(gctx, sessionID, 0); err != nil {
				failed.Add(1)
				s.logger.ErrorContext(gctx, "failed to enqueue session", "session_id", sessionID, "error", err)
				return nil
			}
			enqueued.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	report.Enqueued = int(enqueued.Load())
	report.Failed = int(failed.Load())
	if s.metrics != nil {
		s.metrics.ObserveSweep(report.Enqueued)
	}
	s.logger.InfoContext(ctx, "sweep finished", "found", report.Found, "enqueued", report.Enqueued, "failed", report.Failed)
	return report, nil
}

// Start runs a sweep every interval until ctx is done.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil {
				s.logger.ErrorContext(ctx, "sweep failed", "error", err)
			}
		}
	}
}
