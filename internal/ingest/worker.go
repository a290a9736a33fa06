package ingest

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval is the pause between scheduled ingestion cycles.
const DefaultInterval = 30 * time.Minute

// Cycler runs one ingestion cycle.
type Cycler interface {
	RunCycle(ctx context.Context) (int, error)
}

// Scheduler runs ingestion cycles on a fixed interval.
type Scheduler struct {
	cycler   Cycler
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler.
// If interval is <= 0, it defaults to DefaultInterval.
func NewScheduler(c Cycler, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		cycler:   c,
		interval: interval,
		logger:   slog.Default(),
	}
}

// Start runs the scheduler in the background. The returned stop cancels it
// and blocks until any in-flight cycle has returned.
func (s *Scheduler) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// Run starts with an immediate cycle and repeats until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		s.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
	}
}

// RunOnce runs a single cycle and logs its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.cycler.RunCycle(ctx)
	if err != nil {
		s.logger.Error("ingest cycle failed", "error", err)
		return 0, err
	}
	s.logger.Info("ingest cycle finished", "documents", n, "duration", time.Since(start))
	return n, nil
}
