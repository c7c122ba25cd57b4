package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const refreshTimeout = 10 * time.Minute

// Scheduler runs a Watcher on a cron schedule. A pass that overruns the next
// tick causes that tick to be skipped.
type Scheduler struct {
	cron    *cron.Cron
	watcher *Watcher
	logger  *slog.Logger
}

func NewScheduler(spec string, w *Watcher, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		watcher: w,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid watch schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	start := time.Now()
	sum, err := s.watcher.RefreshAll(ctx)
	if err != nil {
		s.logger.Error("watchlist refresh aborted", "error", err, "updated", sum.Updated)
		return
	}
	s.logger.Info("watchlist refreshed",
		"updated", sum.Updated,
		"no_data", sum.NoData,
		"failed", sum.Failed,
		"duration", time.Since(start).Round(time.Millisecond),
		"avg_lookup", s.watcher.Metrics().AverageLatency().Round(time.Millisecond))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for a running pass or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
