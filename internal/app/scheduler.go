package app

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/pipeline"
)

type Runner interface {
	Run(ctx context.Context, feedPath string) (*models.Run, error)
}

// Scheduler triggers the configured import on boot and then every interval. A zero interval
// disables the periodic runs.
type Scheduler struct {
	runner       Runner
	interval     time.Duration
	runOnStartup bool
	logger       ectologger.Logger
}

func NewScheduler(runner Runner, interval time.Duration, runOnStartup bool, logger ectologger.Logger) *Scheduler {
	return &Scheduler{
		runner:       runner,
		interval:     interval,
		runOnStartup: runOnStartup,
		logger:       logger,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	if s.runOnStartup {
		s.trigger(ctx, "startup")
	}
	if s.interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithField("interval", s.interval.String()).Info("Import schedule started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(ctx, "schedule")
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context, reason string) {
	logger := s.logger.WithContext(ctx).WithField("trigger", reason)

	run, err := s.runner.Run(ctx, "")
	switch {
	case stderrors.Is(err, pipeline.ErrRunInProgress):
		logger.Info("Skipping scheduled import, a run is already in progress")
	case err != nil:
		fields := map[string]any{}
		if run != nil {
			fields["run_id"] = run.ID
		}
		logger.WithError(err).WithFields(fields).Error("Scheduled import failed")
	}
}
