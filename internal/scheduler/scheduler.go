package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/amishk599/jobsweep/internal/model"
)

// Runner is one aggregation run.
type Runner interface {
	Run(ctx context.Context) (*model.RunReport, error)
}

// Scheduler owns the main loop: it runs once immediately, then again each time
// the trigger fires. Runs are strictly sequential; a run that outlasts its
// slot delays the next one rather than overlapping it.
type Scheduler struct {
	runner  Runner
	trigger Trigger
	now     func() time.Time
	logger  *slog.Logger
}

// NewScheduler creates a scheduler for runner.
func NewScheduler(runner Runner, trigger Trigger, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:  runner,
		trigger: trigger,
		now:     time.Now,
		logger:  logger,
	}
}

// Run starts the loop. It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "schedule", s.trigger.String())

	s.runOnce(ctx)

	for {
		next := s.trigger.Next(s.now())
		s.logger.Info("next run scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("shutting down scheduler")
			return nil
		case <-timer.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	report, err := s.runner.Run(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		s.logger.Info("run interrupted by shutdown")
	case err != nil:
		s.logger.Error("run failed", "error", err)
	case report != nil && report.Notified:
		s.logger.Info("run delivered digest", "run_id", report.RunID, "listings", report.Recent)
	}
}
