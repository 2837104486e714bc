// Package scheduler runs periodic jobs on a cron schedule in UTC.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"postify/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	config *config.Config
	log    *slog.Logger
}

func New(jobs *Jobs, cfg *config.Config, log *slog.Logger) *Scheduler {
	log = log.With(slog.String("component", "scheduler"))
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		config: cfg,
		log:    log,
	}
}

// Start registers the jobs and starts the cron scheduler.
// An invalid schedule fails startup.
func (s *Scheduler) Start() error {
	type entry struct {
		name     string
		schedule string
		enabled  bool
		run      func()
	}
	entries := []entry{
		{"quota_reset", s.config.QuotaResetSchedule, s.config.QuotaResetEnabled, s.jobs.ResetMonthlyQuota},
		{"view_flush", s.config.ViewFlushSchedule, true, s.jobs.FlushViews},
		{"token_purge", s.config.TokenPurgeSchedule, true, s.jobs.PurgeRefreshTokens},
	}

	for _, e := range entries {
		if !e.enabled {
			s.log.Info("job disabled", slog.String("job", e.name))
			continue
		}
		if _, err := s.cron.AddFunc(e.schedule, e.run); err != nil {
			return fmt.Errorf("schedule %s %q: %w", e.name, e.schedule, err)
		}
		s.log.Info("job scheduled", slog.String("job", e.name), slog.String("schedule", e.schedule))
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
