// Package scheduler runs background jobs on cron schedules, chiefly the
// pending-order sweep that fires while the market is open.
package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a seconds-granularity cron runner.
type Scheduler struct {
	cron *cron.Cron
}

// New creates a stopped scheduler.
func New() *Scheduler {
	return &Scheduler{cron: cron.New(cron.WithSeconds())}
}

// AddJob registers fn under the given cron schedule. Job errors are logged,
// never fatal.
func (s *Scheduler) AddJob(schedule, name string, fn func() error) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := fn(); err != nil {
			slog.Error("job failed", "job", name, "err", err)
		}
	})
	if err != nil {
		return err
	}
	slog.Info("job registered", "job", name, "schedule", schedule)
	return nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
