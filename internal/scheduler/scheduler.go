// Package scheduler runs periodic housekeeping jobs inside the daemon.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Job is a unit of scheduled work
type Job func(ctx context.Context) error

// Scheduler wraps a gocron scheduler whose jobs never overlap themselves
type Scheduler struct {
	cron *gocron.Scheduler
}

// New creates a scheduler evaluating times in loc
func New(loc *time.Location) *Scheduler {
	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()
	return &Scheduler{cron: s}
}

// Daily registers job to run every day at the HH:MM time at
func (s *Scheduler) Daily(ctx context.Context, at, name string, job Job) error {
	if _, err := s.cron.Every(1).Day().At(at).Do(run, ctx, name, job); err != nil {
		return fmt.Errorf("schedule %s at %q: %w", name, at, err)
	}
	slog.Info("job scheduled", "job", name, "at", at)
	return nil
}

// Start begins running scheduled jobs in the background
func (s *Scheduler) Start() {
	s.cron.StartAsync()
}

// Stop terminates the scheduler; running jobs finish on their own
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Len returns the number of registered jobs
func (s *Scheduler) Len() int {
	return s.cron.Len()
}

func run(ctx context.Context, name string, job Job) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := job(ctx); err != nil {
		slog.Warn("scheduled job failed", "job", name, "error", err)
		return
	}
	slog.Info("scheduled job finished", "job", name, "duration", time.Since(start))
}
