// Package scheduler runs periodic housekeeping jobs owned by the server App.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/dmitrijs2005/eventhub/internal/logging"
)

// Job is one unit of periodic work. The context is cancelled on shutdown.
type Job func(ctx context.Context) error

type task struct {
	name     string
	interval time.Duration
	fn       Job
}

// Scheduler wraps a gocron scheduler. Every job runs in singleton mode so a
// slow run is never overlapped by the next tick.
type Scheduler struct {
	logger logging.Logger
	tasks  []task
}

func New(logger logging.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Every registers fn to run once per interval, first after one interval elapses.
func (s *Scheduler) Every(name string, interval time.Duration, fn Job) {
	s.tasks = append(s.tasks, task{name: name, interval: interval, fn: fn})
}

// Run starts all jobs and blocks until ctx is done, then stops the scheduler.
func (s *Scheduler) Run(ctx context.Context) error {
	cron := gocron.NewScheduler(time.UTC)

	for _, t := range s.tasks {
		t := t
		_, err := cron.Every(t.interval).WaitForSchedule().SingletonMode().Do(func() {
			s.runTask(ctx, t)
		})
		if err != nil {
			return fmt.Errorf("schedule %s: %w", t.name, err)
		}
	}

	cron.StartAsync()
	s.logger.Info(ctx, "scheduler started", "jobs", len(s.tasks))

	<-ctx.Done()

	cron.Stop()
	s.logger.Info(context.Background(), "scheduler stopped")
	return nil
}

func (s *Scheduler) runTask(ctx context.Context, t task) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := t.fn(ctx); err != nil {
		s.logger.Error(ctx, "scheduled job failed", "job", t.name, "error", err)
		return
	}
	s.logger.Debug(ctx, "scheduled job done", "job", t.name, "took", time.Since(start))
}
