// Package scheduler runs the bot's periodic jobs on gocron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Task is one run of a job. The context is cancelled on shutdown.
type Task func(ctx context.Context)

// Scheduler wraps a gocron scheduler with named jobs
type Scheduler struct {
	s      gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler that logs through logger
func New(logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(logger.With("component", "scheduler")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{s: s, ctx: ctx, cancel: cancel}, nil
}

// Every runs task at a fixed interval. A run that overlaps the next tick
// delays it instead of running twice.
func (s *Scheduler) Every(name string, interval time.Duration, startNow bool, task Task) error {
	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if startNow {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	_, err := s.s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { task(s.ctx) }),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %q: %w", name, err)
	}

	slog.Info("Job scheduled", "name", name, "interval", interval, "start_now", startNow)
	return nil
}

// Once runs task a single time after delay
func (s *Scheduler) Once(name string, delay time.Duration, task Task) error {
	_, err := s.s.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(time.Now().Add(delay))),
		gocron.NewTask(func() { task(s.ctx) }),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %q: %w", name, err)
	}

	slog.Info("One-off job scheduled", "name", name, "delay", delay)
	return nil
}

// Start begins running jobs
func (s *Scheduler) Start() {
	s.s.Start()
}

// Stop cancels running tasks and waits for them to return
func (s *Scheduler) Stop() error {
	s.cancel()
	if err := s.s.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	return nil
}
