package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"
	"k8s.io/utils/clock"
)

var (
	// ErrNoSchedule is returned when a Scheduler is built without a schedule.
	ErrNoSchedule = errors.New("scheduler requires a schedule")

	// ErrScheduleExhausted is returned when the schedule has no future instant.
	ErrScheduleExhausted = errors.New("schedule has no next run")
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler fires a Job whenever the clock reaches the schedule's next
// instant. It checks at least once a minute and never runs jobs concurrently.
type Scheduler struct {
	schedule       cron.Schedule
	job            Job
	clock          clock.Clock
	logger         *slog.Logger
	metrics        *WorkerMetrics
	runImmediately bool

	next time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerClock sets the clock the loop waits on.
func WithSchedulerClock(c clock.Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = logger }
}

// WithSchedulerMetrics records recovered panics and the next run time.
func WithSchedulerMetrics(m *WorkerMetrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// WithRunImmediately runs the job once before the first scheduled instant.
func WithRunImmediately() SchedulerOption {
	return func(s *Scheduler) { s.runImmediately = true }
}

// NewScheduler creates a Scheduler.
func NewScheduler(schedule cron.Schedule, job Job, opts ...SchedulerOption) (*Scheduler, error) {
	if schedule == nil {
		return nil, ErrNoSchedule
	}
	if job == nil {
		return nil, errors.New("scheduler requires a job")
	}
	s := &Scheduler{
		schedule: schedule,
		job:      job,
		clock:    clock.RealClock{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run blocks until ctx is done, which is reported as a nil error. A non-nil
// error means the schedule itself failed and the process should exit.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.runImmediately {
		s.runJob(ctx)
	}
	if ctx.Err() != nil {
		return nil
	}

	if err := s.advance(s.clock.Now()); err != nil {
		return err
	}

	for {
		now := s.clock.Now()
		fired, err := s.check(ctx, now)
		if err != nil {
			return err
		}
		if fired {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		if err := s.wait(ctx, s.sleepDuration(now)); err != nil {
			s.logger.Info("scheduler stopped")
			return nil
		}
	}
}

// check fires the job when now has reached the next instant, then moves the
// next instant forward from now.
func (s *Scheduler) check(ctx context.Context, now time.Time) (bool, error) {
	if now.Before(s.next) {
		return false, nil
	}
	s.logger.Info("scheduled run due",
		slog.Time("scheduled_at", s.next),
		slog.Time("now", now))
	s.runJob(ctx)
	return true, s.advance(now)
}

func (s *Scheduler) advance(from time.Time) error {
	next := s.schedule.Next(from)
	if next.IsZero() {
		return fmt.Errorf("%w after %s", ErrScheduleExhausted, from.Format(time.RFC3339))
	}
	s.next = next
	if s.metrics != nil {
		s.metrics.NextRunTimestamp.Set(float64(next.Unix()))
	}
	s.logger.Debug("next run scheduled", slog.Time("next_run", next))
	return nil
}

// sleepDuration waits until the next whole minute or the next instant,
// whichever comes first.
func (s *Scheduler) sleepDuration(now time.Time) time.Duration {
	untilMinute := now.Truncate(time.Minute).Add(time.Minute).Sub(now)
	untilNext := s.next.Sub(now)
	if untilNext < untilMinute {
		return untilNext
	}
	return untilMinute
}

func (s *Scheduler) wait(ctx context.Context, d time.Duration) error {
	t := s.clock.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

// runJob runs the job, recovering panics so the loop keeps going.
func (s *Scheduler) runJob(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			if s.metrics != nil {
				s.metrics.PanicsTotal.Inc()
			}
			s.logger.Error("scheduled run panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled run failed", slog.String("error", err.Error()))
	}
}
