// Package retry provides a fixed-count, fixed-delay retry loop.
// Failures are retried until the attempt budget runs out unless they are
// marked permanent or the context is cancelled.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crypto-report/internal/observability/logging"
)

// Policy holds the retry budget for one operation.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// Delay is the fixed wait between attempts.
	Delay time.Duration
}

// DefaultPolicy returns the policy used for upstream API calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       5 * time.Second,
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real-time SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// ErrAborted is returned when the context ends between attempts.
var ErrAborted = errors.New("retry aborted")

// Do runs fn until it succeeds, returns a permanent error, the context ends,
// or the policy's attempts are used up. It returns the number of attempts
// made and the last error. Permanent errors are returned unwrapped.
//
// A nil sleep uses Sleep.
func Do(ctx context.Context, p Policy, sleep SleepFunc, fn func(ctx context.Context, attempt int) error) (int, error) {
	if sleep == nil {
		sleep = Sleep
	}
	maxAttempts := p.attempts()

	logger := logging.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, fmt.Errorf("%w: %w", ErrAborted, err)
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			if attempt > 1 {
				logger.InfoContext(ctx, "operation succeeded after retry",
					slog.Int("attempt", attempt))
			}
			return attempt, nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return attempt, perm.err
		}

		if ctx.Err() != nil {
			return attempt, fmt.Errorf("%w: %w", ErrAborted, lastErr)
		}

		if attempt == maxAttempts {
			break
		}

		logger.WarnContext(ctx, "operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.Duration("delay", p.Delay),
			slog.String("error", logging.SanitizeError(lastErr)))

		if err := sleep(ctx, p.Delay); err != nil {
			return attempt, fmt.Errorf("%w: %w", ErrAborted, err)
		}
	}

	return maxAttempts, lastErr
}
