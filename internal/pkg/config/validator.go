package config

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/robfig/cron/v3"
)

// scheduleParser accepts standard 5-field expressions and descriptors
// such as "@every 3h" and "@daily".
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateCronSchedule validates a cron expression or descriptor using the
// robfig/cron/v3 parser.
//
// Examples of valid input:
//   - "0 10 * * *" (every day at 10:00)
//   - "0 */6 * * *" (every 6 hours)
//   - "@every 3h"
//
// Validation tool: https://crontab.guru/
func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("invalid cron schedule: cannot be empty")
	}

	if _, err := scheduleParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}

	return nil
}

// ParseCronSchedule parses a schedule with the same rules as ValidateCronSchedule.
func ParseCronSchedule(schedule string) (cron.Schedule, error) {
	if err := ValidateCronSchedule(schedule); err != nil {
		return nil, err
	}
	return scheduleParser.Parse(schedule)
}

// ValidateTimezone validates an IANA timezone name by loading it.
// "Local" and "UTC" are always accepted.
//
// Common issues:
//   - Missing tzdata package in the container image
//   - Using a UTC offset instead of an IANA name (e.g. "+09:00")
func ValidateTimezone(timezone string) error {
	if timezone == "" {
		return fmt.Errorf("invalid timezone: cannot be empty")
	}

	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", timezone, err)
	}

	return nil
}

// ValidateClockTime validates a 24-hour wall-clock time in "HH:MM" form.
func ValidateClockTime(value string) error {
	_, _, err := ParseClockTime(value)
	return err
}

// ParseClockTime parses "HH:MM" into hour and minute.
func ParseClockTime(value string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock time '%s': expected HH:MM", value)
	}
	return t.Hour(), t.Minute(), nil
}

// ValidateEmail validates a single RFC 5322 address. Display names are
// rejected so the value can be used as an SMTP envelope address.
func ValidateEmail(value string) error {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return fmt.Errorf("invalid email address '%s': %w", value, err)
	}
	if addr.Name != "" || addr.Address != value {
		return fmt.Errorf("invalid email address '%s': display names are not allowed", value)
	}
	return nil
}

// ValidateDuration validates that a duration is within [min, max].
func ValidateDuration(duration, min, max time.Duration) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", min, max)
	}

	if duration < min {
		return fmt.Errorf("duration %v is below minimum %v", duration, min)
	}

	if duration > max {
		return fmt.Errorf("duration %v exceeds maximum %v", duration, max)
	}

	return nil
}

// ValidateIntRange validates that an integer is within [min, max].
//
// Use cases:
//   - Retry attempt validation (1-10)
//   - Port number validation (1-65535)
func ValidateIntRange(value, min, max int) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%d) cannot be greater than max (%d)", min, max)
	}

	if value < min {
		return fmt.Errorf("value %d is below minimum %d", value, min)
	}

	if value > max {
		return fmt.Errorf("value %d exceeds maximum %d", value, max)
	}

	return nil
}

// ValidatePositiveDuration validates that a duration is strictly positive.
func ValidatePositiveDuration(duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", duration)
	}

	return nil
}
