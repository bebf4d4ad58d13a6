package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	appconfig "crypto-report/internal/config"
	"crypto-report/internal/pkg/config"

	"github.com/robfig/cron/v3"
)

// ErrConflictingSchedule is returned when both an interval and a daily time
// are configured.
var ErrConflictingSchedule = errors.New("REPORT_INTERVAL and REPORT_DAILY_AT are mutually exclusive")

// WorkerConfig holds the configuration for the reporter loop.
//
// Exactly one trigger policy is active:
//   - Interval: fire every Interval (default 3h)
//   - Daily: fire once a day at DailyAt ("HH:MM") in Timezone
//
// Schedule fields are strict: an invalid value is a startup error.
// HealthPort and HealthEnabled fail open to their defaults.
//
// Example usage:
//
//	cfg, err := LoadConfigFromEnv(logger, metrics)
//	if err != nil {
//	    // invalid schedule, exit 1
//	}
//	schedule, err := cfg.Schedule()
type WorkerConfig struct {
	// Interval is the period of the interval trigger. Zero when DailyAt is set.
	// Range: 1m-24h
	// Default: 3h
	Interval time.Duration

	// DailyAt is the "HH:MM" wall-clock time of the daily trigger.
	// Default: "" (interval trigger)
	DailyAt string

	// Timezone is the IANA timezone name for the daily trigger.
	// Example: "Asia/Tokyo", "UTC", "Europe/Berlin"
	// Default: "Local"
	Timezone string

	// HealthPort is the port of the health and metrics HTTP server.
	// Range: 1024-65535 (avoid privileged ports)
	// Default: 9091
	HealthPort int

	// HealthEnabled toggles the health and metrics HTTP server.
	// Default: true
	HealthEnabled bool
}

// DefaultConfig returns a WorkerConfig with default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		Interval:      3 * time.Hour,
		Timezone:      "Local",
		HealthPort:    9091,
		HealthEnabled: true,
	}
}

// IsDaily reports whether the daily trigger is active.
func (c *WorkerConfig) IsDaily() bool {
	return c.DailyAt != ""
}

// Validate checks every field and returns all problems together.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if c.IsDaily() {
		if c.Interval != 0 {
			errs = append(errs, ErrConflictingSchedule)
		}
		if err := config.ValidateClockTime(c.DailyAt); err != nil {
			errs = append(errs, fmt.Errorf("daily at: %w", err))
		}
		if err := config.ValidateTimezone(c.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("timezone: %w", err))
		}
	} else if err := config.ValidateDuration(c.Interval, time.Minute, 24*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("interval: %w", err))
	}

	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// ScheduleSpec renders the trigger policy as a cron spec:
// "@every 3h0m0s" for the interval trigger, "CRON_TZ=<tz> MM HH * * *" for
// the daily trigger.
func (c *WorkerConfig) ScheduleSpec() (string, error) {
	if !c.IsDaily() {
		return fmt.Sprintf("@every %s", c.Interval), nil
	}
	hour, minute, err := config.ParseClockTime(c.DailyAt)
	if err != nil {
		return "", err
	}
	tz := c.Timezone
	if tz == "" {
		tz = "Local"
	}
	return fmt.Sprintf("CRON_TZ=%s %d %d * * *", tz, minute, hour), nil
}

// Schedule validates the config and parses its spec.
func (c *WorkerConfig) Schedule() (cron.Schedule, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	spec, err := c.ScheduleSpec()
	if err != nil {
		return nil, err
	}
	return config.ParseCronSchedule(spec)
}

// LoadConfigFromEnv loads the worker configuration.
//
// Environment variables:
//   - REPORT_INTERVAL: Duration, e.g. "3h" (default 3h when REPORT_DAILY_AT is unset)
//   - REPORT_DAILY_AT: "HH:MM" daily trigger
//   - REPORT_TIMEZONE: IANA timezone name (default: "Local")
//   - HEALTH_PORT: Integer 1024-65535 (default: 9091)
//   - HEALTH_ENABLED: Boolean (default: true)
//
// Schedule variables are strict and return an error. Health variables fall
// back to their defaults with a logged warning and a fallback metric.
func LoadConfigFromEnv(logger *slog.Logger, metrics *config.ConfigMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()

	rawInterval := strings.TrimSpace(os.Getenv(appconfig.KeyReportInterval))
	cfg.DailyAt = strings.TrimSpace(os.Getenv(appconfig.KeyReportDailyAt))
	cfg.Timezone = config.LoadEnvString(appconfig.KeyReportTimezone, cfg.Timezone)

	switch {
	case cfg.DailyAt != "" && rawInterval != "":
		return nil, ErrConflictingSchedule
	case cfg.DailyAt != "":
		cfg.Interval = 0
	case rawInterval != "":
		d, err := time.ParseDuration(rawInterval)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", appconfig.KeyReportInterval, err)
		}
		cfg.Interval = d
	}

	tracker := config.NewTracker(logger, metrics)
	cfg.HealthPort = config.Track(tracker, "health_port",
		config.LoadEnvInt(appconfig.KeyHealthPort, cfg.HealthPort, func(v int) error {
			return config.ValidateIntRange(v, 1024, 65535)
		}))
	cfg.HealthEnabled = config.Track(tracker, "health_enabled",
		config.LoadEnvBool(appconfig.KeyHealthEnabled, cfg.HealthEnabled))
	tracker.Finish()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
