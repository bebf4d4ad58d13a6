package config

import "log/slog"

// Tracker logs the warnings of each LoadResult and feeds ConfigMetrics.
// A nil metrics is allowed.
type Tracker struct {
	logger   *slog.Logger
	metrics  *ConfigMetrics
	active   bool
	warnings []string
}

// NewTracker creates a Tracker.
func NewTracker(logger *slog.Logger, metrics *ConfigMetrics) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{logger: logger, metrics: metrics}
}

// Track records res under field and returns its value.
//
// Example:
//
//	tracker := NewTracker(logger, metrics)
//	cfg.Timeout = Track(tracker, "http_timeout", LoadEnvDuration("HTTP_TIMEOUT", cfg.Timeout, ValidatePositiveDuration))
//	tracker.Finish()
func Track[T any](t *Tracker, field string, res LoadResult[T]) T {
	if res.FallbackApplied {
		t.active = true
		if t.metrics != nil {
			t.metrics.RecordFallback(field)
		}
		for _, warning := range res.Warnings {
			t.warnings = append(t.warnings, warning)
			t.logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}
	return res.Value
}

// Warnings returns every warning tracked so far.
func (t *Tracker) Warnings() []string {
	return append([]string(nil), t.warnings...)
}

// FallbackActive reports whether any tracked value fell back to its default.
func (t *Tracker) FallbackActive() bool {
	return t.active
}

// Finish updates the fallback gauge and load timestamp.
func (t *Tracker) Finish() {
	if t.metrics == nil {
		return
	}
	t.metrics.SetFallbackActive(t.active)
	t.metrics.RecordLoadTimestamp()
}
