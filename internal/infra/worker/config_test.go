package worker

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"crypto-report/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func clearScheduleEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"REPORT_INTERVAL", "REPORT_DAILY_AT", "REPORT_TIMEZONE", "HEALTH_PORT", "HEALTH_ENABLED"} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Interval != 3*time.Hour {
		t.Errorf("Expected Interval 3h, got %v", cfg.Interval)
	}
	if cfg.DailyAt != "" {
		t.Errorf("Expected empty DailyAt, got %q", cfg.DailyAt)
	}
	if cfg.Timezone != "Local" {
		t.Errorf("Expected Timezone 'Local', got %q", cfg.Timezone)
	}
	if cfg.HealthPort != 9091 {
		t.Errorf("Expected HealthPort 9091, got %d", cfg.HealthPort)
	}
	if !cfg.HealthEnabled {
		t.Error("Expected HealthEnabled true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestWorkerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *WorkerConfig)
		wantErr string
	}{
		{"valid interval", func(c *WorkerConfig) {}, ""},
		{"valid daily", func(c *WorkerConfig) { c.Interval = 0; c.DailyAt = "10:00"; c.Timezone = "UTC" }, ""},
		{"interval too short", func(c *WorkerConfig) { c.Interval = time.Second }, "interval"},
		{"both triggers", func(c *WorkerConfig) { c.DailyAt = "10:00" }, "mutually exclusive"},
		{"bad clock time", func(c *WorkerConfig) { c.Interval = 0; c.DailyAt = "25:00" }, "daily at"},
		{"bad timezone", func(c *WorkerConfig) { c.Interval = 0; c.DailyAt = "10:00"; c.Timezone = "Mars/Base" }, "timezone"},
		{"privileged port", func(c *WorkerConfig) { c.HealthPort = 80 }, "health port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestWorkerConfig_ScheduleSpec(t *testing.T) {
	interval := DefaultConfig()
	spec, err := interval.ScheduleSpec()
	if err != nil || spec != "@every 3h0m0s" {
		t.Errorf("expected '@every 3h0m0s', got %q (%v)", spec, err)
	}

	daily := WorkerConfig{DailyAt: "10:05", Timezone: "Europe/Berlin", HealthPort: 9091}
	spec, err = daily.ScheduleSpec()
	if err != nil || spec != "CRON_TZ=Europe/Berlin 5 10 * * *" {
		t.Errorf("expected daily spec, got %q (%v)", spec, err)
	}
}

func TestWorkerConfig_Schedule_Daily(t *testing.T) {
	cfg := WorkerConfig{DailyAt: "10:00", Timezone: "UTC", HealthPort: 9091}
	schedule, err := cfg.Schedule()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	from := time.Date(2026, 10, 14, 9, 59, 0, 0, time.UTC)
	want := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	if got := schedule.Next(from); !got.Equal(want) {
		t.Errorf("expected next %v, got %v", want, got)
	}
	// From the firing instant the next run is a day later.
	if got := schedule.Next(want); !got.Equal(want.Add(24 * time.Hour)) {
		t.Errorf("expected next day, got %v", got)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		wantErr  error
		errText  string
		validate func(t *testing.T, cfg *WorkerConfig)
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			validate: func(t *testing.T, cfg *WorkerConfig) {
				if cfg.Interval != 3*time.Hour || cfg.IsDaily() {
					t.Errorf("expected 3h interval trigger, got %+v", cfg)
				}
			},
		},
		{
			name: "interval",
			env:  map[string]string{"REPORT_INTERVAL": "30m"},
			validate: func(t *testing.T, cfg *WorkerConfig) {
				if cfg.Interval != 30*time.Minute {
					t.Errorf("expected 30m, got %v", cfg.Interval)
				}
			},
		},
		{
			name: "daily",
			env:  map[string]string{"REPORT_DAILY_AT": "10:00", "REPORT_TIMEZONE": "Asia/Tokyo"},
			validate: func(t *testing.T, cfg *WorkerConfig) {
				if !cfg.IsDaily() || cfg.Interval != 0 || cfg.Timezone != "Asia/Tokyo" {
					t.Errorf("expected daily trigger in Asia/Tokyo, got %+v", cfg)
				}
			},
		},
		{
			name:    "both set",
			env:     map[string]string{"REPORT_DAILY_AT": "10:00", "REPORT_INTERVAL": "3h"},
			wantErr: ErrConflictingSchedule,
		},
		{
			name:    "bad interval",
			env:     map[string]string{"REPORT_INTERVAL": "soon"},
			errText: "REPORT_INTERVAL",
		},
		{
			name:    "bad daily time",
			env:     map[string]string{"REPORT_DAILY_AT": "10h"},
			errText: "daily at",
		},
		{
			name: "bad health port falls back",
			env:  map[string]string{"HEALTH_PORT": "80", "HEALTH_ENABLED": "false"},
			validate: func(t *testing.T, cfg *WorkerConfig) {
				if cfg.HealthPort != 9091 {
					t.Errorf("expected fallback port 9091, got %d", cfg.HealthPort)
				}
				if cfg.HealthEnabled {
					t.Error("expected health server disabled")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearScheduleEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			metrics := config.NewConfigMetrics(prometheus.NewRegistry(), "worker")

			cfg, err := LoadConfigFromEnv(logger, metrics)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			case tt.errText != "":
				if err == nil || !strings.Contains(err.Error(), tt.errText) {
					t.Errorf("expected error containing %q, got %v", tt.errText, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.validate(t, cfg)
		})
	}
}

func TestLoadConfigFromEnv_FallbackIsLogged(t *testing.T) {
	clearScheduleEnv(t)
	t.Setenv("HEALTH_PORT", "not-a-port")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	metrics := config.NewConfigMetrics(prometheus.NewRegistry(), "worker")

	if _, err := LoadConfigFromEnv(logger, metrics); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "Configuration fallback applied") {
		t.Errorf("expected fallback warning, got %q", buf.String())
	}
	if got := testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("health_port")); got != 1 {
		t.Errorf("expected 1 health_port fallback, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.FallbackActive); got != 1 {
		t.Errorf("expected fallback active gauge 1, got %v", got)
	}
}
