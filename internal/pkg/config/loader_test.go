package config

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvString(t *testing.T) {
	t.Run("unset returns default", func(t *testing.T) {
		t.Setenv("TEST_STRING", "")
		assert.Equal(t, "fallback", LoadEnvString("TEST_STRING", "fallback"))
	})

	t.Run("set value is trimmed", func(t *testing.T) {
		t.Setenv("TEST_STRING", "  smtp.example.com ")
		assert.Equal(t, "smtp.example.com", LoadEnvString("TEST_STRING", "fallback"))
	})
}

func TestLoadEnvWithFallback(t *testing.T) {
	t.Run("valid value", func(t *testing.T) {
		t.Setenv("TEST_TZ", "Asia/Tokyo")

		result := LoadEnvWithFallback("TEST_TZ", "UTC", ValidateTimezone)

		assert.Equal(t, "Asia/Tokyo", result.Value)
		assert.False(t, result.FallbackApplied)
		assert.Empty(t, result.Warnings)
	})

	t.Run("invalid value falls back with warning", func(t *testing.T) {
		t.Setenv("TEST_TZ", "Mars/Olympus")

		result := LoadEnvWithFallback("TEST_TZ", "UTC", ValidateTimezone)

		assert.Equal(t, "UTC", result.Value)
		assert.True(t, result.FallbackApplied)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "Invalid TEST_TZ='Mars/Olympus'")
		assert.Contains(t, result.Warnings[0], "falling back to default 'UTC'")
	})
}

func TestLoadEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		wantValue    time.Duration
		wantFallback bool
	}{
		{name: "unset", value: "", wantValue: 5 * time.Second},
		{name: "valid", value: "2s", wantValue: 2 * time.Second},
		{name: "unparsable", value: "soon", wantValue: 5 * time.Second, wantFallback: true},
		{name: "out of range", value: "2m", wantValue: 5 * time.Second, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)

			result := LoadEnvDuration("TEST_DURATION", 5*time.Second, func(d time.Duration) error {
				return ValidateDuration(d, 0, time.Minute)
			})

			assert.Equal(t, tt.wantValue, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if tt.wantFallback {
				require.Len(t, result.Warnings, 1)
				assert.Contains(t, result.Warnings[0], "Invalid TEST_DURATION='"+tt.value+"'")
			}
		})
	}
}

func TestLoadEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		wantValue    int
		wantFallback bool
		wantWarning  string
	}{
		{name: "unset", value: "", wantValue: 3},
		{name: "valid", value: "7", wantValue: 7},
		{name: "not a number", value: "many", wantValue: 3, wantFallback: true, wantWarning: "invalid integer format"},
		{name: "above range", value: "11", wantValue: 3, wantFallback: true, wantWarning: "value 11 exceeds maximum 10"},
		{name: "below range", value: "0", wantValue: 3, wantFallback: true, wantWarning: "value 0 is below minimum 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.value)

			result := LoadEnvInt("TEST_INT", 3, func(v int) error {
				return ValidateIntRange(v, 1, 10)
			})

			assert.Equal(t, tt.wantValue, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
			if tt.wantWarning != "" {
				require.Len(t, result.Warnings, 1)
				assert.Contains(t, result.Warnings[0], tt.wantWarning)
			}
		})
	}
}

func TestLoadEnvBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "false")
	result := LoadEnvBool("TEST_BOOL", true)
	assert.False(t, result.Value)
	assert.False(t, result.FallbackApplied)

	t.Setenv("TEST_BOOL", "maybe")
	result = LoadEnvBool("TEST_BOOL", true)
	assert.True(t, result.Value)
	assert.True(t, result.FallbackApplied)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "invalid boolean format")
}

func TestLoadEnvStringList(t *testing.T) {
	defaults := []string{"bitcoin"}

	t.Run("unset returns default", func(t *testing.T) {
		t.Setenv("TEST_LIST", "")
		result := LoadEnvStringList("TEST_LIST", defaults, nil)
		assert.Equal(t, defaults, result.Value)
	})

	t.Run("only separators returns default", func(t *testing.T) {
		t.Setenv("TEST_LIST", " , ,")
		result := LoadEnvStringList("TEST_LIST", defaults, nil)
		assert.Equal(t, defaults, result.Value)
		assert.False(t, result.FallbackApplied)
	})

	t.Run("entries are trimmed and empty ones dropped", func(t *testing.T) {
		t.Setenv("TEST_LIST", "bitcoin, ethereum,,solana ")
		result := LoadEnvStringList("TEST_LIST", defaults, nil)
		assert.Equal(t, []string{"bitcoin", "ethereum", "solana"}, result.Value)
	})

	t.Run("one invalid entry rejects the list", func(t *testing.T) {
		t.Setenv("TEST_LIST", "a@example.com,not-an-address")
		result := LoadEnvStringList("TEST_LIST", nil, ValidateEmail)
		assert.Nil(t, result.Value)
		assert.True(t, result.FallbackApplied)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "not-an-address")
	})
}

func TestConfigMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewConfigMetrics(reg, "test_component")

	metrics.RecordFallback("HTTP_TIMEOUT")
	metrics.RecordFallback("HTTP_TIMEOUT")
	metrics.SetFallbackActive(true)
	metrics.RecordLoadTimestamp()

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("HTTP_TIMEOUT")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("HTTP_TIMEOUT")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FallbackActive))
	assert.Greater(t, testutil.ToFloat64(metrics.LoadTimestamp), float64(0))

	metrics.SetFallbackActive(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.FallbackActive))
}
