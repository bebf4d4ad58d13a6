// Package config provides reusable environment loaders and validators.
//
// Loaders follow a fail-open strategy: an unset variable yields the default
// silently, an unparsable or invalid one yields the default plus a warning.
// Callers decide whether a warning is fatal.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadResult is the outcome of loading one configuration value.
//
// Fields:
//   - Value: the loaded value, or the default when a fallback was applied
//   - Warnings: one message per fallback applied
//   - FallbackApplied: true if the default replaced an invalid value
//
// Example:
//
//	result := LoadEnvDuration("HTTP_TIMEOUT", 10*time.Second, ValidatePositiveDuration)
//	if result.FallbackApplied {
//	    for _, warning := range result.Warnings {
//	        logger.Warn("configuration fallback applied", slog.String("warning", warning))
//	    }
//	}
//	timeout := result.Value
type LoadResult[T any] struct {
	Value           T
	Warnings        []string
	FallbackApplied bool
}

func fallback[T any](envKey, raw string, reason error, defaultValue T) LoadResult[T] {
	warning := fmt.Sprintf(
		"Invalid %s='%s': %v, falling back to default '%v'",
		envKey,
		raw,
		reason,
		defaultValue,
	)
	return LoadResult[T]{
		Value:           defaultValue,
		Warnings:        []string{warning},
		FallbackApplied: true,
	}
}

// LoadEnvString returns the environment value or defaultValue when unset.
// No validation is performed.
func LoadEnvString(envKey, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(envKey))
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadEnvWithFallback loads a string value and validates it.
// An invalid value falls back to defaultValue with a warning.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) LoadResult[string] {
	value := strings.TrimSpace(os.Getenv(envKey))
	if value == "" {
		return LoadResult[string]{Value: defaultValue}
	}

	if validator != nil {
		if err := validator(value); err != nil {
			return fallback(envKey, value, err, defaultValue)
		}
	}

	return LoadResult[string]{Value: value}
}

// LoadEnvDuration loads a duration parsable by time.ParseDuration
// (e.g. "30s", "5m", "1h30m") and validates it.
//
// Warning formats:
//   - Parse error: "Invalid {envKey}='{value}': time: invalid duration ..., falling back to default '{default}'"
//   - Validation error: "Invalid {envKey}='{value}': {error}, falling back to default '{default}'"
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) LoadResult[time.Duration] {
	valueStr := strings.TrimSpace(os.Getenv(envKey))
	if valueStr == "" {
		return LoadResult[time.Duration]{Value: defaultValue}
	}

	parsed, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallback(envKey, valueStr, err, defaultValue)
	}

	if validator != nil {
		if err := validator(parsed); err != nil {
			return fallback(envKey, valueStr, err, defaultValue)
		}
	}

	return LoadResult[time.Duration]{Value: parsed}
}

// LoadEnvInt loads a base-10 integer and validates it.
//
// Example:
//
//	result := LoadEnvInt("HTTP_MAX_RETRIES", 3, func(v int) error {
//	    return ValidateIntRange(v, 1, 10)
//	})
//	maxRetries := result.Value
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) LoadResult[int] {
	valueStr := strings.TrimSpace(os.Getenv(envKey))
	if valueStr == "" {
		return LoadResult[int]{Value: defaultValue}
	}

	parsed, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback(envKey, valueStr, fmt.Errorf("invalid integer format"), defaultValue)
	}

	if validator != nil {
		if err := validator(parsed); err != nil {
			return fallback(envKey, valueStr, err, defaultValue)
		}
	}

	return LoadResult[int]{Value: parsed}
}

// LoadEnvBool loads a boolean.
// True values: "1", "t", "T", "true", "TRUE", "True".
// False values: "0", "f", "F", "false", "FALSE", "False".
func LoadEnvBool(envKey string, defaultValue bool) LoadResult[bool] {
	valueStr := strings.TrimSpace(os.Getenv(envKey))
	if valueStr == "" {
		return LoadResult[bool]{Value: defaultValue}
	}

	parsed, err := strconv.ParseBool(valueStr)
	if err != nil {
		return fallback(envKey, valueStr, fmt.Errorf("invalid boolean format, expected 'true' or 'false'"), defaultValue)
	}

	return LoadResult[bool]{Value: parsed}
}

// LoadEnvStringList loads a comma-separated list. Entries are trimmed and
// empty entries dropped. Each entry is checked by validator; the first
// invalid entry rejects the whole list.
//
// Example:
//
//	// CRYPTO_ASSETS="bitcoin, ethereum,,solana"
//	result := LoadEnvStringList("CRYPTO_ASSETS", []string{"bitcoin"}, nil)
//	// result.Value: ["bitcoin", "ethereum", "solana"]
func LoadEnvStringList(envKey string, defaultValue []string, validator func(string) error) LoadResult[[]string] {
	valueStr := os.Getenv(envKey)
	items := SplitList(valueStr)
	if len(items) == 0 {
		return LoadResult[[]string]{Value: defaultValue}
	}

	if validator != nil {
		for _, item := range items {
			if err := validator(item); err != nil {
				return fallback(envKey, valueStr, err, defaultValue)
			}
		}
	}

	return LoadResult[[]string]{Value: items}
}

// SplitList splits a comma-separated string, trimming entries and dropping
// empty ones.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
