// Package config reads process settings from environment variables.
//
// Every getter falls back to its default when the variable is unset or empty.
// A value that does not parse, or falls outside its allowed range, is logged
// at warn level and replaced by the default, so a typo never stops a process.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnvString returns the variable's value, or defaultValue when unset or empty.
//
// Example:
//
//	dir := GetEnvString("IMAGES_DIR", "data/images")
func GetEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt returns the variable parsed as a base-10 integer.
func GetEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		warnFallback(key, raw, strconv.Itoa(defaultValue), err.Error())
		return defaultValue
	}
	return value
}

// GetEnvBool returns the variable parsed with strconv.ParseBool
// ("1", "t", "true", "0", "f", "false" in any case).
//
// Example:
//
//	traceSpans := GetEnvBool("TRACE_SPANS", false)
func GetEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		warnFallback(key, raw, strconv.FormatBool(defaultValue), "not a boolean")
		return defaultValue
	}
	return value
}

// GetEnvDuration returns the variable parsed with time.ParseDuration ("30s", "15m").
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		warnFallback(key, raw, defaultValue.String(), err.Error())
		return defaultValue
	}
	return value
}

// GetEnvPort returns a TCP port in 1-65535.
//
// Example:
//
//	port := GetEnvPort("API_PORT", 8080)
func GetEnvPort(key string, defaultValue int) int {
	port := GetEnvInt(key, defaultValue)
	if port < 1 || port > 65535 {
		warnFallback(key, strconv.Itoa(port), strconv.Itoa(defaultValue), "port out of range 1-65535")
		return defaultValue
	}
	return port
}

// GetEnvPositiveDuration returns a duration greater than zero.
func GetEnvPositiveDuration(key string, defaultValue time.Duration) time.Duration {
	d := GetEnvDuration(key, defaultValue)
	if d <= 0 {
		warnFallback(key, d.String(), defaultValue.String(), "duration must be positive")
		return defaultValue
	}
	return d
}

func warnFallback(key, value, defaultValue, reason string) {
	slog.Warn("invalid environment variable, using default",
		slog.String("key", key),
		slog.String("value", value),
		slog.String("default", defaultValue),
		slog.String("error", reason))
}
