// Package config loads validated settings from environment variables with a
// fail-open policy: a rejected value is reported as a Fallback and replaced
// by the default, never returned as an error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Fallback describes an environment value that was rejected.
type Fallback struct {
	Key     string
	Value   string
	Default string
	Reason  error
}

func (f *Fallback) String() string {
	return fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%s'", f.Key, f.Value, f.Reason, f.Default)
}

// Result is a loaded value. Fallback is non-nil when the default replaced a rejected value.
type Result[T any] struct {
	Value    T
	Fallback *Fallback
}

// LoadEnv reads key, parses it and validates it. An unset or blank variable
// yields def without a fallback; validate may be nil.
//
// Example:
//
//	r := LoadEnv("PASS_TIMEOUT", 2*time.Hour, time.ParseDuration, func(d time.Duration) error {
//	    return ValidateDuration(d, time.Minute, 12*time.Hour)
//	})
//	if r.Fallback != nil {
//	    logger.Warn("Configuration fallback applied", slog.String("warning", r.Fallback.String()))
//	}
func LoadEnv[T any](key string, def T, parse func(string) (T, error), validate func(T) error) Result[T] {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return Result[T]{Value: def}
	}

	value, err := parse(raw)
	if err == nil && validate != nil {
		err = validate(value)
	}
	if err != nil {
		return Result[T]{
			Value:    def,
			Fallback: &Fallback{Key: key, Value: raw, Default: fmt.Sprint(def), Reason: err},
		}
	}
	return Result[T]{Value: value}
}

// LoadEnvString returns the trimmed variable or def. No validation is applied.
func LoadEnvString(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

// LoadEnvWithFallback loads a validated string.
func LoadEnvWithFallback(key, def string, validate func(string) error) Result[string] {
	return LoadEnv(key, def, func(s string) (string, error) { return s, nil }, validate)
}

// LoadEnvDuration loads a validated time.ParseDuration value.
func LoadEnvDuration(key string, def time.Duration, validate func(time.Duration) error) Result[time.Duration] {
	return LoadEnv(key, def, func(s string) (time.Duration, error) {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration format: %w", err)
		}
		return d, nil
	}, validate)
}

// LoadEnvInt loads a validated base-10 integer.
func LoadEnvInt(key string, def int, validate func(int) error) Result[int] {
	return LoadEnv(key, def, func(s string) (int, error) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format: %w", err)
		}
		return v, nil
	}, validate)
}

// LoadEnvBool loads a strconv.ParseBool value.
func LoadEnvBool(key string, def bool) Result[bool] {
	return LoadEnv(key, def, func(s string) (bool, error) {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("invalid boolean %q", s)
		}
		return v, nil
	}, nil)
}
