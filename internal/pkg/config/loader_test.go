package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLoadEnvString(t *testing.T) {
	t.Setenv("TEST_CFG_STRING", "")
	if got := LoadEnvString("TEST_CFG_STRING", "def"); got != "def" {
		t.Errorf("unset: got %q", got)
	}
	t.Setenv("TEST_CFG_STRING", " configs/other.yaml ")
	if got := LoadEnvString("TEST_CFG_STRING", "def"); got != "configs/other.yaml" {
		t.Errorf("set: got %q", got)
	}
}

func TestLoadEnvWithFallback(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		want         string
		wantFallback bool
	}{
		{name: "unset uses default", value: "", want: "UTC"},
		{name: "valid value", value: "Europe/Paris", want: "Europe/Paris"},
		{name: "whitespace trimmed", value: "  Asia/Tokyo ", want: "Asia/Tokyo"},
		{name: "invalid falls back", value: "Moon/Base", want: "UTC", wantFallback: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_CFG_TZ", tt.value)
			r := LoadEnvWithFallback("TEST_CFG_TZ", "UTC", ValidateTimezone)
			if r.Value != tt.want {
				t.Errorf("Value = %q, want %q", r.Value, tt.want)
			}
			if (r.Fallback != nil) != tt.wantFallback {
				t.Fatalf("Fallback = %v, want %v", r.Fallback, tt.wantFallback)
			}
			if r.Fallback != nil {
				msg := r.Fallback.String()
				if !strings.Contains(msg, "TEST_CFG_TZ='Moon/Base'") || !strings.Contains(msg, "default 'UTC'") {
					t.Errorf("Fallback message = %q", msg)
				}
			}
		})
	}
}

func TestLoadEnvDuration(t *testing.T) {
	inRange := func(d time.Duration) error { return ValidateDuration(d, time.Minute, time.Hour) }

	tests := []struct {
		value        string
		want         time.Duration
		wantFallback bool
	}{
		{value: "", want: 15 * time.Minute},
		{value: "30m", want: 30 * time.Minute},
		{value: "10s", want: 15 * time.Minute, wantFallback: true},
		{value: "often", want: 15 * time.Minute, wantFallback: true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_CFG_DURATION", tt.value)
			r := LoadEnvDuration("TEST_CFG_DURATION", 15*time.Minute, inRange)
			if r.Value != tt.want || (r.Fallback != nil) != tt.wantFallback {
				t.Errorf("got (%v, %v), want (%v, fallback=%v)", r.Value, r.Fallback, tt.want, tt.wantFallback)
			}
		})
	}
}

func TestLoadEnvInt(t *testing.T) {
	port := func(v int) error { return ValidateIntRange(v, 1024, 65535) }

	t.Setenv("TEST_CFG_INT", "8081")
	if r := LoadEnvInt("TEST_CFG_INT", 9091, port); r.Value != 8081 || r.Fallback != nil {
		t.Errorf("valid: %+v", r)
	}
	t.Setenv("TEST_CFG_INT", "80")
	if r := LoadEnvInt("TEST_CFG_INT", 9091, port); r.Value != 9091 || r.Fallback == nil {
		t.Errorf("out of range: %+v", r)
	}
	t.Setenv("TEST_CFG_INT", "nine")
	r := LoadEnvInt("TEST_CFG_INT", 9091, nil)
	if r.Value != 9091 || r.Fallback == nil || !strings.Contains(r.Fallback.Reason.Error(), "invalid integer") {
		t.Errorf("unparseable: %+v", r)
	}
}

func TestLoadEnvBool(t *testing.T) {
	t.Setenv("TEST_CFG_BOOL", "false")
	if r := LoadEnvBool("TEST_CFG_BOOL", true); r.Value || r.Fallback != nil {
		t.Errorf("false: %+v", r)
	}
	t.Setenv("TEST_CFG_BOOL", "yes")
	if r := LoadEnvBool("TEST_CFG_BOOL", true); !r.Value || r.Fallback == nil {
		t.Errorf("invalid: %+v", r)
	}
}

func TestLoadEnv_CustomParser(t *testing.T) {
	errOdd := errors.New("must be even")
	parse := func(s string) (int, error) { return len(s), nil }
	even := func(n int) error {
		if n%2 != 0 {
			return errOdd
		}
		return nil
	}

	t.Setenv("TEST_CFG_CUSTOM", "abcd")
	if r := LoadEnv("TEST_CFG_CUSTOM", 0, parse, even); r.Value != 4 || r.Fallback != nil {
		t.Errorf("even: %+v", r)
	}
	t.Setenv("TEST_CFG_CUSTOM", "abc")
	r := LoadEnv("TEST_CFG_CUSTOM", 0, parse, even)
	if r.Value != 0 || r.Fallback == nil || !errors.Is(r.Fallback.Reason, errOdd) {
		t.Errorf("odd: %+v", r)
	}
}

/* ───────── validators ───────── */

func TestValidateCronSchedule(t *testing.T) {
	valid := []string{"0 */6 * * *", "30 5 * * 1-5", "@hourly", "@every 15m"}
	for _, s := range valid {
		if err := ValidateCronSchedule(s); err != nil {
			t.Errorf("ValidateCronSchedule(%q) = %v", s, err)
		}
	}
	invalid := []string{"", "every day", "* * * *", "0 0 0 * * *", "61 * * * *"}
	for _, s := range invalid {
		if err := ValidateCronSchedule(s); err == nil {
			t.Errorf("ValidateCronSchedule(%q) = nil, want error", s)
		}
	}
}

func TestValidateTimezone(t *testing.T) {
	if err := ValidateTimezone("UTC"); err != nil {
		t.Errorf("UTC: %v", err)
	}
	if err := ValidateTimezone(""); err == nil {
		t.Error("empty: want error")
	}
	if err := ValidateTimezone("Invalid/Zone"); err == nil {
		t.Error("Invalid/Zone: want error")
	}
}

func TestValidateRanges(t *testing.T) {
	if err := ValidateDuration(time.Minute, time.Minute, time.Hour); err != nil {
		t.Errorf("lower bound inclusive: %v", err)
	}
	if err := ValidateDuration(2*time.Hour, time.Minute, time.Hour); err == nil {
		t.Error("above max: want error")
	}
	if err := ValidateIntRange(65535, 1024, 65535); err != nil {
		t.Errorf("upper bound inclusive: %v", err)
	}
	if err := ValidateIntRange(1023, 1024, 65535); err == nil {
		t.Error("below min: want error")
	}
}

/* ───────── metrics ───────── */

func TestConfigMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConfigMetricsWith(promauto.With(reg), "test")

	m.RecordFallback("poll_interval")
	m.RecordFallback("poll_interval")
	m.RecordFallback("timezone")
	m.RecordLoad(true)

	if got := testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("poll_interval")); got != 2 {
		t.Errorf("poll_interval fallbacks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.FallbackActive); got != 1 {
		t.Errorf("fallback active = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LoadTimestamp); got <= 0 {
		t.Errorf("load timestamp = %v", got)
	}

	m.RecordLoad(false)
	if got := testutil.ToFloat64(m.FallbackActive); got != 0 {
		t.Errorf("fallback active = %v, want 0", got)
	}
	if n := testutil.CollectAndCount(reg); n != 4 {
		t.Errorf("collected %d series, want 4", n)
	}
}
