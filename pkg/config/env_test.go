package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// captureWarnings routes the default logger into a buffer for the test.
func captureWarnings(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestGetEnvString(t *testing.T) {
	t.Setenv("TEST_STRING", "")
	if got := GetEnvString("TEST_STRING", "fallback"); got != "fallback" {
		t.Errorf("unset: got %q", got)
	}
	t.Setenv("TEST_STRING", "value")
	if got := GetEnvString("TEST_STRING", "fallback"); got != "value" {
		t.Errorf("set: got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int
		warning bool
	}{
		{name: "unset", value: "", want: 7},
		{name: "valid", value: "42", want: 42},
		{name: "padded", value: " 12 ", want: 12},
		{name: "negative", value: "-3", want: -3},
		{name: "garbage", value: "twelve", want: 7, warning: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureWarnings(t)
			t.Setenv("TEST_INT", tt.value)
			if got := GetEnvInt("TEST_INT", 7); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
			if got := strings.Contains(buf.String(), "TEST_INT"); got != tt.warning {
				t.Errorf("warning logged = %v, want %v: %s", got, tt.warning, buf.String())
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{value: "", def: true, want: true},
		{value: "true", def: false, want: true},
		{value: "TRUE", def: false, want: true},
		{value: "1", def: false, want: true},
		{value: "f", def: true, want: false},
		{value: "False", def: true, want: false},
		{value: "maybe", def: true, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			captureWarnings(t)
			t.Setenv("TEST_BOOL", tt.value)
			if got := GetEnvBool("TEST_BOOL", tt.def); got != tt.want {
				t.Errorf("GetEnvBool(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	captureWarnings(t)
	t.Setenv("TEST_DURATION", "90s")
	if got := GetEnvDuration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("got %v", got)
	}
	t.Setenv("TEST_DURATION", "soon")
	if got := GetEnvDuration("TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("invalid: got %v", got)
	}
	t.Setenv("TEST_DURATION", "-5s")
	if got := GetEnvDuration("TEST_DURATION", time.Second); got != -5*time.Second {
		t.Errorf("negative values parse: got %v", got)
	}
}

func TestGetEnvPort(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{value: "", want: 8080},
		{value: "9000", want: 9000},
		{value: "0", want: 8080},
		{value: "70000", want: 8080},
		{value: "http", want: 8080},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			captureWarnings(t)
			t.Setenv("TEST_PORT", tt.value)
			if got := GetEnvPort("TEST_PORT", 8080); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetEnvPositiveDuration(t *testing.T) {
	buf := captureWarnings(t)
	t.Setenv("TEST_TIMEOUT", "-1s")
	if got := GetEnvPositiveDuration("TEST_TIMEOUT", 15*time.Second); got != 15*time.Second {
		t.Errorf("got %v", got)
	}
	if !strings.Contains(buf.String(), "duration must be positive") {
		t.Errorf("expected warning, got %s", buf.String())
	}
	t.Setenv("TEST_TIMEOUT", "2m")
	if got := GetEnvPositiveDuration("TEST_TIMEOUT", 15*time.Second); got != 2*time.Minute {
		t.Errorf("got %v", got)
	}
}
