package worker

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"news-archiver/internal/pkg/config"
)

// WorkerConfig holds the configuration for the polling worker.
// It controls how often ingest passes run, how long a pass may take,
// where sources and images live, and which optional stages are enabled.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// Example usage:
//
//	config, _ := LoadConfigFromEnv(logger, metrics)
//	c := cron.New(cron.WithLocation(config.Location()))
//	c.AddFunc(config.Schedule(), runPass)
type WorkerConfig struct {
	// PollInterval is the delay between the starts of two passes.
	// Range: 1m-24h
	// Default: 15 minutes
	PollInterval time.Duration

	// CronSchedule optionally replaces PollInterval with a cron expression.
	// Format: "minute hour day month weekday"
	// Default: "" (use PollInterval)
	CronSchedule string

	// Timezone is the IANA timezone name used by CronSchedule.
	// Default: "UTC"
	Timezone string

	// PassTimeout bounds a single pass. Cancellation is observed between sources.
	// Range: 1m-12h
	// Default: 2 hours
	PassTimeout time.Duration

	// SourceDelay is the pause between two sources of a pass.
	// Range: 0-1m
	// Default: 2 seconds
	SourceDelay time.Duration

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535 (avoid privileged ports)
	// Default: 9091
	HealthPort int

	// RunOnce runs a single pass and exits instead of scheduling.
	RunOnce bool

	// EnrichEnabled fetches Open Graph metadata for candidates missing an image or description.
	// Default: true
	EnrichEnabled bool

	// ImagesDir is the root of the preview image cache.
	// Default: "data/images"
	ImagesDir string

	// SourcesFile is the YAML file listing the polled sources.
	// Default: "configs/sources.yaml"
	SourcesFile string

	// OnlySource restricts polling to a single source slug.
	OnlySource string

	// BrowserPath points at a Chrome/Chromium binary. Empty means search PATH.
	BrowserPath string

	// TraceSpans logs a span per polled source at debug level.
	// Default: false
	TraceSpans bool
}

// DefaultConfig returns a WorkerConfig with sensible default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval:  15 * time.Minute,
		CronSchedule:  "",
		Timezone:      "UTC",
		PassTimeout:   2 * time.Hour,
		SourceDelay:   2 * time.Second,
		HealthPort:    9091,
		RunOnce:       false,
		EnrichEnabled: true,
		ImagesDir:     "data/images",
		SourcesFile:   "configs/sources.yaml",
	}
}

// Schedule returns the cron spec for the pass job.
// Without a CronSchedule the interval is expressed as an "@every" descriptor.
func (c *WorkerConfig) Schedule() string {
	if c.CronSchedule != "" {
		return c.CronSchedule
	}
	return "@every " + c.PollInterval.String()
}

// Location returns the scheduling timezone, falling back to UTC.
func (c *WorkerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks if the configuration values are valid.
// If multiple fields are invalid, all errors are collected and returned together.
//
// Validation rules:
//   - PollInterval: 1m-24h
//   - CronSchedule: empty, or a valid 5-field cron expression
//   - Timezone: Must be a valid IANA timezone name
//   - PassTimeout: 1m-12h
//   - SourceDelay: 0-1m
//   - HealthPort: Must be between 1024 and 65535
//   - SourcesFile, ImagesDir: non-empty
func (c *WorkerConfig) Validate() error {
	var errors []error

	if err := config.ValidateDuration(c.PollInterval, time.Minute, 24*time.Hour); err != nil {
		errors = append(errors, fmt.Errorf("poll interval: %w", err))
	}

	if c.CronSchedule != "" {
		if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
			errors = append(errors, fmt.Errorf("cron schedule: %w", err))
		}
	}

	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("timezone: %w", err))
	}

	if err := config.ValidateDuration(c.PassTimeout, time.Minute, 12*time.Hour); err != nil {
		errors = append(errors, fmt.Errorf("pass timeout: %w", err))
	}

	if err := config.ValidateDuration(c.SourceDelay, 0, time.Minute); err != nil {
		errors = append(errors, fmt.Errorf("source delay: %w", err))
	}

	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}

	if strings.TrimSpace(c.SourcesFile) == "" {
		errors = append(errors, fmt.Errorf("sources file: cannot be empty"))
	}

	if strings.TrimSpace(c.ImagesDir) == "" {
		errors = append(errors, fmt.Errorf("images dir: cannot be empty"))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// This function implements the fail-open strategy: an invalid value is logged,
// counted in the config metrics, and replaced by its default. It never returns an error.
//
// Environment variables:
//   - POLL_INTERVAL: Duration, e.g. "15m" (default: 15 minutes)
//   - CRON_SCHEDULE: Cron expression overriding POLL_INTERVAL (default: unset)
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - PASS_TIMEOUT: Duration (default: 2 hours)
//   - SOURCE_DELAY: Duration between sources (default: 2 seconds)
//   - WORKER_HEALTH_PORT: Integer 1024-65535 (default: 9091)
//   - RUN_ONCE: Boolean (default: false)
//   - ENRICH_ENABLED: Boolean (default: true)
//   - IMAGES_DIR: Directory (default: "data/images")
//   - SOURCES_FILE: YAML path (default: "configs/sources.yaml")
//   - ONLY_SOURCE: Source slug (default: unset)
//   - BROWSER_PATH: Chrome/Chromium binary (default: search PATH)
//   - TRACE_SPANS: Boolean (default: false)
//
// Returns:
//   - *WorkerConfig: Valid configuration (never nil)
//   - error: Always nil (fail-open strategy)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	apply := func(field, metricKey string, fb *config.Fallback) {
		if fb == nil {
			return
		}
		fallbackApplied = true
		metrics.RecordFallback(metricKey)
		logger.Warn("Configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", fb.String()))
	}

	poll := config.LoadEnvDuration("POLL_INTERVAL", cfg.PollInterval, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Minute, 24*time.Hour)
	})
	cfg.PollInterval = poll.Value
	apply("PollInterval", "poll_interval", poll.Fallback)

	schedule := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = schedule.Value
	apply("CronSchedule", "cron_schedule", schedule.Fallback)

	tz := config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = tz.Value
	apply("Timezone", "timezone", tz.Fallback)

	passTimeout := config.LoadEnvDuration("PASS_TIMEOUT", cfg.PassTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Minute, 12*time.Hour)
	})
	cfg.PassTimeout = passTimeout.Value
	apply("PassTimeout", "pass_timeout", passTimeout.Fallback)

	sourceDelay := config.LoadEnvDuration("SOURCE_DELAY", cfg.SourceDelay, func(d time.Duration) error {
		return config.ValidateDuration(d, 0, time.Minute)
	})
	cfg.SourceDelay = sourceDelay.Value
	apply("SourceDelay", "source_delay", sourceDelay.Fallback)

	port := config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = port.Value
	apply("HealthPort", "health_port", port.Fallback)

	flags := []struct {
		env, field, key string
		dst             *bool
	}{
		{"RUN_ONCE", "RunOnce", "run_once", &cfg.RunOnce},
		{"ENRICH_ENABLED", "EnrichEnabled", "enrich_enabled", &cfg.EnrichEnabled},
		{"TRACE_SPANS", "TraceSpans", "trace_spans", &cfg.TraceSpans},
	}
	for _, f := range flags {
		r := config.LoadEnvBool(f.env, *f.dst)
		*f.dst = r.Value
		apply(f.field, f.key, r.Fallback)
	}

	cfg.ImagesDir = config.LoadEnvString("IMAGES_DIR", cfg.ImagesDir)
	cfg.SourcesFile = config.LoadEnvString("SOURCES_FILE", cfg.SourcesFile)
	cfg.OnlySource = config.LoadEnvString("ONLY_SOURCE", cfg.OnlySource)
	cfg.BrowserPath = config.LoadEnvString("BROWSER_PATH", cfg.BrowserPath)

	metrics.RecordLoad(fallbackApplied)

	// Always return valid config (fail-open strategy)
	return &cfg, nil
}
