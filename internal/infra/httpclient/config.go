package httpclient

import (
	"fmt"
	"time"

	"news-archiver/pkg/config"
)

// Config holds the configuration for outbound HTTP fetching.
//
// Security settings:
//   - DenyPrivateIPs: blocks URLs resolving to private addresses (SSRF)
//   - MaxBodySize: prevents memory exhaustion from oversized responses
//   - MaxRedirects: prevents infinite redirect loops
type Config struct {
	// Timeout is the default per-attempt timeout when Fetch is called with zero.
	// Default: 30s
	Timeout time.Duration

	// MaxBodySize is the maximum response body size in bytes.
	// Enforced while reading, not from Content-Length.
	// Default: 10485760 (10MB)
	MaxBodySize int64

	// MaxRedirects is the maximum number of redirects to follow.
	// Default: 10
	MaxRedirects int

	// DenyPrivateIPs controls whether private, loopback and link-local
	// destinations are rejected, including redirect targets.
	// Default: false
	DenyPrivateIPs bool

	// UserAgent is sent when the caller does not set one.
	UserAgent string
}

// DefaultUserAgent identifies the archiver when a strategy does not spoof one.
const DefaultUserAgent = "Mozilla/5.0 (compatible; NewsAggregator/1.0)"

// DefaultConfig returns the default configuration for outbound fetching.
func DefaultConfig() Config {
	return Config{
		Timeout:        30 * time.Second,
		MaxBodySize:    10 * 1024 * 1024, // 10MB
		MaxRedirects:   10,
		DenyPrivateIPs: false,
		UserAgent:      DefaultUserAgent,
	}
}

// Validate checks if the configuration values are valid and safe.
//
// Validation rules:
//   - Timeout: > 0
//   - MaxBodySize: 1KB-100MB
//   - MaxRedirects: 0-20
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	minBodySize := int64(1024)              // 1KB
	maxBodySize := int64(100 * 1024 * 1024) // 100MB
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}

	if c.MaxRedirects < 0 || c.MaxRedirects > 20 {
		return fmt.Errorf("max redirects must be between 0 and 20, got %d", c.MaxRedirects)
	}

	return nil
}

// LoadConfigFromEnv loads configuration from environment variables.
// Unset or unparsable variables keep their defaults; the result is validated.
//
// Environment variables:
//   - FETCH_TIMEOUT: duration string, e.g. "30s"
//   - FETCH_MAX_BODY_SIZE: integer in bytes
//   - FETCH_MAX_REDIRECTS: integer
//   - FETCH_DENY_PRIVATE_IPS: "true" or "false"
//   - FETCH_USER_AGENT: string
func LoadConfigFromEnv() (Config, error) {
	def := DefaultConfig()
	cfg := Config{
		Timeout:        config.GetEnvDuration("FETCH_TIMEOUT", def.Timeout),
		MaxBodySize:    int64(config.GetEnvInt("FETCH_MAX_BODY_SIZE", int(def.MaxBodySize))),
		MaxRedirects:   config.GetEnvInt("FETCH_MAX_REDIRECTS", def.MaxRedirects),
		DenyPrivateIPs: config.GetEnvBool("FETCH_DENY_PRIVATE_IPS", def.DenyPrivateIPs),
		UserAgent:      config.GetEnvString("FETCH_USER_AGENT", def.UserAgent),
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
