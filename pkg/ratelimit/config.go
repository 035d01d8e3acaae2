package ratelimit

import (
	"time"

	"news-archiver/pkg/config"
)

// Config holds the API rate limit settings.
type Config struct {
	Enabled bool

	// IPLimit requests per IPWindow apply to every request.
	IPLimit  int
	IPWindow time.Duration

	// SearchLimit requests per IPWindow apply to full-text search on top of IPLimit.
	SearchLimit int

	MaxKeys         int
	CleanupInterval time.Duration
}

// DefaultConfig returns 100 requests per minute per IP, 30 of them searches.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		IPLimit:         100,
		IPWindow:        time.Minute,
		SearchLimit:     30,
		MaxKeys:         10000,
		CleanupInterval: 5 * time.Minute,
	}
}

// LoadConfig reads RATELIMIT_* variables. Invalid or non-positive values keep
// their defaults.
//
// Environment variables:
//   - RATELIMIT_ENABLED (default: true)
//   - RATELIMIT_IP_LIMIT (default: 100)
//   - RATELIMIT_IP_WINDOW (default: 1m)
//   - RATELIMIT_SEARCH_LIMIT (default: 30)
//   - RATELIMIT_MAX_KEYS (default: 10000)
//   - RATELIMIT_CLEANUP_INTERVAL (default: 5m)
func LoadConfig() Config {
	def := DefaultConfig()
	return Config{
		Enabled:         config.GetEnvBool("RATELIMIT_ENABLED", def.Enabled),
		IPLimit:         positive(config.GetEnvInt("RATELIMIT_IP_LIMIT", def.IPLimit), def.IPLimit),
		IPWindow:        config.GetEnvPositiveDuration("RATELIMIT_IP_WINDOW", def.IPWindow),
		SearchLimit:     positive(config.GetEnvInt("RATELIMIT_SEARCH_LIMIT", def.SearchLimit), def.SearchLimit),
		MaxKeys:         positive(config.GetEnvInt("RATELIMIT_MAX_KEYS", def.MaxKeys), def.MaxKeys),
		CleanupInterval: config.GetEnvPositiveDuration("RATELIMIT_CLEANUP_INTERVAL", def.CleanupInterval),
	}
}

func positive(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
