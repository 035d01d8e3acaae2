// Package middleware provides the CORS policy and per-IP rate limiting for the archive API.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"news-archiver/pkg/config"
)

// CORSConfig holds the configuration for CORS middleware.
type CORSConfig struct {
	// AllowedOrigins is a whitelist of origins, normalized to lower case
	// without trailing slashes. A single "*" allows any origin.
	AllowedOrigins []string

	// AllowedMethods is sent on preflight responses.
	// Default: GET, HEAD, OPTIONS
	AllowedMethods []string

	// AllowedHeaders is sent on preflight responses.
	// Default: Content-Type, X-Request-ID
	AllowedHeaders []string

	// MaxAge is the preflight cache duration in seconds.
	// Default: 86400
	MaxAge int

	Logger *slog.Logger
}

// LoadCORSConfig reads CORS settings from the environment.
//
// Environment variables:
//   - CORS_ALLOWED_ORIGINS: comma-separated origins or "*". Unset disables CORS (nil config).
//   - CORS_MAX_AGE: preflight cache duration in seconds (default: 86400)
//
// Returns an error when an origin is not a bare http(s) scheme and host.
func LoadCORSConfig() (*CORSConfig, error) {
	raw := strings.TrimSpace(config.GetEnvString("CORS_ALLOWED_ORIGINS", ""))
	if raw == "" {
		return nil, nil
	}

	origins, err := parseOrigins(raw)
	if err != nil {
		return nil, err
	}

	maxAge := config.GetEnvInt("CORS_MAX_AGE", 86400)
	if maxAge < 0 {
		return nil, fmt.Errorf("CORS_MAX_AGE must be non-negative, got %d", maxAge)
	}

	return &CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         maxAge,
	}, nil
}

func parseOrigins(raw string) ([]string, error) {
	if raw == "*" {
		return []string{"*"}, nil
	}

	origins := make([]string, 0, 4)
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil {
			return nil, fmt.Errorf("invalid origin URL '%s': %w", origin, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("origin must use http or https scheme: %s", origin)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("origin must include a host: %s", origin)
		}
		if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
			return nil, fmt.Errorf("origin must not include path, query or fragment: %s", origin)
		}
		origins = append(origins, normalizeOrigin(origin))
	}

	if len(origins) == 0 {
		return nil, fmt.Errorf("at least one valid origin must be configured in CORS_ALLOWED_ORIGINS")
	}
	return origins, nil
}

func normalizeOrigin(origin string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(origin)), "/")
}

// IsAllowed reports whether origin matches the whitelist.
func (c *CORSConfig) IsAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	origin = normalizeOrigin(origin)
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// CORS returns middleware applying the policy in config.
//
// Behavior:
//   - No Origin header: passed through untouched (same-origin request)
//   - Disallowed origin: passed through without CORS headers, so the browser blocks the response
//   - Allowed OPTIONS preflight: answered with 204 and the method/header/max-age headers
//   - Allowed actual request: Access-Control-Allow-Origin is set and the request continues
//
// The API is public and cookie-free, so credentials are never allowed.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Origin")
			if !cfg.IsAllowed(origin) {
				if cfg.Logger != nil {
					cfg.Logger.Warn("CORS: origin not allowed",
						slog.String("origin", origin),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method))
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
				w.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
