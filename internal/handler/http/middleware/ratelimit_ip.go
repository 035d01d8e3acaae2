package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"news-archiver/internal/handler/http/respond"
	"news-archiver/pkg/ratelimit"
)

// IPRateLimiter applies a sliding-window limit per client IP.
type IPRateLimiter struct {
	limiter   *ratelimit.Limiter
	extractor IPExtractor
	logger    *slog.Logger
}

// NewIPRateLimiter wraps limiter as HTTP middleware. A nil logger uses slog.Default.
func NewIPRateLimiter(limiter *ratelimit.Limiter, extractor IPExtractor, logger *slog.Logger) *IPRateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &IPRateLimiter{limiter: limiter, extractor: extractor, logger: logger}
}

// Middleware sets X-RateLimit-* headers on every response and answers 429
// with Retry-After once the client's window is full. Requests whose address
// cannot be determined pass through unlimited.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, err := rl.extractor.ExtractIP(r)
		if err != nil {
			rl.logger.Warn("rate limit skipped: client address unknown",
				slog.String("limiter", rl.limiter.Name()),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}

		d := rl.limiter.Allow(ip)
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
		h.Set("X-RateLimit-Type", rl.limiter.Name())

		if !d.Allowed {
			retryAfter := d.RetryAfterSeconds()
			rl.logger.Warn("rate limit exceeded",
				slog.String("limiter", rl.limiter.Name()),
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
				slog.Int64("retry_after", retryAfter))
			h.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			respond.JSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       "rate_limit_exceeded",
				"message":     fmt.Sprintf("too many requests, retry in %d seconds", retryAfter),
				"retry_after": retryAfter,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
