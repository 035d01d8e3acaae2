package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"news-archiver/internal/domain/entity"
	"news-archiver/internal/resilience/retry"

	"golang.org/x/time/rate"
)

// RateLimitError is a 429 answer from a webhook service.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError is a non-429 4xx answer. It is never retried.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string { return e.Message }

// ServerError is a 5xx answer. It is retried.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string { return e.Message }

// retryable reports whether err is worth another attempt. Client errors are
// final; server errors, rate limits and network failures are not.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var clientErr *ClientError
	return !errors.As(err, &clientErr)
}

// truncate shortens text to at most maxRunes runes, ending with suffix when cut.
func truncate(text string, maxRunes int, suffix string) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	keep := maxRunes - utf8.RuneCountInString(suffix)
	if keep < 0 {
		keep = 0
	}
	runes := []rune(text)
	return string(runes[:keep]) + suffix
}

// maxRetryAfter caps a server-provided Retry-After.
const maxRetryAfter = 60 * time.Second

// webhookRetry allows one retry, 5s after a failure or after the Retry-After of a 429.
func webhookRetry() retry.Config {
	return retry.Config{
		MaxAttempts:  2,
		InitialDelay: 5 * time.Second,
		Multiplier:   1,
		ShouldRetry:  retryable,
		DelayFor: func(err error) (time.Duration, bool) {
			var rateLimitErr *RateLimitError
			if errors.As(err, &rateLimitErr) {
				return min(rateLimitErr.RetryAfter, maxRetryAfter), true
			}
			return 0, false
		},
	}
}

// webhook is the transport shared by the Slack and Discord notifiers.
type webhook struct {
	service    string
	url        string
	client     *http.Client
	limiter    *rate.Limiter
	retry      retry.Config
	retryAfter func(resp *http.Response, body []byte) time.Duration
	logger     *slog.Logger
}

// post sends one JSON payload and classifies the response.
func (w *webhook) post(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		// the URL embeds the webhook token; keep it out of the error
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("%s webhook request: %w", w.service, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    w.service + " rate limit exceeded",
			RetryAfter: w.retryAfter(resp, body),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API client error %d: %s", w.service, resp.StatusCode, body),
		}
	case resp.StatusCode >= 500:
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API server error %d: %s", w.service, resp.StatusCode, body),
		}
	}
	return fmt.Errorf("%s: unexpected status code %d", w.service, resp.StatusCode)
}

// send waits for a rate limit token and posts payload on the webhook retry schedule.
func (w *webhook) send(ctx context.Context, article *entity.Article, payload any) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	attempts := 0
	err := retry.WithBackoff(ctx, w.retry, func() error {
		attempts++
		return w.post(ctx, payload)
	})
	if err != nil {
		return fmt.Errorf("%s notification: %w", w.service, err)
	}
	w.logger.Debug("notification sent",
		slog.String("service", w.service),
		slog.Int64("article_id", article.ID),
		slog.Int("attempts", attempts))
	return nil
}

// headerRetryAfter reads a Retry-After header in seconds, defaulting to 5s.
func headerRetryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 5 * time.Second
}
