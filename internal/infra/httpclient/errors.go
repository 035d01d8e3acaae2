package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimited is returned when every attempt was answered with 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnreachable is returned when every attempt failed at the transport level.
	ErrUnreachable = errors.New("unreachable")

	// ErrBodyTooLarge indicates the response body exceeded Config.MaxBodySize.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrInvalidURL indicates the URL is malformed or uses an unsupported scheme.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrPrivateIP indicates the URL resolves to a private network address.
	ErrPrivateIP = errors.New("private IP address blocked")

	// ErrTooManyRedirects indicates the redirect chain exceeded Config.MaxRedirects.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// StatusError describes a non-2xx response that was not retried.
// Callers that want an error rather than a Response use Response.Err.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// IsPermanent reports whether err is a non-retried HTTP status failure.
func IsPermanent(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// IsTransient reports whether err is a rate-limit or transport failure that
// survived the retry budget.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnreachable)
}

// attemptError marks a single attempt failure that the retry loop may repeat.
type attemptError struct {
	rateLimited bool
	err         error
}

func (e *attemptError) Error() string {
	if e.rateLimited {
		return "HTTP 429 Too Many Requests"
	}
	return e.err.Error()
}

func (e *attemptError) Unwrap() error { return e.err }
