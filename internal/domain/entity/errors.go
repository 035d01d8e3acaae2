package entity

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrValidationFailed matches every *ValidationError through errors.Is.
var ErrValidationFailed = errors.New("validation failed")

// maxURLLength bounds configured feed and site URLs.
const maxURLLength = 2048

// ValidationError names the configuration field that was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// ValidateURL checks the shape of a configured http(s) URL. Hosts are not
// resolved: a feed may live on any network the operator chooses.
func ValidateURL(rawURL string) error {
	switch {
	case rawURL == "":
		return invalid("url", "URL is required")
	case len(rawURL) > maxURLLength:
		return invalid("url", "url must not exceed %d characters", maxURLLength)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return invalid("url", "invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("url", "scheme %q is not http or https", u.Scheme)
	}
	if u.Host == "" {
		return invalid("url", "URL has no host")
	}
	return nil
}
