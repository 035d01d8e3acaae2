package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"news-archiver/internal/infra/httpclient"
)

// Diagnostic statuses.
const (
	StatusOK          = "OK"
	StatusRedirect    = "REDIRECT"
	StatusEmpty       = "EMPTY"
	StatusHTTPError   = "HTTP_ERROR"
	StatusParseError  = "PARSE_ERROR"
	StatusTimeout     = "TIMEOUT"
	StatusUnreachable = "UNREACHABLE"
	StatusRateLimited = "RATE_LIMITED"
	StatusBlocked     = "BLOCKED"
)

// Diagnostic is the health of one feed URL.
type Diagnostic struct {
	Source       string     `json:"source"`
	URL          string     `json:"url"`
	Status       string     `json:"status"`
	HTTPCode     int        `json:"http_code,omitempty"`
	Items        int        `json:"items"`
	Latest       *time.Time `json:"latest,omitempty"`
	RedirectURL  string     `json:"redirect_url,omitempty"`
	ResponseTime int64      `json:"response_time_ms"`
	Error        string     `json:"error,omitempty"`
}

// Healthy reports whether the feed yields candidates. A redirected feed still counts.
func (d Diagnostic) Healthy() bool {
	return d.Status == StatusOK || d.Status == StatusRedirect
}

// Diagnose fetches feedURL once and reports what the normalizer makes of it.
func Diagnose(ctx context.Context, client httpclient.Fetcher, source, feedURL string, timeout time.Duration) Diagnostic {
	d := Diagnostic{Source: source, URL: feedURL}

	start := time.Now()
	resp, err := client.Fetch(ctx, feedURL, nil, timeout)
	d.ResponseTime = time.Since(start).Milliseconds()
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			d.Status = StatusTimeout
		case errors.Is(err, httpclient.ErrUnreachable):
			d.Status = StatusUnreachable
		case errors.Is(err, httpclient.ErrRateLimited):
			d.Status = StatusRateLimited
		case errors.Is(err, httpclient.ErrPrivateIP), errors.Is(err, httpclient.ErrInvalidURL):
			d.Status = StatusBlocked
		default:
			d.Status = StatusHTTPError
		}
		d.Error = err.Error()
		return d
	}

	d.HTTPCode = resp.StatusCode
	if !resp.OK() {
		d.Status = StatusHTTPError
		d.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return d
	}

	candidates, err := ParseBytes(resp.Body)
	if err != nil {
		d.Status = StatusParseError
		d.Error = err.Error()
		return d
	}
	d.Items = len(candidates)
	for _, c := range candidates {
		if c.PublishedAt != nil && (d.Latest == nil || c.PublishedAt.After(*d.Latest)) {
			t := c.PublishedAt.UTC()
			d.Latest = &t
		}
	}

	switch {
	case d.Items == 0:
		d.Status = StatusEmpty
	case resp.FinalURL != "" && resp.FinalURL != feedURL:
		d.Status = StatusRedirect
		d.RedirectURL = resp.FinalURL
	default:
		d.Status = StatusOK
	}
	return d
}
