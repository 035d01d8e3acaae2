package resolver

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"news-archiver/internal/infra/httpclient"

	"github.com/stretchr/testify/assert"
)

type stubFetcher struct {
	resp  *httpclient.Response
	err   error
	calls int
}

func (s *stubFetcher) Fetch(_ context.Context, _ string, _ http.Header, _ time.Duration) (*httpclient.Response, error) {
	s.calls++
	return s.resp, s.err
}

func TestResolve(t *testing.T) {
	const gnews = "https://news.google.com/rss/articles/CBMiabc?oc=5"

	tests := []struct {
		name      string
		url       string
		fetcher   *stubFetcher
		want      string
		wantCalls int
	}{
		{
			name:      "direct url untouched",
			url:       "https://example.com/a",
			fetcher:   &stubFetcher{},
			want:      "https://example.com/a",
			wantCalls: 0,
		},
		{
			name:      "aggregator url resolved",
			url:       gnews,
			fetcher:   &stubFetcher{resp: &httpclient.Response{StatusCode: 200, FinalURL: "https://publisher.example/story"}},
			want:      "https://publisher.example/story",
			wantCalls: 1,
		},
		{
			name:      "final url adopted even on error status",
			url:       gnews,
			fetcher:   &stubFetcher{resp: &httpclient.Response{StatusCode: 403, FinalURL: "https://publisher.example/paywalled"}},
			want:      "https://publisher.example/paywalled",
			wantCalls: 1,
		},
		{
			name:      "fetch failure keeps original",
			url:       gnews,
			fetcher:   &stubFetcher{err: errors.New("unreachable")},
			want:      gnews,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.fetcher, nil)
			assert.Equal(t, tt.want, r.Resolve(context.Background(), tt.url))
			assert.Equal(t, tt.wantCalls, tt.fetcher.calls)
		})
	}
}
