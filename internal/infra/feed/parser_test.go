package feed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"news-archiver/internal/infra/feed"
	"news-archiver/internal/infra/httpclient"
	"news-archiver/internal/resilience/retry"
)

func newClient() *httpclient.Client {
	cfg := retry.FetchConfig()
	cfg.Wait = func(context.Context, time.Duration) error { return nil }
	return httpclient.New(httpclient.DefaultConfig(), httpclient.WithRetryConfig(cfg))
}

func TestParser_Parse_RSS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <item>
      <title>Article 1</title>
      <link>https://example.com/article1</link>
      <description>&lt;p&gt;Description &amp;amp; more&lt;/p&gt;</description>
      <pubDate>Mon, 01 Jan 2024 00:00:00 +0000</pubDate>
      <dc:creator>Jane Doe</dc:creator>
      <category>World</category>
      <media:content url="https://example.com/a1.jpg" medium="image"/>
    </item>
    <item>
      <title>No link</title>
    </item>
    <item>
      <title>Article 2</title>
      <link>https://example.com/article2</link>
      <enclosure url="https://example.com/a2.png" type="image/png" length="100"/>
    </item>
  </channel>
</rss>`
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rss))
	}))
	defer server.Close()

	candidates := feed.NewParser(newClient()).Parse(context.Background(), server.URL)

	if len(candidates) != 2 {
		t.Fatalf("candidates length = %d, want 2", len(candidates))
	}

	first := candidates[0]
	if first.URL != "https://example.com/article1" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.Headline != "Article 1" {
		t.Errorf("Headline = %q", first.Headline)
	}
	if first.Description != "Description & more" {
		t.Errorf("Description = %q", first.Description)
	}
	if first.Byline != "Jane Doe" {
		t.Errorf("Byline = %q", first.Byline)
	}
	if first.PreviewImageURL != "https://example.com/a1.jpg" {
		t.Errorf("PreviewImageURL = %q", first.PreviewImageURL)
	}
	if first.PublishedAt == nil || !first.PublishedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishedAt = %v", first.PublishedAt)
	}
	if len(first.Tags) != 1 || first.Tags[0] != "World" {
		t.Errorf("Tags = %v", first.Tags)
	}

	if candidates[1].PreviewImageURL != "https://example.com/a2.png" {
		t.Errorf("enclosure image = %q", candidates[1].PreviewImageURL)
	}
	if candidates[1].PublishedAt != nil {
		t.Errorf("expected no fabricated date, got %v", candidates[1].PublishedAt)
	}
}

func TestParser_Parse_Atom(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atom := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <updated>2024-01-01T00:00:00Z</updated>
  <entry>
    <title>X</title>
    <link href="https://example.com/a"/>
    <published>2024-01-01T00:00:00Z</published>
    <author><name>Ada</name></author>
  </entry>
</feed>`
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atom))
	}))
	defer server.Close()

	candidates := feed.NewParser(newClient()).Parse(context.Background(), server.URL)

	if len(candidates) != 1 {
		t.Fatalf("candidates length = %d, want 1", len(candidates))
	}
	c := candidates[0]
	if c.Headline != "X" || c.Description != "" || c.Byline != "Ada" {
		t.Errorf("unexpected candidate %+v", c)
	}
	if c.PublishedAt == nil || c.PublishedAt.Format(time.RFC3339) != "2024-01-01T00:00:00Z" {
		t.Errorf("PublishedAt = %v", c.PublishedAt)
	}
}

func TestParser_Parse_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
		{
			name: "malformed document",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("this is not a feed"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			candidates := feed.NewParser(newClient()).Parse(context.Background(), server.URL)
			if candidates == nil || len(candidates) != 0 {
				t.Errorf("expected empty non-nil slice, got %v", candidates)
			}
		})
	}
}
