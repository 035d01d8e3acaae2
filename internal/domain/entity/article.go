// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Article, Candidate and Source, along with
// their validation rules and domain-specific errors.
package entity

import "time"

// Article represents a persisted news article.
// URL is the canonical (post-redirect) address and is globally unique in the store.
type Article struct {
	ID                int64
	URL               string
	SourceSlug        string
	SourceName        string
	Category          string
	Headline          string
	Byline            string
	Description       string
	Body              string // sanitized HTML, empty when no full text was retrieved
	PublishedAt       *time.Time
	DiscoveredAt      time.Time
	PreviewImageURL   string
	PreviewImageLocal string
	ImageURLs         []string
	Tags              []string
}

// EffectiveDate returns the publish date when known, falling back to the discovery time.
// It is the sort and filter key for listings.
func (a *Article) EffectiveDate() time.Time {
	if a.PublishedAt != nil && !a.PublishedAt.IsZero() {
		return *a.PublishedAt
	}
	return a.DiscoveredAt
}

// Candidate is an article observation extracted from a feed that has not been persisted yet.
// The ingest coordinator fills its empty fields as enrichment and retrieval proceed.
type Candidate struct {
	URL             string
	Headline        string
	Byline          string
	Description     string
	PublishedAt     *time.Time
	PreviewImageURL string
	Tags            []string
}

// ToArticle assembles the persisted representation of a candidate for the given source.
func (c *Candidate) ToArticle(src *Source, body, localImage string, discoveredAt time.Time) *Article {
	art := &Article{
		URL:               c.URL,
		SourceSlug:        src.Slug,
		SourceName:        src.Name,
		Category:          src.Category,
		Headline:          c.Headline,
		Byline:            c.Byline,
		Description:       c.Description,
		Body:              body,
		PublishedAt:       c.PublishedAt,
		DiscoveredAt:      discoveredAt,
		PreviewImageURL:   c.PreviewImageURL,
		PreviewImageLocal: localImage,
		ImageURLs:         []string{},
		Tags:              c.Tags,
	}
	if c.PreviewImageURL != "" {
		art.ImageURLs = []string{c.PreviewImageURL}
	}
	if art.Tags == nil {
		art.Tags = []string{}
	}
	return art
}

// SourceCheckpoint records the last successful poll of a source.
type SourceCheckpoint struct {
	SourceSlug    string
	LastCheckedAt time.Time
	ArticlesFound int
}
