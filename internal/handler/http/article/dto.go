// Package article provides the read-only HTTP handlers over the article archive.
package article

import (
	"time"

	"news-archiver/internal/domain/entity"
	"news-archiver/internal/repository"
	artUC "news-archiver/internal/usecase/article"
)

// ImagesPrefix is the URL prefix under which cached preview images are served.
const ImagesPrefix = "/images/"

// DTO represents the JSON structure for article data transfer.
// Body is only populated on the single-article endpoint.
type DTO struct {
	ID              int64      `json:"id"`
	URL             string     `json:"url"`
	Source          string     `json:"source"`
	SourceName      string     `json:"source_name"`
	Category        string     `json:"category"`
	Headline        string     `json:"headline"`
	Byline          string     `json:"byline,omitempty"`
	Description     string     `json:"description,omitempty"`
	Body            string     `json:"body,omitempty"`
	Date            time.Time  `json:"date"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	DiscoveredAt    time.Time  `json:"discovered_at"`
	PreviewImageURL string     `json:"preview_image_url,omitempty"`
	PreviewImage    string     `json:"preview_image,omitempty"`
	ImageURLs       []string   `json:"image_urls"`
	Tags            []string   `json:"tags"`
}

func toDTO(a *entity.Article, withBody bool) DTO {
	dto := DTO{
		ID:              a.ID,
		URL:             a.URL,
		Source:          a.SourceSlug,
		SourceName:      a.SourceName,
		Category:        a.Category,
		Headline:        a.Headline,
		Byline:          a.Byline,
		Description:     a.Description,
		Date:            a.EffectiveDate().UTC(),
		PublishedAt:     a.PublishedAt,
		DiscoveredAt:    a.DiscoveredAt.UTC(),
		PreviewImageURL: a.PreviewImageURL,
		ImageURLs:       nonNil(a.ImageURLs),
		Tags:            nonNil(a.Tags),
	}
	if withBody {
		dto.Body = a.Body
	}
	if a.PreviewImageLocal != "" {
		dto.PreviewImage = ImagesPrefix + a.PreviewImageLocal
	}
	return dto
}

func toDTOs(articles []*entity.Article) []DTO {
	out := make([]DTO, 0, len(articles))
	for _, a := range articles {
		out = append(out, toDTO(a, false))
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// SourceDTO is one entry of GET /sources.
type SourceDTO struct {
	Slug              string     `json:"slug"`
	Name              string     `json:"name"`
	Category          string     `json:"category"`
	Articles          int64      `json:"articles"`
	Latest            *time.Time `json:"latest,omitempty"`
	LastCheckedAt     *time.Time `json:"last_checked_at,omitempty"`
	LastArticlesFound int        `json:"last_articles_found"`
}

func toSourceDTO(s artUC.SourceSummary) SourceDTO {
	return SourceDTO{
		Slug:              s.SourceSlug,
		Name:              s.SourceName,
		Category:          s.Category,
		Articles:          s.Count,
		Latest:            s.Latest,
		LastCheckedAt:     s.LastCheckedAt,
		LastArticlesFound: s.LastArticlesFound,
	}
}

// CategoryDTO is one entry of GET /categories.
type CategoryDTO struct {
	Category string `json:"category"`
	Articles int64  `json:"articles"`
}

func toCategoryDTO(c repository.CategoryCount) CategoryDTO {
	return CategoryDTO{Category: c.Category, Articles: c.Count}
}

// StatsDTO is the body of GET /stats.
type StatsDTO struct {
	TotalArticles int64      `json:"total_articles"`
	TotalSources  int64      `json:"total_sources"`
	NewestArticle *time.Time `json:"newest_article,omitempty"`
}
