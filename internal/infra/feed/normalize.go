package feed

import (
	"strings"
	"time"
	"unicode/utf8"

	"news-archiver/internal/domain/entity"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// MaxDescriptionLength is the rune limit applied to candidate descriptions.
const MaxDescriptionLength = 500

// Layouts tried before falling back to dateparse. Feeds emit RFC 3339
// without seconds often enough that it gets its own entry.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	time.RFC1123Z,
	time.RFC1123,
}

// Normalize turns an Entry into a Candidate. It reports false when the entry
// has no usable link.
func Normalize(e Entry) (entity.Candidate, bool) {
	link := strings.TrimSpace(e.Link)
	if link == "" {
		return entity.Candidate{}, false
	}

	c := entity.Candidate{
		URL:             link,
		Headline:        strings.TrimSpace(e.Title),
		Byline:          byline(e),
		Description:     Truncate(StripHTML(e.Summary), MaxDescriptionLength),
		PublishedAt:     publishDate(e),
		PreviewImageURL: previewImage(e),
		Tags:            tags(e.Categories),
	}
	return c, true
}

// publishDate prefers structured fields and never invents a date.
func publishDate(e Entry) *time.Time {
	for _, t := range []*time.Time{e.Published, e.Updated} {
		if t != nil && !t.IsZero() {
			u := t.UTC()
			return &u
		}
	}
	for _, s := range []string{e.PublishedText, e.UpdatedText} {
		if t, ok := ParseDate(s); ok {
			return &t
		}
	}
	return nil
}

// ParseDate parses a free-text date and returns it in UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// previewImage walks the image sources in priority order; first hit wins.
func previewImage(e Entry) string {
	for _, m := range e.Media {
		if m.URL == "" {
			continue
		}
		if m.Medium == "image" || strings.HasPrefix(m.Type, "image/") || (m.Medium == "" && m.Type == "") {
			return m.URL
		}
	}
	for _, t := range e.Thumbnails {
		if t != "" {
			return t
		}
	}
	for _, enc := range e.Enclosures {
		if enc.URL != "" && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	if src := FirstImage(e.Content); src != "" {
		return src
	}
	return FirstImage(e.Summary)
}

func byline(e Entry) string {
	if a := strings.TrimSpace(e.Author); a != "" {
		return a
	}
	names := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if a = strings.TrimSpace(a); a != "" {
			names = append(names, a)
		}
	}
	return strings.Join(names, ", ")
}

func tags(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// StripHTML removes markup, decodes entities and collapses whitespace.
func StripHTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// FirstImage returns the src of the first <img> in an HTML fragment.
func FirstImage(html string) string {
	if !strings.Contains(html, "<img") && !strings.Contains(html, "<IMG") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
