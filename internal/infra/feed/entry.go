package feed

import (
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// Entry is a feed item reduced to the fields the normalizer reads.
// Every field is optional; a zero value means the feed did not carry it.
type Entry struct {
	Link  string
	Title string

	// Structured dates as parsed by the feed library.
	Published *time.Time
	Updated   *time.Time
	// Raw date strings, used when the library could not parse them.
	PublishedText string
	UpdatedText   string

	// Summary is the RSS description or Atom summary.
	Summary string
	// Content is the full rendered body (content:encoded or Atom content).
	Content string

	Author  string
	Authors []string

	Categories []string

	Media      []Media
	Thumbnails []string
	Enclosures []Media
}

// Media is an embedded media reference: media:content, an enclosure, or a
// feed-level item image.
type Media struct {
	URL    string
	Medium string
	Type   string
}

// fromItem converts a gofeed item into an Entry.
func fromItem(it *gofeed.Item) Entry {
	e := Entry{
		Link:          it.Link,
		Title:         it.Title,
		Published:     it.PublishedParsed,
		Updated:       it.UpdatedParsed,
		PublishedText: it.Published,
		UpdatedText:   it.Updated,
		Summary:       it.Description,
		Content:       it.Content,
		Categories:    it.Categories,
	}

	if it.Author != nil {
		e.Author = it.Author.Name
	}
	for _, a := range it.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			e.Authors = append(e.Authors, a.Name)
		}
	}

	if media, ok := it.Extensions["media"]; ok {
		e.Media = append(e.Media, mediaContents(media)...)
		e.Thumbnails = append(e.Thumbnails, mediaThumbnails(media)...)
	}
	if it.Image != nil && it.Image.URL != "" {
		e.Thumbnails = append(e.Thumbnails, it.Image.URL)
	}

	for _, enc := range it.Enclosures {
		if enc == nil {
			continue
		}
		e.Enclosures = append(e.Enclosures, Media{URL: enc.URL, Type: enc.Type})
	}

	return e
}

// mediaContents collects media:content elements, including those nested in
// media:group.
func mediaContents(media map[string][]ext.Extension) []Media {
	var out []Media
	for _, c := range media["content"] {
		out = append(out, Media{URL: c.Attrs["url"], Medium: c.Attrs["medium"], Type: c.Attrs["type"]})
	}
	for _, g := range media["group"] {
		for _, c := range g.Children["content"] {
			out = append(out, Media{URL: c.Attrs["url"], Medium: c.Attrs["medium"], Type: c.Attrs["type"]})
		}
	}
	return out
}

func mediaThumbnails(media map[string][]ext.Extension) []string {
	var out []string
	for _, t := range media["thumbnail"] {
		if u := t.Attrs["url"]; u != "" {
			out = append(out, u)
		}
	}
	for _, g := range media["group"] {
		for _, t := range g.Children["thumbnail"] {
			if u := t.Attrs["url"]; u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}
