// Package sanitizer reduces a raw article page to a restricted HTML subset:
// known junk and noise containers are dropped, the main content container is
// located, and only allow-listed tags and attributes survive.
package sanitizer

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// DefaultMinTextLength is the plain-text floor below which a page is not
// considered an article body (a paywall teaser, an error page).
const DefaultMinTextLength = 200

// Document is a sanitized article body.
type Document struct {
	HTML string
	// TextLength is the rune count of the whitespace-collapsed plain text.
	TextLength int
}

// Sanitizer turns raw pages into Documents.
type Sanitizer struct {
	minTextLength int
}

// New returns a Sanitizer with the default text floor.
func New() *Sanitizer {
	return &Sanitizer{minTextLength: DefaultMinTextLength}
}

// Sanitize extracts the article body from page. It returns false when the
// page yields less than the text floor, even after the paragraph fallback.
func (s *Sanitizer) Sanitize(page string) (*Document, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, false
	}

	doc.Find(junkSelector).Remove()
	removeNoise(doc)

	container := findContainer(doc)
	for _, n := range container.Nodes {
		cleanTree(n)
	}

	text := plainText(container.Text())
	if utf8.RuneCountInString(text) >= s.minTextLength {
		return &Document{HTML: render(container), TextLength: utf8.RuneCountInString(text)}, true
	}

	return s.paragraphFallback(doc)
}

// Extract sanitizes page like Sanitize. When that yields nothing it runs the
// Readability extractor over the original page and sanitizes its output, which
// rescues bodies whose wrapper carries a noise-like class (e.g. "lead").
// Junk and noise inside the extracted body are still removed.
// pageURL resolves relative links; a nil pageURL disables the extractor.
func (s *Sanitizer) Extract(page string, pageURL *url.URL) (*Document, bool) {
	if doc, ok := s.Sanitize(page); ok {
		return doc, true
	}
	if pageURL == nil || strings.TrimSpace(page) == "" {
		return nil, false
	}
	return s.readabilityFallback(page, pageURL)
}

func (s *Sanitizer) readabilityFallback(page string, pageURL *url.URL) (*Document, bool) {
	parser := readability.NewParser()
	parser.KeepClasses = true
	article, err := parser.Parse(strings.NewReader(page), pageURL)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		return nil, false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil, false
	}
	body := doc.Find("body").First()
	if body.Length() == 0 {
		body = doc.Selection
	}
	body.Find(junkSelector).Remove()
	removeInnerNoise(body)
	for _, n := range body.Nodes {
		cleanTree(n)
	}

	n := utf8.RuneCountInString(plainText(body.Text()))
	if n < s.minTextLength {
		return nil, false
	}
	return &Document{HTML: render(body), TextLength: n}, true
}

// removeInnerNoise drops noise elements below body. An element holding all of
// the body's text is the wrapper Readability chose and stays.
func removeInnerNoise(body *goquery.Selection) {
	total := utf8.RuneCountInString(plainText(body.Text()))
	body.Find("[class], [id]").Each(func(_ int, sel *goquery.Selection) {
		if !isNoise(sel) {
			return
		}
		if utf8.RuneCountInString(plainText(sel.Text())) >= total {
			return
		}
		sel.Remove()
	})
}

// paragraphFallback concatenates every <p> left in the document.
func (s *Sanitizer) paragraphFallback(doc *goquery.Document) (*Document, bool) {
	var (
		htmlParts []string
		textParts []string
	)
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		cleanTree(p.Get(0))
		if t := plainText(p.Text()); t != "" {
			textParts = append(textParts, t)
		}
		if h, err := goquery.OuterHtml(p); err == nil {
			htmlParts = append(htmlParts, h)
		}
	})

	text := strings.Join(textParts, " ")
	n := utf8.RuneCountInString(text)
	if n < s.minTextLength {
		return nil, false
	}
	return &Document{HTML: strings.Join(htmlParts, ""), TextLength: n}, true
}

// removeNoise drops every element whose class or id contains a noise pattern.
func removeNoise(doc *goquery.Document) {
	doc.Find("[class], [id]").Each(func(_ int, sel *goquery.Selection) {
		if isNoise(sel) {
			sel.Remove()
		}
	})
}

func isNoise(sel *goquery.Selection) bool {
	class, _ := sel.Attr("class")
	id, _ := sel.Attr("id")
	return containsAny(strings.ToLower(class), noisePatterns) || containsAny(strings.ToLower(id), noisePatterns)
}

// findContainer picks the primary content element, most specific first.
func findContainer(doc *goquery.Document) *goquery.Selection {
	if sel := doc.Find("article").First(); sel.Length() > 0 {
		return sel
	}
	byClass := doc.Find("[class]").FilterFunction(func(_ int, sel *goquery.Selection) bool {
		class, _ := sel.Attr("class")
		return containsAny(strings.ToLower(class), articleBodyClasses)
	}).First()
	if byClass.Length() > 0 {
		return byClass
	}
	if sel := doc.Find("main").First(); sel.Length() > 0 {
		return sel
	}
	contentDiv := doc.Find("div[class]").FilterFunction(func(_ int, sel *goquery.Selection) bool {
		class, _ := sel.Attr("class")
		return strings.Contains(strings.ToLower(class), "content")
	}).First()
	if contentDiv.Length() > 0 {
		return contentDiv
	}
	if sel := doc.Find("body").First(); sel.Length() > 0 {
		return sel
	}
	return doc.Selection
}

// cleanTree sanitizes root and its descendants in place. Elements outside
// the allow-list are unwrapped so their text survives.
func cleanTree(root *html.Node) {
	var elems []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			elems = append(elems, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	for _, n := range elems {
		if !keepTags[n.Data] {
			if n != root && n.Parent != nil {
				unwrap(n)
			}
			continue
		}
		cleanAttrs(n)
	}
}

func cleanAttrs(n *html.Node) {
	allowed := keepAttrs[n.Data]
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		if a.Namespace != "" || !allowed[key] {
			continue
		}
		if urlAttrs[key] && isScriptURL(a.Val) {
			continue
		}
		kept = append(kept, html.Attribute{Key: key, Val: a.Val})
	}
	n.Attr = kept

	switch n.Data {
	case "a":
		if hasAttr(n, "href") {
			setAttr(n, "target", "_blank")
			setAttr(n, "rel", "noopener noreferrer")
		}
	case "img":
		setAttr(n, "loading", "lazy")
		setAttr(n, "referrerpolicy", "no-referrer")
	}
}

// unwrap replaces n with its children.
func unwrap(n *html.Node) {
	parent := n.Parent
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
		c = next
	}
	parent.RemoveChild(n)
}

// render returns the container markup. A kept container is rendered with its
// own tag; body or document containers contribute only their contents.
func render(sel *goquery.Selection) string {
	n := sel.Get(0)
	if n.Type == html.ElementNode && keepTags[n.Data] {
		if h, err := goquery.OuterHtml(sel); err == nil {
			return strings.TrimSpace(h)
		}
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return strings.TrimSpace(b.String())
}

func plainText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsAny(s string, patterns []string) bool {
	if s == "" {
		return false
	}
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func isScriptURL(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:") || strings.HasPrefix(v, "data:text/html")
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key && a.Val != "" {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
