package sanitizer

// junkSelector matches elements removed with their whole subtree.
const junkSelector = "script, style, nav, footer, aside, header, noscript, form, button, input, select, textarea"

// noisePatterns are matched as case-insensitive substrings of class and id.
var noisePatterns = []string{
	"ad", "advertisement", "promo", "sponsor",
	"social", "share", "sharing",
	"newsletter", "signup", "subscribe",
	"paywall", "premium", "meter",
	"related", "recommended", "trending",
	"nav", "navigation", "menu", "sidebar",
	"comment", "disqus",
	"cookie", "gdpr", "consent",
	"popup", "modal", "overlay",
}

// articleBodyClasses are class fragments used by common CMS article bodies.
var articleBodyClasses = []string{
	"article-body", "story-body", "post-content", "entry-content", "article-content", "gnt_ar_b",
}

// keepTags lists the elements that survive; anything else is unwrapped.
var keepTags = map[string]bool{
	"p": true, "br": true,
	"strong": true, "b": true, "em": true, "i": true, "u": true, "s": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true,
	"blockquote": true, "figure": true, "figcaption": true,
	"a": true, "img": true,
	"iframe": true, "video": true, "source": true,
	"table": true, "thead": true, "tbody": true, "tr": true, "th": true, "td": true,
	"div": true, "span": true,
}

// keepAttrs lists the attributes kept per element. Unlisted elements keep none.
var keepAttrs = map[string]map[string]bool{
	"a":      set("href", "title"),
	"img":    set("src", "alt", "title", "width", "height"),
	"iframe": set("src", "width", "height", "allowfullscreen", "frameborder", "title"),
	"video":  set("src", "controls", "width", "height", "poster"),
	"source": set("src", "type"),
	"td":     set("colspan", "rowspan"),
	"th":     set("colspan", "rowspan"),
}

// urlAttrs must not carry script URLs.
var urlAttrs = set("href", "src", "poster")

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
