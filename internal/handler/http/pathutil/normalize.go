package pathutil

import (
	"regexp"
	"strings"
)

// OtherPath is the label used for requests that match no known route.
const OtherPath = "/other"

type pathPattern struct {
	pattern  *regexp.Regexp
	template string
}

var pathPatterns = []pathPattern{
	{pattern: regexp.MustCompile(`^/articles/\d+$`), template: "/articles/:id"},
	{pattern: regexp.MustCompile(`^/images/[^/]+/[^/]+$`), template: "/images/:source/:file"},
}

var staticPaths = map[string]bool{
	"/":                true,
	"/articles":        true,
	"/articles/search": true,
	"/sources":         true,
	"/categories":      true,
	"/stats":           true,
	"/health":          true,
	"/health/ready":    true,
	"/health/live":     true,
	"/metrics":         true,
}

// NormalizePath maps a request path to a bounded set of metric labels.
// Static routes are returned unchanged, routes with IDs or file names become
// templates, and anything else collapses to OtherPath.
//
// Examples:
//
//	NormalizePath("/articles/123")           // "/articles/:id"
//	NormalizePath("/articles/search")        // "/articles/search"
//	NormalizePath("/images/npr/3f2a.jpg")    // "/images/:source/:file"
//	NormalizePath("/wp-login.php")           // "/other"
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	if staticPaths[path] {
		return path
	}
	for _, p := range pathPatterns {
		if p.pattern.MatchString(path) {
			return p.template
		}
	}
	return OtherPath
}
