// Package imagecache downloads article preview images into a local directory
// tree keyed by source slug and a hash of the image URL.
package imagecache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"news-archiver/internal/infra/httpclient"
	"news-archiver/internal/observability/metrics"
)

const (
	// DefaultTimeout bounds an image download.
	DefaultTimeout = 15 * time.Second

	// MinImageBytes rejects tracking pixels and error placeholders.
	MinImageBytes = 500

	userAgent = "Mozilla/5.0 (compatible; NewsAggregator/1.0)"
)

var allowedExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true,
}

// Cache stores images under Dir/<slug>/<hash><ext>.
type Cache struct {
	dir     string
	client  httpclient.Fetcher
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Cache rooted at dir.
func New(dir string, client httpclient.Fetcher) *Cache {
	return &Cache{
		dir:     dir,
		client:  client,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

// FileName returns the cache file name for imageURL: the first 12 hex digits
// of its MD5 followed by a normalized extension.
func FileName(imageURL string) string {
	sum := md5.Sum([]byte(imageURL)) // #nosec G401 -- content addressing, not security
	return hex.EncodeToString(sum[:])[:12] + extension(imageURL)
}

func extension(imageURL string) string {
	p := imageURL
	if u, err := url.Parse(imageURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if len(ext) > 5 {
		ext = ext[:5]
	}
	if !allowedExts[ext] {
		return ".jpg"
	}
	return ext
}

// Store ensures imageURL is cached for slug and returns the relative path
// "<slug>/<file>". An empty string means the image could not be cached.
// Already cached images are not downloaded again.
func (c *Cache) Store(ctx context.Context, slug, imageURL string) string {
	if !strings.HasPrefix(imageURL, "http") {
		return ""
	}
	if !validSlug(slug) {
		c.logger.Warn("image not cached: slug is not a single path segment", slog.String("slug", slug))
		return ""
	}

	name := FileName(imageURL)
	rel := slug + "/" + name
	dest := filepath.Join(c.dir, slug, name)

	if _, err := os.Stat(dest); err == nil {
		metrics.RecordImageCache("hit")
		return rel
	}

	if err := c.download(ctx, imageURL, dest); err != nil {
		metrics.RecordImageCache("failed")
		c.logger.Debug("image download failed",
			slog.String("url", imageURL),
			slog.Any("error", err))
		return ""
	}

	metrics.RecordImageCache("stored")
	return rel
}

func validSlug(slug string) bool {
	return slug != "" && slug != "." && slug != ".." && !strings.ContainsAny(slug, `/\`)
}

func (c *Cache) download(ctx context.Context, imageURL, dest string) error {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	resp, err := c.client.Fetch(ctx, imageURL, h, c.timeout)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if len(resp.Body) <= MinImageBytes {
		return fmt.Errorf("image too small: %d bytes", len(resp.Body))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}

	// The rename publishes the file only once it is complete.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".img-*")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	if _, err := tmp.Write(resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close image: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename image: %w", err)
	}
	return nil
}
