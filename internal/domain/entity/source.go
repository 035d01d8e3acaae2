package entity

import (
	"fmt"
	"regexp"
	"strings"
)

// slugPattern keeps slugs usable as a single path segment under the images directory.
var slugPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Source represents a configured news site.
// Sources come from external configuration and are immutable during a polling pass.
type Source struct {
	Slug           string   `yaml:"slug" json:"slug"`
	Name           string   `yaml:"name" json:"name"`
	Category       string   `yaml:"category" json:"category"`
	BaseURL        string   `yaml:"base_url" json:"base_url"`
	FeedURLs       []string `yaml:"feeds" json:"feeds"`
	DiscoveryHints []string `yaml:"discovery_hints" json:"discovery_hints"`

	// BypassEnabled attempts full-text retrieval despite access restrictions.
	BypassEnabled bool `yaml:"bypass" json:"bypass"`
	// PreferHeavyRetrieval tries the headless browser before any other strategy.
	PreferHeavyRetrieval bool `yaml:"prefer_heavy" json:"prefer_heavy"`

	// Enabled defaults to true when omitted from the sources file.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// IsEnabled reports whether the source should be polled.
func (s *Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// HasDiscovery reports whether the source has any feed URL or discovery hint configured.
// Sources without either are skipped by the ingest coordinator.
func (s *Source) HasDiscovery() bool {
	return len(s.FeedURLs) > 0 || len(s.DiscoveryHints) > 0
}

// Validate validates the Source entity fields.
func (s *Source) Validate() error {
	if strings.TrimSpace(s.Slug) == "" {
		return invalid("slug", "slug is required")
	}
	if !slugPattern.MatchString(s.Slug) {
		return invalid("slug", "slug %q must be lowercase letters, digits, '-' or '_'", s.Slug)
	}
	if strings.TrimSpace(s.Name) == "" {
		return invalid("name", "name is required")
	}
	if s.BaseURL != "" {
		if err := ValidateURL(s.BaseURL); err != nil {
			return fmt.Errorf("source %s: base_url: %w", s.Slug, err)
		}
	}
	for i, u := range s.FeedURLs {
		if err := ValidateURL(u); err != nil {
			return fmt.Errorf("source %s: feeds[%d]: %w", s.Slug, i, err)
		}
	}
	return nil
}
