package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"news-archiver/internal/domain/entity"
)

// Sources file validation errors.
var (
	ErrNoSources        = errors.New("at least one source is required")
	ErrDuplicateSlug    = errors.New("duplicate source slug")
	ErrUnknownSource    = errors.New("unknown source slug")
	ErrNoEnabledSources = errors.New("no enabled sources")
)

// SourcesFile is the on-disk layout of the sources configuration.
type SourcesFile struct {
	Sources []entity.Source `yaml:"sources"`
}

// LoadSources loads and validates the source list from a YAML file.
// The path parameter is expected to come from a trusted source (environment or hardcoded default).
func LoadSources(path string) ([]entity.Source, error) {
	// #nosec G304 -- path is from trusted configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}
	return ParseSources(data)
}

// ParseSources decodes and validates a YAML sources document.
// Unknown keys are rejected so a misspelled option does not silently fall back to its default.
func ParseSources(data []byte) ([]entity.Source, error) {
	var file SourcesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(file.Sources) == 0 {
		return nil, ErrNoSources
	}

	seen := make(map[string]int, len(file.Sources))
	for i := range file.Sources {
		src := &file.Sources[i]
		if err := src.Validate(); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if prev, ok := seen[src.Slug]; ok {
			return nil, fmt.Errorf("%w: %q at sources[%d] and sources[%d]", ErrDuplicateSlug, src.Slug, prev, i)
		}
		seen[src.Slug] = i
	}
	return file.Sources, nil
}

// SelectSources returns the sources a pass should poll.
// With only set, the named source is returned even when disabled; otherwise disabled sources are dropped.
func SelectSources(sources []entity.Source, only string) ([]entity.Source, error) {
	if only != "" {
		for _, src := range sources {
			if src.Slug == only {
				return []entity.Source{src}, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, only)
	}

	enabled := make([]entity.Source, 0, len(sources))
	for _, src := range sources {
		if src.IsEnabled() {
			enabled = append(enabled, src)
		}
	}
	if len(enabled) == 0 {
		return nil, ErrNoEnabledSources
	}
	return enabled, nil
}
