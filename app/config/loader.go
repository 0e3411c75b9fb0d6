package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and validation of the feed definition file
type Loader struct {
	feedsFile string
}

// NewLoader creates a new feed definition loader
func NewLoader(feedsFile string) *Loader {
	return &Loader{feedsFile: feedsFile}
}

// Load reads and validates the YAML feed definition file
func (l *Loader) Load() (*Feeds, error) {
	data, err := os.ReadFile(l.feedsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var feeds Feeds
	if err := yaml.Unmarshal(data, &feeds); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := l.validate(&feeds); err != nil {
		return nil, fmt.Errorf("invalid feeds file %s: %w", l.feedsFile, err)
	}

	return &feeds, nil
}

// validate validates the feed definitions
func (l *Loader) validate(feeds *Feeds) error {
	if len(feeds.Dynamic) == 0 && len(feeds.Static) == 0 {
		return fmt.Errorf("no feeds defined")
	}

	seen := make(map[string]bool)
	for i, f := range feeds.Dynamic {
		if f.Key == "" {
			return fmt.Errorf("dynamic feed at index %d: key is required", i)
		}
		if f.URL == "" {
			return fmt.Errorf("dynamic feed %s: url is required", f.Key)
		}
		if seen[f.Key] {
			return fmt.Errorf("duplicate feed key: %s", f.Key)
		}
		seen[f.Key] = true
	}

	for i, f := range feeds.Static {
		if f.Key == "" {
			return fmt.Errorf("static feed at index %d: key is required", i)
		}
		if f.URL == "" {
			return fmt.Errorf("static feed %s: url is required", f.Key)
		}
		if f.Kind != KindGTFSZip && f.Kind != KindCSV {
			return fmt.Errorf("static feed %s: unknown kind %q", f.Key, f.Kind)
		}
		if seen[f.Key] {
			return fmt.Errorf("duplicate feed key: %s", f.Key)
		}
		seen[f.Key] = true
	}

	return nil
}
