package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSources is ingested when no other source list is configured.
var DefaultSources = []string{
	"https://en.wikipedia.org/wiki/Formula_One",
	"https://www.formula1.com/en/latest/article/the-beginners-guide-to-the-formula-1-weekend.5RFZzGXNhEi9AEuMXwo987",
	"https://www.formula1.com/en/racing/2023",
	"https://www.redbull.com/ie-en/f1-24-tips-guide",
}

// SourcesFile is the YAML document read from SOURCES_FILE:
//
//	sources:
//	  - https://en.wikipedia.org/wiki/Formula_One
//	  - https://www.formula1.com/en/racing/2023
type SourcesFile struct {
	Sources []string `yaml:"sources"`
}

// LoadSources reads and validates a sources file.
func LoadSources(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var f SourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sources file %s: %w", path, err)
	}

	var out []string
	for _, s := range f.Sources {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
			return nil, fmt.Errorf("invalid source %q in %s: must be an http(s) URL", s, path)
		}
		out = append(out, s)
	}
	return out, nil
}

// ResolveSources picks the ingestion URL list: explicit flags first, then
// SOURCES, then SOURCES_FILE, then DefaultSources.
func (c *Config) ResolveSources(flagSources []string) ([]string, error) {
	if len(flagSources) > 0 {
		return flagSources, nil
	}
	if len(c.Sources) > 0 {
		return c.Sources, nil
	}
	if c.SourcesFile != "" {
		sources, err := LoadSources(c.SourcesFile)
		if err != nil {
			return nil, err
		}
		if len(sources) > 0 {
			return sources, nil
		}
	}
	return DefaultSources, nil
}
