package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"stratwatch/internal/domain"
)

// SourceSeed is the YAML shape of one entry in configs/sources.yaml.
type SourceSeed struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	FeedURL     string `yaml:"feed_url"`
	Type        string `yaml:"type"`
	Category    string `yaml:"category"`
	Country     string `yaml:"country"`
	Language    string `yaml:"language"`
	Description string `yaml:"description"`
	Reliability int    `yaml:"reliability"`
	Bias        string `yaml:"bias"`
	IntervalMin int    `yaml:"fetch_interval_minutes"`
}

type sourcesFile struct {
	Sources []SourceSeed `yaml:"sources"`
}

// LoadSources reads the seed source catalogue from a YAML file.
func LoadSources(path string) ([]domain.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var file sourcesFile
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse sources config: %w", err)
	}

	sources := make([]domain.Source, 0, len(file.Sources))
	for _, s := range file.Sources {
		if s.Name == "" || s.URL == "" {
			return nil, fmt.Errorf("source entry missing name or url")
		}
		interval := s.IntervalMin
		if interval <= 0 {
			interval = 60
		}
		reliability := s.Reliability
		if reliability <= 0 {
			reliability = 5
		}
		sources = append(sources, domain.Source{
			Name:                 s.Name,
			URL:                  s.URL,
			FeedURL:              s.FeedURL,
			Type:                 domain.SourceType(s.Type),
			Category:             s.Category,
			Country:              s.Country,
			Language:             s.Language,
			Description:          s.Description,
			ReliabilityScore:     reliability,
			BiasRating:           s.Bias,
			Active:               true,
			FetchIntervalMinutes: interval,
		})
	}
	return sources, nil
}
