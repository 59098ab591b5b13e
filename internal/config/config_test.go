package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratwatch/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.EnrichBatchSize)
	assert.Equal(t, 0.85, cfg.DedupThreshold)
	assert.Equal(t, 72, cfg.DedupLookbackHours)
	assert.Equal(t, 90, cfg.RetentionDays)
	assert.Equal(t, 50, cfg.FeedEntryCap)
	assert.Equal(t, 10000, cfg.BodyCharCap)
	assert.InDelta(t, 1.0, cfg.WeightGeo+cfg.WeightMilitary+cfg.WeightDiplomatic+cfg.WeightEconomic, 1e-9)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsBadWeights(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("WEIGHT_GEO", "0.9")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights must sum to 1.0")
}

func TestLoadSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	doc := `sources:
  - name: Test Feed
    url: https://example.com
    feed_url: https://example.com/rss
    type: feed
    category: international
    reliability: 8
  - name: GDELT
    url: https://api.gdeltproject.org/api/v2/doc/doc
    type: api
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, "Test Feed", sources[0].Name)
	assert.Equal(t, domain.SourceTypeFeed, sources[0].Type)
	assert.Equal(t, 8, sources[0].ReliabilityScore)
	assert.True(t, sources[0].Active)
	assert.Equal(t, 60, sources[0].FetchIntervalMinutes)
	assert.Equal(t, domain.SourceTypeAPI, sources[1].Type)
	assert.Equal(t, 5, sources[1].ReliabilityScore)
}

func TestLoadSourcesRejectsMissingName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources:\n  - url: https://example.com\n"), 0o644))

	_, err := LoadSources(path)
	assert.Error(t, err)
}
