package domain

import "time"

// SourceType tags the fetch mechanism for a source.
type SourceType string

const (
	SourceTypeFeed   SourceType = "feed"
	SourceTypeAPI    SourceType = "api"
	SourceTypeScrape SourceType = "scrape"
)

// Source describes one configured news origin. Sources are created from seed
// config or by an admin and afterwards mutated only by fetch bookkeeping.
type Source struct {
	ID      int64
	Name    string
	URL     string
	FeedURL string

	Type     SourceType
	Category string

	Country          string
	Language         string
	Description      string
	ReliabilityScore int
	BiasRating       string

	Active               bool
	FetchIntervalMinutes int
	LastFetchedAt        *time.Time
	LastFetchStatus      string

	CreatedAt time.Time
	UpdatedAt time.Time
}
