package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"stratwatch/internal/domain"
	"stratwatch/internal/logger"
)

// Strategic event themes queried against the global events index.
var gdeltThemes = []string{
	"MILITARY",
	"TERROR",
	"WMD",
	"ARMEDCONFLICT",
	"DIPLOMACY",
	"DEFENSE",
	"INSURGENCY",
}

const (
	gdeltTimespan   = "24h"
	gdeltMaxRecords = 20
	gdeltTimeLayout = "20060102T150405Z"
)

type gdeltResponse struct {
	Articles []struct {
		URL         string `json:"url"`
		Title       string `json:"title"`
		SeenDate    string `json:"seendate"`
		Domain      string `json:"domain"`
		SocialImage string `json:"socialimage"`
		Language    string `json:"language"`
	} `json:"articles"`
}

// fetchGDELT issues one query per theme and deduplicates by URL within the
// call. A single failing theme query is logged and skipped.
func (f *Fetcher) fetchGDELT(ctx context.Context, src domain.Source) ([]domain.Candidate, error) {
	seen := make(map[string]bool)
	var candidates []domain.Candidate
	failures := 0

	for _, theme := range gdeltThemes {
		query := url.Values{}
		query.Set("query", fmt.Sprintf("theme:%s sourcelang:english", theme))
		query.Set("mode", "artlist")
		query.Set("format", "json")
		query.Set("timespan", gdeltTimespan)
		query.Set("maxrecords", fmt.Sprintf("%d", gdeltMaxRecords))

		resp, err := f.get(ctx, f.opts.GDELTBaseURL+"?"+query.Encode())
		if err != nil {
			logger.Warn("gdelt theme query failed", "theme", theme, "error", err)
			failures++
			continue
		}

		var parsed gdeltResponse
		err = json.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if err != nil {
			logger.Warn("gdelt response parse failed", "theme", theme, "error", err)
			failures++
			continue
		}

		for _, a := range parsed.Articles {
			if a.URL == "" || a.Title == "" || seen[a.URL] {
				continue
			}
			seen[a.URL] = true

			var published *time.Time
			if ts, err := time.Parse(gdeltTimeLayout, a.SeenDate); err == nil {
				published = &ts
			}

			candidates = append(candidates, domain.Candidate{
				Title:       a.Title,
				URL:         a.URL,
				PublishedAt: published,
				Author:      a.Domain,
				ImageURL:    a.SocialImage,
			})
		}
	}

	if failures == len(gdeltThemes) {
		return nil, fmt.Errorf("all %d gdelt theme queries failed", failures)
	}

	logger.Debug("gdelt fetched", "candidates", len(candidates))
	return candidates, nil
}
