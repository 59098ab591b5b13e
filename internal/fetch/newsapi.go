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

// Keyword queries issued against the news search API, one GET per term.
var newsAPIQueries = []string{
	"india defence",
	"india china border",
	"india pakistan",
	"indian ocean security",
	"south asia geopolitics",
}

const newsAPIPageSize = 20

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Author      string `json:"author"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		URLToImage  string `json:"urlToImage"`
		PublishedAt string `json:"publishedAt"`
		Content     string `json:"content"`
	} `json:"articles"`
}

// fetchNewsAPI runs the configured keyword searches. Without an API key the
// source is skipped cleanly.
func (f *Fetcher) fetchNewsAPI(ctx context.Context, src domain.Source) ([]domain.Candidate, error) {
	if f.opts.NewsAPIKey == "" {
		logger.Info("news API key not configured, skipping source", "source", src.Name)
		return nil, nil
	}

	seen := make(map[string]bool)
	var candidates []domain.Candidate
	failures := 0

	for _, term := range newsAPIQueries {
		query := url.Values{}
		query.Set("q", term)
		query.Set("pageSize", fmt.Sprintf("%d", newsAPIPageSize))
		query.Set("sortBy", "publishedAt")
		query.Set("language", "en")
		query.Set("apiKey", f.opts.NewsAPIKey)

		resp, err := f.get(ctx, f.opts.NewsAPIBaseURL+"?"+query.Encode())
		if err != nil {
			logger.Warn("news API query failed", "query", term, "error", err)
			failures++
			continue
		}

		var parsed newsAPIResponse
		err = json.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if err != nil {
			logger.Warn("news API response parse failed", "query", term, "error", err)
			failures++
			continue
		}

		for _, a := range parsed.Articles {
			if a.URL == "" || a.Title == "" || seen[a.URL] {
				continue
			}
			seen[a.URL] = true

			body := a.Content
			if body == "" {
				body = a.Description
			}

			var published *time.Time
			if ts, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
				published = &ts
			}

			candidates = append(candidates, domain.Candidate{
				Title:       a.Title,
				URL:         a.URL,
				Body:        truncate(stripHTML(body), f.opts.BodyCap),
				PublishedAt: published,
				Author:      a.Author,
				ImageURL:    a.URLToImage,
			})
		}
	}

	if failures == len(newsAPIQueries) {
		return nil, fmt.Errorf("all %d news API queries failed", failures)
	}

	logger.Debug("news API fetched", "candidates", len(candidates))
	return candidates, nil
}
