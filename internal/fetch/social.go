package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"stratwatch/internal/domain"
	"stratwatch/internal/logger"
	"stratwatch/internal/retry"
)

const (
	socialLookback       = 24 * time.Hour
	socialEngagementMin  = 10
	socialMaxResults     = 50
	socialTitleRuneLimit = 120
)

type socialUserResponse struct {
	Data struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"data"`
}

type socialTimelineResponse struct {
	Data []struct {
		ID            string `json:"id"`
		Text          string `json:"text"`
		CreatedAt     string `json:"created_at"`
		PublicMetrics struct {
			LikeCount    int `json:"like_count"`
			RetweetCount int `json:"retweet_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

// fetchSocial resolves the handle to an account id, pulls recent posts over
// the lookback window and keeps only those above the engagement floor.
// Without a bearer token the source is skipped cleanly.
func (f *Fetcher) fetchSocial(ctx context.Context, src domain.Source, handle string) ([]domain.Candidate, error) {
	if f.opts.SocialBearerToken == "" {
		logger.Info("social bearer token not configured, skipping source", "source", src.Name)
		return nil, nil
	}

	var user socialUserResponse
	err := f.getJSONAuthed(ctx, f.opts.SocialBaseURL+"/users/by/username/"+url.PathEscape(handle), &user)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve handle @%s: %w", handle, err)
	}
	if user.Data.ID == "" {
		return nil, fmt.Errorf("handle @%s not found", handle)
	}

	query := url.Values{}
	query.Set("start_time", time.Now().Add(-socialLookback).UTC().Format(time.RFC3339))
	query.Set("max_results", fmt.Sprintf("%d", socialMaxResults))
	query.Set("tweet.fields", "created_at,public_metrics")

	var timeline socialTimelineResponse
	err = f.getJSONAuthed(ctx, f.opts.SocialBaseURL+"/users/"+user.Data.ID+"/tweets?"+query.Encode(), &timeline)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch timeline for @%s: %w", handle, err)
	}

	var candidates []domain.Candidate
	for _, post := range timeline.Data {
		if post.PublicMetrics.LikeCount < socialEngagementMin {
			continue
		}

		var published *time.Time
		if ts, err := time.Parse(time.RFC3339, post.CreatedAt); err == nil {
			published = &ts
		}

		candidates = append(candidates, domain.Candidate{
			Title:       postTitle(post.Text),
			URL:         fmt.Sprintf("https://twitter.com/%s/status/%s", handle, post.ID),
			Body:        post.Text,
			PublishedAt: published,
			Author:      "@" + handle,
		})
	}

	logger.Debug("social fetched", "handle", handle, "candidates", len(candidates))
	return candidates, nil
}

func (f *Fetcher) getJSONAuthed(ctx context.Context, endpoint string, out interface{}) error {
	return retry.WithRetry(ctx, f.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", UserAgent)
		req.Header.Set("Authorization", "Bearer "+f.opts.SocialBearerToken)

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

// postTitle derives a headline from post text.
func postTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= socialTitleRuneLimit {
		return text
	}
	return string(runes[:socialTitleRuneLimit]) + "..."
}
