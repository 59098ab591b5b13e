package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"stratwatch/internal/domain"
	"stratwatch/internal/logger"
)

func (f *Fetcher) fetchFeed(ctx context.Context, src domain.Source) ([]domain.Candidate, error) {
	feedURL := src.FeedURL
	if feedURL == "" {
		feedURL = src.URL
	}

	feed, err := f.feedParser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	items := feed.Items
	if len(items) > f.opts.EntryCap {
		items = items[:f.opts.EntryCap]
	}

	candidates := make([]domain.Candidate, 0, len(items))
	for _, item := range items {
		if item.Link == "" || item.Title == "" {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			Title:       strings.TrimSpace(item.Title),
			URL:         item.Link,
			Body:        truncate(itemBody(item), f.opts.BodyCap),
			PublishedAt: item.PublishedParsed,
			Author:      itemAuthor(item),
			ImageURL:    itemImage(item),
		})
	}

	logger.Debug("feed fetched", "source", src.Name, "entries", len(candidates))
	return candidates, nil
}

// itemBody picks the richest available content field and strips markup.
func itemBody(item *gofeed.Item) string {
	raw := item.Content
	if raw == "" {
		raw = item.Description
	}
	return stripHTML(raw)
}

func itemAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		return item.Authors[0].Name
	}
	return ""
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil {
		return item.Image.URL
	}
	return ""
}

// stripHTML reduces markup to plain text and collapses whitespace.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "<") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
