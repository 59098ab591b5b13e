package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selector cascade for locating the main article body, most specific first.
var contentSelectors = []string{
	"article p",
	".article-body p",
	".article-content p",
	".story-content p",
	".post-content p",
	".entry-content p",
	".content p",
	"main p",
	"p",
}

var junkIndicators = []string{
	"cookie", "subscribe", "newsletter", "advertisement", "sign up",
	"read more", "click here", "follow us", "share this", "download the app",
	"terms of service", "privacy policy",
}

// ExtractPageContent fetches an article page and extracts its main text.
// Used as a best-effort body backfill for API candidates that arrive with
// no content of their own.
func (f *Fetcher) ExtractPageContent(ctx context.Context, pageURL string) (string, error) {
	resp, err := f.get(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error parsing HTML: %w", err)
	}

	var paragraphs []string
	for _, selector := range contentSelectors {
		var found []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 20 && !isJunkLine(text) {
				found = append(found, text)
			}
		})
		if len(found) >= 3 {
			paragraphs = found
			break
		}
		if len(found) > len(paragraphs) {
			paragraphs = found
		}
	}

	if len(paragraphs) == 0 {
		return "", fmt.Errorf("no article content found")
	}

	content := strings.Join(paragraphs, "\n\n")
	return truncate(content, f.opts.BodyCap), nil
}

func isJunkLine(line string) bool {
	lower := strings.ToLower(line)
	for _, indicator := range junkIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
