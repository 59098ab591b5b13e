package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"stratwatch/internal/domain"
	"stratwatch/internal/logger"
	"stratwatch/internal/retry"
)

const UserAgent = "stratwatch/1.0 (+news aggregation; contact: ops)"

// How many empty-body API candidates per source get a page-extraction
// backfill attempt. Keeps one bad source from hammering publisher sites.
const pageBackfillCap = 5

// Options configures a Fetcher. Base URLs are overridable for tests.
type Options struct {
	NewsAPIKey        string
	SocialBearerToken string
	EntryCap          int
	BodyCap           int
	Timeout           time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration

	GDELTBaseURL   string
	NewsAPIBaseURL string
	SocialBaseURL  string
}

// Fetcher retrieves raw candidates from a configured source, dispatching
// on its fetch mechanism.
type Fetcher struct {
	client     *http.Client
	feedParser *gofeed.Parser
	opts       Options
	retryCfg   retry.RetryConfig
}

func New(opts Options) *Fetcher {
	if opts.EntryCap <= 0 {
		opts.EntryCap = 50
	}
	if opts.BodyCap <= 0 {
		opts.BodyCap = 10000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if opts.GDELTBaseURL == "" {
		opts.GDELTBaseURL = "https://api.gdeltproject.org/api/v2/doc/doc"
	}
	if opts.NewsAPIBaseURL == "" {
		opts.NewsAPIBaseURL = "https://newsapi.org/v2/everything"
	}
	if opts.SocialBaseURL == "" {
		opts.SocialBaseURL = "https://api.twitter.com/2"
	}

	parser := gofeed.NewParser()
	parser.UserAgent = UserAgent

	return &Fetcher{
		client:     &http.Client{Timeout: opts.Timeout},
		feedParser: parser,
		opts:       opts,
		retryCfg: retry.RetryConfig{
			MaxAttempts: opts.RetryAttempts,
			Delay:       opts.RetryDelay,
			Backoff:     true,
		},
	}
}

// Fetch returns candidates for one source. Mechanism-specific failures are
// returned to the caller, which records them as fetch status; they never
// abort other sources.
func (f *Fetcher) Fetch(ctx context.Context, src domain.Source) ([]domain.Candidate, error) {
	switch src.Type {
	case domain.SourceTypeFeed:
		return f.fetchFeed(ctx, src)
	case domain.SourceTypeAPI:
		candidates, err := f.fetchAPI(ctx, src)
		if err != nil {
			return nil, err
		}
		f.backfillBodies(ctx, candidates)
		return candidates, nil
	case domain.SourceTypeScrape:
		logger.Warn("scrape sources are not collected automatically", "source", src.Name)
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown source type %q for %s", src.Type, src.Name)
	}
}

func (f *Fetcher) fetchAPI(ctx context.Context, src domain.Source) ([]domain.Candidate, error) {
	switch {
	case src.Name == "GDELT":
		return f.fetchGDELT(ctx, src)
	case src.Name == "NewsAPI":
		return f.fetchNewsAPI(ctx, src)
	case strings.HasPrefix(src.Name, "Social: @"):
		handle := strings.TrimPrefix(src.Name, "Social: @")
		return f.fetchSocial(ctx, src, handle)
	default:
		return nil, fmt.Errorf("no API handler for source %q", src.Name)
	}
}

// backfillBodies fills empty candidate bodies from the article page itself.
// Best-effort: extraction failures are logged and the candidate keeps its
// empty body.
func (f *Fetcher) backfillBodies(ctx context.Context, candidates []domain.Candidate) {
	attempted := 0
	for i := range candidates {
		if candidates[i].Body != "" || candidates[i].URL == "" {
			continue
		}
		if attempted >= pageBackfillCap {
			break
		}
		attempted++

		content, err := f.ExtractPageContent(ctx, candidates[i].URL)
		if err != nil {
			logger.Debug("page extraction failed", "url", candidates[i].URL, "error", err)
			continue
		}
		candidates[i].Body = content
	}
}

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	var resp *http.Response
	err := retry.WithRetry(ctx, f.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", UserAgent)

		r, err := f.client.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode != http.StatusOK {
			r.Body.Close()
			return fmt.Errorf("unexpected status %d", r.StatusCode)
		}
		resp = r
		return nil
	})
	return resp, err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
