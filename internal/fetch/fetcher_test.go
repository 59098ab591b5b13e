package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratwatch/internal/domain"
	"stratwatch/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

const rssDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Test Feed</title>
<item>
  <title>Army conducts exercise near border</title>
  <link>https://example.com/a1</link>
  <description><![CDATA[<p>Troops moved to the <b>frontier</b> overnight.</p>]]></description>
  <pubDate>Mon, 24 Aug 2026 10:00:00 GMT</pubDate>
</item>
<item>
  <title>Second story</title>
  <link>https://example.com/a2</link>
  <description>Short body.</description>
</item>
<item>
  <title>Missing link entry</title>
  <description>Should be dropped.</description>
</item>
</channel>
</rss>`

func testFetcher(overrides Options) *Fetcher {
	if overrides.Timeout == 0 {
		overrides.Timeout = 5 * time.Second
	}
	if overrides.RetryAttempts == 0 {
		overrides.RetryAttempts = 1
	}
	overrides.RetryDelay = time.Millisecond
	return New(overrides)
}

func TestFetchFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssDoc)
	}))
	defer srv.Close()

	f := testFetcher(Options{})
	src := domain.Source{Name: "Test Feed", Type: domain.SourceTypeFeed, FeedURL: srv.URL}

	candidates, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "Army conducts exercise near border", candidates[0].Title)
	assert.Equal(t, "https://example.com/a1", candidates[0].URL)
	assert.Equal(t, "Troops moved to the frontier overnight.", candidates[0].Body)
	require.NotNil(t, candidates[0].PublishedAt)
}

func TestFetchFeedEntryCap(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>Big</title>`)
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&sb, `<item><title>Story %d</title><link>https://example.com/%d</link></item>`, i, i)
	}
	sb.WriteString(`</channel></rss>`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sb.String())
	}))
	defer srv.Close()

	f := testFetcher(Options{EntryCap: 50})
	candidates, err := f.Fetch(context.Background(), domain.Source{Type: domain.SourceTypeFeed, FeedURL: srv.URL})
	require.NoError(t, err)
	assert.Len(t, candidates, 50)
}

func TestFetchGDELTDedupsWithinCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Same article returned for every theme query.
		fmt.Fprint(w, `{"articles":[{"url":"https://example.com/g1","title":"Clashes reported","seendate":"20260824T100000Z","domain":"example.com"}]}`)
	}))
	defer srv.Close()

	f := testFetcher(Options{GDELTBaseURL: srv.URL})
	candidates, err := f.fetchGDELT(context.Background(), domain.Source{Name: "GDELT"})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Clashes reported", candidates[0].Title)
	require.NotNil(t, candidates[0].PublishedAt)
	assert.Equal(t, 2026, candidates[0].PublishedAt.Year())
}

func TestFetchNewsAPISkippedWithoutKey(t *testing.T) {
	f := testFetcher(Options{})
	candidates, err := f.fetchNewsAPI(context.Background(), domain.Source{Name: "NewsAPI"})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFetchNewsAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok","articles":[{"source":{"name":"Wire"},"title":"Border talks resume","description":"Details inside.","url":"https://example.com/n1","publishedAt":"2026-08-24T10:00:00Z"}]}`)
	}))
	defer srv.Close()

	f := testFetcher(Options{NewsAPIKey: "test-key", NewsAPIBaseURL: srv.URL})
	candidates, err := f.fetchNewsAPI(context.Background(), domain.Source{Name: "NewsAPI"})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Border talks resume", candidates[0].Title)
	assert.Equal(t, "Details inside.", candidates[0].Body)
}

func TestFetchSocialSkippedWithoutToken(t *testing.T) {
	f := testFetcher(Options{})
	candidates, err := f.fetchSocial(context.Background(), domain.Source{Name: "Social: @someone"}, "someone")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFetchSocialEngagementFloor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/users/by/username/"):
			fmt.Fprint(w, `{"data":{"id":"42","username":"someone"}}`)
		case strings.Contains(r.URL.Path, "/users/42/tweets"):
			fmt.Fprint(w, `{"data":[
				{"id":"100","text":"Major defence announcement today","created_at":"2026-08-24T09:00:00Z","public_metrics":{"like_count":50}},
				{"id":"101","text":"Low engagement post","created_at":"2026-08-24T09:05:00Z","public_metrics":{"like_count":2}}
			]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := testFetcher(Options{SocialBearerToken: "token", SocialBaseURL: srv.URL})
	candidates, err := f.fetchSocial(context.Background(), domain.Source{Name: "Social: @someone"}, "someone")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "https://twitter.com/someone/status/100", candidates[0].URL)
	assert.Equal(t, "@someone", candidates[0].Author)
}

func TestFetchScrapeYieldsNothing(t *testing.T) {
	f := testFetcher(Options{})
	candidates, err := f.Fetch(context.Background(), domain.Source{Name: "Manual", Type: domain.SourceTypeScrape})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFetchUnknownTypeFails(t *testing.T) {
	f := testFetcher(Options{})
	_, err := f.Fetch(context.Background(), domain.Source{Name: "Odd", Type: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestExtractPageContent(t *testing.T) {
	page := `<html><body><article>
		<p>First substantial paragraph of the story being told here.</p>
		<p>Second substantial paragraph with additional detail inside.</p>
		<p>Third substantial paragraph wrapping the story up nicely.</p>
		<p>Subscribe to our newsletter for more!</p>
	</article></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	f := testFetcher(Options{})
	content, err := f.ExtractPageContent(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, content, "First substantial paragraph")
	assert.NotContains(t, content, "newsletter")
}
