package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratwatch/internal/domain"
)

type fakeStore struct {
	byURL  map[string]*domain.Article
	recent []domain.Article
}

func (s *fakeStore) GetArticleByURL(_ context.Context, url string) (*domain.Article, error) {
	return s.byURL[url], nil
}

func (s *fakeStore) RecentArticles(_ context.Context, _ time.Time) ([]domain.Article, error) {
	return s.recent, nil
}

func (s *fakeStore) DeleteArticlesBefore(_ context.Context, _ time.Time) (int64, error) {
	return int64(len(s.recent)), nil
}

func (s *fakeStore) CountDuplicateTitleGroups(_ context.Context) (int, error) {
	return 0, nil
}

func TestNormalizeTitleIdempotent(t *testing.T) {
	titles := []string{
		"BREAKING: Update: Army moves to border!!",
		"  Prime Minister holds talks with Japan's leader  ",
		"watch: LIVE: missile test conducted",
		"plain title",
	}
	for _, title := range titles {
		once := NormalizeTitle(title)
		twice := NormalizeTitle(once)
		assert.Equal(t, once, twice, "normalize must be idempotent for %q", title)
	}
}

func TestNormalizeTitleStripsPrefixes(t *testing.T) {
	assert.Equal(t, "army moves to border", NormalizeTitle("BREAKING: Army moves to border!"))
	assert.Equal(t, "army moves to border", NormalizeTitle("Update: BREAKING: army   moves to border"))
}

func TestTitleSimilaritySymmetric(t *testing.T) {
	a := "PM meets Japanese counterpart"
	b := "Prime Minister holds talks with Japan's leader"
	assert.Equal(t, TitleSimilarity(a, b), TitleSimilarity(b, a))
}

func TestTitleSimilarityRewordedHeadlines(t *testing.T) {
	sim := TitleSimilarity(
		"PM meets Japanese counterpart",
		"Prime Minister holds talks with Japan's leader",
	)
	assert.GreaterOrEqual(t, sim, 0.85)
}

func TestTitleSimilarityDistinctStories(t *testing.T) {
	sim := TitleSimilarity(
		"China deploys troops near disputed border",
		"Parliament passes annual budget bill",
	)
	assert.Less(t, sim, 0.5)
}

func TestFindDuplicatesURLShortCircuit(t *testing.T) {
	stored := &domain.Article{ID: 1, Title: "Completely different title", URL: "https://example.com/a"}
	store := &fakeStore{
		byURL: map[string]*domain.Article{"https://example.com/a": stored},
		recent: []domain.Article{
			{ID: 2, Title: "Another similar headline entirely"},
			{ID: 3, Title: "Another similar headline entirely again"},
		},
	}
	d := New(store, 0.85, 72)

	dups, err := d.FindDuplicates(context.Background(), "Another similar headline entirely", "https://example.com/a")
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, int64(1), dups[0].ID)
}

func TestFindDuplicatesByTitle(t *testing.T) {
	store := &fakeStore{
		byURL: map[string]*domain.Article{},
		recent: []domain.Article{
			{ID: 1, Title: "PM meets Japanese counterpart"},
			{ID: 2, Title: "Cabinet approves infrastructure spending"},
		},
	}
	d := New(store, 0.85, 72)

	dups, err := d.FindDuplicates(context.Background(), "Prime Minister holds talks with Japan's leader", "https://example.com/new")
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, int64(1), dups[0].ID)
}

func TestBatchPoolSeenOrAdd(t *testing.T) {
	pool := NewBatchPool(0.85)

	assert.False(t, pool.SeenOrAdd("PM meets Japanese counterpart"))
	assert.True(t, pool.SeenOrAdd("Prime Minister holds talks with Japan's leader"))
	assert.False(t, pool.SeenOrAdd("Cabinet approves infrastructure spending"))
	assert.Equal(t, 2, pool.Len())
}

func TestBatchPoolConcurrent(t *testing.T) {
	pool := NewBatchPool(0.85)

	results := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		go func() {
			results <- pool.SeenOrAdd("Missile test conducted near eastern coast")
		}()
	}
	a, b := <-results, <-results

	// Exactly one goroutine wins the insert.
	assert.NotEqual(t, a, b)
}
