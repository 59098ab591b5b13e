package enrich

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratwatch/internal/cache"
	"stratwatch/internal/domain"
	"stratwatch/internal/llm"
	"stratwatch/internal/logger"
	"stratwatch/internal/score"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeStore struct {
	pending    []domain.Article
	enriched   []domain.Article
	failed     map[int64]string
	enrichErr  error
	pendingErr error
}

func newStore(pending ...domain.Article) *fakeStore {
	return &fakeStore{pending: pending, failed: map[int64]string{}}
}

func (s *fakeStore) PendingArticles(_ context.Context, limit int) ([]domain.Article, error) {
	if s.pendingErr != nil {
		return nil, s.pendingErr
	}
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *fakeStore) UpdateEnrichment(_ context.Context, a *domain.Article) error {
	if s.enrichErr != nil {
		return s.enrichErr
	}
	s.enriched = append(s.enriched, *a)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id int64, errText string) error {
	s.failed[id] = errText
	return nil
}

type fakeAnalyzer struct {
	available bool
	calls     int
	err       error
}

func (a *fakeAnalyzer) Available() bool { return a.available }

func (a *fakeAnalyzer) BulletSummary(_ context.Context, _, _ string) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return "• point one\n• point two", nil
}

func (a *fakeAnalyzer) StrategicSummary(_ context.Context, _, _ string) (domain.Summary, error) {
	a.calls++
	if a.err != nil {
		return domain.Summary{}, a.err
	}
	return domain.Summary{WhatHappened: "happened", WhyMatters: "matters"}, nil
}

func (a *fakeAnalyzer) ExtractEntities(_ context.Context, _, _ string) ([]domain.Entity, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return []domain.Entity{{Type: "country", Name: "India"}}, nil
}

func (a *fakeAnalyzer) Classify(_ context.Context, _, _ string) (domain.Classification, error) {
	a.calls++
	if a.err != nil {
		return domain.Classification{}, a.err
	}
	return domain.Classification{Region: "South Asia", Country: "India", Theme: "Border Security", Domain: "military"}, nil
}

func keywordScorer() Scorer {
	return llm.NewScorer(nil, score.NewKeywordScorer(score.DefaultWeights()), cache.New(), time.Hour)
}

func TestRunProcessesBatch(t *testing.T) {
	store := newStore(
		domain.Article{ID: 1, Title: "China deploys troops near LAC amid border tension"},
		domain.Article{ID: 2, Title: "Committee reviews annual procedures"},
	)
	o := New(store, keywordScorer(), &fakeAnalyzer{}, 10)

	err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, store.enriched, 2)

	high := store.enriched[0]
	assert.Equal(t, domain.RelevanceHigh, high.Scores.Level)
	assert.True(t, high.Scores.IsPriority)
	assert.Equal(t, "South Asia", high.Classification.Region)

	low := store.enriched[1]
	assert.Equal(t, domain.RelevanceLow, low.Scores.Level)
	assert.NotEmpty(t, low.Classification.Theme)
}

func TestRunBatchSizeBound(t *testing.T) {
	var pending []domain.Article
	for i := 1; i <= 100; i++ {
		pending = append(pending, domain.Article{ID: int64(i), Title: fmt.Sprintf("Committee note %d", i)})
	}
	store := newStore(pending...)
	o := New(store, keywordScorer(), nil, 10)

	err := o.Run(context.Background())
	require.NoError(t, err)

	// Exactly the batch is processed; the remaining 90 stay pending.
	assert.Len(t, store.enriched, 10)
	assert.Empty(t, store.failed)
}

func TestRunHighRelevanceInvokesAnalyzer(t *testing.T) {
	store := newStore(domain.Article{ID: 1, Title: "China deploys troops near LAC amid border tension"})
	analyzer := &fakeAnalyzer{available: true}
	o := New(store, keywordScorer(), analyzer, 10)

	err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, store.enriched, 1)

	a := store.enriched[0]
	assert.Equal(t, 4, analyzer.calls)
	assert.Equal(t, "• point one\n• point two", a.Summary.Bullets)
	assert.Equal(t, "happened", a.Summary.WhatHappened)
	require.Len(t, a.Entities, 1)
	assert.Equal(t, "India", a.Entities[0].Name)
}

func TestRunAnalyzerFailureIsBestEffort(t *testing.T) {
	store := newStore(domain.Article{ID: 1, Title: "China deploys troops near LAC amid border tension"})
	analyzer := &fakeAnalyzer{available: true, err: fmt.Errorf("model unavailable")}
	o := New(store, keywordScorer(), analyzer, 10)

	err := o.Run(context.Background())
	require.NoError(t, err)

	// Article still processed with rule-based enrichment.
	require.Len(t, store.enriched, 1)
	assert.Empty(t, store.failed)
	assert.Equal(t, "South Asia", store.enriched[0].Classification.Region)
}

func TestRunLowRelevanceSkipsAnalyzer(t *testing.T) {
	store := newStore(domain.Article{ID: 1, Title: "Committee reviews annual procedures"})
	analyzer := &fakeAnalyzer{available: true}
	o := New(store, keywordScorer(), analyzer, 10)

	err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, analyzer.calls)
}

func TestRunMarksFailedAndContinues(t *testing.T) {
	store := newStore(
		domain.Article{ID: 1, Title: "Committee note one"},
		domain.Article{ID: 2, Title: "Committee note two"},
	)
	store.enrichErr = fmt.Errorf("write failed")
	o := New(store, keywordScorer(), nil, 10)

	err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, store.failed, 2)
	assert.Contains(t, store.failed[1], "write failed")
}

func TestRunErrorTextTruncated(t *testing.T) {
	long := ""
	for i := 0; i < 60; i++ {
		long += "very long failure detail "
	}
	store := newStore(domain.Article{ID: 1, Title: "Committee note"})
	store.enrichErr = fmt.Errorf("%s", long)
	o := New(store, keywordScorer(), nil, 10)

	err := o.Run(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(store.failed[1]), maxErrorLen)
}

func TestRunStorageFailureIsRunFatal(t *testing.T) {
	store := newStore()
	store.pendingErr = fmt.Errorf("database unavailable")
	o := New(store, keywordScorer(), nil, 10)

	err := o.Run(context.Background())
	assert.Error(t, err)
}
