package llm

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
	"stratwatch/internal/logger"
	"stratwatch/internal/score"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// fakeGenerator replays canned replies and records call counts.
type fakeGenerator struct {
	reply string
	err   error
	calls int
}

func (f *fakeGenerator) Generate(_ context.Context, _, _ string, _ float32, _ int32) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testScorer(gen generator, c *cache.Cache) *Scorer {
	client := newClient(gen, time.Millisecond, nil)
	return NewScorer(client, score.NewKeywordScorer(score.DefaultWeights()), c, time.Hour)
}

func TestScoreFallbackOnTransportError(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("connection refused")}
	s := testScorer(gen, nil)

	title := "Committee reviews annual procedures"
	got, rationale := s.Score(context.Background(), title, "")
	want := score.NewKeywordScorer(score.DefaultWeights()).CalculateScores(title, "")

	assert.Equal(t, want, got)
	assert.Empty(t, rationale)
}

func TestScoreFallbackOnNonJSONReply(t *testing.T) {
	gen := &fakeGenerator{reply: "I cannot rate this article, sorry."}
	s := testScorer(gen, nil)

	title := "Trade talks continue"
	got, _ := s.Score(context.Background(), title, "")
	want := score.NewKeywordScorer(score.DefaultWeights()).CalculateScores(title, "")

	assert.Equal(t, want, got)
}

func TestScoreParsesFencedReply(t *testing.T) {
	gen := &fakeGenerator{reply: "```json\n{\"relevance_score\": 0.72, \"relevance_level\": \"low\", \"rationale\": \"significant escalation\"}\n```"}
	s := testScorer(gen, nil)

	got, rationale := s.Score(context.Background(), "Sanctions announced against shipping firms", "")

	assert.Equal(t, 0.72, got.Relevance)
	// Model's own level label is ignored; 0.72 is high by the thresholds.
	assert.Equal(t, domain.RelevanceHigh, got.Level)
	assert.Equal(t, "significant escalation", rationale)
}

func TestScoreClampsComposite(t *testing.T) {
	gen := &fakeGenerator{reply: `{"relevance_score": 7.5}`}
	s := testScorer(gen, nil)

	got, _ := s.Score(context.Background(), "Summit concludes", "")
	assert.Equal(t, 1.0, got.Relevance)

	gen.reply = `{"relevance_score": -3}`
	s = testScorer(gen, nil)
	got, _ = s.Score(context.Background(), "Summit concludes", "")
	assert.Equal(t, 0.0, got.Relevance)
}

func TestScorePriorityFloorFromLocalScan(t *testing.T) {
	// Model underrates a priority-country story and claims no involvement;
	// the local scan and floor policy win.
	gen := &fakeGenerator{reply: `{"relevance_score": 0.05, "involves_priority_country": false}`}
	s := testScorer(gen, nil)

	got, _ := s.Score(context.Background(), "China deploys troops near LAC amid border tension", "")

	assert.True(t, got.IsPriority)
	assert.Equal(t, score.PriorityMilitaryFloor, got.Relevance)
	assert.Equal(t, domain.RelevanceHigh, got.Level)
}

func TestScoreKeepsKeywordSubScores(t *testing.T) {
	gen := &fakeGenerator{reply: `{"relevance_score": 0.9}`}
	s := testScorer(gen, nil)

	title := "Army deploys artillery near border"
	got, _ := s.Score(context.Background(), title, "")
	kw := score.NewKeywordScorer(score.DefaultWeights()).CalculateScores(title, "")

	assert.Equal(t, kw.Geo, got.Geo)
	assert.Equal(t, kw.Military, got.Military)
	assert.Equal(t, kw.Diplomatic, got.Diplomatic)
	assert.Equal(t, kw.Economic, got.Economic)
	assert.Equal(t, 0.9, got.Relevance)
}

func TestScoreCachesResults(t *testing.T) {
	gen := &fakeGenerator{reply: `{"relevance_score": 0.5, "rationale": "cached"}`}
	s := testScorer(gen, cache.New())

	first, _ := s.Score(context.Background(), "Ceasefire holds along frontier", "body")
	second, rationale := s.Score(context.Background(), "Ceasefire holds along frontier", "body")

	assert.Equal(t, first, second)
	assert.Equal(t, "cached", rationale)
	assert.Equal(t, 1, gen.calls)
}

func TestScoreNilClientUsesKeywordPath(t *testing.T) {
	s := NewScorer(nil, score.NewKeywordScorer(score.DefaultWeights()), nil, time.Hour)

	got, rationale := s.Score(context.Background(), "Missile test conducted", "")
	want := score.NewKeywordScorer(score.DefaultWeights()).CalculateScores("Missile test conducted", "")

	assert.Equal(t, want, got)
	assert.Empty(t, rationale)
}

func TestBudgetExhaustionFallsBack(t *testing.T) {
	gen := &fakeGenerator{reply: `{"relevance_score": 0.9}`}
	client := newClient(gen, time.Millisecond, NewBudget(1))
	s := NewScorer(client, score.NewKeywordScorer(score.DefaultWeights()), nil, time.Hour)

	s.Score(context.Background(), "First article about sanctions", "")
	require.Equal(t, 1, gen.calls)

	title := "Second article about tariffs"
	got, _ := s.Score(context.Background(), title, "")
	want := score.NewKeywordScorer(score.DefaultWeights()).CalculateScores(title, "")

	assert.Equal(t, want, got)
	assert.Equal(t, 1, gen.calls)
}

func TestExtractJSON(t *testing.T) {
	raw, err := extractJSON("```json\n{\"a\": 1}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, raw)

	raw, err = extractJSON(`Here is the result: {"a": 1} hope that helps`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, raw)

	_, err = extractJSON("no json here")
	assert.Error(t, err)
}
