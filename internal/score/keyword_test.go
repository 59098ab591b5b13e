package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stratwatch/internal/domain"
)

func TestCalculateScoresBorderDeployment(t *testing.T) {
	s := NewKeywordScorer(DefaultWeights())

	scores := s.CalculateScores("China deploys troops near LAC amid border tension", "")

	assert.True(t, scores.IsPriority)
	assert.Greater(t, scores.Military, MilitaryFloorTrigger)
	assert.GreaterOrEqual(t, scores.Relevance, PriorityMilitaryFloor)
	assert.Equal(t, domain.RelevanceHigh, scores.Level)
}

func TestPriorityFloorExact(t *testing.T) {
	s := NewKeywordScorer(DefaultWeights())

	// Priority keyword present, nothing else strategic: raw composite is
	// near zero, final score is exactly the floor.
	scores := s.CalculateScores("Nepal announces new tourism campaign", "")
	assert.True(t, scores.IsPriority)
	assert.Equal(t, PriorityFloor, scores.Relevance)
	assert.Equal(t, domain.RelevanceHigh, scores.Level)
}

func TestPriorityMilitaryFloor(t *testing.T) {
	score := ApplyPriorityPolicy(0.05, 0.2, true)
	assert.Equal(t, PriorityMilitaryFloor, score)

	score = ApplyPriorityPolicy(0.05, 0.05, true)
	assert.Equal(t, PriorityFloor, score)

	// Non-priority text is never floored.
	score = ApplyPriorityPolicy(0.05, 0.9, false)
	assert.Equal(t, 0.05, score)

	// Floors never lower an already-high score.
	score = ApplyPriorityPolicy(0.9, 0.9, true)
	assert.Equal(t, 0.9, score)
}

func TestLevelThresholds(t *testing.T) {
	assert.Equal(t, domain.RelevanceHigh, LevelForScore(0.3, false))
	assert.Equal(t, domain.RelevanceMedium, LevelForScore(0.15, false))
	assert.Equal(t, domain.RelevanceLow, LevelForScore(0.14, false))

	// Priority articles never drop below medium.
	assert.Equal(t, domain.RelevanceMedium, LevelForScore(0.0, true))
}

func TestCompositeMonotonicInKeywordDensity(t *testing.T) {
	s := NewKeywordScorer(DefaultWeights())

	base := s.CalculateScores("Trade talks continue", "")
	richer := s.CalculateScores("Trade talks continue amid sanctions and tariffs", "")

	assert.GreaterOrEqual(t, richer.Relevance, base.Relevance)
	assert.GreaterOrEqual(t, richer.Economic, base.Economic)
}

func TestSubScoresClamped(t *testing.T) {
	s := NewKeywordScorer(DefaultWeights())

	text := "war invasion airstrike missile nuclear troops warship military combat " +
		"army navy soldier defence weapon drone artillery submarine deployment"
	scores := s.CalculateScores(text, text)

	assert.LessOrEqual(t, scores.Military, 1.0)
	assert.LessOrEqual(t, scores.Relevance, 1.0)
}

func TestNonPriorityLowRelevance(t *testing.T) {
	s := NewKeywordScorer(DefaultWeights())

	scores := s.CalculateScores("Committee reviews annual procedures", "")
	assert.False(t, scores.IsPriority)
	assert.Equal(t, domain.RelevanceLow, scores.Level)
}
