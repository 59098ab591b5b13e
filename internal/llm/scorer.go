package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stratwatch/internal/cache"
	"stratwatch/internal/domain"
	"stratwatch/internal/logger"
	"stratwatch/internal/metrics"
	"stratwatch/internal/score"
)

const (
	scoringTemperature float32 = 0.1
	scoringMaxTokens   int32   = 500
	scoringBodyLimit           = 4000
)

const scoringSystemPrompt = `You are a strategic affairs analyst rating news
for relevance to national security, defence and foreign policy. Reply with a
single JSON object and nothing else:
{
  "relevance_score": <float 0..1>,
  "relevance_level": "<low|medium|high>",
  "involves_priority_country": <bool>,
  "rationale": "<one sentence>"
}`

type scoreReply struct {
	RelevanceScore          float64 `json:"relevance_score"`
	RelevanceLevel          string  `json:"relevance_level"`
	InvolvesPriorityCountry bool    `json:"involves_priority_country"`
	Rationale               string  `json:"rationale"`
}

type cachedScore struct {
	scores    domain.Scores
	rationale string
}

// Scorer rates articles with the model and falls back to the deterministic
// keyword scorer on any failure. The four keyword sub-scores are always
// part of the result; the model only ever overrides the composite.
type Scorer struct {
	client   *Client
	keyword  *score.KeywordScorer
	cache    *cache.Cache
	cacheTTL time.Duration
}

// NewScorer accepts a nil client: scoring then always takes the keyword
// path, which is the configured-without-credentials mode.
func NewScorer(client *Client, keyword *score.KeywordScorer, c *cache.Cache, cacheTTL time.Duration) *Scorer {
	if cacheTTL <= 0 {
		cacheTTL = 48 * time.Hour
	}
	return &Scorer{client: client, keyword: keyword, cache: c, cacheTTL: cacheTTL}
}

// Score returns the final scores and a model rationale (empty on the
// fallback path). Never returns an error: the keyword result is always
// available.
func (s *Scorer) Score(ctx context.Context, title, body string) (domain.Scores, string) {
	kw := s.keyword.CalculateScores(title, body)
	if s.client == nil {
		return kw, ""
	}

	var key string
	if s.cache != nil {
		key = s.cache.GenerateKey(title, body)
		if v, ok := s.cache.Get(key); ok {
			if cached, ok := v.(cachedScore); ok {
				return cached.scores, cached.rationale
			}
		}
	}

	prompt := fmt.Sprintf("Title: %s\n\nBody: %s", title, truncateRunes(body, scoringBodyLimit))
	reply, err := s.client.generate(ctx, scoringSystemPrompt, prompt, scoringTemperature, scoringMaxTokens)
	if err != nil {
		logger.Warn("model scoring failed, using keyword scores", "error", err)
		metrics.Global.IncrementLLMFallbacks()
		return kw, ""
	}

	parsed, err := parseScoreReply(reply)
	if err != nil {
		logger.Warn("model score reply unusable, using keyword scores", "error", err)
		metrics.Global.IncrementLLMFallbacks()
		return kw, ""
	}

	final := s.validate(kw, parsed, title, body)
	metrics.Global.IncrementLLMScored()

	if s.cache != nil {
		s.cache.Set(key, cachedScore{scores: final, rationale: parsed.Rationale}, s.cacheTTL)
	}
	return final, parsed.Rationale
}

func parseScoreReply(reply string) (*scoreReply, error) {
	raw, err := extractJSON(reply)
	if err != nil {
		return nil, err
	}
	var parsed scoreReply
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("malformed score JSON: %w", err)
	}
	return &parsed, nil
}

// validate enforces the reply contract: clamp the composite, rederive the
// level from the clamped score, and rerun the priority floor from a local
// text scan. The model's own level and priority flags are advisory only.
func (s *Scorer) validate(kw domain.Scores, parsed *scoreReply, title, body string) domain.Scores {
	final := kw

	composite := parsed.RelevanceScore
	if composite < 0 {
		composite = 0
	}
	if composite > 1 {
		composite = 1
	}

	final.IsPriority = score.IsPriorityText(strings.ToLower(title + " " + body))
	composite = score.ApplyPriorityPolicy(composite, final.Military, final.IsPriority)
	final.Relevance = composite
	final.Level = score.LevelForScore(composite, final.IsPriority)
	return final
}
