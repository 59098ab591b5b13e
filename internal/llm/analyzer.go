package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"stratwatch/internal/domain"
	"stratwatch/internal/metrics"
	"stratwatch/internal/score"
)

const (
	analysisTemperature float32 = 0.3
	analysisMaxTokens   int32   = 2000
	analysisBodyLimit           = 6000

	bulletCap = 5
)

// Closed entity type vocabulary; replies with other types are dropped.
var validEntityTypes = map[string]bool{
	"country":      true,
	"leader":       true,
	"organization": true,
	"military":     true,
	"location":     true,
	"weapon":       true,
	"event":        true,
}

// Analyzer produces summaries, entities and classification for
// high-relevance articles. Every method is best-effort: callers treat
// failures as missing enrichment, never as article failure.
type Analyzer struct {
	client *Client
}

func NewAnalyzer(client *Client) *Analyzer {
	return &Analyzer{client: client}
}

func (a *Analyzer) Available() bool {
	return a != nil && a.client != nil
}

const bulletSystemPrompt = `You are a strategic affairs analyst. Summarize
the article as at most 5 short bullet points covering the key facts. Reply
with the bullet lines only, one per line, each starting with "• ".`

// BulletSummary returns a digest of at most 5 lines, each bullet-prefixed.
// Formatting is enforced locally regardless of how the model replies.
func (a *Analyzer) BulletSummary(ctx context.Context, title, body string) (string, error) {
	if !a.Available() {
		return "", fmt.Errorf("analyzer not configured")
	}

	prompt := fmt.Sprintf("Title: %s\n\nBody: %s", title, truncateRunes(body, analysisBodyLimit))
	reply, err := a.client.generate(ctx, bulletSystemPrompt, prompt, analysisTemperature, analysisMaxTokens)
	if err != nil {
		return "", err
	}

	bullets := formatBullets(reply)
	if bullets == "" {
		return "", fmt.Errorf("model returned no usable bullet lines")
	}
	metrics.Global.IncrementSummaries()
	return bullets, nil
}

func formatBullets(reply string) string {
	var bullets []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "•-* \t")
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		bullets = append(bullets, "• "+line)
		if len(bullets) == bulletCap {
			break
		}
	}
	return strings.Join(bullets, "\n")
}

const strategicSystemPrompt = `You are a strategic affairs analyst writing
for national security policymakers. Reply with a single JSON object and
nothing else:
{
  "what_happened": "<2-3 sentences>",
  "why_matters": "<2-3 sentences>",
  "implications": "<2-3 sentences on implications for India>",
  "future_developments": "<2-3 sentences on likely developments>"
}`

type strategicReply struct {
	WhatHappened       string `json:"what_happened"`
	WhyMatters         string `json:"why_matters"`
	Implications       string `json:"implications"`
	FutureDevelopments string `json:"future_developments"`
}

// StrategicSummary generates the four-field briefing in one structured call.
func (a *Analyzer) StrategicSummary(ctx context.Context, title, body string) (domain.Summary, error) {
	var summary domain.Summary
	if !a.Available() {
		return summary, fmt.Errorf("analyzer not configured")
	}

	prompt := fmt.Sprintf("Title: %s\n\nBody: %s", title, truncateRunes(body, analysisBodyLimit))
	reply, err := a.client.generate(ctx, strategicSystemPrompt, prompt, analysisTemperature, analysisMaxTokens)
	if err != nil {
		return summary, err
	}

	raw, err := extractJSON(reply)
	if err != nil {
		return summary, err
	}
	var parsed strategicReply
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return summary, fmt.Errorf("malformed strategic summary JSON: %w", err)
	}

	summary.WhatHappened = strings.TrimSpace(parsed.WhatHappened)
	summary.WhyMatters = strings.TrimSpace(parsed.WhyMatters)
	summary.Implications = strings.TrimSpace(parsed.Implications)
	summary.FutureDevelopments = strings.TrimSpace(parsed.FutureDevelopments)
	return summary, nil
}

const entitySystemPrompt = `You are an information extraction system. Extract
named entities from the article. Allowed types: country, leader,
organization, military, location, weapon, event. Reply with a single JSON
object and nothing else:
{"entities": [{"type": "<type>", "name": "<name>"}]}`

type entityReply struct {
	Entities []domain.Entity `json:"entities"`
}

// ExtractEntities returns typed entities, restricted to the closed type
// vocabulary.
func (a *Analyzer) ExtractEntities(ctx context.Context, title, body string) ([]domain.Entity, error) {
	if !a.Available() {
		return nil, fmt.Errorf("analyzer not configured")
	}

	prompt := fmt.Sprintf("Title: %s\n\nBody: %s", title, truncateRunes(body, analysisBodyLimit))
	reply, err := a.client.generate(ctx, entitySystemPrompt, prompt, analysisTemperature, analysisMaxTokens)
	if err != nil {
		return nil, err
	}

	raw, err := extractJSON(reply)
	if err != nil {
		return nil, err
	}
	var parsed entityReply
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("malformed entity JSON: %w", err)
	}

	var entities []domain.Entity
	for _, e := range parsed.Entities {
		t := strings.ToLower(strings.TrimSpace(e.Type))
		name := strings.TrimSpace(e.Name)
		if name == "" || !validEntityTypes[t] {
			continue
		}
		entities = append(entities, domain.Entity{Type: t, Name: name})
	}
	return entities, nil
}

const classifySystemPrompt = `You are a strategic affairs analyst. Classify
the article. Reply with a single JSON object and nothing else:
{"region": "<region>", "country": "<main country>", "theme": "<theme>",
 "domain": "<military|diplomatic|economic|cyber|maritime|space|multi-domain>"}`

type classifyReply struct {
	Region  string `json:"region"`
	Country string `json:"country"`
	Theme   string `json:"theme"`
	Domain  string `json:"domain"`
}

// Classify asks the model for labels and normalizes them against the same
// closed vocabularies the rule-based classifier uses.
func (a *Analyzer) Classify(ctx context.Context, title, body string) (domain.Classification, error) {
	var c domain.Classification
	if !a.Available() {
		return c, fmt.Errorf("analyzer not configured")
	}

	prompt := fmt.Sprintf("Title: %s\n\nBody: %s", title, truncateRunes(body, analysisBodyLimit))
	reply, err := a.client.generate(ctx, classifySystemPrompt, prompt, analysisTemperature, scoringMaxTokens)
	if err != nil {
		return c, err
	}

	raw, err := extractJSON(reply)
	if err != nil {
		return c, err
	}
	var parsed classifyReply
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return c, fmt.Errorf("malformed classification JSON: %w", err)
	}

	c.Region = score.NormalizeRegion(parsed.Region)
	c.Country = score.NormalizeCountry(parsed.Country)
	c.Theme = score.NormalizeTheme(parsed.Theme)
	c.Domain = score.NormalizeDomain(parsed.Domain)
	return c, nil
}
