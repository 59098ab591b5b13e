package score

import (
	"regexp"
	"strings"

	"stratwatch/internal/domain"
)

// Tuned scoring constants. These are product behavior: changing them changes
// which articles surface, so they are named here rather than scattered.
const (
	SensitivityDivisor = 5.0

	HighCutoff   = 0.3
	MediumCutoff = 0.15

	PriorityFloor         = 0.4
	PriorityMilitaryFloor = 0.6
	MilitaryFloorTrigger  = 0.1
)

// Weights are the externally configured composite weights; they must sum
// to 1.0 (validated at config load).
type Weights struct {
	Geo        float64
	Military   float64
	Diplomatic float64
	Economic   float64
}

func DefaultWeights() Weights {
	return Weights{Geo: 0.35, Military: 0.30, Diplomatic: 0.20, Economic: 0.15}
}

// keywordTable holds the curated vocabulary for one scoring category.
// Hits count 1.0 / 0.5 / 0.2 by tier; raw counts are normalized by
// SensitivityDivisor and clamped to [0,1].
type keywordTable struct {
	high   []*regexp.Regexp
	medium []*regexp.Regexp
	low    []*regexp.Regexp
}

func newKeywordTable(high, medium, low []string) keywordTable {
	return keywordTable{
		high:   compileWords(high),
		medium: compileWords(medium),
		low:    compileWords(low),
	}
}

func compileWords(words []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		patterns = append(patterns, regexp.MustCompile(`\b(`+w+`)\b`))
	}
	return patterns
}

func (t keywordTable) score(text string) float64 {
	raw := 1.0*float64(countHits(t.high, text)) +
		0.5*float64(countHits(t.medium, text)) +
		0.2*float64(countHits(t.low, text))
	return clamp01(raw / SensitivityDivisor)
}

func countHits(patterns []*regexp.Regexp, text string) int {
	hits := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			hits++
		}
	}
	return hits
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var (
	geoTable = newKeywordTable(
		[]string{
			`border disputes?`, `territorial`, `sovereignty`, `annexation`,
			`line of actual control`, `lac`, `kashmir`, `south china sea`,
			`indo-pacific`, `buffer zones?`, `demarcation`,
		},
		[]string{
			`borders?`, `geopolitic(s|al)`, `strategic`, `incursions?`,
			`standoffs?`, `frontier`, `disputed`,
		},
		[]string{
			`regional`, `neighbou?rs?`, `territory`,
		},
	)

	militaryTable = newKeywordTable(
		[]string{
			`wars?`, `invasions?`, `airstrikes?`, `missiles?`, `nuclear`,
			`troops?`, `warships?`, `military`, `combat`,
		},
		[]string{
			`army`, `navy`, `air force`, `soldiers?`, `defence`, `defense`,
			`weapons?`, `drones?`, `artillery`, `submarines?`,
			`deploy(s|ed|ment)?`, `battalions?`, `fighter jets?`,
		},
		[]string{
			`exercises?`, `patrols?`, `garrisons?`, `bases?`,
		},
	)

	diplomaticTable = newKeywordTable(
		[]string{
			`summits?`, `treat(y|ies)`, `sanctions?`, `ceasefires?`,
			`peace (deal|talks|accord)`,
		},
		[]string{
			`diploma(cy|tic|ts?)`, `bilateral`, `multilateral`, `embass(y|ies)`,
			`foreign minister`, `talks`, `negotiations?`, `envoys?`,
		},
		[]string{
			`visits?`, `delegations?`, `cooperation`, `dialogue`,
		},
	)

	economicTable = newKeywordTable(
		[]string{
			`trade wars?`, `embargo(es)?`, `export controls?`, `blockades?`,
		},
		[]string{
			`tariffs?`, `trade deals?`, `supply chains?`, `oil prices?`,
			`energy security`, `currency`,
		},
		[]string{
			`trade`, `investments?`, `econom(y|ic)`, `infrastructure`,
		},
	)

	// Home country plus immediate neighbors. Matching any of these marks an
	// article priority and exempts it from low-relevance demotion.
	priorityPatterns = compileWords([]string{
		`india(n)?`, `new delhi`,
		`pakistan(i)?`, `islamabad`,
		`china`, `chinese`, `beijing`,
		`bangladesh(i)?`, `dhaka`,
		`nepal(i)?`, `kathmandu`,
		`sri lanka(n)?`, `colombo`,
		`myanmar`, `burma`,
		`afghanistan`, `afghan`, `kabul`,
		`maldives`, `maldivian`,
		`bhutan(ese)?`,
		`kashmir`, `line of actual control`, `lac`,
	})
)

// IsPriorityText reports whether text touches the home country or its
// immediate neighbors, based on a whole-word local scan.
func IsPriorityText(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range priorityPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// ApplyPriorityPolicy is the single authoritative floor policy, shared by
// the keyword and LLM scoring paths. Priority articles are floored at 0.4,
// or 0.6 when the military sub-score also exceeds its trigger.
func ApplyPriorityPolicy(composite, military float64, isPriority bool) float64 {
	if !isPriority {
		return composite
	}
	floor := PriorityFloor
	if military > MilitaryFloorTrigger {
		floor = PriorityMilitaryFloor
	}
	if composite < floor {
		return floor
	}
	return composite
}

// LevelForScore derives the coarse relevance bucket from the composite
// score. A priority article is never assigned below medium.
func LevelForScore(composite float64, isPriority bool) domain.RelevanceLevel {
	switch {
	case composite >= HighCutoff:
		return domain.RelevanceHigh
	case composite >= MediumCutoff:
		return domain.RelevanceMedium
	case isPriority:
		return domain.RelevanceMedium
	default:
		return domain.RelevanceLow
	}
}

// KeywordScorer is the deterministic scorer and the guaranteed fallback
// for the LLM path.
type KeywordScorer struct {
	weights Weights
}

func NewKeywordScorer(weights Weights) *KeywordScorer {
	return &KeywordScorer{weights: weights}
}

// CalculateScores produces the four category sub-scores, the weighted
// composite (with the priority floor applied), level and priority flag.
func (s *KeywordScorer) CalculateScores(title, body string) domain.Scores {
	text := strings.ToLower(title + " " + body)

	scores := domain.Scores{
		Geo:        geoTable.score(text),
		Military:   militaryTable.score(text),
		Diplomatic: diplomaticTable.score(text),
		Economic:   economicTable.score(text),
		IsPriority: IsPriorityText(text),
	}

	composite := s.weights.Geo*scores.Geo +
		s.weights.Military*scores.Military +
		s.weights.Diplomatic*scores.Diplomatic +
		s.weights.Economic*scores.Economic

	composite = ApplyPriorityPolicy(composite, scores.Military, scores.IsPriority)
	scores.Relevance = clamp01(composite)
	scores.Level = LevelForScore(scores.Relevance, scores.IsPriority)

	return scores
}
