package filter

import (
	"regexp"
	"strings"
)

// Pattern tables are ordered and data-driven so the gate can be extended
// without touching the decision logic. All matching is whole-word and
// case-insensitive against lowercased input.
var (
	strongIncludePatterns = compileAll([]string{
		`terror(ism|ist)?s?`,
		`military`,
		`nuclear`,
		`missiles?`,
		`wars?`,
		`invasions?`,
		`defence`,
		`defense`,
		`army`,
		`navy`,
		`air force`,
		`airstrikes?`,
		`insurgen(cy|ts?)`,
		`ceasefires?`,
	})

	excludePatterns = compileAll([]string{
		`cricket`, `football`, `tennis`, `olympics?`, `ipl`, `tournaments?`,
		`bollywood`, `hollywood`, `celebrit(y|ies)`, `movies?`, `concerts?`,
		`fashion`, `recipes?`, `lifestyle`, `horoscopes?`,
		`stock markets?`, `quarterly (earnings|results)`, `ipo`,
		`weather forecasts?`, `monsoon update`,
	})

	includePatterns = compileAll([]string{
		`troops?`, `soldiers?`, `battalions?`, `regiments?`, `warships?`,
		`fighter jets?`, `drones?`, `artillery`, `submarines?`,
		`security forces?`, `counter-?terrorism`, `militants?`,
		`extremis(m|ts?)`, `bombings?`, `explosions?`,
		`geopolitic(s|al)`, `diploma(cy|tic|ts?)`, `embass(y|ies)`,
		`sanctions?`, `treat(y|ies)`, `summits?`, `bilateral`, `multilateral`,
		`borders?`, `territorial`, `sovereignty`, `annexation`,
		`line of actual control`, `lac`, `loc`,
		`defence (deal|procurement|budget|industry)`,
		`arms (deal|race|export|import)`,
		`conflicts?`, `escalations?`, `standoffs?`, `skirmish(es)?`,
		`prime minister`, `president`, `foreign minister`, `defence minister`,
		`nato`, `united nations`, `un security council`, `quad`, `brics`,
	})
)

func compileAll(words []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		patterns = append(patterns, regexp.MustCompile(`\b(`+w+`)\b`))
	}
	return patterns
}

// RelevanceFilter is the pre-storage gate: it decides from title+body text
// alone whether a candidate is worth persisting at all.
type RelevanceFilter struct{}

func NewRelevanceFilter() *RelevanceFilter {
	return &RelevanceFilter{}
}

// IsRelevant returns the gate decision and a human-readable reason.
// Strong-include matches override exclusion: a story carrying a hard
// security cue is kept even when it also matches a lifestyle term.
func (f *RelevanceFilter) IsRelevant(title, body string) (bool, string) {
	text := strings.ToLower(title + " " + body)

	if pattern := firstMatch(strongIncludePatterns, text); pattern != "" {
		return true, "strong keyword match: " + pattern
	}

	if pattern := firstMatch(excludePatterns, text); pattern != "" {
		return false, "excluded topic: " + pattern
	}

	if pattern := firstMatch(includePatterns, text); pattern != "" {
		return true, "keyword match: " + pattern
	}

	return false, "no strategic keywords found"
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, p := range patterns {
		if m := p.FindString(text); m != "" {
			return m
		}
	}
	return ""
}
