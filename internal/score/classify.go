package score

import (
	"regexp"
	"strings"

	"stratwatch/internal/domain"
)

// Closed classification vocabularies. LLM classification output is
// normalized against these same lists; nothing outside them is stored.
var (
	ValidRegions = []string{
		"South Asia", "East Asia", "Southeast Asia", "Central Asia",
		"Middle East", "Europe", "Africa", "North America", "South America",
		"Oceania", "Global",
	}

	ValidThemes = []string{
		"Military Conflict", "Terrorism", "Nuclear", "Diplomacy",
		"Defense Procurement", "Border Security", "Maritime Security",
		"Cyber Security", "Internal Security", "Economic Security",
		"General Security",
	}

	ValidDomains = []string{
		"military", "diplomatic", "economic", "cyber", "maritime", "space",
		"multi-domain",
	}
)

// Classification defaults when no keyword matches.
const (
	DefaultRegion  = "Global"
	DefaultCountry = ""
	DefaultTheme   = "General Security"
	DefaultDomain  = "multi-domain"
)

type labelRule struct {
	pattern *regexp.Regexp
	label   string
}

func rules(pairs ...string) []labelRule {
	out := make([]labelRule, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, labelRule{
			pattern: regexp.MustCompile(`\b(` + pairs[i] + `)\b`),
			label:   pairs[i+1],
		})
	}
	return out
}

// Ordered, most-specific-first. First match wins.
var (
	regionRules = rules(
		`india|pakistan|bangladesh|nepal|sri lanka|bhutan|maldives|afghanistan|kashmir|line of actual control|lac|himalaya(n)?|south asia`, "South Asia",
		`china|chinese|taiwan|japan|japanese|korea(n)?|east asia`, "East Asia",
		`myanmar|thailand|vietnam|philippines|indonesia|malaysia|singapore|southeast asia|asean`, "Southeast Asia",
		`kazakhstan|uzbekistan|tajikistan|kyrgyzstan|turkmenistan|central asia`, "Central Asia",
		`iran(ian)?|iraq(i)?|israel(i)?|saudi|syria(n)?|yemen(i)?|gulf|middle east`, "Middle East",
		`russia(n)?|ukraine|ukrainian|nato|european union|europe(an)?`, "Europe",
		`africa(n)?|sahel|nigeria(n)?|ethiopia(n)?`, "Africa",
		`united states|american|washington|canada|north america`, "North America",
		`brazil(ian)?|argentina|venezuela|south america`, "South America",
		`australia(n)?|new zealand|pacific islands?|oceania`, "Oceania",
	)

	countryRules = rules(
		`sri lanka(n)?|colombo`, "Sri Lanka",
		`india(n)?|new delhi`, "India",
		`pakistan(i)?|islamabad`, "Pakistan",
		`china|chinese|beijing`, "China",
		`bangladesh(i)?|dhaka`, "Bangladesh",
		`nepal(i)?|kathmandu`, "Nepal",
		`myanmar|burma`, "Myanmar",
		`afghanistan|afghan|kabul`, "Afghanistan",
		`maldives|maldivian`, "Maldives",
		`bhutan(ese)?`, "Bhutan",
		`united states|american|washington`, "USA",
		`russia(n)?|moscow`, "Russia",
		`japan(ese)?|tokyo`, "Japan",
		`ukraine|ukrainian|kyiv`, "Ukraine",
		`israel(i)?`, "Israel",
		`iran(ian)?|tehran`, "Iran",
	)

	themeRules = rules(
		`terror(ism|ist)?s?|militants?|insurgen(cy|ts?)|extremis(m|ts?)`, "Terrorism",
		`nuclear|atomic|uranium|warheads?`, "Nuclear",
		`wars?|invasions?|airstrikes?|combat|offensives?|shelling`, "Military Conflict",
		`borders?|line of actual control|lac|incursions?|territorial`, "Border Security",
		`naval|maritime|warships?|submarines?|south china sea|indian ocean`, "Maritime Security",
		`cyber( ?attack)?s?|hacking|ransomware|espionage`, "Cyber Security",
		`defence (deal|procurement|budget|industry)|arms (deal|export|import)|weapons? (deal|sale)`, "Defense Procurement",
		`diploma(cy|tic|ts?)|summits?|treat(y|ies)|bilateral|embass(y|ies)`, "Diplomacy",
		`sanctions?|trade wars?|embargo(es)?|tariffs?`, "Economic Security",
		`riots?|unrest|protests?|separatis(m|ts?)`, "Internal Security",
	)

	domainRules = rules(
		`military|troops?|army|navy|air force|missiles?|wars?|weapons?`, "military",
		`diploma(cy|tic|ts?)|summits?|treat(y|ies)|embass(y|ies)|bilateral`, "diplomatic",
		`trade|tariffs?|sanctions?|econom(y|ic)|investments?`, "economic",
		`cyber( ?attack)?s?|hacking|ransomware`, "cyber",
		`naval|maritime|warships?|submarines?`, "maritime",
		`satellites?|space(craft)?|orbital`, "space",
	)
)

// ExtractRegionTheme is the deterministic rule-based classifier: the first
// whole-word match wins per dimension, with fixed defaults when nothing
// matches.
func ExtractRegionTheme(title, body string) domain.Classification {
	text := strings.ToLower(title + " " + body)

	c := domain.Classification{
		Region:  DefaultRegion,
		Country: DefaultCountry,
		Theme:   DefaultTheme,
		Domain:  DefaultDomain,
	}

	if label := firstLabel(regionRules, text); label != "" {
		c.Region = label
	}
	if label := firstLabel(countryRules, text); label != "" {
		c.Country = label
	}
	if label := firstLabel(themeRules, text); label != "" {
		c.Theme = label
	}
	if label := firstLabel(domainRules, text); label != "" {
		c.Domain = label
	}
	return c
}

func firstLabel(rs []labelRule, text string) string {
	for _, r := range rs {
		if r.pattern.MatchString(text) {
			return r.label
		}
	}
	return ""
}

// NormalizeRegion maps free-form model output onto the closed region
// vocabulary: exact, then case-insensitive, then partial match.
func NormalizeRegion(raw string) string {
	return normalizeLabel(raw, ValidRegions, DefaultRegion)
}

func NormalizeTheme(raw string) string {
	return normalizeLabel(raw, ValidThemes, DefaultTheme)
}

func NormalizeDomain(raw string) string {
	return normalizeLabel(raw, ValidDomains, DefaultDomain)
}

func normalizeLabel(raw string, valid []string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	for _, v := range valid {
		if raw == v {
			return v
		}
	}
	for _, v := range valid {
		if strings.EqualFold(raw, v) {
			return v
		}
	}
	lower := strings.ToLower(raw)
	for _, v := range valid {
		lv := strings.ToLower(v)
		if strings.Contains(lower, lv) || strings.Contains(lv, lower) {
			return v
		}
	}
	return fallback
}

var countryAliases = map[string]string{
	"us":             "USA",
	"u.s.":           "USA",
	"usa":            "USA",
	"united states":  "USA",
	"america":        "USA",
	"uk":             "UK",
	"u.k.":           "UK",
	"united kingdom": "UK",
	"britain":        "UK",
	"uae":            "UAE",
	"prc":            "China",
	"republic of india": "India",
	"russian federation": "Russia",
	"south korea":    "South Korea",
	"north korea":    "North Korea",
}

// NormalizeCountry maps common abbreviations and long-form names onto the
// display form; unknown values pass through title-cased.
func NormalizeCountry(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultCountry
	}
	if canonical, ok := countryAliases[strings.ToLower(raw)]; ok {
		return canonical
	}
	words := strings.Fields(strings.ToLower(raw))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
