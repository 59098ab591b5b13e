package dedup

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"stratwatch/internal/domain"
)

// Store is the slice of persistence the deduplicator needs.
type Store interface {
	GetArticleByURL(ctx context.Context, url string) (*domain.Article, error)
	RecentArticles(ctx context.Context, since time.Time) ([]domain.Article, error)
	DeleteArticlesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountDuplicateTitleGroups(ctx context.Context) (int, error)
}

var (
	editorialPrefix = regexp.MustCompile(`^(breaking|update|updated|exclusive|watch|live|just in)\s*:\s*`)
	punctuation     = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// NormalizeTitle lowercases, strips leading editorial prefixes, removes
// punctuation and collapses whitespace. Idempotent.
func NormalizeTitle(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	for {
		stripped := editorialPrefix.ReplaceAllString(t, "")
		if stripped == t {
			break
		}
		t = stripped
	}
	t = strings.ReplaceAll(t, "'s ", " ")
	t = punctuation.ReplaceAllString(t, "")
	t = whitespace.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "in": true, "on": true,
	"at": true, "to": true, "with": true, "for": true, "and": true,
	"as": true, "by": true, "from": true, "after": true, "over": true,
	"amid": true, "his": true, "her": true, "their": true, "its": true,
	"is": true, "are": true, "be": true,
}

// Generic reporting verbs and role fillers that carry no identity: two
// wire-service headlines about one event differ mostly in these.
var fillerWords = map[string]bool{
	"meets": true, "meet": true, "meeting": true, "holds": true,
	"hold": true, "held": true, "talks": true, "talk": true,
	"says": true, "said": true, "announces": true, "announced": true,
	"counterpart": true, "leader": true, "leaders": true, "visit": true,
	"visits": true, "new": true, "top": true, "key": true,
}

// tokenAliases folds abbreviations, demonyms and possessive remnants onto
// canonical tokens so that "PM" and "Prime Minister", or "Japanese" and
// "Japan's", compare equal.
var tokenAliases = map[string][]string{
	"pm":        {"prime", "minister"},
	"fm":        {"foreign", "minister"},
	"japanese":  {"japan"},
	"japans":    {"japan"},
	"chinese":   {"china"},
	"chinas":    {"china"},
	"indian":    {"india"},
	"indias":    {"india"},
	"pakistani": {"pakistan"},
	"pakistans": {"pakistan"},
	"russian":   {"russia"},
	"russias":   {"russia"},
	"american":  {"usa"},
	"us":        {"usa"},
	"afghan":    {"afghanistan"},
	"nepali":    {"nepal"},
	"nepalese":  {"nepal"},
	"lankan":    {"lanka"},
}

func significantTokens(normalized string) map[string]bool {
	tokens := map[string]bool{}
	for _, tok := range strings.Fields(normalized) {
		if expanded, ok := tokenAliases[tok]; ok {
			for _, e := range expanded {
				tokens[e] = true
			}
			continue
		}
		if len(tok) < 2 || stopwords[tok] || fillerWords[tok] {
			continue
		}
		tokens[tok] = true
	}
	return tokens
}

// TitleSimilarity scores two titles by Jaccard overlap of their significant
// token sets. Symmetric; returns a value in [0,1].
func TitleSimilarity(a, b string) float64 {
	ta := significantTokens(NormalizeTitle(a))
	tb := significantTokens(NormalizeTitle(b))

	// Degenerate titles: compare raw token sets instead.
	if len(ta) == 0 || len(tb) == 0 {
		ta = rawTokens(NormalizeTitle(a))
		tb = rawTokens(NormalizeTitle(b))
		if len(ta) == 0 || len(tb) == 0 {
			return 0
		}
	}

	intersection := 0
	for tok := range ta {
		if tb[tok] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

func rawTokens(normalized string) map[string]bool {
	tokens := map[string]bool{}
	for _, tok := range strings.Fields(normalized) {
		tokens[tok] = true
	}
	return tokens
}

// Deduplicator detects candidates that duplicate already-stored articles.
type Deduplicator struct {
	store     Store
	threshold float64
	lookback  time.Duration
}

func New(store Store, threshold float64, lookbackHours int) *Deduplicator {
	if threshold <= 0 {
		threshold = 0.85
	}
	if lookbackHours <= 0 {
		lookbackHours = 72
	}
	return &Deduplicator{
		store:     store,
		threshold: threshold,
		lookback:  time.Duration(lookbackHours) * time.Hour,
	}
}

func (d *Deduplicator) Threshold() float64 { return d.threshold }

// FindDuplicates returns stored articles this candidate duplicates. An
// exact URL match is authoritative and short-circuits title comparison
// with exactly one result.
func (d *Deduplicator) FindDuplicates(ctx context.Context, title, url string) ([]domain.Article, error) {
	if url != "" {
		existing, err := d.store.GetArticleByURL(ctx, url)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return []domain.Article{*existing}, nil
		}
	}

	since := time.Now().Add(-d.lookback)
	recent, err := d.store.RecentArticles(ctx, since)
	if err != nil {
		return nil, err
	}

	var duplicates []domain.Article
	for _, a := range recent {
		if TitleSimilarity(title, a.Title) >= d.threshold {
			duplicates = append(duplicates, a)
		}
	}
	return duplicates, nil
}

// CleanupOldArticles deletes articles past the retention cutoff.
func (d *Deduplicator) CleanupOldArticles(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = 90
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	return d.store.DeleteArticlesBefore(ctx, cutoff)
}

// DuplicateStats reports the number of title-prefix collision groups.
// Diagnostic only, not authoritative.
func (d *Deduplicator) DuplicateStats(ctx context.Context) (int, error) {
	return d.store.CountDuplicateTitleGroups(ctx)
}

// BatchPool accumulates titles accepted earlier in the same ingestion run
// so near-identical articles from different sources cannot both pass the
// duplicate check. Safe for concurrent per-source fetches.
type BatchPool struct {
	mu        sync.Mutex
	titles    []string
	threshold float64
}

func NewBatchPool(threshold float64) *BatchPool {
	if threshold <= 0 {
		threshold = 0.85
	}
	return &BatchPool{threshold: threshold}
}

// SeenOrAdd reports whether the title duplicates one accepted earlier in
// this run; if not, it is added to the pool. Check and insert are one
// critical section so two sources cannot both pass.
func (p *BatchPool) SeenOrAdd(title string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, seen := range p.titles {
		if TitleSimilarity(title, seen) >= p.threshold {
			return true
		}
	}
	p.titles = append(p.titles, title)
	return false
}

func (p *BatchPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.titles)
}
