package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ArticlesFetched    int64
	ArticlesFiltered   int64
	DuplicatesSkipped  int64
	ArticlesSaved      int64
	ArticlesProcessed  int64
	ArticlesFailed     int64
	LLMScored          int64
	LLMFallbacks       int64
	SummariesGenerated int64

	// Timings
	LastIngestDuration time.Duration
	LastEnrichDuration time.Duration

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesFetched += int64(n)
}

func (m *Metrics) IncrementFiltered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesFiltered++
}

func (m *Metrics) IncrementDuplicates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesSkipped++
}

func (m *Metrics) IncrementSaved() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesSaved++
}

func (m *Metrics) IncrementProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesProcessed++
}

func (m *Metrics) IncrementFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesFailed++
}

func (m *Metrics) IncrementLLMScored() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LLMScored++
}

func (m *Metrics) IncrementLLMFallbacks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LLMFallbacks++
}

func (m *Metrics) IncrementSummaries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummariesGenerated++
}

func (m *Metrics) RecordIngestDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastIngestDuration = d
}

func (m *Metrics) RecordEnrichDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastEnrichDuration = d
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"articles_fetched":        m.ArticlesFetched,
		"articles_filtered":       m.ArticlesFiltered,
		"duplicates_skipped":      m.DuplicatesSkipped,
		"articles_saved":          m.ArticlesSaved,
		"articles_processed":      m.ArticlesProcessed,
		"articles_failed":         m.ArticlesFailed,
		"llm_scored":              m.LLMScored,
		"llm_fallbacks":           m.LLMFallbacks,
		"summaries_generated":     m.SummariesGenerated,
		"last_ingest_duration_ms": m.LastIngestDuration.Milliseconds(),
		"last_enrich_duration_ms": m.LastEnrichDuration.Milliseconds(),
		"last_run_time":           m.LastRunTime.Format(time.RFC3339),
		"last_error_time":         m.LastErrorTime.Format(time.RFC3339),
		"last_error":              m.LastError,
		"is_healthy":              m.IsHealthy,
	}
}
