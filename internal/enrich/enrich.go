package enrich

import (
	"context"
	"fmt"
	"time"

	"stratwatch/internal/domain"
	"stratwatch/internal/logger"
	"stratwatch/internal/metrics"
	"stratwatch/internal/score"
)

const maxErrorLen = 500

// Store is the persistence slice the enrichment job needs.
type Store interface {
	PendingArticles(ctx context.Context, limit int) ([]domain.Article, error)
	UpdateEnrichment(ctx context.Context, a *domain.Article) error
	MarkFailed(ctx context.Context, articleID int64, errText string) error
}

// Scorer produces the final scores for an article, with its own internal
// fallback; it never fails.
type Scorer interface {
	Score(ctx context.Context, title, body string) (domain.Scores, string)
}

// Analyzer is the optional high-relevance enrichment surface.
type Analyzer interface {
	Available() bool
	BulletSummary(ctx context.Context, title, body string) (string, error)
	StrategicSummary(ctx context.Context, title, body string) (domain.Summary, error)
	ExtractEntities(ctx context.Context, title, body string) ([]domain.Entity, error)
	Classify(ctx context.Context, title, body string) (domain.Classification, error)
}

// Orchestrator drains a bounded batch of pending articles through scoring,
// classification and summarization, advancing each article's processing
// state exactly once per run.
type Orchestrator struct {
	store     Store
	scorer    Scorer
	analyzer  Analyzer
	batchSize int
}

func New(store Store, scorer Scorer, analyzer Analyzer, batchSize int) *Orchestrator {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Orchestrator{
		store:     store,
		scorer:    scorer,
		analyzer:  analyzer,
		batchSize: batchSize,
	}
}

// Run processes up to batchSize pending articles, oldest first. Per-article
// failures mark that article failed and the batch continues.
func (o *Orchestrator) Run(ctx context.Context) error {
	started := time.Now()

	batch, err := o.store.PendingArticles(ctx, o.batchSize)
	if err != nil {
		metrics.Global.SetError(err.Error())
		return fmt.Errorf("failed to select pending articles: %w", err)
	}
	if len(batch) == 0 {
		logger.Debug("no pending articles")
		return nil
	}

	processed, failed := 0, 0
	for i := range batch {
		if ctx.Err() != nil {
			break
		}
		if err := o.enrichArticle(ctx, &batch[i]); err != nil {
			failed++
			logger.Error("article enrichment failed",
				"article_id", batch[i].ID, "error", err)
			if markErr := o.store.MarkFailed(ctx, batch[i].ID, truncateError(err)); markErr != nil {
				logger.Error("failed to mark article failed",
					"article_id", batch[i].ID, "error", markErr)
			}
			metrics.Global.IncrementFailed()
			continue
		}
		processed++
		metrics.Global.IncrementProcessed()
	}

	metrics.Global.RecordEnrichDuration(time.Since(started))
	metrics.Global.SetLastRun()
	logger.Info("enrichment run complete",
		"batch", len(batch), "processed", processed, "failed", failed,
		"duration", time.Since(started))
	return nil
}

// enrichArticle scores, classifies and (for high relevance) summarizes one
// article, then persists the whole envelope. Analyzer failures degrade to
// rule-based output; only a persistence failure fails the article.
func (o *Orchestrator) enrichArticle(ctx context.Context, a *domain.Article) error {
	a.Scores, _ = o.scorer.Score(ctx, a.Title, a.Content)

	// Rule-based classification is the baseline; the model may refine it.
	a.Classification = score.ExtractRegionTheme(a.Title, a.Content)

	if a.Scores.Level == domain.RelevanceHigh && o.analyzer != nil && o.analyzer.Available() {
		o.analyzeHighRelevance(ctx, a)
	}

	if err := o.store.UpdateEnrichment(ctx, a); err != nil {
		return err
	}
	return nil
}

// analyzeHighRelevance attaches model summaries, entities and refined
// classification. Strictly best-effort: every failure is logged and the
// article keeps its baseline enrichment.
func (o *Orchestrator) analyzeHighRelevance(ctx context.Context, a *domain.Article) {
	if bullets, err := o.analyzer.BulletSummary(ctx, a.Title, a.Content); err == nil {
		a.Summary.Bullets = bullets
	} else {
		logger.Warn("bullet summary failed", "article_id", a.ID, "error", err)
	}

	if summary, err := o.analyzer.StrategicSummary(ctx, a.Title, a.Content); err == nil {
		bullets := a.Summary.Bullets
		a.Summary = summary
		a.Summary.Bullets = bullets
	} else {
		logger.Warn("strategic summary failed", "article_id", a.ID, "error", err)
	}

	if entities, err := o.analyzer.ExtractEntities(ctx, a.Title, a.Content); err == nil {
		a.Entities = entities
	} else {
		logger.Warn("entity extraction failed", "article_id", a.ID, "error", err)
	}

	if classification, err := o.analyzer.Classify(ctx, a.Title, a.Content); err == nil {
		a.Classification = classification
	} else {
		logger.Warn("model classification failed", "article_id", a.ID, "error", err)
	}
}

func truncateError(err error) string {
	msg := err.Error()
	if len(msg) <= maxErrorLen {
		return msg
	}
	return msg[:maxErrorLen]
}
