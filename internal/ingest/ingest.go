package ingest

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"stratwatch/internal/dedup"
	"stratwatch/internal/domain"
	"stratwatch/internal/filter"
	"stratwatch/internal/logger"
	"stratwatch/internal/metrics"
)

const (
	maxTitleLen  = 500
	maxStatusLen = 255
)

// Fetcher retrieves raw candidates for one source.
type Fetcher interface {
	Fetch(ctx context.Context, src domain.Source) ([]domain.Candidate, error)
}

// Store is the persistence slice the ingestion job needs.
type Store interface {
	ListActiveSources(ctx context.Context) ([]domain.Source, error)
	InsertArticle(ctx context.Context, a *domain.Article) (int64, error)
	UpdateSourceFetchStatus(ctx context.Context, sourceID int64, status string) error
}

// Orchestrator drives fetch → filter → dedup → persist for every active
// source. Sources fetch concurrently; duplicate checking is serialized
// through the shared batch pool.
type Orchestrator struct {
	fetcher     Fetcher
	filter      *filter.RelevanceFilter
	dedup       *dedup.Deduplicator
	store       Store
	concurrency int
}

func New(fetcher Fetcher, f *filter.RelevanceFilter, d *dedup.Deduplicator, store Store, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Orchestrator{
		fetcher:     fetcher,
		filter:      f,
		dedup:       d,
		store:       store,
		concurrency: concurrency,
	}
}

// Run executes one ingestion pass. One source failing never aborts the
// others; only a storage failure listing sources is run-fatal.
func (o *Orchestrator) Run(ctx context.Context) error {
	started := time.Now()

	sources, err := o.store.ListActiveSources(ctx)
	if err != nil {
		metrics.Global.SetError(err.Error())
		return fmt.Errorf("failed to list sources: %w", err)
	}
	if len(sources) == 0 {
		logger.Warn("no active sources configured")
		return nil
	}

	pool := dedup.NewBatchPool(o.dedup.Threshold())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			o.ingestSource(gctx, src, pool)
			return nil
		})
	}
	g.Wait()

	metrics.Global.RecordIngestDuration(time.Since(started))
	metrics.Global.SetLastRun()
	logger.Info("ingestion run complete",
		"sources", len(sources), "duration", time.Since(started))
	return nil
}

func (o *Orchestrator) ingestSource(ctx context.Context, src domain.Source, pool *dedup.BatchPool) {
	candidates, err := o.fetcher.Fetch(ctx, src)

	status := "success"
	if err != nil {
		status = truncateStatus("failed: " + err.Error())
		logger.Error("source fetch failed", "source", src.Name, "error", err)
	}
	if statusErr := o.store.UpdateSourceFetchStatus(ctx, src.ID, status); statusErr != nil {
		logger.Error("failed to record fetch status", "source", src.Name, "error", statusErr)
	}
	if err != nil {
		return
	}

	metrics.Global.AddFetched(len(candidates))

	saved := 0
	for _, c := range candidates {
		if ctx.Err() != nil {
			return
		}
		if o.ingestCandidate(ctx, src, c, pool) {
			saved++
		}
	}
	logger.Info("source ingested", "source", src.Name,
		"fetched", len(candidates), "saved", saved)
}

// ingestCandidate runs the per-candidate gates and persists survivors as
// pending. Data errors drop the candidate; they are not failures.
func (o *Orchestrator) ingestCandidate(ctx context.Context, src domain.Source, c domain.Candidate, pool *dedup.BatchPool) bool {
	if c.URL == "" || c.Title == "" || len(c.Title) > maxTitleLen {
		logger.Debug("dropping malformed candidate", "source", src.Name, "url", c.URL)
		return false
	}

	if ok, reason := o.filter.IsRelevant(c.Title, c.Body); !ok {
		logger.Debug("candidate filtered", "title", c.Title, "reason", reason)
		metrics.Global.IncrementFiltered()
		return false
	}

	duplicates, err := o.dedup.FindDuplicates(ctx, c.Title, c.URL)
	if err != nil {
		logger.Error("duplicate check failed, skipping candidate",
			"title", c.Title, "error", err)
		return false
	}
	if len(duplicates) > 0 {
		metrics.Global.IncrementDuplicates()
		return false
	}
	if pool.SeenOrAdd(c.Title) {
		metrics.Global.IncrementDuplicates()
		return false
	}

	article := &domain.Article{
		Title:       c.Title,
		URL:         c.URL,
		Content:     c.Body,
		PublishedAt: c.PublishedAt,
		Author:      c.Author,
		ImageURL:    c.ImageURL,
		SourceID:    src.ID,
		Status:      domain.StatusPending,
	}
	if _, err := o.store.InsertArticle(ctx, article); err != nil {
		logger.Error("failed to save article", "title", c.Title, "error", err)
		return false
	}
	metrics.Global.IncrementSaved()
	return true
}

func truncateStatus(s string) string {
	if len(s) <= maxStatusLen {
		return s
	}
	return s[:maxStatusLen]
}
