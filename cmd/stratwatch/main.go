package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stratwatch/internal/cache"
	"stratwatch/internal/config"
	"stratwatch/internal/dedup"
	"stratwatch/internal/enrich"
	"stratwatch/internal/fetch"
	"stratwatch/internal/filter"
	"stratwatch/internal/ingest"
	"stratwatch/internal/llm"
	"stratwatch/internal/logger"
	"stratwatch/internal/metrics"
	"stratwatch/internal/scheduler"
	"stratwatch/internal/score"
	"stratwatch/internal/storage"
)

func main() {
	_ = godotenv.Load()
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		go startMonitoringServer()
	}

	store, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("storage error: %v", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seedSources(ctx, cfg, store)

	keywordScorer := score.NewKeywordScorer(score.Weights{
		Geo:        cfg.WeightGeo,
		Military:   cfg.WeightMilitary,
		Diplomatic: cfg.WeightDiplomatic,
		Economic:   cfg.WeightEconomic,
	})

	var llmClient *llm.Client
	if cfg.GeminiAPIKey != "" {
		budget := llm.NewBudget(cfg.MaxLLMRequests)
		llmClient, err = llm.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMMinInterval, budget)
		if err != nil {
			log.Fatalf("model client error: %v", err)
		}
	} else {
		logger.Warn("GEMINI_API_KEY not set, model scoring and summaries disabled")
	}

	scorer := llm.NewScorer(llmClient, keywordScorer, cache.New(),
		time.Duration(cfg.LLMCacheTTLHours)*time.Hour)
	analyzer := llm.NewAnalyzer(llmClient)

	deduplicator := dedup.New(store, cfg.DedupThreshold, cfg.DedupLookbackHours)
	fetcher := fetch.New(fetch.Options{
		NewsAPIKey:        cfg.NewsAPIKey,
		SocialBearerToken: cfg.SocialBearerToken,
		EntryCap:          cfg.FeedEntryCap,
		BodyCap:           cfg.BodyCharCap,
		Timeout:           cfg.RequestTimeout,
		RetryAttempts:     cfg.RetryAttempts,
		RetryDelay:        cfg.RetryDelay,
	})

	ingestion := ingest.New(fetcher, filter.NewRelevanceFilter(), deduplicator, store, cfg.FetchConcurrency)
	enrichment := enrich.New(store, scorer, analyzer, cfg.EnrichBatchSize)

	sched := scheduler.New(
		scheduler.Job{
			Name:     "ingest",
			Interval: cfg.IngestInterval,
			Timeout:  cfg.RunTimeout,
			Run:      ingestion.Run,
		},
		scheduler.Job{
			Name:     "enrich",
			Interval: cfg.EnrichInterval,
			Timeout:  cfg.RunTimeout,
			Run:      enrichment.Run,
		},
		scheduler.Job{
			Name:     "cleanup",
			Interval: cfg.CleanupInterval,
			Timeout:  cfg.RunTimeout,
			Run: func(jobCtx context.Context) error {
				deleted, err := deduplicator.CleanupOldArticles(jobCtx, cfg.RetentionDays)
				if err != nil {
					return err
				}
				if deleted > 0 {
					logger.Info("old articles removed", "count", deleted)
				}
				return nil
			},
		},
	)

	logger.Info("pipeline starting",
		"ingest_interval", cfg.IngestInterval,
		"enrich_interval", cfg.EnrichInterval,
		"batch_size", cfg.EnrichBatchSize)
	sched.Start(ctx)
	logger.Info("pipeline stopped")
}

// seedSources upserts the YAML catalogue. A missing file is not fatal:
// sources may be managed entirely through the database.
func seedSources(ctx context.Context, cfg *config.Config, store *storage.Store) {
	sources, err := config.LoadSources(cfg.SourcesConfigPath)
	if err != nil {
		logger.Warn("source catalogue not loaded", "path", cfg.SourcesConfigPath, "error", err)
		return
	}
	for i := range sources {
		if err := store.UpsertSource(ctx, &sources[i]); err != nil {
			logger.Error("source seed failed", "source", sources[i].Name, "error", err)
		}
	}
	logger.Info("source catalogue seeded", "count", len(sources))
}

func startMonitoringServer() {
	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/metrics", metricsHandler)

	log.Printf("Starting monitoring server on port %s", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Printf("Monitoring server error: %v", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
