package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database settings
	DatabaseURL string

	// Gemini settings
	GeminiAPIKey      string
	GeminiModel       string
	MaxLLMRequests    int           // maximum LLM requests per day (0 = unlimited)
	LLMMinInterval    time.Duration // minimum spacing between outbound LLM calls
	LLMCacheTTLHours  int
	EnrichBatchSize   int

	// Source settings
	SourcesConfigPath string
	NewsAPIKey        string
	SocialBearerToken string
	FetchConcurrency  int
	FeedEntryCap      int
	BodyCharCap       int

	// Scoring weights (must sum to 1.0)
	WeightGeo        float64
	WeightMilitary   float64
	WeightDiplomatic float64
	WeightEconomic   float64

	// Dedup settings
	DedupThreshold     float64
	DedupLookbackHours int
	RetentionDays      int

	// Scheduler settings
	IngestInterval  time.Duration
	EnrichInterval  time.Duration
	CleanupInterval time.Duration
	RunTimeout      time.Duration

	// App settings
	Debug          bool
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		GeminiModel:        "gemini-1.5-flash",
		MaxLLMRequests:     200,
		LLMMinInterval:     500 * time.Millisecond,
		LLMCacheTTLHours:   48,
		EnrichBatchSize:    10,
		SourcesConfigPath:  "configs/sources.yaml",
		FetchConcurrency:   5,
		FeedEntryCap:       50,
		BodyCharCap:        10000,
		WeightGeo:          0.35,
		WeightMilitary:     0.30,
		WeightDiplomatic:   0.20,
		WeightEconomic:     0.15,
		DedupThreshold:     0.85,
		DedupLookbackHours: 72,
		RetentionDays:      90,
		IngestInterval:     30 * time.Minute,
		EnrichInterval:     10 * time.Minute,
		CleanupInterval:    7 * 24 * time.Hour,
		RunTimeout:         10 * time.Minute,
		RequestTimeout:     30 * time.Second,
		RetryAttempts:      3,
		RetryDelay:         5 * time.Second,
	}

	// Load from environment
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.NewsAPIKey = os.Getenv("NEWSAPI_KEY")
	cfg.SocialBearerToken = os.Getenv("SOCIAL_BEARER_TOKEN")

	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		cfg.GeminiModel = model
	}
	if path := os.Getenv("SOURCES_CONFIG_PATH"); path != "" {
		cfg.SourcesConfigPath = path
	}

	cfg.MaxLLMRequests = getEnvIntOrDefault("MAX_LLM_REQUESTS_PER_DAY", cfg.MaxLLMRequests)
	cfg.LLMCacheTTLHours = getEnvIntOrDefault("LLM_CACHE_TTL_HOURS", cfg.LLMCacheTTLHours)
	cfg.EnrichBatchSize = getEnvIntOrDefault("ENRICH_BATCH_SIZE", cfg.EnrichBatchSize)
	cfg.FetchConcurrency = getEnvIntOrDefault("FETCH_CONCURRENCY", cfg.FetchConcurrency)
	cfg.FeedEntryCap = getEnvIntOrDefault("FEED_ENTRY_CAP", cfg.FeedEntryCap)
	cfg.BodyCharCap = getEnvIntOrDefault("BODY_CHAR_CAP", cfg.BodyCharCap)
	cfg.DedupLookbackHours = getEnvIntOrDefault("DEDUP_LOOKBACK_HOURS", cfg.DedupLookbackHours)
	cfg.RetentionDays = getEnvIntOrDefault("RETENTION_DAYS", cfg.RetentionDays)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)

	cfg.WeightGeo = getEnvFloatOrDefault("WEIGHT_GEO", cfg.WeightGeo)
	cfg.WeightMilitary = getEnvFloatOrDefault("WEIGHT_MILITARY", cfg.WeightMilitary)
	cfg.WeightDiplomatic = getEnvFloatOrDefault("WEIGHT_DIPLOMATIC", cfg.WeightDiplomatic)
	cfg.WeightEconomic = getEnvFloatOrDefault("WEIGHT_ECONOMIC", cfg.WeightEconomic)
	cfg.DedupThreshold = getEnvFloatOrDefault("DEDUP_THRESHOLD", cfg.DedupThreshold)

	if v := os.Getenv("INGEST_INTERVAL_MINUTES"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.IngestInterval = time.Duration(val) * time.Minute
		}
	}
	if v := os.Getenv("ENRICH_INTERVAL_MINUTES"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.EnrichInterval = time.Duration(val) * time.Minute
		}
	}
	if v := os.Getenv("CLEANUP_INTERVAL_HOURS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.CleanupInterval = time.Duration(val) * time.Hour
		}
	}
	if v := os.Getenv("RUN_TIMEOUT_MINUTES"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RunTimeout = time.Duration(val) * time.Minute
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RequestTimeout = time.Duration(val) * time.Second
		}
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil && floatValue > 0 {
			return floatValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	sum := c.WeightGeo + c.WeightMilitary + c.WeightDiplomatic + c.WeightEconomic
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.4f", sum)
	}
	if c.DedupThreshold <= 0 || c.DedupThreshold > 1 {
		return fmt.Errorf("DEDUP_THRESHOLD must be in (0,1], got %.2f", c.DedupThreshold)
	}
	if c.EnrichBatchSize <= 0 {
		return fmt.Errorf("ENRICH_BATCH_SIZE must be positive")
	}
	return nil
}
