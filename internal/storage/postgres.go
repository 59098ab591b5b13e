package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"stratwatch/internal/domain"
	"stratwatch/internal/logger"
)

// Store is the Postgres persistence layer for articles and sources. It is
// the single source of truth the two pipeline jobs communicate through.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func New(connectionString string) (*Store, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("database connected")
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id SERIAL PRIMARY KEY,
		name VARCHAR(200) UNIQUE NOT NULL,
		url TEXT NOT NULL,
		feed_url TEXT,
		type VARCHAR(20) NOT NULL DEFAULT 'feed',
		category VARCHAR(50),
		country VARCHAR(100),
		language VARCHAR(10),
		description TEXT,
		reliability_score INTEGER DEFAULT 5,
		bias_rating VARCHAR(50),
		active BOOLEAN NOT NULL DEFAULT TRUE,
		fetch_interval_minutes INTEGER DEFAULT 60,
		last_fetched_at TIMESTAMP,
		last_fetch_status VARCHAR(255),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS articles (
		id SERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		url TEXT UNIQUE NOT NULL,
		content TEXT,
		published_at TIMESTAMP,
		author VARCHAR(255),
		image_url TEXT,
		source_id INTEGER REFERENCES sources(id),
		summary_bullets TEXT,
		what_happened TEXT,
		why_matters TEXT,
		implications TEXT,
		future_developments TEXT,
		geo_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		military_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		diplomatic_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		economic_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		relevance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		relevance_level VARCHAR(10) NOT NULL DEFAULT 'low',
		is_priority BOOLEAN NOT NULL DEFAULT FALSE,
		region VARCHAR(50),
		country VARCHAR(100),
		theme VARCHAR(50),
		domain VARCHAR(20),
		entities JSONB NOT NULL DEFAULT '[]',
		is_processed INTEGER NOT NULL DEFAULT 0,
		processing_error TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_articles_url ON articles(url);
	CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles(created_at);
	CREATE INDEX IF NOT EXISTS idx_articles_is_processed ON articles(is_processed);
	CREATE INDEX IF NOT EXISTS idx_articles_relevance_level ON articles(relevance_level);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const articleColumns = `id, title, url, COALESCE(content, ''), published_at,
	COALESCE(author, ''), COALESCE(image_url, ''), COALESCE(source_id, 0),
	COALESCE(summary_bullets, ''), COALESCE(what_happened, ''),
	COALESCE(why_matters, ''), COALESCE(implications, ''),
	COALESCE(future_developments, ''),
	geo_score, military_score, diplomatic_score, economic_score,
	relevance_score, relevance_level, is_priority,
	COALESCE(region, ''), COALESCE(country, ''), COALESCE(theme, ''),
	COALESCE(domain, ''), entities, is_processed,
	COALESCE(processing_error, ''), created_at, updated_at`

func scanArticle(row interface{ Scan(...interface{}) error }) (*domain.Article, error) {
	var a domain.Article
	var entities []byte
	err := row.Scan(
		&a.ID, &a.Title, &a.URL, &a.Content, &a.PublishedAt,
		&a.Author, &a.ImageURL, &a.SourceID,
		&a.Summary.Bullets, &a.Summary.WhatHappened,
		&a.Summary.WhyMatters, &a.Summary.Implications,
		&a.Summary.FutureDevelopments,
		&a.Scores.Geo, &a.Scores.Military, &a.Scores.Diplomatic,
		&a.Scores.Economic, &a.Scores.Relevance, &a.Scores.Level,
		&a.Scores.IsPriority,
		&a.Classification.Region, &a.Classification.Country,
		&a.Classification.Theme, &a.Classification.Domain,
		&entities, &a.Status, &a.ProcessingError,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(entities) > 0 {
		if err := json.Unmarshal(entities, &a.Entities); err != nil {
			logger.Warn("unreadable entities payload", "article_id", a.ID, "error", err)
		}
	}
	return &a, nil
}

// GetArticleByURL returns nil when no article has that URL.
func (s *Store) GetArticleByURL(ctx context.Context, url string) (*domain.Article, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE url = $1`, url)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query article by url: %w", err)
	}
	return a, nil
}

// RecentArticles returns articles created at or after the given time.
func (s *Store) RecentArticles(ctx context.Context, since time.Time) ([]domain.Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE created_at >= $1 ORDER BY created_at DESC`,
		since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent articles: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}

// PendingArticles returns up to limit pending articles, oldest first, so a
// bounded enrichment batch drains the backlog in creation order.
func (s *Store) PendingArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE is_processed = $1 ORDER BY created_at ASC LIMIT $2`,
		domain.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending articles: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}

func collectArticles(rows *sql.Rows) ([]domain.Article, error) {
	var articles []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// InsertArticle persists a new pending article and returns its id. The URL
// uniqueness constraint is the hard dedup backstop: a conflicting insert
// reports the existing row instead of creating a duplicate.
func (s *Store) InsertArticle(ctx context.Context, a *domain.Article) (int64, error) {
	query, args, err := s.sb.Insert("articles").
		Columns("title", "url", "content", "published_at", "author",
			"image_url", "source_id", "is_processed").
		Values(a.Title, a.URL, a.Content, a.PublishedAt, a.Author,
			a.ImageURL, nullableID(a.SourceID), domain.StatusPending).
		Suffix("ON CONFLICT (url) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("article with url %s already exists", a.URL)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert article: %w", err)
	}
	return id, nil
}

func nullableID(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}

// UpdateEnrichment overwrites the enrichment envelope and marks the
// article processed. Safe to re-run over already-enriched rows.
func (s *Store) UpdateEnrichment(ctx context.Context, a *domain.Article) error {
	entities, err := json.Marshal(a.Entities)
	if err != nil {
		return fmt.Errorf("failed to encode entities: %w", err)
	}
	if a.Entities == nil {
		entities = []byte("[]")
	}

	query, args, err := s.sb.Update("articles").
		Set("summary_bullets", a.Summary.Bullets).
		Set("what_happened", a.Summary.WhatHappened).
		Set("why_matters", a.Summary.WhyMatters).
		Set("implications", a.Summary.Implications).
		Set("future_developments", a.Summary.FutureDevelopments).
		Set("geo_score", a.Scores.Geo).
		Set("military_score", a.Scores.Military).
		Set("diplomatic_score", a.Scores.Diplomatic).
		Set("economic_score", a.Scores.Economic).
		Set("relevance_score", a.Scores.Relevance).
		Set("relevance_level", a.Scores.Level).
		Set("is_priority", a.Scores.IsPriority).
		Set("region", a.Classification.Region).
		Set("country", a.Classification.Country).
		Set("theme", a.Classification.Theme).
		Set("domain", a.Classification.Domain).
		Set("entities", entities).
		Set("is_processed", domain.StatusProcessed).
		Set("processing_error", "").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": a.ID}).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update enrichment: %w", err)
	}
	return nil
}

// MarkFailed records a terminal per-attempt failure with its error text.
func (s *Store) MarkFailed(ctx context.Context, articleID int64, errText string) error {
	query, args, err := s.sb.Update("articles").
		Set("is_processed", domain.StatusFailed).
		Set("processing_error", errText).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": articleID}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark article failed: %w", err)
	}
	return nil
}

// ResetToPending is the external reprocessing transition: the given
// articles go back to pending and will be picked up by the next
// enrichment run.
func (s *Store) ResetToPending(ctx context.Context, articleIDs []int64) (int64, error) {
	if len(articleIDs) == 0 {
		return 0, nil
	}
	query, args, err := s.sb.Update("articles").
		Set("is_processed", domain.StatusPending).
		Set("processing_error", "").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": articleIDs}).
		ToSql()
	if err != nil {
		return 0, err
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to reset articles: %w", err)
	}
	return result.RowsAffected()
}

// DeleteArticlesBefore bulk-deletes articles past the retention cutoff.
func (s *Store) DeleteArticlesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old articles: %w", err)
	}
	return result.RowsAffected()
}

// CountDuplicateTitleGroups counts groups of articles sharing a title
// prefix. Diagnostic only.
func (s *Store) CountDuplicateTitleGroups(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT LEFT(LOWER(title), 50)
			FROM articles
			GROUP BY LEFT(LOWER(title), 50)
			HAVING COUNT(*) > 1
		) groups`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count duplicate groups: %w", err)
	}
	return count, nil
}

// ListActiveSources returns all sources eligible for fetching.
func (s *Store) ListActiveSources(ctx context.Context) ([]domain.Source, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, url, COALESCE(feed_url, ''), type,
			COALESCE(category, ''), COALESCE(country, ''),
			COALESCE(language, ''), COALESCE(description, ''),
			reliability_score, COALESCE(bias_rating, ''), active,
			fetch_interval_minutes, last_fetched_at,
			COALESCE(last_fetch_status, ''), created_at, updated_at
		FROM sources WHERE active = TRUE ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var src domain.Source
		err := rows.Scan(&src.ID, &src.Name, &src.URL, &src.FeedURL, &src.Type,
			&src.Category, &src.Country, &src.Language, &src.Description,
			&src.ReliabilityScore, &src.BiasRating, &src.Active,
			&src.FetchIntervalMinutes, &src.LastFetchedAt,
			&src.LastFetchStatus, &src.CreatedAt, &src.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// UpdateSourceFetchStatus records last-fetch bookkeeping; called after
// every fetch attempt regardless of outcome.
func (s *Store) UpdateSourceFetchStatus(ctx context.Context, sourceID int64, status string) error {
	query, args, err := s.sb.Update("sources").
		Set("last_fetched_at", sq.Expr("NOW()")).
		Set("last_fetch_status", status).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": sourceID}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update source status: %w", err)
	}
	return nil
}

// UpsertSource seeds or refreshes a source by name. Admin-controlled
// fields (active) are not overwritten on conflict so seed runs do not undo
// deactivations.
func (s *Store) UpsertSource(ctx context.Context, src *domain.Source) error {
	query, args, err := s.sb.Insert("sources").
		Columns("name", "url", "feed_url", "type", "category", "country",
			"language", "description", "reliability_score", "bias_rating",
			"active", "fetch_interval_minutes").
		Values(src.Name, src.URL, src.FeedURL, src.Type, src.Category,
			src.Country, src.Language, src.Description, src.ReliabilityScore,
			src.BiasRating, src.Active, src.FetchIntervalMinutes).
		Suffix(`ON CONFLICT (name) DO UPDATE SET
			url = EXCLUDED.url,
			feed_url = EXCLUDED.feed_url,
			type = EXCLUDED.type,
			category = EXCLUDED.category,
			country = EXCLUDED.country,
			language = EXCLUDED.language,
			description = EXCLUDED.description,
			reliability_score = EXCLUDED.reliability_score,
			bias_rating = EXCLUDED.bias_rating,
			fetch_interval_minutes = EXCLUDED.fetch_interval_minutes,
			updated_at = NOW()`).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert source %s: %w", src.Name, err)
	}
	return nil
}
