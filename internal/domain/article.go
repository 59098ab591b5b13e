package domain

import "time"

// ProcessingStatus is the per-article state machine: an article is created
// pending, transitions to processed or failed exactly once per enrichment
// attempt, and may be reset to pending externally for reprocessing.
type ProcessingStatus int

const (
	StatusPending   ProcessingStatus = 0
	StatusProcessed ProcessingStatus = 1
	StatusFailed    ProcessingStatus = 2
)

// RelevanceLevel is the coarse bucket derived from the composite score.
type RelevanceLevel string

const (
	RelevanceLow    RelevanceLevel = "low"
	RelevanceMedium RelevanceLevel = "medium"
	RelevanceHigh   RelevanceLevel = "high"
)

// Entity is a named entity extracted from an article.
type Entity struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Classification groups the four closed-vocabulary labels.
type Classification struct {
	Region  string
	Country string
	Theme   string
	Domain  string
}

// Scores holds the four category sub-scores plus the composite result.
// All scores are in [0,1].
type Scores struct {
	Geo        float64
	Military   float64
	Diplomatic float64
	Economic   float64
	Relevance  float64
	Level      RelevanceLevel
	IsPriority bool
}

// Summary is the structured analytic summary produced for high-relevance
// articles: a five-line bullet digest plus four briefing paragraphs.
type Summary struct {
	Bullets            string
	WhatHappened       string
	WhyMatters         string
	Implications       string
	FutureDevelopments string
}

// Article is the central entity. Identity fields (Title, URL, PublishedAt,
// Author, ImageURL, SourceID) are immutable after creation; the enrichment
// envelope is overwritten on every processing attempt.
type Article struct {
	ID          int64
	Title       string
	URL         string
	Content     string
	PublishedAt *time.Time
	Author      string
	ImageURL    string
	SourceID    int64

	Summary        Summary
	Scores         Scores
	Classification Classification
	Entities       []Entity

	Status          ProcessingStatus
	ProcessingError string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Candidate is a raw fetched record before filtering and persistence.
type Candidate struct {
	Title       string
	URL         string
	Body        string
	PublishedAt *time.Time
	Author      string
	ImageURL    string
}
