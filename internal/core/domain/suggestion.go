package domain

import (
	"encoding/json"
	"time"
)

// SuggestionSource identifies which matcher produced a suggestion. Sources
// are never merged; reconciliation happens downstream.
type SuggestionSource string

const (
	SourceManual SuggestionSource = "manual"
	SourceFuzzy  SuggestionSource = "fuzzy"
	SourceAI     SuggestionSource = "ai"
)

// EntitySuggestion attributes a report series (keyed by proper title) to a
// responsible entity. Natural key: (proper_title, entity, source).
type EntitySuggestion struct {
	ProperTitle     string
	Entity          EntityCode
	Source          SuggestionSource
	ConfidenceScore *float64
	MatchDetails    json.RawMessage
	CreatedAt       time.Time
}

// ConfidenceBucket is the classifier's discretized self-assessment.
type ConfidenceBucket string

const (
	ConfidenceHigh   ConfidenceBucket = "high"
	ConfidenceMedium ConfidenceBucket = "medium"
	ConfidenceLow    ConfidenceBucket = "low"
)

// Score maps a bucket to its fixed numeric confidence. Unknown buckets fall
// back to medium rather than failing a whole classification.
func (b ConfidenceBucket) Score() float64 {
	switch b {
	case ConfidenceHigh:
		return 0.9
	case ConfidenceLow:
		return 0.5
	default:
		return 0.7
	}
}

// EntityGuess is one classifier output for a report.
type EntityGuess struct {
	Entity     EntityCode
	Confidence ConfidenceBucket
	Reasoning  string
}

// RosterSymbolEntry is one row of an external symbol-to-entity mapping.
type RosterSymbolEntry struct {
	Symbol string
	Entity EntityCode
}

// RosterTitleEntry is one row of an external title-to-entity roster.
type RosterTitleEntry struct {
	Title  string
	Entity EntityCode
}

// SuggestionSourceStats summarizes the suggestion store per source after a
// resolver run.
type SuggestionSourceStats struct {
	Source         SuggestionSource
	Count          int
	UniqueReports  int
	UniqueEntities int
	AvgConfidence  *float64
}
