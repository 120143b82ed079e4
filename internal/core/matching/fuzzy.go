package matching

import (
	"encoding/json"
	"log/slog"
	"math"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

// DefaultFuzzyThreshold is the minimum similarity ratio a candidate must
// reach. A score of exactly the threshold is accepted.
const DefaultFuzzyThreshold = 0.8

// fallbackPoolSize bounds the candidate pool when the shared-word pre-filter
// eliminates everything; short or low-signal roster titles would otherwise
// either match nothing or force scoring the entire index.
const fallbackPoolSize = 50

// FuzzyStats summarizes one fuzzy-matcher run.
type FuzzyStats struct {
	RosterRows     int
	InvalidEntity  int
	BelowThreshold int
	Suggestions    int
}

// FuzzyMatcher resolves external (title, entity) roster rows against stored
// report titles by normalized-string similarity.
type FuzzyMatcher struct {
	vocab     *domain.EntityVocabulary
	threshold float64
	logger    *slog.Logger
}

func NewFuzzyMatcher(vocab *domain.EntityVocabulary, threshold float64, logger *slog.Logger) *FuzzyMatcher {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FuzzyMatcher{vocab: vocab, threshold: threshold, logger: logger}
}

type fuzzyCandidate struct {
	properTitle string
	normalized  string
	words       map[string]struct{}
}

// Match scores every distinct normalized roster title against the stored
// title index and keeps, per canonical title, the best-scoring suggestion per
// (title, entity). Candidates are pre-filtered to those sharing at least two
// significant words with the roster title; when nothing survives the filter
// the first fallbackPoolSize candidates are scored instead.
func (m *FuzzyMatcher) Match(index []domain.ReportTitle, roster []domain.RosterTitleEntry) ([]domain.EntitySuggestion, FuzzyStats) {
	stats := FuzzyStats{RosterRows: len(roster)}

	candidates := make([]fuzzyCandidate, 0, len(index))
	seenTitles := make(map[string]struct{}, len(index))
	for _, entry := range index {
		if entry.ProperTitle == "" {
			continue
		}
		normalized := NormalizeTitle(entry.FullTitle())
		if _, dup := seenTitles[normalized]; dup {
			continue
		}
		seenTitles[normalized] = struct{}{}
		candidates = append(candidates, fuzzyCandidate{
			properTitle: entry.ProperTitle,
			normalized:  normalized,
			words:       SignificantWords(normalized),
		})
	}

	type key struct {
		title  string
		entity domain.EntityCode
	}
	type match struct {
		score       float64
		rosterTitle string
		matched     string
	}
	best := make(map[key]match)
	var order []key

	seenQueries := make(map[string]struct{}, len(roster))
	for _, row := range roster {
		query := NormalizeTitle(row.Title)
		if query == "" {
			continue
		}
		if _, dup := seenQueries[query+"\x00"+string(row.Entity)]; dup {
			continue
		}
		seenQueries[query+"\x00"+string(row.Entity)] = struct{}{}

		if !m.vocab.Contains(row.Entity) {
			stats.InvalidEntity++
			continue
		}

		candidate, score, ok := m.bestCandidate(query, candidates)
		if !ok {
			continue
		}
		if score < m.threshold {
			stats.BelowThreshold++
			continue
		}

		k := key{title: candidate.properTitle, entity: row.Entity}
		prev, seen := best[k]
		if !seen {
			order = append(order, k)
		}
		if !seen || score > prev.score {
			best[k] = match{score: score, rosterTitle: row.Title, matched: candidate.normalized}
		}
	}

	suggestions := make([]domain.EntitySuggestion, 0, len(order))
	for _, k := range order {
		hit := best[k]
		score := math.Round(hit.score*1000) / 1000
		details, _ := json.Marshal(map[string]any{
			"roster_title":  hit.rosterTitle,
			"matched_title": hit.matched,
		})
		suggestions = append(suggestions, domain.EntitySuggestion{
			ProperTitle:     k.title,
			Entity:          k.entity,
			Source:          domain.SourceFuzzy,
			ConfidenceScore: &score,
			MatchDetails:    details,
		})
	}
	stats.Suggestions = len(suggestions)

	m.logger.Info("fuzzy_match_done",
		"roster_rows", stats.RosterRows,
		"invalid_entity", stats.InvalidEntity,
		"below_threshold", stats.BelowThreshold,
		"suggestions", stats.Suggestions,
	)
	return suggestions, stats
}

// bestCandidate returns the highest-scoring candidate for a normalized query
// title. Ties keep the earliest candidate in index order.
func (m *FuzzyMatcher) bestCandidate(query string, candidates []fuzzyCandidate) (fuzzyCandidate, float64, bool) {
	queryWords := SignificantWords(query)

	pool := make([]fuzzyCandidate, 0, len(candidates))
	for _, c := range candidates {
		if sharedWordCount(queryWords, c.words) >= 2 {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		if len(candidates) > fallbackPoolSize {
			pool = candidates[:fallbackPoolSize]
		} else {
			pool = candidates
		}
	}
	if len(pool) == 0 {
		return fuzzyCandidate{}, 0, false
	}

	bestIdx := -1
	bestScore := -1.0
	for i, c := range pool {
		if score := Ratio(query, c.normalized); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	return pool[bestIdx], bestScore, true
}
