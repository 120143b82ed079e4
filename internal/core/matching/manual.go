package matching

import (
	"encoding/json"
	"log/slog"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

// ManualStats summarizes one manual-matcher run.
type ManualStats struct {
	RosterRows    int
	InvalidEntity int
	UnknownSymbol int
	Suggestions   int
}

// ManualMatcher joins an external symbol-to-entity table onto the stored
// canonical documents. Matches are treated as ground truth and carry no
// confidence score.
type ManualMatcher struct {
	vocab  *domain.EntityVocabulary
	logger *slog.Logger
}

func NewManualMatcher(vocab *domain.EntityVocabulary, logger *slog.Logger) *ManualMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ManualMatcher{vocab: vocab, logger: logger}
}

// Match resolves every roster row against the title index. Rows whose entity
// is not in the vocabulary, or whose symbol is not stored, are skipped with a
// count. Matches are grouped by (proper_title, entity); every contributing
// symbol lands in the suggestion's match details.
func (m *ManualMatcher) Match(index []domain.ReportTitle, roster []domain.RosterSymbolEntry) ([]domain.EntitySuggestion, ManualStats) {
	stats := ManualStats{RosterRows: len(roster)}

	titleBySymbol := make(map[string]string, len(index))
	for _, entry := range index {
		titleBySymbol[entry.Symbol] = entry.ProperTitle
	}

	type key struct {
		title  string
		entity domain.EntityCode
	}
	symbolsByKey := make(map[key][]string)
	var order []key

	for _, row := range roster {
		if !m.vocab.Contains(row.Entity) {
			stats.InvalidEntity++
			continue
		}
		title, ok := titleBySymbol[row.Symbol]
		if !ok || title == "" {
			stats.UnknownSymbol++
			continue
		}
		k := key{title: title, entity: row.Entity}
		if _, seen := symbolsByKey[k]; !seen {
			order = append(order, k)
		}
		symbolsByKey[k] = append(symbolsByKey[k], row.Symbol)
	}

	suggestions := make([]domain.EntitySuggestion, 0, len(order))
	for _, k := range order {
		details, _ := json.Marshal(map[string]any{
			"matched_symbols": dedupeStrings(symbolsByKey[k]),
		})
		suggestions = append(suggestions, domain.EntitySuggestion{
			ProperTitle:  k.title,
			Entity:       k.entity,
			Source:       domain.SourceManual,
			MatchDetails: details,
		})
	}
	stats.Suggestions = len(suggestions)

	m.logger.Info("manual_match_done",
		"roster_rows", stats.RosterRows,
		"invalid_entity", stats.InvalidEntity,
		"unknown_symbol", stats.UnknownSymbol,
		"suggestions", stats.Suggestions,
	)
	return suggestions, stats
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
