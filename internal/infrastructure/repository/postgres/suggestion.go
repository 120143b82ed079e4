package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

type SuggestionRepository struct {
	db *sql.DB
}

func NewSuggestionRepository(db *sql.DB) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

// Truncate empties the suggestion store. A resolver run rebuilds it from
// scratch rather than reconciling with stale rows.
func (r *SuggestionRepository) Truncate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `TRUNCATE entity_suggestions`); err != nil {
		return fmt.Errorf("truncate suggestions: %w", err)
	}
	return nil
}

func (r *SuggestionRepository) UpsertSuggestions(ctx context.Context, suggestions []domain.EntitySuggestion) (int, error) {
	stored := 0
	for start := 0; start < len(suggestions); start += upsertPageSize {
		end := start + upsertPageSize
		if end > len(suggestions) {
			end = len(suggestions)
		}
		if err := r.upsertPage(ctx, suggestions[start:end]); err != nil {
			return stored, err
		}
		stored += end - start
	}
	return stored, nil
}

func (r *SuggestionRepository) upsertPage(ctx context.Context, suggestions []domain.EntitySuggestion) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin suggestion tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, s := range suggestions {
		var details any
		if len(s.MatchDetails) > 0 {
			details = []byte(s.MatchDetails)
		}
		var confidence any
		if s.ConfidenceScore != nil {
			confidence = *s.ConfidenceScore
		}
		createdAt := s.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO entity_suggestions (proper_title, entity, source, confidence_score, match_details, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (proper_title, entity, source) DO UPDATE SET
	confidence_score = EXCLUDED.confidence_score,
	match_details = EXCLUDED.match_details
`, s.ProperTitle, string(s.Entity), string(s.Source), confidence, details, createdAt)
		if err != nil {
			return fmt.Errorf("upsert suggestion %q/%s: %w", s.ProperTitle, s.Entity, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit suggestion tx: %w", err)
	}
	return nil
}

func (r *SuggestionRepository) SourceStats(ctx context.Context) ([]domain.SuggestionSourceStats, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT source, COUNT(*), COUNT(DISTINCT proper_title), COUNT(DISTINCT entity), AVG(confidence_score)
FROM entity_suggestions
GROUP BY source
ORDER BY source
`)
	if err != nil {
		return nil, fmt.Errorf("query suggestion stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.SuggestionSourceStats
	for rows.Next() {
		var s domain.SuggestionSourceStats
		var source string
		var avg sql.NullFloat64
		if err := rows.Scan(&source, &s.Count, &s.UniqueReports, &s.UniqueEntities, &avg); err != nil {
			return nil, fmt.Errorf("scan suggestion stats: %w", err)
		}
		s.Source = domain.SuggestionSource(source)
		if avg.Valid {
			value := avg.Float64
			s.AvgConfidence = &value
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
