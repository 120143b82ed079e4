package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

type MandateRepository struct {
	db *sql.DB
}

func NewMandateRepository(db *sql.DB) *MandateRepository {
	return &MandateRepository{db: db}
}

// UpsertMandates keys on (resolution_symbol, paragraph hash), so
// re-extracting an unchanged paragraph is a no-op and a reworded paragraph
// lands as a new row.
func (r *MandateRepository) UpsertMandates(ctx context.Context, mandates []domain.Mandate) (int, error) {
	stored := 0
	for start := 0; start < len(mandates); start += upsertPageSize {
		end := start + upsertPageSize
		if end > len(mandates) {
			end = len(mandates)
		}
		if err := r.upsertPage(ctx, mandates[start:end]); err != nil {
			return stored, err
		}
		stored += end - start
	}
	return stored, nil
}

func (r *MandateRepository) upsertPage(ctx context.Context, mandates []domain.Mandate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mandate tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, m := range mandates {
		var raw any
		if len(m.RawResponse) > 0 {
			raw = []byte(m.RawResponse)
		}
		createdAt := m.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO mandates (
	resolution_symbol, paragraph_hash, verbatim_paragraph, summary,
	explicit_frequency, implicit_frequency, frequency_reasoning, raw_response, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (resolution_symbol, paragraph_hash) DO UPDATE SET
	summary = EXCLUDED.summary,
	explicit_frequency = EXCLUDED.explicit_frequency,
	implicit_frequency = EXCLUDED.implicit_frequency,
	frequency_reasoning = EXCLUDED.frequency_reasoning,
	raw_response = EXCLUDED.raw_response
`, m.ResolutionSymbol, m.ParagraphHash(), m.VerbatimParagraph, m.Summary,
			m.ExplicitFrequency, m.ImplicitFrequency, m.FrequencyReasoning, raw, createdAt)
		if err != nil {
			return fmt.Errorf("upsert mandate %s: %w", m.ResolutionSymbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mandate tx: %w", err)
	}
	return nil
}
