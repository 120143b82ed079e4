package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

type FrequencyRepository struct {
	db *sql.DB
}

func NewFrequencyRepository(db *sql.DB) *FrequencyRepository {
	return &FrequencyRepository{db: db}
}

func (r *FrequencyRepository) UpsertEstimates(ctx context.Context, estimates []domain.FrequencyEstimate) (int, error) {
	stored := 0
	for start := 0; start < len(estimates); start += upsertPageSize {
		end := start + upsertPageSize
		if end > len(estimates) {
			end = len(estimates)
		}
		if err := r.upsertPage(ctx, estimates[start:end]); err != nil {
			return stored, err
		}
		stored += end - start
	}
	return stored, nil
}

func (r *FrequencyRepository) upsertPage(ctx context.Context, estimates []domain.FrequencyEstimate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin frequency tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, e := range estimates {
		gaps := e.GapHistory
		if gaps == nil {
			gaps = []int{}
		}
		gapsJSON, err := json.Marshal(gaps)
		if err != nil {
			return fmt.Errorf("marshal gap history: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO frequency_estimates (proper_title, normalized_body, calculated_frequency, gap_history, year_count, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (proper_title, normalized_body) DO UPDATE SET
	calculated_frequency = EXCLUDED.calculated_frequency,
	gap_history = EXCLUDED.gap_history,
	year_count = EXCLUDED.year_count,
	updated_at = EXCLUDED.updated_at
`, e.ProperTitle, e.NormalizedBody, string(e.CalculatedFrequency), gapsJSON, e.YearCount, now)
		if err != nil {
			return fmt.Errorf("upsert estimate %q: %w", e.ProperTitle, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit frequency tx: %w", err)
	}
	return nil
}
