package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/unpulse/sg-report-tracker/internal/core/frequency"
	"github.com/unpulse/sg-report-tracker/internal/core/ports"
)

// EstimateFrequenciesUseCase recomputes the recurrence label of every stored
// report series from scratch. No incremental update: the label always
// reflects the complete stored history.
type EstimateFrequenciesUseCase struct {
	repo      ports.DocumentRepository
	estimates ports.FrequencyRepository
	estimator *frequency.Estimator
	logger    *slog.Logger
}

func NewEstimateFrequenciesUseCase(
	repo ports.DocumentRepository,
	estimates ports.FrequencyRepository,
	estimator *frequency.Estimator,
	logger *slog.Logger,
) *EstimateFrequenciesUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &EstimateFrequenciesUseCase{
		repo:      repo,
		estimates: estimates,
		estimator: estimator,
		logger:    logger,
	}
}

type FrequencyResult struct {
	Series int
	Stored int
}

func (uc *EstimateFrequenciesUseCase) Run(ctx context.Context) (FrequencyResult, error) {
	var result FrequencyResult

	series, err := uc.repo.SeriesYears(ctx)
	if err != nil {
		return result, fmt.Errorf("load series years: %w", err)
	}
	result.Series = len(series)
	if len(series) == 0 {
		return result, nil
	}

	estimates := uc.estimator.EstimateSeries(series)
	stored, err := uc.estimates.UpsertEstimates(ctx, estimates)
	if err != nil {
		return result, fmt.Errorf("upsert frequency estimates: %w", err)
	}
	result.Stored = stored

	uc.logger.Info("frequency_estimation_done", "series", result.Series, "stored", result.Stored)
	return result, nil
}
