package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
	"github.com/unpulse/sg-report-tracker/internal/core/ports"
)

// maxResolutionChars bounds the resolution text sent to the extraction model
// so long annexes never blow the context window.
const maxResolutionChars = 50000

type MandateConfig struct {
	YearMin     int
	Concurrency int
}

// ExtractMandatesUseCase runs structured mandate extraction over stored
// resolutions. Per-resolution failures are recorded and the batch continues;
// zero mandates for a resolution is a normal result.
type ExtractMandatesUseCase struct {
	repo      ports.DocumentRepository
	mandates  ports.MandateRepository
	extractor ports.MandateExtractor
	cfg       MandateConfig
	logger    *slog.Logger
}

func NewExtractMandatesUseCase(
	repo ports.DocumentRepository,
	mandates ports.MandateRepository,
	extractor ports.MandateExtractor,
	cfg MandateConfig,
	logger *slog.Logger,
) *ExtractMandatesUseCase {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractMandatesUseCase{
		repo:      repo,
		mandates:  mandates,
		extractor: extractor,
		cfg:       cfg,
		logger:    logger,
	}
}

type MandateResult struct {
	Resolutions int
	Extracted   int
	Empty       int
	Failures    int
	Stored      int
}

func (uc *ExtractMandatesUseCase) Run(ctx context.Context) (MandateResult, error) {
	var result MandateResult

	resolutions, err := uc.repo.ResolutionsForMandates(ctx, uc.cfg.YearMin)
	if err != nil {
		return result, fmt.Errorf("load resolutions: %w", err)
	}
	result.Resolutions = len(resolutions)
	if len(resolutions) == 0 {
		return result, nil
	}

	extractions := uc.extractAll(ctx, resolutions)

	var mandates []domain.Mandate
	for _, ex := range extractions {
		if !ex.Success {
			result.Failures++
			uc.logger.Warn("mandate_extraction_failed", "symbol", ex.ResolutionSymbol, "error", ex.Error)
			continue
		}
		if len(ex.Mandates) == 0 {
			result.Empty++
			continue
		}
		result.Extracted += len(ex.Mandates)
		mandates = append(mandates, ex.Mandates...)
	}
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("mandate extraction interrupted: %w", err)
	}

	if len(mandates) > 0 {
		stored, err := uc.mandates.UpsertMandates(ctx, mandates)
		if err != nil {
			return result, fmt.Errorf("upsert mandates: %w", err)
		}
		result.Stored = stored
	}

	uc.logger.Info("mandate_extraction_done",
		"resolutions", result.Resolutions,
		"extracted", result.Extracted,
		"empty", result.Empty,
		"failures", result.Failures,
		"stored", result.Stored,
	)
	return result, nil
}

func (uc *ExtractMandatesUseCase) extractAll(ctx context.Context, resolutions []domain.ResolutionText) []domain.MandateExtraction {
	jobs := make(chan domain.ResolutionText)
	results := make(chan domain.MandateExtraction)

	var wg sync.WaitGroup
	for w := 0; w < uc.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for res := range jobs {
				results <- uc.extractOne(ctx, res)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, res := range resolutions {
			select {
			case jobs <- res:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	extractions := make([]domain.MandateExtraction, 0, len(resolutions))
	for ex := range results {
		extractions = append(extractions, ex)
	}
	return extractions
}

func (uc *ExtractMandatesUseCase) extractOne(ctx context.Context, res domain.ResolutionText) domain.MandateExtraction {
	if len(res.Text) > maxResolutionChars {
		res.Text = res.Text[:maxResolutionChars]
	}
	mandates, err := uc.extractor.ExtractMandates(ctx, res)
	if err != nil {
		return domain.MandateExtraction{ResolutionSymbol: res.Symbol, Error: err.Error()}
	}
	for i := range mandates {
		mandates[i].ResolutionSymbol = res.Symbol
	}
	return domain.MandateExtraction{ResolutionSymbol: res.Symbol, Success: true, Mandates: mandates}
}
