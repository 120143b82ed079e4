package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
	"github.com/unpulse/sg-report-tracker/internal/core/ports"
)

// ProcessStoredUseCase handles one stored-document event: mandate extraction
// for resolutions, embedding for reports. Other categories are ignored.
type ProcessStoredUseCase struct {
	repo      ports.DocumentRepository
	mandates  ports.MandateRepository
	extractor ports.MandateExtractor
	embedder  ports.Embedder
	logger    *slog.Logger
}

func NewProcessStoredUseCase(
	repo ports.DocumentRepository,
	mandates ports.MandateRepository,
	extractor ports.MandateExtractor,
	embedder ports.Embedder,
	logger *slog.Logger,
) *ProcessStoredUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessStoredUseCase{
		repo:      repo,
		mandates:  mandates,
		extractor: extractor,
		embedder:  embedder,
		logger:    logger,
	}
}

// ProcessSymbol is the queue handler body. A vanished document is logged and
// dropped rather than redelivered forever.
func (uc *ProcessStoredUseCase) ProcessSymbol(ctx context.Context, symbol string) error {
	doc, err := uc.repo.GetBySymbol(ctx, symbol)
	if err != nil {
		if domain.IsKind(err, domain.ErrDocumentNotFound) {
			uc.logger.Warn("stored_document_missing", "symbol", symbol)
			return nil
		}
		return fmt.Errorf("load stored document: %w", err)
	}

	switch doc.DocumentCategory {
	case domain.CategoryResolution:
		return uc.processResolution(ctx, doc)
	case domain.CategoryReport:
		return uc.processReport(ctx, doc)
	default:
		return nil
	}
}

func (uc *ProcessStoredUseCase) processResolution(ctx context.Context, doc *domain.Document) error {
	if uc.extractor == nil || doc.Text == "" {
		return nil
	}
	res := domain.ResolutionText{
		Symbol:      doc.Symbol,
		ProperTitle: doc.ProperTitle,
		Text:        doc.Text,
	}
	if len(res.Text) > maxResolutionChars {
		res.Text = res.Text[:maxResolutionChars]
	}

	mandates, err := uc.extractor.ExtractMandates(ctx, res)
	if err != nil {
		return fmt.Errorf("extract mandates for %s: %w", doc.Symbol, err)
	}
	if len(mandates) == 0 {
		uc.logger.Info("no_mandates_found", "symbol", doc.Symbol)
		return nil
	}
	for i := range mandates {
		mandates[i].ResolutionSymbol = doc.Symbol
	}
	stored, err := uc.mandates.UpsertMandates(ctx, mandates)
	if err != nil {
		return fmt.Errorf("upsert mandates for %s: %w", doc.Symbol, err)
	}
	uc.logger.Info("mandates_stored", "symbol", doc.Symbol, "stored", stored)
	return nil
}

func (uc *ProcessStoredUseCase) processReport(ctx context.Context, doc *domain.Document) error {
	if uc.embedder == nil || len(doc.Embedding) > 0 {
		return nil
	}
	summary := domain.ReportSummary{
		ProperTitle:  doc.ProperTitle,
		Symbol:       doc.Symbol,
		SubjectTerms: doc.SubjectTerms,
		Text:         doc.Text,
	}
	vectors, err := uc.embedder.EmbedBatch(ctx, []string{composeEmbeddingText(summary)})
	if err != nil {
		return fmt.Errorf("embed report %s: %w", doc.Symbol, err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("embed report %s: got %d vectors", doc.Symbol, len(vectors))
	}
	if err := uc.repo.SaveEmbedding(ctx, doc.Symbol, vectors[0]); err != nil {
		return fmt.Errorf("save embedding for %s: %w", doc.Symbol, err)
	}
	return nil
}
