package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
	"github.com/unpulse/sg-report-tracker/internal/core/ports"
)

// maxEmbeddingTextChars bounds how much body text contributes to a report's
// embedding; titles, symbols, and subjects carry most of the signal.
const maxEmbeddingTextChars = 6000

type EmbedConfig struct {
	BatchSize int
}

// EmbedReportsUseCase vectorizes stored reports that have no embedding yet.
// Each batch is read, embedded, and written back before the next is loaded,
// so an interrupted run resumes exactly where it stopped.
type EmbedReportsUseCase struct {
	repo     ports.DocumentRepository
	embedder ports.Embedder
	cfg      EmbedConfig
	logger   *slog.Logger
}

func NewEmbedReportsUseCase(
	repo ports.DocumentRepository,
	embedder ports.Embedder,
	cfg EmbedConfig,
	logger *slog.Logger,
) *EmbedReportsUseCase {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbedReportsUseCase{repo: repo, embedder: embedder, cfg: cfg, logger: logger}
}

type EmbedResult struct {
	Embedded int
	Batches  int
}

func (uc *EmbedReportsUseCase) Run(ctx context.Context) (EmbedResult, error) {
	var result EmbedResult

	for {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("embedding interrupted: %w", err)
		}

		reports, err := uc.repo.ReportsWithoutEmbedding(ctx, uc.cfg.BatchSize)
		if err != nil {
			return result, fmt.Errorf("load reports without embedding: %w", err)
		}
		if len(reports) == 0 {
			break
		}

		texts := make([]string, len(reports))
		for i, report := range reports {
			texts[i] = composeEmbeddingText(report)
		}

		vectors, err := uc.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return result, fmt.Errorf("embed batch: %w", err)
		}
		if len(vectors) != len(reports) {
			return result, fmt.Errorf("embed batch: got %d vectors for %d reports", len(vectors), len(reports))
		}

		for i, report := range reports {
			if err := uc.repo.SaveEmbedding(ctx, report.Symbol, vectors[i]); err != nil {
				return result, fmt.Errorf("save embedding for %s: %w", report.Symbol, err)
			}
			result.Embedded++
		}
		result.Batches++
	}

	uc.logger.Info("embedding_done", "embedded", result.Embedded, "batches", result.Batches)
	return result, nil
}

// composeEmbeddingText builds the text a report is embedded from: title,
// symbol, subjects, then a bounded slice of body text.
func composeEmbeddingText(report domain.ReportSummary) string {
	var b strings.Builder
	b.WriteString(report.ProperTitle)
	b.WriteString("\n")
	b.WriteString(report.Symbol)
	if len(report.SubjectTerms) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(report.SubjectTerms, "; "))
	}
	if report.Text != "" {
		text := report.Text
		if len(text) > maxEmbeddingTextChars {
			text = text[:maxEmbeddingTextChars]
		}
		b.WriteString("\n")
		b.WriteString(text)
	}
	return b.String()
}
