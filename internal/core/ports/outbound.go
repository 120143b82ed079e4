package ports

import (
	"context"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

// LibrarySearcher is the bibliographic search collaborator. Pagination with
// increasing skip terminates on an empty or short page.
type LibrarySearcher interface {
	Search(ctx context.Context, query string, tag string, skip, limit int) ([]domain.RawRecord, error)
	Lookup(ctx context.Context, symbol string) (*domain.RawRecord, error)
}

// FullTextFetcher retrieves the full document text for a symbol. A failure
// is "no text", never fatal to a batch.
type FullTextFetcher interface {
	FetchText(ctx context.Context, symbol string) (string, error)
}

// DocumentRepository persists canonical documents and serves the read-back
// queries the derived-data stages resume from.
type DocumentRepository interface {
	UpsertDocuments(ctx context.Context, docs []domain.Document) (int, error)
	GetBySymbol(ctx context.Context, symbol string) (*domain.Document, error)
	ReportTitleIndex(ctx context.Context) ([]domain.ReportTitle, error)
	ReportsToClassify(ctx context.Context, limit int, skipExisting bool) ([]domain.ReportSummary, error)
	SeriesYears(ctx context.Context) ([]domain.SeriesYears, error)
	ResolutionsForMandates(ctx context.Context, yearMin int) ([]domain.ResolutionText, error)
	ReportsWithoutEmbedding(ctx context.Context, limit int) ([]domain.ReportSummary, error)
	SaveEmbedding(ctx context.Context, symbol string, vector []float32) error
	UnfetchedResolutionRefs(ctx context.Context) ([]string, error)
}

// SuggestionRepository stores entity suggestions. A resolver run truncates
// and fully repopulates the store.
type SuggestionRepository interface {
	Truncate(ctx context.Context) error
	UpsertSuggestions(ctx context.Context, suggestions []domain.EntitySuggestion) (int, error)
	SourceStats(ctx context.Context) ([]domain.SuggestionSourceStats, error)
}

// FrequencyRepository upserts recomputed frequency estimates keyed by
// (proper_title, normalized_body).
type FrequencyRepository interface {
	UpsertEstimates(ctx context.Context, estimates []domain.FrequencyEstimate) (int, error)
}

// MandateRepository upserts mandates keyed by (resolution_symbol,
// paragraph hash).
type MandateRepository interface {
	UpsertMandates(ctx context.Context, mandates []domain.Mandate) (int, error)
}

// EntityClassifier suggests responsible entities for a report series,
// constrained to the controlled vocabulary.
type EntityClassifier interface {
	ClassifyReport(ctx context.Context, report domain.ReportSummary) ([]domain.EntityGuess, error)
}

// MandateExtractor runs structured extraction over one resolution text.
type MandateExtractor interface {
	ExtractMandates(ctx context.Context, resolution domain.ResolutionText) ([]domain.Mandate, error)
}

// Embedder builds vectors for batches of prepared texts.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// RosterLoader loads the external entity-attribution rosters.
type RosterLoader interface {
	LoadSymbolRoster(path string) ([]domain.RosterSymbolEntry, error)
	LoadTitleRoster(path string) ([]domain.RosterTitleEntry, error)
}

// MessageQueue publishes/consumes stored-document events so derived stages
// can resume per item.
type MessageQueue interface {
	PublishDocumentStored(ctx context.Context, symbol string) error
	SubscribeDocumentStored(ctx context.Context, handler func(context.Context, string) error) error
}
