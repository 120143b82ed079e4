package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

type searcherFake struct {
	pages   [][]domain.RawRecord
	calls   int
	byQuery map[string][][]domain.RawRecord
	lookup  map[string]domain.RawRecord
	err     error
}

func (f *searcherFake) Search(_ context.Context, query, _ string, skip, _ int) ([]domain.RawRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	pages := f.pages
	if f.byQuery != nil {
		pages = f.byQuery[query]
	}
	page := skip / pageSizeForTests
	if page >= len(pages) {
		return nil, nil
	}
	return pages[page], nil
}

func (f *searcherFake) Lookup(_ context.Context, symbol string) (*domain.RawRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.lookup[symbol]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "lookup record", fmt.Errorf("symbol %q", symbol))
	}
	return &rec, nil
}

const pageSizeForTests = 2

type textFetcherFake struct {
	texts map[string]string
	fail  map[string]bool
}

func (f *textFetcherFake) FetchText(_ context.Context, symbol string) (string, error) {
	if f.fail[symbol] {
		return "", domain.WrapError(domain.ErrTemporary, "fetch text", fmt.Errorf("symbol %q", symbol))
	}
	return f.texts[symbol], nil
}

type docRepoFake struct {
	mu sync.Mutex

	upserted      []domain.Document
	upsertErr     error
	titleIndex    []domain.ReportTitle
	toClassify    []domain.ReportSummary
	seriesYears   []domain.SeriesYears
	resolutions   []domain.ResolutionText
	noEmbedding   []domain.ReportSummary
	embeddings    map[string][]float32
	unfetchedRefs []string

	classifySkipArg bool
}

func (f *docRepoFake) UpsertDocuments(_ context.Context, docs []domain.Document) (int, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.upserted = append(f.upserted, docs...)
	return len(docs), nil
}

func (f *docRepoFake) GetBySymbol(_ context.Context, symbol string) (*domain.Document, error) {
	for i := range f.upserted {
		if f.upserted[i].Symbol == symbol {
			doc := f.upserted[i]
			return &doc, nil
		}
	}
	return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("symbol %q", symbol))
}

func (f *docRepoFake) ReportTitleIndex(context.Context) ([]domain.ReportTitle, error) {
	return f.titleIndex, nil
}

func (f *docRepoFake) ReportsToClassify(_ context.Context, limit int, skipClassified bool) ([]domain.ReportSummary, error) {
	f.classifySkipArg = skipClassified
	if limit > 0 && limit < len(f.toClassify) {
		return f.toClassify[:limit], nil
	}
	return f.toClassify, nil
}

func (f *docRepoFake) SeriesYears(context.Context) ([]domain.SeriesYears, error) {
	return f.seriesYears, nil
}

func (f *docRepoFake) ResolutionsForMandates(_ context.Context, yearMin int) ([]domain.ResolutionText, error) {
	return f.resolutions, nil
}

func (f *docRepoFake) ReportsWithoutEmbedding(_ context.Context, limit int) ([]domain.ReportSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var remaining []domain.ReportSummary
	for _, r := range f.noEmbedding {
		if _, done := f.embeddings[r.Symbol]; !done {
			remaining = append(remaining, r)
		}
	}
	if limit > 0 && limit < len(remaining) {
		remaining = remaining[:limit]
	}
	return remaining, nil
}

func (f *docRepoFake) SaveEmbedding(_ context.Context, symbol string, vector []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.embeddings == nil {
		f.embeddings = make(map[string][]float32)
	}
	f.embeddings[symbol] = vector
	return nil
}

func (f *docRepoFake) UnfetchedResolutionRefs(context.Context) ([]string, error) {
	return f.unfetchedRefs, nil
}

type suggestionRepoFake struct {
	truncations int
	stored      []domain.EntitySuggestion
	stats       []domain.SuggestionSourceStats
}

func (f *suggestionRepoFake) Truncate(context.Context) error {
	f.truncations++
	f.stored = nil
	return nil
}

func (f *suggestionRepoFake) UpsertSuggestions(_ context.Context, suggestions []domain.EntitySuggestion) (int, error) {
	f.stored = append(f.stored, suggestions...)
	return len(suggestions), nil
}

func (f *suggestionRepoFake) SourceStats(context.Context) ([]domain.SuggestionSourceStats, error) {
	return f.stats, nil
}

type frequencyRepoFake struct {
	stored []domain.FrequencyEstimate
}

func (f *frequencyRepoFake) UpsertEstimates(_ context.Context, estimates []domain.FrequencyEstimate) (int, error) {
	f.stored = append(f.stored, estimates...)
	return len(estimates), nil
}

type mandateRepoFake struct {
	stored []domain.Mandate
}

func (f *mandateRepoFake) UpsertMandates(_ context.Context, mandates []domain.Mandate) (int, error) {
	f.stored = append(f.stored, mandates...)
	return len(mandates), nil
}

type entityClassifierFake struct {
	mu      sync.Mutex
	guesses map[string][]domain.EntityGuess
	fail    map[string]bool
	calls   []string
}

func (f *entityClassifierFake) ClassifyReport(_ context.Context, report domain.ReportSummary) ([]domain.EntityGuess, error) {
	f.mu.Lock()
	f.calls = append(f.calls, report.Symbol)
	f.mu.Unlock()
	if f.fail[report.Symbol] {
		return nil, domain.WrapError(domain.ErrTemporary, "classify report", fmt.Errorf("symbol %q", report.Symbol))
	}
	return f.guesses[report.Symbol], nil
}

type mandateExtractorFake struct {
	mu       sync.Mutex
	mandates map[string][]domain.Mandate
	fail     map[string]bool
	maxLen   int
}

func (f *mandateExtractorFake) ExtractMandates(_ context.Context, res domain.ResolutionText) ([]domain.Mandate, error) {
	f.mu.Lock()
	if len(res.Text) > f.maxLen {
		f.maxLen = len(res.Text)
	}
	f.mu.Unlock()
	if f.fail[res.Symbol] {
		return nil, domain.WrapError(domain.ErrTemporary, "extract mandates", fmt.Errorf("symbol %q", res.Symbol))
	}
	return f.mandates[res.Symbol], nil
}

type batchEmbedderFake struct {
	dims int
	err  error
}

func (f *batchEmbedderFake) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, f.dims)
		vectors[i][0] = float32(len(texts[i]))
	}
	return vectors, nil
}

type rosterLoaderFake struct {
	symbols []domain.RosterSymbolEntry
	titles  []domain.RosterTitleEntry
	err     error
}

func (f *rosterLoaderFake) LoadSymbolRoster(string) ([]domain.RosterSymbolEntry, error) {
	return f.symbols, f.err
}

func (f *rosterLoaderFake) LoadTitleRoster(string) ([]domain.RosterTitleEntry, error) {
	return f.titles, f.err
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentStored(_ context.Context, symbol string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, symbol)
	return nil
}

func (f *queueFake) SubscribeDocumentStored(context.Context, func(context.Context, string) error) error {
	return nil
}
