package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/unpulse/sg-report-tracker/internal/core/cleaning"
	"github.com/unpulse/sg-report-tracker/internal/core/domain"
	"github.com/unpulse/sg-report-tracker/internal/core/ports"
)

// stalePageLimit is the number of consecutive stale result pages before a
// harvest stops paginating. A page is stale when it yields no new symbols
// or, with a start year set, when every dated record on it predates that
// year. The catalog's pagination is order-stable but not gap-free, so one
// stale page alone is not a reliable end signal.
const stalePageLimit = 3

type IngestConfig struct {
	PageSize  int
	MaxPages  int
	FetchText bool
	StartYear int
}

// IngestUseCase harvests bibliographic records from the library catalog,
// normalizes them, attaches full text and inferred resolution references,
// and persists the canonical rows.
type IngestUseCase struct {
	searcher ports.LibrarySearcher
	texts    ports.FullTextFetcher
	repo     ports.DocumentRepository
	queue    ports.MessageQueue
	cleaner  *cleaning.Cleaner
	cfg      IngestConfig
	logger   *slog.Logger
}

func NewIngestUseCase(
	searcher ports.LibrarySearcher,
	texts ports.FullTextFetcher,
	repo ports.DocumentRepository,
	queue ports.MessageQueue,
	cleaner *cleaning.Cleaner,
	cfg IngestConfig,
	logger *slog.Logger,
) *IngestUseCase {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 200
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		searcher: searcher,
		texts:    texts,
		repo:     repo,
		queue:    queue,
		cleaner:  cleaner,
		cfg:      cfg,
		logger:   logger,
	}
}

type IngestResult struct {
	Fetched      int
	Stored       int
	Skipped      int
	TextFailures int
}

// Harvest paginates one catalog query to exhaustion, cleans the accumulated
// batch, and stores it. Pagination stops on an empty page, a short page, the
// page budget, or stalePageLimit consecutive stale pages.
func (uc *IngestUseCase) Harvest(ctx context.Context, query, tag string, override domain.DocumentCategory) (IngestResult, error) {
	var result IngestResult

	records, err := uc.collectPages(ctx, query, tag)
	if err != nil {
		return result, err
	}
	result.Fetched = len(records)
	if len(records) == 0 {
		return result, nil
	}

	docs, report, err := uc.cleaner.Clean(records, override)
	if err != nil {
		return result, fmt.Errorf("clean batch: %w", err)
	}
	result.Skipped = report.SkippedNoSymbol

	uc.enrich(ctx, docs, &result)

	stored, err := uc.repo.UpsertDocuments(ctx, docs)
	if err != nil {
		return result, fmt.Errorf("upsert documents: %w", err)
	}
	result.Stored = stored

	uc.publish(ctx, docs)

	uc.logger.Info("harvest_done",
		"query", query,
		"fetched", result.Fetched,
		"stored", result.Stored,
		"skipped", result.Skipped,
		"text_failures", result.TextFailures,
	)
	return result, nil
}

func (uc *IngestUseCase) collectPages(ctx context.Context, query, tag string) ([]domain.RawRecord, error) {
	var records []domain.RawRecord
	seen := make(map[string]struct{})
	stale := 0

	for page := 0; page < uc.cfg.MaxPages; page++ {
		batch, err := uc.searcher.Search(ctx, query, tag, page*uc.cfg.PageSize, uc.cfg.PageSize)
		if err != nil {
			return nil, fmt.Errorf("search page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}

		fresh := 0
		for _, rec := range batch {
			for _, symbol := range rec.Fields["191__a"].Values {
				key := cleaning.CanonicalizeSymbol(symbol)
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					fresh++
				}
			}
		}
		records = append(records, batch...)

		if fresh == 0 || uc.pageBeforeStartYear(batch) {
			stale++
			if stale >= stalePageLimit {
				uc.logger.Info("harvest_stopped_on_stale_pages", "query", query, "page", page)
				break
			}
		} else {
			stale = 0
		}

		if len(batch) < uc.cfg.PageSize {
			break
		}
	}
	return records, nil
}

// pageBeforeStartYear reports whether every dated record on the page predates
// the configured start year. The catalog orders results newest-first, so a
// run of such pages means the harvest has paged past the window of interest.
// Pages carrying no parseable date never count as old.
func (uc *IngestUseCase) pageBeforeStartYear(batch []domain.RawRecord) bool {
	if uc.cfg.StartYear <= 0 {
		return false
	}
	dated := false
	for _, rec := range batch {
		for _, value := range rec.Fields["992__a"].Values {
			year := cleaning.ParseYear(value)
			if year == nil {
				continue
			}
			dated = true
			if *year >= uc.cfg.StartYear {
				return false
			}
		}
	}
	return dated
}

// enrich attaches inferred resolution references and, when configured, the
// full document text. A text-fetch failure downgrades to "no text" for that
// document only.
func (uc *IngestUseCase) enrich(ctx context.Context, docs []domain.Document, result *IngestResult) {
	for i := range docs {
		docs[i].BasedOnResolutionSymbols = cleaning.ExtractResolutionSymbols(docs[i].Note)

		if !uc.cfg.FetchText {
			continue
		}
		text, err := uc.texts.FetchText(ctx, docs[i].Symbol)
		if err != nil {
			result.TextFailures++
			uc.logger.Warn("text_fetch_failed", "symbol", docs[i].Symbol, "error", err)
			continue
		}
		docs[i].Text = text
		if text != "" {
			n := len(strings.Fields(text))
			docs[i].WordCount = &n
		}
	}
}

func (uc *IngestUseCase) publish(ctx context.Context, docs []domain.Document) {
	if uc.queue == nil {
		return
	}
	for _, doc := range docs {
		if err := uc.queue.PublishDocumentStored(ctx, doc.Symbol); err != nil {
			uc.logger.Warn("publish_stored_event_failed", "symbol", doc.Symbol, "error", err)
		}
	}
}

type BackfillResult struct {
	Referenced int
	Fetched    int
	NotFound   int
	Stored     int
}

// FetchReferencedResolutions looks up every resolution symbol referenced by
// stored reports but not yet stored itself, and ingests the ones the catalog
// knows. Lookup misses are counted, never fatal.
func (uc *IngestUseCase) FetchReferencedResolutions(ctx context.Context) (BackfillResult, error) {
	var result BackfillResult

	symbols, err := uc.repo.UnfetchedResolutionRefs(ctx)
	if err != nil {
		return result, fmt.Errorf("list unfetched resolution refs: %w", err)
	}
	result.Referenced = len(symbols)

	var records []domain.RawRecord
	for _, symbol := range symbols {
		rec, err := uc.searcher.Lookup(ctx, symbol)
		if err != nil {
			if domain.IsKind(err, domain.ErrDocumentNotFound) {
				result.NotFound++
				continue
			}
			return result, fmt.Errorf("lookup %s: %w", symbol, err)
		}
		records = append(records, *rec)
	}
	result.Fetched = len(records)
	if len(records) == 0 {
		return result, nil
	}

	docs, _, err := uc.cleaner.Clean(records, domain.CategoryResolution)
	if err != nil {
		return result, fmt.Errorf("clean resolution batch: %w", err)
	}
	uc.enrich(ctx, docs, &IngestResult{})

	stored, err := uc.repo.UpsertDocuments(ctx, docs)
	if err != nil {
		return result, fmt.Errorf("upsert resolutions: %w", err)
	}
	result.Stored = stored

	uc.logger.Info("resolution_backfill_done",
		"referenced", result.Referenced,
		"fetched", result.Fetched,
		"not_found", result.NotFound,
		"stored", result.Stored,
	)
	return result, nil
}
