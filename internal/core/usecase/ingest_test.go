package usecase

import (
	"context"
	"log/slog"
	"testing"

	"github.com/unpulse/sg-report-tracker/internal/core/cleaning"
	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

func testCleaner(t *testing.T) *cleaning.Cleaner {
	t.Helper()
	schema, err := cleaning.LoadSchema()
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	return cleaning.NewCleaner(schema, slog.New(slog.DiscardHandler), true)
}

func rawRecord(t *testing.T, js string) domain.RawRecord {
	t.Helper()
	rec, err := domain.UnmarshalRawRecord([]byte(js))
	if err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	return rec
}

func TestHarvestStoresCleanedDocuments(t *testing.T) {
	searcher := &searcherFake{pages: [][]domain.RawRecord{
		{
			rawRecord(t, `{"191__a": ["A/79/287"], "245__a": "Oceans and the law of the sea", "992__a": ["2024-09-05"], "500__a": ["Submitted pursuant to General Assembly resolution 78/70"]}`),
			rawRecord(t, `{"191__a": ["A/79/100"], "245__a": "Children and armed conflict"}`),
		},
		{
			rawRecord(t, `{"191__a": ["A/78/300"], "245__a": "Oceans and the law of the sea"}`),
		},
	}}
	texts := &textFetcherFake{
		texts: map[string]string{"A/79/287": "one two three"},
		fail:  map[string]bool{"A/79/100": true},
	}
	repo := &docRepoFake{}
	queue := &queueFake{}

	uc := NewIngestUseCase(searcher, texts, repo, queue, testCleaner(t),
		IngestConfig{PageSize: pageSizeForTests, FetchText: true}, slog.New(slog.DiscardHandler))

	result, err := uc.Harvest(context.Background(), "symbol:A/79/*", "191__a", domain.CategoryUnset)
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if result.Fetched != 3 || result.Stored != 3 {
		t.Fatalf("result = %+v", result)
	}
	if result.TextFailures != 1 {
		t.Fatalf("text failures = %d, want 1", result.TextFailures)
	}

	doc, err := repo.GetBySymbol(context.Background(), "A/79/287")
	if err != nil {
		t.Fatalf("get stored doc: %v", err)
	}
	if doc.Text != "one two three" || doc.WordCount == nil || *doc.WordCount != 3 {
		t.Fatalf("text not attached: %+v", doc)
	}
	if len(doc.BasedOnResolutionSymbols) != 1 || doc.BasedOnResolutionSymbols[0] != "A/RES/78/70" {
		t.Fatalf("resolution refs = %v", doc.BasedOnResolutionSymbols)
	}

	if len(queue.published) != 3 {
		t.Fatalf("published = %v", queue.published)
	}
}

func TestHarvestStopsOnStalePages(t *testing.T) {
	same := []domain.RawRecord{
		rawRecord(t, `{"191__a": ["A/79/287"], "245__a": "Repeated"}`),
		rawRecord(t, `{"191__a": ["A/79/287"], "245__a": "Repeated"}`),
	}
	// Every page is full and repeats the same symbol; without the stale-page
	// stop the harvest would run to the page budget.
	searcher := &searcherFake{pages: [][]domain.RawRecord{same, same, same, same, same, same, same, same}}
	repo := &docRepoFake{}

	uc := NewIngestUseCase(searcher, &textFetcherFake{}, repo, nil, testCleaner(t),
		IngestConfig{PageSize: pageSizeForTests}, slog.New(slog.DiscardHandler))

	result, err := uc.Harvest(context.Background(), "q", "191__a", domain.CategoryUnset)
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	// Page 0 introduces the symbol; pages 1-3 are stale and stop the loop.
	if searcher.calls != 4 {
		t.Fatalf("search calls = %d, want 4", searcher.calls)
	}
	if result.Stored != 1 {
		t.Fatalf("stored = %d, want 1 after dedupe", result.Stored)
	}
}

func TestHarvestStopsOnPagesBeforeStartYear(t *testing.T) {
	page := func(session, date string) []domain.RawRecord {
		return []domain.RawRecord{
			rawRecord(t, `{"191__a": ["A/`+session+`/100"], "992__a": ["`+date+`"]}`),
			rawRecord(t, `{"191__a": ["A/`+session+`/200"], "992__a": ["`+date+`"]}`),
		}
	}
	// Results come back newest-first; every page is full and carries fresh
	// symbols, so only the date rule can end the harvest early.
	searcher := &searcherFake{pages: [][]domain.RawRecord{
		page("79", "2024-09-05"),
		page("73", "2018-07-01"),
		page("72", "2017-07-01"),
		page("71", "2016-07-01"),
		page("70", "2015-07-01"),
	}}
	repo := &docRepoFake{}

	uc := NewIngestUseCase(searcher, &textFetcherFake{}, repo, nil, testCleaner(t),
		IngestConfig{PageSize: pageSizeForTests, StartYear: 2020}, slog.New(slog.DiscardHandler))

	result, err := uc.Harvest(context.Background(), "q", "191__a", domain.CategoryUnset)
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	// Page 0 is in range; pages 1-3 all predate 2020 and stop the loop.
	if searcher.calls != 4 {
		t.Fatalf("search calls = %d, want 4", searcher.calls)
	}
	if result.Fetched != 8 {
		t.Fatalf("fetched = %d, want 8", result.Fetched)
	}
}

func TestHarvestEmptyResult(t *testing.T) {
	uc := NewIngestUseCase(&searcherFake{}, &textFetcherFake{}, &docRepoFake{}, nil, testCleaner(t),
		IngestConfig{PageSize: pageSizeForTests}, slog.New(slog.DiscardHandler))

	result, err := uc.Harvest(context.Background(), "q", "191__a", domain.CategoryUnset)
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if result.Fetched != 0 || result.Stored != 0 {
		t.Fatalf("result = %+v", result)
	}
}

func TestFetchReferencedResolutions(t *testing.T) {
	repo := &docRepoFake{unfetchedRefs: []string{"A/RES/78/70", "A/RES/0/0"}}
	searcher := &searcherFake{lookup: map[string]domain.RawRecord{
		"A/RES/78/70": rawRecord(t, `{"191__a": ["A/RES/78/70"], "245__a": "Oceans and the law of the sea"}`),
	}}

	uc := NewIngestUseCase(searcher, &textFetcherFake{}, repo, nil, testCleaner(t),
		IngestConfig{PageSize: pageSizeForTests}, slog.New(slog.DiscardHandler))

	result, err := uc.FetchReferencedResolutions(context.Background())
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if result.Referenced != 2 || result.Fetched != 1 || result.NotFound != 1 || result.Stored != 1 {
		t.Fatalf("result = %+v", result)
	}

	doc, err := repo.GetBySymbol(context.Background(), "A/RES/78/70")
	if err != nil {
		t.Fatalf("get stored resolution: %v", err)
	}
	if doc.DocumentCategory != domain.CategoryResolution {
		t.Fatalf("category = %q", doc.DocumentCategory)
	}
}
