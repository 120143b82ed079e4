package usecase

import (
	"context"
	"log/slog"
	"testing"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
	"github.com/unpulse/sg-report-tracker/internal/core/matching"
)

func testVocab(t *testing.T) *domain.EntityVocabulary {
	t.Helper()
	vocab, err := domain.NewEntityVocabulary([]domain.EntityInfo{
		{Code: "DOALOS", Name: "Division for Ocean Affairs and the Law of the Sea"},
		{Code: "DPPA", Name: "Department of Political and Peacebuilding Affairs"},
	})
	if err != nil {
		t.Fatalf("build vocabulary: %v", err)
	}
	return vocab
}

func newResolveUseCase(
	t *testing.T,
	repo *docRepoFake,
	suggestions *suggestionRepoFake,
	rosters *rosterLoaderFake,
	classifier *entityClassifierFake,
	cfg ResolveConfig,
) *ResolveEntitiesUseCase {
	t.Helper()
	vocab := testVocab(t)
	logger := slog.New(slog.DiscardHandler)
	uc := NewResolveEntitiesUseCase(
		repo,
		suggestions,
		rosters,
		nil,
		matching.NewManualMatcher(vocab, logger),
		matching.NewFuzzyMatcher(vocab, matching.DefaultFuzzyThreshold, logger),
		vocab,
		cfg,
		logger,
	)
	// Assigned after construction so a nil fake stays a nil interface.
	if classifier != nil {
		uc.classifier = classifier
	}
	return uc
}

func TestResolveForwardsSkipClassified(t *testing.T) {
	repo := &docRepoFake{
		toClassify: []domain.ReportSummary{
			{Symbol: "A/79/287", ProperTitle: "Oceans and the law of the sea"},
		},
	}
	classifier := &entityClassifierFake{guesses: map[string][]domain.EntityGuess{
		"A/79/287": {{Entity: "DOALOS", Confidence: domain.ConfidenceHigh}},
	}}

	uc := newResolveUseCase(t, repo, &suggestionRepoFake{}, &rosterLoaderFake{}, classifier, ResolveConfig{
		SkipClassified: true,
		Concurrency:    1,
	})

	if _, err := uc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !repo.classifySkipArg {
		t.Fatal("already-classified filter not forwarded to the repository")
	}
}

func TestResolveRunsAllSources(t *testing.T) {
	repo := &docRepoFake{
		titleIndex: []domain.ReportTitle{
			{Symbol: "A/79/287", ProperTitle: "Oceans and the law of the sea"},
			{Symbol: "S/2024/100", ProperTitle: "Children and armed conflict"},
		},
		toClassify: []domain.ReportSummary{
			{Symbol: "A/79/287", ProperTitle: "Oceans and the law of the sea"},
		},
	}
	suggestions := &suggestionRepoFake{}
	rosters := &rosterLoaderFake{
		symbols: []domain.RosterSymbolEntry{{Symbol: "A/79/287", Entity: "DOALOS"}},
		titles:  []domain.RosterTitleEntry{{Title: "Children and armed conflict", Entity: "DPPA"}},
	}
	classifier := &entityClassifierFake{guesses: map[string][]domain.EntityGuess{
		"A/79/287": {{Entity: "DOALOS", Confidence: domain.ConfidenceHigh, Reasoning: "law of the sea mandate"}},
	}}

	uc := newResolveUseCase(t, repo, suggestions, rosters, classifier, ResolveConfig{
		SymbolRosterPath: "symbols.xlsx",
		TitleRosterPath:  "titles.xlsx",
		Concurrency:      2,
	})

	result, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if suggestions.truncations != 1 {
		t.Fatalf("truncations = %d", suggestions.truncations)
	}
	if result.Manual != 1 || result.Fuzzy != 1 || result.AI != 1 {
		t.Fatalf("result = %+v", result)
	}

	bySource := make(map[domain.SuggestionSource]domain.EntitySuggestion)
	for _, s := range suggestions.stored {
		bySource[s.Source] = s
	}
	if s := bySource[domain.SourceManual]; s.ConfidenceScore != nil {
		t.Fatal("manual suggestion must carry no confidence score")
	}
	if s := bySource[domain.SourceAI]; s.ConfidenceScore == nil || *s.ConfidenceScore != 0.9 {
		t.Fatalf("ai confidence = %v, want 0.9", s.ConfidenceScore)
	}
}

func TestResolveClassifierPartialFailure(t *testing.T) {
	repo := &docRepoFake{
		titleIndex: []domain.ReportTitle{
			{Symbol: "A/1", ProperTitle: "Title one"},
			{Symbol: "A/2", ProperTitle: "Title two"},
			{Symbol: "A/3", ProperTitle: "Title three"},
		},
		toClassify: []domain.ReportSummary{
			{Symbol: "A/1", ProperTitle: "Title one"},
			{Symbol: "A/2", ProperTitle: "Title two"},
			{Symbol: "A/3", ProperTitle: "Title three"},
		},
	}
	suggestions := &suggestionRepoFake{}
	classifier := &entityClassifierFake{
		guesses: map[string][]domain.EntityGuess{
			"A/1": {{Entity: "DOALOS", Confidence: domain.ConfidenceMedium}},
			"A/3": {{Entity: "NOT-IN-VOCAB", Confidence: domain.ConfidenceHigh}},
		},
		fail: map[string]bool{"A/2": true},
	}

	uc := newResolveUseCase(t, repo, suggestions, &rosterLoaderFake{}, classifier, ResolveConfig{Concurrency: 3})

	result, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.ClassifyFailures != 1 {
		t.Fatalf("failures = %d, want 1", result.ClassifyFailures)
	}
	if result.InvalidEntities != 1 {
		t.Fatalf("invalid entities = %d, want 1", result.InvalidEntities)
	}
	if result.AI != 1 {
		t.Fatalf("ai suggestions = %d, want 1", result.AI)
	}
	if len(classifier.calls) != 3 {
		t.Fatalf("classifier calls = %d, want all reports attempted", len(classifier.calls))
	}
}

func TestResolveNoDuplicateSuggestionKeys(t *testing.T) {
	repo := &docRepoFake{
		titleIndex: []domain.ReportTitle{
			{Symbol: "A/79/287", ProperTitle: "Oceans and the law of the sea"},
			{Symbol: "A/78/300", ProperTitle: "Oceans and the law of the sea"},
		},
		toClassify: []domain.ReportSummary{
			{Symbol: "A/79/287", ProperTitle: "Oceans and the law of the sea"},
			{Symbol: "A/78/300", ProperTitle: "Oceans and the law of the sea"},
		},
	}
	suggestions := &suggestionRepoFake{}
	classifier := &entityClassifierFake{guesses: map[string][]domain.EntityGuess{
		"A/79/287": {{Entity: "DOALOS", Confidence: domain.ConfidenceLow}},
		"A/78/300": {{Entity: "DOALOS", Confidence: domain.ConfidenceHigh}},
	}}

	uc := newResolveUseCase(t, repo, suggestions, &rosterLoaderFake{}, classifier, ResolveConfig{Concurrency: 1})

	if _, err := uc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	seen := make(map[string]int)
	for _, s := range suggestions.stored {
		seen[s.ProperTitle+"|"+string(s.Entity)+"|"+string(s.Source)]++
	}
	for key, n := range seen {
		if n > 1 {
			t.Fatalf("duplicate suggestion key %q", key)
		}
	}
	// Two symbols of the same series suggesting the same entity collapse to
	// the higher-confidence row.
	if len(suggestions.stored) != 1 || *suggestions.stored[0].ConfidenceScore != 0.9 {
		t.Fatalf("stored = %+v", suggestions.stored)
	}
}
