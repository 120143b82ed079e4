package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
	"github.com/unpulse/sg-report-tracker/internal/core/matching"
	"github.com/unpulse/sg-report-tracker/internal/core/ports"
)

type ResolveConfig struct {
	SymbolRosterPath string
	TitleRosterPath  string
	ClassifyLimit    int
	Concurrency      int
	SkipClassified   bool
}

// ResolveEntitiesUseCase runs the three entity matchers and repopulates the
// suggestion store. The store is truncated first so no suggestion from an
// older matcher version survives a run.
type ResolveEntitiesUseCase struct {
	repo        ports.DocumentRepository
	suggestions ports.SuggestionRepository
	rosters     ports.RosterLoader
	classifier  ports.EntityClassifier
	manual      *matching.ManualMatcher
	fuzzy       *matching.FuzzyMatcher
	vocab       *domain.EntityVocabulary
	cfg         ResolveConfig
	logger      *slog.Logger
}

func NewResolveEntitiesUseCase(
	repo ports.DocumentRepository,
	suggestions ports.SuggestionRepository,
	rosters ports.RosterLoader,
	classifier ports.EntityClassifier,
	manual *matching.ManualMatcher,
	fuzzy *matching.FuzzyMatcher,
	vocab *domain.EntityVocabulary,
	cfg ResolveConfig,
	logger *slog.Logger,
) *ResolveEntitiesUseCase {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolveEntitiesUseCase{
		repo:        repo,
		suggestions: suggestions,
		rosters:     rosters,
		classifier:  classifier,
		manual:      manual,
		fuzzy:       fuzzy,
		vocab:       vocab,
		cfg:         cfg,
		logger:      logger,
	}
}

type ResolveResult struct {
	Manual           int
	Fuzzy            int
	AI               int
	Classified       int
	ClassifyFailures int
	InvalidEntities  int
}

// Run executes manual, fuzzy, and LLM matching in that order, upserting
// after each stage so an interrupted run keeps its completed stages.
func (uc *ResolveEntitiesUseCase) Run(ctx context.Context) (ResolveResult, error) {
	var result ResolveResult

	index, err := uc.repo.ReportTitleIndex(ctx)
	if err != nil {
		return result, fmt.Errorf("load report title index: %w", err)
	}

	if err := uc.suggestions.Truncate(ctx); err != nil {
		return result, fmt.Errorf("truncate suggestion store: %w", err)
	}

	if result.Manual, err = uc.runManual(ctx, index); err != nil {
		return result, err
	}
	if result.Fuzzy, err = uc.runFuzzy(ctx, index); err != nil {
		return result, err
	}
	if err := uc.runClassifier(ctx, &result); err != nil {
		return result, err
	}

	uc.logStats(ctx)
	return result, nil
}

func (uc *ResolveEntitiesUseCase) runManual(ctx context.Context, index []domain.ReportTitle) (int, error) {
	if uc.cfg.SymbolRosterPath == "" {
		return 0, nil
	}
	roster, err := uc.rosters.LoadSymbolRoster(uc.cfg.SymbolRosterPath)
	if err != nil {
		return 0, fmt.Errorf("load symbol roster: %w", err)
	}
	suggestions, _ := uc.manual.Match(index, roster)
	return uc.store(ctx, suggestions)
}

func (uc *ResolveEntitiesUseCase) runFuzzy(ctx context.Context, index []domain.ReportTitle) (int, error) {
	if uc.cfg.TitleRosterPath == "" {
		return 0, nil
	}
	roster, err := uc.rosters.LoadTitleRoster(uc.cfg.TitleRosterPath)
	if err != nil {
		return 0, fmt.Errorf("load title roster: %w", err)
	}
	suggestions, _ := uc.fuzzy.Match(index, roster)
	return uc.store(ctx, suggestions)
}

// runClassifier fans classification calls out over a bounded worker pool.
// A failed call degrades to a per-report failure count; the batch continues.
func (uc *ResolveEntitiesUseCase) runClassifier(ctx context.Context, result *ResolveResult) error {
	if uc.classifier == nil {
		return nil
	}

	reports, err := uc.repo.ReportsToClassify(ctx, uc.cfg.ClassifyLimit, uc.cfg.SkipClassified)
	if err != nil {
		return fmt.Errorf("load reports to classify: %w", err)
	}
	if len(reports) == 0 {
		return nil
	}

	type outcome struct {
		report  domain.ReportSummary
		guesses []domain.EntityGuess
		err     error
	}

	jobs := make(chan domain.ReportSummary)
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for w := 0; w < uc.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for report := range jobs {
				guesses, err := uc.classifier.ClassifyReport(ctx, report)
				outcomes <- outcome{report: report, guesses: guesses, err: err}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, report := range reports {
			select {
			case jobs <- report:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	best := make(map[string]domain.EntitySuggestion)
	var order []string
	for o := range outcomes {
		if o.err != nil {
			result.ClassifyFailures++
			uc.logger.Warn("classification_failed", "symbol", o.report.Symbol, "error", o.err)
			continue
		}
		result.Classified++
		for _, guess := range o.guesses {
			if !uc.vocab.Contains(guess.Entity) {
				result.InvalidEntities++
				continue
			}
			score := guess.Confidence.Score()
			details, _ := json.Marshal(map[string]any{
				"symbol":     o.report.Symbol,
				"confidence": string(guess.Confidence),
				"reasoning":  guess.Reasoning,
			})
			key := o.report.ProperTitle + "\x00" + string(guess.Entity)
			prev, seen := best[key]
			if !seen {
				order = append(order, key)
			}
			if !seen || prev.ConfidenceScore == nil || score > *prev.ConfidenceScore {
				best[key] = domain.EntitySuggestion{
					ProperTitle:     o.report.ProperTitle,
					Entity:          guess.Entity,
					Source:          domain.SourceAI,
					ConfidenceScore: &score,
					MatchDetails:    details,
				}
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("classification interrupted: %w", err)
	}

	suggestions := make([]domain.EntitySuggestion, 0, len(order))
	for _, key := range order {
		suggestions = append(suggestions, best[key])
	}
	stored, err := uc.store(ctx, suggestions)
	if err != nil {
		return err
	}
	result.AI = stored
	return nil
}

func (uc *ResolveEntitiesUseCase) store(ctx context.Context, suggestions []domain.EntitySuggestion) (int, error) {
	if len(suggestions) == 0 {
		return 0, nil
	}
	stored, err := uc.suggestions.UpsertSuggestions(ctx, suggestions)
	if err != nil {
		return 0, fmt.Errorf("upsert suggestions: %w", err)
	}
	return stored, nil
}

func (uc *ResolveEntitiesUseCase) logStats(ctx context.Context) {
	stats, err := uc.suggestions.SourceStats(ctx)
	if err != nil {
		uc.logger.Warn("suggestion_stats_failed", "error", err)
		return
	}
	for _, s := range stats {
		uc.logger.Info("suggestion_source_stats",
			"source", string(s.Source),
			"count", s.Count,
			"unique_reports", s.UniqueReports,
			"unique_entities", s.UniqueEntities,
		)
	}
}
