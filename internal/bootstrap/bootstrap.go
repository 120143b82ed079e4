package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/unpulse/sg-report-tracker/internal/config"
	"github.com/unpulse/sg-report-tracker/internal/core/cleaning"
	"github.com/unpulse/sg-report-tracker/internal/core/frequency"
	"github.com/unpulse/sg-report-tracker/internal/core/matching"
	"github.com/unpulse/sg-report-tracker/internal/core/ports"
	"github.com/unpulse/sg-report-tracker/internal/core/usecase"
	"github.com/unpulse/sg-report-tracker/internal/infrastructure/cache"
	"github.com/unpulse/sg-report-tracker/internal/infrastructure/library"
	"github.com/unpulse/sg-report-tracker/internal/infrastructure/llm/azureopenai"
	"github.com/unpulse/sg-report-tracker/internal/infrastructure/queue/nats"
	"github.com/unpulse/sg-report-tracker/internal/infrastructure/repository/postgres"
	"github.com/unpulse/sg-report-tracker/internal/infrastructure/resilience"
	"github.com/unpulse/sg-report-tracker/internal/infrastructure/roster"
	"github.com/unpulse/sg-report-tracker/internal/infrastructure/vocabulary"
	"github.com/unpulse/sg-report-tracker/internal/observability/logging"
)

// App wires the whole pipeline. Use cases that need a configured Azure
// OpenAI resource are nil when no API key is set; entrypoints skip those
// stages instead of failing at startup.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Documents ports.DocumentRepository

	IngestUC    *usecase.IngestUseCase
	ResolveUC   *usecase.ResolveEntitiesUseCase
	FrequencyUC *usecase.EstimateFrequenciesUseCase
	MandateUC   *usecase.ExtractMandatesUseCase
	EmbedUC     *usecase.EmbedReportsUseCase
	ProcessUC   *usecase.ProcessStoredUseCase

	closeFn func()
}

func New(ctx context.Context, service string, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	documents := postgres.NewDocumentRepository(db)
	suggestions := postgres.NewSuggestionRepository(db)
	frequencies := postgres.NewFrequencyRepository(db)
	mandateRepo := postgres.NewMandateRepository(db)

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	vocab, err := vocabulary.LoadCSV(cfg.EntityVocabPath)
	if err != nil {
		return nil, fmt.Errorf("load entity vocabulary: %w", err)
	}

	schema, err := cleaning.LoadSchema()
	if err != nil {
		return nil, fmt.Errorf("load field schema: %w", err)
	}
	cleaner := cleaning.NewCleaner(schema, logger, cfg.StrictShapes)

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	searcher := library.New(cfg.LibraryAPIURL, executor)

	store, err := cache.New(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	var texts ports.FullTextFetcher
	if cfg.FetchText {
		texts = library.NewCachedTextFetcher(library.NewTextFetcher(cfg.LibraryAPIURL, executor), store, logger)
	}

	var classifier ports.EntityClassifier
	var extractor ports.MandateExtractor
	var embedder ports.Embedder
	if cfg.AzureOpenAIAPIKey != "" {
		llmClient := azureopenai.New(azureopenai.Config{
			Endpoint:          cfg.AzureOpenAIEndpoint,
			APIKey:            cfg.AzureOpenAIAPIKey,
			APIVersion:        cfg.AzureOpenAIAPIVersion,
			ChatDeployment:    cfg.AzureOpenAIChatDeployment,
			EmbedDeployment:   cfg.AzureOpenAIEmbedDeployment,
			RequestsPerMinute: cfg.LLMRequestsPerMinute,
			Executor:          executor,
		})
		classifier = azureopenai.NewClassifier(llmClient, vocab)
		extractor = azureopenai.NewMandateExtractor(llmClient)
		embedder = azureopenai.NewEmbedder(llmClient)
	} else {
		logger.Warn("azure openai not configured, llm stages disabled")
	}

	ingestUC := usecase.NewIngestUseCase(searcher, texts, documents, queue, cleaner, usecase.IngestConfig{
		PageSize:  cfg.LibraryPageSize,
		MaxPages:  cfg.LibraryMaxPages,
		FetchText: cfg.FetchText,
		StartYear: cfg.StartYear,
	}, logger)

	resolveUC := usecase.NewResolveEntitiesUseCase(
		documents, suggestions, roster.NewLoader(), classifier,
		matching.NewManualMatcher(vocab, logger),
		matching.NewFuzzyMatcher(vocab, cfg.FuzzyThreshold, logger),
		vocab,
		usecase.ResolveConfig{
			SymbolRosterPath: cfg.SymbolRosterPath,
			TitleRosterPath:  cfg.TitleRosterPath,
			ClassifyLimit:    cfg.ClassifyLimit,
			SkipClassified:   cfg.SkipClassified,
			Concurrency:      cfg.WorkerConcurrency,
		},
		logger,
	)

	frequencyUC := usecase.NewEstimateFrequenciesUseCase(
		documents, frequencies, frequency.NewEstimator(frequency.DefaultThresholds()), logger)

	var mandateUC *usecase.ExtractMandatesUseCase
	var embedUC *usecase.EmbedReportsUseCase
	if extractor != nil {
		mandateUC = usecase.NewExtractMandatesUseCase(documents, mandateRepo, extractor, usecase.MandateConfig{
			YearMin:     cfg.MandateYearMin,
			Concurrency: cfg.WorkerConcurrency,
		}, logger)
	}
	if embedder != nil {
		embedUC = usecase.NewEmbedReportsUseCase(documents, embedder, usecase.EmbedConfig{
			BatchSize: cfg.EmbedBatchSize,
		}, logger)
	}
	processUC := usecase.NewProcessStoredUseCase(documents, mandateRepo, extractor, embedder, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:     queue,
		Documents: documents,

		IngestUC:    ingestUC,
		ResolveUC:   resolveUC,
		FrequencyUC: frequencyUC,
		MandateUC:   mandateUC,
		EmbedUC:     embedUC,
		ProcessUC:   processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
