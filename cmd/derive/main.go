package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/unpulse/sg-report-tracker/internal/bootstrap"
	"github.com/unpulse/sg-report-tracker/internal/config"
)

func main() {
	entities := flag.Bool("entities", false, "run the entity resolver")
	frequencies := flag.Bool("frequencies", false, "recompute frequency estimates")
	mandates := flag.Bool("mandates", false, "extract mandates from stored resolutions")
	embeddings := flag.Bool("embeddings", false, "embed reports without vectors")
	flag.Parse()

	if !*entities && !*frequencies && !*mandates && !*embeddings {
		log.Fatalf("nothing to do: pass at least one of -entities, -frequencies, -mandates, -embeddings")
	}

	_ = godotenv.Load()
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "derive", cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	logger := app.Logger.With("run_id", uuid.NewString())

	if *entities {
		result, err := app.ResolveUC.Run(ctx)
		if err != nil {
			logger.Error("entity resolution failed", "error", err)
			os.Exit(1)
		}
		logger.Info("entity_resolution_done",
			"manual", result.Manual,
			"fuzzy", result.Fuzzy,
			"ai", result.AI,
			"classified", result.Classified,
			"classify_failures", result.ClassifyFailures,
			"invalid_entities", result.InvalidEntities,
		)
	}

	if *frequencies {
		result, err := app.FrequencyUC.Run(ctx)
		if err != nil {
			logger.Error("frequency estimation failed", "error", err)
			os.Exit(1)
		}
		logger.Info("frequency_estimation_done", "series", result.Series, "stored", result.Stored)
	}

	if *mandates {
		if app.MandateUC == nil {
			log.Fatalf("mandate extraction requires a configured Azure OpenAI resource")
		}
		result, err := app.MandateUC.Run(ctx)
		if err != nil {
			logger.Error("mandate extraction failed", "error", err)
			os.Exit(1)
		}
		logger.Info("mandate_extraction_done",
			"resolutions", result.Resolutions,
			"extracted", result.Extracted,
			"empty", result.Empty,
			"failures", result.Failures,
			"stored", result.Stored,
		)
	}

	if *embeddings {
		if app.EmbedUC == nil {
			log.Fatalf("embedding requires a configured Azure OpenAI resource")
		}
		result, err := app.EmbedUC.Run(ctx)
		if err != nil {
			logger.Error("embedding failed", "error", err)
			os.Exit(1)
		}
		logger.Info("embedding_done", "embedded", result.Embedded, "batches", result.Batches)
	}
}
