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
	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

func main() {
	query := flag.String("query", "report of the secretary-general*", "catalog search expression")
	tag := flag.String("tag", "245__a", "MARC field tag the query matches against")
	category := flag.String("category", "", "force a document category for every harvested record")
	backfill := flag.Bool("backfill", false, "also fetch resolutions referenced by stored documents")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "ingest", cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	logger := app.Logger.With("run_id", uuid.NewString())

	if *query != "" {
		result, err := app.IngestUC.Harvest(ctx, *query, *tag, domain.DocumentCategory(*category))
		if err != nil {
			logger.Error("harvest failed", "query", *query, "error", err)
			os.Exit(1)
		}
		logger.Info("harvest_done",
			"query", *query,
			"fetched", result.Fetched,
			"stored", result.Stored,
			"skipped", result.Skipped,
			"text_failures", result.TextFailures,
		)
	}

	if *backfill {
		result, err := app.IngestUC.FetchReferencedResolutions(ctx)
		if err != nil {
			logger.Error("resolution backfill failed", "error", err)
			os.Exit(1)
		}
		logger.Info("backfill_done",
			"referenced", result.Referenced,
			"fetched", result.Fetched,
			"not_found", result.NotFound,
			"stored", result.Stored,
		)
	}
}
