// Command runonce executes a single pipeline run and exits. Useful for
// cron-external scheduling and for validating a deployment by hand.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/stockpulse/stock-mentions-etl/internal/aggregator"
	"github.com/stockpulse/stock-mentions-etl/internal/config"
	"github.com/stockpulse/stock-mentions-etl/internal/dedup"
	"github.com/stockpulse/stock-mentions-etl/internal/extractor"
	"github.com/stockpulse/stock-mentions-etl/internal/notifications"
	"github.com/stockpulse/stock-mentions-etl/internal/pipeline"
	"github.com/stockpulse/stock-mentions-etl/internal/sentiment"
	"github.com/stockpulse/stock-mentions-etl/internal/source"
	"github.com/stockpulse/stock-mentions-etl/internal/state"
	"github.com/stockpulse/stock-mentions-etl/internal/storage"
	"github.com/stockpulse/stock-mentions-etl/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx := context.Background()

	pg, err := store.Connect(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()

	if err := pg.Setup(ctx); err != nil {
		logrus.Fatalf("Failed to set up database schema: %v", err)
	}

	var blobStore storage.Interface
	if cfg.StorageAccount != "" {
		blobStore, err = storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
	} else {
		blobStore, err = storage.NewLocalStorage(cfg.LocalStoragePath)
	}
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}

	etl := pipeline.New(pipeline.Options{
		PipelineID: cfg.PipelineID,
		Lookback:   time.Duration(cfg.LookbackHours) * time.Hour,
		MaxRecords: cfg.MaxRecords,
		Source:     source.NewRedditSource(cfg.RedditClientID, cfg.RedditClientSecret, cfg.Subreddits),
		Extractor: extractor.New(sentiment.NewAnalyzer(), extractor.Options{
			Tickers:          cfg.Tickers,
			AmbiguousTickers: cfg.AmbiguousTickers,
		}),
		Dedup: dedup.New(pg),
		Agg: aggregator.New(pg, aggregator.Options{
			HighConfidence: cfg.HighConfidence,
			PriceTargetCap: cfg.PriceTargetCap,
		}),
		Store:    pg,
		Tracker:  state.NewStoreTracker(pg),
		Archive:  blobStore,
		Notifier: notifications.NewService(cfg),
	})

	report, err := etl.Run(ctx)
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(report)
	}
	if err != nil {
		os.Exit(1)
	}
}
