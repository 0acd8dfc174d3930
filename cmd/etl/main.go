package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/stockpulse/stock-mentions-etl/internal/aggregator"
	"github.com/stockpulse/stock-mentions-etl/internal/config"
	"github.com/stockpulse/stock-mentions-etl/internal/dedup"
	"github.com/stockpulse/stock-mentions-etl/internal/extractor"
	"github.com/stockpulse/stock-mentions-etl/internal/notifications"
	"github.com/stockpulse/stock-mentions-etl/internal/pipeline"
	"github.com/stockpulse/stock-mentions-etl/internal/scheduler"
	"github.com/stockpulse/stock-mentions-etl/internal/sentiment"
	"github.com/stockpulse/stock-mentions-etl/internal/source"
	"github.com/stockpulse/stock-mentions-etl/internal/state"
	"github.com/stockpulse/stock-mentions-etl/internal/storage"
	"github.com/stockpulse/stock-mentions-etl/internal/store"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting stock mentions ETL bot")

	ctx := context.Background()

	// Connect to the row store and make sure the schema exists
	pg, err := store.Connect(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()

	if err := pg.Setup(ctx); err != nil {
		logrus.Fatalf("Failed to set up database schema: %v", err)
	}

	// Blob storage for run reports; Azure when configured, local otherwise
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

	// Start the scheduler
	schedulerService := scheduler.NewService(cfg.RunSchedule, etl)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Set up HTTP server for health checks and manual triggers
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(etl)).Methods("GET")
	router.HandleFunc("/trigger", triggerHandler(etl)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(etl *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		report := etl.LastReport()
		if report == nil {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"message":"no runs completed yet"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(report); err != nil {
			logrus.Errorf("Failed to encode metrics response: %v", err)
		}
	}
}

func triggerHandler(etl *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if _, err := etl.Run(context.Background()); err != nil {
				logrus.Errorf("Manual pipeline trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Pipeline run triggered"}`))
	}
}
