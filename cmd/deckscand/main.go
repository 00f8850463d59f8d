// deckscand serves the deck store over HTTP for the dashboard: listing,
// filtering, uploads, re-extraction, analysis passes, and export downloads.
// When INPUT_DIR is set with INPUT_WATCH=true it also ingests decks dropped
// into that directory.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deckscan/deckscan/internal/common"
	"github.com/deckscan/deckscan/internal/export"
	"github.com/deckscan/deckscan/internal/extract"
	"github.com/deckscan/deckscan/internal/ingest"
	"github.com/deckscan/deckscan/internal/llm"
	"github.com/deckscan/deckscan/internal/llm/openai"
	"github.com/deckscan/deckscan/internal/pipeline"
	"github.com/deckscan/deckscan/internal/repository"
	"github.com/deckscan/deckscan/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	common.LoadDotenv()
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.NewStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open deck store", "error", err, "backend", cfg.Store.Backend)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()
	logger.Info("deck store ready", "backend", cfg.Store.Backend)

	client := openai.NewClient(openai.Config{
		APIKey:        cfg.LLM.APIKey,
		BaseURL:       cfg.LLM.BaseURL,
		Model:         cfg.LLM.Model,
		ScoringModel:  cfg.LLM.ScoringModel,
		Temperature:   cfg.LLM.Temperature,
		Timeout:       cfg.LLM.Timeout,
		MaxInputChars: cfg.LLM.MaxInputChars,
		Retry: llm.RetryConfig{
			MaxRetries:     cfg.LLM.MaxRetries,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
		},
	}, logger)

	proc := pipeline.NewProcessor(extract.NewPDFExtractor(logger), client, client, store, logger)
	exporter := export.NewService(store, logger)

	// Optional drop-directory ingestion alongside the API.
	var queue *pipeline.Queue
	if cfg.Ingest.InputDir != "" && cfg.Ingest.Watch {
		queue = pipeline.NewQueue(proc, logger, pipeline.WithQueueWorkers(cfg.Ingest.BatchWorkers))
		events, _, err := ingest.Watch(ctx, ingest.WatchConfig{
			Roots:       []string{cfg.Ingest.InputDir},
			InitialScan: true,
			Debounce:    cfg.Ingest.Debounce,
		}, logger)
		if err != nil {
			logger.Error("failed to watch input directory", "dir", cfg.Ingest.InputDir, "error", err)
			os.Exit(1)
		}
		go func() {
			for path := range events {
				_ = queue.Enqueue(ctx, pipeline.Job{Path: path})
			}
		}()
		logger.Info("watching input directory", "dir", cfg.Ingest.InputDir)
	}

	srv := server.New(proc, exporter, cfg.Server, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		_ = httpServer.Close()
	}
	if queue != nil {
		queue.Shutdown(shutdownCtx)
	}
	logger.Info("stopped")
}
