// deck-batch extracts every pitch deck under a directory through a bounded
// worker pool and writes the aggregated records to a CSV, JSON, or XLSX file.
// With -watch it keeps running and picks up decks as they appear.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
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
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir       = flag.String("dir", "", "directory to process decks from (required)")
		out       = flag.String("out", "", "output file path (defaults to decks.<format> in EXPORT_DIR)")
		formatStr = flag.String("format", "csv", "export format: csv, json, or xlsx")
		workers   = flag.Int("workers", 0, "worker pool size (defaults to BATCH_WORKERS)")
		watch     = flag.Bool("watch", false, "keep running and process decks as they appear")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	format, err := export.ParseFormat(*formatStr)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

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
	if *workers <= 0 {
		*workers = cfg.Ingest.BatchWorkers
	}
	if *out == "" {
		*out = filepath.Join(cfg.Export.Dir, "decks"+format.Ext())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.NewStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open deck store", "error", err, "backend", cfg.Store.Backend)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

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
	logger.Info("extraction client initialized", "model", cfg.LLM.Model)

	proc := pipeline.NewProcessor(extract.NewPDFExtractor(logger), client, client, store, logger)

	if *watch {
		runWatch(ctx, cfg, proc, logger, *dir, *workers)
	} else {
		runScan(ctx, proc, logger, *dir, *workers)
	}

	// Export whatever the store holds, including failed placeholder rows.
	exporter := export.NewService(store, logger)
	data, err := exporter.Export(context.Background(), format, repository.Filter{})
	if err != nil {
		logger.Error("failed to export decks", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0644); err != nil {
		logger.Error("failed to write output file", "path", *out, "error", err)
		os.Exit(1)
	}

	decks, err := store.All(context.Background())
	if err != nil {
		logger.Error("failed to read store", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Decks in store: %d\n", len(decks))
	fmt.Printf("- Output: %s\n", *out)
}

// runScan processes the directory once and exits nonzero on run-fatal errors.
func runScan(ctx context.Context, proc *pipeline.Processor, logger *slog.Logger, dir string, workers int) {
	paths, stats, err := ingest.ScanDir(dir, nil, true)
	if err != nil {
		logger.Error("failed to scan directory", "dir", dir, "error", err)
		os.Exit(1)
	}
	logger.Info("scan complete",
		"dir", dir,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"hidden", stats.Hidden,
		"errored", stats.Errored,
	)
	if len(paths) == 0 {
		logger.Warn("no decks found", "dir", dir)
		return
	}

	jobs := make([]pipeline.Job, 0, len(paths))
	for _, p := range paths {
		jobs = append(jobs, pipeline.Job{Path: p})
	}

	batch := pipeline.NewBatch(proc, logger, pipeline.WithWorkers(workers))
	batchStats, err := batch.Run(ctx, jobs)
	if err != nil {
		if common.IsRunFatal(err) {
			logger.Error("batch aborted by run-fatal extraction error", "error", err)
		} else if errors.Is(err, context.Canceled) {
			logger.Warn("batch interrupted", "processed", batchStats.Processed)
		} else {
			logger.Error("batch failed", "error", err)
		}
		os.Exit(1)
	}

	fmt.Printf("- Decks processed: %d\n", batchStats.Processed)
	fmt.Printf("- Failures: %d\n", batchStats.Failed)
	for _, f := range batchStats.Failures {
		fmt.Printf("  * %s: %s\n", f.Filename, f.Reason)
	}
}

// runWatch processes decks as they land in the directory until interrupted.
// The initial scan goes through the same queue as watched files.
func runWatch(ctx context.Context, cfg *common.Config, proc *pipeline.Processor, logger *slog.Logger, dir string, workers int) {
	queue := pipeline.NewQueue(proc, logger, pipeline.WithQueueWorkers(workers))

	// Watcher errors are logged inside ingest.Watch.
	events, _, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    cfg.Ingest.Debounce,
	}, logger)
	if err != nil {
		logger.Error("failed to start watcher", "dir", dir, "error", err)
		os.Exit(1)
	}
	logger.Info("watching for decks", "dir", dir, "workers", workers)

	for path := range events {
		_ = queue.Enqueue(ctx, pipeline.Job{Path: path})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
}
