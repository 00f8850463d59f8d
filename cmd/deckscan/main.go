// deckscan processes a single pitch-deck PDF end to end and prints the
// extracted record as JSON. Optional flags add the scoring, insight, and
// key-slide passes over the same deck.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/deckscan/deckscan/constants"
	"github.com/deckscan/deckscan/internal/common"
	"github.com/deckscan/deckscan/internal/entity"
	"github.com/deckscan/deckscan/internal/extract"
	"github.com/deckscan/deckscan/internal/llm"
	"github.com/deckscan/deckscan/internal/llm/openai"
	"github.com/deckscan/deckscan/internal/pipeline"
	"github.com/deckscan/deckscan/internal/repository"
)

type result struct {
	Filename  string                 `json:"filename"`
	Status    constants.DeckStatus   `json:"status"`
	Reason    string                 `json:"reason,omitempty"`
	Record    entity.PitchDeckRecord `json:"record"`
	Score     *entity.ScoreReport    `json:"score,omitempty"`
	Insights  *entity.InsightReport  `json:"insights,omitempty"`
	KeySlides *entity.KeySlides      `json:"key_slides,omitempty"`
}

func main() {
	var (
		score     = flag.Bool("score", false, "also run the pitch scoring rubric")
		insights  = flag.Bool("insights", false, "also generate red flags and suggested questions")
		keySlides = flag.Bool("keyslides", false, "also locate the team/market/traction slides")
		timeout   = flag.Duration("timeout", 3*time.Minute, "overall processing timeout")
		verbose   = flag.Bool("v", false, "log pipeline events to stderr")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: deckscan [flags] <deck.pdf>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	common.LoadDotenv()
	cfg := common.LoadConfig()
	if cfg.LLM.APIKey == "" {
		fmt.Fprintln(os.Stderr, "error: OPENAI_API_KEY is required")
		os.Exit(2)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: read %s: %v\n", path, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

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

	store := repository.NewMemoryStore()
	defer func() { _ = store.Close() }()
	proc := pipeline.NewProcessor(extract.NewPDFExtractor(logger), client, client, store, logger)

	filename := filepath.Base(path)
	deck, err := proc.ProcessDeck(ctx, filename, data)
	if err != nil && deck == nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	out := result{
		Filename: deck.Filename,
		Status:   deck.Status,
		Reason:   deck.FailReason,
		Record:   deck.Record,
	}

	if deck.Status == constants.DeckStatusProcessed {
		if *score {
			if report, err := proc.Score(ctx, filename); err != nil {
				fmt.Fprintf(os.Stderr, "error: score: %v\n", err)
			} else {
				out.Score = &report
			}
		}
		if *insights {
			if report, err := proc.Insights(ctx, filename); err != nil {
				fmt.Fprintf(os.Stderr, "error: insights: %v\n", err)
			} else {
				out.Insights = &report
			}
		}
		if *keySlides {
			if slides, err := proc.KeySlides(ctx, filename); err != nil {
				fmt.Fprintf(os.Stderr, "error: key slides: %v\n", err)
			} else {
				out.KeySlides = &slides
			}
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "error: encode result: %v\n", err)
		os.Exit(1)
	}

	if deck.Status != constants.DeckStatusProcessed {
		os.Exit(1)
	}
}
