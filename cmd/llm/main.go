// llm is a prompt debugging tool: it reads deck text from a file (or stdin
// with "-") and prints the model's raw JSON answer to stdout. -times reruns
// the same text to eyeball output stability at temperature 0.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/deckscan/deckscan/internal/common"
	"github.com/deckscan/deckscan/internal/llm"
	"github.com/deckscan/deckscan/internal/llm/openai"
)

func main() {
	var (
		mode       = flag.String("mode", "extract", "prompt to run: extract, score, or insights")
		times      = flag.Int("times", 1, "number of runs over the same text")
		normalized = flag.Bool("normalized", false, "extract mode: print the normalized record instead of the raw answer")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage: llm [-mode extract|score|insights] [-times n] <textfile|->")
		os.Exit(2)
	}

	common.LoadDotenv()
	cfg := common.LoadConfig()
	if cfg.LLM.APIKey == "" {
		logger.Error("OPENAI_API_KEY env var is required")
		os.Exit(2)
	}

	text, err := readText(flag.Arg(0))
	if err != nil {
		logger.Error("read deck text", "arg", flag.Arg(0), "error", err)
		os.Exit(1)
	}

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

	for i := 1; i <= *times; i++ {
		runCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		start := time.Now()
		logger.Info("llm.run.start", "iter", i, "mode", *mode, "text_len", len(text))

		out, err := runOnce(runCtx, client, *mode, text, *normalized)
		cancel()
		if err != nil {
			logger.Error("llm.run.error", "iter", i, "err", err)
			os.Exit(1)
		}

		fmt.Println(out)
		logger.Info("llm.run.ok", "iter", i, "elapsed_ms", time.Since(start).Milliseconds())

		if i < *times {
			time.Sleep(750 * time.Millisecond)
		}
	}
}

func runOnce(ctx context.Context, client *openai.Client, mode, text string, normalized bool) (string, error) {
	switch mode {
	case "extract":
		rec, raw, err := client.ExtractRecord(ctx, llm.ExtractRequest{DeckText: text})
		if err != nil {
			return "", err
		}
		if normalized {
			return marshal(rec)
		}
		return string(raw), nil
	case "score":
		report, err := client.ScoreDeck(ctx, text)
		if err != nil {
			return "", err
		}
		return marshal(report)
	case "insights":
		report, err := client.GenerateInsights(ctx, text)
		if err != nil {
			return "", err
		}
		return marshal(report)
	default:
		return "", fmt.Errorf("unknown mode %q", mode)
	}
}

func marshal(v any) (string, error) {
	bs, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

func readText(arg string) (string, error) {
	if arg == "-" {
		bs, err := io.ReadAll(os.Stdin)
		return string(bs), err
	}
	bs, err := os.ReadFile(arg)
	return string(bs), err
}
