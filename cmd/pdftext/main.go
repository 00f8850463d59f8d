// pdftext is an acquisition debugging tool: it prints the slide-marked text
// the extractor produces for a PDF, so prompt inputs can be inspected without
// spending model tokens.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/deckscan/deckscan/internal/extract"
)

func main() {
	pages := flag.Bool("pages", false, "print a per-page character count summary instead of the text")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: pdftext [-pages] <deck.pdf>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read pdf", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	raw, err := extract.NewPDFExtractor(logger).ExtractText(ctx, filepath.Base(path), data)
	if err != nil {
		logger.Error("extract text", "path", path, "error", err)
		os.Exit(1)
	}

	if *pages {
		fmt.Printf("%s: %d pages, %d chars\n", raw.Filename, raw.Pages, len(raw.Text))
		for i, text := range raw.PageTexts {
			fmt.Printf("  page %d: %d chars\n", i+1, len(text))
		}
		return
	}
	fmt.Print(raw.Text)
}
