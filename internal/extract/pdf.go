package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/deckscan/deckscan/internal/common"
	"github.com/deckscan/deckscan/internal/entity"
)

// PDFExtractor reads the embedded text layer of a PDF. Only born-digital
// decks are supported; scanned-image decks come back empty rather than
// failing (there is no OCR fallback).
type PDFExtractor struct {
	logger *slog.Logger
}

func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{logger: logger}
}

func (e *PDFExtractor) ExtractText(ctx context.Context, filename string, data []byte) (out entity.RawDeckText, err error) {
	start := time.Now()

	// The pdf parser panics on some malformed xref tables instead of
	// returning an error; treat that the same as invalid bytes.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extract.pdf.panic", "filename", filename, "panic", r)
			out = entity.RawDeckText{}
			err = common.NewAppError("UNREADABLE_DOCUMENT",
				fmt.Sprintf("pdf parser failed on %s", filename), common.ErrUnreadableDocument)
		}
	}()

	if err := ctx.Err(); err != nil {
		return entity.RawDeckText{}, err
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		e.logger.Error("extract.pdf.open_failed", "filename", filename, "bytes", len(data), "error", err)
		return entity.RawDeckText{}, common.NewAppError("UNREADABLE_DOCUMENT",
			fmt.Sprintf("not a readable pdf: %s", filename), common.ErrUnreadableDocument)
	}

	numPages := reader.NumPage()
	pageTexts := make([]string, 0, numPages)
	emptyPages := 0

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pageTexts = append(pageTexts, "")
			emptyPages++
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Per-page failures degrade to an empty slide; the document
			// as a whole still extracts.
			e.logger.Warn("extract.pdf.page_failed", "filename", filename, "page", i, "error", err)
			pageTexts = append(pageTexts, "")
			emptyPages++
			continue
		}
		pageTexts = append(pageTexts, text)
	}

	if numPages == 0 || emptyPages == numPages {
		e.logger.Error("extract.pdf.no_readable_pages", "filename", filename, "pages", numPages)
		return entity.RawDeckText{}, common.NewAppError("UNREADABLE_DOCUMENT",
			fmt.Sprintf("no readable pages in %s", filename), common.ErrUnreadableDocument)
	}

	e.logger.Info("extract.pdf.ok",
		"filename", filename,
		"pages", numPages,
		"empty_pages", emptyPages,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return entity.RawDeckText{
		Filename:  filename,
		Text:      AssembleSlides(pageTexts),
		PageTexts: pageTexts,
		Pages:     numPages,
	}, nil
}
