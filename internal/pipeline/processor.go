package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/deckscan/deckscan/constants"
	"github.com/deckscan/deckscan/internal/common"
	"github.com/deckscan/deckscan/internal/entity"
	"github.com/deckscan/deckscan/internal/extract"
	"github.com/deckscan/deckscan/internal/llm"
	"github.com/deckscan/deckscan/internal/repository"
)

// Processor coordinates text acquisition, model extraction, and the store
// for one deck at a time.
type Processor struct {
	texts    extract.TextExtractor
	model    llm.DeckExtractor
	analyzer llm.DeckAnalyzer
	store    repository.DeckStore
	logger   *slog.Logger
}

func NewProcessor(texts extract.TextExtractor, model llm.DeckExtractor, analyzer llm.DeckAnalyzer, store repository.DeckStore, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{texts: texts, model: model, analyzer: analyzer, store: store, logger: logger}
}

// ProcessDeck runs one document end to end: slide text, model extraction,
// normalization, upsert. Document-fatal errors (unreadable bytes, malformed
// or unavailable extraction) are stored as failed decks and returned; the
// caller decides whether the run continues. Run-fatal errors (auth, quota)
// and context cancellation propagate without writing a deck.
func (p *Processor) ProcessDeck(ctx context.Context, filename string, data []byte) (*entity.Deck, error) {
	start := time.Now()

	raw, err := p.texts.ExtractText(ctx, filename, data)
	if err != nil {
		if ctx.Err() != nil || common.IsRunFatal(err) {
			return nil, err
		}
		return p.recordFailure(ctx, entity.RawDeckText{Filename: filename}, err)
	}

	rec, _, err := p.model.ExtractRecord(ctx, llm.ExtractRequest{DeckText: raw.Text, FilenameHint: filename})
	if err != nil {
		if ctx.Err() != nil || common.IsRunFatal(err) {
			return nil, err
		}
		return p.recordFailure(ctx, raw, err)
	}

	deck := &entity.Deck{
		ID:          uuid.New(),
		Filename:    filename,
		Status:      constants.DeckStatusProcessed,
		Pages:       raw.Pages,
		ExtractedAt: time.Now().UTC(),
		Record:      rec,
		RawText:     raw.Text,
		PageTexts:   raw.PageTexts,
	}
	if err := p.store.Upsert(ctx, deck); err != nil {
		p.logger.Error("pipeline.store.failed", "filename", filename, "err", err)
		return nil, err
	}

	p.logger.Info("pipeline.deck.ok",
		"filename", filename,
		"startup", rec.StartupName,
		"pages", raw.Pages,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return deck, nil
}

// ReExtract reruns model extraction over a stored deck's retained slide
// text, replacing its record in place. The deck keeps its identity.
func (p *Processor) ReExtract(ctx context.Context, filename string) (*entity.Deck, error) {
	deck, err := p.store.Get(ctx, filename)
	if err != nil {
		return nil, err
	}
	if deck.RawText == "" {
		return nil, common.NewAppError("INVALID_INPUT",
			"no retained slide text for "+filename, common.ErrInvalidInput)
	}

	rec, _, err := p.model.ExtractRecord(ctx, llm.ExtractRequest{DeckText: deck.RawText, FilenameHint: filename})
	if err != nil {
		if ctx.Err() != nil || common.IsRunFatal(err) {
			return nil, err
		}
		deck.Status = constants.DeckStatusFailed
		deck.FailReason = failReason(err)
		deck.Record = entity.EmptyRecord()
		deck.ExtractedAt = time.Now().UTC()
		if upErr := p.store.Upsert(ctx, deck); upErr != nil {
			return nil, upErr
		}
		p.logger.Warn("pipeline.reextract.failed", "filename", filename, "reason", deck.FailReason)
		return deck, err
	}

	deck.Status = constants.DeckStatusProcessed
	deck.FailReason = ""
	deck.Record = rec
	deck.ExtractedAt = time.Now().UTC()
	if err := p.store.Upsert(ctx, deck); err != nil {
		return nil, err
	}

	p.logger.Info("pipeline.reextract.ok", "filename", filename, "startup", rec.StartupName)
	return deck, nil
}

// Score runs the evaluation rubric over a stored deck's retained text.
func (p *Processor) Score(ctx context.Context, filename string) (entity.ScoreReport, error) {
	deck, err := p.store.Get(ctx, filename)
	if err != nil {
		return entity.ScoreReport{}, err
	}
	if deck.RawText == "" {
		return entity.ScoreReport{}, common.NewAppError("INVALID_INPUT",
			"no retained slide text for "+filename, common.ErrInvalidInput)
	}
	return p.analyzer.ScoreDeck(ctx, deck.RawText)
}

// Insights generates red flags and suggested questions over a stored deck's text.
func (p *Processor) Insights(ctx context.Context, filename string) (entity.InsightReport, error) {
	deck, err := p.store.Get(ctx, filename)
	if err != nil {
		return entity.InsightReport{}, err
	}
	if deck.RawText == "" {
		return entity.InsightReport{}, common.NewAppError("INVALID_INPUT",
			"no retained slide text for "+filename, common.ErrInvalidInput)
	}
	return p.analyzer.GenerateInsights(ctx, deck.RawText)
}

// KeySlides locates the team, market, and traction pages of a stored deck.
func (p *Processor) KeySlides(ctx context.Context, filename string) (entity.KeySlides, error) {
	deck, err := p.store.Get(ctx, filename)
	if err != nil {
		return entity.KeySlides{}, err
	}
	if len(deck.PageTexts) == 0 {
		return entity.KeySlides{}, common.NewAppError("INVALID_INPUT",
			"no retained page texts for "+filename, common.ErrInvalidInput)
	}
	return p.analyzer.IdentifyKeySlides(ctx, deck.PageTexts)
}

// Store exposes the underlying deck store for read paths.
func (p *Processor) Store() repository.DeckStore {
	return p.store
}

// recordFailure stores a failed placeholder deck and hands the cause back.
func (p *Processor) recordFailure(ctx context.Context, raw entity.RawDeckText, cause error) (*entity.Deck, error) {
	deck := &entity.Deck{
		ID:          uuid.New(),
		Filename:    raw.Filename,
		Status:      constants.DeckStatusFailed,
		FailReason:  failReason(cause),
		Pages:       raw.Pages,
		ExtractedAt: time.Now().UTC(),
		Record:      entity.EmptyRecord(),
		RawText:     raw.Text,
		PageTexts:   raw.PageTexts,
	}
	if err := p.store.Upsert(ctx, deck); err != nil {
		p.logger.Error("pipeline.store.failed", "filename", raw.Filename, "err", err)
		return nil, err
	}
	p.logger.Warn("pipeline.deck.failed", "filename", raw.Filename, "reason", deck.FailReason)
	return deck, cause
}

// failReason reduces an error chain to the short human-readable reason
// stored on the deck.
func failReason(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
