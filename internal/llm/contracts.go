package llm

import (
	"context"

	"github.com/deckscan/deckscan/internal/entity"
)

// ExtractRequest carries one deck's assembled slide text to the model.
type ExtractRequest struct {
	DeckText     string
	FilenameHint string
}

// DeckExtractor is the interface the pipeline depends on.
type DeckExtractor interface {
	ExtractRecord(ctx context.Context, req ExtractRequest) (entity.PitchDeckRecord, []byte /*rawJSON*/, error)
}

// DeckAnalyzer runs the secondary evaluation prompts over a deck.
type DeckAnalyzer interface {
	ScoreDeck(ctx context.Context, deckText string) (entity.ScoreReport, error)
	GenerateInsights(ctx context.Context, deckText string) (entity.InsightReport, error)
	IdentifyKeySlides(ctx context.Context, pageTexts []string) (entity.KeySlides, error)
}
