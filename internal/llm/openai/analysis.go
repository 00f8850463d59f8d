package openai

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/deckscan/deckscan/internal/entity"
	"github.com/deckscan/deckscan/internal/llm"
)

const (
	scoreMaxTokens     = 1000
	insightMaxTokens   = 800
	keySlidesMaxTokens = 200
)

// The evaluation prompts ask for spaced or TitleCase keys; these wire structs
// absorb them (and numbers arriving as floats) before mapping onto entities.
type sectionScoreWire struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

type scoreReportWire struct {
	Sections   []sectionScoreWire `json:"sections"`
	TotalScore float64            `json:"total_score"`
	Summary    string             `json:"summary"`
}

type insightReportWire struct {
	PitchScore         float64  `json:"Pitch Score"`
	RedFlags           []string `json:"Red Flags"`
	SuggestedQuestions []string `json:"Suggested Questions"`
	SummaryInsight     string   `json:"Summary Insight"`
}

type keySlidesWire struct {
	TeamPage     *float64 `json:"TeamPage"`
	MarketPage   *float64 `json:"MarketPage"`
	TractionPage *float64 `json:"TractionPage"`
}

// ScoreDeck implements llm.DeckAnalyzer: scores a deck against the ten
// standard pitch sections.
func (c *Client) ScoreDeck(ctx context.Context, deckText string) (entity.ScoreReport, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.score.start",
		"req_id", rid, "model", c.cfg.ScoringModel, "text_len", len(deckText))

	text, _ := llm.TruncateDeckText(deckText, c.cfg.MaxInputChars)
	content, err := c.complete(ctx, rid, c.cfg.ScoringModel, llm.BuildScoringPrompt(text), scoreMaxTokens)
	if err != nil {
		return entity.ScoreReport{}, err
	}

	var wire scoreReportWire
	if err := llm.DecodeModelJSONInto(content, &wire); err != nil {
		c.logger.Error("llm.score.malformed", "req_id", rid, "error", err)
		return entity.ScoreReport{}, err
	}

	report := entity.ScoreReport{
		Sections:   make([]entity.SectionScore, 0, len(wire.Sections)),
		TotalScore: int(wire.TotalScore),
		Summary:    wire.Summary,
	}
	for _, s := range wire.Sections {
		report.Sections = append(report.Sections, entity.SectionScore{
			Name:   s.Name,
			Score:  int(s.Score),
			Reason: s.Reason,
		})
	}

	c.logger.Info("llm.score.ok",
		"req_id", rid,
		"total_score", report.TotalScore,
		"sections", len(report.Sections),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// GenerateInsights implements llm.DeckAnalyzer: qualitative evaluation with
// red flags and suggested investor questions.
func (c *Client) GenerateInsights(ctx context.Context, deckText string) (entity.InsightReport, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.insight.start",
		"req_id", rid, "model", c.cfg.Model, "text_len", len(deckText))

	text, _ := llm.TruncateDeckText(deckText, c.cfg.MaxInputChars)
	content, err := c.complete(ctx, rid, c.cfg.Model, llm.BuildInsightPrompt(text), insightMaxTokens)
	if err != nil {
		return entity.InsightReport{}, err
	}

	var wire insightReportWire
	if err := llm.DecodeModelJSONInto(content, &wire); err != nil {
		c.logger.Error("llm.insight.malformed", "req_id", rid, "error", err)
		return entity.InsightReport{}, err
	}

	report := entity.InsightReport{
		PitchScore:         int(wire.PitchScore),
		RedFlags:           wire.RedFlags,
		SuggestedQuestions: wire.SuggestedQuestions,
		SummaryInsight:     wire.SummaryInsight,
	}
	if report.RedFlags == nil {
		report.RedFlags = []string{}
	}
	if report.SuggestedQuestions == nil {
		report.SuggestedQuestions = []string{}
	}

	c.logger.Info("llm.insight.ok",
		"req_id", rid,
		"pitch_score", report.PitchScore,
		"red_flags", len(report.RedFlags),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// IdentifyKeySlides implements llm.DeckAnalyzer: locates the Team, Market,
// and Traction pages from per-page snippets.
func (c *Client) IdentifyKeySlides(ctx context.Context, pageTexts []string) (entity.KeySlides, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.keyslides.start",
		"req_id", rid, "model", c.cfg.Model, "pages", len(pageTexts))

	content, err := c.complete(ctx, rid, c.cfg.Model, llm.BuildKeySlidesPrompt(pageTexts), keySlidesMaxTokens)
	if err != nil {
		return entity.KeySlides{}, err
	}

	var wire keySlidesWire
	if err := llm.DecodeModelJSONInto(content, &wire); err != nil {
		c.logger.Error("llm.keyslides.malformed", "req_id", rid, "error", err)
		return entity.KeySlides{}, err
	}

	slides := entity.KeySlides{
		TeamPage:     pageNumber(wire.TeamPage, len(pageTexts)),
		MarketPage:   pageNumber(wire.MarketPage, len(pageTexts)),
		TractionPage: pageNumber(wire.TractionPage, len(pageTexts)),
	}

	c.logger.Info("llm.keyslides.ok",
		"req_id", rid,
		"team", slides.TeamPage != nil,
		"market", slides.MarketPage != nil,
		"traction", slides.TractionPage != nil,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return slides, nil
}

// pageNumber validates a 1-indexed page reference against the deck length.
func pageNumber(v *float64, pages int) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	if n < 1 || n > pages {
		return nil
	}
	return &n
}
