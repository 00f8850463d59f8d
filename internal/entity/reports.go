package entity

// SectionScore is one rubric row from the deck scoring pass.
type SectionScore struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// ScoreReport is the structured result of scoring a deck against the
// ten standard pitch sections.
type ScoreReport struct {
	Sections   []SectionScore `json:"sections"`
	TotalScore int            `json:"total_score"`
	Summary    string         `json:"summary"`
}

// InsightReport is the qualitative evaluation of a deck.
type InsightReport struct {
	PitchScore         int      `json:"pitch_score"`
	RedFlags           []string `json:"red_flags"`
	SuggestedQuestions []string `json:"suggested_questions"`
	SummaryInsight     string   `json:"summary_insight"`
}

// KeySlides holds 1-indexed page numbers for the slides investors jump to.
// A nil page means the model could not locate that slide.
type KeySlides struct {
	TeamPage     *int `json:"team_page"`
	MarketPage   *int `json:"market_page"`
	TractionPage *int `json:"traction_page"`
}
