package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/deckscan/deckscan/constants"
)

// Market holds the TAM/SAM/SOM estimates as the deck states them.
// Sub-keys missing from the model output stay null, never absent.
type Market struct {
	TAM *string `json:"tam"`
	SAM *string `json:"sam"`
	SOM *string `json:"som"`
}

// PitchDeckRecord is the normalized extraction output for one deck.
// Every field is present after normalization; Founders is never nil.
type PitchDeckRecord struct {
	StartupName    string   `json:"startup_name"`
	FoundingYear   *string  `json:"founding_year"`
	Founders       []string `json:"founders"`
	Industry       string   `json:"industry"`
	Niche          string   `json:"niche"`
	USP            string   `json:"usp"`
	FundingStage   string   `json:"funding_stage"`
	CurrentRevenue string   `json:"current_revenue"`
	Market         Market   `json:"market"`
	AmountRaised   string   `json:"amount_raised"`
}

// EmptyRecord returns a fully-populated zero record (the failed-deck placeholder).
func EmptyRecord() PitchDeckRecord {
	return PitchDeckRecord{Founders: []string{}}
}

// Deck wraps a record with provenance and processing state.
// Filename is the store key; re-submitting the same filename replaces the row.
type Deck struct {
	ID          uuid.UUID            `json:"id"`
	Filename    string               `json:"filename"`
	Status      constants.DeckStatus `json:"status"`
	FailReason  string               `json:"fail_reason,omitempty"`
	Pages       int                  `json:"pages"`
	ExtractedAt time.Time            `json:"extracted_at"`
	Record      PitchDeckRecord      `json:"record"`

	// RawText is the assembled slide text, retained so re-extraction,
	// scoring, and insights do not re-read the PDF.
	RawText   string   `json:"-"`
	PageTexts []string `json:"-"`
}

// RawDeckText is the transient product of text acquisition.
type RawDeckText struct {
	Filename  string
	Text      string
	PageTexts []string
	Pages     int
	Truncated bool
}
