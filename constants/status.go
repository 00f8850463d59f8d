package constants

// DeckStatus is the canonical status for stored decks.
type DeckStatus string

// Stable values (store these exact strings in DB).
const (
	DeckStatusProcessed DeckStatus = "PROCESSED" // extraction + normalization succeeded
	DeckStatusFailed    DeckStatus = "FAILED"    // document-fatal error; record kept as placeholder
)
