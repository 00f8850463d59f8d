package export

import (
	"encoding/json"

	"github.com/deckscan/deckscan/internal/entity"
)

// marshalJSON renders the records as a JSON array with the nested market
// object and null fields preserved. An empty store exports as [].
func marshalJSON(decks []*entity.Deck) ([]byte, error) {
	records := make([]entity.PitchDeckRecord, 0, len(decks))
	for _, d := range decks {
		records = append(records, d.Record)
	}
	return json.MarshalIndent(records, "", "  ")
}
