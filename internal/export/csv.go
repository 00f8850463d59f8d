package export

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/deckscan/deckscan/internal/entity"
)

// Header is the fixed CSV column order. Every export carries all twelve
// columns; the market sub-object is flattened into TAM, SAM, and SOM.
var Header = []string{
	"StartupName",
	"FoundingYear",
	"Founders",
	"Industry",
	"Niche",
	"USP",
	"FundingStage",
	"CurrentRevenue",
	"TAM",
	"SAM",
	"SOM",
	"AmountRaised",
}

// FoundersSeparator joins the founder list into a single CSV cell.
// Re-splitting on it reconstructs the list.
const FoundersSeparator = "; "

func marshalCSV(decks []*entity.Deck) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, err
	}
	for _, d := range decks {
		if err := w.Write(recordRow(d.Record)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// recordRow renders one record in Header order. Null fields become empty
// cells, never dropped columns.
func recordRow(r entity.PitchDeckRecord) []string {
	return []string{
		r.StartupName,
		deref(r.FoundingYear),
		strings.Join(r.Founders, FoundersSeparator),
		r.Industry,
		r.Niche,
		r.USP,
		r.FundingStage,
		r.CurrentRevenue,
		deref(r.Market.TAM),
		deref(r.Market.SAM),
		deref(r.Market.SOM),
		r.AmountRaised,
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
