package constants

import "strings"

type FundingStage string

const (
	PreSeed    FundingStage = "Pre-Seed"
	Seed       FundingStage = "Seed"
	SeriesA    FundingStage = "Series A"
	SeriesB    FundingStage = "Series B"
	SeriesC    FundingStage = "Series C"
	Growth     FundingStage = "Growth"
	OtherStage FundingStage = "Other"
)

var allStages = []FundingStage{
	PreSeed,
	Seed,
	SeriesA,
	SeriesB,
	SeriesC,
	Growth,
	OtherStage,
}

func FundingStages() []string {
	result := make([]string, len(allStages))
	for i, s := range allStages {
		result[i] = string(s)
	}
	return result
}

// CanonicalizeStage maps model output like "pre seed" or "Series-A" onto the
// stage taxonomy. Returns Other and false when nothing matches.
func CanonicalizeStage(input string) (FundingStage, bool) {
	if input == "" {
		return OtherStage, false
	}
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer("-", " ", "_", " ").Replace(normalized)
	normalized = strings.Join(strings.Fields(normalized), " ")

	synonyms := map[string]FundingStage{
		"pre seed":          PreSeed,
		"preseed":           PreSeed,
		"angel":             PreSeed,
		"seed":              Seed,
		"seed round":        Seed,
		"series a":          SeriesA,
		"series b":          SeriesB,
		"series c":          SeriesC,
		"series c or later": SeriesC,
		"series d":          Growth,
		"late stage":        Growth,
		"growth":            Growth,
		"bridge":            Growth,
	}
	if s, ok := synonyms[normalized]; ok {
		return s, true
	}
	for _, s := range allStages {
		if normalized == strings.ToLower(string(s)) {
			return s, true
		}
	}
	return OtherStage, false
}
