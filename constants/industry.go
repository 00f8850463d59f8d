package constants

import (
	"strings"
)

type Industry string

const (
	Fintech       Industry = "Fintech"
	Insurtech     Industry = "Insurtech"
	Healthtech    Industry = "Healthtech"
	Edtech        Industry = "Edtech"
	Agtech        Industry = "Agtech"
	Ecommerce     Industry = "Ecommerce"
	LogisticsTech Industry = "LogisticsTech"
	Proptech      Industry = "Proptech"
	LegalTech     Industry = "LegalTech"
	HRtech        Industry = "HRtech"
	Foodtech      Industry = "Foodtech"
	MobilityTech  Industry = "MobilityTech"
	CleanTech     Industry = "CleanTech"
	AI            Industry = "AI"
	Cybersecurity Industry = "Cybersecurity"
	GamingTech    Industry = "GamingTech"
	MediaTech     Industry = "MediaTech"
	TravelTech    Industry = "TravelTech"
	SportTech     Industry = "SportTech"
	SaaS          Industry = "SaaS"
	Blockchain    Industry = "Blockchain"
	OtherIndustry Industry = "Other"
)

var allIndustries = []Industry{
	Fintech,
	Insurtech,
	Healthtech,
	Edtech,
	Agtech,
	Ecommerce,
	LogisticsTech,
	Proptech,
	LegalTech,
	HRtech,
	Foodtech,
	MobilityTech,
	CleanTech,
	AI,
	Cybersecurity,
	GamingTech,
	MediaTech,
	TravelTech,
	SportTech,
	SaaS,
	Blockchain,
	OtherIndustry,
}

func Industries() []string {
	result := make([]string, len(allIndustries))
	for i, ind := range allIndustries {
		result[i] = string(ind)
	}
	return result
}

// CanonicalizeIndustry maps free-text model output onto the curated taxonomy.
// Returns Other and false when the input matches nothing.
func CanonicalizeIndustry(input string) (Industry, bool) {
	if input == "" {
		return OtherIndustry, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]Industry{
		"fintech":          Fintech,
		"financial tech":   Fintech,
		"crypto":           Blockchain,
		"cryptocurrency":   Blockchain,
		"web3":             Blockchain,
		"nft":              Blockchain,
		"health":           Healthtech,
		"medtech":          Healthtech,
		"biotech":          Healthtech,
		"education":        Edtech,
		"agritech":         Agtech,
		"e-commerce":       Ecommerce,
		"marketplace":      Ecommerce,
		"retailtech":       Ecommerce,
		"logistics":        LogisticsTech,
		"supplychaintech":  LogisticsTech,
		"transporttech":    LogisticsTech,
		"real estate":      Proptech,
		"machinelearning":  AI,
		"machine learning": AI,
		"ai/ml":            AI,
		"sporttech":        SportTech,
		"sports tech":      SportTech,
		"sport-tech":       SportTech,
		"gaming":           GamingTech,
		"esportstech":      GamingTech,
		"media":            MediaTech,
		"travel":           TravelTech,
		"mobility":         MobilityTech,
		"autotech":         MobilityTech,
		"energytech":       CleanTech,
		"greentech":        CleanTech,
		"climatetech":      CleanTech,
		"food":             Foodtech,
	}

	if ind, ok := synonyms[normalized]; ok {
		return ind, true
	}

	for _, ind := range allIndustries {
		if normalized == strings.ToLower(string(ind)) {
			return ind, true
		}
	}

	return OtherIndustry, false
}
