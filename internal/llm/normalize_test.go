package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckscan/deckscan/internal/entity"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &obj))
	return obj
}

func TestNormalizeRecordWireKeys(t *testing.T) {
	rec := NormalizeRecord(decode(t, `{
		"Startup Name": "Yabscore",
		"Founding Year": 2019,
		"Founders": ["IK Ezekwelu", "Dapo Arowa"],
		"Industry": "Sporttech",
		"Niche": "Mobile sports betting",
		"USP": "First fully mobile sports-betting platform",
		"Funding Stage": null,
		"Current Revenue": "$3.1k",
		"Market": {"TAM": "$95B", "SAM": "$2.2B", "SOM": "$193M"},
		"Amount Raised": "$0"
	}`))

	assert.Equal(t, "Yabscore", rec.StartupName)
	require.NotNil(t, rec.FoundingYear)
	assert.Equal(t, "2019", *rec.FoundingYear)
	assert.Equal(t, []string{"IK Ezekwelu", "Dapo Arowa"}, rec.Founders)
	assert.Equal(t, "Sporttech", rec.Industry)
	assert.Equal(t, "Mobile sports betting", rec.Niche)
	assert.Equal(t, "", rec.FundingStage)
	assert.Equal(t, "$3.1k", rec.CurrentRevenue)
	require.NotNil(t, rec.Market.TAM)
	assert.Equal(t, "$95B", *rec.Market.TAM)
	require.NotNil(t, rec.Market.SOM)
	assert.Equal(t, "$193M", *rec.Market.SOM)
	assert.Equal(t, "$0", rec.AmountRaised)
}

func TestNormalizeRecordSnakeKeysRoundTrip(t *testing.T) {
	year := "2021"
	tam := "$5B"
	in := entity.PitchDeckRecord{
		StartupName:    "Quidax",
		FoundingYear:   &year,
		Founders:       []string{"Buchi Okoro"},
		Industry:       "FinTech",
		Niche:          "Cryptocurrency exchange",
		USP:            "Single API for crypto",
		FundingStage:   "Seed",
		CurrentRevenue: "$10.2m",
		Market:         entity.Market{TAM: &tam},
		AmountRaised:   "$0",
	}

	// a normalized record, serialized and re-normalized, is unchanged
	bs, err := json.Marshal(in)
	require.NoError(t, err)
	out := NormalizeRecord(decode(t, string(bs)))

	assert.Equal(t, in, out)
}

func TestNormalizeRecordIdempotent(t *testing.T) {
	obj := decode(t, `{"Startup Name": "Acme", "Founders": "Jane Doe", "Founding Year": 2020.0}`)

	first := NormalizeRecord(obj)
	bs, err := json.Marshal(first)
	require.NoError(t, err)
	second := NormalizeRecord(decode(t, string(bs)))

	assert.Equal(t, first, second)
}

func TestNormalizeRecordBareFounderString(t *testing.T) {
	rec := NormalizeRecord(decode(t, `{"founders": "Alice"}`))

	assert.Equal(t, []string{"Alice"}, rec.Founders)
}

func TestNormalizeRecordFounderNumbersStringified(t *testing.T) {
	rec := NormalizeRecord(decode(t, `{"Founders": ["Alice", 42]}`))

	assert.Equal(t, []string{"Alice", "42"}, rec.Founders)
}

func TestNormalizeRecordMissingFounders(t *testing.T) {
	rec := NormalizeRecord(decode(t, `{"Founders": null}`))

	assert.NotNil(t, rec.Founders)
	assert.Empty(t, rec.Founders)
}

func TestNormalizeRecordMissingMarket(t *testing.T) {
	rec := NormalizeRecord(decode(t, `{"Startup Name": "Acme"}`))

	assert.Nil(t, rec.Market.TAM)
	assert.Nil(t, rec.Market.SAM)
	assert.Nil(t, rec.Market.SOM)
}

func TestNormalizeRecordNonMapMarket(t *testing.T) {
	rec := NormalizeRecord(decode(t, `{"market": "very large"}`))

	assert.Equal(t, entity.Market{}, rec.Market)
}

func TestNormalizeRecordPartialMarket(t *testing.T) {
	rec := NormalizeRecord(decode(t, `{"Market": {"TAM": "$1B"}}`))

	require.NotNil(t, rec.Market.TAM)
	assert.Equal(t, "$1B", *rec.Market.TAM)
	assert.Nil(t, rec.Market.SAM)
	assert.Nil(t, rec.Market.SOM)
}

func TestNormalizeRecordNullStringLiterals(t *testing.T) {
	rec := NormalizeRecord(decode(t, `{"Funding Stage": "null", "Founding Year": "NULL"}`))

	assert.Equal(t, "", rec.FundingStage)
	assert.Nil(t, rec.FoundingYear)
}

func TestNormalizeRecordNumericYearWithDecimal(t *testing.T) {
	rec := NormalizeRecord(decode(t, `{"Founding Year": 2019.0}`))

	require.NotNil(t, rec.FoundingYear)
	assert.Equal(t, "2019", *rec.FoundingYear)
}

func TestNormalizeRecordEmptyObject(t *testing.T) {
	rec := NormalizeRecord(map[string]any{})

	assert.Equal(t, entity.EmptyRecord(), rec)
}

func TestNormalizeRecordNilObject(t *testing.T) {
	rec := NormalizeRecord(nil)

	assert.Equal(t, entity.EmptyRecord(), rec)
}

func TestNormalizeRecordUnknownKeysIgnored(t *testing.T) {
	rec := NormalizeRecord(decode(t, `{"Startup Name": "Acme", "Confidence": 0.9, "Notes": ["x"]}`))

	assert.Equal(t, "Acme", rec.StartupName)
	assert.Equal(t, entity.EmptyRecord().Market, rec.Market)
}

func TestNormalizeRecordWhitespaceTrimmed(t *testing.T) {
	rec := NormalizeRecord(decode(t, `{"Startup Name": "  Acme  ", "Niche": "\n betting \t"}`))

	assert.Equal(t, "Acme", rec.StartupName)
	assert.Equal(t, "betting", rec.Niche)
}
