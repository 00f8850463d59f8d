package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckscan/deckscan/internal/common"
)

func TestValidateRecordJSONAcceptsWorkedExample(t *testing.T) {
	// the few-shot answer embedded in the prompt must satisfy our own schema
	assert.NoError(t, ValidateRecordJSON([]byte(exampleYabscoreJSON)))
	assert.NoError(t, ValidateRecordJSON([]byte(exampleQuidaxJSON)))
}

func TestValidateRecordJSONAcceptsAllNulls(t *testing.T) {
	payload := `{
		"Startup Name": null,
		"Founding Year": null,
		"Founders": null,
		"Industry": null,
		"Niche": null,
		"USP": null,
		"Funding Stage": null,
		"Current Revenue": null,
		"Market": null,
		"Amount Raised": null
	}`

	assert.NoError(t, ValidateRecordJSON([]byte(payload)))
}

func TestValidateRecordJSONAcceptsMissingKeys(t *testing.T) {
	assert.NoError(t, ValidateRecordJSON([]byte(`{}`)))
}

func TestValidateRecordJSONAcceptsNumericYear(t *testing.T) {
	assert.NoError(t, ValidateRecordJSON([]byte(`{"Founding Year": 2019}`)))
}

func TestValidateRecordJSONAcceptsBareFounderString(t *testing.T) {
	assert.NoError(t, ValidateRecordJSON([]byte(`{"Founders": "Alice"}`)))
}

func TestValidateRecordJSONRejectsNonObject(t *testing.T) {
	for _, payload := range []string{`[1, 2]`, `"text"`, `42`, `null`} {
		err := ValidateRecordJSON([]byte(payload))

		require.Error(t, err, "payload %s", payload)
		assert.True(t, errors.Is(err, common.ErrMalformedExtraction))
	}
}

func TestValidateRecordJSONRejectsFoundersObject(t *testing.T) {
	err := ValidateRecordJSON([]byte(`{"Founders": {"lead": "Alice"}}`))

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedExtraction))
}

func TestValidateRecordJSONRejectsMistypedMarket(t *testing.T) {
	err := ValidateRecordJSON([]byte(`{"Market": "enormous"}`))

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedExtraction))
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []string{"name"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
	}

	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{"name": "ok"}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"name": 7}`)))
}
