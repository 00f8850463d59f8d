package llm

// BuildRecordJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map describing the wire object the extraction prompt asks for.
// Every field is nullable and none is required: the model is told to emit
// null for unknowns, and NormalizeRecord fills the gaps. The schema's job is
// to reject shapes normalization cannot absorb, such as a non-object root or
// a Founders object.
func BuildRecordJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"properties": map[string]any{
			"Startup Name":    textProp(),
			"Founding Year":   textProp(),
			"Founders":        foundersProp(),
			"Industry":        textProp(),
			"Niche":           textProp(),
			"USP":             textProp(),
			"Funding Stage":   textProp(),
			"Current Revenue": textProp(),
			"Market":          marketProp(),
			"Amount Raised":   textProp(),
		},
	}
}

// textProp admits the scalar shapes models actually emit for text fields;
// numbers (a bare founding year, a revenue figure) are stringified later.
func textProp() map[string]any {
	return map[string]any{"type": []string{"string", "number", "null"}}
}

// foundersProp accepts a list of names or a single bare name.
func foundersProp() map[string]any {
	return map[string]any{
		"type":  []string{"array", "string", "null"},
		"items": textProp(),
	}
}

func marketProp() map[string]any {
	return map[string]any{
		"type":                 []string{"object", "null"},
		"additionalProperties": true,
		"properties": map[string]any{
			"TAM": textProp(),
			"SAM": textProp(),
			"SOM": textProp(),
		},
	}
}
