package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/deckscan/deckscan/internal/common"
)

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// The record schema never changes at runtime, so compile it once.
var (
	recordSchemaOnce sync.Once
	recordSchema     *jsonschema.Schema
	recordSchemaErr  error
)

func compiledRecordSchema() (*jsonschema.Schema, error) {
	recordSchemaOnce.Do(func() {
		b, err := json.Marshal(BuildRecordJSONSchema())
		if err != nil {
			recordSchemaErr = fmt.Errorf("marshal record schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("record.json", bytes.NewReader(b)); err != nil {
			recordSchemaErr = fmt.Errorf("add record schema: %w", err)
			return
		}
		recordSchema, recordSchemaErr = compiler.Compile("record.json")
	})
	return recordSchema, recordSchemaErr
}

// ValidateRecordJSON checks a model response against the record schema.
// Violations surface as ErrMalformedExtraction so the pipeline records the
// deck as failed instead of crashing the batch.
func ValidateRecordJSON(data []byte) error {
	schema, err := compiledRecordSchema()
	if err != nil {
		return common.NewAppError("INTERNAL", "record schema unavailable", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return common.NewAppError("MALFORMED_EXTRACTION", fmt.Sprintf("re-parse response: %v", err), common.ErrMalformedExtraction)
	}
	if err := schema.Validate(v); err != nil {
		return common.NewAppError("MALFORMED_EXTRACTION", fmt.Sprintf("response violates record schema: %v", err), common.ErrMalformedExtraction)
	}
	return nil
}
