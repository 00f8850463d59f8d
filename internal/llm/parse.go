package llm

import (
	"encoding/json"
	"strings"

	"github.com/deckscan/deckscan/internal/common"
)

// DecodeModelJSON parses a model response into a generic JSON object. Models
// wrap payloads in markdown fences or chatty prose often enough that a strict
// parse failure earns exactly one recovery pass; a second failure is
// ErrMalformedExtraction.
func DecodeModelJSON(content string) (map[string]any, error) {
	// Unmarshal leaves the map nil for a literal "null", so check both.
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj != nil {
		return obj, nil
	}
	if recovered := RecoverJSONObject(content); recovered != "" {
		obj = nil
		if err := json.Unmarshal([]byte(recovered), &obj); err == nil && obj != nil {
			return obj, nil
		}
	}
	return nil, common.NewAppError("MALFORMED_EXTRACTION", "response is not a JSON object", common.ErrMalformedExtraction)
}

// DecodeModelJSONInto is DecodeModelJSON for a typed target. The scoring and
// insight responses decode straight into their wire structs.
func DecodeModelJSONInto(content string, v any) error {
	if err := json.Unmarshal([]byte(content), v); err == nil {
		return nil
	}
	if recovered := RecoverJSONObject(content); recovered != "" {
		if err := json.Unmarshal([]byte(recovered), v); err == nil {
			return nil
		}
	}
	return common.NewAppError("MALFORMED_EXTRACTION", "response is not the expected JSON shape", common.ErrMalformedExtraction)
}

// RecoverJSONObject strips a markdown code fence, then trims to the widest
// {...} window. Returns "" when no object-shaped window exists.
func RecoverJSONObject(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = s[3:]
		// Drop an optional language tag on the fence line.
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			if tag := strings.TrimSpace(s[:nl]); tag == "" || strings.EqualFold(tag, "json") {
				s = s[nl+1:]
			}
		}
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
