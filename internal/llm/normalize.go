package llm

import (
	"math"
	"strconv"
	"strings"

	"github.com/deckscan/deckscan/internal/entity"
)

// NormalizeRecord coerces a decoded model response into the canonical record.
// It never fails: every field has a defined default, market folds to exactly
// {tam, sam, som}, and founders is always a non-nil slice. Running it on an
// already-normalized object yields the same record. Keys are matched loosely
// so the spaced prompt keys ("Startup Name"), the canonical snake_case keys,
// and case variants in between all land on the same field.
func NormalizeRecord(obj map[string]any) entity.PitchDeckRecord {
	rec := entity.EmptyRecord()
	if obj == nil {
		return rec
	}
	if v, ok := fieldValue(obj, "Startup Name", "startup_name"); ok {
		rec.StartupName = asString(v)
	}
	if v, ok := fieldValue(obj, "Founding Year", "founding_year"); ok {
		rec.FoundingYear = asNullableString(v)
	}
	if v, ok := fieldValue(obj, "Founders", "founders"); ok {
		rec.Founders = asStringSlice(v)
	}
	if v, ok := fieldValue(obj, "Industry", "industry"); ok {
		rec.Industry = asString(v)
	}
	if v, ok := fieldValue(obj, "Niche", "niche"); ok {
		rec.Niche = asString(v)
	}
	if v, ok := fieldValue(obj, "USP", "usp"); ok {
		rec.USP = asString(v)
	}
	if v, ok := fieldValue(obj, "Funding Stage", "funding_stage"); ok {
		rec.FundingStage = asString(v)
	}
	if v, ok := fieldValue(obj, "Current Revenue", "current_revenue"); ok {
		rec.CurrentRevenue = asString(v)
	}
	if v, ok := fieldValue(obj, "Market", "market"); ok {
		rec.Market = normalizeMarket(v)
	}
	if v, ok := fieldValue(obj, "Amount Raised", "amount_raised"); ok {
		rec.AmountRaised = asString(v)
	}
	return rec
}

// fieldValue resolves a record field by its wire key, its snake_case key, or
// any spacing/case variant of either.
func fieldValue(obj map[string]any, wireKey, snakeKey string) (any, bool) {
	if v, ok := obj[wireKey]; ok {
		return v, true
	}
	if v, ok := obj[snakeKey]; ok {
		return v, true
	}
	canon := canonicalKey(wireKey)
	for k, v := range obj {
		if canonicalKey(k) == canon {
			return v, true
		}
	}
	return nil, false
}

func canonicalKey(k string) string {
	k = strings.ToLower(k)
	k = strings.ReplaceAll(k, " ", "")
	return strings.ReplaceAll(k, "_", "")
}

// asString stringifies the scalar shapes models emit. JSON numbers arrive as
// float64; integral values print without the ".0" tail so a numeric founding
// year comes out as "2019". Literal "null" strings count as absent.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "null") {
			return ""
		}
		return s
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func asNullableString(v any) *string {
	s := asString(v)
	if s == "" {
		return nil
	}
	return &s
}

// asStringSlice coerces founders: a bare name wraps into a one-element
// slice, list elements are stringified, empties drop, null means nobody.
func asStringSlice(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		out := make([]string, 0, len(t))
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := asString(v); s != "" {
			return []string{s}
		}
		return []string{}
	}
}

// normalizeMarket folds the market value to exactly {tam, sam, som}.
// Anything that is not an object counts as missing.
func normalizeMarket(v any) entity.Market {
	m, ok := v.(map[string]any)
	if !ok {
		return entity.Market{}
	}
	var out entity.Market
	if tam, ok := fieldValue(m, "TAM", "tam"); ok {
		out.TAM = asNullableString(tam)
	}
	if sam, ok := fieldValue(m, "SAM", "sam"); ok {
		out.SAM = asNullableString(sam)
	}
	if som, ok := fieldValue(m, "SOM", "som"); ok {
		out.SOM = asNullableString(som)
	}
	return out
}
