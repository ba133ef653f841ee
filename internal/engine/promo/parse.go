package promo

import (
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/anatolykoptev/go_promo/internal/engine"
)

// Model output parsing.
//
// Small models drift from the requested format: trailing prose, a second
// example, single quotes, "key = value". Parsing is an ordered list of tiers;
// the first tier that recognizes its format decides the record, even when
// that record is empty. Later tiers only run when earlier ones could not parse.

// parseTier returns the record it read and whether its format was recognized.
type parseTier func(output string) (engine.PromoRecord, bool)

var parseTiers = []parseTier{
	parseJSONObject,
	parseKeyValues,
}

// flatObjectRe matches the first brace-delimited span with no nested braces.
var flatObjectRe = regexp.MustCompile(`\{[^{}]*\}`)

// parseJSONObject decodes the first flat {...} span as JSON. Missing keys are
// null; numbers are kept as text; any other value type counts as null.
func parseJSONObject(output string) (engine.PromoRecord, bool) {
	span := flatObjectRe.FindString(output)
	if span == "" {
		return engine.PromoRecord{}, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return engine.PromoRecord{}, false
	}
	return engine.PromoRecord{
		Brand:    jsonText(obj["brand"]),
		Code:     jsonText(obj["code"]),
		Discount: jsonText(obj["discount"]),
	}, true
}

func jsonText(v any) *string {
	switch x := v.(type) {
	case string:
		return engine.StrPtr(x)
	case float64:
		return engine.StrPtr(strconv.FormatFloat(x, 'f', -1, 64))
	default:
		return nil
	}
}

// keyValueRes match `brand: "X"`, `'code'='Y'` and similar, case-insensitively.
var keyValueRes = map[string]*regexp.Regexp{
	"brand":    keyValueRe("brand"),
	"code":     keyValueRe("code"),
	"discount": keyValueRe("discount"),
}

func keyValueRe(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)["']?` + key + `["']?\s*[:=]\s*["']([^"'\n]+)["']`)
}

// parseKeyValues reads each field independently. It always recognizes its
// format; fields it cannot find are null.
func parseKeyValues(output string) (engine.PromoRecord, bool) {
	find := func(key string) *string {
		m := keyValueRes[key].FindStringSubmatch(output)
		if len(m) < 2 {
			return nil
		}
		return engine.StrPtr(m[1])
	}
	return engine.PromoRecord{
		Brand:    find("brand"),
		Code:     find("code"),
		Discount: find("discount"),
	}, true
}

// ParseOutput turns raw model output into a promotion record.
// It returns nil when no tier yields at least one non-null field.
func ParseOutput(output string) *engine.PromoRecord {
	for _, tier := range parseTiers {
		rec, ok := tier(output)
		if !ok {
			continue
		}
		rec = rec.Normalize()
		if rec.Empty() {
			return nil
		}
		return &rec
	}
	return nil
}
