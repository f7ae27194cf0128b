package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SanitizeRefinement repairs the common ways models bend the refinement
// schema so the document can still validate:
//   - price_value sent as a float or a numeric string -> integer
//   - spatial_distance sent as a string -> number
//   - entries with a blank product text or an unusable price -> dropped
//   - unknown keys at any level -> dropped
//
// Returns the cleaned document plus a note per repair.
func SanitizeRefinement(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var notes []string
	for k := range m {
		if k != "products" {
			delete(m, k)
			notes = append(notes, k+"(unknown)")
		}
	}

	rawList, ok := m["products"].([]any)
	if !ok {
		return nil, notes, fmt.Errorf("sanitize: products is not an array")
	}

	kept := make([]any, 0, len(rawList))
	for i, item := range rawList {
		entry, ok := item.(map[string]any)
		if !ok {
			notes = append(notes, fmt.Sprintf("products[%d](type)", i))
			continue
		}

		text := productText(entry)
		if strings.TrimSpace(text) == "" {
			notes = append(notes, fmt.Sprintf("products[%d](no product)", i))
			continue
		}

		price, repaired, ok := priceValue(entry)
		if !ok {
			notes = append(notes, fmt.Sprintf("products[%d](price)", i))
			continue
		}
		if repaired {
			notes = append(notes, fmt.Sprintf("products[%d].price_value(coerced)", i))
		}

		dist, hasDist := distanceValue(entry)

		cleaned := map[string]any{
			"product": map[string]any{"text": strings.TrimSpace(text)},
			"price":   map[string]any{"price_value": price},
		}
		if hasDist {
			cleaned["spatial_distance"] = dist
		}
		kept = append(kept, cleaned)
	}
	m["products"] = kept

	out, err := json.Marshal(m)
	if err != nil {
		return nil, notes, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, notes, nil
}

func productText(entry map[string]any) string {
	switch p := entry["product"].(type) {
	case map[string]any:
		if s, ok := p["text"].(string); ok {
			return s
		}
	case string:
		// model flattened {"product": "きゅうり"}
		return p
	}
	return ""
}

func priceValue(entry map[string]any) (val int, repaired, ok bool) {
	var raw any
	switch p := entry["price"].(type) {
	case map[string]any:
		raw = p["price_value"]
	case float64, string:
		// model flattened {"price": 198}
		raw, repaired = p, true
	default:
		return 0, false, false
	}

	switch t := raw.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, false, false
		}
		return int(t), repaired, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(t, "円")))
		if err != nil {
			return 0, false, false
		}
		return n, true, true
	default:
		return 0, false, false
	}
}

func distanceValue(entry map[string]any) (float64, bool) {
	switch t := entry["spatial_distance"].(type) {
	case float64:
		return t, t >= 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil && f >= 0
	default:
		return 0, false
	}
}
