package llm

// BuildRefinementJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We pass it to the model as a structured-output constraint and
// also use it locally to validate the reply.
func BuildRefinementJSONSchema() map[string]any {
	product := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"text": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"text"},
	}
	price := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"price_value": map[string]any{"type": "integer", "minimum": 1, "maximum": 999999},
		},
		"required": []string{"price_value"},
	}
	entry := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"product":          product,
			"price":            price,
			"spatial_distance": map[string]any{"type": "number", "minimum": 0.0},
		},
		"required": []string{"product", "price"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"products": map[string]any{"type": "array", "items": entry},
		},
		"required": []string{"products"},
	}
}

// BuildCategoryJSONSchema constrains a classification reply to one category
// out of the given taxonomy.
func BuildCategoryJSONSchema(allowed []string) map[string]any {
	cat := map[string]any{"type": "string", "minLength": 1}
	if len(allowed) > 0 {
		cat = map[string]any{"type": "string", "enum": allowed}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"category": cat,
		},
		"required": []string{"category"},
	}
}
