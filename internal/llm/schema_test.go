package llm

import "testing"

func TestRefinementSchemaBounds(t *testing.T) {
	schema := BuildRefinementJSONSchema()

	tests := []struct {
		name  string
		doc   string
		valid bool
	}{
		{"minimal valid", `{"products":[]}`, true},
		{"full entry", `{"products":[{"product":{"text":"トマト"},"price":{"price_value":298},"spatial_distance":10.5}]}`, true},
		{"distance optional", `{"products":[{"product":{"text":"トマト"},"price":{"price_value":298}}]}`, true},
		{"empty product text", `{"products":[{"product":{"text":""},"price":{"price_value":298}}]}`, false},
		{"zero price", `{"products":[{"product":{"text":"トマト"},"price":{"price_value":0}}]}`, false},
		{"price above band", `{"products":[{"product":{"text":"トマト"},"price":{"price_value":1000000}}]}`, false},
		{"negative distance", `{"products":[{"product":{"text":"トマト"},"price":{"price_value":298},"spatial_distance":-1}]}`, false},
		{"missing products", `{}`, false},
		{"extra key", `{"products":[],"reasoning":"x"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSONAgainstSchema(schema, []byte(tt.doc))
			if tt.valid && err != nil {
				t.Errorf("want valid, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("want validation failure, got none")
			}
		})
	}
}

func TestCategorySchemaEnum(t *testing.T) {
	schema := BuildCategoryJSONSchema([]string{"食品", "日用品", "その他"})

	if err := ValidateJSONAgainstSchema(schema, []byte(`{"category":"食品"}`)); err != nil {
		t.Errorf("enum member should validate: %v", err)
	}
	if err := ValidateJSONAgainstSchema(schema, []byte(`{"category":"家具"}`)); err == nil {
		t.Error("non-member should fail validation")
	}
	if err := ValidateJSONAgainstSchema(schema, []byte(`{}`)); err == nil {
		t.Error("missing category should fail validation")
	}
}
