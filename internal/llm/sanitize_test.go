package llm

import (
	"encoding/json"
	"testing"
)

func parsePayload(t *testing.T, doc []byte) RefinementPayload {
	t.Helper()
	var p RefinementPayload
	if err := json.Unmarshal(doc, &p); err != nil {
		t.Fatalf("unmarshal cleaned doc: %v", err)
	}
	return p
}

func TestSanitizeRefinementPassesCleanDocument(t *testing.T) {
	in := []byte(`{"products":[{"product":{"text":"きゅうり"},"price":{"price_value":198},"spatial_distance":42.5}]}`)
	out, notes, err := SanitizeRefinement(in)
	if err != nil {
		t.Fatalf("SanitizeRefinement: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("unexpected repairs: %v", notes)
	}
	p := parsePayload(t, out)
	if len(p.Products) != 1 || p.Products[0].Product.Text != "きゅうり" || p.Products[0].Price.PriceValue != 198 {
		t.Errorf("payload mangled: %+v", p)
	}
	if p.Products[0].SpatialDistance != 42.5 {
		t.Errorf("spatial_distance = %v", p.Products[0].SpatialDistance)
	}
}

func TestSanitizeRefinementCoercesPriceVariants(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		want     int
		wantNote bool
	}{
		{"numeric string", `{"products":[{"product":{"text":"卵"},"price":{"price_value":"98"}}]}`, 98, true},
		{"string with yen suffix", `{"products":[{"product":{"text":"卵"},"price":{"price_value":"98円"}}]}`, 98, true},
		{"whole float", `{"products":[{"product":{"text":"卵"},"price":{"price_value":98.0}}]}`, 98, false},
		{"flattened price", `{"products":[{"product":{"text":"卵"},"price":98}]}`, 98, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, notes, err := SanitizeRefinement([]byte(tt.in))
			if err != nil {
				t.Fatalf("SanitizeRefinement: %v", err)
			}
			if tt.wantNote && len(notes) == 0 {
				t.Error("expected a repair note")
			}
			p := parsePayload(t, out)
			if len(p.Products) != 1 || p.Products[0].Price.PriceValue != tt.want {
				t.Errorf("price = %+v, want %d", p.Products, tt.want)
			}
		})
	}
}

func TestSanitizeRefinementDropsUnusableEntries(t *testing.T) {
	in := []byte(`{"products":[
		{"product":{"text":""},"price":{"price_value":100}},
		{"product":{"text":"パン"},"price":{"price_value":12.5}},
		{"product":{"text":"パン"},"price":{"price_value":"やすい"}},
		{"note":"no product here"},
		{"product":{"text":"牛乳"},"price":{"price_value":208}}
	],"reasoning":"..."}`)

	out, notes, err := SanitizeRefinement(in)
	if err != nil {
		t.Fatalf("SanitizeRefinement: %v", err)
	}
	p := parsePayload(t, out)
	if len(p.Products) != 1 || p.Products[0].Product.Text != "牛乳" {
		t.Fatalf("survivors = %+v, want only 牛乳", p.Products)
	}
	if len(notes) != 5 {
		t.Errorf("notes = %v, want 5 repairs", notes)
	}
}

func TestSanitizeRefinementRejectsNonArrayProducts(t *testing.T) {
	if _, _, err := SanitizeRefinement([]byte(`{"products":"none"}`)); err == nil {
		t.Fatal("expected error for non-array products")
	}
}

func TestSanitizedDocumentValidates(t *testing.T) {
	in := []byte(`{"products":[{"product":{"text":"キャベツ"},"price":{"price_value":"158"},"spatial_distance":"20.0","why":"visible"}]}`)
	schema := BuildRefinementJSONSchema()

	if err := ValidateJSONAgainstSchema(schema, in); err == nil {
		t.Fatal("raw document should not validate")
	}
	cleaned, _, err := SanitizeRefinement(in)
	if err != nil {
		t.Fatalf("SanitizeRefinement: %v", err)
	}
	if err := ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		t.Fatalf("cleaned document should validate: %v", err)
	}
}
