package extractor

import (
	"math"
	"testing"

	"github.com/tanipaint/chirashi-extraction/internal/entity"
)

func product(text string, x1, y1, x2, y2 float64) ProductCandidate {
	return ProductCandidate{
		Text:           text,
		BoundingBox:    entity.BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2},
		NameConfidence: 0.85,
	}
}

func price(value int, x1, y1, x2, y2 float64) PriceCandidate {
	return PriceCandidate{
		RawText:           "",
		Value:             value,
		PatternType:       PatternSimple,
		BoundingBox:       entity.BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2},
		PatternConfidence: 0.75,
	}
}

func TestLayoutWeights(t *testing.T) {
	tests := []struct {
		name  string
		price PriceCandidate
		want  float64
	}{
		// product center fixed at (5,5) in all cases
		{"price to the right", price(100, 20, 0, 30, 10), 20 * 0.8},
		{"price below", price(100, 0, 20, 10, 30), 20 * 0.9},
		{"diagonal placement", price(100, 20, 20, 30, 30), math.Hypot(20, 20) * 1.2},
		{"price to the left", price(100, -30, 0, -20, 10), 30 * 1.2},
	}
	m := NewSpatialMatcher()
	prod := product("きゅうり", 0, 0, 10, 10)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := m.Match([]ProductCandidate{prod}, []PriceCandidate{tc.price}, 150)
			if len(got) != 1 {
				t.Fatalf("want one match, got %v", got)
			}
			if math.Abs(got[0].AdjustedDistance-tc.want) > 1e-9 {
				t.Fatalf("adjusted distance = %v, want %v", got[0].AdjustedDistance, tc.want)
			}
		})
	}
}

func TestMatchRespectsMaxDistance(t *testing.T) {
	m := NewSpatialMatcher()
	prod := product("きゅうり", 0, 0, 10, 10)
	far := price(100, 500, 0, 510, 10) // adjusted 500*0.8 = 400

	got := m.Match([]ProductCandidate{prod}, []PriceCandidate{far}, 150)
	if len(got) != 0 {
		t.Fatalf("match beyond max distance should be dropped, got %v", got)
	}

	got = m.Match([]ProductCandidate{prod}, []PriceCandidate{far}, 400)
	if len(got) != 1 {
		t.Fatalf("adjusted distance equal to max should survive, got %v", got)
	}
	for _, gm := range got {
		if gm.AdjustedDistance > 400 {
			t.Fatalf("adjusted distance %v exceeds max", gm.AdjustedDistance)
		}
	}
}

func TestMatchPicksNearestPerProduct(t *testing.T) {
	m := NewSpatialMatcher()
	prod := product("きゅうり", 0, 0, 10, 10)
	near := price(198, 20, 0, 30, 10)  // adjusted 16
	mid := price(298, 50, 0, 60, 10)   // adjusted 40
	got := m.Match([]ProductCandidate{prod}, []PriceCandidate{mid, near}, 150)
	if len(got) != 1 || got[0].Price.Value != 198 {
		t.Fatalf("want nearest price 198, got %v", got)
	}
}

func TestMatchAllowsSharedPrice(t *testing.T) {
	// exclusivity is intentionally not enforced: two products may claim the
	// same price candidate
	m := NewSpatialMatcher()
	products := []ProductCandidate{
		product("きゅうり", 0, 0, 10, 10),
		product("トマト", 0, 40, 10, 50),
	}
	only := price(198, 20, 20, 30, 30)
	got := m.Match(products, []PriceCandidate{only}, 150)
	if len(got) != 2 {
		t.Fatalf("want both products matched to the single price, got %v", got)
	}
	if got[0].Price.Value != got[1].Price.Value {
		t.Fatalf("both matches should share the price candidate: %v", got)
	}
}

func TestMatchesSortedByAdjustedDistance(t *testing.T) {
	m := NewSpatialMatcher()
	products := []ProductCandidate{
		product("とうふ", 0, 100, 40, 120),
		product("きゅうり", 0, 0, 40, 20),
	}
	prices := []PriceCandidate{
		price(98, 50, 100, 90, 120),
		price(198, 120, 0, 160, 20),
	}
	got := m.Match(products, prices, 300)
	for i := 1; i < len(got); i++ {
		if got[i].AdjustedDistance < got[i-1].AdjustedDistance {
			t.Fatalf("matches not sorted ascending: %v", got)
		}
	}
}
