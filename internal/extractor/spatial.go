package extractor

import (
	"math"
	"sort"

	"github.com/tanipaint/chirashi-extraction/internal/entity"
)

// GeometricMatch pairs a product candidate with its nearest compatible price.
// The same price may back several matches; exclusivity is not enforced.
type GeometricMatch struct {
	Product          ProductCandidate
	Price            PriceCandidate
	AdjustedDistance float64
}

// DefaultMaxSpatialDistance is the cutoff (in pixels) beyond which a
// product/price pairing is considered implausible.
const DefaultMaxSpatialDistance = 150

// Layout weights favor flyer-typical arrangements: prices sit to the right of
// or below their product name; diagonal placements are penalized.
const (
	weightPriceRight = 0.8
	weightPriceBelow = 0.9
	weightDiagonal   = 1.2
)

// SpatialMatcher pairs products with prices by adjusted center distance.
// Greedy per-product nearest neighbor keeps the pass O(P*Q) and deterministic;
// flyers rarely have layouts pathological enough to need optimal assignment.
type SpatialMatcher struct{}

func NewSpatialMatcher() *SpatialMatcher {
	return &SpatialMatcher{}
}

// Match selects, for every product, the price candidate with the smallest
// adjusted distance not exceeding maxDistance. Products with no price in
// range yield no match. The result is sorted ascending by adjusted distance;
// downstream refinement only inspects the head of this list.
func (m *SpatialMatcher) Match(products []ProductCandidate, prices []PriceCandidate, maxDistance float64) []GeometricMatch {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxSpatialDistance
	}
	matches := make([]GeometricMatch, 0, len(products))
	for _, p := range products {
		best, ok := m.nearest(p, prices, maxDistance)
		if !ok {
			continue
		}
		matches = append(matches, best)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].AdjustedDistance != matches[j].AdjustedDistance {
			return matches[i].AdjustedDistance < matches[j].AdjustedDistance
		}
		return matches[i].Product.Text < matches[j].Product.Text
	})
	return matches
}

func (m *SpatialMatcher) nearest(p ProductCandidate, prices []PriceCandidate, maxDistance float64) (GeometricMatch, bool) {
	best := GeometricMatch{AdjustedDistance: math.Inf(1)}
	found := false
	for _, price := range prices {
		d := adjustedDistance(p.BoundingBox, price.BoundingBox)
		if d > maxDistance {
			continue
		}
		// strict less keeps the earliest price on ties, which keeps the
		// whole pass order-stable
		if d < best.AdjustedDistance {
			best = GeometricMatch{Product: p, Price: price, AdjustedDistance: d}
			found = true
		}
	}
	return best, found
}

// adjustedDistance is the Euclidean center distance scaled by a layout weight.
func adjustedDistance(product, price entity.BoundingBox) float64 {
	px, py := product.Center()
	qx, qy := price.Center()
	dx := qx - px
	dy := qy - py
	dist := math.Hypot(dx, dy)

	switch {
	case math.Abs(dx) > math.Abs(dy) && dx > 0:
		// name-left / price-right
		return dist * weightPriceRight
	case math.Abs(dy) > math.Abs(dx) && dy > 0:
		// name-top / price-bottom
		return dist * weightPriceBelow
	default:
		return dist * weightDiagonal
	}
}
