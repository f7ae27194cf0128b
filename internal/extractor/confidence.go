package extractor

import "unicode/utf8"

// Signals carries the per-pair evidence fed into confidence fusion.
// Nil fields are absent: they contribute neither score nor weight.
type Signals struct {
	ProductName       *string
	PriceInclTax      *int
	SpatialDistance   *float64
	TextClarity       *float64
	PatternConfidence *float64
}

// Signal weights. Absent signals are renormalized away so partial input does
// not depress the fused score.
const (
	weightProductName = 0.25
	weightPriceRange  = 0.20
	weightDistance    = 0.15
	weightClarity     = 0.20
	weightPattern     = 0.20
)

// ConfidenceScorer fuses per-pair signals into one score in [0,1].
type ConfidenceScorer struct{}

func NewConfidenceScorer() *ConfidenceScorer {
	return &ConfidenceScorer{}
}

// Score returns the weighted mean of the present signals, 0.5 when none are
// present, clamped to [0,1].
func (s *ConfidenceScorer) Score(sig Signals) float64 {
	var total, weights float64

	if sig.ProductName != nil {
		total += nameLengthScore(*sig.ProductName) * weightProductName
		weights += weightProductName
	}
	if sig.PriceInclTax != nil {
		total += priceRangeScore(*sig.PriceInclTax) * weightPriceRange
		weights += weightPriceRange
	}
	if sig.SpatialDistance != nil {
		total += distanceScore(*sig.SpatialDistance) * weightDistance
		weights += weightDistance
	}
	if sig.TextClarity != nil {
		total += *sig.TextClarity * weightClarity
		weights += weightClarity
	}
	if sig.PatternConfidence != nil {
		total += *sig.PatternConfidence * weightPattern
		weights += weightPattern
	}

	if weights == 0 {
		return 0.5
	}
	return clamp01(total / weights)
}

func nameLengthScore(name string) float64 {
	switch n := utf8.RuneCountInString(name); {
	case n >= 3:
		return 0.8
	case n >= 2:
		return 0.6
	default:
		return 0.3
	}
}

func priceRangeScore(price int) float64 {
	switch {
	case price >= 50 && price <= 50000:
		return 0.9
	case price >= 10 && price <= 100000:
		return 0.7
	default:
		return 0.4
	}
}

func distanceScore(d float64) float64 {
	switch {
	case d <= 30:
		return 0.9
	case d <= 60:
		return 0.7
	case d <= 100:
		return 0.5
	default:
		return 0.2
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
