package entity

// ExtractionRecord is one confidently-paired (product, price) result.
// PriceExclTax and Unit are nil when they could not be derived.
// Invariants: 0 <= Confidence <= 1; PriceExclTax <= PriceInclTax when set.
type ExtractionRecord struct {
	Product         string   `json:"product"`
	PriceInclTax    int      `json:"price_incl_tax"`
	PriceExclTax    *int     `json:"price_excl_tax"`
	Unit            *string  `json:"unit"`
	Category        string   `json:"category,omitempty"`
	Confidence      float64  `json:"confidence"`
	SpatialDistance float64  `json:"spatial_distance"`
}
