package llm

import "context"

// RefinedText is the product half of a refined pair.
type RefinedText struct {
	Text string `json:"text"`
}

// RefinedPrice is the price half of a refined pair, in whole yen.
type RefinedPrice struct {
	PriceValue int `json:"price_value"`
}

// RefinedProduct is one corrected (product, price) pair as returned by the
// model. SpatialDistance echoes the geometric distance of the match the model
// refined, so downstream scoring keeps a distance signal.
type RefinedProduct struct {
	Product         RefinedText  `json:"product"`
	Price           RefinedPrice `json:"price"`
	SpatialDistance float64      `json:"spatial_distance"`
}

// RefinementPayload is the JSON document we require from the model.
type RefinementPayload struct {
	Products []RefinedProduct `json:"products"`
}

// MatchHint is one geometric pairing handed to the model for review.
type MatchHint struct {
	Product         string  `json:"product"`
	Price           int     `json:"price"`
	SpatialDistance float64 `json:"spatial_distance"`
}

// RefineRequest carries the flyer context for a refinement round.
type RefineRequest struct {
	FullText string
	Matches  []MatchHint
}

// Classifier assigns a product name to exactly one of the allowed categories.
type Classifier interface {
	ClassifyProduct(ctx context.Context, product string, allowed []string) (string, error)
}
