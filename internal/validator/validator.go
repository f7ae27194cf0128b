package validator

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tanipaint/chirashi-extraction/internal/entity"
)

// Price sanity band in whole yen.
const (
	MinPrice = 1
	MaxPrice = 999999
)

// ValidationResult is the verdict for one extraction record. Confidence
// aggregates the record confidence with the recognition and categorization
// confidences; Errors explains every failed check.
type ValidationResult struct {
	Valid      bool
	Confidence float64
	Errors     []string
}

// Signals carries the per-stage confidences that feed the aggregate.
// Zero values mean the stage did not run and are excluded.
type Signals struct {
	OCRConfidence      float64
	CategoryConfidence float64
}

// Validator checks extraction records before they are exported or stored.
type Validator struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate runs all checks on one record. A record is valid only when every
// check passes; the aggregate confidence is computed either way.
func (v *Validator) Validate(rec entity.ExtractionRecord, sig Signals) ValidationResult {
	var errs []string

	if strings.TrimSpace(rec.Product) == "" {
		errs = append(errs, "product name is blank")
	}
	if rec.PriceInclTax < MinPrice || rec.PriceInclTax > MaxPrice {
		errs = append(errs, fmt.Sprintf("price %d outside [%d, %d]", rec.PriceInclTax, MinPrice, MaxPrice))
	}
	if rec.PriceExclTax != nil {
		switch {
		case *rec.PriceExclTax <= 0:
			errs = append(errs, fmt.Sprintf("tax-exclusive price %d must be positive", *rec.PriceExclTax))
		case *rec.PriceExclTax >= rec.PriceInclTax:
			errs = append(errs, fmt.Sprintf("tax-exclusive price %d not below tax-inclusive %d", *rec.PriceExclTax, rec.PriceInclTax))
		}
	}
	if rec.Confidence < 0 || rec.Confidence > 1 {
		errs = append(errs, fmt.Sprintf("confidence %.3f outside [0, 1]", rec.Confidence))
	}
	if rec.SpatialDistance < 0 {
		errs = append(errs, fmt.Sprintf("spatial distance %.1f is negative", rec.SpatialDistance))
	}

	res := ValidationResult{
		Valid:      len(errs) == 0,
		Confidence: aggregate(rec.Confidence, sig),
		Errors:     errs,
	}
	if !res.Valid {
		v.logger.Warn("validate.record_rejected", "product", rec.Product, "errors", strings.Join(errs, "; "))
	}
	return res
}

// aggregate averages the confidences of the stages that actually ran.
func aggregate(record float64, sig Signals) float64 {
	sum, n := record, 1
	if sig.OCRConfidence > 0 {
		sum += sig.OCRConfidence
		n++
	}
	if sig.CategoryConfidence > 0 {
		sum += sig.CategoryConfidence
		n++
	}
	return sum / float64(n)
}
