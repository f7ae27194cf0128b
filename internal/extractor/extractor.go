package extractor

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/tanipaint/chirashi-extraction/internal/common"
	"github.com/tanipaint/chirashi-extraction/internal/entity"
)

// RefineRequest carries the flyer text and the best geometric matches to the
// refinement collaborator. Matches holds at most MaxRefineMatches entries.
type RefineRequest struct {
	FullText string
	Matches  []GeometricMatch
}

// RefinedMatch is one (product, price) pair as re-read by the collaborator.
type RefinedMatch struct {
	Product         string
	Price           int
	SpatialDistance float64
}

// Refiner is the optional LLM collaborator. Implementations own their timeout
// and retry policy; any error is absorbed by the orchestrator.
type Refiner interface {
	RefineMatches(ctx context.Context, req RefineRequest) ([]RefinedMatch, error)
}

// MaxRefineMatches caps how many geometric matches the refiner inspects.
const MaxRefineMatches = 5

// Config holds the orchestrator tunables.
type Config struct {
	MaxSpatialDistance float64 // default 150
	MinConfidence      float64 // default 0.4
	UseLLM             bool
}

// Extractor turns an unordered bag of OCR annotations into paired
// (product, price) records. One instance is safe for concurrent use; all
// state is built at construction and read-only afterwards.
type Extractor struct {
	cfg      Config
	detector *PriceDetector
	names    *NameIdentifier
	matcher  *SpatialMatcher
	scorer   *ConfidenceScorer
	refiner  Refiner
	logger   *slog.Logger
}

func New(cfg Config, refiner Refiner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxSpatialDistance <= 0 {
		cfg.MaxSpatialDistance = DefaultMaxSpatialDistance
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.4
	}
	return &Extractor{
		cfg:      cfg,
		detector: NewPriceDetector(logger),
		names:    NewNameIdentifier(logger),
		matcher:  NewSpatialMatcher(),
		scorer:   NewConfidenceScorer(),
		refiner:  refiner,
		logger:   logger,
	}
}

// Extract runs the full pipeline: detect prices, identify names, match
// spatially, optionally refine via LLM, fuse confidence, filter and sort.
// A structurally invalid input (nil annotation list) is the only fatal error;
// everything else degrades to a smaller or empty result.
func (e *Extractor) Extract(ctx context.Context, ocr entity.OCRResult) ([]entity.ExtractionRecord, error) {
	start := time.Now()

	if ocr.TextAnnotations == nil {
		return nil, common.NewInputError("text_annotations missing from OCR result")
	}
	if len(ocr.TextAnnotations) == 0 {
		return []entity.ExtractionRecord{}, nil
	}

	prices := e.detector.Detect(ocr.TextAnnotations)
	products := e.names.Identify(ocr.TextAnnotations)
	matches := e.matcher.Match(products, prices, e.cfg.MaxSpatialDistance)

	e.logger.Info("extract.candidates",
		"annotations", len(ocr.TextAnnotations),
		"prices", len(prices),
		"products", len(products),
		"matches", len(matches),
	)

	var records []entity.ExtractionRecord
	if refined, ok := e.refine(ctx, ocr.FullText, matches); ok {
		records = e.recordsFromRefined(refined)
	} else {
		records = e.recordsFromMatches(matches)
	}

	filtered := records[:0]
	for _, r := range records {
		if r.Confidence >= e.cfg.MinConfidence {
			filtered = append(filtered, r)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Confidence != filtered[j].Confidence {
			return filtered[i].Confidence > filtered[j].Confidence
		}
		if filtered[i].Product != filtered[j].Product {
			return filtered[i].Product < filtered[j].Product
		}
		return filtered[i].PriceInclTax < filtered[j].PriceInclTax
	})

	e.logger.Info("extract.done",
		"records", len(filtered),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return filtered, nil
}

// refine hands the top matches to the LLM collaborator. Returns ok=false for
// every failure mode so the caller falls back to geometric matches; this path
// must never surface an error.
func (e *Extractor) refine(ctx context.Context, fullText string, matches []GeometricMatch) ([]RefinedMatch, bool) {
	if !e.cfg.UseLLM || e.refiner == nil || len(matches) == 0 {
		return nil, false
	}
	top := matches
	if len(top) > MaxRefineMatches {
		top = top[:MaxRefineMatches]
	}
	refined, err := e.refiner.RefineMatches(ctx, RefineRequest{FullText: fullText, Matches: top})
	if err != nil {
		e.logger.Warn("extract.refine.fallback", "error", err)
		return nil, false
	}
	if len(refined) == 0 {
		return nil, false
	}
	for _, r := range refined {
		if r.Product == "" || r.Price < MinPriceValue || r.Price > MaxPriceValue {
			e.logger.Warn("extract.refine.fallback", "reason", "implausible refined pair", "product", r.Product, "price", r.Price)
			return nil, false
		}
	}
	e.logger.Info("extract.refine.ok", "pairs", len(refined))
	return refined, true
}

func (e *Extractor) recordsFromMatches(matches []GeometricMatch) []entity.ExtractionRecord {
	records := make([]entity.ExtractionRecord, 0, len(matches))
	for _, m := range matches {
		clarity := textClarity(m.Product.Text, m.Product.BoundingBox)
		sig := Signals{
			ProductName:       &m.Product.Text,
			PriceInclTax:      &m.Price.Value,
			SpatialDistance:   &m.AdjustedDistance,
			TextClarity:       &clarity,
			PatternConfidence: &m.Price.PatternConfidence,
		}
		records = append(records, e.buildRecord(m.Product.Text, m.Price.Value, m.AdjustedDistance, sig))
	}
	return records
}

func (e *Extractor) recordsFromRefined(refined []RefinedMatch) []entity.ExtractionRecord {
	records := make([]entity.ExtractionRecord, 0, len(refined))
	for _, r := range refined {
		r := r
		sig := Signals{
			ProductName:     &r.Product,
			PriceInclTax:    &r.Price,
			SpatialDistance: &r.SpatialDistance,
		}
		records = append(records, e.buildRecord(r.Product, r.Price, r.SpatialDistance, sig))
	}
	return records
}

func (e *Extractor) buildRecord(product string, price int, distance float64, sig Signals) entity.ExtractionRecord {
	excl := TaxExclusive(price)
	rec := entity.ExtractionRecord{
		Product:         product,
		PriceInclTax:    price,
		PriceExclTax:    &excl,
		Confidence:      e.scorer.Score(sig),
		SpatialDistance: distance,
	}
	if u := ExtractUnit(product); u != "" {
		rec.Unit = &u
	}
	return rec
}

// TaxExclusive derives the pre-tax price from a tax-inclusive one at the
// standard 10% consumption tax rate, flooring toward zero. Integer math keeps
// the result exact: floor(p / 1.10) == p*100/110 for non-negative p.
func TaxExclusive(priceInclTax int) int {
	return priceInclTax * 100 / 110
}

var unitRe = regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:kg|ml|mL|g|L|l|本|個|枚|袋|パック|缶|箱)`)

// ExtractUnit pulls a quantity+unit token (e.g. "3本", "500ml") out of a
// product name, or "" when none is present.
func ExtractUnit(product string) string {
	return unitRe.FindString(product)
}

// textClarity estimates how cleanly a fragment was read, from text shape
// alone: the OCR provider gives no per-word confidence.
func textClarity(text string, box entity.BoundingBox) float64 {
	clarity := 0.7
	n := utf8.RuneCountInString(text)
	if n >= 3 {
		clarity += 0.1
	}
	if n >= 6 {
		clarity += 0.05
	}
	if box.Valid() && box.X2 > box.X1 && box.Y2 > box.Y1 {
		clarity += 0.05
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			clarity += 0.05
			break
		}
	}
	if clarity > 1.0 {
		clarity = 1.0
	}
	return clarity
}
