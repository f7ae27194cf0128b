package extractor

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tanipaint/chirashi-extraction/internal/entity"
)

// PatternType describes which price-text family produced a candidate.
type PatternType string

const (
	PatternTaxInclusive PatternType = "tax_inclusive"
	PatternTaxExclusive PatternType = "tax_exclusive"
	PatternSimple       PatternType = "simple"
	PatternUnit         PatternType = "unit"
	PatternSet          PatternType = "set"
	PatternDiscount     PatternType = "discount"
)

// PriceCandidate is a numeric price recognized inside one annotation.
// Invariant: MinPriceValue <= Value <= MaxPriceValue.
type PriceCandidate struct {
	RawText           string
	Value             int
	PatternType       PatternType
	BoundingBox       entity.BoundingBox
	PatternConfidence float64
}

// Realistic unit-price band for retail flyers; matches outside it are dropped.
const (
	MinPriceValue = 10
	MaxPriceValue = 999999
)

type patternFamily struct {
	kind    PatternType
	baseConf float64
	// each regex keeps the yen amount as its first capture group
	patterns []*regexp.Regexp
}

// PriceDetector recognizes price tokens and their sub-type from annotation text.
// Pattern tables are built once and never mutated; the detector is safe for
// concurrent use.
type PriceDetector struct {
	families []patternFamily
	logger   *slog.Logger
}

func NewPriceDetector(logger *slog.Logger) *PriceDetector {
	if logger == nil {
		logger = slog.Default()
	}
	unitSuffix := `(?:本|個|枚|袋|パック|缶|箱|kg|g|ml|mL|L|l)`
	return &PriceDetector{
		logger: logger,
		families: []patternFamily{
			{
				kind:     PatternTaxInclusive,
				baseConf: 0.9,
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`(\d+)円\s*[（(]税込[）)]`),
					regexp.MustCompile(`税込[：:]?\s*(\d+)円`),
				},
			},
			{
				kind:     PatternTaxExclusive,
				baseConf: 0.85,
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`(\d+)円\s*[（(]税抜[）)]`),
					regexp.MustCompile(`税抜[：:]?\s*(\d+)円`),
				},
			},
			{
				kind:     PatternSimple,
				baseConf: 0.7,
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`(\d+)円`),
					regexp.MustCompile(`[¥￥]\s*(\d+)`),
				},
			},
			{
				kind:     PatternUnit,
				baseConf: 0.8,
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`\d+` + unitSuffix + `\s*当たり\s*(\d+)円`),
					regexp.MustCompile(`(\d+)円\s*[／/]\s*\d*` + unitSuffix),
				},
			},
			{
				kind:     PatternSet,
				baseConf: 0.75,
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`\d+個セット\s*(\d+)円`),
					regexp.MustCompile(`(\d+)円\s*[（(]\d+個[）)]`),
				},
			},
			{
				kind:     PatternDiscount,
				baseConf: 0.8,
				patterns: []*regexp.Regexp{
					regexp.MustCompile(`特価\s*[:：]?\s*(\d+)円`),
					regexp.MustCompile(`セール\s*[:：]?\s*(\d+)円`),
					regexp.MustCompile(`(?i)\d+\s*[%％]\s*OFF\s*(\d+)円`),
				},
			},
		},
	}
}

// Detect scans every annotation against all pattern families. Each family may
// contribute at most one candidate per annotation, and a single annotation can
// yield candidates of several types; dedup happens implicitly downstream.
func (d *PriceDetector) Detect(annotations []entity.TextAnnotation) []PriceCandidate {
	candidates := make([]PriceCandidate, 0, len(annotations))
	for _, a := range annotations {
		if a.Text == "" {
			d.logger.Debug("price.detect.skip_empty_annotation", "box", a.BoundingBox)
			continue
		}
		for _, fam := range d.families {
			c, ok := d.matchFamily(fam, a)
			if ok {
				candidates = append(candidates, c)
			}
		}
	}
	return candidates
}

func (d *PriceDetector) matchFamily(fam patternFamily, a entity.TextAnnotation) (PriceCandidate, bool) {
	for _, re := range fam.patterns {
		m := re.FindStringSubmatch(a.Text)
		if m == nil {
			continue
		}
		value, err := strconv.Atoi(firstNumericGroup(m))
		if err != nil {
			d.logger.Debug("price.detect.unparsable_value", "text", a.Text, "kind", fam.kind, "error", err)
			continue
		}
		if value < MinPriceValue || value > MaxPriceValue {
			// expected on phone numbers, dates, bulk totals; not an error
			continue
		}
		return PriceCandidate{
			RawText:           a.Text,
			Value:             value,
			PatternType:       fam.kind,
			BoundingBox:       a.BoundingBox,
			PatternConfidence: patternConfidence(fam.baseConf, a.Text),
		}, true
	}
	return PriceCandidate{}, false
}

func firstNumericGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

func patternConfidence(base float64, raw string) float64 {
	conf := base
	if strings.Contains(raw, "税込") || strings.Contains(raw, "税抜") {
		conf += 0.1
	}
	if utf8.RuneCountInString(raw) <= 10 {
		conf += 0.05
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}
