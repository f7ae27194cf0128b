package extractor

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tanipaint/chirashi-extraction/internal/entity"
)

// ProductCandidate is an annotation that plausibly names a product.
// Invariant: NameConfidence >= MinNameConfidence.
type ProductCandidate struct {
	Text              string
	BoundingBox       entity.BoundingBox
	NameConfidence    float64
	HasJapanese       bool
	HasBrandIndicator bool
}

// MinNameConfidence is the floor below which candidates are discarded
// outright rather than retained with a low score.
const MinNameConfidence = 0.3

// NameIdentifier filters and scores annotations as product-name candidates.
// All tables are built at construction and shared read-only.
type NameIdentifier struct {
	priceLike []*regexp.Regexp
	pureDigit *regexp.Regexp
	pureASCII *regexp.Regexp
	punctOnly *regexp.Regexp
	unitHint  *regexp.Regexp
	denylist  []string
	brands    []string
	logger    *slog.Logger
}

func NewNameIdentifier(logger *slog.Logger) *NameIdentifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &NameIdentifier{
		priceLike: []*regexp.Regexp{
			regexp.MustCompile(`\d+円`),
			regexp.MustCompile(`税込|税抜`),
			regexp.MustCompile(`(?i)[%％]\s*OFF`),
			regexp.MustCompile(`特価|セール`),
		},
		pureDigit: regexp.MustCompile(`^\d+$`),
		pureASCII: regexp.MustCompile(`^[A-Za-z0-9]+$`),
		punctOnly: regexp.MustCompile(`^[\s\p{P}\p{S}]+$`),
		unitHint:  regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:kg|ml|mL|g|L|l|本|個|枚|袋|パック|缶|箱)`),
		denylist: []string{
			"月曜", "火曜", "水曜", "木曜", "金曜", "土曜", "日曜", "曜日",
			"AM", "PM", "午前", "午後", "時まで", "時から",
			"新聞", "チラシ", "広告", "特売日", "営業時間", "店舗",
		},
		brands: []string{
			"サントリー", "アサヒ", "キリン", "コカ・コーラ", "伊藤園",
			"明治", "森永", "雪印", "ロッテ", "グリコ", "カルビー",
			"日清", "カゴメ", "味の素", "ハウス", "ヤマザキ", "ニッスイ",
		},
		logger: logger,
	}
}

// Identify returns surviving candidates sorted by name confidence descending.
// Ties break on text so repeated runs stay byte-identical.
func (n *NameIdentifier) Identify(annotations []entity.TextAnnotation) []ProductCandidate {
	candidates := make([]ProductCandidate, 0, len(annotations))
	for _, a := range annotations {
		text := strings.TrimSpace(a.Text)
		if n.excluded(text) {
			continue
		}
		c := n.score(text, a.BoundingBox)
		if c.NameConfidence < MinNameConfidence {
			continue
		}
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].NameConfidence != candidates[j].NameConfidence {
			return candidates[i].NameConfidence > candidates[j].NameConfidence
		}
		return candidates[i].Text < candidates[j].Text
	})
	return candidates
}

func (n *NameIdentifier) excluded(text string) bool {
	if utf8.RuneCountInString(text) <= 2 {
		return true
	}
	for _, re := range n.priceLike {
		if re.MatchString(text) {
			return true
		}
	}
	if n.pureDigit.MatchString(text) || n.pureASCII.MatchString(text) || n.punctOnly.MatchString(text) {
		return true
	}
	upper := strings.ToUpper(text)
	for _, tok := range n.denylist {
		if strings.Contains(upper, tok) {
			return true
		}
	}
	return false
}

func (n *NameIdentifier) score(text string, box entity.BoundingBox) ProductCandidate {
	conf := 0.5

	japanese := hasJapaneseScript(text)
	if japanese {
		conf += 0.2
	}

	length := utf8.RuneCountInString(text)
	switch {
	case length >= 3 && length <= 20:
		conf += 0.15
	case length >= 2 && length <= 30:
		conf += 0.10
	}

	brand := n.hasBrandIndicator(text)
	if brand {
		conf += 0.15
	}

	return ProductCandidate{
		Text:              text,
		BoundingBox:       box,
		NameConfidence:    conf,
		HasJapanese:       japanese,
		HasBrandIndicator: brand,
	}
}

func (n *NameIdentifier) hasBrandIndicator(text string) bool {
	for _, b := range n.brands {
		if strings.Contains(text, b) {
			return true
		}
	}
	return n.unitHint.MatchString(text)
}

func hasJapaneseScript(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}
