package ocr

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reYen  = regexp.MustCompile(`\d+円|[¥￥]\d+`)
	reTax  = regexp.MustCompile(`税込|税抜`)
	reKana = regexp.MustCompile(`[\p{Hiragana}\p{Katakana}]`)
)

// HeuristicConfidence estimates how flyer-like a decoded page is. Tesseract
// exposes per-word confidences but no document score, so we look for the
// artifacts a readable flyer always has: yen amounts, tax markers, kana text.
func HeuristicConfidence(txt string) float32 {
	score := float32(0.2) // base
	if reYen.MatchString(txt) {
		score += 0.25
	}
	if reTax.MatchString(txt) {
		score += 0.15
	}
	if reKana.MatchString(txt) {
		score += 0.2
	}
	if utf8.RuneCountInString(strings.TrimSpace(txt)) > 80 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
