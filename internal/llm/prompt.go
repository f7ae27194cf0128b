package llm

import (
	"fmt"
	"strings"
)

// MaxPromptTextRunes caps how much of the flyer text the prompts carry.
const MaxPromptTextRunes = 3000

// BuildRefineSystemPrompt composes the system message for a refinement round.
func BuildRefineSystemPrompt() string {
	parts := []string{
		"You are a Japanese retail flyer (チラシ) analyst. Return ONLY JSON that matches the provided JSON Schema.",
		"You are given candidate product/price pairings extracted by layout analysis; correct OCR misreads, fix mispaired prices, and drop pairs that are not real products.",
		"Prices are tax-inclusive whole yen integers between 1 and 999999.",
		"Keep product names exactly as printed on the flyer, including katakana and brand names.",
		"Echo each pair's spatial_distance unchanged unless you re-pair a product with a different price.",
		"Never invent products that are not visible in the flyer text. Never output null.",
	}
	return strings.Join(parts, " ")
}

// BuildRefineUserPrompt packages the flyer text and the candidate pairs.
func BuildRefineUserPrompt(req RefineRequest) string {
	var b strings.Builder
	b.WriteString("Candidate pairs from layout analysis:\n")
	for i, m := range req.Matches {
		fmt.Fprintf(&b, "%d. product=%q price=%d spatial_distance=%.1f\n", i+1, m.Product, m.Price, m.SpatialDistance)
	}
	b.WriteString("\nFlyer text:\n")
	b.WriteString(truncateRunes(req.FullText, MaxPromptTextRunes))
	return b.String()
}

// BuildCategorySystemPrompt composes the system message for product
// classification against a fixed taxonomy.
func BuildCategorySystemPrompt(allowed []string) string {
	parts := []string{
		"You classify Japanese retail products. Return ONLY JSON that matches the provided JSON Schema.",
	}
	if len(allowed) > 0 {
		parts = append(parts,
			"The 'category' MUST be exactly one of the allowed enum: "+strings.Join(allowed, ", ")+".",
			"If uncertain, choose 'その他'.")
	} else {
		parts = append(parts, "The 'category' must be a short Japanese label. If uncertain, use 'その他'.")
	}
	return strings.Join(parts, " ")
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "\n…(truncated)"
}
