package constants

import (
	"strings"
)

type Category string

const (
	Food        Category = "食品"
	DailyGoods  Category = "日用品"
	MedCosmetic Category = "医薬品・化粧品"
	Clothing    Category = "衣料品"
	Appliance   Category = "家電・雑貨"
	Other       Category = "その他"
)

var allCategories = []Category{
	Food,
	DailyGoods,
	MedCosmetic,
	Clothing,
	Appliance,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps a free-form label (e.g. from an LLM response) onto one of
// the fixed categories. Returns (Other, false) when nothing matches.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.TrimSpace(input)

	// synonyms seen in model output
	synonyms := map[string]Category{
		"食料品":    Food,
		"飲料":     Food,
		"生鮮食品":   Food,
		"雑貨":     Appliance,
		"家電":     Appliance,
		"化粧品":    MedCosmetic,
		"医薬品":    MedCosmetic,
		"衣類":     Clothing,
		"ファッション": Clothing,
		"生活用品":   DailyGoods,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == string(cat) {
			return cat, true
		}
	}

	return Other, false
}
