package categorizer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tanipaint/chirashi-extraction/constants"
	"github.com/tanipaint/chirashi-extraction/internal/llm"
)

// Method records how a category was decided.
type Method string

const (
	MethodKeyword  Method = "keyword"
	MethodLLM      Method = "llm"
	MethodFallback Method = "fallback"
)

// Result is one categorization decision.
type Result struct {
	Category constants.Category
	Method   Method
}

// Categorizer assigns flyer products to the fixed store taxonomy. Keyword
// lookup decides most products; an optional LLM classifier breaks ties for
// names no keyword covers.
type Categorizer struct {
	classifier llm.Classifier
	logger     *slog.Logger
}

func New(classifier llm.Classifier, logger *slog.Logger) *Categorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Categorizer{classifier: classifier, logger: logger}
}

// keyword tables, ordered by specificity: first hit wins within a category,
// and categories are probed in taxonomy order with 食品 last so a drugstore
// item like 栄養ドリンク lands in 医薬品・化粧品 before the food net catches it.
var keywordTable = []struct {
	category constants.Category
	words    []string
}{
	{constants.MedCosmetic, []string{
		"薬", "シャンプー", "リンス", "コンディショナー", "化粧水", "乳液", "歯磨き", "歯ブラシ",
		"マスク", "絆創膏", "目薬", "ビタミン", "サプリ", "栄養ドリンク", "ハンドクリーム", "日焼け止め",
	}},
	{constants.DailyGoods, []string{
		"洗剤", "柔軟剤", "漂白剤", "ティッシュ", "トイレットペーパー", "キッチンペーパー", "ラップ",
		"ゴミ袋", "スポンジ", "石鹸", "ハンドソープ", "電池", "洗濯", "掃除",
	}},
	{constants.Clothing, []string{
		"シャツ", "ズボン", "パンツ", "靴下", "下着", "肌着", "ジャケット", "コート",
		"セーター", "タオル", "帽子", "手袋", "パジャマ",
	}},
	{constants.Appliance, []string{
		"炊飯器", "電子レンジ", "掃除機", "扇風機", "ヒーター", "ドライヤー", "テレビ", "冷蔵庫",
		"フライパン", "鍋", "包丁", "食器", "グラス", "傘", "文房具", "ノート",
	}},
	{constants.Food, []string{
		"肉", "牛", "豚", "鶏", "魚", "鮭", "まぐろ", "さば", "卵", "たまご", "牛乳", "チーズ",
		"ヨーグルト", "パン", "米", "麺", "うどん", "そば", "ラーメン", "豆腐", "納豆", "野菜",
		"きゅうり", "トマト", "キャベツ", "レタス", "玉ねぎ", "じゃがいも", "にんじん", "大根",
		"りんご", "バナナ", "みかん", "いちご", "弁当", "惣菜", "冷凍", "アイス", "菓子",
		"チョコ", "ジュース", "お茶", "コーヒー", "ビール", "酒", "ワイン", "水",
	}},
}

// Categorize assigns a single product name to a category.
func (c *Categorizer) Categorize(ctx context.Context, product string) Result {
	name := strings.TrimSpace(product)
	if name == "" {
		return Result{Category: constants.Other, Method: MethodFallback}
	}

	for _, row := range keywordTable {
		for _, w := range row.words {
			if strings.Contains(name, w) {
				return Result{Category: row.category, Method: MethodKeyword}
			}
		}
	}

	if c.classifier != nil {
		label, err := c.classifier.ClassifyProduct(ctx, name, constants.AsStringSlice())
		if err != nil {
			c.logger.Warn("categorize.llm_fallback", "product", name, "error", err)
			return Result{Category: constants.Other, Method: MethodFallback}
		}
		cat, ok := constants.Canonicalize(label)
		if !ok {
			c.logger.Warn("categorize.llm_off_taxonomy", "product", name, "label", label)
			return Result{Category: constants.Other, Method: MethodFallback}
		}
		return Result{Category: cat, Method: MethodLLM}
	}

	return Result{Category: constants.Other, Method: MethodFallback}
}
