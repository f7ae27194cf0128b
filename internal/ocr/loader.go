package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/tanipaint/chirashi-extraction/internal/entity"
)

// Loader reads Vision-API-style OCR dumps so flyers can be re-processed
// without re-running OCR:
//
//	{"full_text": "...", "text_annotations": [{"text": "...", "bounding_box": [x1,y1,x2,y2]}, ...]}
type Loader struct {
	logger *slog.Logger
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

type wireAnnotation struct {
	Text        *string   `json:"text"`
	BoundingBox []float64 `json:"bounding_box"`
}

type wireResult struct {
	FullText        string            `json:"full_text"`
	TextAnnotations *[]wireAnnotation `json:"text_annotations"`
}

func (l *Loader) Recognize(ctx context.Context, path string) (entity.OCRResult, error) {
	if err := ctx.Err(); err != nil {
		return entity.OCRResult{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return entity.OCRResult{}, fmt.Errorf("read ocr dump: %w", err)
	}
	return l.Parse(raw)
}

// Parse decodes a dump. A dump without the text_annotations key produces a
// result with a nil annotation list, which the extraction engine rejects as
// invalid input; an empty list passes through untouched.
func (l *Loader) Parse(raw []byte) (entity.OCRResult, error) {
	var w wireResult
	if err := json.Unmarshal(raw, &w); err != nil {
		return entity.OCRResult{}, fmt.Errorf("decode ocr dump: %w", err)
	}

	out := entity.OCRResult{FullText: w.FullText}
	if w.TextAnnotations == nil {
		return out, nil
	}

	out.TextAnnotations = make([]entity.TextAnnotation, 0, len(*w.TextAnnotations))
	for i, a := range *w.TextAnnotations {
		if a.Text == nil {
			l.logger.Warn("ocr.loader.skip_annotation", "index", i, "reason", "text missing")
			continue
		}
		if len(a.BoundingBox) != 4 {
			l.logger.Warn("ocr.loader.skip_annotation", "index", i, "reason", "bounding box malformed")
			continue
		}
		box := entity.BoundingBox{X1: a.BoundingBox[0], Y1: a.BoundingBox[1], X2: a.BoundingBox[2], Y2: a.BoundingBox[3]}
		if !box.Valid() {
			l.logger.Warn("ocr.loader.skip_annotation", "index", i, "reason", "box not normalized")
			continue
		}
		out.TextAnnotations = append(out.TextAnnotations, entity.TextAnnotation{Text: *a.Text, BoundingBox: box})
	}
	return out, nil
}
