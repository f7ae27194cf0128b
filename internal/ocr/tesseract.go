package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/tanipaint/chirashi-extraction/internal/entity"
)

// Config for the Tesseract-backed OCR source.
type Config struct {
	Language    string // default "jpn"
	TessdataDir string // optional TESSDATA_PREFIX override
}

// Tesseract recognizes flyer images locally with word-level bounding boxes.
// A fresh gosseract client is created per call; the library is not safe to
// share across goroutines.
type Tesseract struct {
	cfg    Config
	logger *slog.Logger
}

func NewTesseract(cfg Config, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Language == "" {
		cfg.Language = "jpn"
	}
	return &Tesseract{cfg: cfg, logger: logger}
}

func (t *Tesseract) Recognize(ctx context.Context, path string) (entity.OCRResult, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return entity.OCRResult{}, err
	}

	client := gosseract.NewClient()
	defer func() {
		if cerr := client.Close(); cerr != nil {
			t.logger.Warn("ocr.tesseract.close_error", "error", cerr)
		}
	}()

	if err := client.SetLanguage(t.cfg.Language); err != nil {
		return entity.OCRResult{}, fmt.Errorf("set language: %w", err)
	}
	if t.cfg.TessdataDir != "" {
		if err := client.SetTessdataPrefix(t.cfg.TessdataDir); err != nil {
			return entity.OCRResult{}, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := client.SetImage(path); err != nil {
		return entity.OCRResult{}, fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return entity.OCRResult{}, fmt.Errorf("tesseract text: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return entity.OCRResult{}, fmt.Errorf("tesseract boxes: %w", err)
	}

	annotations := make([]entity.TextAnnotation, 0, len(boxes))
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		annotations = append(annotations, entity.TextAnnotation{
			Text: word,
			BoundingBox: entity.BoundingBox{
				X1: float64(b.Box.Min.X),
				Y1: float64(b.Box.Min.Y),
				X2: float64(b.Box.Max.X),
				Y2: float64(b.Box.Max.Y),
			},
		})
	}

	t.logger.Info("ocr.tesseract.ok",
		"path", path,
		"lang", t.cfg.Language,
		"annotations", len(annotations),
		"confidence", HeuristicConfidence(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.OCRResult{
		FullText:        strings.TrimSpace(text),
		TextAnnotations: annotations,
	}, nil
}
