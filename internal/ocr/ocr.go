package ocr

import (
	"context"

	"github.com/tanipaint/chirashi-extraction/internal/entity"
)

// Source produces the annotation bag the extraction engine consumes.
// Implementations: Tesseract for raw images, Loader for pre-OCRed JSON dumps.
type Source interface {
	Recognize(ctx context.Context, path string) (entity.OCRResult, error)
}
