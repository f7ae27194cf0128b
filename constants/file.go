package constants

import "strings"

// SourceFormats holds the allowed source formats for an extraction run.
var SourceFormats = []string{"IMAGE", "OCR_JSON"}

const (
	IMAGE   = "IMAGE"
	OCRJSON = "OCR_JSON"
)

// AllowedExtensions holds the default allowed file extensions for flyer ingestion.
// JSON files are Vision-style OCR dumps re-processed without an OCR pass.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"json": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a file extension to a source format, or "" when unsupported.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "jpg", "jpeg", "png":
		return IMAGE
	case "json":
		return OCRJSON
	default:
		return ""
	}
}
