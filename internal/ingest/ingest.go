package ingest

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tanipaint/chirashi-extraction/constants"
)

// ScanDir walks root recursively and returns every flyer file (image or OCR
// dump) in a stable order.
func ScanDir(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if allowed(path, constants.AllowedExtensions) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func allowed(path string, exts map[string]struct{}) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	_, ok := exts[ext]
	return ok
}
