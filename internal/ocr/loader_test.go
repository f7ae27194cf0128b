package ocr

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoaderParseFullDump(t *testing.T) {
	raw := []byte(`{
		"full_text": "きゅうり 198円",
		"text_annotations": [
			{"text": "きゅうり", "bounding_box": [10, 10, 80, 30]},
			{"text": "198円", "bounding_box": [90, 10, 150, 30]}
		]
	}`)

	res, err := NewLoader(nil).Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.FullText != "きゅうり 198円" {
		t.Errorf("full text = %q", res.FullText)
	}
	if len(res.TextAnnotations) != 2 {
		t.Fatalf("annotations = %d, want 2", len(res.TextAnnotations))
	}
	if res.TextAnnotations[1].Text != "198円" {
		t.Errorf("second annotation = %q", res.TextAnnotations[1].Text)
	}
	if got := res.TextAnnotations[0].BoundingBox.X2; got != 80 {
		t.Errorf("x2 = %v, want 80", got)
	}
}

func TestLoaderParseMissingAnnotationsKey(t *testing.T) {
	res, err := NewLoader(nil).Parse([]byte(`{"full_text": "チラシ"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.TextAnnotations != nil {
		t.Errorf("expected nil annotations for absent key, got %v", res.TextAnnotations)
	}
}

func TestLoaderParseEmptyAnnotations(t *testing.T) {
	res, err := NewLoader(nil).Parse([]byte(`{"full_text": "", "text_annotations": []}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.TextAnnotations == nil || len(res.TextAnnotations) != 0 {
		t.Errorf("expected empty non-nil annotations, got %v", res.TextAnnotations)
	}
}

func TestLoaderParseSkipsMalformedAnnotations(t *testing.T) {
	raw := []byte(`{
		"full_text": "x",
		"text_annotations": [
			{"bounding_box": [0, 0, 1, 1]},
			{"text": "短い箱", "bounding_box": [0, 0, 1]},
			{"text": "逆転", "bounding_box": [50, 0, 10, 10]},
			{"text": "牛乳", "bounding_box": [0, 0, 40, 20]}
		]
	}`)

	res, err := NewLoader(nil).Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.TextAnnotations) != 1 {
		t.Fatalf("annotations = %d, want 1 survivor", len(res.TextAnnotations))
	}
	if res.TextAnnotations[0].Text != "牛乳" {
		t.Errorf("survivor = %q", res.TextAnnotations[0].Text)
	}
}

func TestLoaderParseInvalidJSON(t *testing.T) {
	if _, err := NewLoader(nil).Parse([]byte(`{not json`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoaderRecognizeReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flyer.json")
	payload := []byte(`{"full_text": "卵 98円", "text_annotations": [{"text": "卵", "bounding_box": [0, 0, 20, 20]}]}`)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewLoader(nil).Recognize(context.Background(), path)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(res.TextAnnotations) != 1 || res.TextAnnotations[0].Text != "卵" {
		t.Errorf("unexpected annotations: %v", res.TextAnnotations)
	}
}

func TestLoaderRecognizeMissingFile(t *testing.T) {
	if _, err := NewLoader(nil).Recognize(context.Background(), "/nonexistent/flyer.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
