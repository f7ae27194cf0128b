package entity

import "math"

// BoundingBox is an axis-aligned rectangle in image coordinates.
// Invariant: X1 <= X2, Y1 <= Y2.
type BoundingBox struct {
	X1, Y1, X2, Y2 float64
}

// Center returns the geometric center of the box.
func (b BoundingBox) Center() (x, y float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Valid reports whether the box satisfies its ordering invariant.
func (b BoundingBox) Valid() bool {
	return b.X1 <= b.X2 && b.Y1 <= b.Y2
}

// CenterDistance is the Euclidean distance between the centers of two boxes.
func CenterDistance(a, b BoundingBox) float64 {
	ax, ay := a.Center()
	bx, by := b.Center()
	return math.Hypot(bx-ax, by-ay)
}

// TextAnnotation is one OCR text fragment with its position.
// Supplied by the OCR collaborator; never mutated downstream.
type TextAnnotation struct {
	Text        string      `json:"text"`
	BoundingBox BoundingBox `json:"bounding_box"`
}

// OCRResult is the input contract of the extraction engine.
// TextAnnotations == nil means the field was absent from the source document,
// which is distinct from an empty annotation list.
type OCRResult struct {
	FullText        string           `json:"full_text"`
	TextAnnotations []TextAnnotation `json:"text_annotations"`
}
