package validator

import (
	"math"
	"strings"
	"testing"

	"github.com/tanipaint/chirashi-extraction/internal/entity"
)

func intp(v int) *int { return &v }

func validRecord() entity.ExtractionRecord {
	return entity.ExtractionRecord{
		Product:         "きゅうり",
		PriceInclTax:    198,
		PriceExclTax:    intp(180),
		Confidence:      0.82,
		SpatialDistance: 28,
	}
}

func TestValidateAcceptsGoodRecord(t *testing.T) {
	res := New(nil).Validate(validRecord(), Signals{})
	if !res.Valid {
		t.Fatalf("expected valid, errors: %v", res.Errors)
	}
	if res.Confidence != 0.82 {
		t.Errorf("aggregate = %v, want record confidence alone", res.Confidence)
	}
}

func TestValidateChecks(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*entity.ExtractionRecord)
		wantErr string
	}{
		{"blank product", func(r *entity.ExtractionRecord) { r.Product = "  " }, "product name"},
		{"price zero", func(r *entity.ExtractionRecord) { r.PriceInclTax = 0 }, "outside"},
		{"price above band", func(r *entity.ExtractionRecord) { r.PriceInclTax = 1000000 }, "outside"},
		{"excl not below incl", func(r *entity.ExtractionRecord) { r.PriceExclTax = intp(198) }, "not below"},
		{"excl above incl", func(r *entity.ExtractionRecord) { r.PriceExclTax = intp(220) }, "not below"},
		{"excl zero", func(r *entity.ExtractionRecord) { r.PriceExclTax = intp(0) }, "positive"},
		{"confidence above one", func(r *entity.ExtractionRecord) { r.Confidence = 1.2 }, "confidence"},
		{"negative distance", func(r *entity.ExtractionRecord) { r.SpatialDistance = -5 }, "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)
			res := New(nil).Validate(rec, Signals{})
			if res.Valid {
				t.Fatal("expected invalid")
			}
			found := false
			for _, e := range res.Errors {
				if strings.Contains(e, tt.wantErr) {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v missing %q", res.Errors, tt.wantErr)
			}
		})
	}
}

func TestValidateMissingExclTaxAllowed(t *testing.T) {
	rec := validRecord()
	rec.PriceExclTax = nil
	if res := New(nil).Validate(rec, Signals{}); !res.Valid {
		t.Errorf("record without tax-exclusive price should pass, errors: %v", res.Errors)
	}
}

func TestValidateAggregatesStageConfidences(t *testing.T) {
	rec := validRecord()
	res := New(nil).Validate(rec, Signals{OCRConfidence: 0.6, CategoryConfidence: 0.9})
	want := (0.82 + 0.6 + 0.9) / 3
	if math.Abs(res.Confidence-want) > 1e-9 {
		t.Errorf("aggregate = %v, want %v", res.Confidence, want)
	}

	res = New(nil).Validate(rec, Signals{OCRConfidence: 0.6})
	want = (0.82 + 0.6) / 2
	if math.Abs(res.Confidence-want) > 1e-9 {
		t.Errorf("aggregate = %v, want %v", res.Confidence, want)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	rec := entity.ExtractionRecord{Product: "", PriceInclTax: 0, Confidence: -1}
	res := New(nil).Validate(rec, Signals{})
	if len(res.Errors) < 3 {
		t.Errorf("errors = %v, want every failed check reported", res.Errors)
	}
}
