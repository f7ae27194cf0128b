package extractor

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tanipaint/chirashi-extraction/internal/common"
	"github.com/tanipaint/chirashi-extraction/internal/entity"
)

type stubRefiner struct {
	matches []RefinedMatch
	err     error
	calls   int
}

func (s *stubRefiner) RefineMatches(_ context.Context, _ RefineRequest) ([]RefinedMatch, error) {
	s.calls++
	return s.matches, s.err
}

func cucumberInput() entity.OCRResult {
	return entity.OCRResult{
		FullText: "きゅうり 198円",
		TextAnnotations: []entity.TextAnnotation{
			ann("きゅうり", 10, 10, 80, 30),
			ann("198円", 90, 10, 150, 30),
		},
	}
}

func TestExtractEndToEnd(t *testing.T) {
	e := New(Config{}, nil, nil)
	got, err := e.Extract(context.Background(), cucumberInput())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want exactly one record, got %v", got)
	}
	r := got[0]
	if r.Product != "きゅうり" {
		t.Errorf("product = %q", r.Product)
	}
	if r.PriceInclTax != 198 {
		t.Errorf("price_incl_tax = %d", r.PriceInclTax)
	}
	if r.PriceExclTax == nil || *r.PriceExclTax != 180 {
		t.Errorf("price_excl_tax = %v, want 180", r.PriceExclTax)
	}
	if r.Confidence <= 0.4 {
		t.Errorf("confidence = %v, want > 0.4", r.Confidence)
	}
	if r.Unit != nil {
		t.Errorf("unit = %q, want none", *r.Unit)
	}
}

func TestExtractIdempotent(t *testing.T) {
	e := New(Config{UseLLM: false}, nil, nil)
	a, err := e.Extract(context.Background(), cucumberInput())
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Extract(context.Background(), cucumberInput())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("repeated extraction differs:\n%v\n%v", a, b)
	}
}

func TestExtractEmptyAnnotations(t *testing.T) {
	e := New(Config{}, nil, nil)
	got, err := e.Extract(context.Background(), entity.OCRResult{
		FullText:        "",
		TextAnnotations: []entity.TextAnnotation{},
	})
	if err != nil {
		t.Fatalf("empty input must not error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want empty result, got %v", got)
	}
}

func TestExtractMissingAnnotations(t *testing.T) {
	e := New(Config{}, nil, nil)
	_, err := e.Extract(context.Background(), entity.OCRResult{FullText: "x"})
	if err == nil {
		t.Fatal("missing annotation list must be fatal")
	}
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestExtractRefinerFailureFallsBack(t *testing.T) {
	ref := &stubRefiner{err: common.ErrRefinement}
	e := New(Config{UseLLM: true}, ref, nil)
	got, err := e.Extract(context.Background(), cucumberInput())
	if err != nil {
		t.Fatalf("refiner failure must not propagate: %v", err)
	}
	if ref.calls != 1 {
		t.Fatalf("refiner calls = %d, want 1", ref.calls)
	}
	if len(got) != 1 || got[0].Product != "きゅうり" {
		t.Fatalf("geometric fallback missing: %v", got)
	}
}

func TestExtractUsesRefinedMatches(t *testing.T) {
	ref := &stubRefiner{matches: []RefinedMatch{
		{Product: "きゅうり3本", Price: 198, SpatialDistance: 12},
	}}
	e := New(Config{UseLLM: true}, ref, nil)
	got, err := e.Extract(context.Background(), cucumberInput())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Product != "きゅうり3本" {
		t.Fatalf("refined pair not used: %v", got)
	}
	if got[0].Unit == nil || *got[0].Unit != "3本" {
		t.Fatalf("unit = %v, want 3本", got[0].Unit)
	}
}

func TestExtractImplausibleRefinementFallsBack(t *testing.T) {
	ref := &stubRefiner{matches: []RefinedMatch{{Product: "きゅうり", Price: 5}}}
	e := New(Config{UseLLM: true}, ref, nil)
	got, err := e.Extract(context.Background(), cucumberInput())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].PriceInclTax != 198 {
		t.Fatalf("want geometric fallback on implausible refinement, got %v", got)
	}
}

func TestExtractLLMDisabledSkipsRefiner(t *testing.T) {
	ref := &stubRefiner{matches: []RefinedMatch{{Product: "x", Price: 100}}}
	e := New(Config{UseLLM: false}, ref, nil)
	if _, err := e.Extract(context.Background(), cucumberInput()); err != nil {
		t.Fatal(err)
	}
	if ref.calls != 0 {
		t.Fatalf("refiner should not be called when disabled, calls = %d", ref.calls)
	}
}

func TestTaxExclusive(t *testing.T) {
	tests := []struct{ incl, excl int }{
		{198, 180},
		{110, 100},
		{100, 90},
		{1080, 981},
	}
	for _, tc := range tests {
		if got := TaxExclusive(tc.incl); got != tc.excl {
			t.Errorf("TaxExclusive(%d) = %d, want %d", tc.incl, got, tc.excl)
		}
	}
}

func TestExtractUnit(t *testing.T) {
	tests := []struct{ in, want string }{
		{"きゅうり3本", "3本"},
		{"天然水500ml", "500ml"},
		{"たまご10個", "10個"},
		{"食パン", ""},
	}
	for _, tc := range tests {
		if got := ExtractUnit(tc.in); got != tc.want {
			t.Errorf("ExtractUnit(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
