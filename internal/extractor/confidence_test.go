package extractor

import (
	"math"
	"testing"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }
func sp(v string) *string   { return &v }

func TestScoreEmptySignals(t *testing.T) {
	s := NewConfidenceScorer()
	if got := s.Score(Signals{}); got != 0.5 {
		t.Fatalf("Score(empty) = %v, want 0.5", got)
	}
}

func TestScoreAlwaysInUnitInterval(t *testing.T) {
	s := NewConfidenceScorer()
	cases := []Signals{
		{},
		{ProductName: sp("き")},
		{PriceInclTax: ip(5)},
		{SpatialDistance: fp(9999)},
		{TextClarity: fp(0)},
		{PatternConfidence: fp(1)},
		{
			ProductName:       sp("きゅうり3本"),
			PriceInclTax:      ip(198),
			SpatialDistance:   fp(15.5),
			TextClarity:       fp(0.95),
			PatternConfidence: fp(0.98),
		},
	}
	for i, sig := range cases {
		got := s.Score(sig)
		if got < 0 || got > 1 {
			t.Fatalf("case %d: Score = %v, outside [0,1]", i, got)
		}
	}
}

func TestScoreSingleSignalRenormalizes(t *testing.T) {
	s := NewConfidenceScorer()
	tests := []struct {
		name string
		sig  Signals
		want float64
	}{
		{"pattern passthrough", Signals{PatternConfidence: fp(0.75)}, 0.75},
		{"clarity passthrough", Signals{TextClarity: fp(0.6)}, 0.6},
		{"long name", Signals{ProductName: sp("きゅうり")}, 0.8},
		{"two-rune name", Signals{ProductName: sp("いか")}, 0.6},
		{"tight price band", Signals{PriceInclTax: ip(198)}, 0.9},
		{"loose price band", Signals{PriceInclTax: ip(20)}, 0.7},
		{"implausible price", Signals{PriceInclTax: ip(500000)}, 0.4},
		{"close distance", Signals{SpatialDistance: fp(15.0)}, 0.9},
		{"far distance", Signals{SpatialDistance: fp(120.0)}, 0.2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.Score(tc.sig); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Score = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestScoreWeightedFusion(t *testing.T) {
	s := NewConfidenceScorer()
	sig := Signals{
		ProductName:       sp("きゅうり"), // 0.8 * 0.25
		PriceInclTax:      ip(198),     // 0.9 * 0.20
		SpatialDistance:   fp(60.0),    // 0.7 * 0.15
		TextClarity:       fp(0.9),     // 0.9 * 0.20
		PatternConfidence: fp(0.75),    // 0.75 * 0.20
	}
	want := 0.8*0.25 + 0.9*0.20 + 0.7*0.15 + 0.9*0.20 + 0.75*0.20
	if got := s.Score(sig); math.Abs(got-want) > 1e-9 {
		t.Fatalf("Score = %v, want %v", got, want)
	}
}

func TestScorePartialSignalsNotDepressed(t *testing.T) {
	s := NewConfidenceScorer()
	full := s.Score(Signals{
		ProductName:  sp("きゅうり"),
		PriceInclTax: ip(198),
		TextClarity:  fp(0.85),
	})
	// dropping clarity renormalizes instead of pulling the score toward zero
	partial := s.Score(Signals{
		ProductName:  sp("きゅうり"),
		PriceInclTax: ip(198),
	})
	if partial < full-0.2 {
		t.Fatalf("partial = %v collapsed relative to full = %v", partial, full)
	}
}
