package transcription

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// TestAggregateIncumbentBias mirrors spec.md §8 scenario 5 exactly.
func TestAggregateIncumbentBias(t *testing.T) {
	samples := []SampleResult{
		{Language: "eng", Confidence: 0.60, Valid: true},
		{Language: "ger", Confidence: 0.55, Valid: true},
		{Language: "eng", Confidence: 0.58, Valid: true},
	}

	result, err := Aggregate(samples, "ger", 0.15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Language != "eng" {
		t.Fatalf("winner = %q, want eng (eng votes 1.18 > ger 0.70)", result.Language)
	}
	if !almostEqual(result.Confidence, 0.59) {
		t.Errorf("confidence = %v, want 0.59", result.Confidence)
	}

	// With a large enough bonus, ger should win instead.
	result2, err := Aggregate(samples, "ger", 0.90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result2.Language != "ger" {
		t.Errorf("winner with bonus=0.90 = %q, want ger", result2.Language)
	}
}

func TestAggregateSameLanguageSameConfidence(t *testing.T) {
	samples := []SampleResult{
		{Language: "eng", Confidence: 0.8, Valid: true},
		{Language: "eng", Confidence: 0.8, Valid: true},
	}
	result, err := Aggregate(samples, "", 0.1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Language != "eng" || !almostEqual(result.Confidence, 0.8) {
		t.Errorf("result = %+v, want eng/0.8", result)
	}
}

func TestAggregateAllSamplesFail(t *testing.T) {
	samples := []SampleResult{{Valid: false}, {Valid: false}}
	_, err := Aggregate(samples, "eng", 0.1)
	if err != ErrAllSamplesFailed {
		t.Errorf("expected ErrAllSamplesFailed, got %v", err)
	}
}

func TestCalculateSamplePositionsDegenerate(t *testing.T) {
	positions := CalculateSamplePositions(5.0, 3, 10.0)
	if len(positions) != 1 || positions[0] != 0.0 {
		t.Errorf("expected single 0.0 position for short track, got %v", positions)
	}
}

func TestCalculateSamplePositionsPriority(t *testing.T) {
	// duration 100s, sample_duration 10s -> max_start = 90
	positions := CalculateSamplePositions(100.0, 4, 10.0)
	want := []float64{0.0, 45.0, 22.5, 67.5}
	if len(positions) != len(want) {
		t.Fatalf("positions = %v, want %v", positions, want)
	}
	for i := range want {
		if !almostEqual(positions[i], want[i]) {
			t.Errorf("positions[%d] = %v, want %v", i, positions[i], want[i])
		}
	}
}

func TestCalculateSamplePositionsEvenFill(t *testing.T) {
	positions := CalculateSamplePositions(100.0, 6, 10.0)
	if len(positions) != 6 {
		t.Fatalf("expected 6 positions, got %d: %v", len(positions), positions)
	}
}
