package transcription

import (
	"context"
	"errors"
	"math"

	"github.com/randomparity/vpo/internal/language"
)

// Config controls the multi-sample strategy (spec.md §4.4).
type Config struct {
	MaxSamples          int
	SampleDuration      float64 // seconds
	ConfidenceThreshold float64
	IncumbentBonus      float64
}

// SampleResult is one extracted sample's detection outcome.
type SampleResult struct {
	Position   float64 // offset in seconds
	Language   string
	Confidence float64
	Valid      bool
}

// AggregatedResult is the aggregator's final answer for a track.
type AggregatedResult struct {
	Language         string
	Confidence       float64
	TranscriptSample string
	Samples          []SampleResult
}

// ErrAllSamplesFailed is returned when every extracted sample failed to
// produce a valid detection (spec.md §4.4 "if all samples fail, raise").
var ErrAllSamplesFailed = errors.New("transcription: all samples failed")

// CalculateSamplePositions computes sample offsets prioritizing
// {0, mid, quarter, three-quarter, then evenly filled} fractions of the
// usable window (spec.md §4.4), grounded exactly on original_source's
// multi_sample.py calculate_sample_positions including its degenerate
// case and 0.001-tolerance dedup for evenly-filled extra positions.
func CalculateSamplePositions(trackDuration float64, numSamples int, sampleDuration float64) []float64 {
	maxStart := trackDuration - sampleDuration
	if maxStart < 0 {
		maxStart = 0
	}
	if maxStart == 0 {
		return []float64{0.0}
	}

	priorityFractions := []float64{0.0, 0.5, 0.25, 0.75}
	if numSamples < len(priorityFractions) {
		priorityFractions = priorityFractions[:numSamples]
	}

	positions := make([]float64, 0, numSamples)
	for _, f := range priorityFractions {
		positions = append(positions, f*maxStart)
	}

	for i := len(priorityFractions); i < numSamples; i++ {
		fraction := float64(i) / float64(numSamples)
		candidate := fraction * maxStart
		if !positionExists(positions, candidate) {
			positions = append(positions, candidate)
		}
	}

	if len(positions) > numSamples {
		positions = positions[:numSamples]
	}
	return positions
}

func positionExists(positions []float64, candidate float64) bool {
	const tolerance = 0.001
	for _, p := range positions {
		if math.Abs(p-candidate) < tolerance {
			return true
		}
	}
	return false
}

// DetectTrackLanguage extracts samples per Config and calls plugin on
// each, stopping early if a single sample meets the confidence
// threshold, then aggregates votes (spec.md §4.4).
func DetectTrackLanguage(ctx context.Context, plugin Plugin, extractor SampleExtractor, path string, trackIndex int, trackDuration float64, incumbentLanguage string, cfg Config) (AggregatedResult, error) {
	positions := CalculateSamplePositions(trackDuration, cfg.MaxSamples, cfg.SampleDuration)

	samples := make([]SampleResult, 0, len(positions))
	for _, pos := range positions {
		audio, err := extractor.ExtractSample(ctx, path, trackIndex, pos, cfg.SampleDuration)
		if err != nil {
			samples = append(samples, SampleResult{Position: pos, Valid: false})
			continue
		}
		det, err := plugin.DetectLanguage(ctx, audio)
		if err != nil {
			samples = append(samples, SampleResult{Position: pos, Valid: false})
			continue
		}
		samples = append(samples, SampleResult{
			Position: pos, Language: det.Language, Confidence: det.Confidence, Valid: true,
		})
		if det.Confidence >= cfg.ConfidenceThreshold {
			break
		}
	}

	return Aggregate(samples, incumbentLanguage, cfg.IncumbentBonus)
}

// Aggregate implements the exact vote-weighting algorithm from
// multi_sample.py's aggregate_results: votes are keyed by normalized
// language and weighted by confidence; the incumbent's normalized
// bucket gets IncumbentBonus added; the winner is argmax; reported
// confidence averages only the samples whose normalized language
// matches the winner (cross-standard aware, not exact string match).
func Aggregate(samples []SampleResult, incumbentLanguage string, incumbentBonus float64) (AggregatedResult, error) {
	var valid []SampleResult
	for _, s := range samples {
		if s.Valid {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return AggregatedResult{}, ErrAllSamplesFailed
	}

	votes := make(map[string]float64)
	for _, s := range valid {
		key := language.Normalize(s.Language)
		votes[key] += s.Confidence
	}

	incumbentKey := language.Normalize(incumbentLanguage)
	if _, ok := votes[incumbentKey]; ok {
		votes[incumbentKey] += incumbentBonus
	}

	var winner string
	var best float64 = -1
	for lang, weight := range votes {
		if weight > best {
			best = weight
			winner = lang
		}
	}

	var sum float64
	var count int
	for _, s := range valid {
		if language.Match(s.Language, winner) {
			sum += s.Confidence
			count++
		}
	}
	avgConfidence := 0.0
	if count > 0 {
		avgConfidence = sum / float64(count)
	}

	return AggregatedResult{
		Language:   winner,
		Confidence: avgConfidence,
		Samples:    valid,
	}, nil
}
