// Package transcription defines the transcription plugin contract and
// the multi-sample aggregator that drives it (spec.md §4.4).
package transcription

import "context"

// DetectionResult is what a plugin's DetectLanguage call returns.
type DetectionResult struct {
	Language         string
	Confidence       float64
	TranscriptSample string
}

// Segment is one timestamped span of a full transcription.
type Segment struct {
	StartS     float64
	EndS       float64
	Language   string
	Confidence float64
	Text       string
}

// TranscribeResult is what a plugin's Transcribe call returns.
type TranscribeResult struct {
	Language         string
	Confidence       float64
	Segments         []Segment
	TranscriptSample string
}

// Plugin is the contract a transcription backend implements (spec.md
// §4.4). Plugins are loaded lazily; a missing dependency must fail open
// (the plugin simply isn't registered) rather than crashing startup —
// see Registry.Register.
type Plugin interface {
	Name() string
	SupportsFeature(name string) bool
	DetectLanguage(ctx context.Context, audio []byte) (DetectionResult, error)
	Transcribe(ctx context.Context, audio []byte) (TranscribeResult, error)
}

// SampleExtractor pulls a short PCM chunk for a track at a given offset;
// implemented by the probe/transcode adapters elsewhere in the module.
// Kept as an interface here so the aggregator stays free of any concrete
// media-tool dependency.
type SampleExtractor interface {
	ExtractSample(ctx context.Context, path string, trackIndex int, offsetSeconds, durationSeconds float64) ([]byte, error)
}
