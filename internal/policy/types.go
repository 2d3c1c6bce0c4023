// Package policy defines the immutable, schema-versioned policy document
// consumed by the evaluator and phased workflow processor (spec.md §4.6).
package policy

import "github.com/randomparity/vpo/internal/policy/rules"

// CurrentSchemaVersion is the minimum policy schema version this
// implementation accepts. Flat (pre-phases) policies predate this and
// are rejected (spec.md §4.6, §6.4).
const CurrentSchemaVersion = 12

// OnErrorMode controls phase/workflow failure handling (spec.md §4.10).
type OnErrorMode string

const (
	OnErrorSkip     OnErrorMode = "skip"
	OnErrorContinue OnErrorMode = "continue"
	OnErrorFail     OnErrorMode = "fail"
)

// PhaseName identifies one step of the workflow (spec.md GLOSSARY).
type PhaseName string

const (
	PhaseAnalyze    PhaseName = "analyze"
	PhaseApply      PhaseName = "apply"
	PhaseTranscode  PhaseName = "transcode"
	PhaseSynthesize PhaseName = "synthesize"
	PhaseMove       PhaseName = "move"
	PhaseTimestamp  PhaseName = "timestamp"
)

// DefaultFlagsConfig controls which track-type gets marked default and
// whether other tracks of that type are cleared (spec.md §4.6, §4.8 step 3).
type DefaultFlagsConfig struct {
	SetFirstVideoDefault              bool `yaml:"set_first_video_default" json:"set_first_video_default"`
	SetPreferredAudioDefault          bool `yaml:"set_preferred_audio_default" json:"set_preferred_audio_default"`
	SetPreferredSubtitleDefault       bool `yaml:"set_preferred_subtitle_default" json:"set_preferred_subtitle_default"`
	SetSubtitleDefaultWhenAudioDiffers bool `yaml:"set_subtitle_default_when_audio_differs" json:"set_subtitle_default_when_audio_differs"`
	ClearOtherDefaults                bool `yaml:"clear_other_defaults" json:"clear_other_defaults"`
}

// TranscriptionConfig controls the transcription plugin + aggregator
// (spec.md §4.4, §4.5).
type TranscriptionConfig struct {
	Enabled               bool    `yaml:"enabled" json:"enabled"`
	DetectCommentary      bool    `yaml:"detect_commentary" json:"detect_commentary"`
	MaxSamples            int     `yaml:"max_samples" json:"max_samples" validate:"omitempty,min=1,max=16"`
	SampleDuration         float64 `yaml:"sample_duration" json:"sample_duration" validate:"omitempty,gt=0"`
	ConfidenceThreshold    float64 `yaml:"confidence_threshold" json:"confidence_threshold" validate:"omitempty,min=0,max=1"`
	IncumbentBonus         float64 `yaml:"incumbent_bonus" json:"incumbent_bonus" validate:"omitempty,min=0,max=1"`
	UpdateLanguageFromResult bool  `yaml:"update_language_from_transcription" json:"update_language_from_transcription"`
}

// LanguageConfig controls the language-analysis phase (spec.md §4.5).
type LanguageConfig struct {
	MinTrackDurationSeconds float64 `yaml:"min_track_duration_seconds" json:"min_track_duration_seconds" validate:"omitempty,gt=0"`
}

// Config holds preferences applied by every phase (spec.md §4.6).
type Config struct {
	AudioLanguagePreference    []string            `yaml:"audio_language_preference" json:"audio_language_preference"`
	SubtitleLanguagePreference []string            `yaml:"subtitle_language_preference" json:"subtitle_language_preference"`
	TrackOrder                 []TrackType         `yaml:"track_order" json:"track_order"`
	CommentaryPatterns         []string            `yaml:"commentary_patterns" json:"commentary_patterns"`
	DefaultFlags               DefaultFlagsConfig  `yaml:"default_flags" json:"default_flags"`
	Transcription              TranscriptionConfig `yaml:"transcription" json:"transcription"`
	Language                   LanguageConfig      `yaml:"language" json:"language"`
	OnError                    OnErrorMode         `yaml:"on_error" json:"on_error" validate:"omitempty,oneof=skip continue fail"`
}

// HasTranscriptionSettings reports whether transcription config is
// meaningfully populated (mirrors original_source's
// `policy.has_transcription_settings` guard).
func (c Config) HasTranscriptionSettings() bool {
	return c.Transcription.Enabled
}

// Resolution is a closed enum of accepted resolution tokens (spec.md §6.4).
type Resolution string

const (
	Res480p  Resolution = "480p"
	Res720p  Resolution = "720p"
	Res1080p Resolution = "1080p"
	Res1440p Resolution = "1440p"
	Res2160p Resolution = "2160p"
	Res4K    Resolution = "4k"
	Res8K    Resolution = "8k"
)

// ValidResolutions enumerates the closed set accepted in policy documents.
var ValidResolutions = map[Resolution]bool{
	Res480p: true, Res720p: true, Res1080p: true, Res1440p: true,
	Res2160p: true, Res4K: true, Res8K: true,
}

// SkipCondition mirrors the transcode phase's skip_if leaves (a restricted
// subset of rules.Condition aimed at "don't re-encode if already
// compliant") — see spec.md §8 scenario 4.
type SkipCondition struct {
	CodecMatches     []string   `yaml:"codec_matches,omitempty" json:"codec_matches,omitempty"`
	ResolutionWithin Resolution `yaml:"resolution_within,omitempty" json:"resolution_within,omitempty"`
	BitrateUnder     string     `yaml:"bitrate_under,omitempty" json:"bitrate_under,omitempty" validate:"omitempty,bitrate"`
}

// QualityMode selects how transcode quality is controlled — CRF and
// target bitrate are mutually exclusive (spec.md §4.6 validation).
type QualityMode struct {
	CRF            *int   `yaml:"crf,omitempty" json:"crf,omitempty" validate:"omitempty,min=0,max=51"`
	TargetBitrate  string `yaml:"target_bitrate,omitempty" json:"target_bitrate,omitempty" validate:"omitempty,bitrate"`
	Preset         string `yaml:"preset,omitempty" json:"preset,omitempty" validate:"omitempty,oneof=ultrafast superfast veryfast faster fast medium slow slower veryslow"`
}

// Validate enforces the CRF/target-bitrate mutual exclusion (spec.md §4.6).
func (q QualityMode) Validate() error {
	if q.CRF != nil && q.TargetBitrate != "" {
		return ErrCRFAndBitrateBothSet
	}
	return nil
}

// TranscodeVideoConfig configures the transcode phase's video action.
type TranscodeVideoConfig struct {
	Codec       string        `yaml:"codec" json:"codec" validate:"omitempty,oneof=hevc h264 av1"`
	Quality     QualityMode   `yaml:"quality" json:"quality"`
	SkipIf      SkipCondition `yaml:"skip_if" json:"skip_if"`
	FFmpegArgs  []string      `yaml:"ffmpeg_args,omitempty" json:"ffmpeg_args,omitempty" validate:"omitempty,max=50,dive,max=1024,ffmpegarg"`
}

// TranscodeAudioConfig configures the transcode phase's audio action.
type TranscodeAudioConfig struct {
	Codec           string   `yaml:"codec" json:"codec"`
	Bitrate         string   `yaml:"bitrate" json:"bitrate" validate:"omitempty,bitrate"`
	PreserveCodecs  []string `yaml:"preserve_codecs,omitempty" json:"preserve_codecs,omitempty"`
}

// SynthesizeAudioConfig configures the synthesize phase (spec.md §3.5
// synthesize_audio action).
type SynthesizeAudioConfig struct {
	TargetCodec    string `yaml:"target_codec" json:"target_codec"`
	TargetChannels int    `yaml:"target_channels" json:"target_channels" validate:"omitempty,min=1,max=8"`
	TargetBitrate  string `yaml:"target_bitrate" json:"target_bitrate" validate:"omitempty,bitrate"`
	FilterChain    string `yaml:"filter_chain,omitempty" json:"filter_chain,omitempty" validate:"omitempty,ffmpegarg"`
	Language       string `yaml:"language" json:"language"`
	Title          string `yaml:"title" json:"title"`
}

// MoveConfig configures the move phase (spec.md §3.5 move action).
type MoveConfig struct {
	DestinationTemplate string `yaml:"destination_template" json:"destination_template" validate:"required_with=Fallback"`
	Fallback            string `yaml:"fallback" json:"fallback"`
}

// TimestampMode selects how the timestamp phase sets file mtime.
type TimestampMode string

const (
	TimestampModeNow      TimestampMode = "now"
	TimestampModeFixed    TimestampMode = "fixed"
	TimestampModePreserve TimestampMode = "preserve"
)

// FileTimestampConfig configures the timestamp phase.
type FileTimestampConfig struct {
	Mode     TimestampMode `yaml:"mode" json:"mode" validate:"omitempty,oneof=now fixed preserve"`
	Date     string        `yaml:"date,omitempty" json:"date,omitempty"`
	Fallback TimestampMode `yaml:"fallback,omitempty" json:"fallback,omitempty"`
}

// PhaseDefinition is one step of the policy's phase sequence (spec.md §4.6).
type PhaseDefinition struct {
	Name      PhaseName        `yaml:"name" json:"name" validate:"required,oneof=analyze apply transcode synthesize move timestamp"`
	SkipWhen  []rules.Condition `yaml:"skip_when,omitempty" json:"skip_when,omitempty"`
	Rules     *rules.Rules      `yaml:"rules,omitempty" json:"rules,omitempty"`
	Transcode struct {
		Video TranscodeVideoConfig `yaml:"video" json:"video"`
		Audio TranscodeAudioConfig `yaml:"audio" json:"audio"`
	} `yaml:"transcode,omitempty" json:"transcode,omitempty"`
	Synthesize SynthesizeAudioConfig `yaml:"synthesize,omitempty" json:"synthesize,omitempty"`
	Move       MoveConfig            `yaml:"move,omitempty" json:"move,omitempty"`
	Timestamp  FileTimestampConfig   `yaml:"timestamp,omitempty" json:"timestamp,omitempty"`
	OnError    OnErrorMode           `yaml:"on_error,omitempty" json:"on_error,omitempty" validate:"omitempty,oneof=skip continue fail"`
}

// WorkflowConfig selects which phases run and the default error policy
// (spec.md §4.6).
type WorkflowConfig struct {
	Phases  []PhaseName `yaml:"phases" json:"phases" validate:"required,min=1"`
	OnError OnErrorMode `yaml:"on_error" json:"on_error" validate:"omitempty,oneof=skip continue fail"`
}

// Document is the top-level, immutable policy document (spec.md §4.6).
type Document struct {
	SchemaVersion int               `yaml:"schema_version" json:"schema_version" validate:"required,min=12"`
	Config        Config            `yaml:"config" json:"config"`
	Phases        []PhaseDefinition `yaml:"phases" json:"phases" validate:"required,min=1,dive"`
	Workflow      WorkflowConfig    `yaml:"workflow" json:"workflow"`
}
