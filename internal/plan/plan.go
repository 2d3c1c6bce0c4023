// Package plan defines the typed, immutable Plan produced by the policy
// evaluator and consumed by the plan executor (spec.md §3.5, §9
// "Polymorphism": Action is a sum type over action kinds, not a class
// hierarchy).
package plan

import "time"

// ActionKind discriminates which Action variant is populated.
type ActionKind string

const (
	ActionSetDefault       ActionKind = "set_default"
	ActionSetForced        ActionKind = "set_forced"
	ActionSetLanguage      ActionKind = "set_language"
	ActionSetTitle         ActionKind = "set_title"
	ActionReorder          ActionKind = "reorder"
	ActionRemoveTrack      ActionKind = "remove_track"
	ActionAddTrack         ActionKind = "add_track"
	ActionSynthesizeAudio  ActionKind = "synthesize_audio"
	ActionTranscodeVideo   ActionKind = "transcode_video"
	ActionTranscodeAudio   ActionKind = "transcode_audio"
	ActionRemux            ActionKind = "remux"
	ActionMove             ActionKind = "move"
	ActionSetContainerTag  ActionKind = "set_container_tag"
	ActionSetFileTimestamp ActionKind = "set_file_timestamp"
)

// Action is a tagged-variant action in a Plan (spec.md §3.5). Exactly
// the fields relevant to Kind are populated; this mirrors a sum type
// without a class hierarchy per the design note in spec.md §9.
type Action struct {
	Kind ActionKind `json:"kind"`

	// set_default / set_forced / set_language / set_title / remove_track
	TrackIndex int `json:"track_index,omitempty"`

	BoolValue bool   `json:"bool_value,omitempty"`  // set_default, set_forced
	Code      string `json:"code,omitempty"`        // set_language
	Text      string `json:"text,omitempty"`        // set_title

	// reorder
	NewIndexSequence []int `json:"new_index_sequence,omitempty"`

	// add_track
	SourcePath string `json:"source_path,omitempty"`
	Position   int    `json:"position,omitempty"`

	// synthesize_audio / transcode_audio / transcode_video shared fields
	SourceTrackIndex int     `json:"source_track_index,omitempty"`
	TargetCodec      string  `json:"target_codec,omitempty"`
	TargetChannels   int     `json:"target_channels,omitempty"`
	TargetBitrate    string  `json:"target_bitrate,omitempty"`
	FilterChain      string  `json:"filter_chain,omitempty"`
	Language         string  `json:"language,omitempty"`
	Title            string  `json:"title,omitempty"`
	QualityMode      string  `json:"quality_mode,omitempty"`
	CRF              *int    `json:"crf,omitempty"`
	PreserveCodecs   []string `json:"preserve_codecs,omitempty"`

	// remux
	TargetContainer string `json:"target_container,omitempty"`
	HasTranscodePlan bool  `json:"has_transcode_plan,omitempty"`

	// move
	DestinationTemplate string `json:"destination_template,omitempty"`
	Fallback            string `json:"fallback,omitempty"`

	// set_container_tag
	TagKey   string `json:"tag_key,omitempty"`
	TagValue string `json:"tag_value,omitempty"`

	// set_file_timestamp
	TimestampMode string `json:"timestamp_mode,omitempty"`
	Date          string `json:"date,omitempty"`
}

// Disposition is a track's keep/remove decision.
type Disposition string

const (
	DispositionKeep   Disposition = "KEEP"
	DispositionRemove Disposition = "REMOVE"
)

// TrackDisposition records the per-track keep/remove decision (spec.md §3.5).
type TrackDisposition struct {
	TrackIndex  int
	Disposition Disposition
	Reason      string
}

// ContainerChange records a source->target container format change
// (spec.md §3.5). It holds only the two format names; there is no
// per-track sub-plan.
type ContainerChange struct {
	SourceFormat string
	TargetFormat string
}

// Plan is the immutable output of one policy evaluation (spec.md §3.5).
// Invariant: a plan is either empty (no actions) or at least one action
// fires; execution must be idempotent when re-applied to the same
// starting state.
type Plan struct {
	PolicyVersion      int
	CreatedAt          time.Time
	Actions            []Action
	TrackDispositions  []TrackDisposition
	ContainerChange    *ContainerChange
	RequiresRemux      bool
	Warnings           []string
}

// IsEmpty reports whether the plan contains no actions (a legal no-op).
func (p Plan) IsEmpty() bool {
	return len(p.Actions) == 0
}
