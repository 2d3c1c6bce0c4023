package policy

// TrackType is the policy-level classification of a track, computed by
// internal/classify and consumed by the evaluator's ordering and
// default-flag steps (spec.md §4.8 step 1). Declared here rather than in
// internal/classify so the policy document's track_order field (a
// closed enum over these values) does not need to import the classifier.
type TrackType string

const (
	TrackTypeVideo             TrackType = "video"
	TrackTypeAudioMain         TrackType = "audio_main"
	TrackTypeAudioAlternate    TrackType = "audio_alternate"
	TrackTypeAudioCommentary   TrackType = "audio_commentary"
	TrackTypeAudioMusic        TrackType = "audio_music"
	TrackTypeAudioSFX          TrackType = "audio_sfx"
	TrackTypeAudioNonSpeech    TrackType = "audio_non_speech"
	TrackTypeSubtitleMain      TrackType = "subtitle_main"
	TrackTypeSubtitleForced    TrackType = "subtitle_forced"
	TrackTypeSubtitleCommentary TrackType = "subtitle_commentary"
	TrackTypeAttachment        TrackType = "attachment"
)
