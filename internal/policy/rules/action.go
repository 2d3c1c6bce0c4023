package rules

// ActionKind discriminates which Action variant is populated.
type ActionKind string

const (
	ActionSkipVideoTranscode ActionKind = "skip_video_transcode"
	ActionSkipAudioTranscode ActionKind = "skip_audio_transcode"
	ActionSkipTrackFilter    ActionKind = "skip_track_filter"
	ActionWarn               ActionKind = "warn"
	ActionSetTrackFlag       ActionKind = "set_track_flag"
	ActionSetTrackLanguage   ActionKind = "set_track_language"
	ActionSetContainerTag    ActionKind = "set_container_tag"
	ActionFail               ActionKind = "fail"
)

// Action is a sum type over the things a matched rule's then/else clause
// can do (spec.md §4.7). Exactly one payload field is meaningful per Kind.
type Action struct {
	Kind ActionKind `yaml:"kind" json:"kind"`

	Message string `yaml:"message,omitempty" json:"message,omitempty"` // warn, fail

	TrackIndex int    `yaml:"track_index,omitempty" json:"track_index,omitempty"` // set_track_flag, set_track_language
	FlagName   string `yaml:"flag,omitempty" json:"flag,omitempty"`               // set_track_flag: "default" | "forced"
	FlagValue  bool   `yaml:"value,omitempty" json:"value,omitempty"`
	Language   string `yaml:"language,omitempty" json:"language,omitempty"` // set_track_language

	TagKey   string `yaml:"key,omitempty" json:"key,omitempty"`     // set_container_tag
	TagValue string `yaml:"tag_value,omitempty" json:"tag_value,omitempty"`
}

// SkipFlags are the per-phase overrides a rule's actions can set,
// OR-merged across all matching rules in ALL mode (spec.md §4.7).
type SkipFlags struct {
	SkipVideoTranscode bool
	SkipAudioTranscode bool
	SkipTrackFilter    bool
}

// Or returns the OR-merge of two SkipFlags (ALL-mode accumulation).
func (s SkipFlags) Or(other SkipFlags) SkipFlags {
	return SkipFlags{
		SkipVideoTranscode: s.SkipVideoTranscode || other.SkipVideoTranscode,
		SkipAudioTranscode: s.SkipAudioTranscode || other.SkipAudioTranscode,
		SkipTrackFilter:    s.SkipTrackFilter || other.SkipTrackFilter,
	}
}

// TrackFlagChange records a set_default/set_forced-style change produced
// by rule actions (distinct from the evaluator's own default-flag pass).
type TrackFlagChange struct {
	TrackIndex int
	FlagName   string
	Value      bool
}

// TrackLanguageChange records a set_track_language action.
type TrackLanguageChange struct {
	TrackIndex int
	Language   string
}

// ContainerMetadataChange records a set_container_tag action.
type ContainerMetadataChange struct {
	Key   string
	Value string
}

// FailError is raised immediately when a matched rule's actions include
// a fail action (spec.md §4.7).
type FailError struct {
	RuleName string
	Message  string
}

func (e *FailError) Error() string {
	if e.Message != "" {
		return "rule " + e.RuleName + " failed: " + e.Message
	}
	return "rule " + e.RuleName + " triggered fail action"
}

// ActionContext accumulates the effects of executing a rule's actions.
type ActionContext struct {
	RuleName                string
	SkipFlags               SkipFlags
	Warnings                []string
	TrackFlagChanges        []TrackFlagChange
	TrackLanguageChanges    []TrackLanguageChange
	ContainerMetadataChanges []ContainerMetadataChange
}

// executeActions applies a slice of Action to a fresh ActionContext,
// returning the populated context or a *FailError if a fail action fires.
func executeActions(ruleName string, actions []Action) (ActionContext, error) {
	ctx := ActionContext{RuleName: ruleName}
	for _, a := range actions {
		switch a.Kind {
		case ActionSkipVideoTranscode:
			ctx.SkipFlags.SkipVideoTranscode = true
		case ActionSkipAudioTranscode:
			ctx.SkipFlags.SkipAudioTranscode = true
		case ActionSkipTrackFilter:
			ctx.SkipFlags.SkipTrackFilter = true
		case ActionWarn:
			ctx.Warnings = append(ctx.Warnings, a.Message)
		case ActionSetTrackFlag:
			ctx.TrackFlagChanges = append(ctx.TrackFlagChanges, TrackFlagChange{
				TrackIndex: a.TrackIndex, FlagName: a.FlagName, Value: a.FlagValue,
			})
		case ActionSetTrackLanguage:
			ctx.TrackLanguageChanges = append(ctx.TrackLanguageChanges, TrackLanguageChange{
				TrackIndex: a.TrackIndex, Language: a.Language,
			})
		case ActionSetContainerTag:
			ctx.ContainerMetadataChanges = append(ctx.ContainerMetadataChanges, ContainerMetadataChange{
				Key: a.TagKey, Value: a.TagValue,
			})
		case ActionFail:
			return ctx, &FailError{RuleName: ruleName, Message: a.Message}
		}
	}
	return ctx, nil
}
