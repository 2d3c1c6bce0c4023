// Package rules implements conditional rule evaluation over a policy
// document's tracks and signals: algebraic-sum-type Condition leaves and
// combinators, Action accumulation into an ActionContext, and the
// FIRST/ALL match-mode semantics (spec.md §4.7).
package rules

// Operator is a comparison operator for plugin-metadata conditions.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpContains Operator = "contains"
)

// Condition is a sum type over the leaf condition kinds plus the
// and/or/not combinators (spec.md §4.7, §9 "Polymorphism"). Exactly one
// of the fields below is populated per instance; Kind disambiguates.
// This mirrors a tagged union without a class hierarchy, per the
// spec's explicit design note to replace polymorphism with tagged
// variants.
type Condition struct {
	Kind ConditionKind `yaml:"kind" json:"kind"`

	// Leaf: track_exists
	TrackExistsType      string `yaml:"type,omitempty" json:"type,omitempty"`
	TrackExistsLanguage  string `yaml:"language,omitempty" json:"language,omitempty"`
	TrackExistsCodec     string `yaml:"codec,omitempty" json:"codec,omitempty"`
	TrackExistsTitleRegex string `yaml:"title_regex,omitempty" json:"title_regex,omitempty"`

	// Leaf: container
	Containers []string `yaml:"containers,omitempty" json:"containers,omitempty"`

	// Leaf: resolution / resolution_under
	Resolutions     []string `yaml:"resolutions,omitempty" json:"resolutions,omitempty"`
	ResolutionUnder string   `yaml:"resolution_under,omitempty" json:"resolution_under,omitempty"`

	// Leaf: file_size_under / file_size_over (bytes)
	SizeBytes int64 `yaml:"size_bytes,omitempty" json:"size_bytes,omitempty"`

	// Leaf: duration_under / duration_over (seconds)
	DurationSeconds float64 `yaml:"duration_seconds,omitempty" json:"duration_seconds,omitempty"`

	// Leaf: codec_matches
	Codecs []string `yaml:"codecs,omitempty" json:"codecs,omitempty"`

	// Leaf: subtitle_language_exists / audio_codec_exists reuse
	// TrackExistsLanguage / TrackExistsCodec above.

	// Leaf: plugin_metadata
	PluginName  string   `yaml:"plugin,omitempty" json:"plugin,omitempty"`
	PluginField string   `yaml:"field,omitempty" json:"field,omitempty"`
	PluginValue any      `yaml:"value,omitempty" json:"value,omitempty"`
	PluginOp    Operator `yaml:"operator,omitempty" json:"operator,omitempty"`

	// Combinators
	And []Condition `yaml:"and,omitempty" json:"and,omitempty"`
	Or  []Condition `yaml:"or,omitempty" json:"or,omitempty"`
	Not *Condition  `yaml:"not,omitempty" json:"not,omitempty"`
}

// ConditionKind discriminates which Condition leaf/combinator is active.
type ConditionKind string

const (
	KindTrackExists           ConditionKind = "track_exists"
	KindContainer              ConditionKind = "container"
	KindResolution             ConditionKind = "resolution"
	KindResolutionUnder        ConditionKind = "resolution_under"
	KindFileSizeUnder          ConditionKind = "file_size_under"
	KindFileSizeOver           ConditionKind = "file_size_over"
	KindDurationUnder          ConditionKind = "duration_under"
	KindDurationOver           ConditionKind = "duration_over"
	KindCodecMatches           ConditionKind = "codec_matches"
	KindSubtitleLanguageExists ConditionKind = "subtitle_language_exists"
	KindAudioCodecExists       ConditionKind = "audio_codec_exists"
	KindPluginMetadata         ConditionKind = "plugin_metadata"
	KindAnd                    ConditionKind = "and"
	KindOr                     ConditionKind = "or"
	KindNot                    ConditionKind = "not"
)

// Rule pairs a condition with the actions to run when it matches (then)
// and, optionally, when it doesn't (else) — spec.md §4.7.
type Rule struct {
	Name   string    `yaml:"name" json:"name"`
	When   Condition `yaml:"when" json:"when"`
	Then   []Action  `yaml:"then" json:"then"`
	Else   []Action  `yaml:"else,omitempty" json:"else,omitempty"`
	HasElse bool     `yaml:"-" json:"-"`
}

// MatchMode selects FIRST (first-match-wins) or ALL (accumulate every
// match) evaluation (spec.md §4.7).
type MatchMode string

const (
	MatchFirst MatchMode = "FIRST"
	MatchAll   MatchMode = "ALL"
)

// Rules is the top-level conditional-rules block attached to a phase.
type Rules struct {
	Match MatchMode `yaml:"match" json:"match"`
	Items []Rule    `yaml:"items" json:"items"`
}
