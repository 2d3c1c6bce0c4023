// Package domain holds the catalog's core aggregate types: File, Track,
// Job, Operation, and the signal records (transcription results, track
// classifications) that feed the policy evaluator. All ownership here is
// tree-shaped (file -> tracks, job -> operations) per spec.md §9 — there
// is no cyclic or graph-like state in the core.
package domain

import "time"

// ScanStatus is a File's last-scan outcome.
type ScanStatus string

const (
	ScanStatusOK      ScanStatus = "ok"
	ScanStatusError   ScanStatus = "error"
	ScanStatusMissing ScanStatus = "missing"
	ScanStatusPending ScanStatus = "pending"
)

// File is one catalog row: a video container file on disk (spec.md §3.1).
type File struct {
	ID             int64
	Path           string // absolute path, unique
	Filename       string
	Directory      string
	Extension      string
	SizeBytes      int64
	ModifiedAt     time.Time
	ContentHash    string // optional, opaque
	ContainerFormat string
	ScannedAt      time.Time
	ScanStatus     ScanStatus
	ScanError      string
	PluginMetadata map[string]string // plugin-name -> opaque JSON blob
}

// TrackKind is a track's container-level media type, distinct from the
// policy-level TrackType classification computed by internal/classify.
type TrackKind string

const (
	TrackKindVideo      TrackKind = "video"
	TrackKindAudio      TrackKind = "audio"
	TrackKindSubtitle   TrackKind = "subtitle"
	TrackKindAttachment TrackKind = "attachment"
	TrackKindOther      TrackKind = "other"
)

// Track is one catalog row belonging to a File (spec.md §3.2).
type Track struct {
	ID            int64 // 0 if not yet persisted
	FileID        int64
	TrackIndex    int // container-native stream index
	Kind          TrackKind
	Codec         string
	Language      string // normalized canonical form
	Title         string
	IsDefault     bool
	IsForced      bool
	Channels      int
	ChannelLayout string
	Width         int
	Height        int
	FrameRate     float64
	ColorTransfer string
	ColorPrimaries string
	ColorSpace    string
	DurationSeconds float64
}

// ResolveID returns the catalog id to use when looking up signals for
// this track, preferring the persisted id and falling back to
// TrackIndex. This mirrors the original implementation's id-then-
// track_index fallback exactly (spec.md §9 Open Question #1) — do not
// special-case any other order.
func (t Track) ResolveID() int64 {
	if t.ID != 0 {
		return t.ID
	}
	return int64(t.TrackIndex)
}

// JobStatus is a Job's lifecycle state (spec.md §3.3).
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// JobType is what kind of work a Job performs.
type JobType string

const (
	JobTypeScan      JobType = "scan"
	JobTypeProcess   JobType = "process"
	JobTypeTranscode JobType = "transcode"
	JobTypeMove      JobType = "move"
)

// Job is one unit of durable, queued work (spec.md §3.3).
type Job struct {
	ID            string // UUID
	FileID        int64  // 0 if not yet catalogued
	FilePath      string // always present
	JobType       JobType
	Status        JobStatus
	Priority      int // lower = higher priority, default 100
	PolicyName    string
	PolicyJSON    string
	ProgressPercent float64
	ProgressJSON  string
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	WorkerID      string
	SummaryJSON   string
	ErrorMessage  string
	OutputPath    string
}

// IsTerminal reports whether the job has reached a final status.
func (j Job) IsTerminal() bool {
	switch j.Status {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// OperationStatus is an Operation's execution state.
type OperationStatus string

const (
	OperationPending   OperationStatus = "PENDING"
	OperationRunning   OperationStatus = "RUNNING"
	OperationCompleted OperationStatus = "COMPLETED"
	OperationFailed    OperationStatus = "FAILED"
)

// Operation records a single executor invocation (spec.md §3.4).
type Operation struct {
	ID            int64
	FileID        int64
	JobID         string // optional
	OperationType string
	Status        OperationStatus
	CreatedAt     time.Time
	CompletedAt   *time.Time
	BackupPath    string
	DetailsJSON   string
}

// TranscriptionTrackType is the transcription plugin's opinion of an
// audio track's content, distinct from the policy-level classification.
type TranscriptionTrackType string

const (
	TTMain        TranscriptionTrackType = "main"
	TTCommentary  TranscriptionTrackType = "commentary"
	TTMusic       TranscriptionTrackType = "music"
	TTSFX         TranscriptionTrackType = "sfx"
	TTNonSpeech   TranscriptionTrackType = "non_speech"
	TTDubbed      TranscriptionTrackType = "dubbed"
	TTOriginal    TranscriptionTrackType = "original"
)

// Segment is one timestamped span of a transcription (spec.md §3.6).
type Segment struct {
	StartS     float64
	EndS       float64
	Language   string
	Confidence float64
	Text       string
}

// TranscriptionResult is one row per audio track (spec.md §3.6). Cache
// semantics: reusable iff FileHash matches the file's current content
// hash; otherwise stale and must be recomputed when forced.
type TranscriptionResult struct {
	TrackID          int64
	FileHash         string
	DetectedLanguage string
	ConfidenceScore  float64
	TrackType        TranscriptionTrackType
	PluginName       string
	TranscriptSample string
	Segments         []Segment
	CreatedAt        time.Time
}

// DetectionMethod is how a track classification was derived.
type DetectionMethod string

const (
	DetectionMetadata      DetectionMethod = "metadata"
	DetectionTranscription DetectionMethod = "transcription"
	DetectionAcoustic      DetectionMethod = "acoustic"
	DetectionHeuristic     DetectionMethod = "heuristic"
)

// TrackClassification is one row per audio track (spec.md §3.7).
type TrackClassification struct {
	TrackID            int64
	OriginalDubbedStatus string
	CommentaryStatus   bool
	ConfidenceScore    float64
	DetectionMethod    DetectionMethod
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
