package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/randomparity/vpo/internal/catalog"
	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/executor"
	"github.com/randomparity/vpo/internal/logger"
	"github.com/randomparity/vpo/internal/plan"
	"github.com/randomparity/vpo/internal/policy"
	"github.com/randomparity/vpo/internal/policy/rules"
	"github.com/randomparity/vpo/internal/transcription"
)

// Dependencies are the collaborators a Processor dispatches phase bodies
// to. TranscriptionRegistry and SampleExtractor may be nil — the analyze
// phase then skips language detection and falls back to metadata-only
// classification, mirroring the registry's own fail-open posture.
type Dependencies struct {
	Store                 *catalog.Store
	Executor               *executor.Executor
	TranscriptionRegistry *transcription.Registry
	SampleExtractor       transcription.SampleExtractor
}

// Input is one file's current catalog state, handed to ProcessFile.
type Input struct {
	File   domain.File
	Tracks []domain.Track
}

// Processor runs a policy document's phases against one file.
type Processor struct {
	deps Dependencies
}

// New constructs a Processor.
func New(deps Dependencies) *Processor {
	return &Processor{deps: deps}
}

// phaseState threads the mutable view of a file through the phase loop:
// tracks reflects the catalog plus any in-memory updates from actions
// already applied by earlier phases this run, so later phases (move,
// timestamp) see a consistent picture without a re-probe round trip.
type phaseState struct {
	file   domain.File
	tracks []domain.Track
}

// ProcessFile runs every phase named in doc.Workflow.Phases, in order,
// against in (spec.md §4.10).
func (p *Processor) ProcessFile(ctx context.Context, doc policy.Document, in Input) (*FileProcessingResult, error) {
	result := &FileProcessingResult{FilePath: in.File.Path, Success: true}
	state := &phaseState{file: in.File, tracks: append([]domain.Track(nil), in.Tracks...)}

	byName := make(map[policy.PhaseName]policy.PhaseDefinition, len(doc.Phases))
	for _, ph := range doc.Phases {
		byName[ph.Name] = ph
	}

	for _, name := range doc.Workflow.Phases {
		def, ok := byName[name]
		if !ok {
			logger.Warn("workflow: phase listed in workflow.phases has no definition, skipping", "phase", name)
			continue
		}

		pr := p.runPhase(ctx, def, doc.Config, state)
		result.PhaseResults = append(result.PhaseResults, pr)
		result.TotalChanges += pr.ChangesMade

		switch {
		case pr.SkipReason != nil:
			result.PhasesSkipped++
		case pr.Success:
			result.PhasesCompleted++
		default:
			result.PhasesFailed++
			mode := resolveOnError(def.OnError, doc.Workflow.OnError)
			if mode == policy.OnErrorFail {
				result.Success = false
				result.ErrorMessage = fmt.Sprintf("phase %s: %s", def.Name, pr.Error)
				return result, nil
			}
		}
	}

	return result, nil
}

// resolveOnError applies spec.md §4.10 step 4's precedence: a phase
// override wins over the workflow default; an unset workflow default
// falls back to fail, since silently swallowing an unconfigured failure
// mode is worse than stopping the file.
func resolveOnError(phaseMode, workflowMode policy.OnErrorMode) policy.OnErrorMode {
	if phaseMode != "" {
		return phaseMode
	}
	if workflowMode != "" {
		return workflowMode
	}
	return policy.OnErrorFail
}

// runPhase executes the skip_when / conditional-rules / body / timing
// pipeline for one phase and never panics or returns an error itself —
// failures are folded into the returned PhaseResult so the caller can
// apply on_error policy uniformly.
func (p *Processor) runPhase(ctx context.Context, def policy.PhaseDefinition, cfg policy.Config, state *phaseState) PhaseResult {
	start := time.Now()
	pr := PhaseResult{Name: def.Name}

	evalInput := p.buildEvalInput(state)

	if skip, reason := evaluateSkipWhen(def.SkipWhen, evalInput); skip {
		pr.Success = true
		pr.SkipReason = &reason
		pr.Duration = time.Since(start)
		return pr
	}

	cr, err := rules.Evaluate(def.Rules, evalInput)
	if err != nil {
		pr.Error = err.Error()
		pr.Duration = time.Since(start)
		logger.Warn("workflow: phase rules aborted", "phase", def.Name, "error", err)
		return pr
	}
	pr.Warnings = cr.Warnings

	changes, bodyErr := p.runPhaseBody(ctx, def, cfg, cr, state)
	pr.Duration = time.Since(start)

	if bodyErr != nil {
		pr.Error = bodyErr.Error()
		logger.Warn("workflow: phase failed", "phase", def.Name, "file", state.file.Path, "error", bodyErr)
		return pr
	}

	pr.Success = true
	pr.ChangesMade = changes
	if changes == 0 && pr.SkipReason == nil {
		pr.SkipReason = &SkipReason{Type: SkipReasonNoop, Message: "no changes produced"}
	}
	return pr
}

// buildEvalInput gathers the signals rules.Condition leaves read,
// pulling transcription/classification results from the catalog.
func (p *Processor) buildEvalInput(state *phaseState) rules.EvalInput {
	in := rules.EvalInput{
		Tracks:          state.tracks,
		ContainerFormat: state.file.ContainerFormat,
		SizeBytes:       state.file.SizeBytes,
		PluginMetadata:  pluginMetadataFrom(state.file),
		ContainerTags:   map[string]string{},
	}
	in.DurationSeconds = longestTrackDuration(state.tracks)

	if p.deps.Store != nil && state.file.ID != 0 {
		if results, err := p.deps.Store.TranscriptionResultsForFile(state.file.ID); err == nil {
			in.LanguageResults = results
		}
		in.ClassificationResults = p.classificationResults(state.tracks)
	}
	return in
}

// classificationResults looks up each track's saved classification,
// skipping tracks that have none yet (e.g. before the analyze phase runs).
func (p *Processor) classificationResults(tracks []domain.Track) map[int64]domain.TrackClassification {
	out := make(map[int64]domain.TrackClassification, len(tracks))
	for _, t := range tracks {
		c, err := p.deps.Store.GetTrackClassification(t.ResolveID())
		if err != nil || c == nil {
			continue
		}
		out[t.ResolveID()] = *c
	}
	return out
}

func longestTrackDuration(tracks []domain.Track) float64 {
	var max float64
	for _, t := range tracks {
		if t.DurationSeconds > max {
			max = t.DurationSeconds
		}
	}
	return max
}

func pluginMetadataFrom(f domain.File) rules.PluginMetadata {
	if len(f.PluginMetadata) == 0 {
		return nil
	}
	out := make(rules.PluginMetadata, len(f.PluginMetadata))
	for name, blob := range f.PluginMetadata {
		out[name] = map[string]any{"raw": blob}
	}
	return out
}

// planActionsFromRuleChanges converts a matched rule's track-flag,
// track-language, and container-tag effects into plan.Actions so they
// execute alongside whatever plan the phase body itself produces
// (spec.md §4.10 step 2: rule effects apply "for this phase only").
func planActionsFromRuleChanges(cr rules.ConditionalResult) []plan.Action {
	var actions []plan.Action
	for _, c := range cr.TrackFlagChanges {
		switch c.FlagName {
		case "default":
			actions = append(actions, plan.Action{Kind: plan.ActionSetDefault, TrackIndex: c.TrackIndex, BoolValue: c.Value})
		case "forced":
			actions = append(actions, plan.Action{Kind: plan.ActionSetForced, TrackIndex: c.TrackIndex, BoolValue: c.Value})
		}
	}
	for _, c := range cr.TrackLanguageChanges {
		actions = append(actions, plan.Action{Kind: plan.ActionSetLanguage, TrackIndex: c.TrackIndex, Code: c.Language})
	}
	for _, c := range cr.ContainerMetadataChanges {
		actions = append(actions, plan.Action{Kind: plan.ActionSetContainerTag, TagKey: c.Key, TagValue: c.Value})
	}
	return actions
}
