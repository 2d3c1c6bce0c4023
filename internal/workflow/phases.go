package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/randomparity/vpo/internal/classify"
	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/evaluator"
	"github.com/randomparity/vpo/internal/logger"
	"github.com/randomparity/vpo/internal/plan"
	"github.com/randomparity/vpo/internal/policy"
	"github.com/randomparity/vpo/internal/policy/rules"
	"github.com/randomparity/vpo/internal/transcription"
)

// runPhaseBody dispatches to the implementation for def.Name (spec.md
// §4.10 step 3's dispatch table) and returns the number of file changes
// applied.
func (p *Processor) runPhaseBody(ctx context.Context, def policy.PhaseDefinition, cfg policy.Config, cr rules.ConditionalResult, state *phaseState) (int, error) {
	switch def.Name {
	case policy.PhaseAnalyze:
		return p.runAnalyze(ctx, cfg, state)
	case policy.PhaseApply:
		return p.runApply(ctx, cfg, cr, state)
	case policy.PhaseTranscode:
		return p.runTranscode(ctx, def, cr, state)
	case policy.PhaseSynthesize:
		return p.runSynthesize(ctx, def, cr, state)
	case policy.PhaseMove:
		return p.runMove(ctx, def, cr, state)
	case policy.PhaseTimestamp:
		return p.runTimestamp(def, state)
	default:
		return 0, fmt.Errorf("workflow: unknown phase %q", def.Name)
	}
}

// execute merges the rule-derived actions (from the phase's conditional
// rules) into the phase's own plan and runs it through the executor in
// one critical section, so a phase contributes at most one file rewrite.
func (p *Processor) execute(ctx context.Context, state *phaseState, body plan.Plan, cr rules.ConditionalResult) (int, error) {
	body.Actions = append(body.Actions, planActionsFromRuleChanges(cr)...)
	if len(body.Actions) == 0 && !hasMoveAction(body) {
		return 0, nil
	}
	if p.deps.Executor == nil {
		return 0, fmt.Errorf("workflow: no executor configured")
	}

	res, err := p.deps.Executor.Execute(ctx, state.file.Path, body, state.file.ContainerFormat)
	if err != nil {
		return 0, err
	}
	applyPlanToState(state, body, res.OutputPath)
	return len(body.Actions), nil
}

func hasMoveAction(p plan.Plan) bool {
	for _, a := range p.Actions {
		if a.Kind == plan.ActionMove {
			return true
		}
	}
	return false
}

// applyPlanToState updates the in-memory track/file view so later phases
// in the same run see the effect of this phase without a re-probe.
func applyPlanToState(state *phaseState, p plan.Plan, outputPath string) {
	byIndex := make(map[int]int, len(state.tracks))
	for i, t := range state.tracks {
		byIndex[t.TrackIndex] = i
	}

	removed := make(map[int]bool)
	for _, d := range p.TrackDispositions {
		if d.Disposition == plan.DispositionRemove {
			removed[d.TrackIndex] = true
		}
	}

	for _, a := range p.Actions {
		i, ok := byIndex[a.TrackIndex]
		if !ok {
			continue
		}
		switch a.Kind {
		case plan.ActionSetDefault:
			state.tracks[i].IsDefault = a.BoolValue
		case plan.ActionSetForced:
			state.tracks[i].IsForced = a.BoolValue
		case plan.ActionSetLanguage:
			state.tracks[i].Language = a.Code
		case plan.ActionSetTitle:
			state.tracks[i].Title = a.Text
		}
	}

	if len(removed) > 0 {
		kept := state.tracks[:0]
		for _, t := range state.tracks {
			if !removed[t.TrackIndex] {
				kept = append(kept, t)
			}
		}
		state.tracks = kept
	}

	if outputPath != "" && outputPath != state.file.Path {
		state.file.Path = outputPath
		state.file.Filename = filepath.Base(outputPath)
	}
}

// runAnalyze performs language detection (when transcription is
// configured and a plugin is registered) and persists per-track
// classification (spec.md §4.10 step 3 "analyze"). It never rewrites
// the file, so it never contributes to changes_made.
func (p *Processor) runAnalyze(ctx context.Context, cfg policy.Config, state *phaseState) (int, error) {
	matcher := classify.NewCommentaryMatcher(cfg.CommentaryPatterns)

	var signals classify.Signals
	if p.deps.Store != nil && state.file.ID != 0 {
		if results, err := p.deps.Store.TranscriptionResultsForFile(state.file.ID); err == nil {
			signals.TranscriptionResults = results
		}
	}

	transcriptionReady := cfg.HasTranscriptionSettings() && p.deps.TranscriptionRegistry != nil && p.deps.SampleExtractor != nil
	var plugin transcription.Plugin
	if transcriptionReady {
		var err error
		plugin, err = p.deps.TranscriptionRegistry.First("language_detection")
		if err != nil {
			logger.Debug("workflow: no language-detection plugin registered, skipping transcription", "file", state.file.Path)
			transcriptionReady = false
		}
	}

	tcfg := transcription.Config{
		MaxSamples:          cfg.Transcription.MaxSamples,
		SampleDuration:      cfg.Transcription.SampleDuration,
		ConfidenceThreshold: cfg.Transcription.ConfidenceThreshold,
		IncumbentBonus:      cfg.Transcription.IncumbentBonus,
	}

	for _, t := range state.tracks {
		if t.Kind != domain.TrackKindAudio {
			continue
		}

		if transcriptionReady && t.DurationSeconds >= cfg.Language.MinTrackDurationSeconds {
			agg, err := transcription.DetectTrackLanguage(ctx, plugin, p.deps.SampleExtractor, state.file.Path, t.TrackIndex, t.DurationSeconds, t.Language, tcfg)
			if err != nil {
				logger.Warn("workflow: language detection failed", "file", state.file.Path, "track", t.TrackIndex, "error", err)
			} else if p.deps.Store != nil {
				_ = p.deps.Store.SaveTranscriptionResult(domain.TranscriptionResult{
					TrackID:          t.ResolveID(),
					FileHash:         state.file.ContentHash,
					DetectedLanguage: agg.Language,
					ConfidenceScore:  agg.Confidence,
					TranscriptSample: agg.TranscriptSample,
					PluginName:       plugin.Name(),
				})
				if signals.TranscriptionResults == nil {
					signals.TranscriptionResults = map[int64]domain.TranscriptionResult{}
				}
				signals.TranscriptionResults[t.ResolveID()] = domain.TranscriptionResult{
					DetectedLanguage: agg.Language, ConfidenceScore: agg.Confidence,
				}
			}
		}

		classType := classify.ClassifyTrack(t, cfg, matcher, signals)
		if p.deps.Store != nil {
			_ = p.deps.Store.SaveTrackClassification(domain.TrackClassification{
				TrackID:          t.ResolveID(),
				CommentaryStatus: classType == policy.TrackTypeAudioCommentary || classType == policy.TrackTypeSubtitleCommentary,
				ConfidenceScore:  1.0,
				DetectionMethod:  domain.DetectionMetadata,
				UpdatedAt:        time.Now(),
			})
		}
	}

	return 0, nil
}

// runApply evaluates the policy against the current track set and
// executes the resulting plan (spec.md §4.10 step 3 "apply"). A matched
// rule's skip_track_filter flag suppresses the evaluator's track-removal
// pass for this phase only.
func (p *Processor) runApply(ctx context.Context, cfg policy.Config, cr rules.ConditionalResult, state *phaseState) (int, error) {
	matcher := classify.NewCommentaryMatcher(cfg.CommentaryPatterns)
	var signals classify.Signals
	if p.deps.Store != nil && state.file.ID != 0 {
		if results, err := p.deps.Store.TranscriptionResultsForFile(state.file.ID); err == nil {
			signals.TranscriptionResults = results
		}
	}

	body := evaluator.Evaluate(state.tracks, cfg, matcher, signals, state.file.ContainerFormat)
	if cr.SkipFlags.SkipTrackFilter {
		body = stripTrackRemoval(body)
	}

	return p.execute(ctx, state, body, cr)
}

// stripTrackRemoval drops remove_track actions and REMOVE dispositions
// from an evaluated plan — used when a matched rule sets
// skip_track_filter (spec.md §4.7 SkipFlags).
func stripTrackRemoval(body plan.Plan) plan.Plan {
	actions := body.Actions[:0]
	for _, a := range body.Actions {
		if a.Kind != plan.ActionRemoveTrack {
			actions = append(actions, a)
		}
	}
	body.Actions = actions

	dispositions := body.TrackDispositions[:0]
	for _, d := range body.TrackDispositions {
		if d.Disposition == plan.DispositionRemove {
			d.Disposition = plan.DispositionKeep
			d.Reason = "skip_track_filter active for this phase"
		}
		dispositions = append(dispositions, d)
	}
	body.TrackDispositions = dispositions
	return body
}

