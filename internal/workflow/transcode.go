package workflow

import (
	"context"
	"strings"

	"github.com/randomparity/vpo/internal/domain"
	"github.com/randomparity/vpo/internal/plan"
	"github.com/randomparity/vpo/internal/policy"
	"github.com/randomparity/vpo/internal/policy/rules"
)

// runTranscode builds a transcode plan from phase.Transcode and executes
// it, honoring skip_if and any skip_video_transcode/skip_audio_transcode
// flags a matched rule set for this phase (spec.md §4.10 step 3
// "transcode", §8 scenario 4).
func (p *Processor) runTranscode(ctx context.Context, def policy.PhaseDefinition, cr rules.ConditionalResult, state *phaseState) (int, error) {
	var body plan.Plan

	videoCfg := def.Transcode.Video
	if videoCfg.Codec != "" && !cr.SkipFlags.SkipVideoTranscode {
		evalInput := p.buildEvalInput(state)
		if skip, _ := evaluateTranscodeSkipIf(videoCfg.SkipIf, evalInput); !skip {
			for _, t := range state.tracks {
				if t.Kind != domain.TrackKindVideo {
					continue
				}
				body.Actions = append(body.Actions, videoTranscodeAction(t, videoCfg))
			}
		}
	}

	audioCfg := def.Transcode.Audio
	if audioCfg.Codec != "" && !cr.SkipFlags.SkipAudioTranscode {
		preserve := make(map[string]bool, len(audioCfg.PreserveCodecs))
		for _, c := range audioCfg.PreserveCodecs {
			preserve[strings.ToLower(c)] = true
		}
		for _, t := range state.tracks {
			if t.Kind != domain.TrackKindAudio || preserve[strings.ToLower(t.Codec)] {
				continue
			}
			body.Actions = append(body.Actions, plan.Action{
				Kind:             plan.ActionTranscodeAudio,
				SourceTrackIndex: t.TrackIndex,
				TargetCodec:      audioEncoder(audioCfg.Codec),
				TargetBitrate:    audioCfg.Bitrate,
			})
		}
	}

	if len(body.Actions) > 0 {
		body.RequiresRemux = true
	}
	return p.execute(ctx, state, body, cr)
}

func videoTranscodeAction(t domain.Track, cfg policy.TranscodeVideoConfig) plan.Action {
	a := plan.Action{
		Kind:             plan.ActionTranscodeVideo,
		SourceTrackIndex: t.TrackIndex,
		TargetCodec:      softwareVideoEncoder(cfg.Codec),
	}
	if cfg.Quality.CRF != nil {
		a.CRF = cfg.Quality.CRF
	} else if cfg.Quality.TargetBitrate != "" {
		a.TargetBitrate = cfg.Quality.TargetBitrate
	}
	return a
}

// runSynthesize builds a synthesize_audio action from phase.Synthesize,
// sourced from the first audio track in the current track set (spec.md §4.10 step
// 3 "synthesize", §3.5 synthesize_audio action).
func (p *Processor) runSynthesize(ctx context.Context, def policy.PhaseDefinition, cr rules.ConditionalResult, state *phaseState) (int, error) {
	cfg := def.Synthesize
	if cfg.TargetCodec == "" {
		return 0, nil
	}

	source, ok := firstAudioTrack(state.tracks)
	if !ok {
		return 0, nil
	}

	body := plan.Plan{
		Actions: []plan.Action{{
			Kind:             plan.ActionSynthesizeAudio,
			SourceTrackIndex: source.TrackIndex,
			TargetCodec:      audioEncoder(cfg.TargetCodec),
			TargetChannels:   cfg.TargetChannels,
			TargetBitrate:    cfg.TargetBitrate,
			FilterChain:      cfg.FilterChain,
			Language:         cfg.Language,
			Title:            cfg.Title,
		}},
		RequiresRemux: true,
	}
	return p.execute(ctx, state, body, cr)
}

func firstAudioTrack(tracks []domain.Track) (domain.Track, bool) {
	for _, t := range tracks {
		if t.Kind == domain.TrackKindAudio {
			return t, true
		}
	}
	return domain.Track{}, false
}
