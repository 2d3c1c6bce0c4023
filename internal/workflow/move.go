package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/randomparity/vpo/internal/nameparse"
	"github.com/randomparity/vpo/internal/plan"
	"github.com/randomparity/vpo/internal/policy"
	"github.com/randomparity/vpo/internal/policy/rules"
)

// moveTemplateData is the field set destination_template/fallback
// strings can reference (spec.md §3.5 move action).
type moveTemplateData struct {
	Title      string
	Year       int
	Season     int
	Episode    int
	Resolution string
	Codec      string
	Ext        string
}

// renderDestination renders tmpl against info, falling back to fallback
// (rendered the same way) if tmpl is empty or fails to execute — spec.md
// §4.9 "compute destination from the template ... and a fallback string".
func renderDestination(tmpl, fallback string, info nameparse.Info, ext string) (string, error) {
	data := moveTemplateData{
		Title: info.Title, Year: info.Year, Season: info.Season,
		Episode: info.Episode, Resolution: info.Resolution, Codec: info.Codec, Ext: ext,
	}

	if rendered, err := execTemplate(tmpl, data); err == nil && strings.TrimSpace(rendered) != "" {
		return rendered, nil
	}
	if fallback == "" {
		return "", fmt.Errorf("workflow: destination_template produced no usable path and no fallback is configured")
	}
	return execTemplate(fallback, data)
}

func execTemplate(tmpl string, data moveTemplateData) (string, error) {
	t, err := template.New("destination").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse destination template: %w", err)
	}
	var buf strings.Builder
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render destination template: %w", err)
	}
	return buf.String(), nil
}

// runMove computes the destination path and executes a move action
// (spec.md §4.10 step 3 "move").
func (p *Processor) runMove(ctx context.Context, def policy.PhaseDefinition, cr rules.ConditionalResult, state *phaseState) (int, error) {
	cfg := def.Move
	if cfg.DestinationTemplate == "" {
		return 0, nil
	}

	info := nameparse.Parse(state.file.Path)
	ext := filepath.Ext(state.file.Path)
	dest, err := renderDestination(cfg.DestinationTemplate, cfg.Fallback, info, ext)
	if err != nil {
		return 0, err
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(filepath.Dir(state.file.Path), dest)
	}
	if dest == state.file.Path {
		return 0, nil
	}

	body := plan.Plan{Actions: []plan.Action{{Kind: plan.ActionMove, SourcePath: dest}}}
	return p.execute(ctx, state, body, cr)
}
