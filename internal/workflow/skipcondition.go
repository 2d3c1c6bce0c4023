package workflow

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/randomparity/vpo/internal/policy"
	"github.com/randomparity/vpo/internal/policy/rules"
)

// evaluateSkipWhen implements spec.md §4.10 step 1: skip_when is a union
// (OR) of conditions. It is wrapped in a single-rule Rules block so the
// already-tested rules.Evaluate does the actual leaf evaluation — this
// package never reimplements condition matching.
func evaluateSkipWhen(conditions []rules.Condition, in rules.EvalInput) (bool, SkipReason) {
	if len(conditions) == 0 {
		return false, SkipReason{}
	}

	block := &rules.Rules{
		Match: rules.MatchFirst,
		Items: []rules.Rule{{Name: "skip_when", When: rules.Condition{Kind: rules.KindOr, Or: conditions}}},
	}
	result, _ := rules.Evaluate(block, in)
	if result.MatchedRule == "" {
		return false, SkipReason{}
	}

	reason := "skip_when matched"
	if len(result.EvaluationTrace) > 0 {
		reason = result.EvaluationTrace[len(result.EvaluationTrace)-1].Reason
	}
	return true, SkipReason{Type: SkipReasonCondition, Message: reason, ConditionName: "skip_when"}
}

// resolutionLadder orders the closed resolution enum from lowest to
// highest, used only to build the "at or below" set for resolution_within
// — the actual comparison against the file's current resolution still
// happens inside rules.Evaluate via a KindResolution leaf, so this
// package never needs the rules package's unexported resolution ranking.
var resolutionLadder = []policy.Resolution{
	policy.Res480p, policy.Res720p, policy.Res1080p, policy.Res1440p, policy.Res2160p, policy.Res4K, policy.Res8K,
}

func resolutionsAtOrBelow(limit policy.Resolution) []string {
	var out []string
	for _, r := range resolutionLadder {
		out = append(out, string(r))
		if r == limit {
			break
		}
	}
	return out
}

var bitrateRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)(M|k)?$`)

// parseBitrateBPS parses the same bitrate string shape policy.Document
// validates (bare integer bps, or a number suffixed with k/M).
func parseBitrateBPS(s string) (float64, bool) {
	m := bitrateRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch m[2] {
	case "M":
		return n * 1_000_000, true
	case "k":
		return n * 1_000, true
	default:
		return n, true
	}
}

// evaluateTranscodeSkipIf implements the transcode phase's skip_if
// (spec.md §8 scenario 4): a file is already "compliant" only if every
// populated leaf (codec_matches, resolution_within, bitrate_under) holds.
// An empty SkipCondition never matches, so transcode always runs absent
// configuration.
func evaluateTranscodeSkipIf(sc policy.SkipCondition, in rules.EvalInput) (bool, string) {
	var and []rules.Condition
	var parts []string

	if len(sc.CodecMatches) > 0 {
		and = append(and, rules.Condition{Kind: rules.KindCodecMatches, Codecs: sc.CodecMatches})
		parts = append(parts, "codec_matches")
	}
	if sc.ResolutionWithin != "" {
		and = append(and, rules.Condition{Kind: rules.KindResolution, Resolutions: resolutionsAtOrBelow(sc.ResolutionWithin)})
		parts = append(parts, "resolution_within")
	}
	if sc.BitrateUnder != "" {
		if limit, ok := parseBitrateBPS(sc.BitrateUnder); ok && in.DurationSeconds > 0 {
			actual := float64(in.SizeBytes) * 8 / in.DurationSeconds
			if actual < limit {
				parts = append(parts, "bitrate_under")
			} else {
				return false, "bitrate not under " + sc.BitrateUnder
			}
		}
	}

	if len(and) == 0 && len(parts) == 0 {
		return false, "no skip_if criteria configured"
	}
	if len(and) == 0 {
		// only bitrate_under was configured and it already matched above.
		return true, strings.Join(parts, "+") + " already satisfied"
	}

	block := &rules.Rules{
		Match: rules.MatchFirst,
		Items: []rules.Rule{{Name: "skip_if", When: rules.Condition{Kind: rules.KindAnd, And: and}}},
	}
	result, _ := rules.Evaluate(block, in)
	matched := result.MatchedRule != ""
	if !matched {
		return false, "skip_if criteria not all satisfied"
	}
	return true, strings.Join(parts, "+") + " already satisfied"
}
