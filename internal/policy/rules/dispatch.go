package rules

import "github.com/randomparity/vpo/internal/logger"

// RuleEvaluation is one entry of the observability trace returned
// alongside a ConditionalResult (spec.md §4.7).
type RuleEvaluation struct {
	RuleName string
	Matched  bool
	Reason   string
}

// ConditionalResult is the accumulated outcome of evaluating a Rules
// block against one file (spec.md §4.7).
type ConditionalResult struct {
	MatchedRule    string // "" if nothing matched
	MatchedBranch  string // "then" | "else" | ""
	Warnings       []string
	EvaluationTrace []RuleEvaluation
	SkipFlags      SkipFlags
	TrackFlagChanges []TrackFlagChange
	TrackLanguageChanges []TrackLanguageChange
	ContainerMetadataChanges []ContainerMetadataChange
}

// Evaluate runs a Rules block against in, dispatching to FIRST or ALL
// semantics per the match mode (spec.md §4.7). Returns a *FailError if a
// matched rule's actions include a fail action — grounded exactly on
// original_source's evaluate_conditional_rules/_evaluate_first_match/
// _evaluate_all_match.
func Evaluate(r *Rules, in EvalInput) (ConditionalResult, error) {
	if r == nil || len(r.Items) == 0 {
		return ConditionalResult{}, nil
	}
	if r.Match == MatchAll {
		return evaluateAllMatch(r.Items, in)
	}
	return evaluateFirstMatch(r.Items, in)
}

func evaluateFirstMatch(items []Rule, in EvalInput) (ConditionalResult, error) {
	result := ConditionalResult{}

	for i, rule := range items {
		matched, reason := evaluateCondition(rule.When, in)
		result.EvaluationTrace = append(result.EvaluationTrace, RuleEvaluation{
			RuleName: rule.Name, Matched: matched, Reason: reason,
		})

		if matched {
			result.MatchedRule = rule.Name
			result.MatchedBranch = "then"
			ctx, err := executeActions(rule.Name, rule.Then)
			applyContext(&result, ctx)
			return result, err
		}

		isLastRule := i == len(items)-1
		if isLastRule && rule.HasElse {
			result.MatchedRule = rule.Name
			result.MatchedBranch = "else"
			ctx, err := executeActions(rule.Name, rule.Else)
			applyContext(&result, ctx)
			return result, err
		}
	}

	return result, nil
}

func evaluateAllMatch(items []Rule, in EvalInput) (ConditionalResult, error) {
	for i, rule := range items[:len(items)-1] {
		if rule.HasElse {
			logger.Warn("rule has else_actions but is not the last rule in ALL mode; ignored",
				"rule", rule.Name, "index", i)
		}
	}

	result := ConditionalResult{}
	anyMatched := false

	for _, rule := range items {
		matched, reason := evaluateCondition(rule.When, in)
		result.EvaluationTrace = append(result.EvaluationTrace, RuleEvaluation{
			RuleName: rule.Name, Matched: matched, Reason: reason,
		})
		if !matched {
			continue
		}
		anyMatched = true
		result.MatchedRule = rule.Name
		result.MatchedBranch = "then"

		ctx, err := executeActions(rule.Name, rule.Then)
		if err != nil {
			applyContext(&result, ctx)
			return result, err
		}
		mergeContext(&result, ctx)
	}

	if !anyMatched && len(items) > 0 {
		last := items[len(items)-1]
		if last.HasElse {
			result.MatchedRule = last.Name
			result.MatchedBranch = "else"
			ctx, err := executeActions(last.Name, last.Else)
			// else clause replaces skip flags (mirrors original: assigns
			// skip_flags directly rather than OR-merging, since nothing
			// else has fired yet).
			result.SkipFlags = ctx.SkipFlags
			result.Warnings = append(result.Warnings, ctx.Warnings...)
			result.TrackFlagChanges = append(result.TrackFlagChanges, ctx.TrackFlagChanges...)
			result.TrackLanguageChanges = append(result.TrackLanguageChanges, ctx.TrackLanguageChanges...)
			result.ContainerMetadataChanges = append(result.ContainerMetadataChanges, ctx.ContainerMetadataChanges...)
			return result, err
		}
	}

	return result, nil
}

func applyContext(result *ConditionalResult, ctx ActionContext) {
	result.SkipFlags = ctx.SkipFlags
	result.Warnings = ctx.Warnings
	result.TrackFlagChanges = ctx.TrackFlagChanges
	result.TrackLanguageChanges = ctx.TrackLanguageChanges
	result.ContainerMetadataChanges = ctx.ContainerMetadataChanges
}

func mergeContext(result *ConditionalResult, ctx ActionContext) {
	result.SkipFlags = result.SkipFlags.Or(ctx.SkipFlags)
	result.Warnings = append(result.Warnings, ctx.Warnings...)
	result.TrackFlagChanges = append(result.TrackFlagChanges, ctx.TrackFlagChanges...)
	result.TrackLanguageChanges = append(result.TrackLanguageChanges, ctx.TrackLanguageChanges...)
	result.ContainerMetadataChanges = append(result.ContainerMetadataChanges, ctx.ContainerMetadataChanges...)
}
