package rules

import "testing"

func alwaysTrue() Condition  { return Condition{Kind: KindAnd} }           // empty and = vacuously true
func alwaysFalse() Condition { return Condition{Kind: KindOr} }            // empty or = vacuously false

func TestFirstMatchStopsAtFirstHit(t *testing.T) {
	r := &Rules{
		Match: MatchFirst,
		Items: []Rule{
			{Name: "a", When: alwaysFalse()},
			{Name: "b", When: alwaysTrue(), Then: []Action{{Kind: ActionSkipVideoTranscode}}},
			{Name: "c", When: alwaysTrue(), Then: []Action{{Kind: ActionSkipAudioTranscode}}},
		},
	}
	result, err := Evaluate(r, EvalInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MatchedRule != "b" {
		t.Errorf("MatchedRule = %q, want b", result.MatchedRule)
	}
	if !result.SkipFlags.SkipVideoTranscode || result.SkipFlags.SkipAudioTranscode {
		t.Errorf("expected only video-transcode skip flag set, got %+v", result.SkipFlags)
	}
}

func TestFirstMatchNoMatchNoElseIsNoop(t *testing.T) {
	r := &Rules{
		Match: MatchFirst,
		Items: []Rule{
			{Name: "a", When: alwaysFalse()},
			{Name: "b", When: alwaysFalse()},
		},
	}
	result, err := Evaluate(r, EvalInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MatchedRule != "" {
		t.Errorf("expected no match, got %q", result.MatchedRule)
	}
}

func TestFirstMatchFallsToLastRuleElse(t *testing.T) {
	r := &Rules{
		Match: MatchFirst,
		Items: []Rule{
			{Name: "a", When: alwaysFalse()},
			{Name: "b", When: alwaysFalse(), Else: []Action{{Kind: ActionWarn, Message: "fallback"}}, HasElse: true},
		},
	}
	result, err := Evaluate(r, EvalInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MatchedRule != "b" || result.MatchedBranch != "else" {
		t.Errorf("expected last-rule else to fire, got rule=%q branch=%q", result.MatchedRule, result.MatchedBranch)
	}
	if len(result.Warnings) != 1 || result.Warnings[0] != "fallback" {
		t.Errorf("expected fallback warning, got %v", result.Warnings)
	}
}

func TestAllMatchAccumulatesAndORMerges(t *testing.T) {
	r := &Rules{
		Match: MatchAll,
		Items: []Rule{
			{Name: "a", When: alwaysTrue(), Then: []Action{{Kind: ActionSkipVideoTranscode}, {Kind: ActionWarn, Message: "w1"}}},
			{Name: "b", When: alwaysTrue(), Then: []Action{{Kind: ActionSkipAudioTranscode}, {Kind: ActionWarn, Message: "w2"}}},
		},
	}
	result, err := Evaluate(r, EvalInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.SkipFlags.SkipVideoTranscode || !result.SkipFlags.SkipAudioTranscode {
		t.Errorf("expected both skip flags set, got %+v", result.SkipFlags)
	}
	if len(result.Warnings) != 2 || result.Warnings[0] != "w1" || result.Warnings[1] != "w2" {
		t.Errorf("expected warnings in rule order, got %v", result.Warnings)
	}
}

func TestAllMatchNoMatchFiresLastElseOnly(t *testing.T) {
	r := &Rules{
		Match: MatchAll,
		Items: []Rule{
			{Name: "a", When: alwaysFalse()},
			{Name: "b", When: alwaysFalse(), Else: []Action{{Kind: ActionSkipTrackFilter}}, HasElse: true},
		},
	}
	result, err := Evaluate(r, EvalInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MatchedBranch != "else" || !result.SkipFlags.SkipTrackFilter {
		t.Errorf("expected last rule's else to fire, got %+v", result)
	}
}

func TestAllMatchNonLastElseIgnoredNoMatch(t *testing.T) {
	// Non-last rule's else must never fire, even when nothing matches.
	r := &Rules{
		Match: MatchAll,
		Items: []Rule{
			{Name: "a", When: alwaysFalse(), Else: []Action{{Kind: ActionSkipVideoTranscode}}, HasElse: true},
			{Name: "b", When: alwaysFalse()},
		},
	}
	result, err := Evaluate(r, EvalInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SkipFlags.SkipVideoTranscode {
		t.Error("non-last rule's else must not fire")
	}
	if result.MatchedRule != "" {
		t.Errorf("expected no match since last rule has no else, got %q", result.MatchedRule)
	}
}

func TestFailActionAborts(t *testing.T) {
	r := &Rules{
		Match: MatchFirst,
		Items: []Rule{
			{Name: "a", When: alwaysTrue(), Then: []Action{{Kind: ActionFail, Message: "boom"}}},
		},
	}
	_, err := Evaluate(r, EvalInput{})
	if err == nil {
		t.Fatal("expected fail action to return an error")
	}
	if _, ok := err.(*FailError); !ok {
		t.Errorf("expected *FailError, got %T", err)
	}
}

func TestEmptyRulesIsNoop(t *testing.T) {
	result, err := Evaluate(&Rules{Match: MatchFirst}, EvalInput{})
	if err != nil || result.MatchedRule != "" {
		t.Errorf("expected no-op for empty rules, got result=%+v err=%v", result, err)
	}
}
