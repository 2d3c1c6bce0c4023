package language

import "testing"

func TestNormalizeCrossStandard(t *testing.T) {
	cases := map[string]string{
		"en":  "eng",
		"ENG": "eng",
		" de": "ger",
		"deu": "ger",
		"ger": "ger",
		"":    Undefined,
		"xyz": Undefined,
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, code := range []string{"en", "deu", "", "xyz"} {
		once := Normalize(code)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", code, once, twice)
		}
	}
}

func TestMatchCrossStandard(t *testing.T) {
	if !Match("de", "deu") {
		t.Error("expected de to match deu")
	}
	if !Match("ger", "de") {
		t.Error("expected ger to match de")
	}
	if Match("eng", "fre") {
		t.Error("expected eng not to match fre")
	}
}

func TestMatchSymmetricAndReflexive(t *testing.T) {
	a, b := "en", "fre"
	if Match(a, b) != Match(b, a) {
		t.Error("Match must be symmetric")
	}
	if !Match("eng", "eng") {
		t.Error("Match must be reflexive for canonical codes")
	}
}

func TestMatchUndefinedEqualsUndefined(t *testing.T) {
	if !Match("", "und") {
		t.Error("empty and und should both be undefined-equal")
	}
	if !Match("", "") {
		t.Error("empty should match empty")
	}
}
