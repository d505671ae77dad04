package conflict

import (
	"regexp"
	"strconv"
	"strings"
)

// negationWords flags a statement as a negation of its counterpart when
// exactly one of a pair carries one of these.
var negationWords = []string{"not", "no longer", "never", "isn't", "doesn't", "don't", "won't", "can't"}

// antonymPairs are word pairs whose joint presence across a and b signals
// a direct factual conflict (one says X, the other says not-X in a
// different word).
var antonymPairs = [][2]string{
	{"likes", "dislikes"},
	{"loves", "hates"},
	{"enabled", "disabled"},
	{"active", "inactive"},
	{"married", "divorced"},
	{"employed", "unemployed"},
	{"true", "false"},
	{"increase", "decrease"},
	{"started", "stopped"},
	{"open", "closed"},
}

// temporalKeywords mark a statement as carrying a time reference, used by
// both the rule-based semantic fallback and the temporal detector.
var temporalKeywords = []string{
	"today", "yesterday", "tomorrow", "now", "currently", "previously",
	"before", "after", "since", "until", "last week", "last month",
	"last year", "next week", "next month", "next year", "ago",
}

var numberPattern = regexp.MustCompile(`-?\d+(\.\d+)?`)

// ruleBasedConflict is the deterministic fallback for semantic conflict
// detection, used when the LLM is unavailable or its response fails to
// parse: negation vs. affirmation, numeric disagreement, antonym pairs,
// and temporal keyword presence (mirroring spec §10's enumerated rule
// set). Returns (hasConflict, severity, explanation).
func ruleBasedConflict(a, b string) (bool, float64, string) {
	la, lb := strings.ToLower(a), strings.ToLower(b)

	if negated, reason := negationMismatch(la, lb); negated {
		return true, 0.7, reason
	}
	if mismatch, reason := numericDisagreement(la, lb); mismatch {
		return true, 0.6, reason
	}
	if pair, reason := antonymMatch(la, lb); pair {
		return true, 0.65, reason
	}
	if hasTemporalKeyword(la) && hasTemporalKeyword(lb) {
		return true, 0.3, "both statements carry time references that may conflict"
	}
	return false, 0, ""
}

func negationMismatch(a, b string) (bool, string) {
	aNeg, bNeg := containsAny(a, negationWords), containsAny(b, negationWords)
	if aNeg != bNeg {
		return true, "one statement negates what the other affirms"
	}
	return false, ""
}

func numericDisagreement(a, b string) (bool, string) {
	numsA := numberPattern.FindAllString(a, -1)
	numsB := numberPattern.FindAllString(b, -1)
	if len(numsA) == 0 || len(numsB) == 0 {
		return false, ""
	}
	va, erra := strconv.ParseFloat(numsA[0], 64)
	vb, errb := strconv.ParseFloat(numsB[0], 64)
	if erra != nil || errb != nil {
		return false, ""
	}
	if va != vb {
		return true, "statements disagree on a numeric value"
	}
	return false, ""
}

func antonymMatch(a, b string) (bool, string) {
	for _, pair := range antonymPairs {
		if strings.Contains(a, pair[0]) && strings.Contains(b, pair[1]) {
			return true, "statements use opposing terms: " + pair[0] + " vs. " + pair[1]
		}
		if strings.Contains(a, pair[1]) && strings.Contains(b, pair[0]) {
			return true, "statements use opposing terms: " + pair[1] + " vs. " + pair[0]
		}
	}
	return false, ""
}

func hasTemporalKeyword(s string) bool {
	return containsAny(s, temporalKeywords)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
