package beliefs

import (
	"strings"

	"github.com/anamnesos/hivemind-sub005/internal/model"
	"github.com/anamnesos/hivemind-sub005/internal/search"
)

// The detector is lexical on purpose: it flags pairs that assert opposite
// things about the same scope using negation markers and normalized subject
// tokens, with no semantic inference. A negative-typed claim saying
// "do not inject X" conflicts with a positive claim saying "inject X" when
// both touch the same scope, without requiring the statements to be equal.

// negationBigrams are two-token negation markers after normalization
// ("don't" tokenizes to "don", "t").
var negationBigrams = [][2]string{
	{"do", "not"},
	{"don", "t"},
	{"must", "not"},
	{"mustn", "t"},
	{"should", "not"},
	{"shouldn", "t"},
	{"will", "not"},
	{"won", "t"},
	{"can", "not"},
}

// negationUnigrams are single-token negation markers.
var negationUnigrams = map[string]bool{
	"never": true,
	"avoid": true,
	"no":    true,
	"not":   true,
	"stop":  true,
}

// stopwords are dropped when extracting the subject of a statement. Small by
// design — over-aggressive filtering erases the subject of short claims.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"to": true, "of": true, "in": true, "into": true, "on": true,
	"for": true, "with": true, "and": true, "or": true,
	"it": true, "this": true, "that": true, "we": true, "you": true,
}

// IsNegative reports whether a claim asserts a prohibition: either it is
// typed negative, or its statement carries a negation marker.
func IsNegative(c model.Claim) bool {
	return c.ClaimType == model.ClaimNegative || statementNegated(c.Statement)
}

func statementNegated(statement string) bool {
	tokens := search.Tokenize(statement)
	for i, t := range tokens {
		if negationUnigrams[t] {
			return true
		}
		if i+1 < len(tokens) {
			for _, bg := range negationBigrams {
				if t == bg[0] && tokens[i+1] == bg[1] {
					return true
				}
			}
		}
	}
	return false
}

// SubjectTokens normalizes a statement to the tokens that carry its subject:
// lowercase, punctuation stripped, negation markers and stopwords removed.
func SubjectTokens(statement string) []string {
	tokens := search.Tokenize(statement)
	subject := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if negationUnigrams[t] || stopwords[t] {
			continue
		}
		skip := false
		if i+1 < len(tokens) {
			for _, bg := range negationBigrams {
				if t == bg[0] && tokens[i+1] == bg[1] {
					skip = true
					break
				}
			}
		}
		if skip {
			i++ // consume both marker tokens
			continue
		}
		subject = append(subject, t)
	}
	return subject
}

// Conflicts reports whether two claims contradict each other: overlapping
// scope, opposite polarity, and enough shared subject tokens that they are
// plausibly about the same thing. Short statements get a lower overlap bar —
// "Do not inject CSS" and "Inject CSS" share only two subject tokens total.
func Conflicts(a, b model.Claim) (bool, string) {
	if !scopesOverlap(a.Scopes, b.Scopes) {
		return false, ""
	}
	negA, negB := IsNegative(a), IsNegative(b)
	if negA == negB {
		return false, ""
	}

	subjA := SubjectTokens(a.Statement)
	subjB := SubjectTokens(b.Statement)
	shared := sharedTokens(subjA, subjB)

	needed := 2
	if min(len(subjA), len(subjB)) <= 2 {
		needed = 1
	}
	if len(shared) < needed {
		return false, ""
	}
	return true, "opposite polarity on: " + strings.Join(shared, " ")
}

func scopesOverlap(a, b []string) bool {
	for _, sa := range a {
		for _, sb := range b {
			if sa == sb {
				return true
			}
		}
	}
	return false
}

func sharedTokens(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	var shared []string
	seen := make(map[string]bool)
	for _, t := range b {
		if set[t] && !seen[t] {
			shared = append(shared, t)
			seen[t] = true
		}
	}
	return shared
}
