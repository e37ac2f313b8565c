// Package search ranks claims by lexical relevance to a free-text query,
// weighted by claim confidence.
//
// Retrieval is deliberately lexical, matching the engine's contradiction
// detector: term containment over normalized statements, no embedding index.
// Confidence acts as both a general multiplier and the tie-breaker, so among
// similarly relevant claims the one the team trusts more sorts first.
package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/anamnesos/hivemind-sub005/internal/model"
)

// Scored pairs a claim with its ranking score.
type Scored struct {
	Claim model.Claim
	// Relevance is the raw term-overlap fraction in [0, 1].
	Relevance float64
	// Score is relevance weighted by confidence; the sort key.
	Score float64
}

// Rank scores claims against query and returns matches sorted best-first.
// Claims with no term overlap are dropped. The weighting mirrors the
// engine-wide convention for confidence-adjusted relevance:
//
//	score = relevance * (0.6 + 0.4 * confidence)
//
// Ties on score break by confidence, then by recency, so the ordering is
// deterministic under the nowMs test clock.
func Rank(claims []model.Claim, query string) []Scored {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	scored := make([]Scored, 0, len(claims))
	for _, c := range claims {
		rel := relevance(Tokenize(c.Statement), terms)
		if rel == 0 {
			continue
		}
		scored = append(scored, Scored{
			Claim:     c,
			Relevance: rel,
			Score:     rel * (0.6 + 0.4*c.Confidence),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Claim.Confidence != scored[j].Claim.Confidence {
			return scored[i].Claim.Confidence > scored[j].Claim.Confidence
		}
		return scored[i].Claim.CreatedAt.After(scored[j].Claim.CreatedAt)
	})
	return scored
}

// relevance is the fraction of query terms present in the statement tokens.
// Containment counts: the query term "inject" matches the token "injecting".
func relevance(statementTokens, queryTerms []string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	set := make(map[string]bool, len(statementTokens))
	for _, t := range statementTokens {
		set[t] = true
	}
	matched := 0
	for _, term := range queryTerms {
		if set[term] {
			matched++
			continue
		}
		for t := range set {
			if strings.Contains(t, term) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(queryTerms))
}

// Tokenize lowercases text, strips punctuation, collapses whitespace, and
// splits into terms. Shared with the contradiction detector so both sides of
// the engine normalize statements identically.
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}
