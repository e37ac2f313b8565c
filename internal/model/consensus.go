package model

import (
	"time"

	"github.com/google/uuid"
)

// VotePosition is an agent's stance on a claim.
type VotePosition string

const (
	VoteAgree    VotePosition = "agree"
	VoteDisagree VotePosition = "disagree"
)

// ValidVotePosition reports whether p is a recognized position.
func ValidVotePosition(p VotePosition) bool {
	return p == VoteAgree || p == VoteDisagree
}

// Vote is an agent's latest position on a claim. A new vote from the same
// agent replaces the old one; no per-agent history is kept.
type Vote struct {
	ClaimID  uuid.UUID    `json:"claim_id"`
	Agent    string       `json:"agent"`
	Position VotePosition `json:"position"`
	Reason   string       `json:"reason,omitempty"`
	VotedAt  time.Time    `json:"voted_at"`
}

// ConsensusSummary tallies the latest vote per agent for a claim.
type ConsensusSummary struct {
	ClaimID   uuid.UUID `json:"claim_id"`
	Agree     int       `json:"agree"`
	Disagree  int       `json:"disagree"`
	Total     int       `json:"total"`
	Unanimous bool      `json:"unanimous"`
	Agents    []Vote    `json:"agents,omitempty"`
}

// BeliefSnapshot is an immutable capture of the claims an agent held at a
// point in time. A new snapshot for the same (agent, session) is a new,
// independent record; retrieval returns the latest.
type BeliefSnapshot struct {
	ID        uuid.UUID `json:"id"`
	Agent     string    `json:"agent"`
	Session   string    `json:"session"`
	Beliefs   []Claim   `json:"beliefs"`
	CreatedAt time.Time `json:"created_at"`
}

// Contradiction is a detected pair of claims asserting opposite things about
// overlapping scope. ResolvedAt stays nil until an operator or agent
// explicitly resolves the pair.
type Contradiction struct {
	ID         uuid.UUID  `json:"id"`
	Agent      string     `json:"agent"`
	Session    string     `json:"session"`
	ClaimA     uuid.UUID  `json:"claim_a"`
	ClaimB     uuid.UUID  `json:"claim_b"`
	Detail     string     `json:"detail,omitempty"`
	DetectedAt time.Time  `json:"detected_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
}
