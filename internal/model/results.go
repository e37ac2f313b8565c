package model

// Reason codes carried in result envelopes when OK is false (or, for
// duplicate, when an idempotent create short-circuits). Collaborating systems
// surface these codes directly, so they are part of the engine's contract.
const (
	ReasonDuplicate          = "duplicate"
	ReasonInvalidTransition  = "invalid_transition"
	ReasonNotFound           = "not_found"
	ReasonMissingStatement   = "missing_statement"
	ReasonMissingOwner       = "missing_owner"
	ReasonMissingAgent       = "missing_agent"
	ReasonInvalidClaimType   = "invalid_claim_type"
	ReasonInvalidStatus      = "invalid_status"
	ReasonInvalidConfidence  = "invalid_confidence"
	ReasonInvalidPosition    = "invalid_position"
	ReasonUnknownAlternative = "unknown_alternative"
)

// CreateClaimResult reports a claim create. Status is "created" for a new
// row and "duplicate" when an idempotency key resolved to an existing claim —
// the duplicate case still has OK true; it is the idempotency contract, not
// an error.
type CreateClaimResult struct {
	OK     bool   `json:"ok"`
	Status string `json:"status,omitempty"`
	Reason string `json:"reason,omitempty"`
	Claim  *Claim `json:"claim,omitempty"`
}

// ClaimResult is a single-claim envelope for lookups and mutations.
type ClaimResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
	Claim  *Claim `json:"claim,omitempty"`
}

// QueryResult lists claims matching a filter. Total counts all matches
// before the limit was applied.
type QueryResult struct {
	OK     bool    `json:"ok"`
	Reason string  `json:"reason,omitempty"`
	Total  int     `json:"total"`
	Claims []Claim `json:"claims"`
}

// StatusUpdateResult reports an fsm-gated status change.
type StatusUpdateResult struct {
	OK         bool        `json:"ok"`
	Reason     string      `json:"reason,omitempty"`
	FromStatus ClaimStatus `json:"from_status,omitempty"`
	ToStatus   ClaimStatus `json:"to_status,omitempty"`
	Claim      *Claim      `json:"claim,omitempty"`
}

// EvidenceResult reports an evidence append.
type EvidenceResult struct {
	OK     bool   `json:"ok"`
	Status string `json:"status,omitempty"` // "added"
	Reason string `json:"reason,omitempty"`
	Claim  *Claim `json:"claim,omitempty"`
}

// DecisionResult is the envelope for decision creation and outcome updates.
type DecisionResult struct {
	OK       bool      `json:"ok"`
	Reason   string    `json:"reason,omitempty"`
	Decision *Decision `json:"decision,omitempty"`
}

// ConsensusResult reports a recorded vote and any status change it caused.
// StatusUpdate is nil when the vote left the claim's status untouched.
type ConsensusResult struct {
	OK           bool                `json:"ok"`
	Reason       string              `json:"reason,omitempty"`
	Claim        *Claim              `json:"claim,omitempty"`
	StatusUpdate *StatusUpdateResult `json:"status_update,omitempty"`
}

// ConsensusSummaryResult is the envelope for a consensus tally.
type ConsensusSummaryResult struct {
	OK      bool              `json:"ok"`
	Reason  string            `json:"reason,omitempty"`
	Summary *ConsensusSummary `json:"summary,omitempty"`
}

// SnapshotResult reports a belief snapshot and the contradictions detected
// while taking it.
type SnapshotResult struct {
	OK             bool               `json:"ok"`
	Reason         string             `json:"reason,omitempty"`
	Snapshot       *BeliefSnapshot    `json:"snapshot,omitempty"`
	Contradictions ContradictionTally `json:"contradictions"`
}

// ContradictionTally summarizes contradictions found during one snapshot.
type ContradictionTally struct {
	Count int             `json:"count"`
	Pairs []Contradiction `json:"pairs,omitempty"`
}

// ContradictionsResult lists stored contradiction records.
type ContradictionsResult struct {
	OK             bool            `json:"ok"`
	Reason         string          `json:"reason,omitempty"`
	Contradictions []Contradiction `json:"contradictions"`
}
