package model

import (
	"time"

	"github.com/google/uuid"
)

// Alternative is a claim that was considered and rejected when a decision
// selected another claim. It references the rejected claim by id — claim
// content is never duplicated into the decision row.
type Alternative struct {
	ClaimID         uuid.UUID `json:"claim_id"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
}

// Decision is a lineage record binding a chosen claim to the alternatives it
// was chosen over. Outcome is set later, once the real-world result of the
// decision is known.
type Decision struct {
	ID           uuid.UUID     `json:"id"`
	ClaimID      uuid.UUID     `json:"claim_id"`
	DecidedBy    string        `json:"decided_by"`
	Context      string        `json:"context,omitempty"`
	Rationale    string        `json:"rationale,omitempty"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
	Session      string        `json:"session,omitempty"`
	Outcome      string        `json:"outcome,omitempty"`
	OutcomeNotes string        `json:"outcome_notes,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// NewDecisionInput is the caller-supplied shape for CreateDecision.
type NewDecisionInput struct {
	ClaimID      uuid.UUID     `json:"claim_id"`
	DecidedBy    string        `json:"decided_by"`
	Context      string        `json:"context,omitempty"`
	Rationale    string        `json:"rationale,omitempty"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
	Session      string        `json:"session,omitempty"`
}
