// Package model defines the persisted record types of the team memory claims
// engine and the result envelopes returned by its public operations.
//
// Records are plain structs. Collection-valued fields (scopes, evidence,
// audit notes, alternatives, beliefs) cross the storage boundary as JSON
// columns; the storage layer owns that serialization and validates shape on
// read as well as on write.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClaimType categorizes what kind of assertion a claim makes.
type ClaimType string

const (
	ClaimFact       ClaimType = "fact"
	ClaimDecision   ClaimType = "decision"
	ClaimHypothesis ClaimType = "hypothesis"
	ClaimNegative   ClaimType = "negative"
)

// ValidClaimType reports whether t is one of the enumerated claim types.
func ValidClaimType(t ClaimType) bool {
	switch t {
	case ClaimFact, ClaimDecision, ClaimHypothesis, ClaimNegative:
		return true
	}
	return false
}

// ClaimStatus is the lifecycle state of a claim. Transitions between states
// are governed exclusively by the fsm package.
type ClaimStatus string

const (
	StatusProposed     ClaimStatus = "proposed"
	StatusConfirmed    ClaimStatus = "confirmed"
	StatusContested    ClaimStatus = "contested"
	StatusPendingProof ClaimStatus = "pending_proof"
	StatusDeprecated   ClaimStatus = "deprecated"
)

// ValidClaimStatus reports whether s is one of the enumerated statuses.
func ValidClaimStatus(s ClaimStatus) bool {
	switch s {
	case StatusProposed, StatusConfirmed, StatusContested, StatusPendingProof, StatusDeprecated:
		return true
	}
	return false
}

// EvidenceRelation describes how a piece of evidence bears on a claim.
type EvidenceRelation string

const (
	EvidenceSupports EvidenceRelation = "supports"
	EvidenceRefutes  EvidenceRelation = "refutes"
	EvidenceNeutral  EvidenceRelation = "neutral"
)

// Evidence is one entry in a claim's append-only evidence list.
type Evidence struct {
	Ref      string           `json:"ref"`
	Relation EvidenceRelation `json:"relation"`
	AddedBy  string           `json:"added_by"`
	Weight   float64          `json:"weight"`
	AddedAt  time.Time        `json:"added_at"`
}

// AuditNote records who changed a claim's status, and why.
type AuditNote struct {
	Actor      string      `json:"actor"`
	Note       string      `json:"note,omitempty"`
	FromStatus ClaimStatus `json:"from_status"`
	ToStatus   ClaimStatus `json:"to_status"`
	At         time.Time   `json:"at"`
}

// Claim is a standalone assertion held in team memory: a fact, decision,
// hypothesis, or negative ("do not X") statement with an owner, a confidence,
// and a set of free-text scopes that tie it to files or topics.
type Claim struct {
	ID             uuid.UUID   `json:"id"`
	IdempotencyKey *string     `json:"idempotency_key,omitempty"`
	Statement      string      `json:"statement"`
	ClaimType      ClaimType   `json:"claim_type"`
	Owner          string      `json:"owner"`
	Confidence     float64     `json:"confidence"`
	Status         ClaimStatus `json:"status"`
	Supersedes     *uuid.UUID  `json:"supersedes,omitempty"`
	Session        string      `json:"session,omitempty"`
	Scopes         []string    `json:"scopes,omitempty"`
	Evidence       []Evidence  `json:"evidence,omitempty"`
	Audit          []AuditNote `json:"audit,omitempty"`
	TTLHours       *float64    `json:"ttl_hours,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// HasScope reports whether the claim carries the given scope tag, either
// exactly or as a substring of one of its scopes. Scope tags are often file
// paths, so containment lets "pane1" match "ui/pane1/render.ts".
func (c Claim) HasScope(scope string) bool {
	if scope == "" {
		return false
	}
	for _, s := range c.Scopes {
		if s == scope || strings.Contains(s, scope) {
			return true
		}
	}
	return false
}

// NewClaimInput is the caller-supplied shape for CreateClaim.
type NewClaimInput struct {
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
	Statement      string     `json:"statement"`
	ClaimType      ClaimType  `json:"claim_type"`
	Owner          string     `json:"owner"`
	Confidence     *float64   `json:"confidence,omitempty"`
	Supersedes     *uuid.UUID `json:"supersedes,omitempty"`
	Session        string     `json:"session,omitempty"`
	Scopes         []string   `json:"scopes,omitempty"`
	TTLHours       *float64   `json:"ttl_hours,omitempty"`
}

// ValidateNewClaim checks a NewClaimInput before any write. It returns a
// reason code ("" when valid) rather than an error: malformed input is a
// business-rule outcome, not an exception.
func ValidateNewClaim(in NewClaimInput) string {
	if in.Statement == "" {
		return ReasonMissingStatement
	}
	if in.Owner == "" {
		return ReasonMissingOwner
	}
	if !ValidClaimType(in.ClaimType) {
		return ReasonInvalidClaimType
	}
	if in.Confidence != nil && (*in.Confidence < 0 || *in.Confidence > 1) {
		return ReasonInvalidConfidence
	}
	return ""
}

// QueryFilter selects claims by structural fields. Zero values mean "no
// constraint". SessionsBack restricts to the N most recently observed
// distinct sessions; Text (search only) adds lexical relevance matching.
type QueryFilter struct {
	Scope        string      `json:"scope,omitempty"`
	ClaimType    ClaimType   `json:"claim_type,omitempty"`
	Status       ClaimStatus `json:"status,omitempty"`
	Owner        string      `json:"owner,omitempty"`
	Session      string      `json:"session,omitempty"`
	SessionsBack int         `json:"sessions_back,omitempty"`
	Text         string      `json:"text,omitempty"`
	Order        string      `json:"order,omitempty"` // "asc" or "desc" by creation time
	Limit        int         `json:"limit,omitempty"`
}
