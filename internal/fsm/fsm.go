// Package fsm is the single source of truth for claim status transitions.
//
// Every status-mutating path — direct updates, deprecation, and the consensus
// engine's automatic promotions and contests — consults this table before
// writing. Status legality rules exist nowhere else.
package fsm

import "github.com/anamnesos/hivemind-sub005/internal/model"

// transitions maps each status to the set of statuses it may move to.
// proposed is initial and never re-entered; deprecated is terminal.
var transitions = map[model.ClaimStatus]map[model.ClaimStatus]bool{
	model.StatusProposed: {
		model.StatusConfirmed:  true,
		model.StatusContested:  true,
		model.StatusDeprecated: true,
	},
	model.StatusConfirmed: {
		model.StatusContested:    true,
		model.StatusPendingProof: true,
		model.StatusDeprecated:   true,
	},
	model.StatusContested: {
		model.StatusPendingProof: true,
		model.StatusConfirmed:    true,
		model.StatusDeprecated:   true,
	},
	model.StatusPendingProof: {
		model.StatusConfirmed:  true,
		model.StatusContested:  true,
		model.StatusDeprecated: true,
	},
	model.StatusDeprecated: {},
}

// CanTransition reports whether a claim may move from one status to another.
// Self-transitions are not legal edges; callers that want idempotent
// promotion (consensus confirming an already-confirmed claim) check equality
// before consulting the table.
func CanTransition(from, to model.ClaimStatus) bool {
	return transitions[from][to]
}

// Validate returns "" when the transition is legal, or a reason code for the
// result envelope when it is not.
func Validate(from, to model.ClaimStatus) string {
	if !model.ValidClaimStatus(to) {
		return model.ReasonInvalidStatus
	}
	if !CanTransition(from, to) {
		return model.ReasonInvalidTransition
	}
	return ""
}
