package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anamnesos/hivemind-sub005/internal/model"
)

func TestLegalTransitions(t *testing.T) {
	legal := []struct{ from, to model.ClaimStatus }{
		{model.StatusProposed, model.StatusConfirmed},
		{model.StatusProposed, model.StatusContested},
		{model.StatusProposed, model.StatusDeprecated},
		{model.StatusConfirmed, model.StatusContested},
		{model.StatusConfirmed, model.StatusPendingProof},
		{model.StatusConfirmed, model.StatusDeprecated},
		{model.StatusContested, model.StatusPendingProof},
		{model.StatusContested, model.StatusConfirmed},
		{model.StatusContested, model.StatusDeprecated},
		{model.StatusPendingProof, model.StatusConfirmed},
		{model.StatusPendingProof, model.StatusContested},
		{model.StatusPendingProof, model.StatusDeprecated},
	}
	for _, tc := range legal {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
		assert.Empty(t, Validate(tc.from, tc.to))
	}
}

func TestDeprecatedIsTerminal(t *testing.T) {
	for _, to := range []model.ClaimStatus{
		model.StatusProposed, model.StatusConfirmed, model.StatusContested,
		model.StatusPendingProof, model.StatusDeprecated,
	} {
		assert.False(t, CanTransition(model.StatusDeprecated, to), "deprecated -> %s", to)
	}
}

func TestProposedNeverReentered(t *testing.T) {
	for _, from := range []model.ClaimStatus{
		model.StatusProposed, model.StatusConfirmed, model.StatusContested,
		model.StatusPendingProof, model.StatusDeprecated,
	} {
		assert.False(t, CanTransition(from, model.StatusProposed), "%s -> proposed", from)
	}
}

func TestSelfTransitionsIllegal(t *testing.T) {
	for _, s := range []model.ClaimStatus{
		model.StatusProposed, model.StatusConfirmed, model.StatusContested,
		model.StatusPendingProof, model.StatusDeprecated,
	} {
		assert.Equal(t, model.ReasonInvalidTransition, Validate(s, s))
	}
}

func TestValidateRejectsUnknownStatus(t *testing.T) {
	assert.Equal(t, model.ReasonInvalidStatus, Validate(model.StatusProposed, "retracted"))
}
