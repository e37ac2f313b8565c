// Package consensus records per-agent votes on claims and derives the
// aggregate status changes they imply.
//
// Two rules, in priority order: any active agent disagreeing contests the
// claim (even one previously confirmed); a unanimous agreement across all
// active agents confirms it. Both transitions go through the state machine —
// the engine never writes a status the fsm package would refuse.
package consensus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/anamnesos/hivemind-sub005/internal/model"
	"github.com/anamnesos/hivemind-sub005/internal/storage"
)

// Engine is the voting protocol over the workspace store.
type Engine struct {
	store  *storage.Store
	logger *slog.Logger
}

// New creates a consensus Engine.
func New(store *storage.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger}
}

// RecordRequest is one agent's vote plus the set of agents whose votes count
// toward the consensus computation. Agents outside ActiveAgents are ignored
// for promotion/contest even if they voted earlier.
type RecordRequest struct {
	ClaimID      uuid.UUID
	Agent        string
	Position     model.VotePosition
	Reason       string
	ActiveAgents []string
}

// Record upserts the vote and applies any status change the new tally
// implies. The vote write and the status change commit in one transaction:
// a claim can never hold a status its recorded votes do not justify.
func (e *Engine) Record(ctx context.Context, req RecordRequest) (model.ConsensusResult, error) {
	if req.Agent == "" {
		return model.ConsensusResult{OK: false, Reason: model.ReasonMissingAgent}, nil
	}
	if !model.ValidVotePosition(req.Position) {
		return model.ConsensusResult{OK: false, Reason: model.ReasonInvalidPosition}, nil
	}

	tx, err := e.store.Tx(ctx)
	if err != nil {
		return model.ConsensusResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	claim, err := e.store.GetClaimTx(ctx, tx, req.ClaimID)
	if err == storage.ErrNotFound {
		return model.ConsensusResult{OK: false, Reason: model.ReasonNotFound}, nil
	}
	if err != nil {
		return model.ConsensusResult{}, err
	}

	vote := model.Vote{
		ClaimID:  req.ClaimID,
		Agent:    req.Agent,
		Position: req.Position,
		Reason:   req.Reason,
		VotedAt:  e.store.Now(),
	}
	if err := e.store.UpsertVoteTx(ctx, tx, vote); err != nil {
		return model.ConsensusResult{}, err
	}

	votes, err := e.store.VotesForClaimTx(ctx, tx, req.ClaimID)
	if err != nil {
		return model.ConsensusResult{}, err
	}

	target, act := decide(votes, req.ActiveAgents)

	var statusUpdate *model.StatusUpdateResult
	if act && claim.Status != target {
		res, err := e.store.ApplyStatusTx(ctx, tx, req.ClaimID, target,
			"consensus", fmt.Sprintf("vote by %s: %s", req.Agent, req.Position))
		if err != nil {
			return model.ConsensusResult{}, err
		}
		statusUpdate = &res
		if res.OK {
			claim = res.Claim
		}
	}

	if err := tx.Commit(); err != nil {
		return model.ConsensusResult{}, fmt.Errorf("consensus: commit vote: %w", err)
	}

	if statusUpdate != nil && statusUpdate.OK {
		e.logger.Info("consensus status change",
			"claim", req.ClaimID, "from", statusUpdate.FromStatus, "to", statusUpdate.ToStatus)
	}
	return model.ConsensusResult{OK: true, Claim: claim, StatusUpdate: statusUpdate}, nil
}

// decide computes the target status from the latest vote of each active
// agent. Disagreement takes priority over any amount of agreement; unanimity
// across all active agents promotes; anything else leaves status alone.
func decide(votes []model.Vote, activeAgents []string) (model.ClaimStatus, bool) {
	if len(activeAgents) == 0 {
		return "", false
	}
	active := make(map[string]bool, len(activeAgents))
	for _, a := range activeAgents {
		active[a] = true
	}

	voted := 0
	for _, v := range votes {
		if !active[v.Agent] {
			continue
		}
		if v.Position == model.VoteDisagree {
			return model.StatusContested, true
		}
		voted++
	}
	if voted == len(activeAgents) {
		return model.StatusConfirmed, true
	}
	return "", false
}

// Summary tallies the latest vote per agent recorded so far — everyone who
// has ever voted, not just a current active set.
func (e *Engine) Summary(ctx context.Context, claimID uuid.UUID) (model.ConsensusSummaryResult, error) {
	if _, err := e.store.GetClaim(ctx, claimID); err == storage.ErrNotFound {
		return model.ConsensusSummaryResult{OK: false, Reason: model.ReasonNotFound}, nil
	} else if err != nil {
		return model.ConsensusSummaryResult{}, err
	}

	votes, err := e.store.VotesForClaim(ctx, claimID)
	if err != nil {
		return model.ConsensusSummaryResult{}, err
	}

	sum := model.ConsensusSummary{ClaimID: claimID, Agents: votes}
	for _, v := range votes {
		switch v.Position {
		case model.VoteAgree:
			sum.Agree++
		case model.VoteDisagree:
			sum.Disagree++
		}
	}
	sum.Total = len(votes)
	sum.Unanimous = sum.Total > 0 && sum.Disagree == 0
	return model.ConsensusSummaryResult{OK: true, Summary: &sum}, nil
}
