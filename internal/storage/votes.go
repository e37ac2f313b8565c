package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/anamnesos/hivemind-sub005/internal/model"
)

// UpsertVoteTx records an agent's latest position on a claim inside a
// caller-owned transaction. A new vote from the same agent replaces the old
// one — only the latest vote per agent counts toward consensus.
func (s *Store) UpsertVoteTx(ctx context.Context, tx *sql.Tx, v model.Vote) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO claim_votes (claim_id, agent, position, reason, voted_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(claim_id, agent) DO UPDATE SET
		   position = excluded.position,
		   reason   = excluded.reason,
		   voted_at = excluded.voted_at`,
		v.ClaimID.String(), v.Agent, string(v.Position), v.Reason, toMillis(v.VotedAt),
	)
	if err != nil {
		return fmt.Errorf("storage: upsert vote: %w", err)
	}
	return nil
}

// VotesForClaimTx returns every agent's latest vote on a claim, inside a
// caller-owned transaction.
func (s *Store) VotesForClaimTx(ctx context.Context, tx *sql.Tx, claimID uuid.UUID) ([]model.Vote, error) {
	return votesForClaim(ctx, tx, claimID)
}

// VotesForClaim returns every agent's latest vote on a claim.
func (s *Store) VotesForClaim(ctx context.Context, claimID uuid.UUID) ([]model.Vote, error) {
	return votesForClaim(ctx, s.db, claimID)
}

func votesForClaim(ctx context.Context, q dbtx, claimID uuid.UUID) ([]model.Vote, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT claim_id, agent, position, reason, voted_at
		 FROM claim_votes WHERE claim_id = ?
		 ORDER BY agent`, claimID.String())
	if err != nil {
		return nil, fmt.Errorf("storage: votes for claim: %w", err)
	}
	defer rows.Close()

	var votes []model.Vote
	for rows.Next() {
		var (
			id, agent, position, reason string
			votedMs                     int64
		)
		if err := rows.Scan(&id, &agent, &position, &reason, &votedMs); err != nil {
			return nil, fmt.Errorf("storage: scan vote: %w", err)
		}
		cid, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("storage: parse vote claim id %q: %w", id, err)
		}
		votes = append(votes, model.Vote{
			ClaimID:  cid,
			Agent:    agent,
			Position: model.VotePosition(position),
			Reason:   reason,
			VotedAt:  fromMillis(votedMs),
		})
	}
	return votes, rows.Err()
}
