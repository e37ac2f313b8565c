package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/anamnesos/hivemind-sub005/internal/model"
)

// InsertSnapshotTx persists an immutable belief snapshot inside a
// caller-owned transaction. Snapshots are never updated; a new capture for
// the same (agent, session) is a new row.
func (s *Store) InsertSnapshotTx(ctx context.Context, tx *sql.Tx, snap model.BeliefSnapshot) error {
	beliefs := snap.Beliefs
	if beliefs == nil {
		beliefs = []model.Claim{}
	}
	beliefJSON, err := json.Marshal(beliefs)
	if err != nil {
		return fmt.Errorf("storage: marshal beliefs: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO belief_snapshots (id, agent, session, beliefs, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.ID.String(), snap.Agent, snap.Session, string(beliefJSON), toMillis(snap.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("storage: insert snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recently created snapshot for an
// (agent, session) pair, or ErrNotFound when none exists.
func (s *Store) LatestSnapshot(ctx context.Context, agent, session string) (*model.BeliefSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, agent, session, beliefs, created_at
		 FROM belief_snapshots
		 WHERE agent = ? AND session = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`, agent, session)

	var (
		id, a, sess, beliefs string
		createdMs            int64
	)
	err := row.Scan(&id, &a, &sess, &beliefs, &createdMs)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: latest snapshot: %w", err)
	}

	sid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("storage: parse snapshot id %q: %w", id, err)
	}
	snap := &model.BeliefSnapshot{
		ID:        sid,
		Agent:     a,
		Session:   sess,
		CreatedAt: fromMillis(createdMs),
	}
	if err := json.Unmarshal([]byte(beliefs), &snap.Beliefs); err != nil {
		return nil, fmt.Errorf("storage: decode beliefs for snapshot %s: %w", id, err)
	}
	return snap, nil
}

// InsertContradictionTx persists a newly detected contradiction (resolved_at
// nil) inside a caller-owned transaction.
func (s *Store) InsertContradictionTx(ctx context.Context, tx *sql.Tx, c model.Contradiction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO contradictions (id, agent, session, claim_a, claim_b, detail, detected_at, resolved_at, resolved_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, NULL, '')`,
		c.ID.String(), c.Agent, c.Session, c.ClaimA.String(), c.ClaimB.String(),
		c.Detail, toMillis(c.DetectedAt),
	)
	if err != nil {
		return fmt.Errorf("storage: insert contradiction: %w", err)
	}
	return nil
}

// ContradictionExistsTx reports whether an unresolved contradiction for the
// same claim pair (in either order) is already on record for this agent and
// session. Snapshot creation uses it so re-snapshotting does not duplicate
// open contradictions.
func (s *Store) ContradictionExistsTx(ctx context.Context, tx *sql.Tx, agent, session string, a, b uuid.UUID) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contradictions
		 WHERE agent = ? AND session = ? AND resolved_at IS NULL
		   AND ((claim_a = ? AND claim_b = ?) OR (claim_a = ? AND claim_b = ?))`,
		agent, session, a.String(), b.String(), b.String(), a.String(),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage: contradiction exists: %w", err)
	}
	return n > 0, nil
}

// ContradictionFilter narrows Contradictions. Zero values mean no constraint;
// Unresolved restricts to rows whose resolved_at is still null.
type ContradictionFilter struct {
	Agent      string
	Session    string
	Unresolved bool
}

// Contradictions lists stored contradiction records matching the filter,
// newest first.
func (s *Store) Contradictions(ctx context.Context, f ContradictionFilter) ([]model.Contradiction, error) {
	var where []string
	var args []any
	if f.Agent != "" {
		where = append(where, "agent = ?")
		args = append(args, f.Agent)
	}
	if f.Session != "" {
		where = append(where, "session = ?")
		args = append(args, f.Session)
	}
	if f.Unresolved {
		where = append(where, "resolved_at IS NULL")
	}

	query := `SELECT id, agent, session, claim_a, claim_b, detail, detected_at, resolved_at, resolved_by
		 FROM contradictions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY detected_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: contradictions: %w", err)
	}
	defer rows.Close()

	var out []model.Contradiction
	for rows.Next() {
		c, err := scanContradiction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ResolveContradiction stamps resolved_at/resolved_by on a contradiction.
// Returns ErrNotFound for an unknown id; resolving an already-resolved pair
// is a no-op that keeps the original stamp.
func (s *Store) ResolveContradiction(ctx context.Context, id uuid.UUID, resolvedBy string) (*model.Contradiction, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contradictions SET resolved_at = ?, resolved_by = ?
		 WHERE id = ? AND resolved_at IS NULL`,
		toMillis(s.now()), resolvedBy, id.String())
	if err != nil {
		return nil, fmt.Errorf("storage: resolve contradiction: %w", err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("storage: resolve contradiction rows: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, agent, session, claim_a, claim_b, detail, detected_at, resolved_at, resolved_by
		 FROM contradictions WHERE id = ?`, id.String())
	c, err := scanContradiction(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanContradiction(row scanner) (*model.Contradiction, error) {
	var (
		id, agent, session, claimA, claimB, detail, resolvedBy string
		detectedMs                                             int64
		resolvedMs                                             sql.NullInt64
	)
	if err := row.Scan(&id, &agent, &session, &claimA, &claimB, &detail,
		&detectedMs, &resolvedMs, &resolvedBy); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("storage: scan contradiction: %w", err)
	}

	cid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("storage: parse contradiction id %q: %w", id, err)
	}
	aID, err := uuid.Parse(claimA)
	if err != nil {
		return nil, fmt.Errorf("storage: parse claim_a %q: %w", claimA, err)
	}
	bID, err := uuid.Parse(claimB)
	if err != nil {
		return nil, fmt.Errorf("storage: parse claim_b %q: %w", claimB, err)
	}

	c := &model.Contradiction{
		ID:         cid,
		Agent:      agent,
		Session:    session,
		ClaimA:     aID,
		ClaimB:     bID,
		Detail:     detail,
		DetectedAt: fromMillis(detectedMs),
		ResolvedBy: resolvedBy,
	}
	if resolvedMs.Valid {
		t := fromMillis(resolvedMs.Int64)
		c.ResolvedAt = &t
	}
	return c, nil
}

// BeliefClaims collects the claims an agent currently holds in a session:
// claims the agent owns plus claims created in the session, deprecated ones
// excluded. This is the input set for snapshotting and contradiction
// detection.
func (s *Store) BeliefClaims(ctx context.Context, tx *sql.Tx, agent, session string) ([]model.Claim, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+claimColumns+` FROM claims
		 WHERE (owner = ? OR session = ?)
		   AND status != 'deprecated'
		 ORDER BY created_at ASC, id ASC`, agent, session)
	if err != nil {
		return nil, fmt.Errorf("storage: belief claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan belief claim: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}
