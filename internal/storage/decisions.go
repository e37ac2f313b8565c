package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/anamnesos/hivemind-sub005/internal/model"
)

const decisionColumns = `id, claim_id, decided_by, context, rationale, alternatives,
	session, outcome, outcome_notes, created_at`

// CreateDecision inserts a decision row. The chosen claim and every
// alternative must reference existing claims; the caller (engine facade)
// checks that before this runs, and the foreign key on claim_id backstops it.
func (s *Store) CreateDecision(ctx context.Context, d model.Decision) (model.Decision, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	alts := d.Alternatives
	if alts == nil {
		alts = []model.Alternative{}
	}
	altJSON, err := json.Marshal(alts)
	if err != nil {
		return model.Decision{}, fmt.Errorf("storage: marshal alternatives: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO decisions (`+decisionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID.String(), d.ClaimID.String(), d.DecidedBy, d.Context, d.Rationale,
		string(altJSON), d.Session, d.Outcome, d.OutcomeNotes, toMillis(d.CreatedAt),
	)
	if err != nil {
		return model.Decision{}, fmt.Errorf("storage: create decision: %w", err)
	}
	return d, nil
}

// GetDecision looks up a decision by id. Returns ErrNotFound when absent.
func (s *Store) GetDecision(ctx context.Context, id uuid.UUID) (*model.Decision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+decisionColumns+` FROM decisions WHERE id = ?`, id.String())
	d, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get decision: %w", err)
	}
	return d, nil
}

// RecordOutcome sets the real-world outcome on an existing decision.
func (s *Store) RecordOutcome(ctx context.Context, id uuid.UUID, outcome, notes string) (*model.Decision, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE decisions SET outcome = ?, outcome_notes = ? WHERE id = ?`,
		outcome, notes, id.String())
	if err != nil {
		return nil, fmt.Errorf("storage: record outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("storage: record outcome rows: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetDecision(ctx, id)
}

// DecisionsForClaim returns decisions that chose the given claim, newest
// first.
func (s *Store) DecisionsForClaim(ctx context.Context, claimID uuid.UUID) ([]model.Decision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+decisionColumns+` FROM decisions
		 WHERE claim_id = ? ORDER BY created_at DESC`, claimID.String())
	if err != nil {
		return nil, fmt.Errorf("storage: decisions for claim: %w", err)
	}
	defer rows.Close()

	var decisions []model.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan decision: %w", err)
		}
		decisions = append(decisions, *d)
	}
	return decisions, rows.Err()
}

func scanDecision(row scanner) (*model.Decision, error) {
	var (
		id, claimID             string
		decidedBy, context      string
		rationale, alternatives string
		session, outcome, notes string
		createdMs               int64
	)
	if err := row.Scan(&id, &claimID, &decidedBy, &context, &rationale, &alternatives,
		&session, &outcome, &notes, &createdMs); err != nil {
		return nil, err
	}

	did, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse decision id %q: %w", id, err)
	}
	cid, err := uuid.Parse(claimID)
	if err != nil {
		return nil, fmt.Errorf("parse decision claim id %q: %w", claimID, err)
	}

	d := &model.Decision{
		ID:           did,
		ClaimID:      cid,
		DecidedBy:    decidedBy,
		Context:      context,
		Rationale:    rationale,
		Session:      session,
		Outcome:      outcome,
		OutcomeNotes: notes,
		CreatedAt:    fromMillis(createdMs),
	}
	if err := json.Unmarshal([]byte(alternatives), &d.Alternatives); err != nil {
		return nil, fmt.Errorf("decode alternatives for decision %s: %w", id, err)
	}
	return d, nil
}
