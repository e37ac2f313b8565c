package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/anamnesos/hivemind-sub005/internal/fsm"
	"github.com/anamnesos/hivemind-sub005/internal/model"
)

const claimColumns = `id, idempotency_key, statement, claim_type, owner, confidence, status,
	supersedes, session, scopes, evidence, audit, ttl_hours, created_at, updated_at`

// CreateClaim validates the input and inserts a new claim row, or returns the
// existing claim when the supplied idempotency key is already known. The
// duplicate path is the idempotency contract, not an error: retried creates
// must converge on one row.
func (s *Store) CreateClaim(ctx context.Context, in model.NewClaimInput) (model.CreateClaimResult, error) {
	if reason := model.ValidateNewClaim(in); reason != "" {
		return model.CreateClaimResult{OK: false, Reason: reason}, nil
	}

	now := s.now()
	c := model.Claim{
		ID:         uuid.New(),
		Statement:  in.Statement,
		ClaimType:  in.ClaimType,
		Owner:      in.Owner,
		Confidence: 1.0,
		Status:     model.StatusProposed,
		Supersedes: in.Supersedes,
		Session:    in.Session,
		Scopes:     in.Scopes,
		TTLHours:   in.TTLHours,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.Confidence != nil {
		c.Confidence = *in.Confidence
	}
	var idemKey *string
	if in.IdempotencyKey != "" {
		k := in.IdempotencyKey
		idemKey = &k
		c.IdempotencyKey = &k
	}

	scopes, evidence, audit, err := marshalClaimJSON(c)
	if err != nil {
		return model.CreateClaimResult{}, err
	}

	// ON CONFLICT DO NOTHING makes the dedup race-free under concurrent
	// callers: exactly one insert wins, everyone else reads the winner.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO claims (`+claimColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(idempotency_key) DO NOTHING`,
		c.ID.String(), idemKey, c.Statement, string(c.ClaimType), c.Owner, c.Confidence,
		string(c.Status), uuidPtr(c.Supersedes), c.Session, scopes, evidence, audit,
		c.TTLHours, toMillis(c.CreatedAt), toMillis(c.UpdatedAt),
	)
	if err != nil {
		return model.CreateClaimResult{}, fmt.Errorf("storage: create claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.CreateClaimResult{}, fmt.Errorf("storage: create claim rows: %w", err)
	}
	if n == 0 {
		existing, err := s.claimByIdempotencyKey(ctx, in.IdempotencyKey)
		if err != nil {
			return model.CreateClaimResult{}, err
		}
		return model.CreateClaimResult{OK: true, Status: model.ReasonDuplicate, Claim: existing}, nil
	}
	return model.CreateClaimResult{OK: true, Status: "created", Claim: &c}, nil
}

// GetClaim looks up a claim by id. Returns ErrNotFound when absent.
func (s *Store) GetClaim(ctx context.Context, id uuid.UUID) (*model.Claim, error) {
	return getClaim(ctx, s.db, id)
}

// GetClaimTx is GetClaim inside a caller-owned transaction.
func (s *Store) GetClaimTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*model.Claim, error) {
	return getClaim(ctx, tx, id)
}

func getClaim(ctx context.Context, q dbtx, id uuid.UUID) (*model.Claim, error) {
	row := q.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = ?`, id.String())
	c, err := scanClaim(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get claim: %w", err)
	}
	return c, nil
}

func (s *Store) claimByIdempotencyKey(ctx context.Context, key string) (*model.Claim, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE idempotency_key = ?`, key)
	c, err := scanClaim(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: claim by idempotency key: %w", err)
	}
	return c, nil
}

// QueryClaims returns claims matching the structural filter. Scope matching
// (any scope equal to or containing the filter value) happens on the decoded
// rows because scopes live in a JSON column; the remaining filters narrow the
// scan in SQL first.
func (s *Store) QueryClaims(ctx context.Context, f model.QueryFilter) ([]model.Claim, error) {
	where, args := buildClaimWhere(f)

	if f.SessionsBack > 0 {
		sessions, err := s.RecentSessions(ctx, f.SessionsBack)
		if err != nil {
			return nil, err
		}
		if len(sessions) == 0 {
			return nil, nil
		}
		placeholders := strings.Repeat("?,", len(sessions))
		where = append(where, fmt.Sprintf("session IN (%s)", placeholders[:len(placeholders)-1]))
		for _, sess := range sessions {
			args = append(args, sess)
		}
	}

	query := `SELECT ` + claimColumns + ` FROM claims`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	dir := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		dir = "ASC"
	}
	query += " ORDER BY created_at " + dir + ", id " + dir

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: query claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan claim: %w", err)
		}
		if f.Scope != "" && !c.HasScope(f.Scope) {
			continue
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

func buildClaimWhere(f model.QueryFilter) ([]string, []any) {
	var where []string
	var args []any
	if f.ClaimType != "" {
		where = append(where, "claim_type = ?")
		args = append(args, string(f.ClaimType))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, f.Owner)
	}
	if f.Session != "" {
		where = append(where, "session = ?")
		args = append(args, f.Session)
	}
	return where, args
}

// UpdateClaimStatus moves a claim to newStatus when the state machine allows
// it, stamping updated_at and appending an audit note. An illegal transition
// returns invalid_transition and mutates nothing.
func (s *Store) UpdateClaimStatus(ctx context.Context, id uuid.UUID, newStatus model.ClaimStatus, actor, note string) (model.StatusUpdateResult, error) {
	tx, err := s.Tx(ctx)
	if err != nil {
		return model.StatusUpdateResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := s.ApplyStatusTx(ctx, tx, id, newStatus, actor, note)
	if err != nil {
		return model.StatusUpdateResult{}, err
	}
	if !res.OK {
		return res, nil
	}
	if err := tx.Commit(); err != nil {
		return model.StatusUpdateResult{}, fmt.Errorf("storage: commit status update: %w", err)
	}
	return res, nil
}

// ApplyStatusTx performs the fsm-gated status write inside a caller-owned
// transaction. The consensus engine uses this so a vote and the status change
// it triggers commit or roll back together.
func (s *Store) ApplyStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, newStatus model.ClaimStatus, actor, note string) (model.StatusUpdateResult, error) {
	c, err := getClaim(ctx, tx, id)
	if err == ErrNotFound {
		return model.StatusUpdateResult{OK: false, Reason: model.ReasonNotFound}, nil
	}
	if err != nil {
		return model.StatusUpdateResult{}, err
	}

	if reason := fsm.Validate(c.Status, newStatus); reason != "" {
		return model.StatusUpdateResult{OK: false, Reason: reason, FromStatus: c.Status, ToStatus: newStatus, Claim: c}, nil
	}

	now := s.now()
	from := c.Status
	c.Audit = append(c.Audit, model.AuditNote{
		Actor:      actor,
		Note:       note,
		FromStatus: from,
		ToStatus:   newStatus,
		At:         now,
	})
	c.Status = newStatus
	c.UpdatedAt = now

	audit, err := json.Marshal(c.Audit)
	if err != nil {
		return model.StatusUpdateResult{}, fmt.Errorf("storage: marshal audit: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE claims SET status = ?, audit = ?, updated_at = ? WHERE id = ?`,
		string(c.Status), string(audit), toMillis(now), id.String(),
	); err != nil {
		return model.StatusUpdateResult{}, fmt.Errorf("storage: update status: %w", err)
	}
	return model.StatusUpdateResult{OK: true, FromStatus: from, ToStatus: newStatus, Claim: c}, nil
}

// AddEvidence appends one evidence record to a claim. Evidence is
// append-only; nothing this operation does can remove or reorder prior
// entries.
func (s *Store) AddEvidence(ctx context.Context, id uuid.UUID, ev model.Evidence) (model.EvidenceResult, error) {
	tx, err := s.Tx(ctx)
	if err != nil {
		return model.EvidenceResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	c, err := getClaim(ctx, tx, id)
	if err == ErrNotFound {
		return model.EvidenceResult{OK: false, Reason: model.ReasonNotFound}, nil
	}
	if err != nil {
		return model.EvidenceResult{}, err
	}

	now := s.now()
	ev.AddedAt = now
	c.Evidence = append(c.Evidence, ev)
	c.UpdatedAt = now

	evidence, err := json.Marshal(c.Evidence)
	if err != nil {
		return model.EvidenceResult{}, fmt.Errorf("storage: marshal evidence: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE claims SET evidence = ?, updated_at = ? WHERE id = ?`,
		string(evidence), toMillis(now), id.String(),
	); err != nil {
		return model.EvidenceResult{}, fmt.Errorf("storage: add evidence: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.EvidenceResult{}, fmt.Errorf("storage: commit evidence: %w", err)
	}
	return model.EvidenceResult{OK: true, Status: "added", Claim: c}, nil
}

// ExpiredClaims returns non-deprecated claims whose ttl_hours window has
// elapsed. The engine never expires claims implicitly; this feeds the
// explicit purge operation.
func (s *Store) ExpiredClaims(ctx context.Context) ([]model.Claim, error) {
	nowMs := toMillis(s.now())
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+claimColumns+` FROM claims
		 WHERE ttl_hours IS NOT NULL
		   AND status != 'deprecated'
		   AND created_at + CAST(ttl_hours * 3600000 AS INTEGER) <= ?`, nowMs)
	if err != nil {
		return nil, fmt.Errorf("storage: expired claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan expired claim: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

// ClaimsExist reports whether every id in ids references a stored claim.
// Used by decision creation to validate alternatives before any write.
func (s *Store) ClaimsExist(ctx context.Context, ids []uuid.UUID) (bool, error) {
	for _, id := range ids {
		var n int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM claims WHERE id = ?`, id.String(),
		).Scan(&n); err != nil {
			return false, fmt.Errorf("storage: claim exists: %w", err)
		}
		if n == 0 {
			return false, nil
		}
	}
	return true, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanClaim.
type scanner interface {
	Scan(dest ...any) error
}

func scanClaim(row scanner) (*model.Claim, error) {
	var (
		id, claimType, status     string
		idemKey, supersedes       sql.NullString
		scopes, evidence, audit   string
		ttlHours                  sql.NullFloat64
		createdMs, updatedMs      int64
		statement, owner, session string
		confidence                float64
	)
	if err := row.Scan(&id, &idemKey, &statement, &claimType, &owner, &confidence, &status,
		&supersedes, &session, &scopes, &evidence, &audit, &ttlHours, &createdMs, &updatedMs); err != nil {
		return nil, err
	}

	cid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse claim id %q: %w", id, err)
	}
	c := &model.Claim{
		ID:         cid,
		Statement:  statement,
		ClaimType:  model.ClaimType(claimType),
		Owner:      owner,
		Confidence: confidence,
		Status:     model.ClaimStatus(status),
		Session:    session,
		CreatedAt:  fromMillis(createdMs),
		UpdatedAt:  fromMillis(updatedMs),
	}
	if idemKey.Valid {
		c.IdempotencyKey = &idemKey.String
	}
	if supersedes.Valid {
		sid, err := uuid.Parse(supersedes.String)
		if err != nil {
			return nil, fmt.Errorf("parse supersedes id %q: %w", supersedes.String, err)
		}
		c.Supersedes = &sid
	}
	if ttlHours.Valid {
		c.TTLHours = &ttlHours.Float64
	}

	// Validate collection shape on read, not just write: a hand-edited store
	// must fail loudly here rather than flow garbage into callers.
	if err := json.Unmarshal([]byte(scopes), &c.Scopes); err != nil {
		return nil, fmt.Errorf("decode scopes for claim %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(evidence), &c.Evidence); err != nil {
		return nil, fmt.Errorf("decode evidence for claim %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(audit), &c.Audit); err != nil {
		return nil, fmt.Errorf("decode audit for claim %s: %w", id, err)
	}
	return c, nil
}

func marshalClaimJSON(c model.Claim) (scopes, evidence, audit string, err error) {
	sb, err := json.Marshal(emptyIfNilStrings(c.Scopes))
	if err != nil {
		return "", "", "", fmt.Errorf("storage: marshal scopes: %w", err)
	}
	eb, err := json.Marshal(emptyIfNilEvidence(c.Evidence))
	if err != nil {
		return "", "", "", fmt.Errorf("storage: marshal evidence: %w", err)
	}
	ab, err := json.Marshal(emptyIfNilAudit(c.Audit))
	if err != nil {
		return "", "", "", fmt.Errorf("storage: marshal audit: %w", err)
	}
	return string(sb), string(eb), string(ab), nil
}

func emptyIfNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func emptyIfNilEvidence(v []model.Evidence) []model.Evidence {
	if v == nil {
		return []model.Evidence{}
	}
	return v
}

func emptyIfNilAudit(v []model.AuditNote) []model.AuditNote {
	if v == nil {
		return []model.AuditNote{}
	}
	return v
}

func uuidPtr(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
