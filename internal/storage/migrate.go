package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// A migration is one ordered, idempotent schema change. applied inspects the
// live schema structurally (column existence, CREATE TABLE text) rather than
// trusting a version counter, so a manually patched or partially migrated
// store still converges. up runs inside a single transaction supplied by the
// runner; on error the transaction rolls back and the schema is untouched.
type migration struct {
	version     int
	description string
	applied     func(ctx context.Context, q dbtx) (bool, error)
	up          func(ctx context.Context, tx *sql.Tx) error

	// rebuildsTables marks migrations that drop-and-recreate a table that
	// other tables reference. Foreign key enforcement is suspended for the
	// duration of that transaction and restored right after.
	rebuildsTables bool
}

// Migrate applies any migration whose effects are not yet present, in
// ascending version order. Each migration is safe to re-run; running the full
// sequence against an up-to-date store is a no-op. The first failing
// migration aborts the run and propagates its error — later migrations are
// not attempted on top of an unconverged schema.
func (s *Store) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		done, err := m.applied(ctx, s.db)
		if err != nil {
			return fmt.Errorf("migration %d (%s): detect: %w", m.version, m.description, err)
		}
		if done {
			continue
		}
		s.logger.Info("applying migration", "version", m.version, "description", m.description)
		if err := s.runMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
	}
	return nil
}

func (s *Store) runMigration(ctx context.Context, m migration) error {
	if m.rebuildsTables {
		// PRAGMA foreign_keys cannot change inside a transaction; flip it
		// around the transaction and restore it no matter how the tx ends.
		if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
			return fmt.Errorf("disable foreign keys: %w", err)
		}
		defer func() {
			if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
				s.logger.Warn("re-enable foreign keys failed", "error", err)
			}
		}()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := m.up(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// tableExists checks sqlite_master for a table by name.
func tableExists(ctx context.Context, q dbtx, table string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// columnExists inspects PRAGMA table_info for a column by name.
func columnExists(ctx context.Context, q dbtx, table, column string) (bool, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// tableSQLContains substring-matches the stored CREATE TABLE statement. Used
// to detect whether a CHECK constraint already carries a newly added enum
// value.
func tableSQLContains(ctx context.Context, q dbtx, table, substr string) (bool, error) {
	var ddl sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&ddl)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ddl.Valid && strings.Contains(ddl.String, substr), nil
}

// isDuplicateColumn matches the error SQLite raises for ALTER TABLE ADD
// COLUMN when the column already exists. Add-column migrations swallow it so
// repeated runs are harmless.
func isDuplicateColumn(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate column name")
}

var migrations = []migration{
	{
		version:     1,
		description: "base schema: claims, decisions, claim_votes, belief_snapshots",
		applied: func(ctx context.Context, q dbtx) (bool, error) {
			return tableExists(ctx, q, "claims")
		},
		up: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, schemaBase)
			return err
		},
	},
	{
		version:     2,
		description: "contradictions table",
		applied: func(ctx context.Context, q dbtx) (bool, error) {
			return tableExists(ctx, q, "contradictions")
		},
		up: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, schemaContradictions)
			return err
		},
	},
	{
		version:        3,
		description:    "widen claims.status CHECK with pending_proof",
		rebuildsTables: true,
		applied: func(ctx context.Context, q dbtx) (bool, error) {
			return tableSQLContains(ctx, q, "claims", "pending_proof")
		},
		up: migrateWidenStatusCheck,
	},
	{
		version:     4,
		description: "contradictions.resolved_at with historical backfill",
		applied: func(ctx context.Context, q dbtx) (bool, error) {
			return columnExists(ctx, q, "contradictions", "resolved_at")
		},
		up: migrateContradictionResolution,
	},
	{
		version:     5,
		description: "composite index for temporal session windowing",
		applied: func(ctx context.Context, q dbtx) (bool, error) {
			var n int
			err := q.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_claims_session_created'`,
			).Scan(&n)
			return n > 0, err
		},
		up: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				`CREATE INDEX IF NOT EXISTS idx_claims_session_created ON claims(session, created_at)`)
			return err
		},
	},
}

const schemaBase = `
CREATE TABLE IF NOT EXISTS claims (
	id              TEXT PRIMARY KEY,
	idempotency_key TEXT UNIQUE,
	statement       TEXT NOT NULL,
	claim_type      TEXT NOT NULL CHECK (claim_type IN ('fact','decision','hypothesis','negative')),
	owner           TEXT NOT NULL,
	confidence      REAL NOT NULL DEFAULT 1.0 CHECK (confidence >= 0.0 AND confidence <= 1.0),
	status          TEXT NOT NULL DEFAULT 'proposed' CHECK (status IN ('proposed','confirmed','contested','deprecated')),
	supersedes      TEXT,
	session         TEXT NOT NULL DEFAULT '',
	scopes          TEXT NOT NULL DEFAULT '[]',
	evidence        TEXT NOT NULL DEFAULT '[]',
	audit           TEXT NOT NULL DEFAULT '[]',
	ttl_hours       REAL,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claims_owner   ON claims(owner);
CREATE INDEX IF NOT EXISTS idx_claims_session ON claims(session);
CREATE INDEX IF NOT EXISTS idx_claims_status  ON claims(status);

CREATE TABLE IF NOT EXISTS decisions (
	id            TEXT PRIMARY KEY,
	claim_id      TEXT NOT NULL REFERENCES claims(id),
	decided_by    TEXT NOT NULL,
	context       TEXT NOT NULL DEFAULT '',
	rationale     TEXT NOT NULL DEFAULT '',
	alternatives  TEXT NOT NULL DEFAULT '[]',
	session       TEXT NOT NULL DEFAULT '',
	outcome       TEXT NOT NULL DEFAULT '',
	outcome_notes TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_claim   ON decisions(claim_id);
CREATE INDEX IF NOT EXISTS idx_decisions_session ON decisions(session);

CREATE TABLE IF NOT EXISTS claim_votes (
	claim_id TEXT NOT NULL REFERENCES claims(id),
	agent    TEXT NOT NULL,
	position TEXT NOT NULL CHECK (position IN ('agree','disagree')),
	reason   TEXT NOT NULL DEFAULT '',
	voted_at INTEGER NOT NULL,
	PRIMARY KEY (claim_id, agent)
);

CREATE TABLE IF NOT EXISTS belief_snapshots (
	id         TEXT PRIMARY KEY,
	agent      TEXT NOT NULL,
	session    TEXT NOT NULL,
	beliefs    TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_agent_session ON belief_snapshots(agent, session, created_at);
`

const schemaContradictions = `
CREATE TABLE IF NOT EXISTS contradictions (
	id          TEXT PRIMARY KEY,
	agent       TEXT NOT NULL,
	session     TEXT NOT NULL,
	claim_a     TEXT NOT NULL REFERENCES claims(id),
	claim_b     TEXT NOT NULL REFERENCES claims(id),
	detail      TEXT NOT NULL DEFAULT '',
	detected_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contradictions_agent_session ON contradictions(agent, session);
`

// migrateWidenStatusCheck rebuilds the claims table because SQLite cannot
// alter a CHECK constraint in place: create a shadow table carrying the
// widened constraint, copy every row through a status-normalizing projection
// (legacy values outside the enum map to 'proposed'), drop the old table,
// rename the shadow into place, and recreate the indexes. The runner holds
// foreign key enforcement off around this transaction; referencing tables
// (decisions, claim_votes, contradictions) keep their rows and re-validate
// once enforcement returns.
func migrateWidenStatusCheck(ctx context.Context, tx *sql.Tx) error {
	const shadow = `
CREATE TABLE claims_new (
	id              TEXT PRIMARY KEY,
	idempotency_key TEXT UNIQUE,
	statement       TEXT NOT NULL,
	claim_type      TEXT NOT NULL CHECK (claim_type IN ('fact','decision','hypothesis','negative')),
	owner           TEXT NOT NULL,
	confidence      REAL NOT NULL DEFAULT 1.0 CHECK (confidence >= 0.0 AND confidence <= 1.0),
	status          TEXT NOT NULL DEFAULT 'proposed' CHECK (status IN ('proposed','confirmed','contested','pending_proof','deprecated')),
	supersedes      TEXT,
	session         TEXT NOT NULL DEFAULT '',
	scopes          TEXT NOT NULL DEFAULT '[]',
	evidence        TEXT NOT NULL DEFAULT '[]',
	audit           TEXT NOT NULL DEFAULT '[]',
	ttl_hours       REAL,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
)`
	if _, err := tx.ExecContext(ctx, shadow); err != nil {
		return fmt.Errorf("create shadow table: %w", err)
	}

	const copyRows = `
INSERT INTO claims_new
SELECT id, idempotency_key, statement, claim_type, owner, confidence,
       CASE WHEN status IN ('proposed','confirmed','contested','pending_proof','deprecated')
            THEN status ELSE 'proposed' END,
       supersedes, session, scopes, evidence, audit, ttl_hours, created_at, updated_at
FROM claims`
	if _, err := tx.ExecContext(ctx, copyRows); err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DROP TABLE claims`); err != nil {
		return fmt.Errorf("drop old table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `ALTER TABLE claims_new RENAME TO claims`); err != nil {
		return fmt.Errorf("rename shadow table: %w", err)
	}

	for _, idx := range []string{
		`CREATE INDEX IF NOT EXISTS idx_claims_owner   ON claims(owner)`,
		`CREATE INDEX IF NOT EXISTS idx_claims_session ON claims(session)`,
		`CREATE INDEX IF NOT EXISTS idx_claims_status  ON claims(status)`,
		`CREATE INDEX IF NOT EXISTS idx_claims_session_created ON claims(session, created_at)`,
	} {
		if _, err := tx.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("recreate index: %w", err)
		}
	}
	return nil
}

// migrateContradictionResolution adds the nullable resolution columns, then
// backfills resolved_at for contradictions whose claims were both deprecated
// before this migration existed — those pairs were settled historically, just
// never stamped. Duplicate-column errors are swallowed so a partially
// migrated store (column present, backfill missing) converges on re-run.
func migrateContradictionResolution(ctx context.Context, tx *sql.Tx) error {
	for _, stmt := range []string{
		`ALTER TABLE contradictions ADD COLUMN resolved_at INTEGER`,
		`ALTER TABLE contradictions ADD COLUMN resolved_by TEXT NOT NULL DEFAULT ''`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil && !isDuplicateColumn(err) {
			return fmt.Errorf("add column: %w", err)
		}
	}

	const backfill = `
UPDATE contradictions
SET resolved_at = detected_at
WHERE resolved_at IS NULL
  AND (SELECT status FROM claims WHERE id = contradictions.claim_a) = 'deprecated'
  AND (SELECT status FROM claims WHERE id = contradictions.claim_b) = 'deprecated'`
	if _, err := tx.ExecContext(ctx, backfill); err != nil {
		return fmt.Errorf("backfill resolved_at: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_contradictions_resolved ON contradictions(resolved_at)`,
	); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}
