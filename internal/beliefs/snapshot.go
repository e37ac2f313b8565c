// Package beliefs captures what an agent currently holds to be true and
// flags pairs of beliefs that assert opposite things about the same scope.
//
// A snapshot is immutable: it is the claims relevant to one (agent, session)
// pair at the moment of capture. Detection runs at snapshot time over that
// belief set; resolving a contradiction is an explicit, separate act.
package beliefs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/anamnesos/hivemind-sub005/internal/model"
	"github.com/anamnesos/hivemind-sub005/internal/storage"
)

// Snapshotter creates belief snapshots and owns the contradiction records
// they produce.
type Snapshotter struct {
	store  *storage.Store
	logger *slog.Logger
}

// NewSnapshotter creates a Snapshotter backed by the workspace store.
func NewSnapshotter(store *storage.Store, logger *slog.Logger) *Snapshotter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshotter{store: store, logger: logger}
}

// Create captures the belief set for (agent, session), persists it, runs the
// contradiction detector over every scope-sharing pair, and persists any new
// contradictions — all in one transaction, so a snapshot never commits
// without the contradictions found in it.
func (s *Snapshotter) Create(ctx context.Context, agent, session string) (model.SnapshotResult, error) {
	if agent == "" {
		return model.SnapshotResult{OK: false, Reason: model.ReasonMissingAgent}, nil
	}

	tx, err := s.store.Tx(ctx)
	if err != nil {
		return model.SnapshotResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	claims, err := s.store.BeliefClaims(ctx, tx, agent, session)
	if err != nil {
		return model.SnapshotResult{}, err
	}

	now := s.store.Now()
	snap := model.BeliefSnapshot{
		ID:        uuid.New(),
		Agent:     agent,
		Session:   session,
		Beliefs:   claims,
		CreatedAt: now,
	}
	if err := s.store.InsertSnapshotTx(ctx, tx, snap); err != nil {
		return model.SnapshotResult{}, err
	}

	var found []model.Contradiction
	for i := 0; i < len(claims); i++ {
		for j := i + 1; j < len(claims); j++ {
			hit, detail := Conflicts(claims[i], claims[j])
			if !hit {
				continue
			}
			exists, err := s.store.ContradictionExistsTx(ctx, tx, agent, session, claims[i].ID, claims[j].ID)
			if err != nil {
				return model.SnapshotResult{}, err
			}
			if exists {
				continue
			}
			c := model.Contradiction{
				ID:         uuid.New(),
				Agent:      agent,
				Session:    session,
				ClaimA:     claims[i].ID,
				ClaimB:     claims[j].ID,
				Detail:     detail,
				DetectedAt: now,
			}
			if err := s.store.InsertContradictionTx(ctx, tx, c); err != nil {
				return model.SnapshotResult{}, err
			}
			found = append(found, c)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.SnapshotResult{}, fmt.Errorf("beliefs: commit snapshot: %w", err)
	}

	if len(found) > 0 {
		s.logger.Info("contradictions detected",
			"agent", agent, "session", session, "count", len(found))
	}
	return model.SnapshotResult{
		OK:       true,
		Snapshot: &snap,
		Contradictions: model.ContradictionTally{
			Count: len(found),
			Pairs: found,
		},
	}, nil
}

// Latest returns the most recent snapshot for (agent, session). A missing
// snapshot is an empty result, not an error.
func (s *Snapshotter) Latest(ctx context.Context, agent, session string) (model.SnapshotResult, error) {
	snap, err := s.store.LatestSnapshot(ctx, agent, session)
	if err == storage.ErrNotFound {
		return model.SnapshotResult{OK: true}, nil
	}
	if err != nil {
		return model.SnapshotResult{}, err
	}
	return model.SnapshotResult{OK: true, Snapshot: snap}, nil
}

// Contradictions lists stored contradiction records for the filter.
func (s *Snapshotter) Contradictions(ctx context.Context, f storage.ContradictionFilter) (model.ContradictionsResult, error) {
	out, err := s.store.Contradictions(ctx, f)
	if err != nil {
		return model.ContradictionsResult{}, err
	}
	return model.ContradictionsResult{OK: true, Contradictions: out}, nil
}

// Resolve stamps a contradiction as resolved. Detection never resolves;
// only this explicit call does.
func (s *Snapshotter) Resolve(ctx context.Context, id uuid.UUID, resolvedBy string) (model.ContradictionsResult, error) {
	c, err := s.store.ResolveContradiction(ctx, id, resolvedBy)
	if err == storage.ErrNotFound {
		return model.ContradictionsResult{OK: false, Reason: model.ReasonNotFound}, nil
	}
	if err != nil {
		return model.ContradictionsResult{}, err
	}
	return model.ContradictionsResult{OK: true, Contradictions: []model.Contradiction{*c}}, nil
}
