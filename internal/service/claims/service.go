// Package claims provides the shared business logic for claim and decision
// operations.
//
// Both the embedding facade and the MCP server delegate to this service,
// ensuring consistent behavior (validation, retry on lock contention, search
// ranking) across all interfaces.
package claims

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/anamnesos/hivemind-sub005/internal/model"
	"github.com/anamnesos/hivemind-sub005/internal/search"
	"github.com/anamnesos/hivemind-sub005/internal/storage"
	"github.com/anamnesos/hivemind-sub005/internal/telemetry"
)

// Service encapsulates claim business logic shared by the facade and MCP
// handlers. Write operations retry on SQLite lock contention.
type Service struct {
	store           *storage.Store
	logger          *slog.Logger
	busyRetries     int
	busyRetryDelay  time.Duration
	defaultTTLHours float64

	writeDuration  metric.Float64Histogram
	searchDuration metric.Float64Histogram
}

// Options tunes service behavior. The zero value means no retries and no
// default TTL.
type Options struct {
	BusyRetries     int
	BusyRetryDelay  time.Duration
	DefaultTTLHours float64
}

// New creates a claim Service.
func New(store *storage.Store, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BusyRetryDelay <= 0 {
		opts.BusyRetryDelay = 50 * time.Millisecond
	}
	meter := telemetry.Meter("hivemind/claims")
	writeDur, _ := meter.Float64Histogram("hivemind.claims.write.duration",
		metric.WithDescription("Time to commit claim mutations (ms)"),
		metric.WithUnit("ms"),
	)
	searchDur, _ := meter.Float64Histogram("hivemind.claims.search.duration",
		metric.WithDescription("Time to execute search queries (ms)"),
		metric.WithUnit("ms"),
	)
	return &Service{
		store:           store,
		logger:          logger,
		busyRetries:     opts.BusyRetries,
		busyRetryDelay:  opts.BusyRetryDelay,
		defaultTTLHours: opts.DefaultTTLHours,
		writeDuration:   writeDur,
		searchDuration:  searchDur,
	}
}

// Store exposes the underlying store for services layered on top of this one.
func (s *Service) Store() *storage.Store { return s.store }

// retry wraps a write in the configured busy-retry policy.
func (s *Service) retry(ctx context.Context, fn func() error) error {
	start := time.Now()
	err := storage.WithRetry(ctx, s.busyRetries, s.busyRetryDelay, fn)
	s.writeDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	return err
}

// CreateClaim validates and stores a claim. A repeated idempotency key
// returns the originally stored claim with status "duplicate" instead of
// writing a second row.
func (s *Service) CreateClaim(ctx context.Context, in model.NewClaimInput) (model.CreateClaimResult, error) {
	if in.TTLHours == nil && s.defaultTTLHours > 0 {
		ttl := s.defaultTTLHours
		in.TTLHours = &ttl
	}
	var res model.CreateClaimResult
	err := s.retry(ctx, func() error {
		var err error
		res, err = s.store.CreateClaim(ctx, in)
		return err
	})
	if err != nil {
		return model.CreateClaimResult{}, err
	}
	if res.OK && res.Status == model.ReasonDuplicate {
		s.logger.Debug("claim create deduplicated", "idempotency_key", in.IdempotencyKey)
	}
	return res, nil
}

// GetClaim fetches one claim by id.
func (s *Service) GetClaim(ctx context.Context, id uuid.UUID) (model.ClaimResult, error) {
	c, err := s.store.GetClaim(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.ClaimResult{OK: false, Reason: model.ReasonNotFound}, nil
	}
	if err != nil {
		return model.ClaimResult{}, err
	}
	return model.ClaimResult{OK: true, Claim: c}, nil
}

// QueryClaims lists claims matching the filter. Total counts every match
// before the limit is applied.
func (s *Service) QueryClaims(ctx context.Context, f model.QueryFilter) (model.QueryResult, error) {
	limit := f.Limit
	f.Limit = 0
	claims, err := s.store.QueryClaims(ctx, f)
	if err != nil {
		return model.QueryResult{}, err
	}
	total := len(claims)
	if limit > 0 && len(claims) > limit {
		claims = claims[:limit]
	}
	return model.QueryResult{OK: true, Total: total, Claims: claims}, nil
}

// SearchClaims ranks claims matching the filter against a free-text query.
// The score blends lexical relevance with the claim's confidence so a
// marginally relevant but highly trusted claim can outrank a better textual
// match nobody believes in.
func (s *Service) SearchClaims(ctx context.Context, query string, f model.QueryFilter) (model.QueryResult, error) {
	start := time.Now()
	limit := f.Limit
	f.Limit = 0
	claims, err := s.store.QueryClaims(ctx, f)
	if err != nil {
		return model.QueryResult{}, err
	}

	ranked := search.Rank(claims, query)
	out := make([]model.Claim, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.Claim)
	}
	total := len(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	s.searchDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	return model.QueryResult{OK: true, Total: total, Claims: out}, nil
}

// UpdateStatus moves a claim through the status state machine.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to model.ClaimStatus, actor, note string) (model.StatusUpdateResult, error) {
	if !model.ValidClaimStatus(to) {
		return model.StatusUpdateResult{OK: false, Reason: model.ReasonInvalidStatus}, nil
	}
	var res model.StatusUpdateResult
	err := s.retry(ctx, func() error {
		var err error
		res, err = s.store.UpdateClaimStatus(ctx, id, to, actor, note)
		return err
	})
	if err != nil {
		return model.StatusUpdateResult{}, err
	}
	return res, nil
}

// Deprecate retires a claim. Deprecated is terminal: no transition leads out
// of it.
func (s *Service) Deprecate(ctx context.Context, id uuid.UUID, actor, note string) (model.StatusUpdateResult, error) {
	return s.UpdateStatus(ctx, id, model.StatusDeprecated, actor, note)
}

// AddEvidence appends an evidence reference to a claim. Evidence is
// append-only; there is no operation that removes entries.
func (s *Service) AddEvidence(ctx context.Context, id uuid.UUID, ev model.Evidence) (model.EvidenceResult, error) {
	var res model.EvidenceResult
	err := s.retry(ctx, func() error {
		var err error
		res, err = s.store.AddEvidence(ctx, id, ev)
		return err
	})
	if err != nil {
		return model.EvidenceResult{}, err
	}
	return res, nil
}

// CreateDecision records a decision over a claim. The chosen claim and every
// alternative must already exist; nothing is written otherwise.
func (s *Service) CreateDecision(ctx context.Context, in model.NewDecisionInput) (model.DecisionResult, error) {
	if in.DecidedBy == "" {
		return model.DecisionResult{OK: false, Reason: model.ReasonMissingAgent}, nil
	}
	if _, err := s.store.GetClaim(ctx, in.ClaimID); errors.Is(err, storage.ErrNotFound) {
		return model.DecisionResult{OK: false, Reason: model.ReasonNotFound}, nil
	} else if err != nil {
		return model.DecisionResult{}, err
	}

	altIDs := make([]uuid.UUID, len(in.Alternatives))
	for i, a := range in.Alternatives {
		altIDs[i] = a.ClaimID
	}
	if ok, err := s.store.ClaimsExist(ctx, altIDs); err != nil {
		return model.DecisionResult{}, err
	} else if !ok {
		return model.DecisionResult{OK: false, Reason: model.ReasonUnknownAlternative}, nil
	}

	var created model.Decision
	err := s.retry(ctx, func() error {
		var err error
		created, err = s.store.CreateDecision(ctx, model.Decision{
			ClaimID:      in.ClaimID,
			DecidedBy:    in.DecidedBy,
			Context:      in.Context,
			Rationale:    in.Rationale,
			Alternatives: in.Alternatives,
			Session:      in.Session,
		})
		return err
	})
	if err != nil {
		return model.DecisionResult{}, err
	}
	return model.DecisionResult{OK: true, Decision: &created}, nil
}

// GetDecision fetches one decision by id.
func (s *Service) GetDecision(ctx context.Context, id uuid.UUID) (model.DecisionResult, error) {
	d, err := s.store.GetDecision(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.DecisionResult{OK: false, Reason: model.ReasonNotFound}, nil
	}
	if err != nil {
		return model.DecisionResult{}, err
	}
	return model.DecisionResult{OK: true, Decision: d}, nil
}

// RecordOutcome sets the real-world outcome on a previously recorded
// decision. Recording again overwrites the earlier outcome.
func (s *Service) RecordOutcome(ctx context.Context, id uuid.UUID, outcome, notes string) (model.DecisionResult, error) {
	var d *model.Decision
	err := s.retry(ctx, func() error {
		var err error
		d, err = s.store.RecordOutcome(ctx, id, outcome, notes)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return model.DecisionResult{OK: false, Reason: model.ReasonNotFound}, nil
	}
	if err != nil {
		return model.DecisionResult{}, err
	}
	return model.DecisionResult{OK: true, Decision: d}, nil
}

// DecisionsForClaim lists every decision that selected the given claim.
func (s *Service) DecisionsForClaim(ctx context.Context, claimID uuid.UUID) ([]model.Decision, error) {
	return s.store.DecisionsForClaim(ctx, claimID)
}

// PurgeExpired deprecates every claim whose TTL has elapsed. Returns the
// number of claims deprecated. Claims already deprecated are never touched.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	expired, err := s.store.ExpiredClaims(ctx)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, c := range expired {
		res, err := s.Deprecate(ctx, c.ID, "system", fmt.Sprintf("ttl of %.1fh elapsed", *c.TTLHours))
		if err != nil {
			return purged, err
		}
		if res.OK {
			purged++
		}
	}
	if purged > 0 {
		s.logger.Info("expired claims purged", "count", purged)
	}
	return purged, nil
}
