// Package hivemind is the public API for embedding the team memory claims
// engine.
//
// The engine maintains a shared store of claims — facts, decisions,
// hypotheses, and negative ("do not X") statements — that a team of AI
// agents publishes, queries, votes on, and audits across sessions:
//
//	eng, err := hivemind.Open(
//	    hivemind.WithDBPath("team.db"),
//	    hivemind.WithLogger(logger),
//	)
//	if err != nil { ... }
//	defer eng.Close(ctx)
//	res, err := eng.CreateClaim(ctx, hivemind.NewClaimInput{...})
//
// The import graph enforces a strict no-cycle rule: hivemind (root) imports
// internal/*, but internal/* never imports hivemind (root). The record and
// envelope types are re-exported here so embedders never need an internal
// import path.
package hivemind

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/anamnesos/hivemind-sub005/internal/beliefs"
	"github.com/anamnesos/hivemind-sub005/internal/config"
	"github.com/anamnesos/hivemind-sub005/internal/consensus"
	"github.com/anamnesos/hivemind-sub005/internal/mcp"
	"github.com/anamnesos/hivemind-sub005/internal/model"
	"github.com/anamnesos/hivemind-sub005/internal/service/claims"
	"github.com/anamnesos/hivemind-sub005/internal/storage"
	"github.com/anamnesos/hivemind-sub005/internal/telemetry"
)

// Engine is the claims engine lifecycle. Construct with Open(), release with
// Close(). Engine has no public fields — use Open() options to configure it.
type Engine struct {
	cfg          config.Config
	store        *storage.Store
	svc          *claims.Service
	consensus    *consensus.Engine
	beliefs      *beliefs.Snapshotter
	mcpSrv       *mcp.Server
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string
}

// Open initialises the engine. It opens (creating if absent) the SQLite
// store, runs schema migrations, and wires all subsystems. It does NOT start
// any goroutines — call Run() to serve MCP, or use the Engine directly as a
// library.
func Open(opts ...Option) (*Engine, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration (env vars), then apply option overrides.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.otelEndpoint != "" {
		cfg.OTELEndpoint = o.otelEndpoint
	}
	if o.defaultTTLHours > 0 {
		cfg.DefaultTTLHours = o.defaultTTLHours
	}
	if o.purgeInterval > 0 {
		cfg.PurgeInterval = o.purgeInterval
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("hivemind starting", "version", version, "db", cfg.DBPath)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	// Open the store and run migrations.
	var storeOpts []storage.Option
	if o.clock != nil {
		storeOpts = append(storeOpts, storage.WithClock(o.clock))
	}
	store, err := storage.Open(context.Background(), cfg.DBPath, logger, storeOpts...)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("storage: %w", err)
	}

	svc := claims.New(store, logger, claims.Options{
		BusyRetries:     cfg.BusyRetries,
		BusyRetryDelay:  cfg.BusyRetryDelay,
		DefaultTTLHours: cfg.DefaultTTLHours,
	})
	cons := consensus.New(store, logger)
	snap := beliefs.NewSnapshotter(store, logger)
	mcpSrv := mcp.New(svc, cons, snap, logger, version)

	return &Engine{
		cfg:          cfg,
		store:        store,
		svc:          svc,
		consensus:    cons,
		beliefs:      snap,
		mcpSrv:       mcpSrv,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// Run serves MCP over stdio and, when a purge interval is configured, sweeps
// expired claims in the background. It blocks until the transport closes or
// ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if e.cfg.PurgeInterval > 0 {
		g.Go(func() error {
			e.purgeLoop(ctx)
			return nil
		})
	}
	g.Go(func() error {
		return e.mcpSrv.ServeStdio()
	})

	return g.Wait()
}

// Close releases the store and flushes telemetry. Safe to call after Run
// returns.
func (e *Engine) Close(ctx context.Context) error {
	e.logger.Info("hivemind shutting down")
	_ = e.otelShutdown(ctx)
	if err := e.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	e.logger.Info("hivemind stopped")
	return nil
}

func (e *Engine) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if _, err := e.svc.PurgeExpired(opCtx); err != nil {
				e.logger.Warn("expired claim purge failed", "error", err)
			}
			cancel()
		}
	}
}

// ── Claim operations ──────────────────────────────────────────────────────────

// CreateClaim validates and stores a claim. A repeated idempotency key
// returns the originally stored claim with status "duplicate".
func (e *Engine) CreateClaim(ctx context.Context, in NewClaimInput) (CreateClaimResult, error) {
	return e.svc.CreateClaim(ctx, in)
}

// GetClaim fetches one claim by id.
func (e *Engine) GetClaim(ctx context.Context, id uuid.UUID) (ClaimResult, error) {
	return e.svc.GetClaim(ctx, id)
}

// QueryClaims lists claims matching the filter. Total counts every match
// before the limit is applied.
func (e *Engine) QueryClaims(ctx context.Context, f QueryFilter) (QueryResult, error) {
	return e.svc.QueryClaims(ctx, f)
}

// SearchClaims ranks claims matching the filter against a free-text query,
// blending lexical relevance with claim confidence.
func (e *Engine) SearchClaims(ctx context.Context, query string, f QueryFilter) (QueryResult, error) {
	return e.svc.SearchClaims(ctx, query, f)
}

// UpdateClaimStatus moves a claim through the status state machine. Illegal
// transitions are rejected without mutation.
func (e *Engine) UpdateClaimStatus(ctx context.Context, id uuid.UUID, to ClaimStatus, actor, note string) (StatusUpdateResult, error) {
	return e.svc.UpdateStatus(ctx, id, to, actor, note)
}

// DeprecateClaim retires a claim. Deprecation is terminal.
func (e *Engine) DeprecateClaim(ctx context.Context, id uuid.UUID, actor, note string) (StatusUpdateResult, error) {
	return e.svc.Deprecate(ctx, id, actor, note)
}

// AddEvidence appends an evidence reference to a claim's append-only
// evidence list.
func (e *Engine) AddEvidence(ctx context.Context, id uuid.UUID, ev Evidence) (EvidenceResult, error) {
	return e.svc.AddEvidence(ctx, id, ev)
}

// PurgeExpiredClaims deprecates every claim whose TTL has elapsed and
// returns the number deprecated.
func (e *Engine) PurgeExpiredClaims(ctx context.Context) (int, error) {
	return e.svc.PurgeExpired(ctx)
}

// ── Decision operations ───────────────────────────────────────────────────────

// CreateDecision records a decision that selected one claim over
// alternatives. The chosen claim and every alternative must already exist.
func (e *Engine) CreateDecision(ctx context.Context, in NewDecisionInput) (DecisionResult, error) {
	return e.svc.CreateDecision(ctx, in)
}

// GetDecision fetches one decision by id.
func (e *Engine) GetDecision(ctx context.Context, id uuid.UUID) (DecisionResult, error) {
	return e.svc.GetDecision(ctx, id)
}

// RecordOutcome sets the real-world outcome on a previously recorded
// decision. Recording again overwrites the earlier outcome.
func (e *Engine) RecordOutcome(ctx context.Context, id uuid.UUID, outcome, notes string) (DecisionResult, error) {
	return e.svc.RecordOutcome(ctx, id, outcome, notes)
}

// DecisionsForClaim lists every decision that selected the given claim.
func (e *Engine) DecisionsForClaim(ctx context.Context, claimID uuid.UUID) ([]Decision, error) {
	return e.svc.DecisionsForClaim(ctx, claimID)
}

// ── Consensus operations ──────────────────────────────────────────────────────

// RecordVote casts an agent's vote on a claim and applies any status change
// the new tally implies. Voting again replaces the agent's earlier vote.
func (e *Engine) RecordVote(ctx context.Context, claimID uuid.UUID, agent string, position VotePosition, reason string, activeAgents []string) (ConsensusResult, error) {
	return e.consensus.Record(ctx, consensus.RecordRequest{
		ClaimID:      claimID,
		Agent:        agent,
		Position:     position,
		Reason:       reason,
		ActiveAgents: activeAgents,
	})
}

// GetConsensus tallies the latest vote of every agent that has ever voted on
// the claim.
func (e *Engine) GetConsensus(ctx context.Context, claimID uuid.UUID) (ConsensusSummaryResult, error) {
	return e.consensus.Summary(ctx, claimID)
}

// ── Belief operations ─────────────────────────────────────────────────────────

// SnapshotBeliefs captures the agent's current belief set and scans it for
// contradictions, persisting both atomically.
func (e *Engine) SnapshotBeliefs(ctx context.Context, agent, session string) (SnapshotResult, error) {
	return e.beliefs.Create(ctx, agent, session)
}

// GetBeliefs fetches the most recent stored snapshot for an agent and
// session. An agent with no snapshots gets an OK result with a nil snapshot.
func (e *Engine) GetBeliefs(ctx context.Context, agent, session string) (SnapshotResult, error) {
	return e.beliefs.Latest(ctx, agent, session)
}

// Contradictions lists detected contradictions, newest first.
func (e *Engine) Contradictions(ctx context.Context, f ContradictionFilter) (ContradictionsResult, error) {
	return e.beliefs.Contradictions(ctx, f)
}

// ResolveContradiction marks a contradiction as resolved. Resolving an
// already-resolved contradiction is a no-op that keeps the original stamp.
func (e *Engine) ResolveContradiction(ctx context.Context, id uuid.UUID, resolvedBy string) (ContradictionsResult, error) {
	return e.beliefs.Resolve(ctx, id, resolvedBy)
}

// ── Re-exported types ─────────────────────────────────────────────────────────
//
// Aliases rather than mirror structs: the engine's envelopes are already
// plain data with JSON tags, and an alias keeps the embedding API and the
// MCP surface structurally identical.

type (
	Claim            = model.Claim
	ClaimType        = model.ClaimType
	ClaimStatus      = model.ClaimStatus
	Evidence         = model.Evidence
	EvidenceRelation = model.EvidenceRelation
	AuditNote        = model.AuditNote
	NewClaimInput    = model.NewClaimInput
	QueryFilter      = model.QueryFilter
	Decision         = model.Decision
	Alternative      = model.Alternative
	NewDecisionInput = model.NewDecisionInput
	Vote             = model.Vote
	VotePosition     = model.VotePosition
	BeliefSnapshot   = model.BeliefSnapshot
	Contradiction    = model.Contradiction

	CreateClaimResult      = model.CreateClaimResult
	ClaimResult            = model.ClaimResult
	QueryResult            = model.QueryResult
	StatusUpdateResult     = model.StatusUpdateResult
	EvidenceResult         = model.EvidenceResult
	DecisionResult         = model.DecisionResult
	ConsensusResult        = model.ConsensusResult
	ConsensusSummary       = model.ConsensusSummary
	ConsensusSummaryResult = model.ConsensusSummaryResult
	SnapshotResult         = model.SnapshotResult
	ContradictionsResult   = model.ContradictionsResult

	ContradictionFilter = storage.ContradictionFilter
)

// Claim type and status values, re-exported for embedders.
const (
	ClaimFact       = model.ClaimFact
	ClaimDecision   = model.ClaimDecision
	ClaimHypothesis = model.ClaimHypothesis
	ClaimNegative   = model.ClaimNegative

	StatusProposed     = model.StatusProposed
	StatusConfirmed    = model.StatusConfirmed
	StatusContested    = model.StatusContested
	StatusPendingProof = model.StatusPendingProof
	StatusDeprecated   = model.StatusDeprecated

	VoteAgree    = model.VoteAgree
	VoteDisagree = model.VoteDisagree
)
