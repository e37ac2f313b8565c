package storage_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anamnesos/hivemind-sub005/internal/model"
	"github.com/anamnesos/hivemind-sub005/internal/storage"
	"github.com/anamnesos/hivemind-sub005/internal/testutil"
)

func mustCreate(t *testing.T, store *storage.Store, in model.NewClaimInput) *model.Claim {
	t.Helper()
	res, err := store.CreateClaim(context.Background(), in)
	require.NoError(t, err)
	require.True(t, res.OK, "reason: %s", res.Reason)
	return res.Claim
}

func TestCreateAndGetClaim(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	conf := 0.8
	claim := mustCreate(t, store, model.NewClaimInput{
		Statement:  "resize handler lives in pane.go",
		ClaimType:  model.ClaimFact,
		Owner:      "analyst",
		Confidence: &conf,
		Session:    "s1",
		Scopes:     []string{"file:pane.go", "topic:resize"},
	})

	assert.Equal(t, model.StatusProposed, claim.Status)
	assert.Equal(t, 0.8, claim.Confidence)

	got, err := store.GetClaim(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, claim.ID, got.ID)
	assert.Equal(t, "resize handler lives in pane.go", got.Statement)
	assert.Equal(t, []string{"file:pane.go", "topic:resize"}, got.Scopes)
	assert.Equal(t, claim.CreatedAt, got.CreatedAt)
}

func TestCreateClaimDefaults(t *testing.T) {
	store, _ := testutil.NewStore(t)

	claim := mustCreate(t, store, model.NewClaimInput{
		Statement: "defaults apply",
		ClaimType: model.ClaimHypothesis,
		Owner:     "analyst",
	})
	assert.Equal(t, 1.0, claim.Confidence)
	assert.Equal(t, model.StatusProposed, claim.Status)
	assert.Nil(t, claim.TTLHours)
}

func TestCreateClaimValidation(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	badConf := 1.5
	cases := []struct {
		name   string
		in     model.NewClaimInput
		reason string
	}{
		{"missing statement", model.NewClaimInput{ClaimType: model.ClaimFact, Owner: "a"}, model.ReasonMissingStatement},
		{"missing owner", model.NewClaimInput{Statement: "x", ClaimType: model.ClaimFact}, model.ReasonMissingOwner},
		{"bad type", model.NewClaimInput{Statement: "x", ClaimType: "opinion", Owner: "a"}, model.ReasonInvalidClaimType},
		{"bad confidence", model.NewClaimInput{Statement: "x", ClaimType: model.ClaimFact, Owner: "a", Confidence: &badConf}, model.ReasonInvalidConfidence},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := store.CreateClaim(ctx, tc.in)
			require.NoError(t, err)
			assert.False(t, res.OK)
			assert.Equal(t, tc.reason, res.Reason)
		})
	}
}

func TestIdempotentCreate(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	in := model.NewClaimInput{
		IdempotencyKey: "retry-key-1",
		Statement:      "first write wins",
		ClaimType:      model.ClaimFact,
		Owner:          "analyst",
	}
	first, err := store.CreateClaim(ctx, in)
	require.NoError(t, err)
	require.True(t, first.OK)
	assert.Equal(t, "created", first.Status)

	// Retried create with a different statement still converges on row one.
	in.Statement = "second write changed its mind"
	second, err := store.CreateClaim(ctx, in)
	require.NoError(t, err)
	require.True(t, second.OK)
	assert.Equal(t, model.ReasonDuplicate, second.Status)
	assert.Equal(t, first.Claim.ID, second.Claim.ID)
	assert.Equal(t, "first write wins", second.Claim.Statement)

	all, err := store.QueryClaims(ctx, model.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDistinctIdempotencyKeys(t *testing.T) {
	store, _ := testutil.NewStore(t)

	a := mustCreate(t, store, model.NewClaimInput{
		IdempotencyKey: "key-a", Statement: "a", ClaimType: model.ClaimFact, Owner: "x",
	})
	b := mustCreate(t, store, model.NewClaimInput{
		IdempotencyKey: "key-b", Statement: "b", ClaimType: model.ClaimFact, Owner: "x",
	})
	assert.NotEqual(t, a.ID, b.ID)
}

func TestStatusTransitionChain(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	claim := mustCreate(t, store, model.NewClaimInput{
		Statement: "walk the lifecycle", ClaimType: model.ClaimHypothesis, Owner: "analyst",
	})

	chain := []model.ClaimStatus{
		model.StatusConfirmed,
		model.StatusContested,
		model.StatusPendingProof,
		model.StatusConfirmed,
		model.StatusDeprecated,
	}
	for _, next := range chain {
		res, err := store.UpdateClaimStatus(ctx, claim.ID, next, "reviewer", "step")
		require.NoError(t, err)
		require.True(t, res.OK, "transition to %s: %s", next, res.Reason)
		assert.Equal(t, next, res.Claim.Status)
	}

	got, err := store.GetClaim(ctx, claim.ID)
	require.NoError(t, err)
	assert.Len(t, got.Audit, len(chain))
	assert.Equal(t, model.StatusProposed, got.Audit[0].FromStatus)
	assert.Equal(t, model.StatusDeprecated, got.Audit[len(chain)-1].ToStatus)
	assert.Equal(t, "reviewer", got.Audit[0].Actor)
}

func TestIllegalTransitions(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	// setup drives a fresh claim to the given status via legal edges.
	setup := func(t *testing.T, status model.ClaimStatus) uuid.UUID {
		claim := mustCreate(t, store, model.NewClaimInput{
			Statement: "illegal transition target " + string(status),
			ClaimType: model.ClaimFact, Owner: "analyst",
		})
		var path []model.ClaimStatus
		switch status {
		case model.StatusProposed:
		case model.StatusConfirmed:
			path = []model.ClaimStatus{model.StatusConfirmed}
		case model.StatusContested:
			path = []model.ClaimStatus{model.StatusContested}
		case model.StatusPendingProof:
			path = []model.ClaimStatus{model.StatusConfirmed, model.StatusPendingProof}
		case model.StatusDeprecated:
			path = []model.ClaimStatus{model.StatusDeprecated}
		}
		for _, s := range path {
			res, err := store.UpdateClaimStatus(ctx, claim.ID, s, "setup", "")
			require.NoError(t, err)
			require.True(t, res.OK)
		}
		return claim.ID
	}

	cases := []struct {
		from, to model.ClaimStatus
	}{
		{model.StatusProposed, model.StatusPendingProof},
		{model.StatusProposed, model.StatusProposed},
		{model.StatusConfirmed, model.StatusProposed},
		{model.StatusConfirmed, model.StatusConfirmed},
		{model.StatusContested, model.StatusProposed},
		{model.StatusPendingProof, model.StatusProposed},
		{model.StatusDeprecated, model.StatusProposed},
		{model.StatusDeprecated, model.StatusConfirmed},
		{model.StatusDeprecated, model.StatusContested},
		{model.StatusDeprecated, model.StatusPendingProof},
		{model.StatusDeprecated, model.StatusDeprecated},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_to_%s", tc.from, tc.to), func(t *testing.T) {
			id := setup(t, tc.from)
			res, err := store.UpdateClaimStatus(ctx, id, tc.to, "actor", "")
			require.NoError(t, err)
			assert.False(t, res.OK)
			assert.Equal(t, model.ReasonInvalidTransition, res.Reason)

			// Nothing mutated.
			got, err := store.GetClaim(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, tc.from, got.Status)
		})
	}
}

func TestUpdateStatusUnknownClaim(t *testing.T) {
	store, _ := testutil.NewStore(t)

	res, err := store.UpdateClaimStatus(context.Background(), uuid.New(), model.StatusConfirmed, "a", "")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, model.ReasonNotFound, res.Reason)
}

func TestEvidenceAppendOnly(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	claim := mustCreate(t, store, model.NewClaimInput{
		Statement: "evidence accumulates", ClaimType: model.ClaimFact, Owner: "analyst",
	})

	first, err := store.AddEvidence(ctx, claim.ID, model.Evidence{
		Ref: "test/resize_test.go", Relation: model.EvidenceSupports, AddedBy: "tester", Weight: 0.9,
	})
	require.NoError(t, err)
	require.True(t, first.OK)
	assert.Equal(t, "added", first.Status)

	second, err := store.AddEvidence(ctx, claim.ID, model.Evidence{
		Ref: "logs/crash-42.txt", Relation: model.EvidenceRefutes, AddedBy: "debugger", Weight: 0.5,
	})
	require.NoError(t, err)
	require.True(t, second.OK)

	got, err := store.GetClaim(ctx, claim.ID)
	require.NoError(t, err)
	require.Len(t, got.Evidence, 2)
	assert.Equal(t, "test/resize_test.go", got.Evidence[0].Ref)
	assert.Equal(t, "logs/crash-42.txt", got.Evidence[1].Ref)
	assert.Equal(t, model.EvidenceRefutes, got.Evidence[1].Relation)
	assert.False(t, got.Evidence[0].AddedAt.IsZero())
}

func TestQueryFilters(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	mustCreate(t, store, model.NewClaimInput{
		Statement: "fact one", ClaimType: model.ClaimFact, Owner: "alice", Session: "s1",
		Scopes: []string{"ui/pane1/render.ts"},
	})
	mustCreate(t, store, model.NewClaimInput{
		Statement: "hypothesis one", ClaimType: model.ClaimHypothesis, Owner: "bob", Session: "s1",
	})
	mustCreate(t, store, model.NewClaimInput{
		Statement: "fact two", ClaimType: model.ClaimFact, Owner: "alice", Session: "s2",
	})

	byType, err := store.QueryClaims(ctx, model.QueryFilter{ClaimType: model.ClaimFact})
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	byOwner, err := store.QueryClaims(ctx, model.QueryFilter{Owner: "bob"})
	require.NoError(t, err)
	require.Len(t, byOwner, 1)
	assert.Equal(t, "hypothesis one", byOwner[0].Statement)

	bySession, err := store.QueryClaims(ctx, model.QueryFilter{Session: "s2"})
	require.NoError(t, err)
	assert.Len(t, bySession, 1)

	// Scope matches by substring so "pane1" finds "ui/pane1/render.ts".
	byScope, err := store.QueryClaims(ctx, model.QueryFilter{Scope: "pane1"})
	require.NoError(t, err)
	require.Len(t, byScope, 1)
	assert.Equal(t, "fact one", byScope[0].Statement)

	none, err := store.QueryClaims(ctx, model.QueryFilter{Scope: "pane2"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQueryOrder(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	a := mustCreate(t, store, model.NewClaimInput{Statement: "older", ClaimType: model.ClaimFact, Owner: "x"})
	b := mustCreate(t, store, model.NewClaimInput{Statement: "newer", ClaimType: model.ClaimFact, Owner: "x"})

	desc, err := store.QueryClaims(ctx, model.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, b.ID, desc[0].ID)

	asc, err := store.QueryClaims(ctx, model.QueryFilter{Order: "asc"})
	require.NoError(t, err)
	require.Len(t, asc, 2)
	assert.Equal(t, a.ID, asc[0].ID)
}

func TestSessionsBackWindow(t *testing.T) {
	store, clock := testutil.NewStore(t)
	ctx := context.Background()

	for i, session := range []string{"s_100", "s_101", "s_102", "s_103"} {
		mustCreate(t, store, model.NewClaimInput{
			Statement: fmt.Sprintf("claim from %s (%d)", session, i),
			ClaimType: model.ClaimFact, Owner: "analyst", Session: session,
		})
		clock.Advance(time.Hour)
	}

	recent, err := store.QueryClaims(ctx, model.QueryFilter{SessionsBack: 2})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	sessions := []string{recent[0].Session, recent[1].Session}
	assert.ElementsMatch(t, []string{"s_102", "s_103"}, sessions)

	all, err := store.QueryClaims(ctx, model.QueryFilter{SessionsBack: 10})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestExpiredClaims(t *testing.T) {
	store, clock := testutil.NewStore(t)
	ctx := context.Background()

	ttl := 1.0
	mortal := mustCreate(t, store, model.NewClaimInput{
		Statement: "short lived", ClaimType: model.ClaimFact, Owner: "x", TTLHours: &ttl,
	})
	mustCreate(t, store, model.NewClaimInput{
		Statement: "immortal", ClaimType: model.ClaimFact, Owner: "x",
	})

	expired, err := store.ExpiredClaims(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)

	clock.Advance(2 * time.Hour)
	expired, err = store.ExpiredClaims(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, mortal.ID, expired[0].ID)

	// Once deprecated it drops out of the expiry scan.
	res, err := store.UpdateClaimStatus(ctx, mortal.ID, model.StatusDeprecated, "system", "ttl")
	require.NoError(t, err)
	require.True(t, res.OK)
	expired, err = store.ExpiredClaims(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestDecisionLifecycle(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	chosen := mustCreate(t, store, model.NewClaimInput{
		Statement: "use sqlite", ClaimType: model.ClaimDecision, Owner: "architect",
	})
	rejected := mustCreate(t, store, model.NewClaimInput{
		Statement: "use postgres", ClaimType: model.ClaimDecision, Owner: "architect",
	})

	d, err := store.CreateDecision(ctx, model.Decision{
		ClaimID:   chosen.ID,
		DecidedBy: "architect",
		Context:   "choosing the workspace store",
		Rationale: "single file, zero ops",
		Alternatives: []model.Alternative{
			{ClaimID: rejected.ID, RejectionReason: "needs a server"},
		},
		Session: "s1",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, d.ID)
	assert.Empty(t, d.Outcome)

	got, err := store.GetDecision(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, got.Alternatives, 1)
	assert.Equal(t, rejected.ID, got.Alternatives[0].ClaimID)

	// Outcome recording overwrites on repeat.
	upd, err := store.RecordOutcome(ctx, d.ID, "success", "shipped without incident")
	require.NoError(t, err)
	assert.Equal(t, "success", upd.Outcome)
	upd, err = store.RecordOutcome(ctx, d.ID, "failure", "regressed under load")
	require.NoError(t, err)
	assert.Equal(t, "failure", upd.Outcome)
	assert.Equal(t, "regressed under load", upd.OutcomeNotes)

	list, err := store.DecisionsForClaim(ctx, chosen.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRecordOutcomeUnknownDecision(t *testing.T) {
	store, _ := testutil.NewStore(t)

	_, err := store.RecordOutcome(context.Background(), uuid.New(), "success", "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVoteUpsert(t *testing.T) {
	store, _ := testutil.NewStore(t)
	ctx := context.Background()

	claim := mustCreate(t, store, model.NewClaimInput{
		Statement: "votes replace", ClaimType: model.ClaimFact, Owner: "x",
	})

	cast := func(agent string, pos model.VotePosition) {
		tx, err := store.Tx(ctx)
		require.NoError(t, err)
		require.NoError(t, store.UpsertVoteTx(ctx, tx, model.Vote{
			ClaimID: claim.ID, Agent: agent, Position: pos, VotedAt: store.Now(),
		}))
		require.NoError(t, tx.Commit())
	}

	cast("alice", model.VoteAgree)
	cast("bob", model.VoteDisagree)
	cast("alice", model.VoteDisagree) // changes her mind

	votes, err := store.VotesForClaim(ctx, claim.ID)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	for _, v := range votes {
		assert.Equal(t, model.VoteDisagree, v.Position)
	}
}

func TestMigrationReentrancy(t *testing.T) {
	// Opening the same file twice runs the full migration sequence twice; the
	// second pass must detect everything as applied and change nothing.
	clock := testutil.NewClock()
	path := t.TempDir() + "/reopen.db"

	store, err := storage.Open(context.Background(), path, testutil.TestLogger(), storage.WithClock(clock.Now))
	require.NoError(t, err)

	claim := mustCreate(t, store, model.NewClaimInput{
		Statement: "survives reopen", ClaimType: model.ClaimFact, Owner: "x",
	})
	// pending_proof only exists after the CHECK constraint was widened.
	res, err := store.UpdateClaimStatus(context.Background(), claim.ID, model.StatusConfirmed, "a", "")
	require.NoError(t, err)
	require.True(t, res.OK)
	res, err = store.UpdateClaimStatus(context.Background(), claim.ID, model.StatusPendingProof, "a", "")
	require.NoError(t, err)
	require.True(t, res.OK)
	require.NoError(t, store.Close())

	reopened, err := storage.Open(context.Background(), path, testutil.TestLogger(), storage.WithClock(clock.Now))
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.GetClaim(context.Background(), claim.ID)
	require.NoError(t, err)
	assert.Equal(t, "survives reopen", got.Statement)
	assert.Equal(t, model.StatusPendingProof, got.Status)
}
