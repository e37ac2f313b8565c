package hivemind_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hivemind "github.com/anamnesos/hivemind-sub005"
	"github.com/anamnesos/hivemind-sub005/internal/testutil"
)

func openEngine(t *testing.T) *hivemind.Engine {
	t.Helper()
	eng, err := hivemind.Open(
		hivemind.WithDBPath(filepath.Join(t.TempDir(), "hivemind.db")),
		hivemind.WithLogger(testutil.TestLogger()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close(context.Background()) })
	return eng
}

// Exercises one claim through the whole surface: creation, search, voting to
// confirmation, a recorded decision, a belief snapshot with a detected
// contradiction, and explicit resolution.
func TestEngineEndToEnd(t *testing.T) {
	eng := openEngine(t)
	ctx := context.Background()
	crew := []string{"alice", "bob"}

	created, err := eng.CreateClaim(ctx, hivemind.NewClaimInput{
		IdempotencyKey: "k1",
		Statement:      "Do not inject CSS into the preview pane",
		ClaimType:      hivemind.ClaimNegative,
		Owner:          "alice",
		Session:        "s_100",
		Scopes:         []string{"ui/preview"},
	})
	require.NoError(t, err)
	require.True(t, created.OK)
	claimID := created.Claim.ID

	// Replay of the same key returns the original claim.
	dup, err := eng.CreateClaim(ctx, hivemind.NewClaimInput{
		IdempotencyKey: "k1",
		Statement:      "something else entirely",
		ClaimType:      hivemind.ClaimFact,
		Owner:          "bob",
	})
	require.NoError(t, err)
	require.True(t, dup.OK)
	assert.Equal(t, claimID, dup.Claim.ID)
	assert.Equal(t, created.Claim.Statement, dup.Claim.Statement)

	found, err := eng.SearchClaims(ctx, "preview css", hivemind.QueryFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, found.Total)
	assert.Equal(t, claimID, found.Claims[0].ID)

	for _, agent := range crew {
		res, err := eng.RecordVote(ctx, claimID, agent, hivemind.VoteAgree, "", crew)
		require.NoError(t, err)
		require.True(t, res.OK)
	}
	got, err := eng.GetClaim(ctx, claimID)
	require.NoError(t, err)
	assert.Equal(t, hivemind.StatusConfirmed, got.Claim.Status)

	tally, err := eng.GetConsensus(ctx, claimID)
	require.NoError(t, err)
	require.True(t, tally.OK)
	assert.True(t, tally.Summary.Unanimous)
	assert.Equal(t, 2, tally.Summary.Agree)

	decision, err := eng.CreateDecision(ctx, hivemind.NewDecisionInput{
		ClaimID:   claimID,
		DecidedBy: "alice",
		Rationale: "style isolation broke twice already",
		Session:   "s_100",
	})
	require.NoError(t, err)
	require.True(t, decision.OK)

	out, err := eng.RecordOutcome(ctx, decision.Decision.ID, "success", "")
	require.NoError(t, err)
	assert.Equal(t, "success", out.Decision.Outcome)

	// A conflicting positive claim in the same scope trips the detector.
	_, err = eng.CreateClaim(ctx, hivemind.NewClaimInput{
		Statement: "Inject CSS into the preview pane at mount",
		ClaimType: hivemind.ClaimFact,
		Owner:     "alice",
		Session:   "s_100",
		Scopes:    []string{"ui/preview"},
	})
	require.NoError(t, err)

	snap, err := eng.SnapshotBeliefs(ctx, "alice", "s_100")
	require.NoError(t, err)
	require.True(t, snap.OK)
	require.Equal(t, 1, snap.Contradictions.Count)

	resolved, err := eng.ResolveContradiction(ctx, snap.Contradictions.Pairs[0].ID, "alice")
	require.NoError(t, err)
	require.True(t, resolved.OK)

	open, err := eng.Contradictions(ctx, hivemind.ContradictionFilter{Unresolved: true})
	require.NoError(t, err)
	assert.Empty(t, open.Contradictions)
}

func TestEngineReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hivemind.db")
	ctx := context.Background()

	eng, err := hivemind.Open(
		hivemind.WithDBPath(path),
		hivemind.WithLogger(testutil.TestLogger()),
	)
	require.NoError(t, err)
	created, err := eng.CreateClaim(ctx, hivemind.NewClaimInput{
		Statement: "the workspace store survives restarts",
		ClaimType: hivemind.ClaimFact,
		Owner:     "alice",
	})
	require.NoError(t, err)
	require.True(t, created.OK)
	require.NoError(t, eng.Close(ctx))

	eng2, err := hivemind.Open(
		hivemind.WithDBPath(path),
		hivemind.WithLogger(testutil.TestLogger()),
	)
	require.NoError(t, err)
	defer func() { _ = eng2.Close(ctx) }()

	got, err := eng2.GetClaim(ctx, created.Claim.ID)
	require.NoError(t, err)
	require.True(t, got.OK)
	assert.Equal(t, created.Claim.Statement, got.Claim.Statement)
}

func TestEngineDefaultTTLOption(t *testing.T) {
	eng, err := hivemind.Open(
		hivemind.WithDBPath(filepath.Join(t.TempDir(), "hivemind.db")),
		hivemind.WithLogger(testutil.TestLogger()),
		hivemind.WithDefaultTTL(12),
	)
	require.NoError(t, err)
	defer func() { _ = eng.Close(context.Background()) }()

	created, err := eng.CreateClaim(context.Background(), hivemind.NewClaimInput{
		Statement: "the deploy window is open",
		ClaimType: hivemind.ClaimFact,
		Owner:     "alice",
	})
	require.NoError(t, err)
	require.True(t, created.OK)
	require.NotNil(t, created.Claim.TTLHours)
	assert.Equal(t, 12.0, *created.Claim.TTLHours)
}
