package claims_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anamnesos/hivemind-sub005/internal/model"
	"github.com/anamnesos/hivemind-sub005/internal/service/claims"
	"github.com/anamnesos/hivemind-sub005/internal/testutil"
)

func newService(t *testing.T, opts claims.Options) (*claims.Service, *testutil.Clock) {
	t.Helper()
	store, clock := testutil.NewStore(t)
	return claims.New(store, testutil.TestLogger(), opts), clock
}

func create(t *testing.T, svc *claims.Service, in model.NewClaimInput) model.Claim {
	t.Helper()
	res, err := svc.CreateClaim(context.Background(), in)
	require.NoError(t, err)
	require.True(t, res.OK, "reason: %s", res.Reason)
	return *res.Claim
}

func TestCreateClaimAppliesDefaultTTL(t *testing.T) {
	svc, _ := newService(t, claims.Options{DefaultTTLHours: 24})

	c := create(t, svc, model.NewClaimInput{
		Statement: "the build is green", ClaimType: model.ClaimFact, Owner: "alice",
	})
	require.NotNil(t, c.TTLHours)
	assert.Equal(t, 24.0, *c.TTLHours)

	// An explicit TTL wins over the default.
	ttl := 2.0
	c = create(t, svc, model.NewClaimInput{
		Statement: "the deploy is running", ClaimType: model.ClaimFact, Owner: "alice",
		TTLHours: &ttl,
	})
	require.NotNil(t, c.TTLHours)
	assert.Equal(t, 2.0, *c.TTLHours)
}

func TestCreateClaimNoDefaultTTL(t *testing.T) {
	svc, _ := newService(t, claims.Options{})

	c := create(t, svc, model.NewClaimInput{
		Statement: "the cache is write through", ClaimType: model.ClaimFact, Owner: "alice",
	})
	assert.Nil(t, c.TTLHours)
}

func TestGetClaimNotFound(t *testing.T) {
	svc, _ := newService(t, claims.Options{})

	res, err := svc.GetClaim(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, model.ReasonNotFound, res.Reason)
}

func TestQueryTotalCountsBeforeLimit(t *testing.T) {
	svc, _ := newService(t, claims.Options{})
	for i := 0; i < 5; i++ {
		create(t, svc, model.NewClaimInput{
			Statement: fmt.Sprintf("observation %d about the preview pane", i),
			ClaimType: model.ClaimFact, Owner: "alice",
		})
	}

	res, err := svc.QueryClaims(context.Background(), model.QueryFilter{Limit: 2})
	require.NoError(t, err)
	require.True(t, res.OK)
	assert.Equal(t, 5, res.Total)
	assert.Len(t, res.Claims, 2)
}

func TestSearchRanksAndLimits(t *testing.T) {
	svc, _ := newService(t, claims.Options{})
	create(t, svc, model.NewClaimInput{
		Statement: "the preview pane renders markdown", ClaimType: model.ClaimFact, Owner: "alice",
	})
	create(t, svc, model.NewClaimInput{
		Statement: "the preview pane debounces input", ClaimType: model.ClaimFact, Owner: "alice",
	})
	create(t, svc, model.NewClaimInput{
		Statement: "uploads retry with backoff", ClaimType: model.ClaimFact, Owner: "alice",
	})

	res, err := svc.SearchClaims(context.Background(), "preview pane", model.QueryFilter{Limit: 1})
	require.NoError(t, err)
	require.True(t, res.OK)
	assert.Equal(t, 2, res.Total, "total counts every match before the limit")
	require.Len(t, res.Claims, 1)
	assert.Contains(t, res.Claims[0].Statement, "preview pane")
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc, _ := newService(t, claims.Options{})
	c := create(t, svc, model.NewClaimInput{
		Statement: "the build is green", ClaimType: model.ClaimFact, Owner: "alice",
	})

	res, err := svc.UpdateStatus(context.Background(), c.ID, "retracted", "alice", "")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, model.ReasonInvalidStatus, res.Reason)
}

func TestCreateDecisionValidation(t *testing.T) {
	svc, _ := newService(t, claims.Options{})
	ctx := context.Background()
	chosen := create(t, svc, model.NewClaimInput{
		Statement: "use sqlite for the workspace store", ClaimType: model.ClaimDecision, Owner: "alice",
	})

	res, err := svc.CreateDecision(ctx, model.NewDecisionInput{ClaimID: chosen.ID})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, model.ReasonMissingAgent, res.Reason)

	res, err = svc.CreateDecision(ctx, model.NewDecisionInput{ClaimID: uuid.New(), DecidedBy: "alice"})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, model.ReasonNotFound, res.Reason)

	res, err = svc.CreateDecision(ctx, model.NewDecisionInput{
		ClaimID:      chosen.ID,
		DecidedBy:    "alice",
		Alternatives: []model.Alternative{{ClaimID: uuid.New(), RejectionReason: "never stored"}},
	})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, model.ReasonUnknownAlternative, res.Reason)
}

func TestDecisionLifecycle(t *testing.T) {
	svc, _ := newService(t, claims.Options{})
	ctx := context.Background()
	chosen := create(t, svc, model.NewClaimInput{
		Statement: "use sqlite for the workspace store", ClaimType: model.ClaimDecision, Owner: "alice",
	})
	rejected := create(t, svc, model.NewClaimInput{
		Statement: "use postgres for the workspace store", ClaimType: model.ClaimHypothesis, Owner: "bob",
	})

	created, err := svc.CreateDecision(ctx, model.NewDecisionInput{
		ClaimID:   chosen.ID,
		DecidedBy: "alice",
		Rationale: "single file, zero ops",
		Alternatives: []model.Alternative{
			{ClaimID: rejected.ID, RejectionReason: "needs a server"},
		},
	})
	require.NoError(t, err)
	require.True(t, created.OK)
	require.NotNil(t, created.Decision)

	out, err := svc.RecordOutcome(ctx, created.Decision.ID, "success", "no issues after a month")
	require.NoError(t, err)
	require.True(t, out.OK)
	assert.Equal(t, "success", out.Decision.Outcome)

	list, err := svc.DecisionsForClaim(ctx, chosen.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.Decision.ID, list[0].ID)
}

func TestPurgeExpired(t *testing.T) {
	svc, clock := newService(t, claims.Options{})
	ctx := context.Background()

	ttl := 1.0
	short := create(t, svc, model.NewClaimInput{
		Statement: "the deploy is in progress", ClaimType: model.ClaimFact, Owner: "alice",
		TTLHours: &ttl,
	})
	create(t, svc, model.NewClaimInput{
		Statement: "the cache is write through", ClaimType: model.ClaimFact, Owner: "alice",
	})

	clock.Advance(2 * time.Hour)
	purged, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	got, err := svc.GetClaim(ctx, short.ID)
	require.NoError(t, err)
	require.True(t, got.OK)
	assert.Equal(t, model.StatusDeprecated, got.Claim.Status)
	require.NotEmpty(t, got.Claim.Audit)
	last := got.Claim.Audit[len(got.Claim.Audit)-1]
	assert.Equal(t, "system", last.Actor)

	// A second purge finds nothing.
	purged, err = svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, purged)
}
