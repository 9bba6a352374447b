package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLeaseManager(t *testing.T, params LeaseParams, seed int64) *LeaseManager {
	t.Helper()
	rl, err := NewRentLedger([]uint64{5, 10, 20, 35, 60}, 100, 10)
	require.NoError(t, err)
	return NewLeaseManager(rl, params, seed)
}

func TestLeaseIDsAreDeterministic(t *testing.T) {
	params := LeaseParams{RenewalCost: 10, MaxSuccessiveRenewals: 3, Term: 2}
	a := testLeaseManager(t, params, 42)
	b := testLeaseManager(t, params, 42)
	c := testLeaseManager(t, params, 43)

	cand := Candidate{Identity: "governor:athena", Tier: TierE1}
	la := a.Issue(cand, 0)
	lb := b.Issue(cand, 0)
	lc := c.Issue(cand, 0)

	assert.Equal(t, la.ID, lb.ID, "same seed, epoch, holder: same id")
	assert.NotEqual(t, la.ID, lc.ID, "seed participates in the id")
	assert.Equal(t, LeaseActive, la.Status)
}

func TestBeginEpochChargesRent(t *testing.T) {
	lm := testLeaseManager(t, LeaseParams{RenewalCost: 10, MaxSuccessiveRenewals: 3, Term: 2}, 1)
	lm.Issue(Candidate{Identity: "governor:athena", Tier: TierE2}, 0)

	rent := lm.BeginEpoch()
	assert.Equal(t, uint64(20), rent)
	assert.Equal(t, uint64(80), lm.Budget().StepsRemaining)
	assert.Equal(t, uint64(10), lm.Budget().ActionsRemaining)
}

func TestRenewalDue(t *testing.T) {
	lm := testLeaseManager(t, LeaseParams{RenewalCost: 10, MaxSuccessiveRenewals: 3, Term: 3}, 1)
	assert.False(t, lm.RenewalDue(3), "no active lease")

	lm.Issue(Candidate{Identity: "governor:athena", Tier: TierE0}, 2)
	assert.False(t, lm.RenewalDue(2), "issue epoch is not a boundary")
	assert.False(t, lm.RenewalDue(4))
	assert.True(t, lm.RenewalDue(5))
	assert.True(t, lm.RenewalDue(8))
}

func TestTryRenewSuccess(t *testing.T) {
	lm := testLeaseManager(t, LeaseParams{RenewalCost: 10, MaxSuccessiveRenewals: 3, Term: 1}, 1)
	lm.Issue(Candidate{Identity: "governor:athena", Tier: TierE0}, 0)
	lm.BeginEpoch()

	renewed, dead := lm.TryRenew(1)
	assert.True(t, renewed)
	assert.Nil(t, dead)
	assert.Equal(t, uint64(1), lm.Active().Renewals)
	assert.Equal(t, uint64(85), lm.Budget().StepsRemaining, "renewal cost came out of remaining budget")
}

func TestTryRenewBudgetExhaustion(t *testing.T) {
	lm := testLeaseManager(t, LeaseParams{RenewalCost: 10, MaxSuccessiveRenewals: 3, Term: 1}, 1)
	lm.Issue(Candidate{Identity: "governor:athena", Tier: TierE0}, 0)
	lm.BeginEpoch()
	lm.Budget().StepsRemaining = 4

	renewed, dead := lm.TryRenew(1)
	assert.False(t, renewed)
	require.NotNil(t, dead)
	assert.Equal(t, LeaseExpired, dead.Status)
	assert.Equal(t, CauseBudgetExhausted, dead.Cause)
	assert.Nil(t, lm.Active())
}

func TestTryRenewForcedTurnover(t *testing.T) {
	lm := testLeaseManager(t, LeaseParams{RenewalCost: 1, MaxSuccessiveRenewals: 2, Term: 1}, 1)
	lm.Issue(Candidate{Identity: "governor:athena", Tier: TierE0}, 0)

	for epoch := uint64(1); epoch <= 2; epoch++ {
		lm.BeginEpoch()
		renewed, _ := lm.TryRenew(epoch)
		require.True(t, renewed)
	}

	// Third check hits the ceiling even with budget to spare.
	lm.BeginEpoch()
	renewed, dead := lm.TryRenew(3)
	assert.False(t, renewed)
	require.NotNil(t, dead)
	assert.Equal(t, CauseForcedTurnover, dead.Cause)
	assert.Equal(t, LeaseExpired, dead.Status, "forced turnover is expiry, not revocation")
}

func TestRenewalsDisabledReplacesEveryTerm(t *testing.T) {
	lm := testLeaseManager(t, LeaseParams{RenewalCost: 1, MaxSuccessiveRenewals: 0, Term: 1}, 1)
	lm.Issue(Candidate{Identity: "governor:athena", Tier: TierE0}, 0)
	lm.BeginEpoch()

	renewed, dead := lm.TryRenew(1)
	assert.False(t, renewed)
	require.NotNil(t, dead)
	assert.Equal(t, CauseReplaced, dead.Cause)
	assert.Equal(t, LeaseExpired, dead.Status)
}

func TestRevoke(t *testing.T) {
	lm := testLeaseManager(t, LeaseParams{RenewalCost: 10, MaxSuccessiveRenewals: 3, Term: 1}, 1)
	lm.Issue(Candidate{Identity: "governor:athena", Tier: TierE0}, 0)
	lm.BeginEpoch()

	dead := lm.Revoke(&Violation{Kind: ViolationStepsBound}, 0)
	assert.Equal(t, LeaseRevoked, dead.Status)
	assert.Equal(t, ViolationStepsBound, dead.Cause)
	assert.Nil(t, lm.Active())
	assert.Equal(t, uint64(0), lm.Budget().StepsRemaining)
}
