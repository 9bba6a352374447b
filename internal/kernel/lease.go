package kernel

import (
	"fmt"

	"github.com/google/uuid"

	"covenant/internal/logging"
)

// LeaseParams are the frozen lease-lifecycle knobs for a run.
type LeaseParams struct {
	RenewalCost           uint64 // Steps deducted from remaining budget at the renewal check
	MaxSuccessiveRenewals uint64 // Forced turnover after this many renewals; 0 disables renewal, replacing the holder every term
	Term                  uint64 // Epochs between renewal checks, min 1
}

// LeaseManager owns the lease lifecycle: issue, renew, expire,
// revoke. At most one lease is active at any epoch; the manager is
// that invariant's single owner.
//
// Renewal is purely structural. Its inputs are the remaining budget,
// the renewal count, and nothing else: commitment verdicts and streak
// state cannot reach it.
type LeaseManager struct {
	rent   *RentLedger
	params LeaseParams
	ns     uuid.UUID

	active *AuthorityLease
	budget Budget
}

// NewLeaseManager creates a manager. Lease ids are uuid v5 values in
// a namespace derived from the run seed, so identical runs mint
// identical ids and replayed logs match byte for byte.
func NewLeaseManager(rent *RentLedger, params LeaseParams, seed int64) *LeaseManager {
	if params.Term == 0 {
		params.Term = 1
	}
	ns := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("covenant:%d", seed)))
	return &LeaseManager{rent: rent, params: params, ns: ns}
}

// Active returns the active lease, or nil during lapse.
func (lm *LeaseManager) Active() *AuthorityLease { return lm.active }

// Budget returns the active lease's remaining budget for this epoch.
func (lm *LeaseManager) Budget() *Budget { return &lm.budget }

// Issue installs a new lease for the selected candidate. The lease
// passes through PROPOSED only within the succession event; it is
// ACTIVE by the time anything else can observe it. Tier and holder
// are fixed for the lease's lifetime.
func (lm *LeaseManager) Issue(c Candidate, epoch uint64) *AuthorityLease {
	id := uuid.NewSHA1(lm.ns, []byte(fmt.Sprintf("%d:%s", epoch, c.Identity)))
	lease := &AuthorityLease{
		ID:         id.String(),
		Holder:     c.Identity,
		Tier:       c.Tier,
		IssueEpoch: epoch,
		StepsCap:   lm.rent.StepsCap(),
		ActionsCap: lm.rent.ActionsCap(),
		Status:     LeaseActive,
	}
	lm.active = lease
	lm.budget = Budget{}
	logging.Lease("issued %s to %s (tier %s) at epoch %d", lease.ID, lease.Holder, lease.Tier, epoch)
	return lease
}

// BeginEpoch resets the per-epoch budget and charges rent. Returns
// the rent charged. Called at the top of every held epoch, before any
// action is admitted.
func (lm *LeaseManager) BeginEpoch() uint64 {
	rent := lm.rent.Rent(lm.active.Tier)
	lm.budget = lm.rent.EffectiveBudget(lm.active.Tier)
	logging.LeaseDebug("lease %s: rent %d charged, budget %d/%d",
		lm.active.ID, rent, lm.budget.StepsRemaining, lm.budget.ActionsRemaining)
	return rent
}

// RenewalDue reports whether the epoch ends a lease term.
func (lm *LeaseManager) RenewalDue(epoch uint64) bool {
	if lm.active == nil || epoch <= lm.active.IssueEpoch {
		return false
	}
	return (epoch-lm.active.IssueEpoch)%lm.params.Term == 0
}

// TryRenew runs the scheduled renewal check. On success the lease
// self-loops ACTIVE with its renewal count incremented and the
// renewal cost consumed from the remaining budget. On failure the
// lease expires - deterministically, with a cause distinguishing
// forced turnover from budget exhaustion - and the caller must run a
// succession event. There is no partial renewal.
func (lm *LeaseManager) TryRenew(epoch uint64) (renewed bool, dead *AuthorityLease) {
	if lm.params.MaxSuccessiveRenewals == 0 {
		return false, lm.expire(CauseReplaced, epoch)
	}
	if lm.active.Renewals >= lm.params.MaxSuccessiveRenewals {
		return false, lm.expire(CauseForcedTurnover, epoch)
	}
	if !lm.budget.Charge(lm.params.RenewalCost) {
		return false, lm.expire(CauseBudgetExhausted, epoch)
	}
	lm.active.Renewals++
	logging.Lease("renewed %s at epoch %d (renewal %d of %d)",
		lm.active.ID, epoch, lm.active.Renewals, lm.params.MaxSuccessiveRenewals)
	return true, nil
}

func (lm *LeaseManager) expire(cause string, epoch uint64) *AuthorityLease {
	lease := lm.active
	lease.Status = LeaseExpired
	lease.Cause = cause
	lm.active = nil
	lm.budget = Budget{}
	logging.Lease("expired %s at epoch %d: %s", lease.ID, epoch, cause)
	return lease
}

// Revoke terminates the active lease for a sentinel violation. This
// is the only revocation path; expiry and semantic failure can never
// produce a REVOKED lease.
func (lm *LeaseManager) Revoke(v *Violation, epoch uint64) *AuthorityLease {
	lease := lm.active
	lease.Status = LeaseRevoked
	lease.Cause = v.Kind
	lm.active = nil
	lm.budget = Budget{}
	logging.Lease("revoked %s at epoch %d: %s", lease.ID, epoch, v)
	return lease
}
