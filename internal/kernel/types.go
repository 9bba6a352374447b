// Package kernel implements the covenant authority-lease engine: a
// single-threaded, discrete-event, fully deterministic core that
// grants, meters, renews, and transfers the exclusive right to act
// among opaque policy classes under resource-bounded leases,
// persistent commitments, and a succession-time eligibility filter.
//
// The kernel never interprets agent output. Candidate generators,
// agents, and commitment verifiers are external collaborators called
// synchronously; they return values, the kernel owns all state.
package kernel

import (
	"fmt"
	"strings"

	"covenant/internal/codec"
)

// PolicyIdentity is the stable key for a policy class, formatted
// "{category}:{name}". It names the class, not a runtime instance:
// successive instantiations of the same class accrue one failure
// history.
type PolicyIdentity string

// Validate rejects identities that are not category:name.
func (p PolicyIdentity) Validate() error {
	cat, name, ok := strings.Cut(string(p), ":")
	if !ok || cat == "" || name == "" {
		return fmt.Errorf("policy identity %q is not category:name", string(p))
	}
	return nil
}

// Category returns the class category portion of the identity.
func (p PolicyIdentity) Category() string {
	cat, _, _ := strings.Cut(string(p), ":")
	return cat
}

// Tier is an expressivity tier ordinal, E0 through E4. Higher tiers
// pay strictly more rent.
type Tier uint8

const (
	TierE0 Tier = iota
	TierE1
	TierE2
	TierE3
	TierE4

	// TierCount is the number of tiers in the frozen rent schedule.
	TierCount = 5
)

func (t Tier) String() string {
	return fmt.Sprintf("E%d", uint8(t))
}

// Manifest is the opaque payload a candidate generator attaches to a
// policy class. The kernel hashes it for the run log and never looks
// inside.
type Manifest []byte

// Digest returns the manifest-domain digest of the blob.
func (m Manifest) Digest() codec.Digest {
	return codec.HashManifest(m)
}

// MaxCandidateWeight bounds a single selection weight. Summed weights
// must stay inside the PRNG's signed range; the kernel rejects any
// pool that could overflow it.
const MaxCandidateWeight = 1 << 32

// Candidate is one generator-supplied entry in the succession pool.
type Candidate struct {
	Identity PolicyIdentity
	Tier     Tier
	Weight   uint64 // Selection weight; zero is treated as 1, capped at MaxCandidateWeight
	Manifest Manifest
}

// CandidateGenerator produces the succession pool. Implementations
// must be deterministic in (seed, epoch); the kernel records their raw
// output so replay never re-invokes them.
type CandidateGenerator interface {
	Generate(seed int64, epoch uint64) ([]Candidate, error)
}

// Action is one opaque unit of agent work. Steps is the declared step
// cost; Kind is never interpreted beyond structural checks.
type Action struct {
	Kind  string
	Steps uint64
}

// AgentFunc is the harness-supplied policy agent for the active lease.
// Called once per held epoch with the lease, the post-rent budget, and
// the epoch number; the returned actions are admitted in order subject
// to the sentinel and the budget. Must be deterministic; replay never
// re-invokes it.
type AgentFunc func(lease AuthorityLease, budget Budget, epoch uint64) []Action

// Mode is the kernel's authority mode.
type Mode uint8

const (
	// ModeHeld means exactly one lease is active.
	ModeHeld Mode = iota
	// ModeNullAuthority is constitutional lapse: no holder exists and
	// only epoch advancement and the amnesty clock run.
	ModeNullAuthority
)

func (m Mode) String() string {
	if m == ModeNullAuthority {
		return "NULL_AUTHORITY"
	}
	return "HELD"
}

// LeaseStatus is the lease lifecycle state.
type LeaseStatus uint8

const (
	LeaseProposed LeaseStatus = iota
	LeaseActive
	LeaseExpired
	LeaseRevoked
)

func (s LeaseStatus) String() string {
	switch s {
	case LeaseProposed:
		return "PROPOSED"
	case LeaseActive:
		return "ACTIVE"
	case LeaseExpired:
		return "EXPIRED"
	case LeaseRevoked:
		return "REVOKED"
	}
	return fmt.Sprintf("LeaseStatus(%d)", uint8(s))
}

// Lease termination causes. Expiry causes and violation causes are
// disjoint: resource exhaustion is never a violation.
const (
	CauseBudgetExhausted = "budget_exhausted" // Remaining budget below renewal cost
	CauseForcedTurnover  = "forced_turnover"  // max_successive_renewals reached
	CauseReplaced        = "replaced"         // Succeeded at a scheduled boundary with renewals disabled
)

// AuthorityLease represents one tenure of authority. Tier and holder
// are fixed for the lease's lifetime.
type AuthorityLease struct {
	ID         string
	Holder     PolicyIdentity
	Tier       Tier
	IssueEpoch uint64
	Renewals   uint64
	StepsCap   uint64
	ActionsCap uint64
	Status     LeaseStatus
	Cause      string // Termination cause; empty while active
}

// Budget is the per-epoch resource ledger for the active lease.
// Consumption is monotone and saturating: an attempt that would drive
// a balance negative fails instead of wrapping.
type Budget struct {
	StepsRemaining   uint64
	ActionsRemaining uint64
}

// Admit consumes one action slot and the action's declared steps.
// Returns false, leaving the budget untouched, if either balance is
// insufficient.
func (b *Budget) Admit(steps uint64) bool {
	if b.ActionsRemaining == 0 || b.StepsRemaining < steps {
		return false
	}
	b.ActionsRemaining--
	b.StepsRemaining -= steps
	return true
}

// Charge deducts a flat step cost (rent is applied at construction;
// this covers commitment upkeep and renewal costs). Saturates at zero
// and reports whether the full amount was available.
func (b *Budget) Charge(steps uint64) bool {
	if b.StepsRemaining < steps {
		b.StepsRemaining = 0
		return false
	}
	b.StepsRemaining -= steps
	return true
}

// CommitmentScope distinguishes the immutable genesis set from
// successor-declared obligations.
type CommitmentScope uint8

const (
	ScopeGenesis CommitmentScope = iota
	ScopeSuccessor
)

func (s CommitmentScope) String() string {
	if s == ScopeSuccessor {
		return "SUCCESSOR"
	}
	return "GENESIS"
}

// CommitmentStatus is the ledger status of one commitment. It changes
// only at epoch-end evaluation, never mid-epoch.
type CommitmentStatus uint8

const (
	CommitmentActive CommitmentStatus = iota
	CommitmentSatisfiedWindow
	CommitmentFailed
	CommitmentExpired
)

func (s CommitmentStatus) String() string {
	switch s {
	case CommitmentActive:
		return "ACTIVE"
	case CommitmentSatisfiedWindow:
		return "SATISFIED_WINDOW"
	case CommitmentFailed:
		return "FAILED"
	case CommitmentExpired:
		return "EXPIRED"
	}
	return fmt.Sprintf("CommitmentStatus(%d)", uint8(s))
}

// Commitment is a persistent semantic obligation. It survives lease
// destruction: renewals and successions never touch the ledger.
type Commitment struct {
	ID            string
	Scope         CommitmentScope
	VerifierRef   string
	TTL           uint64 // Epochs from declaration until expiry; 0 means infinite
	DeclaredEpoch uint64
	Status        CommitmentStatus
}
