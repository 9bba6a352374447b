package kernel

import (
	"errors"
	"fmt"
	"sort"

	"covenant/internal/logging"
	"covenant/internal/verifier"
)

// ErrGenesisSealed is returned when genesis seeding is attempted more
// than once.
var ErrGenesisSealed = errors.New("genesis commitment set already seeded")

// CommitmentLedger holds the run's persistent semantic obligations.
// Commitments survive lease destruction: renewal and succession never
// touch the ledger. Status changes happen only at epoch-end
// evaluation.
//
// Only genesis commitments gate eligibility. Successor-declared
// commitments are tracked for reporting and expire on TTL, but their
// outcomes never feed the streak map; widening the gate to them is a
// policy choice left to forks.
type CommitmentLedger struct {
	commitments []*Commitment
	byID        map[string]*Commitment
	sealed      bool
}

// NewCommitmentLedger returns an empty ledger.
func NewCommitmentLedger() *CommitmentLedger {
	return &CommitmentLedger{byID: make(map[string]*Commitment)}
}

// SeedGenesis installs the immutable genesis set. Callable exactly
// once, at kernel init; the set can never be removed or amended
// afterwards.
func (cl *CommitmentLedger) SeedGenesis(commitments []Commitment) error {
	if cl.sealed {
		return ErrGenesisSealed
	}
	if len(commitments) == 0 {
		return errors.New("genesis commitment set is empty")
	}

	for _, c := range commitments {
		c.Scope = ScopeGenesis
		c.DeclaredEpoch = 0
		c.Status = CommitmentActive
		if _, dup := cl.byID[c.ID]; dup {
			return fmt.Errorf("duplicate commitment id %q", c.ID)
		}
		stored := c
		cl.commitments = append(cl.commitments, &stored)
		cl.byID[c.ID] = &stored
	}
	cl.sealed = true
	logging.Ledger("genesis sealed with %d commitments", len(commitments))
	return nil
}

// Declare records a successor-declared commitment. Tracked for
// reporting only; it never gates eligibility in this profile.
func (cl *CommitmentLedger) Declare(id, verifierRef string, ttl, epoch uint64) error {
	if _, dup := cl.byID[id]; dup {
		return fmt.Errorf("duplicate commitment id %q", id)
	}
	c := &Commitment{
		ID:            id,
		Scope:         ScopeSuccessor,
		VerifierRef:   verifierRef,
		TTL:           ttl,
		DeclaredEpoch: epoch,
		Status:        CommitmentActive,
	}
	cl.commitments = append(cl.commitments, c)
	cl.byID[id] = c
	logging.Ledger("successor commitment %q declared at epoch %d (ttl=%d)", id, epoch, ttl)
	return nil
}

// WindowResult is the epoch-end verdict for the semantic window.
type WindowResult struct {
	Pass     bool
	Outcomes map[string]verifier.Outcome // Per-commitment verdicts, genesis and successor alike
}

// EvaluateWindow runs every live commitment's verifier against the
// window and composes the conjunction of the genesis verdicts. An
// INCONCLUSIVE genesis verdict, a missing verifier, or an empty live
// genesis set all resolve to FAIL: there is no vacuous pass.
func (cl *CommitmentLedger) EvaluateWindow(w verifier.Window, registry *verifier.Registry) WindowResult {
	res := WindowResult{Pass: true, Outcomes: make(map[string]verifier.Outcome)}

	liveGenesis := 0
	for _, c := range cl.commitments {
		if c.Status == CommitmentExpired {
			continue
		}

		outcome := verifier.Inconclusive
		if v, ok := registry.Resolve(c.VerifierRef); ok {
			outcome = v.Evaluate(w)
		} else {
			logging.Ledger("commitment %q: verifier %q unresolved, treating as INCONCLUSIVE", c.ID, c.VerifierRef)
		}
		res.Outcomes[c.ID] = outcome

		// Status reflects the latest window only; EXPIRED is terminal.
		if outcome == verifier.Pass {
			c.Status = CommitmentSatisfiedWindow
		} else {
			c.Status = CommitmentFailed
		}

		if c.Scope == ScopeGenesis {
			liveGenesis++
			if outcome != verifier.Pass {
				res.Pass = false
			}
		}
	}

	if liveGenesis == 0 {
		res.Pass = false
	}
	return res
}

// ExpireDue marks commitments whose TTL has elapsed by the given
// epoch as EXPIRED. Called at epoch end, after window evaluation.
func (cl *CommitmentLedger) ExpireDue(epoch uint64) []string {
	var expired []string
	for _, c := range cl.commitments {
		if c.Status == CommitmentExpired || c.TTL == 0 {
			continue
		}
		if epoch >= c.DeclaredEpoch+c.TTL {
			c.Status = CommitmentExpired
			expired = append(expired, c.ID)
			logging.Ledger("commitment %q expired at epoch %d", c.ID, epoch)
		}
	}
	return expired
}

// Snapshot returns the commitments sorted by id, for state hashing
// and reporting.
func (cl *CommitmentLedger) Snapshot() []Commitment {
	out := make([]Commitment, 0, len(cl.commitments))
	for _, c := range cl.commitments {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
