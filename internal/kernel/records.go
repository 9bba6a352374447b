package kernel

import (
	"sort"

	"covenant/internal/codec"
	"covenant/internal/verifier"
)

// Run-log payload structs. Every field is an integer, string, or byte
// slice: the canonical encoding of these is what the hash chain
// covers, so nothing floating-point may ever appear here.

// GenesisPayload pins the frozen configuration at record zero, which
// is what lets replay rebuild a run from the log alone.
type GenesisPayload struct {
	Seed                  int64            `cbor:"seed"`
	Horizon               uint64           `cbor:"horizon"`
	StepsCap              uint64           `cbor:"steps_cap"`
	ActionsCap            uint64           `cbor:"actions_cap"`
	RenewalCost           uint64           `cbor:"renewal_cost"`
	CommitmentCost        uint64           `cbor:"commitment_cost"`
	MaxSuccessiveRenewals uint64           `cbor:"max_successive_renewals"`
	Term                  uint64           `cbor:"term"`
	RentSchedule          []uint64         `cbor:"rent_schedule"`
	Threshold             uint64           `cbor:"threshold"`
	AmnestyInterval       uint64           `cbor:"amnesty_interval"`
	AmnestyDecay          uint64           `cbor:"amnesty_decay"`
	Commitments           []CommitmentDecl `cbor:"commitments"`
}

// CommitmentDecl is a commitment declaration as logged.
type CommitmentDecl struct {
	ID          string `cbor:"id"`
	VerifierRef string `cbor:"verifier"`
	TTL         uint64 `cbor:"ttl"`
	Epoch       uint64 `cbor:"epoch"` // Declaration epoch; 0 for genesis
}

// CandidateRecord is one generator candidate as logged, raw manifest
// included: replay feeds these back instead of re-invoking the
// generator.
type CandidateRecord struct {
	Identity       string `cbor:"identity"`
	Tier           uint8  `cbor:"tier"`
	Weight         uint64 `cbor:"weight"`
	Manifest       []byte `cbor:"manifest"`
	ManifestDigest []byte `cbor:"manifest_digest"`
}

// SuccessionPayload records one succession event: the raw pool, the
// eligible subset, and the outcome.
type SuccessionPayload struct {
	Epoch      uint64            `cbor:"epoch"`
	Trigger    string            `cbor:"trigger"` // genesis | expiry | revocation | lapse_exit
	Candidates []CandidateRecord `cbor:"candidates"`
	Eligible   []string          `cbor:"eligible"`
	Selected   string            `cbor:"selected"` // Empty on lapse
	Lapse      bool              `cbor:"lapse"`
}

// Succession triggers.
const (
	TriggerGenesis    = "genesis"
	TriggerExpiry     = "expiry"
	TriggerRevocation = "revocation"
	TriggerLapseExit  = "lapse_exit"
)

// LeasePayload records a lease lifecycle event (issue, renew, expire,
// revoke).
type LeasePayload struct {
	Epoch          uint64 `cbor:"epoch"`
	LeaseID        string `cbor:"lease_id"`
	Holder         string `cbor:"holder"`
	Tier           uint8  `cbor:"tier"`
	IssueEpoch     uint64 `cbor:"issue_epoch"`
	Renewals       uint64 `cbor:"renewals"`
	StepsRemaining uint64 `cbor:"steps_remaining"`
	Cause          string `cbor:"cause"`
	Detail         string `cbor:"detail"`
}

// Action dispositions in tick records.
const (
	DispositionAdmitted  = "admitted"
	DispositionRejected  = "rejected_budget"
	DispositionViolation = "violation"
	DispositionDropped   = "dropped" // Proposed after a violation ended the epoch
)

// ActionRecord is one proposed action and what the kernel did with
// it. The full proposed sequence is logged so replay can re-run
// admission without the agent.
type ActionRecord struct {
	Kind        string `cbor:"kind"`
	Steps       uint64 `cbor:"steps"`
	Disposition string `cbor:"disposition"`
}

// OutcomeRecord is one commitment's window verdict.
type OutcomeRecord struct {
	ID      string `cbor:"id"`
	Outcome string `cbor:"outcome"`
}

// TickPayload is the per-epoch record, appended at the end of every
// tick after all stages have run.
type TickPayload struct {
	Epoch               uint64          `cbor:"epoch"`
	Mode                string          `cbor:"mode"` // Mode at epoch start
	Holder              string          `cbor:"holder"`
	Rent                uint64          `cbor:"rent"`
	CommitmentCost      uint64          `cbor:"commitment_cost"`
	CommitmentShortfall bool            `cbor:"commitment_shortfall"`
	Actions             []ActionRecord  `cbor:"actions"`
	StepsSpent          uint64          `cbor:"steps_spent"`
	ActionsAdmitted     uint64          `cbor:"actions_admitted"`
	ActionsRejected     uint64          `cbor:"actions_rejected"`
	WindowEvaluated     bool            `cbor:"window_evaluated"`
	WindowPass          bool            `cbor:"window_pass"`
	Outcomes            []OutcomeRecord `cbor:"outcomes"`
	HolderStreak        uint64          `cbor:"holder_streak"` // Post-update streak of the holder
	ExpiredCommitments  []string        `cbor:"expired_commitments"`
	AmnestyFired        bool            `cbor:"amnesty_fired"`
	Streaks             []StreakEntry   `cbor:"streaks"` // Full map after all epoch-end updates
}

// sortedOutcomes flattens a verdict map in id order so the encoding
// is independent of map iteration.
func sortedOutcomes(m map[string]verifier.Outcome) []OutcomeRecord {
	out := make([]OutcomeRecord, 0, len(m))
	for id, o := range m {
		out = append(out, OutcomeRecord{ID: id, Outcome: o.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// State snapshot structs, canonically encoded and hashed into every
// record's pre/post digests.

type leaseState struct {
	ID         string `cbor:"id"`
	Holder     string `cbor:"holder"`
	Tier       uint8  `cbor:"tier"`
	IssueEpoch uint64 `cbor:"issue_epoch"`
	Renewals   uint64 `cbor:"renewals"`
	StepsCap   uint64 `cbor:"steps_cap"`
	ActionsCap uint64 `cbor:"actions_cap"`
	Status     string `cbor:"status"`
	Cause      string `cbor:"cause"`
}

type commitmentState struct {
	ID            string `cbor:"id"`
	Scope         string `cbor:"scope"`
	VerifierRef   string `cbor:"verifier"`
	TTL           uint64 `cbor:"ttl"`
	DeclaredEpoch uint64 `cbor:"declared_epoch"`
	Status        string `cbor:"status"`
}

type stateSnapshot struct {
	Epoch         uint64            `cbor:"epoch"`
	Mode          string            `cbor:"mode"`
	Lease         *leaseState       `cbor:"lease"`
	BudgetSteps   uint64            `cbor:"budget_steps"`
	BudgetActions uint64            `cbor:"budget_actions"`
	Commitments   []commitmentState `cbor:"commitments"`
	Streaks       []StreakEntry     `cbor:"streaks"`
	LapseEpochs   uint64            `cbor:"lapse_epochs"`
}

// stateDigest canonically encodes the full kernel state and hashes it
// in the state domain.
func (k *Kernel) stateDigest() codec.Digest {
	snap := stateSnapshot{
		Epoch:       k.epoch,
		Mode:        k.mode.String(),
		LapseEpochs: k.amnesty.LapseEpochs(),
		Streaks:     k.gate.Streaks().Snapshot(),
	}

	if lease := k.leases.Active(); lease != nil {
		snap.Lease = &leaseState{
			ID:         lease.ID,
			Holder:     string(lease.Holder),
			Tier:       uint8(lease.Tier),
			IssueEpoch: lease.IssueEpoch,
			Renewals:   lease.Renewals,
			StepsCap:   lease.StepsCap,
			ActionsCap: lease.ActionsCap,
			Status:     lease.Status.String(),
			Cause:      lease.Cause,
		}
		budget := k.leases.Budget()
		snap.BudgetSteps = budget.StepsRemaining
		snap.BudgetActions = budget.ActionsRemaining
	}

	for _, c := range k.ledger.Snapshot() {
		snap.Commitments = append(snap.Commitments, commitmentState{
			ID:            c.ID,
			Scope:         c.Scope.String(),
			VerifierRef:   c.VerifierRef,
			TTL:           c.TTL,
			DeclaredEpoch: c.DeclaredEpoch,
			Status:        c.Status.String(),
		})
	}

	return codec.HashState(codec.MustMarshal(snap))
}
