package kernel

import (
	"errors"
	"fmt"

	"covenant/internal/codec"
	"covenant/internal/logging"
	"covenant/internal/runlog"
	"covenant/internal/verifier"
)

// Process-fatal errors. Everything else the kernel encounters is
// recorded as state, never raised.
var (
	ErrEmptyGenesis = errors.New("genesis commitment set is empty")
	ErrEmptyPool    = errors.New("candidate pool is empty")
	ErrBadParams    = errors.New("invalid kernel parameters")
	ErrHorizonDone  = errors.New("run horizon reached")
)

// Params is the frozen integer configuration of a run. Validated at
// construction; never mutated afterwards.
type Params struct {
	Seed                  int64
	Horizon               uint64
	StepsCap              uint64
	ActionsCap            uint64
	RenewalCost           uint64
	CommitmentCost        uint64
	MaxSuccessiveRenewals uint64
	Term                  uint64
	RentSchedule          []uint64
	Threshold             uint64 // K: eligibility streak threshold
	AmnestyInterval       uint64
	AmnestyDecay          uint64
	Genesis               []CommitmentDecl
}

// Deps are the external collaborators. The generator and agent must
// be deterministic in the run seed; the kernel records their raw
// output so replay never calls them again.
type Deps struct {
	Generator CandidateGenerator
	Verifiers *verifier.Registry
	Agent     AgentFunc
	Log       runlog.Log
}

// Kernel is the authority-lease engine. It owns all run state
// exclusively: collaborators are invoked synchronously and return
// values, and no locking exists because no concurrent mutation
// exists. One Tick call executes one epoch to completion.
type Kernel struct {
	params Params

	generator CandidateGenerator
	registry  *verifier.Registry
	agent     AgentFunc
	log       runlog.Log

	rent       *RentLedger
	leases     *LeaseManager
	ledger     *CommitmentLedger
	gate       *EligibilityGate
	succession *SuccessionController
	amnesty    *AmnestyClock
	sentinel   Sentinel

	epoch      uint64
	mode       Mode
	lastDigest codec.Digest
}

// New validates the configuration, seeds the genesis commitment set,
// writes the genesis record, and runs the genesis succession event.
// All configuration errors surface here; a kernel that constructs
// will run to its horizon without raising anything but replay or
// storage failures.
func New(params Params, deps Deps) (*Kernel, error) {
	if params.Horizon == 0 {
		return nil, fmt.Errorf("%w: horizon must be positive", ErrBadParams)
	}
	if params.Threshold == 0 {
		return nil, fmt.Errorf("%w: eligibility threshold must be positive", ErrBadParams)
	}
	if params.Term == 0 {
		params.Term = 1
	}
	if len(params.Genesis) == 0 {
		return nil, ErrEmptyGenesis
	}
	if deps.Generator == nil || deps.Verifiers == nil || deps.Log == nil {
		return nil, fmt.Errorf("%w: generator, verifier registry, and log are required", ErrBadParams)
	}

	rent, err := NewRentLedger(params.RentSchedule, params.StepsCap, params.ActionsCap)
	if err != nil {
		return nil, err
	}

	gate := NewEligibilityGate(params.Threshold)
	k := &Kernel{
		params:     params,
		generator:  deps.Generator,
		registry:   deps.Verifiers,
		agent:      deps.Agent,
		log:        deps.Log,
		rent:       rent,
		leases:     NewLeaseManager(rent, LeaseParams{
			RenewalCost:           params.RenewalCost,
			MaxSuccessiveRenewals: params.MaxSuccessiveRenewals,
			Term:                  params.Term,
		}, params.Seed),
		ledger:     NewCommitmentLedger(),
		gate:       gate,
		succession: NewSuccessionController(gate, params.Seed),
		amnesty:    NewAmnestyClock(params.AmnestyInterval, params.AmnestyDecay),
		mode:       ModeNullAuthority,
	}

	genesis := make([]Commitment, 0, len(params.Genesis))
	for _, decl := range params.Genesis {
		genesis = append(genesis, Commitment{
			ID:          decl.ID,
			VerifierRef: decl.VerifierRef,
			TTL:         decl.TTL,
		})
	}
	if err := k.ledger.SeedGenesis(genesis); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
	}

	logging.Boot("kernel initialized: seed=%d horizon=%d K=%d amnesty=%d/%d",
		params.Seed, params.Horizon, params.Threshold, params.AmnestyInterval, params.AmnestyDecay)

	if err := k.append(runlog.KindGenesis, GenesisPayload{
		Seed:                  params.Seed,
		Horizon:               params.Horizon,
		StepsCap:              params.StepsCap,
		ActionsCap:            params.ActionsCap,
		RenewalCost:           params.RenewalCost,
		CommitmentCost:        params.CommitmentCost,
		MaxSuccessiveRenewals: params.MaxSuccessiveRenewals,
		Term:                  params.Term,
		RentSchedule:          params.RentSchedule,
		Threshold:             params.Threshold,
		AmnestyInterval:       params.AmnestyInterval,
		AmnestyDecay:          params.AmnestyDecay,
		Commitments:           params.Genesis,
	}); err != nil {
		return nil, err
	}

	// Genesis succession: the first holder is installed (or the run
	// opens in lapse) before the first tick.
	if err := k.runSuccession(TriggerGenesis); err != nil {
		return nil, err
	}
	return k, nil
}

// Epoch returns the current epoch.
func (k *Kernel) Epoch() uint64 { return k.epoch }

// Mode returns the current authority mode.
func (k *Kernel) Mode() Mode { return k.mode }

// ActiveLease returns a copy of the active lease, or nil in lapse.
func (k *Kernel) ActiveLease() *AuthorityLease {
	lease := k.leases.Active()
	if lease == nil {
		return nil
	}
	copied := *lease
	return &copied
}

// Streaks returns the streak map in canonical order.
func (k *Kernel) Streaks() []StreakEntry {
	return k.gate.Streaks().Snapshot()
}

// StateDigest returns the canonical digest of the current state.
func (k *Kernel) StateDigest() codec.Digest { return k.stateDigest() }

// DeclareCommitment records a successor-declared commitment. Tracked
// and logged for reporting; it never gates eligibility. Callable
// between ticks only, which the single-threaded loop guarantees.
func (k *Kernel) DeclareCommitment(id, verifierRef string, ttl uint64) error {
	if err := k.ledger.Declare(id, verifierRef, ttl, k.epoch); err != nil {
		return err
	}
	return k.append(runlog.KindCommitmentDeclare, CommitmentDecl{
		ID:          id,
		VerifierRef: verifierRef,
		TTL:         ttl,
		Epoch:       k.epoch,
	})
}

// Run ticks until the horizon.
func (k *Kernel) Run() error {
	for k.epoch < k.params.Horizon {
		if err := k.Tick(); err != nil {
			return err
		}
	}
	return nil
}

// Tick executes exactly one epoch, in the fixed stage order the
// replay contract depends on: advance, rent charge, commitment
// upkeep, action admission, window evaluation, streak update, TTL
// sweep, renewal or succession, amnesty. It advances whether or not a
// holder exists; NULL_AUTHORITY never blocks the clock.
func (k *Kernel) Tick() error {
	if k.epoch >= k.params.Horizon {
		return ErrHorizonDone
	}
	k.epoch++
	epoch := k.epoch

	heldAtStart := k.mode == ModeHeld
	tick := TickPayload{Epoch: epoch, Mode: k.mode.String()}

	var holder PolicyIdentity
	var revoked *AuthorityLease

	if heldAtStart {
		lease := k.leases.Active()
		holder = lease.Holder
		tick.Holder = string(holder)

		// Rent first, then commitment upkeep, both before any
		// discretionary action sees the budget.
		tick.Rent = k.leases.BeginEpoch()
		if k.params.CommitmentCost > 0 {
			tick.CommitmentCost = k.params.CommitmentCost
			tick.CommitmentShortfall = !k.leases.Budget().Charge(k.params.CommitmentCost)
		}
		logging.EpochDebug("epoch %d: holder=%s rent=%d budget=%d/%d",
			epoch, holder, tick.Rent, k.leases.Budget().StepsRemaining, k.leases.Budget().ActionsRemaining)

		var err error
		revoked, err = k.admitActions(lease, epoch, &tick)
		if err != nil {
			return err
		}
	} else {
		logging.EpochDebug("epoch %d: NULL_AUTHORITY", epoch)
	}

	// Epoch end: the semantic window closes. Evaluated only for an
	// epoch that had a holder; the streak map is untouched in lapse.
	if heldAtStart {
		result := k.ledger.EvaluateWindow(k.buildWindow(epoch, holder, &tick), k.registry)
		tick.WindowEvaluated = true
		tick.WindowPass = result.Pass
		tick.Outcomes = sortedOutcomes(result.Outcomes)
		tick.HolderStreak = k.gate.Streaks().RecordWindow(holder, result.Pass)
		logging.Ledger("epoch %d window: pass=%v holder=%s streak=%d", epoch, result.Pass, holder, tick.HolderStreak)
	}

	tick.ExpiredCommitments = k.ledger.ExpireDue(epoch)

	if err := k.successionPhase(epoch, heldAtStart, revoked); err != nil {
		return err
	}

	// Amnesty runs last, and only for an epoch spent in lapse.
	if !heldAtStart && k.mode == ModeNullAuthority {
		tick.AmnestyFired = k.amnesty.ObserveLapseEpoch(k.gate.Streaks())
	}

	tick.Streaks = k.gate.Streaks().Snapshot()
	logging.Epoch("epoch %d closed: mode=%s", epoch, k.mode)
	return k.append(runlog.KindTick, tick)
}

// admitActions runs the agent and admits its proposals one by one
// through the sentinel and the budget. A violation revokes the lease
// immediately and drops the remainder of the epoch's proposals;
// budget misses reject the single action and continue.
func (k *Kernel) admitActions(lease *AuthorityLease, epoch uint64, tick *TickPayload) (*AuthorityLease, error) {
	if k.agent == nil {
		return nil, nil
	}

	proposed := k.agent(*lease, *k.leases.Budget(), epoch)
	var revoked *AuthorityLease

	for _, action := range proposed {
		rec := ActionRecord{Kind: action.Kind, Steps: action.Steps}

		switch {
		case revoked != nil:
			rec.Disposition = DispositionDropped
		default:
			if v := k.sentinel.Check(action, lease); v != nil {
				rec.Disposition = DispositionViolation
				revoked = k.leases.Revoke(v, epoch)
				if err := k.append(runlog.KindLeaseRevoke, LeasePayload{
					Epoch:   epoch,
					LeaseID: revoked.ID,
					Holder:  string(revoked.Holder),
					Tier:    uint8(revoked.Tier),
					Cause:   v.Kind,
					Detail:  v.Detail,
				}); err != nil {
					return nil, err
				}
			} else if k.leases.Budget().Admit(action.Steps) {
				rec.Disposition = DispositionAdmitted
				tick.StepsSpent += action.Steps
				tick.ActionsAdmitted++
			} else {
				rec.Disposition = DispositionRejected
				tick.ActionsRejected++
			}
		}
		tick.Actions = append(tick.Actions, rec)
	}
	return revoked, nil
}

// buildWindow assembles the trace facts verifiers may consult about
// this epoch.
func (k *Kernel) buildWindow(epoch uint64, holder PolicyIdentity, tick *TickPayload) verifier.Window {
	facts := []verifier.Fact{
		{Predicate: "window_epoch", Args: []interface{}{int64(epoch)}},
		{Predicate: "holder", Args: []interface{}{string(holder)}},
		{Predicate: "steps_spent", Args: []interface{}{int64(tick.StepsSpent)}},
		{Predicate: "actions_admitted", Args: []interface{}{int64(tick.ActionsAdmitted)}},
		{Predicate: "actions_rejected", Args: []interface{}{int64(tick.ActionsRejected)}},
	}
	for _, a := range tick.Actions {
		if a.Disposition == DispositionAdmitted {
			facts = append(facts, verifier.Fact{Predicate: "action", Args: []interface{}{a.Kind, int64(a.Steps)}})
		}
	}
	return verifier.Window{Epoch: epoch, Holder: string(holder), Facts: facts}
}

// successionPhase decides whether this epoch ends with a succession
// event and runs it. Renewal is attempted first at scheduled
// boundaries; its failure is an expiry, never a revocation.
func (k *Kernel) successionPhase(epoch uint64, heldAtStart bool, revoked *AuthorityLease) error {
	switch {
	case revoked != nil:
		return k.runSuccession(TriggerRevocation)

	case heldAtStart && k.leases.RenewalDue(epoch):
		renewed, dead := k.leases.TryRenew(epoch)
		if renewed {
			lease := k.leases.Active()
			return k.append(runlog.KindLeaseRenew, LeasePayload{
				Epoch:          epoch,
				LeaseID:        lease.ID,
				Holder:         string(lease.Holder),
				Tier:           uint8(lease.Tier),
				IssueEpoch:     lease.IssueEpoch,
				Renewals:       lease.Renewals,
				StepsRemaining: k.leases.Budget().StepsRemaining,
			})
		}
		if err := k.append(runlog.KindLeaseExpire, LeasePayload{
			Epoch:    epoch,
			LeaseID:  dead.ID,
			Holder:   string(dead.Holder),
			Tier:     uint8(dead.Tier),
			Renewals: dead.Renewals,
			Cause:    dead.Cause,
		}); err != nil {
			return err
		}
		return k.runSuccession(TriggerExpiry)

	case !heldAtStart && epoch%k.params.Term == 0:
		// Lapse exit is attempted only at scheduled boundaries,
		// never reactively.
		return k.runSuccession(TriggerLapseExit)
	}
	return nil
}

// runSuccession executes one succession event at the current epoch:
// generate, filter, select or lapse.
func (k *Kernel) runSuccession(trigger string) error {
	epoch := k.epoch

	pool, err := k.generator.Generate(k.params.Seed, epoch)
	if err != nil {
		return fmt.Errorf("candidate generation failed at epoch %d: %w", epoch, err)
	}
	if len(pool) == 0 {
		return fmt.Errorf("%w: generator returned no candidates at epoch %d", ErrEmptyPool, epoch)
	}
	for _, c := range pool {
		if err := c.Identity.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrBadParams, err)
		}
		if c.Tier >= TierCount {
			return fmt.Errorf("%w: candidate %s has tier %d", ErrBadParams, c.Identity, c.Tier)
		}
		if c.Weight > MaxCandidateWeight {
			return fmt.Errorf("%w: candidate %s weight %d exceeds %d",
				ErrBadParams, c.Identity, c.Weight, uint64(MaxCandidateWeight))
		}
	}

	selected, eligible := k.succession.Decide(pool)

	payload := SuccessionPayload{
		Epoch:      epoch,
		Trigger:    trigger,
		Candidates: make([]CandidateRecord, 0, len(pool)),
		Eligible:   make([]string, 0, len(eligible)),
		Lapse:      selected == nil,
	}
	for _, c := range pool {
		digest := c.Manifest.Digest()
		payload.Candidates = append(payload.Candidates, CandidateRecord{
			Identity:       string(c.Identity),
			Tier:           uint8(c.Tier),
			Weight:         c.Weight,
			Manifest:       c.Manifest,
			ManifestDigest: digest[:],
		})
	}
	for _, c := range eligible {
		payload.Eligible = append(payload.Eligible, string(c.Identity))
	}

	if selected == nil {
		// Constitutional lapse: a hard, recorded outcome. The amnesty
		// counter starts only on entry, not on failed exit attempts.
		if k.mode == ModeHeld {
			k.amnesty.Reset()
		}
		k.mode = ModeNullAuthority
		return k.append(runlog.KindSuccession, payload)
	}

	payload.Selected = string(selected.Identity)
	if err := k.append(runlog.KindSuccession, payload); err != nil {
		return err
	}

	lease := k.leases.Issue(*selected, epoch)
	k.mode = ModeHeld
	k.amnesty.Reset()
	return k.append(runlog.KindLeaseIssue, LeasePayload{
		Epoch:      epoch,
		LeaseID:    lease.ID,
		Holder:     string(lease.Holder),
		Tier:       uint8(lease.Tier),
		IssueEpoch: lease.IssueEpoch,
	})
}

// append seals the payload into the next run-log record, carrying the
// state digests across the event.
func (k *Kernel) append(kind string, payload any) error {
	pre := k.lastDigest
	post := k.stateDigest()
	if _, err := k.log.Append(k.epoch, kind, codec.MustMarshal(payload), pre, post); err != nil {
		return fmt.Errorf("run log append failed: %w", err)
	}
	k.lastDigest = post
	return nil
}
