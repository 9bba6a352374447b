package kernel

import (
	"fmt"

	"covenant/internal/codec"
	"covenant/internal/logging"
	"covenant/internal/runlog"
	"covenant/internal/verifier"
)

// Replay re-executes a run from its log alone. The frozen parameters
// come from the genesis record; candidate pools, proposed actions,
// and verifier verdicts come from the logged records, so no
// non-deterministic collaborator is ever re-invoked. The re-executed
// kernel produces a fresh record chain, and any difference from the
// logged one - a single hash - is runlog.ErrDivergence. Divergence is
// fatal to experiment validity and is never corrected silently.
func Replay(records []runlog.Record) error {
	timer := logging.StartTimer(logging.CategoryRunlog, "replay")
	defer timer.Stop()

	if err := runlog.Verify(records); err != nil {
		return err
	}
	if len(records) == 0 || records[0].Kind != runlog.KindGenesis {
		return fmt.Errorf("%w: log does not open with a genesis record", runlog.ErrDivergence)
	}

	var genesis GenesisPayload
	if err := codec.Unmarshal(records[0].Payload, &genesis); err != nil {
		return fmt.Errorf("%w: corrupt genesis record: %v", runlog.ErrDivergence, err)
	}

	src, err := extractReplaySource(records, genesis)
	if err != nil {
		return err
	}

	params := Params{
		Seed:                  genesis.Seed,
		Horizon:               genesis.Horizon,
		StepsCap:              genesis.StepsCap,
		ActionsCap:            genesis.ActionsCap,
		RenewalCost:           genesis.RenewalCost,
		CommitmentCost:        genesis.CommitmentCost,
		MaxSuccessiveRenewals: genesis.MaxSuccessiveRenewals,
		Term:                  genesis.Term,
		RentSchedule:          genesis.RentSchedule,
		Threshold:             genesis.Threshold,
		AmnestyInterval:       genesis.AmnestyInterval,
		AmnestyDecay:          genesis.AmnestyDecay,
		Genesis:               genesis.Commitments,
	}

	registry := verifier.NewRegistry()
	for ref, byEpoch := range src.outcomes {
		registry.Register(ref, &verifier.Scripted{Outcomes: byEpoch, Default: verifier.Inconclusive})
	}

	replayed := runlog.NewMemoryLog()
	k, err := New(params, Deps{
		Generator: src,
		Verifiers: registry,
		Agent:     src.agent,
		Log:       replayed,
	})
	if err != nil {
		return fmt.Errorf("%w: re-initialization failed: %v", runlog.ErrDivergence, err)
	}

	if err := src.applyDeclares(k, 0); err != nil {
		return err
	}
	for k.epoch < params.Horizon {
		if err := k.Tick(); err != nil {
			return fmt.Errorf("%w: re-execution failed at epoch %d: %v", runlog.ErrDivergence, k.epoch, err)
		}
		if err := src.applyDeclares(k, k.epoch); err != nil {
			return err
		}
	}

	produced, err := replayed.Records()
	if err != nil {
		return err
	}
	if len(produced) != len(records) {
		return fmt.Errorf("%w: re-execution produced %d records, log has %d",
			runlog.ErrDivergence, len(produced), len(records))
	}
	for i := range records {
		if produced[i].Hash != records[i].Hash {
			return fmt.Errorf("%w: record %d (%s, epoch %d) recomputed %s, logged %s",
				runlog.ErrDivergence, i, records[i].Kind, records[i].Epoch,
				produced[i].Hash, records[i].Hash)
		}
	}

	logging.Runlog("replay verified %d records, final state %s", len(records), records[len(records)-1].Post)
	return nil
}

// replaySource implements the collaborator interfaces from logged
// artifacts.
type replaySource struct {
	pools    map[uint64][]Candidate
	actions  map[uint64][]Action
	outcomes map[string]map[uint64]verifier.Outcome // Verifier ref -> epoch -> verdict
	declares []CommitmentDecl
}

// Generate implements CandidateGenerator from the succession records.
func (s *replaySource) Generate(_ int64, epoch uint64) ([]Candidate, error) {
	pool, ok := s.pools[epoch]
	if !ok {
		return nil, fmt.Errorf("%w: no logged candidate pool for epoch %d", runlog.ErrDivergence, epoch)
	}
	return pool, nil
}

// agent replays the logged proposal sequence.
func (s *replaySource) agent(_ AuthorityLease, _ Budget, epoch uint64) []Action {
	return s.actions[epoch]
}

// applyDeclares re-applies successor commitment declarations logged
// at the given epoch.
func (s *replaySource) applyDeclares(k *Kernel, epoch uint64) error {
	for _, d := range s.declares {
		if d.Epoch != epoch {
			continue
		}
		if err := k.DeclareCommitment(d.ID, d.VerifierRef, d.TTL); err != nil {
			return fmt.Errorf("%w: re-declaration of %q failed: %v", runlog.ErrDivergence, d.ID, err)
		}
	}
	return nil
}

// extractReplaySource decodes the logged collaborator outputs.
func extractReplaySource(records []runlog.Record, genesis GenesisPayload) (*replaySource, error) {
	src := &replaySource{
		pools:    make(map[uint64][]Candidate),
		actions:  make(map[uint64][]Action),
		outcomes: make(map[string]map[uint64]verifier.Outcome),
	}

	// Commitment id -> verifier ref, accreted as declarations appear.
	refs := make(map[string]string)
	for _, decl := range genesis.Commitments {
		refs[decl.ID] = decl.VerifierRef
	}

	for _, r := range records {
		switch r.Kind {
		case runlog.KindSuccession:
			var ev SuccessionPayload
			if err := codec.Unmarshal(r.Payload, &ev); err != nil {
				return nil, fmt.Errorf("%w: corrupt succession record %d: %v", runlog.ErrDivergence, r.Seq, err)
			}
			pool := make([]Candidate, 0, len(ev.Candidates))
			for _, c := range ev.Candidates {
				pool = append(pool, Candidate{
					Identity: PolicyIdentity(c.Identity),
					Tier:     Tier(c.Tier),
					Weight:   c.Weight,
					Manifest: c.Manifest,
				})
			}
			src.pools[ev.Epoch] = pool

		case runlog.KindTick:
			var tick TickPayload
			if err := codec.Unmarshal(r.Payload, &tick); err != nil {
				return nil, fmt.Errorf("%w: corrupt tick record %d: %v", runlog.ErrDivergence, r.Seq, err)
			}
			if len(tick.Actions) > 0 {
				proposed := make([]Action, 0, len(tick.Actions))
				for _, a := range tick.Actions {
					proposed = append(proposed, Action{Kind: a.Kind, Steps: a.Steps})
				}
				src.actions[tick.Epoch] = proposed
			}
			for _, o := range tick.Outcomes {
				ref, ok := refs[o.ID]
				if !ok {
					return nil, fmt.Errorf("%w: verdict for undeclared commitment %q", runlog.ErrDivergence, o.ID)
				}
				outcome, err := parseOutcome(o.Outcome)
				if err != nil {
					return nil, fmt.Errorf("%w: record %d: %v", runlog.ErrDivergence, r.Seq, err)
				}
				if src.outcomes[ref] == nil {
					src.outcomes[ref] = make(map[uint64]verifier.Outcome)
				}
				src.outcomes[ref][tick.Epoch] = outcome
			}

		case runlog.KindCommitmentDeclare:
			var decl CommitmentDecl
			if err := codec.Unmarshal(r.Payload, &decl); err != nil {
				return nil, fmt.Errorf("%w: corrupt declaration record %d: %v", runlog.ErrDivergence, r.Seq, err)
			}
			refs[decl.ID] = decl.VerifierRef
			src.declares = append(src.declares, decl)
		}
	}
	return src, nil
}

func parseOutcome(s string) (verifier.Outcome, error) {
	switch s {
	case verifier.Pass.String():
		return verifier.Pass, nil
	case verifier.Fail.String():
		return verifier.Fail, nil
	case verifier.Inconclusive.String():
		return verifier.Inconclusive, nil
	}
	return verifier.Inconclusive, fmt.Errorf("unknown outcome %q", s)
}
