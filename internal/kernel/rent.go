package kernel

import (
	"errors"
	"fmt"
)

// Rent schedule errors. Both are configuration errors: the kernel
// refuses to start on either.
var (
	ErrNonMonotonicRent = errors.New("rent schedule is not strictly increasing")
	ErrRentExceedsCap   = errors.New("rent meets or exceeds steps cap")
)

// RentLedger assigns each expressivity tier its per-epoch resource
// tax under a schedule frozen at construction. Rent is charged once
// at the start of each held epoch, before any agent action is
// admitted.
type RentLedger struct {
	schedule   [TierCount]uint64
	stepsCap   uint64
	actionsCap uint64
}

// NewRentLedger validates and freezes a rent schedule. The schedule
// must be strictly increasing in tier ordinal and strictly below the
// steps cap at every tier.
func NewRentLedger(schedule []uint64, stepsCap, actionsCap uint64) (*RentLedger, error) {
	if len(schedule) != TierCount {
		return nil, fmt.Errorf("rent schedule needs %d tiers, got %d", TierCount, len(schedule))
	}

	rl := &RentLedger{stepsCap: stepsCap, actionsCap: actionsCap}
	for i, r := range schedule {
		if i > 0 && r <= schedule[i-1] {
			return nil, fmt.Errorf("%w: rent(E%d)=%d <= rent(E%d)=%d",
				ErrNonMonotonicRent, i, r, i-1, schedule[i-1])
		}
		if r >= stepsCap {
			return nil, fmt.Errorf("%w: rent(E%d)=%d >= steps_cap=%d",
				ErrRentExceedsCap, i, r, stepsCap)
		}
		rl.schedule[i] = r
	}
	return rl, nil
}

// Rent returns the per-epoch step tax for a tier.
func (rl *RentLedger) Rent(tier Tier) uint64 {
	return rl.schedule[tier]
}

// EffectiveBudget returns the post-rent budget a lease of the given
// tier starts each epoch with. Rent is below the cap at every tier,
// so the result is always positive.
func (rl *RentLedger) EffectiveBudget(tier Tier) Budget {
	return Budget{
		StepsRemaining:   rl.stepsCap - rl.schedule[tier],
		ActionsRemaining: rl.actionsCap,
	}
}

// StepsCap returns the pre-rent step cap.
func (rl *RentLedger) StepsCap() uint64 { return rl.stepsCap }

// ActionsCap returns the per-epoch action cap.
func (rl *RentLedger) ActionsCap() uint64 { return rl.actionsCap }
