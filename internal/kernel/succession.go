package kernel

import (
	"math/rand"

	"covenant/internal/logging"
)

// SuccessionController orchestrates discrete authority transfer. At a
// succession event it filters the generator's pool through the
// eligibility gate and either selects a successor or declares
// constitutional lapse. Selection is semantics-blind: it weighs only
// generator-supplied weights, never streak values, and the weighted
// pick draws from a PRNG stream dedicated to succession so the choice
// is reproducible from the run seed alone.
type SuccessionController struct {
	gate *EligibilityGate
	rng  *rand.Rand
}

// NewSuccessionController creates a controller. The PRNG is seeded
// from the run seed; math/rand's generator is stable for a given
// seed, which the determinism property depends on.
func NewSuccessionController(gate *EligibilityGate, seed int64) *SuccessionController {
	return &SuccessionController{
		gate: gate,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Decide runs the eligibility procedure over the pool. It returns the
// eligible subset and the selected candidate, or nil when the
// eligible set is empty - the caller then enters NULL_AUTHORITY.
// No synthetic successor, no relaxed threshold, no retry.
func (sc *SuccessionController) Decide(pool []Candidate) (selected *Candidate, eligible []Candidate) {
	eligible = sc.gate.Filter(pool)
	if len(eligible) == 0 {
		logging.Succession("eligible set empty (pool %d, threshold %d): constitutional lapse",
			len(pool), sc.gate.Threshold())
		return nil, eligible
	}

	var total uint64
	for _, c := range eligible {
		total += weightOf(c)
	}

	pick := uint64(sc.rng.Int63n(int64(total)))
	for i := range eligible {
		w := weightOf(eligible[i])
		if pick < w {
			logging.Succession("selected %s from %d eligible candidates", eligible[i].Identity, len(eligible))
			return &eligible[i], eligible
		}
		pick -= w
	}

	// Unreachable: pick < total by construction.
	return &eligible[len(eligible)-1], eligible
}

// weightOf treats a zero weight as 1 so uniform pools need no
// explicit weights.
func weightOf(c Candidate) uint64 {
	if c.Weight == 0 {
		return 1
	}
	return c.Weight
}
