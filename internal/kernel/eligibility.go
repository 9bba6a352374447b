package kernel

import (
	"sort"

	"covenant/internal/logging"
)

// StreakMap tracks consecutive semantic-failure counts per policy
// identity. History belongs to the policy class, not the lease: it
// survives lease destruction and succession.
//
// Updates happen only at epoch end, only for the identity that held
// authority that epoch: +1 on window failure, reset to 0 on window
// pass. The amnesty clock is the only other writer, and only during
// lapse.
type StreakMap map[PolicyIdentity]uint64

// RecordWindow applies one epoch-end verdict for the active identity.
func (s StreakMap) RecordWindow(id PolicyIdentity, pass bool) uint64 {
	if pass {
		s[id] = 0
	} else {
		s[id]++
	}
	return s[id]
}

// Decay subtracts amount from every streak, flooring at zero. Only
// the amnesty clock calls this.
func (s StreakMap) Decay(amount uint64) {
	for id, streak := range s {
		if streak <= amount {
			s[id] = 0
		} else {
			s[id] = streak - amount
		}
	}
}

// Snapshot returns the streaks in identity order, for state hashing
// and reporting.
func (s StreakMap) Snapshot() []StreakEntry {
	out := make([]StreakEntry, 0, len(s))
	for id, streak := range s {
		out = append(out, StreakEntry{Identity: string(id), Streak: streak})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

// StreakEntry is one streak map row in canonical order.
type StreakEntry struct {
	Identity string `cbor:"identity"`
	Streak   uint64 `cbor:"streak"`
}

// EligibilityGate filters the candidate pool at succession events.
// The threshold K is frozen for the run; the gate is consulted
// nowhere else - renewal, rent, and the sentinel never see streaks.
type EligibilityGate struct {
	threshold uint64
	streaks   StreakMap
}

// NewEligibilityGate creates a gate over a fresh streak map.
func NewEligibilityGate(threshold uint64) *EligibilityGate {
	return &EligibilityGate{threshold: threshold, streaks: make(StreakMap)}
}

// Streaks exposes the underlying map for epoch-end updates and state
// snapshots.
func (g *EligibilityGate) Streaks() StreakMap { return g.streaks }

// Threshold returns the frozen K.
func (g *EligibilityGate) Threshold() uint64 { return g.threshold }

// Filter returns the candidates with streak < K, preserving pool
// order. Identities never seen before have streak 0 and pass.
func (g *EligibilityGate) Filter(pool []Candidate) []Candidate {
	eligible := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if g.streaks[c.Identity] < g.threshold {
			eligible = append(eligible, c)
		}
	}
	logging.SuccessionDebug("eligibility filter: %d of %d candidates below threshold %d",
		len(eligible), len(pool), g.threshold)
	return eligible
}
