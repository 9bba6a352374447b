package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreakMapRecordWindow(t *testing.T) {
	s := make(StreakMap)

	assert.Equal(t, uint64(1), s.RecordWindow("governor:athena", false))
	assert.Equal(t, uint64(2), s.RecordWindow("governor:athena", false))
	assert.Equal(t, uint64(0), s.RecordWindow("governor:athena", true), "a single pass resets the streak")
	assert.Equal(t, uint64(1), s.RecordWindow("governor:athena", false))

	// Other identities are untouched.
	assert.Equal(t, uint64(0), s["governor:minerva"])
}

func TestStreakMapDecayFloorsAtZero(t *testing.T) {
	s := StreakMap{"governor:athena": 3, "governor:minerva": 1, "scribe:hermes": 0}
	s.Decay(2)
	assert.Equal(t, uint64(1), s["governor:athena"])
	assert.Equal(t, uint64(0), s["governor:minerva"])
	assert.Equal(t, uint64(0), s["scribe:hermes"])
}

func TestStreakSnapshotOrdered(t *testing.T) {
	s := StreakMap{"governor:minerva": 2, "governor:athena": 1}
	snap := s.Snapshot()
	assert.Equal(t, []StreakEntry{
		{Identity: "governor:athena", Streak: 1},
		{Identity: "governor:minerva", Streak: 2},
	}, snap)
}

func TestEligibilityGateFilter(t *testing.T) {
	gate := NewEligibilityGate(3)
	gate.Streaks()["governor:athena"] = 3
	gate.Streaks()["governor:minerva"] = 2

	pool := []Candidate{
		{Identity: "governor:athena"},
		{Identity: "governor:minerva"},
		{Identity: "scribe:hermes"}, // never seen, streak 0
	}

	eligible := gate.Filter(pool)
	assert.Len(t, eligible, 2)
	assert.Equal(t, PolicyIdentity("governor:minerva"), eligible[0].Identity)
	assert.Equal(t, PolicyIdentity("scribe:hermes"), eligible[1].Identity)

	t.Run("streak at threshold is excluded", func(t *testing.T) {
		gate.Streaks()["governor:minerva"] = 3
		assert.Len(t, gate.Filter(pool), 1)
	})
}
