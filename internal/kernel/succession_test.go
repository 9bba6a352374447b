package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideSelectsFromEligibleOnly(t *testing.T) {
	gate := NewEligibilityGate(3)
	gate.Streaks()["governor:athena"] = 4
	sc := NewSuccessionController(gate, 42)

	pool := []Candidate{
		{Identity: "governor:athena", Weight: 100},
		{Identity: "governor:minerva", Weight: 1},
	}

	selected, eligible := sc.Decide(pool)
	require.NotNil(t, selected)
	assert.Equal(t, PolicyIdentity("governor:minerva"), selected.Identity)
	assert.Len(t, eligible, 1)
}

func TestDecideLapseOnEmptyEligibleSet(t *testing.T) {
	gate := NewEligibilityGate(1)
	gate.Streaks()["governor:athena"] = 1
	gate.Streaks()["governor:minerva"] = 2
	sc := NewSuccessionController(gate, 42)

	selected, eligible := sc.Decide([]Candidate{
		{Identity: "governor:athena"},
		{Identity: "governor:minerva"},
	})
	assert.Nil(t, selected, "no synthetic successor")
	assert.Empty(t, eligible)
}

func TestDecideIsDeterministicPerSeed(t *testing.T) {
	pool := []Candidate{
		{Identity: "governor:athena", Weight: 3},
		{Identity: "governor:minerva", Weight: 2},
		{Identity: "scribe:hermes", Weight: 5},
	}

	run := func(seed int64) []PolicyIdentity {
		sc := NewSuccessionController(NewEligibilityGate(3), seed)
		picks := make([]PolicyIdentity, 0, 10)
		for i := 0; i < 10; i++ {
			selected, _ := sc.Decide(pool)
			picks = append(picks, selected.Identity)
		}
		return picks
	}

	assert.Equal(t, run(7), run(7), "same seed yields the same selection sequence")
}

func TestDecideWeighting(t *testing.T) {
	// Over many draws a candidate with all the weight should dominate;
	// exact proportions are the PRNG's business, not ours.
	pool := []Candidate{
		{Identity: "governor:athena", Weight: 99},
		{Identity: "governor:minerva", Weight: 1},
	}
	sc := NewSuccessionController(NewEligibilityGate(3), 1)

	athena := 0
	for i := 0; i < 200; i++ {
		selected, _ := sc.Decide(pool)
		if selected.Identity == "governor:athena" {
			athena++
		}
	}
	assert.Greater(t, athena, 150)
}

func TestDecideZeroWeightCountsAsOne(t *testing.T) {
	pool := []Candidate{{Identity: "governor:athena"}}
	sc := NewSuccessionController(NewEligibilityGate(3), 1)
	selected, _ := sc.Decide(pool)
	require.NotNil(t, selected)
	assert.Equal(t, PolicyIdentity("governor:athena"), selected.Identity)
}
