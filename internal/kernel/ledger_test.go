package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covenant/internal/verifier"
)

func window(epoch uint64) verifier.Window {
	return verifier.Window{Epoch: epoch, Holder: "governor:athena"}
}

func TestSeedGenesisSealsOnce(t *testing.T) {
	cl := NewCommitmentLedger()
	require.NoError(t, cl.SeedGenesis([]Commitment{{ID: "g0", VerifierRef: "always-pass"}}))

	err := cl.SeedGenesis([]Commitment{{ID: "g1", VerifierRef: "always-pass"}})
	assert.ErrorIs(t, err, ErrGenesisSealed)

	assert.Error(t, NewCommitmentLedger().SeedGenesis(nil), "empty genesis set rejected")
}

func TestEvaluateWindowConjunction(t *testing.T) {
	registry := verifier.NewRegistry()

	t.Run("all pass", func(t *testing.T) {
		cl := NewCommitmentLedger()
		require.NoError(t, cl.SeedGenesis([]Commitment{
			{ID: "g0", VerifierRef: "always-pass"},
			{ID: "g1", VerifierRef: "always-pass"},
		}))
		res := cl.EvaluateWindow(window(1), registry)
		assert.True(t, res.Pass)
		assert.Equal(t, verifier.Pass, res.Outcomes["g0"])
	})

	t.Run("one failure fails the window", func(t *testing.T) {
		cl := NewCommitmentLedger()
		require.NoError(t, cl.SeedGenesis([]Commitment{
			{ID: "g0", VerifierRef: "always-pass"},
			{ID: "g1", VerifierRef: "always-fail"},
		}))
		assert.False(t, cl.EvaluateWindow(window(1), registry).Pass)
	})

	t.Run("inconclusive is failure, never vacuous pass", func(t *testing.T) {
		cl := NewCommitmentLedger()
		require.NoError(t, cl.SeedGenesis([]Commitment{
			{ID: "g0", VerifierRef: "always-pass"},
			{ID: "g1", VerifierRef: "inconclusive"},
		}))
		res := cl.EvaluateWindow(window(1), registry)
		assert.False(t, res.Pass)
		assert.Equal(t, verifier.Inconclusive, res.Outcomes["g1"])
	})

	t.Run("unresolved verifier is failure", func(t *testing.T) {
		cl := NewCommitmentLedger()
		require.NoError(t, cl.SeedGenesis([]Commitment{{ID: "g0", VerifierRef: "nowhere"}}))
		res := cl.EvaluateWindow(window(1), registry)
		assert.False(t, res.Pass)
		assert.Equal(t, verifier.Inconclusive, res.Outcomes["g0"])
	})

	t.Run("no live genesis commitment is failure", func(t *testing.T) {
		cl := NewCommitmentLedger()
		require.NoError(t, cl.SeedGenesis([]Commitment{{ID: "g0", VerifierRef: "always-pass", TTL: 2}}))
		cl.ExpireDue(2)
		assert.False(t, cl.EvaluateWindow(window(3), registry).Pass)
	})
}

func TestSuccessorCommitmentsNeverGate(t *testing.T) {
	registry := verifier.NewRegistry()
	cl := NewCommitmentLedger()
	require.NoError(t, cl.SeedGenesis([]Commitment{{ID: "g0", VerifierRef: "always-pass"}}))
	require.NoError(t, cl.Declare("s0", "always-fail", 0, 4))

	res := cl.EvaluateWindow(window(5), registry)
	assert.True(t, res.Pass, "a failing successor commitment must not fail the window")
	assert.Equal(t, verifier.Fail, res.Outcomes["s0"], "but its verdict is still tracked")
}

func TestExpireDue(t *testing.T) {
	cl := NewCommitmentLedger()
	require.NoError(t, cl.SeedGenesis([]Commitment{
		{ID: "forever", VerifierRef: "always-pass", TTL: 0},
		{ID: "short", VerifierRef: "always-pass", TTL: 3},
	}))
	require.NoError(t, cl.Declare("late", "always-pass", 2, 5))

	assert.Empty(t, cl.ExpireDue(2))
	assert.Equal(t, []string{"short"}, cl.ExpireDue(3))
	assert.Equal(t, []string{"late"}, cl.ExpireDue(7))

	for _, c := range cl.Snapshot() {
		switch c.ID {
		case "forever":
			assert.NotEqual(t, CommitmentExpired, c.Status)
		case "short", "late":
			assert.Equal(t, CommitmentExpired, c.Status)
		}
	}
}

func TestDuplicateCommitmentIDs(t *testing.T) {
	cl := NewCommitmentLedger()
	require.NoError(t, cl.SeedGenesis([]Commitment{{ID: "g0", VerifierRef: "always-pass"}}))
	assert.Error(t, cl.Declare("g0", "always-pass", 0, 1))
}
