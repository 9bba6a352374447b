package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covenant/internal/config"
	"covenant/internal/kernel"
)

func TestNewFixedPool(t *testing.T) {
	t.Run("valid pool", func(t *testing.T) {
		p, err := NewFixedPool([]config.PoolEntry{
			{Identity: "governor:athena", Tier: 1, Weight: 3, Manifest: "blob-a"},
			{Identity: "governor:minerva", Tier: 2},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, p.Size())
	})

	t.Run("empty pool rejected", func(t *testing.T) {
		_, err := NewFixedPool(nil)
		assert.ErrorIs(t, err, kernel.ErrEmptyPool)
	})

	t.Run("malformed identity rejected", func(t *testing.T) {
		_, err := NewFixedPool([]config.PoolEntry{{Identity: "nocategory"}})
		assert.Error(t, err)
	})

	t.Run("duplicate identity rejected", func(t *testing.T) {
		_, err := NewFixedPool([]config.PoolEntry{
			{Identity: "governor:athena"},
			{Identity: "governor:athena"},
		})
		assert.Error(t, err)
	})
}

func TestGenerateIsDeterministicAndIsolated(t *testing.T) {
	p, err := NewFixedPool([]config.PoolEntry{
		{Identity: "governor:athena", Tier: 1, Weight: 2, Manifest: "blob"},
		{Identity: "scribe:hermes", Tier: 0},
	})
	require.NoError(t, err)

	first, err := p.Generate(42, 0)
	require.NoError(t, err)
	second, err := p.Generate(42, 17)
	require.NoError(t, err)
	assert.Equal(t, first, second, "pool is identical at every succession event")

	// Mutating a returned slice must not leak into the generator.
	first[0].Weight = 99
	third, err := p.Generate(42, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), third[0].Weight)
}
