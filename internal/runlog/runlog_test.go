package runlog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covenant/internal/codec"
)

// appendSome writes n records with a continuous pre/post state
// sequence, the way the kernel does.
func appendSome(t *testing.T, l Log, n int) []Record {
	t.Helper()
	var out []Record
	pre := codec.Digest{}
	for i := 0; i < n; i++ {
		payload := codec.MustMarshal(map[string]uint64{"i": uint64(i)})
		post := codec.HashState(payload)
		r, err := l.Append(uint64(i), KindTick, payload, pre, post)
		require.NoError(t, err)
		out = append(out, r)
		pre = post
	}
	return out
}

func TestMemoryLogChain(t *testing.T) {
	l := NewMemoryLog()
	records := appendSome(t, l, 5)

	assert.Equal(t, uint64(5), l.Len())
	assert.Equal(t, records[4].Hash, l.LastHash())

	got, err := l.Records()
	require.NoError(t, err)
	require.NoError(t, Verify(got))

	// First record chains from the zero digest.
	assert.True(t, got[0].Prev.IsZero())
	assert.Equal(t, got[0].Hash, got[1].Prev)
}

func TestVerifyDetectsTampering(t *testing.T) {
	l := NewMemoryLog()
	appendSome(t, l, 4)
	records, err := l.Records()
	require.NoError(t, err)

	t.Run("payload edit", func(t *testing.T) {
		tampered := make([]Record, len(records))
		copy(tampered, records)
		tampered[2].Payload = codec.MustMarshal(map[string]uint64{"i": 99})
		assert.ErrorIs(t, Verify(tampered), ErrDivergence)
	})

	t.Run("dropped record", func(t *testing.T) {
		tampered := append([]Record{}, records[:2]...)
		tampered = append(tampered, records[3])
		assert.ErrorIs(t, Verify(tampered), ErrDivergence)
	})

	t.Run("state discontinuity", func(t *testing.T) {
		tampered := make([]Record, len(records))
		copy(tampered, records)
		tampered[1].Pre = codec.HashState([]byte("elsewhere"))
		assert.ErrorIs(t, Verify(tampered), ErrDivergence)
	})

	t.Run("intact chain verifies", func(t *testing.T) {
		assert.NoError(t, Verify(records))
	})
}

func TestSQLiteLogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")

	l, err := OpenSQLiteLog(path)
	require.NoError(t, err)
	written := appendSome(t, l, 6)
	require.NoError(t, l.Close())

	// Reopen and confirm the chain picks up at its head.
	l2, err := OpenSQLiteLog(path)
	require.NoError(t, err)
	defer l2.Close()

	assert.Equal(t, uint64(6), l2.Len())
	assert.Equal(t, written[5].Hash, l2.LastHash())

	records, err := l2.Records()
	require.NoError(t, err)
	require.Len(t, records, 6)
	require.NoError(t, Verify(records))

	// Appends continue the existing chain.
	last := records[5]
	r, err := l2.Append(6, KindTick, codec.MustMarshal(map[string]uint64{"i": 6}), last.Post, codec.HashState([]byte("next")))
	require.NoError(t, err)
	assert.Equal(t, last.Hash, r.Prev)
	assert.Equal(t, uint64(6), r.Seq)
}
