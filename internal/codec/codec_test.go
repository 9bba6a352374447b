package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalDeterministic(t *testing.T) {
	type payload struct {
		Epoch  uint64            `cbor:"epoch"`
		Holder string            `cbor:"holder"`
		Fields map[string]uint64 `cbor:"fields"`
	}

	p := payload{
		Epoch:  42,
		Holder: "governor:athena",
		Fields: map[string]uint64{"steps": 9, "actions": 3, "renewals": 1},
	}

	first, err := Marshal(p)
	require.NoError(t, err)

	// Map iteration order must not leak into the encoding.
	for i := 0; i < 50; i++ {
		again, err := Marshal(p)
		require.NoError(t, err)
		assert.Equal(t, first, again, "encoding diverged on iteration %d", i)
	}

	var back payload
	require.NoError(t, Unmarshal(first, &back))
	assert.Equal(t, p, back)
}

func TestHashDomainsSeparate(t *testing.T) {
	data := []byte("identical input bytes")

	state := HashState(data)
	record := HashRecord(Digest{}, data)
	manifest := HashManifest(data)

	assert.NotEqual(t, state, record)
	assert.NotEqual(t, state, manifest)
	assert.NotEqual(t, record, manifest)
}

func TestHashRecordChainsOnPrev(t *testing.T) {
	payload := []byte("record payload")

	root := HashRecord(Digest{}, payload)
	linked := HashRecord(root, payload)

	assert.NotEqual(t, root, linked, "prev digest must alter the chain hash")
}

func TestDigestHexRoundTrip(t *testing.T) {
	d := HashState([]byte("snapshot"))

	parsed, err := ParseDigest(d.String())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	_, err = ParseDigest("not-hex")
	assert.Error(t, err)

	_, err = ParseDigest("abcd")
	assert.Error(t, err, "short digests must be rejected")
}

func TestZeroDigest(t *testing.T) {
	var d Digest
	assert.True(t, d.IsZero())
	assert.False(t, HashState(nil).IsZero())
}
