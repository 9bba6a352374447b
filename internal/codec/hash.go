package codec

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 digest. State digests, record digests,
// and chain links are all this size.
type Digest [32]byte

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Domain
// separation keeps a state digest from ever colliding with a record
// digest over the same bytes. Keys are the ASCII domain name padded
// with zero bytes so they stay readable in hex dumps.
type domainKey [32]byte

var (
	stateDomainKey = domainKey{
		'c', 'o', 'v', 'e', 'n', 'a', 'n', 't', '.', 's', 't', 'a', 't', 'e',
	}

	recordDomainKey = domainKey{
		'c', 'o', 'v', 'e', 'n', 'a', 'n', 't', '.', 'r', 'e', 'c', 'o', 'r', 'd',
	}

	manifestDomainKey = domainKey{
		'c', 'o', 'v', 'e', 'n', 'a', 'n', 't', '.', 'm', 'a', 'n', 'i', 'f', 'e', 's', 't',
	}
)

func keyedHash(key domainKey, data []byte) Digest {
	h, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("codec: BLAKE3 keyed hasher rejected 32-byte key: " + err.Error())
	}
	h.Write(data)

	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// HashState computes the state-domain digest of a canonically encoded
// kernel state snapshot.
func HashState(encoded []byte) Digest {
	return keyedHash(stateDomainKey, encoded)
}

// HashRecord computes the record-domain digest of a run-log record:
// the previous chain digest followed by the record's canonical bytes.
func HashRecord(prev Digest, encoded []byte) Digest {
	buf := make([]byte, 0, len(prev)+len(encoded))
	buf = append(buf, prev[:]...)
	buf = append(buf, encoded...)
	return keyedHash(recordDomainKey, buf)
}

// HashManifest computes the manifest-domain digest of an opaque
// candidate manifest blob.
func HashManifest(blob []byte) Digest {
	return keyedHash(manifestDomainKey, blob)
}

// String returns the lowercase hex form of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest decodes a 64-character hex digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, err
	}
	if len(raw) != len(d) {
		return d, hex.ErrLength
	}
	copy(d[:], raw)
	return d, nil
}

// IsZero reports whether the digest is all zero bytes. The zero
// digest is the chain root before any record is appended.
func (d Digest) IsZero() bool {
	return d == Digest{}
}
