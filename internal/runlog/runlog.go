// Package runlog implements the persisted run log: an append-only,
// hash-chained sequence of records, one per epoch tick and per
// lease-lifecycle event. Each record carries the pre-state and
// post-state digests and a canonically serialized payload; replay
// reconstructs the run from this log alone, never re-invoking a
// collaborator. Any mismatch between logged and recomputed digests
// invalidates the run.
package runlog

import (
	"errors"
	"fmt"

	"covenant/internal/codec"
)

// Record kinds.
const (
	KindGenesis           = "genesis"
	KindTick              = "tick"
	KindSuccession        = "succession"
	KindLeaseIssue        = "lease_issue"
	KindLeaseRenew        = "lease_renew"
	KindLeaseExpire       = "lease_expire"
	KindLeaseRevoke       = "lease_revoke"
	KindCommitmentDeclare = "commitment_declare"
)

// ErrDivergence is returned when a logged digest does not match the
// recomputed one. It is fatal to experiment validity and must surface
// loudly; nothing in this package or its callers corrects it
// silently.
var ErrDivergence = errors.New("replay divergence")

// Record is one entry in the hash chain.
type Record struct {
	Seq     uint64
	Epoch   uint64
	Kind    string
	Payload []byte // Canonical CBOR, integers and strings only
	Pre     codec.Digest
	Post    codec.Digest
	Prev    codec.Digest // Hash of the preceding record; zero for the first
	Hash    codec.Digest
}

// recordBody is the hashed portion of a record. The chain link (Prev)
// is mixed in by codec.HashRecord, not duplicated here.
type recordBody struct {
	Seq     uint64 `cbor:"seq"`
	Epoch   uint64 `cbor:"epoch"`
	Kind    string `cbor:"kind"`
	Payload []byte `cbor:"payload"`
	Pre     []byte `cbor:"pre"`
	Post    []byte `cbor:"post"`
}

// ComputeHash derives the record's chain hash from its fields and the
// previous record's hash.
func (r *Record) ComputeHash() codec.Digest {
	body := codec.MustMarshal(recordBody{
		Seq:     r.Seq,
		Epoch:   r.Epoch,
		Kind:    r.Kind,
		Payload: r.Payload,
		Pre:     r.Pre[:],
		Post:    r.Post[:],
	})
	return codec.HashRecord(r.Prev, body)
}

// Log is an append-only record sink plus read-back for replay.
type Log interface {
	// Append seals and stores the next record. Seq, Prev, and Hash
	// are assigned by the log; the caller supplies everything else.
	Append(epoch uint64, kind string, payload []byte, pre, post codec.Digest) (Record, error)
	// Records returns all records in append order.
	Records() ([]Record, error)
	// LastHash returns the chain head, or the zero digest when empty.
	LastHash() codec.Digest
	// Len returns the number of records.
	Len() uint64
}

// Verify walks a record sequence and checks every chain property:
// sequence numbering, prev linkage, recomputed hashes, and pre/post
// state continuity. Returns ErrDivergence on the first breach.
func Verify(records []Record) error {
	var prevHash codec.Digest
	var prevPost codec.Digest

	for i, r := range records {
		if r.Seq != uint64(i) {
			return fmt.Errorf("%w: record %d carries seq %d", ErrDivergence, i, r.Seq)
		}
		if r.Prev != prevHash {
			return fmt.Errorf("%w: record %d prev hash mismatch", ErrDivergence, i)
		}
		if i == 0 {
			if !r.Pre.IsZero() {
				return fmt.Errorf("%w: first record pre-state is not the zero digest", ErrDivergence)
			}
		} else if r.Pre != prevPost {
			return fmt.Errorf("%w: record %d pre-state does not continue record %d post-state", ErrDivergence, i, i-1)
		}
		if got := r.ComputeHash(); got != r.Hash {
			return fmt.Errorf("%w: record %d hash mismatch (logged %s, recomputed %s)",
				ErrDivergence, i, r.Hash, got)
		}
		prevHash = r.Hash
		prevPost = r.Post
	}
	return nil
}
