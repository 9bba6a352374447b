package runlog

import (
	"covenant/internal/codec"
	"covenant/internal/logging"
)

// MemoryLog keeps the chain in memory. Used by tests and by runs that
// do not configure a database path.
type MemoryLog struct {
	records []Record
}

// NewMemoryLog returns an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append implements Log.
func (m *MemoryLog) Append(epoch uint64, kind string, payload []byte, pre, post codec.Digest) (Record, error) {
	r := Record{
		Seq:     uint64(len(m.records)),
		Epoch:   epoch,
		Kind:    kind,
		Payload: payload,
		Pre:     pre,
		Post:    post,
		Prev:    m.LastHash(),
	}
	r.Hash = r.ComputeHash()
	m.records = append(m.records, r)
	logging.Runlog("seq=%d epoch=%d kind=%s hash=%s", r.Seq, r.Epoch, r.Kind, r.Hash)
	return r, nil
}

// Records implements Log.
func (m *MemoryLog) Records() ([]Record, error) {
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

// LastHash implements Log.
func (m *MemoryLog) LastHash() codec.Digest {
	if len(m.records) == 0 {
		return codec.Digest{}
	}
	return m.records[len(m.records)-1].Hash
}

// Len implements Log.
func (m *MemoryLog) Len() uint64 {
	return uint64(len(m.records))
}
