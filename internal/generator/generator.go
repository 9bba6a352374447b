// Package generator provides the candidate generators shipped with
// the harness. A generator is an external collaborator to the kernel:
// it supplies the succession pool and must be deterministic in
// (seed, epoch). The kernel logs the raw pool at every succession
// event, so replay never calls a generator at all.
//
// The research harnesses this kernel serves drive candidate
// generation from LLMs; that belongs outside the deterministic core,
// behind this same interface, with its raw output logged the same
// way.
package generator

import (
	"fmt"

	"covenant/internal/config"
	"covenant/internal/kernel"
)

// FixedPool serves the same finite candidate pool at every
// succession event, the standard profile for a fixed-population run.
type FixedPool struct {
	candidates []kernel.Candidate
}

// NewFixedPool builds a pool generator from config entries.
func NewFixedPool(entries []config.PoolEntry) (*FixedPool, error) {
	if len(entries) == 0 {
		return nil, kernel.ErrEmptyPool
	}

	pool := make([]kernel.Candidate, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		id := kernel.PolicyIdentity(e.Identity)
		if err := id.Validate(); err != nil {
			return nil, err
		}
		if seen[e.Identity] {
			return nil, fmt.Errorf("duplicate pool identity %q", e.Identity)
		}
		seen[e.Identity] = true
		pool = append(pool, kernel.Candidate{
			Identity: id,
			Tier:     kernel.Tier(e.Tier),
			Weight:   e.Weight,
			Manifest: kernel.Manifest(e.Manifest),
		})
	}
	return &FixedPool{candidates: pool}, nil
}

// Generate implements kernel.CandidateGenerator. The pool is copied
// so callers cannot alias the generator's state.
func (p *FixedPool) Generate(_ int64, _ uint64) ([]kernel.Candidate, error) {
	out := make([]kernel.Candidate, len(p.candidates))
	copy(out, p.candidates)
	return out, nil
}

// Size returns the pool size.
func (p *FixedPool) Size() int { return len(p.candidates) }
