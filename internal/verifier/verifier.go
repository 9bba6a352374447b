// Package verifier defines the commitment verifier contract and the
// implementations shipped with the harness. Verifiers are external
// collaborators from the kernel's point of view: side-effect-free
// predicates over the trace facts of one epoch window, replayable
// from logged artifacts alone.
package verifier

import "fmt"

// Outcome is a verifier verdict. Anything other than an explicit PASS
// or FAIL is INCONCLUSIVE, and the kernel resolves INCONCLUSIVE to
// window failure - there is no vacuous pass.
type Outcome uint8

const (
	Inconclusive Outcome = iota
	Pass
	Fail
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "PASS"
	case Fail:
		return "FAIL"
	case Inconclusive:
		return "INCONCLUSIVE"
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

// Fact is a single trace fact in an epoch window, in Datalog shape:
// a predicate name and constant arguments (strings and int64 only;
// nothing floating-point reaches a verifier).
type Fact struct {
	Predicate string
	Args      []interface{}
}

// Window carries everything a verifier may consult about one epoch:
// the epoch number, the holder (empty during lapse), and the logged
// trace facts. Verifiers must not reach beyond it.
type Window struct {
	Epoch  uint64
	Holder string
	Facts  []Fact
}

// Verifier evaluates one commitment against one epoch window.
type Verifier interface {
	Evaluate(w Window) Outcome
}

// Func adapts a plain function to the Verifier interface.
type Func func(w Window) Outcome

// Evaluate implements Verifier.
func (f Func) Evaluate(w Window) Outcome { return f(w) }

// Registry resolves verifier references from commitment declarations.
type Registry struct {
	verifiers map[string]Verifier
}

// NewRegistry returns a registry preloaded with the builtin
// verifiers: "always-pass", "always-fail", "inconclusive".
func NewRegistry() *Registry {
	r := &Registry{verifiers: make(map[string]Verifier)}
	r.Register("always-pass", Func(func(Window) Outcome { return Pass }))
	r.Register("always-fail", Func(func(Window) Outcome { return Fail }))
	r.Register("inconclusive", Func(func(Window) Outcome { return Inconclusive }))
	return r
}

// Register binds a verifier to a reference name. Later registrations
// replace earlier ones.
func (r *Registry) Register(ref string, v Verifier) {
	r.verifiers[ref] = v
}

// Resolve looks up a verifier by reference.
func (r *Registry) Resolve(ref string) (Verifier, bool) {
	v, ok := r.verifiers[ref]
	return v, ok
}

// Scripted replays a fixed per-epoch outcome sequence, defaulting to
// the given fallback for epochs outside the script. Used by the test
// harness to drive exact pass/fail sequences.
type Scripted struct {
	Outcomes map[uint64]Outcome
	Default  Outcome
}

// Evaluate implements Verifier.
func (s *Scripted) Evaluate(w Window) Outcome {
	if o, ok := s.Outcomes[w.Epoch]; ok {
		return o
	}
	return s.Default
}
