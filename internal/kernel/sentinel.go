package kernel

import (
	"fmt"
	"unicode/utf8"

	"covenant/internal/logging"
)

// Violation kinds. A violation is structural: interface conformance
// or resource-bound breach, never semantic content.
const (
	ViolationMalformedAction = "malformed_action" // Empty or non-UTF-8 action kind
	ViolationStepsBound      = "steps_bound"      // Declared steps exceed the lease's per-epoch cap
)

// Violation is a sentinel finding. Any violation is immediately fatal
// to the current lease, independent of the epoch boundary.
type Violation struct {
	Kind   string
	Detail string
}

func (v *Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Detail)
}

// Sentinel is the structural enforcement gate. It checks interface
// conformance and resource-bound compliance of each proposed action
// and nothing else: commitment state and pass/fail history are
// invisible to it. It is the only path to lease revocation.
//
// Running out of budget is not a violation: an action that merely
// does not fit the remaining budget is rejected, not punished.
type Sentinel struct{}

// Check inspects one proposed action against the lease's structural
// bounds. Returns nil when the action conforms.
func (s *Sentinel) Check(action Action, lease *AuthorityLease) *Violation {
	if action.Kind == "" {
		return &Violation{
			Kind:   ViolationMalformedAction,
			Detail: "action kind is empty",
		}
	}
	if !utf8.ValidString(action.Kind) {
		return &Violation{
			Kind:   ViolationMalformedAction,
			Detail: "action kind is not valid UTF-8",
		}
	}
	if action.Steps > lease.StepsCap {
		v := &Violation{
			Kind:   ViolationStepsBound,
			Detail: fmt.Sprintf("action declares %d steps, lease cap is %d", action.Steps, lease.StepsCap),
		}
		logging.Sentinel("lease %s: %s", lease.ID, v)
		return v
	}
	return nil
}
