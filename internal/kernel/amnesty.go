package kernel

import "covenant/internal/logging"

// AmnestyClock is the constitutional temporal amnesty rule: a
// kernel-owned, time-only streak decay active exclusively during
// NULL_AUTHORITY. Every interval lapse-epochs it decrements every
// streak by decay, floor zero. It consults nothing but its own
// lapse-duration counter, which is what guarantees lapse is not an
// absorbing state: with interval and decay both positive and K
// finite, some streak eventually falls below K.
type AmnestyClock struct {
	interval    uint64
	decay       uint64
	lapseEpochs uint64 // Epochs spent in the current lapse
}

// NewAmnestyClock creates a clock. interval == 0 or decay == 0
// disables amnesty entirely (lapse then ends only if the pool or
// threshold makes it so).
func NewAmnestyClock(interval, decay uint64) *AmnestyClock {
	return &AmnestyClock{interval: interval, decay: decay}
}

// ObserveLapseEpoch advances the lapse counter by one epoch and
// applies decay when the interval elapses. Returns true when amnesty
// fired. Must be called exactly once per epoch spent in lapse, and
// never otherwise.
func (a *AmnestyClock) ObserveLapseEpoch(streaks StreakMap) bool {
	a.lapseEpochs++
	if a.interval == 0 || a.decay == 0 {
		return false
	}
	if a.lapseEpochs%a.interval != 0 {
		return false
	}
	streaks.Decay(a.decay)
	logging.Succession("amnesty fired after %d lapse epochs: all streaks -%d", a.lapseEpochs, a.decay)
	return true
}

// Reset clears the lapse counter. Called when authority is
// re-established.
func (a *AmnestyClock) Reset() {
	a.lapseEpochs = 0
}

// LapseEpochs returns the epochs spent in the current lapse.
func (a *AmnestyClock) LapseEpochs() uint64 { return a.lapseEpochs }
