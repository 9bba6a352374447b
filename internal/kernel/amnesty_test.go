package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmnestyClockFiresOnInterval(t *testing.T) {
	clock := NewAmnestyClock(5, 1)
	streaks := StreakMap{"governor:athena": 3}

	for i := 0; i < 4; i++ {
		assert.False(t, clock.ObserveLapseEpoch(streaks), "epoch %d of lapse", i+1)
	}
	assert.Equal(t, uint64(3), streaks["governor:athena"], "no decay before the interval elapses")

	assert.True(t, clock.ObserveLapseEpoch(streaks))
	assert.Equal(t, uint64(2), streaks["governor:athena"])

	// Second interval within the same lapse.
	for i := 0; i < 4; i++ {
		assert.False(t, clock.ObserveLapseEpoch(streaks))
	}
	assert.True(t, clock.ObserveLapseEpoch(streaks))
	assert.Equal(t, uint64(1), streaks["governor:athena"])
}

func TestAmnestyClockResetOnReestablishment(t *testing.T) {
	clock := NewAmnestyClock(3, 1)
	streaks := StreakMap{"governor:athena": 5}

	clock.ObserveLapseEpoch(streaks)
	clock.ObserveLapseEpoch(streaks)
	clock.Reset()
	assert.Equal(t, uint64(0), clock.LapseEpochs())

	// A fresh lapse starts its interval from zero.
	assert.False(t, clock.ObserveLapseEpoch(streaks))
	assert.False(t, clock.ObserveLapseEpoch(streaks))
	assert.True(t, clock.ObserveLapseEpoch(streaks))
	assert.Equal(t, uint64(4), streaks["governor:athena"])
}

func TestAmnestyClockDisabled(t *testing.T) {
	streaks := StreakMap{"governor:athena": 9}

	for _, clock := range []*AmnestyClock{NewAmnestyClock(0, 1), NewAmnestyClock(4, 0)} {
		for i := 0; i < 20; i++ {
			assert.False(t, clock.ObserveLapseEpoch(streaks))
		}
	}
	assert.Equal(t, uint64(9), streaks["governor:athena"])
}

func TestAmnestyEventuallyRestoresEligibility(t *testing.T) {
	// With interval and decay positive and K finite, any streak falls
	// below K after finitely many lapse epochs.
	clock := NewAmnestyClock(2, 1)
	gate := NewEligibilityGate(3)
	streaks := gate.Streaks()
	streaks["governor:athena"] = 5

	pool := []Candidate{{Identity: "governor:athena"}}
	epochs := 0
	for len(gate.Filter(pool)) == 0 {
		clock.ObserveLapseEpoch(streaks)
		epochs++
		if epochs > 100 {
			t.Fatal("lapse did not end")
		}
	}
	assert.Equal(t, 6, epochs, "three firings needed to drop 5 below 3")
}
