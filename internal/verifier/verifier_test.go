package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()
	w := Window{Epoch: 3, Holder: "governor:athena"}

	for ref, want := range map[string]Outcome{
		"always-pass":  Pass,
		"always-fail":  Fail,
		"inconclusive": Inconclusive,
	} {
		v, ok := r.Resolve(ref)
		require.True(t, ok, ref)
		assert.Equal(t, want, v.Evaluate(w), ref)
	}

	_, ok := r.Resolve("missing")
	assert.False(t, ok)
}

func TestScripted(t *testing.T) {
	s := &Scripted{
		Outcomes: map[uint64]Outcome{2: Fail, 4: Inconclusive},
		Default:  Pass,
	}

	assert.Equal(t, Pass, s.Evaluate(Window{Epoch: 1}))
	assert.Equal(t, Fail, s.Evaluate(Window{Epoch: 2}))
	assert.Equal(t, Inconclusive, s.Evaluate(Window{Epoch: 4}))
	assert.Equal(t, Pass, s.Evaluate(Window{Epoch: 5}))
}

func testWindow(stepsSpent int64) Window {
	return Window{
		Epoch:  7,
		Holder: "governor:athena",
		Facts: []Fact{
			{Predicate: "window_epoch", Args: []interface{}{int64(7)}},
			{Predicate: "holder", Args: []interface{}{"governor:athena"}},
			{Predicate: "steps_spent", Args: []interface{}{stepsSpent}},
			{Predicate: "actions_admitted", Args: []interface{}{int64(2)}},
			{Predicate: "actions_rejected", Args: []interface{}{int64(0)}},
			{Predicate: "action", Args: []interface{}{"plan", int64(10)}},
			{Predicate: "action", Args: []interface{}{"act", int64(20)}},
		},
	}
}

func TestRuleVerifier(t *testing.T) {
	t.Run("goal derived passes", func(t *testing.T) {
		v := NewRuleVerifier(`frugal(E) :- window_epoch(E), steps_spent(S), :lt(S, 50).`, "frugal")
		assert.Equal(t, Pass, v.Evaluate(testWindow(30)))
	})

	t.Run("goal not derived fails", func(t *testing.T) {
		v := NewRuleVerifier(`frugal(E) :- window_epoch(E), steps_spent(S), :lt(S, 50).`, "frugal")
		assert.Equal(t, Fail, v.Evaluate(testWindow(80)))
	})

	t.Run("unparseable rules are inconclusive", func(t *testing.T) {
		v := NewRuleVerifier(`frugal(E) :- :-`, "frugal")
		assert.Equal(t, Inconclusive, v.Evaluate(testWindow(30)))
	})

	t.Run("build failure is sticky", func(t *testing.T) {
		v := NewRuleVerifier(`frugal(E) :- :-`, "frugal")
		assert.Equal(t, Inconclusive, v.Evaluate(testWindow(30)))
		assert.Equal(t, Inconclusive, v.Evaluate(testWindow(30)))
	})

	t.Run("rules over action facts", func(t *testing.T) {
		v := NewRuleVerifier(`planned(E) :- window_epoch(E), action("plan", S).`, "planned")
		assert.Equal(t, Pass, v.Evaluate(testWindow(30)))

		w := testWindow(30)
		w.Facts = w.Facts[:len(w.Facts)-2]
		assert.Equal(t, Fail, v.Evaluate(w))
	})
}
