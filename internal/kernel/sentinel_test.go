package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelCheck(t *testing.T) {
	var s Sentinel
	lease := &AuthorityLease{ID: "lease-1", StepsCap: 100}

	t.Run("conforming action passes", func(t *testing.T) {
		assert.Nil(t, s.Check(Action{Kind: "plan", Steps: 100}, lease))
	})

	t.Run("empty kind is malformed", func(t *testing.T) {
		v := s.Check(Action{Steps: 1}, lease)
		assert.NotNil(t, v)
		assert.Equal(t, ViolationMalformedAction, v.Kind)
	})

	t.Run("invalid utf8 kind is malformed", func(t *testing.T) {
		v := s.Check(Action{Kind: string([]byte{0xff, 0xfe}), Steps: 1}, lease)
		assert.NotNil(t, v)
		assert.Equal(t, ViolationMalformedAction, v.Kind)
	})

	t.Run("steps beyond lease cap breach the bound", func(t *testing.T) {
		v := s.Check(Action{Kind: "sprawl", Steps: 101}, lease)
		assert.NotNil(t, v)
		assert.Equal(t, ViolationStepsBound, v.Kind)
	})
}
