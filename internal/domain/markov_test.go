package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkovEdgeDwellUpdate(t *testing.T) {
	// Two exes both running for exactly one cycle, then transition
	// Both -> AOnly. time_to_leave[Both] should decay from 0 toward the
	// dwell time (1 - e^-0.2) * 20 ~= 3.625.
	edge := NewMarkovEdge(Both, 0)
	const decay = float32(0.01)
	const cycle = uint64(20)

	edge.UpdateState(AOnly, cycle, decay)

	want := float32((1 - math.Exp(-0.2)) * 20)
	assert.InDelta(t, want, edge.TimeToLeave[Both.Index()], 1e-3)
	assert.Equal(t, AOnly, edge.State)
	assert.Equal(t, cycle, edge.LastChangeTime)
	assert.Equal(t, cycle, edge.StateLastLeft[Both.Index()])
}

func TestMarkovEdgeNoopOnSameState(t *testing.T) {
	edge := NewMarkovEdge(Both, 0)
	edge.UpdateState(Both, 50, 0.01)
	assert.Equal(t, uint64(0), edge.LastChangeTime)
}

func TestMarkovEdgeNeverNaN(t *testing.T) {
	edge := NewMarkovEdge(Neither, 0)
	edge.UpdateState(AOnly, math.MaxUint64, 0.9)
	for _, v := range edge.TimeToLeave {
		require.False(t, math.IsNaN(float64(v)))
	}
	for _, row := range edge.TransitionProb {
		for _, v := range row {
			require.False(t, math.IsNaN(float64(v)))
		}
	}
}

func TestStateFromRunning(t *testing.T) {
	assert.Equal(t, Neither, StateFromRunning(false, false))
	assert.Equal(t, AOnly, StateFromRunning(true, false))
	assert.Equal(t, BOnly, StateFromRunning(false, true))
	assert.Equal(t, Both, StateFromRunning(true, true))
}
