package domain

import "math"

// MarkovState is the joint running state of an unordered exe pair.
type MarkovState uint8

const (
	Neither MarkovState = iota
	AOnly
	BOnly
	Both
	numMarkovStates = 4
)

func (s MarkovState) String() string {
	switch s {
	case Neither:
		return "Neither"
	case AOnly:
		return "AOnly"
	case BOnly:
		return "BOnly"
	case Both:
		return "Both"
	default:
		return "Unknown"
	}
}

// Index returns the array index used to index time_to_leave/transition_prob.
func (s MarkovState) Index() int { return int(s) }

// StateFromRunning derives the joint state from each exe's running flag.
func StateFromRunning(a, b bool) MarkovState {
	switch {
	case a && b:
		return Both
	case a:
		return AOnly
	case b:
		return BOnly
	default:
		return Neither
	}
}

// MarkovEdge is the pairwise model entry for an unordered pair of exes. All
// timing fields are seconds of ModelTime.
type MarkovEdge struct {
	State           MarkovState
	LastChangeTime  uint64
	StateLastLeft   [numMarkovStates]uint64
	TimeToLeave     [numMarkovStates]float32
	TransitionProb  [numMarkovStates][numMarkovStates]float32
	BothRunningTime uint64
}

// NewMarkovEdge creates an edge freshly observed in state at model-time now.
func NewMarkovEdge(state MarkovState, now uint64) *MarkovEdge {
	e := &MarkovEdge{
		State:          state,
		LastChangeTime: now,
	}
	for i := range e.StateLastLeft {
		e.StateLastLeft[i] = now
	}
	return e
}

// UpdateState applies the decayed update rule for a transition from the
// edge's current state to newState: the time-to-leave EMA is updated
// toward the dwell time just observed, and the transition probability EMA
// toward the observed transition. A no-op if newState equals the current
// state. decay is λ.
func (e *MarkovEdge) UpdateState(newState MarkovState, now uint64, decay float32) {
	if newState == e.State {
		return
	}

	oldIx := e.State.Index()
	newIx := newState.Index()

	dtLeft := satSub(now, e.StateLastLeft[oldIx])
	dtChange := satSub(now, e.LastChangeTime)

	mixTT := decayedWeight(decay, dtLeft)
	mixTP := decayedWeight(decay, dtChange)

	dwell := float32(dtChange)
	if !math.IsNaN(float64(mixTT)) {
		e.TimeToLeave[oldIx] = mixTT*e.TimeToLeave[oldIx] + (1-mixTT)*dwell
	}

	if !math.IsNaN(float64(mixTP)) {
		for i := 0; i < numMarkovStates; i++ {
			for j := 0; j < numMarkovStates; j++ {
				if i == j {
					continue
				}
				var sample float32
				if i == oldIx && j == newIx {
					sample = 1
				}
				e.TransitionProb[i][j] = mixTP*e.TransitionProb[i][j] + (1-mixTP)*sample
			}
		}
	}

	e.StateLastLeft[oldIx] = now
	e.LastChangeTime = now
	e.State = newState
}

// decayedWeight returns e^{-decay*dt}, the mixing weight for the existing
// mean in an exponential moving average. Never returns NaN: an overflowing
// exponent saturates to 0.
func decayedWeight(decay float32, dt uint64) float32 {
	exponent := -float64(decay) * float64(dt)
	if exponent < -700 {
		return 0
	}
	w := float32(math.Exp(exponent))
	if math.IsNaN(float64(w)) {
		return 0
	}
	return w
}

func satSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
