package predictor

import (
	"math"
	"testing"

	"github.com/evalgo/preloadd/internal/domain"
	"github.com/evalgo/preloadd/internal/stores"
	"github.com/stretchr/testify/assert"
)

func TestPredictRunningExeScoresZero(t *testing.T) {
	s := stores.New()
	a := s.EnsureExe("/bin/a")
	exe, _ := s.Exe(a)
	exe.Running = true

	p := New()
	pred := p.Predict(s, 20, true)
	assert.Equal(t, float64(0), pred.ExeScores[a])
}

func TestPredictScoresBounded(t *testing.T) {
	s := stores.New()
	a := s.EnsureExe("/bin/a")
	b := s.EnsureExe("/bin/b")
	s.EnsureMarkovEdge(a, b, 0, domain.Both)
	edge, _ := s.Markov.Get(stores.NewEdgeKey(a, b))
	edge.TimeToLeave[domain.Both.Index()] = 5
	edge.TransitionProb[domain.Both.Index()][domain.AOnly.Index()] = 0.5

	p := New()
	pred := p.Predict(s, 20, false)
	for _, score := range pred.ExeScores {
		assert.GreaterOrEqual(t, score, float64(0))
		assert.LessOrEqual(t, score, float64(1))
	}
}

func TestCorrelationZeroWhenTEqualsTA(t *testing.T) {
	s := stores.New()
	a := s.EnsureExe("/bin/a")
	b := s.EnsureExe("/bin/b")
	s.EnsureMarkovEdge(a, b, 0, domain.Both)
	edge, _ := s.Markov.Get(stores.NewEdgeKey(a, b))

	exeA, _ := s.Exe(a)
	s.ModelTime = 100
	exeA.TotalRunningTime = 100 // T == t_a

	corr, degenerate := correlation(s, a, b, edge)
	assert.Equal(t, float64(0), corr)
	assert.True(t, degenerate)
}

func TestCorrelationZeroOnDegenerateDenominator(t *testing.T) {
	s := stores.New()
	a := s.EnsureExe("/bin/a")
	b := s.EnsureExe("/bin/b")
	s.EnsureMarkovEdge(a, b, 0, domain.Both)
	edge, _ := s.Markov.Get(stores.NewEdgeKey(a, b))
	s.ModelTime = 100
	// t_a = 0 makes the denominator zero.
	corr, degenerate := correlation(s, a, b, edge)
	assert.Equal(t, float64(0), corr)
	assert.True(t, degenerate)
}

// TestPredictBaseProbabilityWhenCorrelationDegenerate covers the case where
// T == t_a degenerates the correlation factor: the predicted need must stay
// at the base probability (pStateChange * pRunsNext), not collapse to zero.
func TestPredictBaseProbabilityWhenCorrelationDegenerate(t *testing.T) {
	s := stores.New()
	a := s.EnsureExe("/bin/a")
	b := s.EnsureExe("/bin/b")
	s.EnsureMarkovEdge(a, b, 0, domain.Both)
	edge, _ := s.Markov.Get(stores.NewEdgeKey(a, b))
	edge.TimeToLeave[domain.Both.Index()] = 5
	edge.TransitionProb[domain.Both.Index()][domain.AOnly.Index()] = 0.5

	exeA, _ := s.Exe(a)
	s.ModelTime = 100
	exeA.TotalRunningTime = 100 // T == t_a forces the zero-guard in correlation()

	p := New()
	pred := p.Predict(s, 20, true)

	wantPStateChange := 1 - math.Exp(-20.0/5.0)
	want := clamp01(wantPStateChange * 0.5)

	assert.InDelta(t, want, pred.ExeScores[a], 1e-9)
	assert.NotEqual(t, float64(0), pred.ExeScores[a])
}
