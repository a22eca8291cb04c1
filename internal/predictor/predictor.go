// Package predictor turns the current Stores into a Prediction: per-exe and
// per-map probabilities of being needed in the next cycle.
package predictor

import (
	"math"

	"github.com/evalgo/preloadd/internal/domain"
	"github.com/evalgo/preloadd/internal/stores"
)

// Prediction carries the output of one predict call.
type Prediction struct {
	ExeScores map[domain.ExeID]float64
	MapScores map[domain.MapID]float64
}

// Predictor produces a Prediction from the current model state.
type Predictor interface {
	Predict(s *stores.Stores, cycleSecs uint64, useCorrelation bool) Prediction
}

// MarkovPredictor is the reference Predictor: per-edge transition
// probabilities composed across edges under an independence assumption,
// optionally weighted by a Pearson-style correlation factor between the two
// exes' running-time series.
type MarkovPredictor struct{}

// New returns a MarkovPredictor.
func New() *MarkovPredictor { return &MarkovPredictor{} }

func (MarkovPredictor) Predict(s *stores.Stores, cycleSecs uint64, useCorrelation bool) Prediction {
	notNeeded := make(map[domain.ExeID]float64)
	running := make(map[domain.ExeID]bool)
	s.IterExes(func(id domain.ExeID, e *domain.Exe) {
		notNeeded[id] = 1
		running[id] = e.Running
	})

	s.Markov.Iter(func(key stores.EdgeKey, edge *domain.MarkovEdge) {
		pA := needViaEdge(s, key.A, key.B, edge, cycleSecs, useCorrelation, true)
		pB := needViaEdge(s, key.A, key.B, edge, cycleSecs, useCorrelation, false)
		if !running[key.A] {
			notNeeded[key.A] *= 1 - pA
		}
		if !running[key.B] {
			notNeeded[key.B] *= 1 - pB
		}
	})

	exeScores := make(map[domain.ExeID]float64, len(notNeeded))
	for id, nn := range notNeeded {
		if running[id] {
			exeScores[id] = 0
			continue
		}
		exeScores[id] = 1 - nn
	}

	mapNotNeeded := make(map[domain.MapID]float64)
	s.IterMaps(func(id domain.MapID, _ *domain.MapSegment) { mapNotNeeded[id] = 1 })
	for exeID, score := range exeScores {
		for _, mapID := range s.ExeMaps.MapsForExe(exeID) {
			mapNotNeeded[mapID] *= 1 - score
		}
	}
	mapScores := make(map[domain.MapID]float64, len(mapNotNeeded))
	for id, nn := range mapNotNeeded {
		mapScores[id] = 1 - nn
	}

	return Prediction{ExeScores: exeScores, MapScores: mapScores}
}

// needViaEdge computes p_need_via_edge for one endpoint of edge becoming
// the "target" exe: forA selects whether we are predicting A's need
// (target state AOnly) or B's (target state BOnly).
func needViaEdge(s *stores.Stores, a, b domain.ExeID, edge *domain.MarkovEdge, cycleSecs uint64, useCorrelation bool, forA bool) float64 {
	stateIx := edge.State.Index()
	lambda := float64(edge.TimeToLeave[stateIx])

	var pStateChange float64
	if lambda > 0 {
		pStateChange = 1 - math.Exp(-float64(cycleSecs)/lambda)
	}

	var targetState domain.MarkovState
	if forA {
		targetState = domain.AOnly
	} else {
		targetState = domain.BOnly
	}
	targetIx := targetState.Index()
	bothIx := domain.Both.Index()

	pRunsNext := float64(edge.TransitionProb[stateIx][targetIx]) + float64(edge.TransitionProb[stateIx][bothIx])
	p := clamp01(pStateChange * pRunsNext)

	if useCorrelation {
		corr, degenerate := correlation(s, a, b, edge)
		if !degenerate {
			p *= math.Abs(corr)
			p = clamp01(p)
		}
	}
	return p
}

// correlation computes the Pearson-style co-occurrence factor over
// running-time accumulators. The second return is true when the
// denominator is degenerate (T == tA, T == tB, or either variance term is
// non-positive); callers must treat a degenerate result as "no correlation
// signal" and leave the base probability unmultiplied, not as a measured
// correlation of zero.
func correlation(s *stores.Stores, a, b domain.ExeID, edge *domain.MarkovEdge) (float64, bool) {
	T := float64(s.ModelTime)
	exeA, okA := s.Exe(a)
	exeB, okB := s.Exe(b)
	if !okA || !okB {
		return 0, true
	}
	tA := float64(exeA.TotalRunningTime)
	tB := float64(exeB.TotalRunningTime)
	tAB := float64(edge.BothRunningTime)

	if T == tA || T == tB {
		return 0, true
	}
	denomSq := tA * tB * (T - tA) * (T - tB)
	if denomSq <= 0 {
		return 0, true
	}
	denom := math.Sqrt(denomSq)
	if denom == 0 {
		return 0, true
	}
	return (T*tAB - tA*tB) / denom, false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
